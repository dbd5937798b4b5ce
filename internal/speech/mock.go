package speech

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"time"
)

// MockSynthesizer generates silent audio for development and dry-run
// scenarios, sized to the input text length.
type MockSynthesizer struct {
	SampleRate int
}

var _ Synthesizer = MockSynthesizer{}

// Synthesize returns a silent WAV whose duration tracks the text length.
func (m MockSynthesizer) Synthesize(_ context.Context, req SynthesisRequest) (SynthesisResult, error) {
	rate := m.SampleRate
	if rate <= 0 {
		rate = 16000
	}
	return SynthesisResult{
		Audio:       generateSilentWAV(estimateDuration(req.Text), rate),
		ContentType: "audio/wav",
	}, nil
}

// MockTranscriber returns a fixed transcript.
type MockTranscriber struct {
	Text string
}

var _ Transcriber = MockTranscriber{}

func (m MockTranscriber) Transcribe(_ context.Context, _ []byte, _ string) (Transcript, error) {
	return Transcript{Text: m.Text, Duration: estimateDuration(m.Text)}, nil
}

func estimateDuration(text string) time.Duration {
	if len(text) == 0 {
		return 2 * time.Second
	}
	seconds := float64(len([]rune(text))) / 12.0
	seconds = math.Max(seconds, 2)
	return time.Duration(seconds * float64(time.Second))
}

func generateSilentWAV(duration time.Duration, sampleRate int) []byte {
	totalSamples := int(math.Ceil(duration.Seconds() * float64(sampleRate)))
	if totalSamples < sampleRate {
		totalSamples = sampleRate
	}
	dataSize := totalSamples * 2
	buf := bytes.NewBuffer(make([]byte, 0, 44+dataSize))
	writeString(buf, "RIFF")
	_ = binary.Write(buf, binary.LittleEndian, uint32(36+dataSize))
	writeString(buf, "WAVE")
	writeString(buf, "fmt ")
	_ = binary.Write(buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(buf, binary.LittleEndian, uint32(sampleRate*2))
	_ = binary.Write(buf, binary.LittleEndian, uint16(2))
	_ = binary.Write(buf, binary.LittleEndian, uint16(16))
	writeString(buf, "data")
	_ = binary.Write(buf, binary.LittleEndian, uint32(dataSize))
	buf.Write(make([]byte, dataSize))
	return buf.Bytes()
}

func writeString(buf *bytes.Buffer, s string) {
	buf.WriteString(s)
}
