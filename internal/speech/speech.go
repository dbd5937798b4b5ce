// Package speech wraps the hosted speech provider with stateless
// request/response clients for transcription and synthesis.
package speech

import (
	"context"
	"time"
)

// Transcript is the result of one speech-to-text call.
type Transcript struct {
	Text     string        `json:"text"`
	Duration time.Duration `json:"duration"`
}

// SynthesisRequest describes one text-to-speech call.
type SynthesisRequest struct {
	Text     string
	Voice    string // provider voice ID; empty selects the default
	Language string // BCP-47-ish language code, default "en"
}

// SynthesisResult carries the rendered audio.
type SynthesisResult struct {
	Audio       []byte
	ContentType string
}

// Transcriber converts recorded audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (Transcript, error)
}

// Synthesizer renders text into audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, req SynthesisRequest) (SynthesisResult, error)
}
