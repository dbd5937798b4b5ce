package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"iris/internal/apperr"
	"iris/internal/logging"
)

const (
	cartesiaBaseURL = "https://api.cartesia.ai"
	cartesiaVersion = "2025-04-16"

	defaultSTTModel      = "ink-whisper"
	defaultTTSModel      = "sonic-2"
	defaultVoiceID       = "694f9389-aac1-45b6-b726-9d9369183238"
	defaultLanguage      = "en"
	defaultSpeechTimeout = 60 * time.Second
)

// CartesiaConfig holds connection settings for the Cartesia API.
type CartesiaConfig struct {
	APIKey   string
	BaseURL  string // Optional override, mainly for tests
	STTModel string
	TTSModel string
	Voice    string
	Timeout  int // seconds
}

// CartesiaClient implements Transcriber and Synthesizer against Cartesia.
type CartesiaClient struct {
	config     CartesiaConfig
	httpClient *http.Client
	logger     logging.Logger
}

var _ Transcriber = (*CartesiaClient)(nil)
var _ Synthesizer = (*CartesiaClient)(nil)

// NewCartesiaClient creates a client. A missing API key is reported by
// Ready and by a permanent error on use, never by a panic.
func NewCartesiaClient(config CartesiaConfig) *CartesiaClient {
	if config.BaseURL == "" {
		config.BaseURL = cartesiaBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.STTModel == "" {
		config.STTModel = defaultSTTModel
	}
	if config.TTSModel == "" {
		config.TTSModel = defaultTTSModel
	}
	if config.Voice == "" {
		config.Voice = defaultVoiceID
	}
	timeout := defaultSpeechTimeout
	if config.Timeout > 0 {
		timeout = time.Duration(config.Timeout) * time.Second
	}
	return &CartesiaClient{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NewComponentLogger("Cartesia"),
	}
}

// Ready reports whether credentials are configured.
func (c *CartesiaClient) Ready() bool {
	return strings.TrimSpace(c.config.APIKey) != ""
}

// Transcribe posts the audio as multipart form data to the STT endpoint.
func (c *CartesiaClient) Transcribe(ctx context.Context, audio []byte, filename string) (Transcript, error) {
	if !c.Ready() {
		return Transcript{}, &apperr.PermanentError{Err: errors.New("Cartesia API key not configured")}
	}
	if len(audio) == 0 {
		return Transcript{}, &apperr.PermanentError{Err: errors.New("empty audio")}
	}
	if filename == "" {
		filename = "audio.wav"
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("model", c.config.STTModel); err != nil {
		return Transcript{}, fmt.Errorf("write form field: %w", err)
	}
	if err := writer.WriteField("language", defaultLanguage); err != nil {
		return Transcript{}, fmt.Errorf("write form field: %w", err)
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return Transcript{}, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return Transcript{}, fmt.Errorf("write audio: %w", err)
	}
	if err := writer.Close(); err != nil {
		return Transcript{}, fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/stt", &body)
	if err != nil {
		return Transcript{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.setAuthHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Transcript{}, fmt.Errorf("http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Transcript{}, c.apiError(resp)
	}

	var apiResp struct {
		Text     string  `json:"text"`
		Duration float64 `json:"duration"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return Transcript{}, fmt.Errorf("decode response: %w", err)
	}
	return Transcript{
		Text:     apiResp.Text,
		Duration: time.Duration(apiResp.Duration * float64(time.Second)),
	}, nil
}

// Synthesize renders text to WAV bytes.
func (c *CartesiaClient) Synthesize(ctx context.Context, req SynthesisRequest) (SynthesisResult, error) {
	if !c.Ready() {
		return SynthesisResult{}, &apperr.PermanentError{Err: errors.New("Cartesia API key not configured")}
	}
	if strings.TrimSpace(req.Text) == "" {
		return SynthesisResult{}, &apperr.PermanentError{Err: errors.New("empty text")}
	}

	voice := req.Voice
	if voice == "" {
		voice = c.config.Voice
	}
	language := req.Language
	if language == "" {
		language = defaultLanguage
	}

	payload := map[string]any{
		"transcript": req.Text,
		"model_id":   c.config.TTSModel,
		"voice": map[string]any{
			"mode": "id",
			"id":   voice,
		},
		"language": language,
		"output_format": map[string]any{
			"container":   "wav",
			"encoding":    "pcm_f32le",
			"sample_rate": 44100,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return SynthesisResult{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/tts/bytes", bytes.NewReader(body))
	if err != nil {
		return SynthesisResult{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/octet-stream")
	c.setAuthHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return SynthesisResult{}, fmt.Errorf("http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return SynthesisResult{}, c.apiError(resp)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return SynthesisResult{}, fmt.Errorf("read audio: %w", err)
	}
	return SynthesisResult{
		Audio:       audio,
		ContentType: "audio/wav",
	}, nil
}

func (c *CartesiaClient) setAuthHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Cartesia-Version", cartesiaVersion)
}

func (c *CartesiaClient) apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	apiErr := fmt.Errorf("Cartesia error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	return apperr.FromHTTPStatus(resp.StatusCode, apiErr)
}
