package server

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"iris/internal/assist"
	"iris/internal/speech"
)

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status        string            `json:"status"`
	Message       string            `json:"message"`
	Timestamp     time.Time         `json:"timestamp"`
	Components    map[string]string `json:"components"`
	FragmentCount int               `json:"fragment_count"`
	UptimeSeconds float64           `json:"uptime_seconds"`
}

type memoryItem struct {
	MemoryID string `json:"memory_id"`
	Type     string `json:"type"`
	Content  string `json:"content"`
}

type transcriptResponse struct {
	Text            string  `json:"text"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
}

type synthesizeRequest struct {
	Text     string `json:"text"`
	Voice    string `json:"voice"`
	Language string `json:"language"`
}

// handleHealth reports liveness plus per-dependency readiness. Missing
// credentials make a component "degraded" but never fail startup, so the
// endpoint always answers 200.
func (s *Server) handleHealth(c *gin.Context) {
	status := "ok"
	components := make(map[string]string, len(s.opts.Checks))
	for name, check := range s.opts.Checks {
		if err := check(); err != nil {
			components[name] = err.Error()
			status = "degraded"
			continue
		}
		components[name] = "ready"
	}

	count := 0
	if s.opts.Store != nil {
		count = s.opts.Store.Count()
	}

	message := "visual memory assistant is running"
	if status != "ok" {
		message = "running with unavailable components, see components"
	}

	c.JSON(http.StatusOK, healthResponse{
		Status:        status,
		Message:       message,
		Timestamp:     time.Now().UTC(),
		Components:    components,
		FragmentCount: count,
		UptimeSeconds: time.Since(s.startTime).Seconds(),
	})
}

// handleVision accepts a multipart image upload with an optional question
// and mode, runs the pipeline, and returns the analysis result. Input
// problems answer 400; provider invocation failures answer 502.
func (s *Server) handleVision(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "file field is required"})
		return
	}
	if header.Size > s.opts.MaxUploadBytes {
		c.JSON(http.StatusBadRequest, errorResponse{
			Error: fmt.Sprintf("file exceeds the %d byte limit", s.opts.MaxUploadBytes),
		})
		return
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "cannot read uploaded file"})
		return
	}
	defer func() { _ = file.Close() }()

	image, err := io.ReadAll(io.LimitReader(file, s.opts.MaxUploadBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "cannot read uploaded file"})
		return
	}
	if int64(len(image)) > s.opts.MaxUploadBytes {
		c.JSON(http.StatusBadRequest, errorResponse{
			Error: fmt.Sprintf("file exceeds the %d byte limit", s.opts.MaxUploadBytes),
		})
		return
	}

	mimeType := http.DetectContentType(image)
	if !strings.HasPrefix(mimeType, "image/") {
		c.JSON(http.StatusBadRequest, errorResponse{
			Error: fmt.Sprintf("unsupported content type %q, expected an image", mimeType),
		})
		return
	}

	mode, err := assist.ParseMode(c.PostForm("mode"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	result, err := s.opts.Pipeline.Ask(c.Request.Context(), assist.AskRequest{
		Image:    image,
		MimeType: mimeType,
		Question: strings.TrimSpace(c.PostForm("question")),
		Mode:     mode,
	})
	if err != nil {
		s.logger.Error("vision request failed: %v", err)
		c.JSON(http.StatusBadGateway, errorResponse{Error: fmt.Sprintf("vision provider unavailable: %v", err)})
		return
	}

	c.JSON(http.StatusOK, result)
}

// handleMemoryList returns stored fragments in insertion order, capped by
// the limit query parameter.
func (s *Server) handleMemoryList(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid limit %q", raw)})
			return
		}
		limit = parsed
	}

	fragments, err := s.opts.Store.Search(c.Request.Context(), "", limit)
	if err != nil {
		s.logger.Error("memory listing failed: %v", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "memory store unavailable"})
		return
	}

	items := make([]memoryItem, 0, len(fragments))
	for _, f := range fragments {
		items = append(items, memoryItem{
			MemoryID: f.MemoryID(),
			Type:     f.Type(),
			Content:  f.Content,
		})
	}
	c.JSON(http.StatusOK, items)
}

// handleMemoryClear wipes the whole store.
func (s *Server) handleMemoryClear(c *gin.Context) {
	if err := s.opts.Store.Clear(c.Request.Context()); err != nil {
		s.logger.Error("memory clear failed: %v", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "memory store unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "memory cleared"})
}

func (s *Server) handleTranscribe(c *gin.Context) {
	if s.opts.Transcriber == nil {
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "speech transcription is not configured"})
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "file field is required"})
		return
	}
	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "cannot read uploaded file"})
		return
	}
	defer func() { _ = file.Close() }()

	audio, err := io.ReadAll(io.LimitReader(file, s.opts.MaxUploadBytes+1))
	if err != nil || int64(len(audio)) > s.opts.MaxUploadBytes {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "cannot read uploaded file"})
		return
	}

	transcript, err := s.opts.Transcriber.Transcribe(c.Request.Context(), audio, header.Filename)
	if err != nil {
		s.logger.Error("transcription failed: %v", err)
		c.JSON(http.StatusBadGateway, errorResponse{Error: fmt.Sprintf("speech provider unavailable: %v", err)})
		return
	}

	c.JSON(http.StatusOK, transcriptResponse{
		Text:            transcript.Text,
		DurationSeconds: transcript.Duration.Seconds(),
	})
}

func (s *Server) handleSynthesize(c *gin.Context) {
	if s.opts.Synthesizer == nil {
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "speech synthesis is not configured"})
		return
	}

	var req synthesizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid request: %v", err)})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "text is required"})
		return
	}

	result, err := s.opts.Synthesizer.Synthesize(c.Request.Context(), speech.SynthesisRequest{
		Text:     req.Text,
		Voice:    req.Voice,
		Language: req.Language,
	})
	if err != nil {
		s.logger.Error("synthesis failed: %v", err)
		c.JSON(http.StatusBadGateway, errorResponse{Error: fmt.Sprintf("speech provider unavailable: %v", err)})
		return
	}

	contentType := result.ContentType
	if contentType == "" {
		contentType = "audio/wav"
	}
	c.Data(http.StatusOK, contentType, result.Audio)
}
