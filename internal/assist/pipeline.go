package assist

import (
	"context"
	"fmt"
	"time"

	"iris/internal/logging"
	"iris/internal/memory"
	"iris/internal/scene"
)

// AskRequest is one image upload plus its optional question and mode.
type AskRequest struct {
	Image    []byte
	MimeType string
	Question string
	Mode     Mode
}

// Result is the user-facing outcome of one request.
type Result struct {
	Description string    `json:"description"`
	Answer      string    `json:"answer,omitempty"`
	MemoryID    string    `json:"memory_id"`
	Timestamp   time.Time `json:"timestamp"`
	Confidence  float64   `json:"confidence"`
	// Degraded marks answers built from a fallback scene record, i.e. the
	// vision model replied but its output could not be parsed.
	Degraded bool `json:"degraded,omitempty"`
}

// Pipeline runs the visual-memory flow for one request:
// analyze -> decompose -> store -> (retrieve) -> generate.
// The store handle is injected; store failures never fail the request.
type Pipeline struct {
	analyzer  *scene.Analyzer
	store     memory.Store
	composer  *Composer
	generator *Generator
	logger    logging.Logger
}

// NewPipeline wires the pipeline from its collaborators.
func NewPipeline(analyzer *scene.Analyzer, store memory.Store, composer *Composer, generator *Generator, logger logging.Logger) *Pipeline {
	return &Pipeline{
		analyzer:  analyzer,
		store:     store,
		composer:  composer,
		generator: generator,
		logger:    logging.OrNop(logger),
	}
}

// Ask processes one upload end to end. The returned error is non-nil only
// for provider invocation failures (vision or text model); parse failures
// degrade, store failures are logged and swallowed.
func (p *Pipeline) Ask(ctx context.Context, req AskRequest) (Result, error) {
	rec, err := p.analyzer.Analyze(ctx, req.Image, req.MimeType, req.Question)
	if err != nil {
		return Result{}, fmt.Errorf("analyze scene: %w", err)
	}
	p.logger.Info("Scene analyzed (memory_id=%s, objects=%d, degraded=%v, mode=%s)",
		rec.MemoryID, len(rec.Objects), rec.Degraded(), req.Mode)

	fragments := memory.Decompose(rec)
	if p.store != nil {
		if err := p.store.Add(ctx, fragments); err != nil {
			p.logger.Warn("Storing %d fragments failed, continuing without memory: %v", len(fragments), err)
		}
	}

	composed := p.composer.Compose(ctx, req.Question, rec, req.Mode)

	description, err := p.generator.Generate(ctx, req.Question, req.Mode, composed)
	if err != nil {
		return Result{}, fmt.Errorf("generate response: %w", err)
	}

	return Result{
		Description: description,
		Answer:      rec.Answer,
		MemoryID:    rec.MemoryID,
		Timestamp:   rec.Timestamp,
		Confidence:  rec.Confidence,
		Degraded:    rec.Degraded(),
	}, nil
}
