package scene

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kaptinlin/jsonrepair"

	"iris/internal/llm"
	"iris/internal/logging"
)

const (
	// nominalConfidence caps model-reported confidence for records that
	// parsed cleanly but reported nothing themselves.
	nominalConfidence = 0.9
	// degradedConfidence marks records built from unparseable model output.
	degradedConfidence = 0.75
)

// Analyzer turns one raw image plus an optional question into a Record.
// It never fails on malformed model output: the degraded fallback record
// keeps the pipeline moving and preserves the raw text for recovery.
type Analyzer struct {
	vision llm.VisionClient
	logger logging.Logger
}

// NewAnalyzer creates an analyzer backed by the given vision model.
func NewAnalyzer(vision llm.VisionClient, logger logging.Logger) *Analyzer {
	return &Analyzer{
		vision: vision,
		logger: logging.OrNop(logger),
	}
}

// Analyze sends the image to the vision model and parses the reply into a
// Record. The returned error is non-nil only for provider invocation
// failures; parse failures degrade into a fallback record instead.
func (a *Analyzer) Analyze(ctx context.Context, image []byte, mimeType string, question string) (Record, error) {
	memoryID := uuid.NewString()

	instructions := analysisBrief
	if strings.TrimSpace(question) != "" {
		instructions += fmt.Sprintf(questionDirective, question)
	}

	raw, err := a.vision.InvokeVision(ctx, image, mimeType, instructions)
	if err != nil {
		return Record{}, fmt.Errorf("vision model: %w", err)
	}

	record, ok := a.parseRecord(raw)
	if !ok {
		a.logger.Warn("Scene output unparseable, building fallback record (memory_id=%s, %d bytes raw)", memoryID, len(raw))
		record = fallbackRecord(raw)
	}

	record.MemoryID = memoryID
	record.Timestamp = time.Now()
	if record.Confidence <= 0 || record.Confidence > 1 {
		record.Confidence = nominalConfidence
	}
	return record, nil
}

// parseRecord tries strict JSON first, then a jsonrepair pass for the usual
// model damage (markdown fences, trailing commas, unquoted keys).
func (a *Analyzer) parseRecord(raw string) (Record, bool) {
	candidate := stripFences(raw)

	var record Record
	if err := json.Unmarshal([]byte(candidate), &record); err == nil && record.Summary != "" {
		return record, true
	}

	repaired, err := jsonrepair.JSONRepair(candidate)
	if err != nil {
		a.logger.Debug("JSON repair failed: %v", err)
		return Record{}, false
	}
	if err := json.Unmarshal([]byte(repaired), &record); err != nil || record.Summary == "" {
		return Record{}, false
	}
	a.logger.Info("Scene output recovered via JSON repair")
	return record, true
}

// fallbackRecord builds the degraded record for unparseable output. The raw
// model text lands verbatim in the detailed description so nothing is lost.
func fallbackRecord(raw string) Record {
	return Record{
		degraded: true,
		Summary:  "Scene analysis available in description",
		Objects: []Object{
			{Name: "scene content", Position: "unknown"},
		},
		SceneContext: Context{
			Setting:  "unknown",
			Lighting: "unknown",
		},
		AccessibilityInfo: AccessibilityInfo{
			SafetyNotes: []string{"Structured analysis unavailable, review description manually"},
		},
		DetailedDescription: raw,
		SpatialLayout:       "unknown",
		Confidence:          degradedConfidence,
	}
}

func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
	}
	return strings.TrimSpace(s)
}
