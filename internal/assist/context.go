package assist

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"iris/internal/logging"
	"iris/internal/memory"
	"iris/internal/scene"
)

// defaultRetrievalFanOut bounds how many historical fragments feed one answer.
const defaultRetrievalFanOut = 4

// Context holds the two text blocks handed to the response generator.
type Context struct {
	// Current is always derived from the record analyzed in this request.
	Current string
	// Retrieved holds historical fragment contents in descending
	// similarity order. Always empty in blind mode.
	Retrieved string
}

// Composer assembles generation context from the current record and, in
// normal mode, the memory store.
type Composer struct {
	store  memory.Store
	topK   int
	logger logging.Logger
}

// NewComposer creates a composer. topK <= 0 selects the default fan-out.
func NewComposer(store memory.Store, topK int, logger logging.Logger) *Composer {
	if topK <= 0 {
		topK = defaultRetrievalFanOut
	}
	return &Composer{
		store:  store,
		topK:   topK,
		logger: logging.OrNop(logger),
	}
}

// Compose builds the context for one request. Retrieval failures are logged
// and swallowed: the answer can still be generated from the current scene.
func (c *Composer) Compose(ctx context.Context, question string, rec scene.Record, mode Mode) Context {
	composed := Context{Current: currentContext(rec, mode)}

	if mode != ModeNormal {
		return composed
	}
	if c.store == nil {
		return composed
	}

	query := strings.TrimSpace(question)
	if query == "" {
		// Empty-question normal mode still narrates the current context;
		// there is nothing meaningful to retrieve against.
		return composed
	}

	fragments, err := c.store.Search(ctx, query, c.topK)
	if err != nil {
		c.logger.Warn("Memory retrieval failed, continuing without history: %v", err)
		return composed
	}

	var sb strings.Builder
	for i, frag := range fragments {
		if i > 0 {
			sb.WriteString("\n")
		}
		ts := frag.Metadata[memory.MetaTimestamp]
		if ts != "" {
			sb.WriteString(fmt.Sprintf("[observed %s] %s", ts, frag.Content))
		} else {
			sb.WriteString(frag.Content)
		}
	}
	composed.Retrieved = sb.String()
	return composed
}

// currentContext renders the record for the generator. Blind mode keeps the
// narration-relevant structure; normal mode gets the full structured form.
func currentContext(rec scene.Record, mode Mode) string {
	if mode == ModeBlind {
		var sb strings.Builder
		sb.WriteString("Summary: " + rec.Summary + "\n")
		sb.WriteString("Layout: " + rec.SpatialLayout + "\n")
		for _, obj := range rec.Objects {
			sb.WriteString(fmt.Sprintf("Object: %s at %s\n", obj.Name, obj.Position))
		}
		for _, obstacle := range rec.AccessibilityInfo.Obstacles {
			sb.WriteString("Obstacle: " + obstacle + "\n")
		}
		for _, landmark := range rec.AccessibilityInfo.Landmarks {
			sb.WriteString("Landmark: " + landmark + "\n")
		}
		for _, note := range rec.AccessibilityInfo.SafetyNotes {
			sb.WriteString("Safety: " + note + "\n")
		}
		return sb.String()
	}

	// The record marshals cleanly; its JSON form is the full structured
	// current context.
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return rec.DetailedDescription
	}
	return string(data)
}
