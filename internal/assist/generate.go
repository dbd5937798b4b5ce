package assist

import (
	"context"
	"fmt"
	"strings"

	"iris/internal/llm"
	"iris/internal/logging"
)

// FallbackSentence is the exact response for normal-mode questions that
// cannot be answered from current or retrieved context. Reserved for that
// case; blind-mode output never contains it.
const FallbackSentence = "I cannot locate it from current context."

const blindSystemPrompt = `You narrate scenes for a blind user through audio. Be short and concrete.
Mention key objects, obstacles, landmarks and their spatial relationships. Omit non-essential detail.
If a question is asked, answer it as directly as possible from the scene context alone.
Never apologize, never hedge, never suggest irrelevant alternatives. If a fact is not in the
scene context, state plainly that it is not visible in the current scene.`

const normalSystemPrompt = `You answer questions for a sighted user in 1-2 conversational sentences.
Use the CURRENT CONTEXT and the RETRIEVED CONTEXT below. If the answer comes from retrieved
context, mention when or where it was observed using the stored details so the answer feels
grounded in memory. Do not speculate beyond the provided context.
If the answer is in neither context, reply with exactly this sentence and nothing else:
` + FallbackSentence

// Generator produces the final user-facing text for one request. Stateless;
// one shot per request.
type Generator struct {
	text   llm.TextClient
	logger logging.Logger
}

// NewGenerator creates a generator backed by the given text model.
func NewGenerator(text llm.TextClient, logger logging.Logger) *Generator {
	return &Generator{
		text:   text,
		logger: logging.OrNop(logger),
	}
}

// Generate emits the response for the composed context. Provider invocation
// failures surface as errors; the boundary layer decides how to render them.
func (g *Generator) Generate(ctx context.Context, question string, mode Mode, composed Context) (string, error) {
	var systemPrompt, userPrompt string
	switch mode {
	case ModeBlind:
		systemPrompt = blindSystemPrompt
		userPrompt = blindUserPrompt(question, composed)
	default:
		systemPrompt = normalSystemPrompt
		userPrompt = normalUserPrompt(question, composed)
	}

	reply, err := g.text.InvokeText(ctx, systemPrompt, userPrompt)
	if err != nil {
		return "", fmt.Errorf("text model: %w", err)
	}

	reply = strings.TrimSpace(reply)
	if strings.Contains(reply, FallbackSentence) {
		switch mode {
		case ModeBlind:
			// The fallback sentence is reserved for normal mode; a model
			// that emits it anyway gets it stripped from the narration.
			reply = strings.TrimSpace(strings.ReplaceAll(reply, FallbackSentence, ""))
		default:
			// The model sometimes wraps the fallback in extra prose; the
			// contract is the exact sentence.
			return FallbackSentence, nil
		}
	}
	return reply, nil
}

func blindUserPrompt(question string, composed Context) string {
	var sb strings.Builder
	sb.WriteString("SCENE CONTEXT:\n")
	sb.WriteString(composed.Current)
	if strings.TrimSpace(question) != "" {
		sb.WriteString("\nQUESTION: " + question)
		sb.WriteString("\nAnswer the question concisely from the scene context.")
	} else {
		sb.WriteString("\nNarrate this scene for audio.")
	}
	return sb.String()
}

func normalUserPrompt(question string, composed Context) string {
	var sb strings.Builder
	sb.WriteString("CURRENT CONTEXT:\n")
	sb.WriteString(composed.Current)
	sb.WriteString("\n\nRETRIEVED CONTEXT:\n")
	if composed.Retrieved != "" {
		sb.WriteString(composed.Retrieved)
	} else {
		sb.WriteString("(none)")
	}
	if strings.TrimSpace(question) != "" {
		sb.WriteString("\n\nQUESTION: " + question)
	} else {
		sb.WriteString("\n\nDescribe the current context.")
	}
	return sb.String()
}
