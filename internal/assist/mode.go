package assist

import (
	"fmt"
	"strings"
)

// Mode selects the response style: terse audio narration for blind users,
// or conversational answers consulting stored memory.
type Mode int

const (
	// ModeBlind produces short narration from the current scene only.
	ModeBlind Mode = iota
	// ModeNormal produces conversational answers over current plus
	// retrieved context.
	ModeNormal
)

func (m Mode) String() string {
	switch m {
	case ModeBlind:
		return "blind"
	case ModeNormal:
		return "normal"
	default:
		return "unknown"
	}
}

// ParseMode validates a mode string at the boundary. "classic" is a legacy
// alias for normal. Empty input defaults to blind, the primary use case.
func ParseMode(raw string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "blind":
		return ModeBlind, nil
	case "normal", "classic":
		return ModeNormal, nil
	default:
		return ModeBlind, fmt.Errorf("unknown mode %q", raw)
	}
}
