package scene

import "time"

// Record is the structured description of a single analyzed image. One
// Record is produced per upload; its MemoryID is assigned exactly once and
// joins every memory fragment later derived from it.
type Record struct {
	MemoryID            string            `json:"memory_id"`
	Summary             string            `json:"summary"`
	Objects             []Object          `json:"objects"`
	SceneContext        Context           `json:"scene_context"`
	AccessibilityInfo   AccessibilityInfo `json:"accessibility_info"`
	DetailedDescription string            `json:"detailed_description"`
	SpatialLayout       string            `json:"spatial_layout"`
	Answer              string            `json:"answer,omitempty"`
	Confidence          float64           `json:"confidence"`
	Timestamp           time.Time         `json:"timestamp"`

	// degraded marks records built by the fallback parse path. Not part of
	// the wire schema.
	degraded bool
}

// Degraded reports whether the record came from the fallback parse path.
func (r Record) Degraded() bool {
	return r.degraded
}

// Object is one detected object. Order in Record.Objects is detection order
// and carries no semantic meaning.
type Object struct {
	Name       string  `json:"name"`
	Position   string  `json:"position"`
	Size       string  `json:"size,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Context captures the overall scene conditions.
type Context struct {
	Setting   string `json:"setting"`
	Lighting  string `json:"lighting"`
	Weather   string `json:"weather,omitempty"`
	TimeOfDay string `json:"time_of_day,omitempty"`
}

// AccessibilityInfo holds the navigation-relevant findings, each a list of
// free-text statements. Empty lists are valid and common.
type AccessibilityInfo struct {
	Obstacles      []string `json:"obstacles"`
	Landmarks      []string `json:"landmarks"`
	SafetyNotes    []string `json:"safety_notes"`
	NavigationTips []string `json:"navigation_tips"`
}
