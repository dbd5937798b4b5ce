package memory

// Fragment is the smallest retrievable unit of visual memory: one fact
// derived from a scene record. Fragments are created in bulk at storage
// time, never mutated, and removed only by Clear.
type Fragment struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
}

// Fragment type tags. The type tag plus the parent memory_id is the sole
// addressing scheme for filtering and debugging.
const (
	TypeScene         = "scene"
	TypeDescription   = "description"
	TypeObject        = "object"
	TypeObstacle      = "obstacle"
	TypeLandmark      = "landmark"
	TypeSafetyNote    = "safety_note"
	TypeNavigationTip = "navigation_tip"
)

// Metadata keys present on every fragment.
const (
	MetaType      = "type"
	MetaMemoryID  = "memory_id"
	MetaTimestamp = "timestamp"
)

// Type returns the fragment's type tag.
func (f Fragment) Type() string {
	return f.Metadata[MetaType]
}

// MemoryID returns the parent record's identifier.
func (f Fragment) MemoryID() string {
	return f.Metadata[MetaMemoryID]
}
