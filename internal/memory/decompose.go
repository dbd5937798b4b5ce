package memory

import (
	"fmt"
	"time"

	"iris/internal/scene"
)

// Decompose converts one scene record into its retrievable fragments. Pure
// function, fixed output order: scene, description, one per object, then
// obstacles, landmarks, safety notes, navigation tips. Empty categories
// contribute nothing.
func Decompose(rec scene.Record) []Fragment {
	ts := rec.Timestamp.UTC().Format(time.RFC3339)

	meta := func(fragType string) map[string]string {
		return map[string]string{
			MetaType:      fragType,
			MetaMemoryID:  rec.MemoryID,
			MetaTimestamp: ts,
		}
	}

	fragments := make([]Fragment, 0, 2+len(rec.Objects))

	fragments = append(fragments, Fragment{
		Content:  fmt.Sprintf("Scene: %s. Layout: %s", rec.Summary, rec.SpatialLayout),
		Metadata: meta(TypeScene),
	})
	fragments = append(fragments, Fragment{
		Content:  rec.DetailedDescription,
		Metadata: meta(TypeDescription),
	})

	for _, obj := range rec.Objects {
		confidence := obj.Confidence
		if confidence == 0 {
			confidence = rec.Confidence
		}
		content := fmt.Sprintf("Object: %s at %s", obj.Name, obj.Position)
		if obj.Size != "" {
			content += fmt.Sprintf(", size %s", obj.Size)
		}
		m := meta(TypeObject)
		m["name"] = obj.Name
		m["confidence"] = fmt.Sprintf("%.2f", confidence)
		fragments = append(fragments, Fragment{Content: content, Metadata: m})
	}

	for _, obstacle := range rec.AccessibilityInfo.Obstacles {
		fragments = append(fragments, Fragment{
			Content:  "Obstacle: " + obstacle,
			Metadata: meta(TypeObstacle),
		})
	}
	for _, landmark := range rec.AccessibilityInfo.Landmarks {
		fragments = append(fragments, Fragment{
			Content:  "Landmark: " + landmark,
			Metadata: meta(TypeLandmark),
		})
	}
	for _, note := range rec.AccessibilityInfo.SafetyNotes {
		fragments = append(fragments, Fragment{
			Content:  "Safety: " + note,
			Metadata: meta(TypeSafetyNote),
		})
	}
	for _, tip := range rec.AccessibilityInfo.NavigationTips {
		fragments = append(fragments, Fragment{
			Content:  "Navigation: " + tip,
			Metadata: meta(TypeNavigationTip),
		})
	}

	return fragments
}
