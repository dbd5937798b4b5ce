package assist

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iris/internal/memory"
	"iris/internal/scene"
)

// fakeStore serves canned fragments and records queries.
type fakeStore struct {
	fragments []memory.Fragment
	queries   []string
	searchErr error
}

func (f *fakeStore) Add(_ context.Context, fragments []memory.Fragment) error {
	f.fragments = append(f.fragments, fragments...)
	return nil
}

func (f *fakeStore) Search(_ context.Context, query string, k int) ([]memory.Fragment, error) {
	f.queries = append(f.queries, query)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if k > len(f.fragments) {
		k = len(f.fragments)
	}
	return f.fragments[:k], nil
}

func (f *fakeStore) Clear(context.Context) error {
	f.fragments = nil
	return nil
}

func (f *fakeStore) Count() int { return len(f.fragments) }

func (f *fakeStore) Close() error { return nil }

func testRecord() scene.Record {
	return scene.Record{
		MemoryID: "mem-1",
		Summary:  "A hallway with a coat rack",
		Objects: []scene.Object{
			{Name: "coat rack", Position: "by the door"},
		},
		AccessibilityInfo: scene.AccessibilityInfo{
			Obstacles: []string{"shoes on the floor"},
		},
		DetailedDescription: "A narrow hallway...",
		SpatialLayout:       "door ahead, rack to the right",
		Confidence:          0.9,
		Timestamp:           time.Now(),
	}
}

func TestComposeBlindNeverRetrieves(t *testing.T) {
	store := &fakeStore{fragments: []memory.Fragment{
		{Content: "Object: ball", Metadata: map[string]string{memory.MetaType: memory.TypeObject}},
	}}
	composer := NewComposer(store, 3, nil)

	composed := composer.Compose(context.Background(), "where is the ball?", testRecord(), ModeBlind)

	assert.Empty(t, composed.Retrieved, "blind mode must never consult history")
	assert.Empty(t, store.queries, "blind mode must not hit the store")
	assert.Contains(t, composed.Current, "coat rack")
	assert.Contains(t, composed.Current, "shoes on the floor")
}

func TestComposeNormalRetrievesByQuestion(t *testing.T) {
	store := &fakeStore{fragments: []memory.Fragment{
		{Content: "Object: ball on the grass", Metadata: map[string]string{
			memory.MetaType:      memory.TypeObject,
			memory.MetaTimestamp: "2026-08-29T10:00:00Z",
		}},
		{Content: "Landmark: fountain", Metadata: map[string]string{memory.MetaType: memory.TypeLandmark}},
	}}
	composer := NewComposer(store, 3, nil)

	composed := composer.Compose(context.Background(), "what was round?", testRecord(), ModeNormal)

	require.Len(t, store.queries, 1)
	assert.Equal(t, "what was round?", store.queries[0])
	assert.Contains(t, composed.Retrieved, "ball on the grass")
	assert.Contains(t, composed.Retrieved, "observed 2026-08-29T10:00:00Z",
		"retrieved lines should carry observation time")
}

func TestComposeNormalEmptyQuestionSkipsRetrieval(t *testing.T) {
	store := &fakeStore{}
	composer := NewComposer(store, 3, nil)

	composed := composer.Compose(context.Background(), "  ", testRecord(), ModeNormal)

	assert.Empty(t, store.queries)
	assert.Empty(t, composed.Retrieved)
	assert.NotEmpty(t, composed.Current)
}

func TestComposeSwallowsStoreFailure(t *testing.T) {
	store := &fakeStore{searchErr: errors.New("index offline")}
	composer := NewComposer(store, 3, nil)

	composed := composer.Compose(context.Background(), "anything there?", testRecord(), ModeNormal)

	assert.Empty(t, composed.Retrieved)
	assert.NotEmpty(t, composed.Current, "current context survives a store failure")
}

func TestCurrentContextShapePerMode(t *testing.T) {
	rec := testRecord()

	blind := currentContext(rec, ModeBlind)
	assert.False(t, strings.Contains(blind, "{"), "blind context is plain narration input, not JSON")

	normal := currentContext(rec, ModeNormal)
	assert.Contains(t, normal, `"memory_id"`, "normal context is the full structured record")
}
