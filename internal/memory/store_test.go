package memory

import (
	"context"
	"strings"
	"testing"
	"time"
)

// stubEmbedder maps texts onto a small keyword space so similarity ranking
// is deterministic without a live embeddings API.
type stubEmbedder struct{}

var stubVocabulary = []string{"ball", "bench", "fountain", "kitchen", "path", "round"}

func (stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	lower := strings.ToLower(text)
	vec := make([]float32, len(stubVocabulary)+1)
	for i, word := range stubVocabulary {
		vec[i] = float32(strings.Count(lower, word))
	}
	vec[len(stubVocabulary)] = 0.1 // avoid zero vectors
	return vec, nil
}

func newTestStore(t *testing.T) Store {
	t.Helper()
	store, err := NewStore(StoreConfig{PersistPath: t.TempDir(), Collection: "test"}, stubEmbedder{}, nil)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func frag(content, fragType, memoryID string) Fragment {
	return Fragment{
		Content: content,
		Metadata: map[string]string{
			MetaType:     fragType,
			MetaMemoryID: memoryID,
		},
	}
}

func TestAddThenListMembership(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	added := []Fragment{
		frag("Object: ball on the grass", TypeObject, "m1"),
		frag("Landmark: fountain ahead", TypeLandmark, "m1"),
		frag("Obstacle: bench on the path", TypeObstacle, "m1"),
	}
	if err := store.Add(ctx, added); err != nil {
		t.Fatalf("add: %v", err)
	}

	listed, err := store.Search(ctx, "", 10)
	if err != nil {
		t.Fatalf("empty-query search: %v", err)
	}
	if len(listed) != len(added) {
		t.Fatalf("expected %d fragments, got %d", len(added), len(listed))
	}

	contents := make(map[string]bool)
	for _, f := range listed {
		contents[f.Content] = true
	}
	for _, f := range added {
		if !contents[f.Content] {
			t.Fatalf("missing fragment %q in listing", f.Content)
		}
	}
}

func TestSearchRanksBySimilarity(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	err := store.Add(ctx, []Fragment{
		frag("Object: bench at the path edge", TypeObject, "m1"),
		frag("Object: round ball on the grass", TypeObject, "m1"),
		frag("Scene: a kitchen with a table", TypeScene, "m2"),
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	results, err := store.Search(ctx, "round ball", 2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected results")
	}
	if !strings.Contains(results[0].Content, "ball") {
		t.Fatalf("most similar fragment should mention the ball, got %q", results[0].Content)
	}
}

func TestSearchClampsKToCount(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if err := store.Add(ctx, []Fragment{frag("Object: ball", TypeObject, "m1")}); err != nil {
		t.Fatalf("add: %v", err)
	}

	results, err := store.Search(ctx, "ball", 50)
	if err != nil {
		t.Fatalf("search with oversized k: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
}

func TestSearchEmptyStore(t *testing.T) {
	store := newTestStore(t)

	results, err := store.Search(context.Background(), "anything", 5)
	if err != nil {
		t.Fatalf("search on empty store: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results, got %d", len(results))
	}
}

func TestClearThenSearchEmpty(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if err := store.Add(ctx, Decompose(sampleRecord())); err != nil {
		t.Fatalf("add: %v", err)
	}
	if store.Count() == 0 {
		t.Fatal("expected stored fragments before clear")
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}

	for _, query := range []string{"", "ball", "bench"} {
		results, err := store.Search(ctx, query, 5)
		if err != nil {
			t.Fatalf("search %q after clear: %v", query, err)
		}
		if len(results) != 0 {
			t.Fatalf("search %q after clear returned %d fragments", query, len(results))
		}
	}

	if store.Count() != 0 {
		t.Fatalf("count after clear: %d", store.Count())
	}
}

func TestClearIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear on empty store: %v", err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("second clear: %v", err)
	}
}

func TestConcurrentAddAndSearch(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	done := make(chan error, 2)
	go func() {
		for i := 0; i < 20; i++ {
			if err := store.Add(ctx, []Fragment{frag("Object: ball", TypeObject, "m1")}); err != nil {
				done <- err
				return
			}
		}
		done <- nil
	}()
	go func() {
		for i := 0; i < 20; i++ {
			if _, err := store.Search(ctx, "ball", 3); err != nil {
				done <- err
				return
			}
		}
		done <- nil
	}()

	for i := 0; i < 2; i++ {
		if err := <-done; err != nil {
			t.Fatalf("concurrent op failed: %v", err)
		}
	}
}

func TestListingSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	config := StoreConfig{PersistPath: dir, Collection: "test"}

	store, err := NewStore(config, stubEmbedder{}, nil)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	err = store.Add(ctx, []Fragment{
		frag("Object: ball on the grass", TypeObject, "m1"),
		frag("Landmark: fountain ahead", TypeLandmark, "m1"),
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewStore(config, stubEmbedder{}, nil)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	if reopened.Count() != 2 {
		t.Fatalf("count after restart: %d", reopened.Count())
	}

	listed, err := reopened.Search(ctx, "", 10)
	if err != nil {
		t.Fatalf("listing after restart: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("store holds %d fragments after restart but admin listing returned %d", reopened.Count(), len(listed))
	}
	if listed[0].Content != "Object: ball on the grass" {
		t.Fatalf("listing lost insertion order, got %q first", listed[0].Content)
	}
	if listed[1].MemoryID() != "m1" {
		t.Fatalf("listing lost metadata, memory_id %q", listed[1].MemoryID())
	}

	// New fragments keep appending without ID collisions.
	if err := reopened.Add(ctx, []Fragment{frag("Obstacle: bench on the path", TypeObstacle, "m2")}); err != nil {
		t.Fatalf("add after restart: %v", err)
	}
	listed, err = reopened.Search(ctx, "", 10)
	if err != nil {
		t.Fatalf("listing after second add: %v", err)
	}
	if len(listed) != 3 {
		t.Fatalf("expected 3 fragments after restart and add, got %d", len(listed))
	}
	if listed[2].Content != "Obstacle: bench on the path" {
		t.Fatalf("new fragment not appended last, got %q", listed[2].Content)
	}
}

func TestClearedStoreStaysEmptyAfterRestart(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	config := StoreConfig{PersistPath: dir, Collection: "test"}

	store, err := NewStore(config, stubEmbedder{}, nil)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.Add(ctx, []Fragment{frag("Object: ball", TypeObject, "m1")}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewStore(config, stubEmbedder{}, nil)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	listed, err := reopened.Search(ctx, "", 10)
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	if len(listed) != 0 || reopened.Count() != 0 {
		t.Fatalf("cleared store resurfaced %d listed / %d counted fragments", len(listed), reopened.Count())
	}
}

// gatedEmbedder blocks every Embed call until released, standing in for a
// slow embeddings provider.
type gatedEmbedder struct {
	entered chan struct{}
	release chan struct{}
}

func (g gatedEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	g.entered <- struct{}{}
	<-g.release
	return []float32{1, 0.1}, nil
}

func TestSlowAddDoesNotBlockReaders(t *testing.T) {
	ctx := context.Background()
	embedder := gatedEmbedder{entered: make(chan struct{}, 1), release: make(chan struct{})}
	store, err := NewStore(StoreConfig{Collection: "test"}, embedder, nil)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	addDone := make(chan error, 1)
	go func() {
		addDone <- store.Add(ctx, []Fragment{frag("Object: ball", TypeObject, "m1")})
	}()
	<-embedder.entered // Add is now inside the embedding call

	readsDone := make(chan struct{})
	go func() {
		store.Count()
		if _, err := store.Search(ctx, "", 5); err != nil {
			t.Errorf("listing during add: %v", err)
		}
		close(readsDone)
	}()
	select {
	case <-readsDone:
	case <-time.After(2 * time.Second):
		t.Fatal("Count and listing blocked behind an in-flight Add")
	}

	close(embedder.release)
	if err := <-addDone; err != nil {
		t.Fatalf("add: %v", err)
	}
	if store.Count() != 1 {
		t.Fatalf("count after add: %d", store.Count())
	}
}

func TestClearDuringAddDropsBatch(t *testing.T) {
	ctx := context.Background()
	embedder := gatedEmbedder{entered: make(chan struct{}, 1), release: make(chan struct{})}
	store, err := NewStore(StoreConfig{Collection: "test"}, embedder, nil)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	addDone := make(chan error, 1)
	go func() {
		addDone <- store.Add(ctx, []Fragment{frag("Object: ball", TypeObject, "m1")})
	}()
	<-embedder.entered

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear during in-flight add: %v", err)
	}

	close(embedder.release)
	if err := <-addDone; err != nil {
		t.Fatalf("add resumed after clear: %v", err)
	}

	if store.Count() != 0 {
		t.Fatalf("cleared store counts %d fragments", store.Count())
	}
	listed, err := store.Search(ctx, "", 5)
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	if len(listed) != 0 {
		t.Fatalf("cleared store lists %d fragments", len(listed))
	}
}
