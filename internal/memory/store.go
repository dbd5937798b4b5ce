package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"iris/internal/logging"
)

// StoreConfig holds vector store configuration.
type StoreConfig struct {
	PersistPath string // Directory to persist data; empty means in-memory
	Collection  string // Collection name, default "visual-memory"
}

// Store persists memory fragments and retrieves them by semantic
// similarity. Implementations must tolerate concurrent Add and Search
// calls; a Search overlapping an in-flight Add may or may not observe the
// new fragments, and a Clear overlapping an in-flight Add may drop that
// batch.
type Store interface {
	// Add embeds and appends fragments in their given order.
	Add(ctx context.Context, fragments []Fragment) error

	// Search returns up to k fragments ordered by descending similarity.
	// An empty query is the administrative listing path: it returns up to
	// k fragments without semantic ranking.
	Search(ctx context.Context, query string, k int) ([]Fragment, error)

	// Clear irreversibly deletes all fragments. Idempotent.
	Clear(ctx context.Context) error

	// Count returns the number of stored fragments.
	Count() int

	// Close flushes and releases the store.
	Close() error
}

// listingFileName is the sidecar index next to the chromem data. chromem
// has no API to enumerate a reloaded collection's documents, so the
// insertion-ordered listing must persist on its own.
const listingFileName = "listing.json"

type listingEntry struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
}

type listingIndex struct {
	Seq     int            `json:"seq"`
	Entries []listingEntry `json:"entries"`
}

// chromemStore implements Store on an embedded chromem-go collection plus
// an insertion-ordered index serving the admin listing path (chromem can
// only rank against a non-empty query). With persistence enabled, the
// index is written alongside the chromem data and reloaded on open.
type chromemStore struct {
	db        *chromem.DB
	embedder  Embedder
	config    StoreConfig
	logger    logging.Logger
	indexPath string

	mu         sync.RWMutex
	collection *chromem.Collection
	order      []string
	byID       map[string]Fragment
	seq        int
	gen        int
}

// NewStore opens (or creates) the fragment store.
func NewStore(config StoreConfig, embedder Embedder, logger logging.Logger) (Store, error) {
	if config.Collection == "" {
		config.Collection = "visual-memory"
	}

	var db *chromem.DB
	var err error
	indexPath := ""
	if config.PersistPath != "" {
		persistFile := filepath.Join(config.PersistPath, "chromem.gob")
		db, err = chromem.NewPersistentDB(persistFile, false)
		if err != nil {
			return nil, fmt.Errorf("create persistent DB: %w", err)
		}
		indexPath = filepath.Join(config.PersistPath, listingFileName)
	} else {
		db = chromem.NewDB()
	}

	s := &chromemStore{
		db:        db,
		embedder:  embedder,
		config:    config,
		logger:    logging.OrNop(logger),
		indexPath: indexPath,
		byID:      make(map[string]Fragment),
	}
	if s.collection, err = s.openCollection(); err != nil {
		return nil, err
	}
	if err := s.loadIndex(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *chromemStore) openCollection() (*chromem.Collection, error) {
	embeddingFunc := func(ctx context.Context, text string) ([]float32, error) {
		return s.embedder.Embed(ctx, text)
	}
	collection, err := s.db.GetOrCreateCollection(s.config.Collection, nil, embeddingFunc)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	return collection, nil
}

// loadIndex restores the insertion-ordered listing from a previous run.
func (s *chromemStore) loadIndex() error {
	if s.indexPath == "" {
		return nil
	}

	data, err := os.ReadFile(s.indexPath)
	if os.IsNotExist(err) {
		if count := s.collection.Count(); count > 0 {
			s.logger.Warn("Collection holds %d fragments but no listing index exists; admin listing starts empty", count)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("read listing index: %w", err)
	}

	var index listingIndex
	if err := json.Unmarshal(data, &index); err != nil {
		return fmt.Errorf("parse listing index: %w", err)
	}

	s.seq = index.Seq
	for _, entry := range index.Entries {
		s.order = append(s.order, entry.ID)
		s.byID[entry.ID] = Fragment{Content: entry.Content, Metadata: entry.Metadata}
	}
	if count := s.collection.Count(); count != len(s.order) {
		s.logger.Warn("Listing index holds %d fragments but collection holds %d", len(s.order), count)
	}
	return nil
}

// saveIndexLocked writes the listing index. Caller holds the write lock.
func (s *chromemStore) saveIndexLocked() error {
	if s.indexPath == "" {
		return nil
	}

	index := listingIndex{Seq: s.seq, Entries: make([]listingEntry, 0, len(s.order))}
	for _, id := range s.order {
		frag := s.byID[id]
		index.Entries = append(index.Entries, listingEntry{
			ID:       id,
			Content:  frag.Content,
			Metadata: frag.Metadata,
		})
	}
	data, err := json.Marshal(index)
	if err != nil {
		return fmt.Errorf("marshal listing index: %w", err)
	}
	if err := os.WriteFile(s.indexPath, data, 0o644); err != nil {
		return fmt.Errorf("write listing index: %w", err)
	}
	return nil
}

// Add embeds and stores fragments in insertion order. IDs are reserved
// under a short lock; the embedding round-trips run unlocked so slow
// provider calls never block Count, Search or Clear.
func (s *chromemStore) Add(ctx context.Context, fragments []Fragment) error {
	if len(fragments) == 0 {
		return nil
	}

	s.mu.Lock()
	collection := s.collection
	gen := s.gen
	ids := make([]string, len(fragments))
	for i, frag := range fragments {
		s.seq++
		ids[i] = fmt.Sprintf("%s-%s-%d", frag.MemoryID(), frag.Type(), s.seq)
	}
	s.mu.Unlock()

	for i, frag := range fragments {
		err := collection.AddDocument(ctx, chromem.Document{
			ID:       ids[i],
			Content:  frag.Content,
			Metadata: frag.Metadata,
		})
		if err != nil {
			return fmt.Errorf("add fragment %s: %w", ids[i], err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		// The store was cleared while this batch embedded; its documents
		// went to the dropped collection.
		s.logger.Warn("Dropped %d fragments added during a concurrent clear", len(fragments))
		return nil
	}
	for i, frag := range fragments {
		s.order = append(s.order, ids[i])
		s.byID[ids[i]] = frag
	}
	return s.saveIndexLocked()
}

// Search ranks fragments against the query. k is clamped to the collection
// size; an empty store yields an empty result, not an error.
func (s *chromemStore) Search(ctx context.Context, query string, k int) ([]Fragment, error) {
	if k <= 0 {
		k = 5
	}
	if query == "" {
		return s.list(k), nil
	}

	s.mu.RLock()
	collection := s.collection
	s.mu.RUnlock()

	count := collection.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	results, err := collection.Query(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query collection: %w", err)
	}

	fragments := make([]Fragment, 0, len(results))
	for _, r := range results {
		fragments = append(fragments, Fragment{
			Content:  r.Content,
			Metadata: r.Metadata,
		})
	}
	return fragments, nil
}

// list returns up to k fragments in insertion order.
func (s *chromemStore) list(k int) []Fragment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if k > len(s.order) {
		k = len(s.order)
	}
	fragments := make([]Fragment, 0, k)
	for _, id := range s.order[:k] {
		fragments = append(fragments, s.byID[id])
	}
	return fragments
}

// Clear drops the collection and recreates it empty.
func (s *chromemStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.DeleteCollection(s.config.Collection); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	collection, err := s.openCollection()
	if err != nil {
		return err
	}
	s.collection = collection
	s.order = nil
	s.byID = make(map[string]Fragment)
	s.gen++
	if err := s.saveIndexLocked(); err != nil {
		return err
	}
	s.logger.Info("Memory store cleared")
	return nil
}

// Count returns the number of stored fragments.
func (s *chromemStore) Count() int {
	s.mu.RLock()
	collection := s.collection
	s.mu.RUnlock()
	return collection.Count()
}

// Close is a no-op for chromem, which persists on every change.
func (s *chromemStore) Close() error {
	return nil
}
