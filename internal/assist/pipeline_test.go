package assist

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iris/internal/llm"
	"iris/internal/memory"
	"iris/internal/scene"
)

const parkSceneJSON = `{
  "summary": "A park lawn with a red ball",
  "objects": [
    {"name": "red ball", "position": "center of the lawn", "confidence": 0.9},
    {"name": "oak tree", "position": "behind the lawn"}
  ],
  "scene_context": {"setting": "outdoor", "lighting": "daylight"},
  "accessibility_info": {"obstacles": [], "landmarks": ["oak tree"], "safety_notes": [], "navigation_tips": []},
  "detailed_description": "A sunny park lawn with a round red ball near the center.",
  "spatial_layout": "ball center, tree behind",
  "answer": "",
  "confidence": 0.9
}`

const officeSceneJSON = `{
  "summary": "An office desk with a laptop",
  "objects": [{"name": "laptop", "position": "on the desk"}],
  "scene_context": {"setting": "indoor", "lighting": "artificial"},
  "accessibility_info": {"obstacles": [], "landmarks": [], "safety_notes": [], "navigation_tips": []},
  "detailed_description": "A desk with an open laptop.",
  "spatial_layout": "desk center",
  "answer": "",
  "confidence": 0.9
}`

// stubEmbedder gives "ball" queries an affinity for ball fragments.
type stubEmbedder struct{}

func (stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	lower := strings.ToLower(text)
	vocab := []string{"ball", "laptop", "tree", "round"}
	vec := make([]float32, len(vocab)+1)
	for i, word := range vocab {
		vec[i] = float32(strings.Count(lower, word))
	}
	vec[len(vocab)] = 0.1
	return vec, nil
}

func newPipeline(t *testing.T, vision *llm.Mock, text *llm.Mock) (*Pipeline, memory.Store) {
	t.Helper()
	store, err := memory.NewStore(memory.StoreConfig{PersistPath: t.TempDir(), Collection: "t"}, stubEmbedder{}, nil)
	require.NoError(t, err)

	analyzer := scene.NewAnalyzer(vision, nil)
	composer := NewComposer(store, 4, nil)
	generator := NewGenerator(text, nil)
	return NewPipeline(analyzer, store, composer, generator, nil), store
}

func TestAskBlindNarratesAndStores(t *testing.T) {
	vision := llm.NewMock(parkSceneJSON)
	text := llm.NewMock("Red ball at the center of the lawn, oak tree behind it.")
	pipeline, store := newPipeline(t, vision, text)

	result, err := pipeline.Ask(context.Background(), AskRequest{
		Image:    []byte("image-a"),
		MimeType: "image/jpeg",
		Mode:     ModeBlind,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, result.Description)
	assert.Contains(t, result.Description, "ball", "narration references an analyzed object")
	assert.NotContains(t, result.Description, FallbackSentence)
	assert.NotEmpty(t, result.MemoryID)
	assert.False(t, result.Degraded)
	assert.InDelta(t, 0.9, result.Confidence, 0.001)

	// 2 base + 2 objects + 1 landmark
	assert.Equal(t, 5, store.Count(), "fragments persisted for later recall")
}

func TestAskNormalRecallsEarlierScene(t *testing.T) {
	vision := llm.NewMock(parkSceneJSON, officeSceneJSON)
	text := llm.NewMock(
		"Red ball at the center of the lawn.",
		"You saw a round red ball earlier, on the park lawn.",
	)
	pipeline, _ := newPipeline(t, vision, text)
	ctx := context.Background()

	// Upload A: park scene, blind narration.
	_, err := pipeline.Ask(ctx, AskRequest{Image: []byte("image-a"), MimeType: "image/jpeg", Mode: ModeBlind})
	require.NoError(t, err)

	// Upload B: office scene, normal-mode question about the past.
	result, err := pipeline.Ask(ctx, AskRequest{
		Image:    []byte("image-b"),
		MimeType: "image/jpeg",
		Question: "what did I see before that was round?",
		Mode:     ModeNormal,
	})
	require.NoError(t, err)
	assert.Contains(t, result.Description, "ball")

	// The generator must have seen the stored ball fragment as history.
	require.Len(t, text.TextCalls, 2)
	assert.Contains(t, text.TextCalls[1].User, "red ball",
		"retrieved context must surface the earlier scene's fragment")
}

func TestAskSurvivesStoreFailure(t *testing.T) {
	vision := llm.NewMock(parkSceneJSON)
	text := llm.NewMock("Red ball on the lawn.")

	analyzer := scene.NewAnalyzer(vision, nil)
	store := &fakeStore{}
	composer := NewComposer(store, 4, nil)
	generator := NewGenerator(text, nil)
	pipeline := NewPipeline(analyzer, failingStore{}, composer, generator, nil)

	result, err := pipeline.Ask(context.Background(), AskRequest{
		Image:    []byte("image-a"),
		MimeType: "image/jpeg",
		Mode:     ModeBlind,
	})
	require.NoError(t, err, "store failures must not fail the request")
	assert.NotEmpty(t, result.Description)
}

func TestAskPropagatesVisionFailure(t *testing.T) {
	vision := llm.NewMock().Fail(errors.New("provider down"))
	text := llm.NewMock("unused")
	pipeline, _ := newPipeline(t, vision, text)

	_, err := pipeline.Ask(context.Background(), AskRequest{Image: []byte("x"), MimeType: "image/jpeg"})
	require.Error(t, err)
}

func TestAskDegradedRecordStillAnswers(t *testing.T) {
	vision := llm.NewMock("free text, not JSON at all")
	text := llm.NewMock("I see a scene; details are in the description.")
	pipeline, store := newPipeline(t, vision, text)

	result, err := pipeline.Ask(context.Background(), AskRequest{
		Image:    []byte("image-a"),
		MimeType: "image/jpeg",
		Mode:     ModeBlind,
	})
	require.NoError(t, err)
	assert.True(t, result.Degraded)
	assert.NotEmpty(t, result.Description)
	assert.Greater(t, store.Count(), 0, "even degraded records are remembered")
}

// failingStore rejects every write.
type failingStore struct{}

func (failingStore) Add(context.Context, []memory.Fragment) error {
	return errors.New("disk full")
}

func (failingStore) Search(context.Context, string, int) ([]memory.Fragment, error) {
	return nil, errors.New("disk full")
}

func (failingStore) Clear(context.Context) error { return errors.New("disk full") }
func (failingStore) Count() int                  { return 0 }
func (failingStore) Close() error                { return nil }
