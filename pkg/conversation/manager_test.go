package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"legal-research-be/pkg/embedding"
	"legal-research-be/pkg/llm"
	"legal-research-be/pkg/retrieval"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// --- fakes ---

type mapStore struct {
	mu    sync.Mutex
	convs map[string]*Conversation
	saves int
}

func newMapStore() *mapStore {
	return &mapStore{convs: map[string]*Conversation{}}
}

func (s *mapStore) GetOrCreate(id, userID, firmID string) (*Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conv, ok := s.convs[id]; ok {
		return conv, true
	}
	conv := New(id, userID, firmID, DefaultMemoryTurns)
	s.convs[id] = conv
	return conv, false
}

func (s *mapStore) Save(conv *Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.convs[conv.ID] = conv
	s.saves++
}

func (s *mapStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.convs, id)
}

type stubEmbedder struct{ err error }

func (s *stubEmbedder) Generate(ctx context.Context, text string, kind embedding.Kind) (*embedding.Pair, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &embedding.Pair{Dense: []float32{1, 0}, Sparse: map[uint32]float32{1: 1}}, nil
}

type stubIndex struct{ hits []retrieval.Hit }

func (s *stubIndex) SearchDense(ctx context.Context, c retrieval.Collection, d []float32, f *retrieval.Filter, limit int) ([]retrieval.Hit, error) {
	if c == retrieval.CollectionStatute {
		return s.hits, nil
	}
	return nil, nil
}

func (s *stubIndex) SearchSparse(ctx context.Context, c retrieval.Collection, sp map[uint32]float32, f *retrieval.Filter, limit int) ([]retrieval.Hit, error) {
	return nil, nil
}

type stubScorer struct{}

func (stubScorer) Score(ctx context.Context, query string, documents []string) ([]float64, error) {
	out := make([]float64, len(documents))
	for i := range out {
		out[i] = 0.5
	}
	return out, nil
}

type stubLLM struct {
	answer string
	chunks []llm.StreamChunk
	err    error
}

func (s *stubLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return s.answer, s.err
}

func (s *stubLLM) ChatStream(ctx context.Context, history []llm.Message, options ...llm.Option) (<-chan llm.StreamChunk, error) {
	if s.err != nil && len(s.chunks) == 0 {
		return nil, s.err
	}
	ch := make(chan llm.StreamChunk, len(s.chunks))
	for _, chunk := range s.chunks {
		ch <- chunk
	}
	close(ch)
	return ch, nil
}

func newTestManager(embedErr error, provider llm.Provider) (*Manager, *mapStore) {
	index := &stubIndex{hits: []retrieval.Hit{
		{Doc: retrieval.DocumentRef{ID: "s1", Collection: retrieval.CollectionStatute, Title: "Art. 1", Text: "statute text"}},
	}}
	lane := retrieval.NewHybridLane(&stubEmbedder{err: embedErr}, index, 60, nil)
	coord := retrieval.NewCoordinator(lane, retrieval.CoordinatorConfig{OverFetch: 10, LaneTimeout: time.Second}, nil)
	rr := retrieval.NewReranker(stubScorer{}, retrieval.DefaultRerankerConfig(), nil)
	pipeline := retrieval.NewPipeline(coord, rr, retrieval.DefaultPipelineConfig(), nil, nil)

	store := newMapStore()
	return NewManager(store, pipeline, provider, zap.NewNop()), store
}

// --- tests ---

func TestRunTurnBlocking(t *testing.T) {
	m, store := newTestManager(nil, &stubLLM{answer: "Grounded answer [S1]."})
	conv, existed := store.GetOrCreate("c1", "u1", "f1")
	assert.False(t, existed)

	result, err := m.RunTurn(context.Background(), conv, "what does art 1 say?")
	assert.NoError(t, err)
	assert.Equal(t, "Grounded answer [S1].", result.Answer)
	assert.True(t, result.MemoryUpdated)
	assert.Len(t, result.Sources, 1)
	assert.Equal(t, StateIdle, conv.State())
	assert.Equal(t, 1, store.saves)

	conv.BeginTurn()
	history := conv.History()
	conv.FinishTurn("", "")
	assert.Len(t, history, 1)
}

func TestRunTurnRetrievalFailure(t *testing.T) {
	m, _ := newTestManager(errors.New("embedder down"), &stubLLM{answer: "unused"})
	conv := New("c1", "u1", "f1", 5)

	_, err := m.RunTurn(context.Background(), conv, "q")
	assert.ErrorIs(t, err, retrieval.ErrEmbeddingUnavailable)
	assert.Equal(t, StateIdle, conv.State(), "a failed turn still releases the conversation")
	assert.Empty(t, conv.ActiveContext(), "failed turn clears the active context")

	conv.BeginTurn()
	history := conv.History()
	conv.FinishTurn("", "")
	assert.Empty(t, history, "failed turn leaves no memory")
}

func TestRunTurnStreamDeliversChunks(t *testing.T) {
	provider := &stubLLM{chunks: []llm.StreamChunk{
		{Content: "The statute "},
		{Content: "says X."},
		{Done: true},
	}}
	m, _ := newTestManager(nil, provider)
	conv := New("c1", "u1", "f1", 5)

	var streamed []string
	result, err := m.RunTurnStream(context.Background(), conv, "q", func(chunk string) {
		streamed = append(streamed, chunk)
	})

	assert.NoError(t, err)
	assert.Equal(t, "The statute says X.", result.Answer)
	assert.Equal(t, []string{"The statute ", "says X."}, streamed)
	assert.True(t, result.MemoryUpdated)
}

func TestRunTurnStreamKeepsPartialAnswer(t *testing.T) {
	provider := &stubLLM{chunks: []llm.StreamChunk{
		{Content: "Partial "},
		{Err: context.Canceled},
	}}
	m, _ := newTestManager(nil, provider)
	conv := New("c1", "u1", "f1", 5)

	result, err := m.RunTurnStream(context.Background(), conv, "q", func(string) {})

	assert.NoError(t, err, "a partial answer completes the turn normally")
	assert.Equal(t, "Partial ", result.Answer)
	assert.True(t, result.MemoryUpdated)
}

func TestRunTurnStreamNoOutputNoMemory(t *testing.T) {
	provider := &stubLLM{chunks: []llm.StreamChunk{
		{Err: errors.New("model crashed")},
	}}
	m, _ := newTestManager(nil, provider)
	conv := New("c1", "u1", "f1", 5)

	_, err := m.RunTurnStream(context.Background(), conv, "q", func(string) {})
	assert.Error(t, err)

	conv.BeginTurn()
	history := conv.History()
	conv.FinishTurn("", "")
	assert.Empty(t, history)
}
