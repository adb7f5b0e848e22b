package conversation

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"legal-research-be/pkg/llm"
	"legal-research-be/pkg/retrieval"
)

// TurnResult carries everything a completed turn produced.
type TurnResult struct {
	Answer        string
	Sources       []retrieval.ScoredCandidate
	Status        retrieval.Status
	MemoryUpdated bool
}

// Manager drives one turn end to end: acquire the conversation, run the
// retrieval pipeline, swap the active context, generate the answer, record
// the exchange. Turns for the same conversation serialize on the
// conversation lock; different conversations run concurrently.
type Manager struct {
	store    Store
	pipeline *retrieval.Pipeline
	provider llm.Provider
	budget   int
	logger   *zap.Logger
}

func NewManager(store Store, pipeline *retrieval.Pipeline, provider llm.Provider, logger *zap.Logger) *Manager {
	return &Manager{
		store:    store,
		pipeline: pipeline,
		provider: provider,
		budget:   DefaultContextBudget,
		logger:   logger,
	}
}

// WithContextBudget overrides the prompt context budget in characters.
func (m *Manager) WithContextBudget(budget int) *Manager {
	if budget > 0 {
		m.budget = budget
	}
	return m
}

// RunTurn executes a blocking turn and returns the full answer.
func (m *Manager) RunTurn(ctx context.Context, conv *Conversation, query string) (*TurnResult, error) {
	return m.runTurn(ctx, conv, query, nil)
}

// RunTurnStream executes a turn, delivering answer chunks through onChunk
// as they arrive. If ctx is cancelled mid-stream the turn still completes:
// whatever was generated so far becomes the turn's answer, and an empty
// partial answer simply leaves dialogue memory unchanged.
func (m *Manager) RunTurnStream(ctx context.Context, conv *Conversation, query string, onChunk func(string)) (*TurnResult, error) {
	return m.runTurn(ctx, conv, query, onChunk)
}

func (m *Manager) runTurn(ctx context.Context, conv *Conversation, query string, onChunk func(string)) (*TurnResult, error) {
	conv.BeginTurn()

	result := &TurnResult{}
	answer := ""
	failed := false
	defer func() {
		if failed {
			conv.ClearContext()
		}
		result.MemoryUpdated = conv.FinishTurn(query, answer)
		m.store.Save(conv)
	}()

	retrievalQuery := conv.RetrievalQuery(query)
	scope := retrieval.Scope{UserID: conv.UserID, FirmID: conv.FirmID}

	pipelineResult, err := m.pipeline.Run(ctx, retrievalQuery, scope, nil)
	if err != nil {
		failed = true
		m.logger.Error("turn retrieval failed",
			zap.String("conversation_id", conv.ID),
			zap.Error(err))
		return nil, err
	}

	// Previous turn's context is discarded here regardless of overlap.
	conv.InstallContext(pipelineResult.Results)
	result.Sources = pipelineResult.Results
	result.Status = pipelineResult.Status

	answer, err = m.generate(ctx, conv, query, pipelineResult.Results, onChunk)
	if err != nil && answer == "" {
		m.logger.Error("turn generation failed",
			zap.String("conversation_id", conv.ID),
			zap.Error(err))
		return nil, err
	}
	if err != nil {
		// Partial answer from a cancelled stream is kept; the turn
		// completes normally with what was generated.
		m.logger.Warn("turn generation interrupted, keeping partial answer",
			zap.String("conversation_id", conv.ID),
			zap.Int("answer_length", len(answer)),
			zap.Error(err))
	}

	result.Answer = answer
	return result, nil
}

func (m *Manager) generate(ctx context.Context, conv *Conversation, query string, sources []retrieval.ScoredCandidate, onChunk func(string)) (string, error) {
	messages := NewGroundedBuilder(query, conv.History(), sources).
		WithBudget(m.budget).
		Messages()

	if onChunk == nil {
		return m.provider.Chat(ctx, messages)
	}

	stream, err := m.provider.ChatStream(ctx, messages)
	if err != nil {
		return "", err
	}

	var answer strings.Builder
	for chunk := range stream {
		if chunk.Err != nil {
			return answer.String(), chunk.Err
		}
		if chunk.Content != "" {
			answer.WriteString(chunk.Content)
			onChunk(chunk.Content)
		}
		if chunk.Done {
			break
		}
	}
	return answer.String(), nil
}
