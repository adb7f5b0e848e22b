package conversation

import (
	"fmt"
	"strings"
	"testing"

	"legal-research-be/pkg/retrieval"

	"github.com/stretchr/testify/assert"
)

func scored(id string, collection retrieval.Collection) retrieval.ScoredCandidate {
	return retrieval.ScoredCandidate{
		Candidate: retrieval.Candidate{
			Doc: retrieval.DocumentRef{ID: id, Collection: collection, Title: id, Text: "text " + id},
		},
	}
}

func TestContextSwapReplacesWholly(t *testing.T) {
	conv := New("c1", "u1", "f1", 5)

	conv.BeginTurn()
	conv.InstallContext([]retrieval.ScoredCandidate{
		scored("first-a", retrieval.CollectionStatute),
		scored("first-b", retrieval.CollectionCaseLaw),
	})
	conv.FinishTurn("q1", "a1")

	conv.BeginTurn()
	conv.InstallContext([]retrieval.ScoredCandidate{
		scored("second-a", retrieval.CollectionStatute),
	})

	active := conv.ActiveContext()
	assert.Len(t, active, 1, "active context must be wholly replaced, never merged")
	assert.Equal(t, "second-a", active[0].Doc.ID)

	conv.FinishTurn("q2", "a2")
}

func TestInstallEmptyContextIsValid(t *testing.T) {
	conv := New("c1", "u1", "f1", 5)

	conv.BeginTurn()
	conv.InstallContext([]retrieval.ScoredCandidate{scored("a", retrieval.CollectionStatute)})
	conv.FinishTurn("q1", "a1")

	conv.BeginTurn()
	conv.InstallContext(nil)
	assert.Empty(t, conv.ActiveContext(), "empty retrieval still replaces the old context")
	conv.FinishTurn("q2", "a2")
}

func TestMemoryBound(t *testing.T) {
	conv := New("c1", "u1", "f1", 5)

	for i := 1; i <= 8; i++ {
		conv.BeginTurn()
		conv.InstallContext(nil)
		conv.FinishTurn(fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
	}

	conv.BeginTurn()
	history := conv.History()
	conv.FinishTurn("", "")

	assert.Len(t, history, 5)
	assert.Equal(t, "q4", history[0].Query, "oldest surviving turn")
	assert.Equal(t, "q8", history[4].Query, "newest turn")
}

func TestEmptyAnswerLeavesMemoryUntouched(t *testing.T) {
	conv := New("c1", "u1", "f1", 5)

	conv.BeginTurn()
	conv.InstallContext(nil)
	updated := conv.FinishTurn("q1", "a1")
	assert.True(t, updated)

	conv.BeginTurn()
	conv.InstallContext(nil)
	updated = conv.FinishTurn("q2", "   ")
	assert.False(t, updated, "whitespace-only answer must not enter memory")

	conv.BeginTurn()
	history := conv.History()
	conv.FinishTurn("", "")

	assert.Len(t, history, 1)
	assert.Equal(t, "q1", history[0].Query)
}

func TestStateTransitions(t *testing.T) {
	conv := New("c1", "u1", "f1", 5)
	assert.Equal(t, StateIdle, conv.State())

	conv.BeginTurn()
	assert.Equal(t, conv.state, StateRetrieving)

	conv.InstallContext(nil)
	assert.Equal(t, conv.state, StateActive)

	conv.FinishTurn("q", "a")
	assert.Equal(t, StateIdle, conv.State())
}

func TestSeedMemoryAppliesBound(t *testing.T) {
	conv := New("c1", "u1", "f1", 3)

	var turns []Turn
	for i := 1; i <= 6; i++ {
		turns = append(turns, Turn{Query: fmt.Sprintf("q%d", i), Answer: fmt.Sprintf("a%d", i)})
	}
	conv.SeedMemory(turns)

	conv.BeginTurn()
	history := conv.History()
	conv.FinishTurn("", "")

	assert.Len(t, history, 3)
	assert.Equal(t, "q4", history[0].Query)
}

func TestRetrievalQuery(t *testing.T) {
	conv := New("c1", "u1", "f1", 5)

	conv.BeginTurn()
	assert.Equal(t, "fresh question", conv.RetrievalQuery("fresh question"),
		"no memory: query passes through unchanged")
	conv.FinishTurn("q1", "a1")

	conv.BeginTurn()
	conv.FinishTurn("q2", "a2")
	conv.BeginTurn()
	conv.FinishTurn("q3", "a3")

	conv.BeginTurn()
	combined := conv.RetrievalQuery("what about that article?")
	conv.FinishTurn("", "")

	lines := strings.Split(combined, "\n")
	assert.Equal(t, []string{"q2", "q3", "what about that article?"}, lines,
		"last two prior queries prefix the new one")
}

func TestActiveContextIsACopy(t *testing.T) {
	conv := New("c1", "u1", "f1", 5)

	conv.BeginTurn()
	conv.InstallContext([]retrieval.ScoredCandidate{scored("a", retrieval.CollectionStatute)})

	got := conv.ActiveContext()
	got[0].Doc.ID = "mutated"

	assert.Equal(t, "a", conv.ActiveContext()[0].Doc.ID, "callers must not alias internal state")
	conv.FinishTurn("q", "a")
}
