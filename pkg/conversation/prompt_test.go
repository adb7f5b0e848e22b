package conversation

import (
	"strings"
	"testing"

	"legal-research-be/pkg/retrieval"

	"github.com/stretchr/testify/assert"
)

func groundedDoc(id string, collection retrieval.Collection, text string) retrieval.ScoredCandidate {
	return retrieval.ScoredCandidate{
		Candidate: retrieval.Candidate{
			Doc: retrieval.DocumentRef{
				ID:         id,
				Collection: collection,
				Title:      "Title " + id,
				Text:       text,
			},
		},
	}
}

func TestMessagesShape(t *testing.T) {
	history := []Turn{
		{Query: "q1", Answer: "a1"},
		{Query: "q2", Answer: "a2"},
	}
	ctx := []retrieval.ScoredCandidate{
		groundedDoc("s1", retrieval.CollectionStatute, "Art. 1"),
	}

	messages := NewGroundedBuilder("current question", history, ctx).Messages()

	assert.Len(t, messages, 6)
	assert.Equal(t, "system", messages[0].Role)
	assert.Equal(t, "user", messages[1].Role)
	assert.Equal(t, "q1", messages[1].Content)
	assert.Equal(t, "assistant", messages[2].Role)
	assert.Equal(t, "a1", messages[2].Content)
	assert.Equal(t, "current question", messages[5].Content)
}

func TestGroundingGroupsByCollection(t *testing.T) {
	ctx := []retrieval.ScoredCandidate{
		groundedDoc("c1", retrieval.CollectionCaseLaw, "decision one"),
		groundedDoc("s1", retrieval.CollectionStatute, "article one"),
		groundedDoc("d1", retrieval.CollectionUserDocs, "client memo"),
		groundedDoc("c2", retrieval.CollectionCaseLaw, "decision two"),
	}

	system := NewGroundedBuilder("q", nil, ctx).Messages()[0].Content

	assert.Contains(t, system, "## Statutes and regulations")
	assert.Contains(t, system, "## Court decisions")
	assert.Contains(t, system, "## Client documents")

	// Markers restart per section and follow section order.
	assert.Contains(t, system, "[S1] Title s1")
	assert.Contains(t, system, "[C1] Title c1")
	assert.Contains(t, system, "[C2] Title c2")
	assert.Contains(t, system, "[D1] Title d1")

	// Statutes are rendered before case law regardless of input order.
	assert.Less(t, strings.Index(system, "[S1]"), strings.Index(system, "[C1]"))
}

func TestGroundingAnnotatesYearAndAuthority(t *testing.T) {
	cand := groundedDoc("c1", retrieval.CollectionCaseLaw, "body")
	cand.Doc.Year = 2021
	cand.Doc.Authority = retrieval.AuthoritySupreme

	system := NewGroundedBuilder("q", nil, []retrieval.ScoredCandidate{cand}).Messages()[0].Content
	assert.Contains(t, system, "[C1] Title c1 (2021) [supreme]")
}

func TestGroundingBudgetDropsWholeDocuments(t *testing.T) {
	long := strings.Repeat("x", 400)
	ctx := []retrieval.ScoredCandidate{
		groundedDoc("s1", retrieval.CollectionStatute, long),
		groundedDoc("s2", retrieval.CollectionStatute, long),
		groundedDoc("s3", retrieval.CollectionStatute, long),
	}

	system := NewGroundedBuilder("q", nil, ctx).WithBudget(900).Messages()[0].Content

	assert.Contains(t, system, "Title s1")
	assert.Contains(t, system, "Title s2")
	assert.NotContains(t, system, "Title s3", "third document exceeds the budget and is dropped whole")
	// Never a truncated body: every included document carries its full text.
	assert.Equal(t, 2, strings.Count(system, long))
}

func TestGroundingEmptyContext(t *testing.T) {
	system := NewGroundedBuilder("q", nil, nil).Messages()[0].Content
	assert.Contains(t, system, "No relevant source material was found")
}
