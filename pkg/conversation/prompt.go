package conversation

import (
	"fmt"
	"strings"

	"legal-research-be/pkg/llm"
	"legal-research-be/pkg/retrieval"
)

// DefaultContextBudget caps the grounding section in characters. Whole
// documents are dropped at the boundary rather than truncated mid-text, so
// the model never sees a half citation.
const DefaultContextBudget = 24000

// GroundedBuilder assembles the per-turn prompt from the active context and
// bounded dialogue history. Documents are grouped per collection so the
// model can tell a statute from a precedent from the client's own file.
type GroundedBuilder struct {
	query   string
	history []Turn
	context []retrieval.ScoredCandidate
	budget  int
}

func NewGroundedBuilder(query string, history []Turn, context []retrieval.ScoredCandidate) *GroundedBuilder {
	return &GroundedBuilder{
		query:   query,
		history: history,
		context: context,
		budget:  DefaultContextBudget,
	}
}

// WithBudget overrides the grounding character budget.
func (b *GroundedBuilder) WithBudget(budget int) *GroundedBuilder {
	if budget > 0 {
		b.budget = budget
	}
	return b
}

// Messages produces the full message sequence for the LLM: system prompt
// with grounding, alternating dialogue memory, then the current question.
func (b *GroundedBuilder) Messages() []llm.Message {
	messages := make([]llm.Message, 0, len(b.history)*2+2)
	messages = append(messages, llm.Message{
		Role:    "system",
		Content: b.buildSystem(),
	})

	for _, turn := range b.history {
		messages = append(messages, llm.Message{Role: "user", Content: turn.Query})
		messages = append(messages, llm.Message{Role: "assistant", Content: turn.Answer})
	}

	messages = append(messages, llm.Message{Role: "user", Content: b.query})
	return messages
}

func (b *GroundedBuilder) buildSystem() string {
	var prompt strings.Builder

	b.writeRole(&prompt)
	b.writeGrounding(&prompt)
	b.writeGuidelines(&prompt)

	return prompt.String()
}

func (b *GroundedBuilder) writeRole(prompt *strings.Builder) {
	prompt.WriteString("<task>\n")
	prompt.WriteString("You are a legal research assistant. Answer the user's question using only the source material below.\n")
	prompt.WriteString("Cite every source you rely on by its bracketed marker, e.g. [S1] or [C2].\n")
	prompt.WriteString("</task>\n\n")
}

var collectionHeadings = []struct {
	collection retrieval.Collection
	heading    string
	marker     string
}{
	{retrieval.CollectionStatute, "Statutes and regulations", "S"},
	{retrieval.CollectionCaseLaw, "Court decisions", "C"},
	{retrieval.CollectionUserDocs, "Client documents", "D"},
}

func (b *GroundedBuilder) writeGrounding(prompt *strings.Builder) {
	if len(b.context) == 0 {
		prompt.WriteString("<source_material>\n")
		prompt.WriteString("No relevant source material was found for this question.\n")
		prompt.WriteString("</source_material>\n\n")
		return
	}

	prompt.WriteString("<source_material>\n")
	remaining := b.budget
	for _, group := range collectionHeadings {
		section := b.renderSection(group.collection, group.heading, group.marker, &remaining)
		prompt.WriteString(section)
	}
	prompt.WriteString("</source_material>\n\n")
}

func (b *GroundedBuilder) renderSection(collection retrieval.Collection, heading, marker string, remaining *int) string {
	var section strings.Builder
	index := 0
	for _, candidate := range b.context {
		if candidate.Doc.Collection != collection {
			continue
		}
		index++

		entry := b.renderDocument(candidate, marker, index)
		if len(entry) > *remaining {
			break
		}
		if section.Len() == 0 {
			section.WriteString(fmt.Sprintf("## %s\n", heading))
		}
		section.WriteString(entry)
		*remaining -= len(entry)
	}
	return section.String()
}

func (b *GroundedBuilder) renderDocument(candidate retrieval.ScoredCandidate, marker string, index int) string {
	var entry strings.Builder
	entry.WriteString(fmt.Sprintf("[%s%d] %s", marker, index, candidate.Doc.Title))
	if candidate.Doc.Year > 0 {
		entry.WriteString(fmt.Sprintf(" (%d)", candidate.Doc.Year))
	}
	if candidate.Doc.Authority != "" {
		entry.WriteString(fmt.Sprintf(" [%s]", candidate.Doc.Authority))
	}
	entry.WriteString("\n")
	entry.WriteString(candidate.Doc.Text)
	entry.WriteString("\n\n")
	return entry.String()
}

func (b *GroundedBuilder) writeGuidelines(prompt *strings.Builder) {
	prompt.WriteString("<guidelines>\n")
	prompt.WriteString("1. Base your answer strictly on the source material provided\n")
	prompt.WriteString("2. When sources conflict, prefer the more recent and more authoritative one, and say so\n")
	prompt.WriteString("3. If the material does not answer the question, say so honestly instead of guessing\n")
	prompt.WriteString("4. Keep legal citations precise: article, paragraph, case reference\n")
	prompt.WriteString("</guidelines>\n")
}
