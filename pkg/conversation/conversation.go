package conversation

import (
	"strings"
	"sync"
	"time"

	"legal-research-be/pkg/retrieval"
)

// State of a conversation's turn machine.
const (
	StateIdle       = "IDLE"
	StateRetrieving = "RETRIEVING"
	StateActive     = "ACTIVE"
)

// DefaultMemoryTurns bounds dialogue memory. Older turns are dropped, not
// summarized, so memory stays O(1) regardless of conversation length.
const DefaultMemoryTurns = 5

// Turn is one completed exchange in dialogue memory. It holds only
// conversational text, never retrieved-document payloads.
type Turn struct {
	Query  string
	Answer string
	At     time.Time
}

// Conversation holds per-session state in two disjoint parts: bounded,
// append-only dialogue memory, and an active context that is wholly
// replaced every turn. The mutex enforces the single-writer-per-
// conversation discipline: a turn holds it from BeginTurn until FinishTurn,
// so a second turn for the same conversation cannot start its pipeline
// before the prior turn's context is installed. Concurrent conversations
// are fully independent.
type Conversation struct {
	ID     string
	UserID string
	FirmID string

	mu       sync.Mutex
	state    string
	memory   []Turn
	active   []retrieval.ScoredCandidate
	maxTurns int
}

func New(id, userID, firmID string, maxTurns int) *Conversation {
	if maxTurns <= 0 {
		maxTurns = DefaultMemoryTurns
	}
	return &Conversation{
		ID:       id,
		UserID:   userID,
		FirmID:   firmID,
		state:    StateIdle,
		maxTurns: maxTurns,
	}
}

// BeginTurn acquires the conversation for one turn and moves it to
// RETRIEVING. It blocks while another turn is in flight.
func (c *Conversation) BeginTurn() {
	c.mu.Lock()
	c.state = StateRetrieving
}

// InstallContext unconditionally discards the previous turn's active
// context and installs the new result set. Active context never merges
// across turns. Installing an empty set is valid.
func (c *Conversation) InstallContext(results []retrieval.ScoredCandidate) {
	c.active = make([]retrieval.ScoredCandidate, len(results))
	copy(c.active, results)
	c.state = StateActive
}

// ClearContext drops the active context without installing a replacement,
// used when a turn fails before retrieval completes.
func (c *Conversation) ClearContext() {
	c.active = nil
}

// FinishTurn records the exchange and releases the conversation. An empty
// answer (e.g. the stream was cancelled before any output) leaves dialogue
// memory untouched; the turn is still completed and the state returns to
// IDLE. Returns whether memory was updated.
func (c *Conversation) FinishTurn(query, answer string) bool {
	defer c.mu.Unlock()

	c.state = StateIdle
	if strings.TrimSpace(answer) == "" {
		return false
	}

	c.memory = append(c.memory, Turn{
		Query:  query,
		Answer: answer,
		At:     time.Now(),
	})
	if len(c.memory) > c.maxTurns {
		c.memory = c.memory[len(c.memory)-c.maxTurns:]
	}
	return true
}

// History returns a copy of dialogue memory. Only valid while the caller
// holds the turn (between BeginTurn and FinishTurn).
func (c *Conversation) History() []Turn {
	out := make([]Turn, len(c.memory))
	copy(out, c.memory)
	return out
}

// ActiveContext returns a copy of the current turn's candidate list.
func (c *Conversation) ActiveContext() []retrieval.ScoredCandidate {
	out := make([]retrieval.ScoredCandidate, len(c.active))
	copy(out, c.active)
	return out
}

// State reports the turn machine state. Safe to call from outside a turn.
func (c *Conversation) State() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SeedMemory rehydrates dialogue memory from persisted turns, applying the
// bound. Used when the in-memory state expired but the conversation
// continues.
func (c *Conversation) SeedMemory(turns []Turn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(turns) > c.maxTurns {
		turns = turns[len(turns)-c.maxTurns:]
	}
	c.memory = make([]Turn, len(turns))
	copy(c.memory, turns)
}

// RetrievalQuery combines the new query with enough recent dialogue to
// resolve references (pronouns, "that article"). Dialogue memory is
// read-only input to retrieval here; it is never stored in active context.
func (c *Conversation) RetrievalQuery(query string) string {
	if len(c.memory) == 0 {
		return query
	}

	var sb strings.Builder
	from := len(c.memory) - 2
	if from < 0 {
		from = 0
	}
	for _, turn := range c.memory[from:] {
		sb.WriteString(turn.Query)
		sb.WriteString("\n")
	}
	sb.WriteString(query)
	return sb.String()
}
