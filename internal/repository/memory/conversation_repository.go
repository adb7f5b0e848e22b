package memory

import (
	"sync"
	"time"

	"legal-research-be/pkg/conversation"

	"github.com/patrickmn/go-cache"
)

// ConversationRepository keeps live conversation state between turns.
// Entries expire after an hour of inactivity; an expired conversation is
// recreated on the next turn and reseeded from persisted messages by the
// chat service.
type ConversationRepository struct {
	cache *cache.Cache
	mu    sync.Mutex
	turns int
}

func NewConversationRepository(memoryTurns int) *ConversationRepository {
	c := cache.New(1*time.Hour, 10*time.Minute)
	return &ConversationRepository{
		cache: c,
		turns: memoryTurns,
	}
}

// GetOrCreate returns the live conversation, creating it when absent. The
// second return reports whether the conversation already existed. Creation
// is serialized so two concurrent turns cannot race in separate instances.
func (r *ConversationRepository) GetOrCreate(id, userID, firmID string) (*conversation.Conversation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if x, found := r.cache.Get(id); found {
		return x.(*conversation.Conversation), true
	}

	conv := conversation.New(id, userID, firmID, r.turns)
	r.cache.Set(id, conv, cache.DefaultExpiration)
	return conv, false
}

// Save refreshes the entry's expiration after a completed turn.
func (r *ConversationRepository) Save(conv *conversation.Conversation) {
	r.cache.Set(conv.ID, conv, cache.DefaultExpiration)
}

func (r *ConversationRepository) Delete(id string) {
	r.cache.Delete(id)
}
