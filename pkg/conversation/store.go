package conversation

// Store keeps live Conversation state between turns. Implementations decide
// lifetime; an expired entry simply yields a fresh Conversation that the
// caller may reseed from persistent storage.
type Store interface {
	GetOrCreate(id, userID, firmID string) (*Conversation, bool)
	Save(conv *Conversation)
	Delete(id string)
}
