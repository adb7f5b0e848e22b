package entity

import (
	"time"

	"github.com/google/uuid"
)

// ChatCitation links an assistant message to a document it relied on.
type ChatCitation struct {
	Id            uuid.UUID
	ChatMessageId uuid.UUID
	DocumentId    uuid.UUID
	FinalScore    float64
	CreatedAt     time.Time
}
