package dto

import (
	"time"

	"github.com/google/uuid"

	"legal-research-be/pkg/retrieval"
)

type CreateSessionResponse struct {
	Id uuid.UUID `json:"id"`
}

type GetAllSessionsResponse struct {
	Id        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

type GetChatHistoryResponse struct {
	Id        uuid.UUID     `json:"id"`
	Role      string        `json:"role"`
	Chat      string        `json:"chat"`
	CreatedAt time.Time     `json:"created_at"`
	Citations []CitationDTO `json:"citations,omitempty"`
}

type CitationDTO struct {
	DocumentId uuid.UUID `json:"document_id"`
	Title      string    `json:"title"`
	Collection string    `json:"collection"`
	Year       int       `json:"year,omitempty"`
	Score      float64   `json:"score"`
}

type SendChatRequest struct {
	ChatSessionId uuid.UUID `json:"chat_session_id" validate:"required"`
	Chat          string    `json:"chat" validate:"required"`
}

type SendChatResponseChat struct {
	Id        uuid.UUID     `json:"id"`
	Chat      string        `json:"chat"`
	Role      string        `json:"role"`
	CreatedAt time.Time     `json:"created_at"`
	Citations []CitationDTO `json:"citations,omitempty"`
}

type SendChatResponse struct {
	ChatSessionId    uuid.UUID             `json:"chat_session_id"`
	ChatSessionTitle string                `json:"title"`
	Sent             *SendChatResponseChat `json:"sent"`
	Reply            *SendChatResponseChat `json:"reply"`
	Status           retrieval.Status      `json:"retrieval_status"`
}

type DeleteSessionRequest struct {
	ChatSessionId uuid.UUID `json:"chat_session_id"`
}
