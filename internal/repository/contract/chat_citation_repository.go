package contract

import (
	"context"

	"legal-research-be/internal/entity"
	"legal-research-be/internal/repository/specification"

	"github.com/google/uuid"
)

type ChatCitationRepository interface {
	CreateBulk(ctx context.Context, citations []*entity.ChatCitation) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatCitation, error)
	DeleteByMessageId(ctx context.Context, messageId uuid.UUID) error
}
