package implementation

import (
	"context"

	"legal-research-be/internal/entity"
	"legal-research-be/internal/mapper"
	"legal-research-be/internal/model"
	"legal-research-be/internal/repository/contract"
	"legal-research-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChatCitationRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatMapper
}

func NewChatCitationRepository(db *gorm.DB) contract.ChatCitationRepository {
	return &ChatCitationRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatMapper(),
	}
}

func (r *ChatCitationRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ChatCitationRepositoryImpl) CreateBulk(ctx context.Context, citations []*entity.ChatCitation) error {
	if len(citations) == 0 {
		return nil
	}

	models := make([]*model.ChatCitation, len(citations))
	for i, c := range citations {
		models[i] = r.mapper.ChatCitationToModel(c)
	}

	if err := r.db.WithContext(ctx).Create(models).Error; err != nil {
		return err
	}

	for i, m := range models {
		*citations[i] = *r.mapper.ChatCitationToEntity(m)
	}
	return nil
}

func (r *ChatCitationRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatCitation, error) {
	var models []*model.ChatCitation
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.ChatCitation, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ChatCitationToEntity(m)
	}
	return entities, nil
}

func (r *ChatCitationRepositoryImpl) DeleteByMessageId(ctx context.Context, messageId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("chat_message_id = ?", messageId).Delete(&model.ChatCitation{}).Error
}
