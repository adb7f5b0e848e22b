package mapper

import (
	"time"

	"legal-research-be/internal/entity"
	"legal-research-be/internal/model"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// sparseDimension matches the sparsevec column: BGE-M3's token vocabulary.
const sparseDimension = 250002

type DocumentChunkMapper struct{}

func NewDocumentChunkMapper() *DocumentChunkMapper {
	return &DocumentChunkMapper{}
}

func (m *DocumentChunkMapper) ToEntity(c *model.DocumentChunk) *entity.DocumentChunk {
	if c == nil {
		return nil
	}

	var deletedAt *time.Time
	if c.DeletedAt.Valid {
		t := c.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !c.UpdatedAt.IsZero() {
		t := c.UpdatedAt
		updatedAt = &t
	}

	return &entity.DocumentChunk{
		Id:         c.Id,
		DocumentId: c.DocumentId,
		Content:    c.Content,
		ChunkIndex: c.ChunkIndex,
		Dense:      c.Dense.Slice(),
		Sparse:     sparseToMap(c.Sparse),
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  updatedAt,
		DeletedAt:  deletedAt,
		IsDeleted:  c.DeletedAt.Valid,
	}
}

func (m *DocumentChunkMapper) ToModel(c *entity.DocumentChunk) *model.DocumentChunk {
	if c == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if c.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *c.DeletedAt, Valid: true}
	} else if c.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if c.UpdatedAt != nil {
		updatedAt = *c.UpdatedAt
	}

	return &model.DocumentChunk{
		Id:         c.Id,
		DocumentId: c.DocumentId,
		Content:    c.Content,
		ChunkIndex: c.ChunkIndex,
		Dense:      pgvector.NewVector(c.Dense),
		Sparse:     SparseFromMap(c.Sparse),
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  updatedAt,
		DeletedAt:  deletedAt,
	}
}

func (m *DocumentChunkMapper) ToEntities(chunks []*model.DocumentChunk) []*entity.DocumentChunk {
	entities := make([]*entity.DocumentChunk, len(chunks))
	for i, c := range chunks {
		entities[i] = m.ToEntity(c)
	}
	return entities
}

func (m *DocumentChunkMapper) ToModels(chunks []*entity.DocumentChunk) []*model.DocumentChunk {
	models := make([]*model.DocumentChunk, len(chunks))
	for i, c := range chunks {
		models[i] = m.ToModel(c)
	}
	return models
}

// SparseFromMap converts token-weight pairs into the pgvector sparsevec
// representation. Exported because query construction needs the same
// conversion.
func SparseFromMap(weights map[uint32]float32) pgvector.SparseVector {
	elements := make(map[int32]float32, len(weights))
	for token, weight := range weights {
		elements[int32(token)] = weight
	}
	return pgvector.NewSparseVectorFromMap(elements, sparseDimension)
}

func sparseToMap(v pgvector.SparseVector) map[uint32]float32 {
	indices := v.Indices()
	values := v.Values()
	weights := make(map[uint32]float32, len(indices))
	for i, idx := range indices {
		weights[uint32(idx)] = values[i]
	}
	return weights
}
