package contract

import (
	"context"

	"legal-research-be/internal/entity"
	"legal-research-be/internal/repository/specification"

	"github.com/google/uuid"
)

// ChunkHit is one nearest-neighbor result together with the parent
// document's ranking metadata, so search does not need a second round trip.
type ChunkHit struct {
	Chunk      *entity.DocumentChunk
	Document   *entity.Document
	Similarity float64
}

// VectorFilter narrows a vector search by document metadata. Zero values
// mean no constraint.
type VectorFilter struct {
	Collection string
	OwnerID    *uuid.UUID
	FirmID     *uuid.UUID
	Language   string
	YearMin    int
	YearMax    int
}

type DocumentChunkRepository interface {
	Create(ctx context.Context, chunk *entity.DocumentChunk) error
	CreateBulk(ctx context.Context, chunks []*entity.DocumentChunk) error
	Update(ctx context.Context, chunk *entity.DocumentChunk) error
	DeleteByDocumentId(ctx context.Context, documentId uuid.UUID) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.DocumentChunk, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	// Vector search
	SearchDense(ctx context.Context, dense []float32, filter VectorFilter, limit int) ([]*ChunkHit, error)
	SearchSparse(ctx context.Context, sparse map[uint32]float32, filter VectorFilter, limit int) ([]*ChunkHit, error)
}
