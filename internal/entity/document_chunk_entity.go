package entity

import (
	"time"

	"github.com/google/uuid"
)

// DocumentChunk is one embedded passage of a document. Dense and sparse
// vectors are stored side by side so both retrieval arms query the same row.
type DocumentChunk struct {
	Id         uuid.UUID
	DocumentId uuid.UUID
	Content    string
	ChunkIndex int
	Dense      []float32
	Sparse     map[uint32]float32
	CreatedAt  time.Time
	UpdatedAt  *time.Time
	DeletedAt  *time.Time
	IsDeleted  bool
}
