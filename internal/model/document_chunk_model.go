package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type DocumentChunk struct {
	Id         uuid.UUID             `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	DocumentId uuid.UUID             `gorm:"type:uuid;not null;index"`
	Content    string                `gorm:"type:text"`
	ChunkIndex int                   `gorm:"default:0"`
	Dense      pgvector.Vector       `gorm:"type:vector(1024)"` // BGE-M3 dense dimension
	Sparse     pgvector.SparseVector `gorm:"type:sparsevec(250002)"`
	CreatedAt  time.Time             `gorm:"autoCreateTime"`
	UpdatedAt  time.Time             `gorm:"autoUpdateTime"`
	DeletedAt  gorm.DeletedAt        `gorm:"index"`
}

func (DocumentChunk) TableName() string {
	return "document_chunks"
}
