package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Document struct {
	Id         uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Title      string         `gorm:"type:varchar(512);not null"`
	Collection string         `gorm:"type:varchar(32);not null;index"`
	Language   string         `gorm:"type:varchar(8);index"`
	Year       int            `gorm:"index"`
	Authority  string         `gorm:"type:varchar(32)"`
	SourceURI  string         `gorm:"type:text"`
	Metadata   datatypes.JSON `gorm:"type:jsonb"`
	OwnerId    *uuid.UUID     `gorm:"type:uuid;index"`
	FirmId     *uuid.UUID     `gorm:"type:uuid;index"`
	CreatedAt  time.Time      `gorm:"autoCreateTime"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime"`
	DeletedAt  gorm.DeletedAt `gorm:"index"`
}

func (Document) TableName() string {
	return "documents"
}
