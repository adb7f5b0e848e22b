package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByCollection struct {
	Collection string
}

func (s ByCollection) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("collection = ?", s.Collection)
}

type ByLanguage struct {
	Language string
}

func (s ByLanguage) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("language = ?", s.Language)
}

// ByYearRange bounds the decision year. Zero means unbounded on that side.
type ByYearRange struct {
	Min int
	Max int
}

func (s ByYearRange) Apply(db *gorm.DB) *gorm.DB {
	if s.Min > 0 {
		db = db.Where("year >= ?", s.Min)
	}
	if s.Max > 0 {
		db = db.Where("year <= ?", s.Max)
	}
	return db
}

type ByOwnerID struct {
	OwnerID uuid.UUID
}

func (s ByOwnerID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("owner_id = ?", s.OwnerID)
}

type ByFirmID struct {
	FirmID uuid.UUID
}

func (s ByFirmID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("firm_id = ?", s.FirmID)
}

type ByDocumentID struct {
	DocumentID uuid.UUID
}

func (s ByDocumentID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("document_id = ?", s.DocumentID)
}
