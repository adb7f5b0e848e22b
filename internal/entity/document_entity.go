package entity

import (
	"time"

	"github.com/google/uuid"
)

// Document is one legal source: a statute article, a court decision, or a
// client-uploaded file. Collection decides which retrieval lane serves it
// and which ranking metadata applies.
type Document struct {
	Id         uuid.UUID
	Title      string
	Collection string // statute | case_law | user_docs
	Language   string
	Year       int    // decision or enactment year, 0 when unknown
	Authority  string // court tier for case law, empty otherwise
	SourceURI  string
	Metadata   map[string]interface{} // free-form scraper metadata (citation ids, gazette numbers)
	OwnerId    *uuid.UUID             // set for user_docs only
	FirmId     *uuid.UUID             // set for user_docs only
	CreatedAt  time.Time
	UpdatedAt  *time.Time
	DeletedAt  *time.Time
	IsDeleted  bool
}
