package dto

import (
	"time"

	"github.com/google/uuid"
)

type UploadDocumentRequest struct {
	Title      string                 `json:"title" validate:"required"`
	Collection string                 `json:"collection" validate:"required"`
	Language   string                 `json:"language,omitempty"`
	Year       int                    `json:"year,omitempty"`
	Authority  string                 `json:"authority,omitempty"`
	SourceURI  string                 `json:"source_uri,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Content    string                 `json:"content" validate:"required"`
}

type UploadDocumentResponse struct {
	Id        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// PublishEmbedDocumentMessage is the ingest queue payload: the document is
// persisted, its chunks need embedding.
type PublishEmbedDocumentMessage struct {
	DocumentId uuid.UUID `json:"document_id"`
}
