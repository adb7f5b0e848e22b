package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "DOCUMENT_UPLOADED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is the generic implementation used when reconstructing events
// off the wire.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// Event type codes published by the ingestion flow.
const (
	TypeDocumentUploaded = "DOCUMENT_UPLOADED"
	TypeDocumentIndexed  = "DOCUMENT_INDEXED"
	TypeDocumentDeleted  = "DOCUMENT_DELETED"
)

// NewDocumentUploaded signals that a document's chunks are persisted and
// awaiting embedding.
func NewDocumentUploaded(documentID, ownerID, firmID, collection string) BaseEvent {
	return BaseEvent{
		Type: TypeDocumentUploaded,
		Data: map[string]interface{}{
			"document_id": documentID,
			"owner_id":    ownerID,
			"firm_id":     firmID,
			"collection":  collection,
		},
		OccurredAt: time.Now(),
	}
}

// NewDocumentIndexed signals that embeddings for all of a document's chunks
// were written and the document is searchable. ownerID is empty for shared
// corpus documents.
func NewDocumentIndexed(documentID, ownerID string, chunkCount int) BaseEvent {
	return BaseEvent{
		Type: TypeDocumentIndexed,
		Data: map[string]interface{}{
			"document_id": documentID,
			"owner_id":    ownerID,
			"chunk_count": chunkCount,
		},
		OccurredAt: time.Now(),
	}
}

// NewDocumentDeleted signals that a document and its embeddings were removed.
func NewDocumentDeleted(documentID string) BaseEvent {
	return BaseEvent{
		Type: TypeDocumentDeleted,
		Data: map[string]interface{}{
			"document_id": documentID,
		},
		OccurredAt: time.Now(),
	}
}
