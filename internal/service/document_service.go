package service

import (
	"context"
	"encoding/json"
	"fmt"

	"legal-research-be/internal/dto"
	"legal-research-be/internal/entity"
	"legal-research-be/internal/repository/specification"
	"legal-research-be/internal/repository/unitofwork"
	"legal-research-be/pkg/events"
	pktNats "legal-research-be/pkg/nats"
	"legal-research-be/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// Chunking parameters tuned for legal prose: articles and headnotes
	// mostly fit a single chunk, long decisions keep citation context in
	// the overlap.
	chunkSize    = 1500
	chunkOverlap = 200
)

var validCollections = map[string]bool{
	"statute":   true,
	"case_law":  true,
	"user_docs": true,
}

// IDocumentService handles corpus management. Upload persists the document
// and its raw chunks, then queues embedding work; the document becomes
// searchable only after the ingest consumer finishes.
type IDocumentService interface {
	Upload(ctx context.Context, userId, firmId uuid.UUID, request *dto.UploadDocumentRequest) (*dto.UploadDocumentResponse, error)
	Delete(ctx context.Context, userId, firmId uuid.UUID, documentId uuid.UUID) error
}

type documentService struct {
	uowFactory       unitofwork.RepositoryFactory
	publisherService IPublisherService
	eventPublisher   *pktNats.Publisher
	logger           *zap.Logger
}

func NewDocumentService(
	uowFactory unitofwork.RepositoryFactory,
	publisherService IPublisherService,
	eventPublisher *pktNats.Publisher,
	logger *zap.Logger,
) IDocumentService {
	return &documentService{
		uowFactory:       uowFactory,
		publisherService: publisherService,
		eventPublisher:   eventPublisher,
		logger:           logger,
	}
}

func (ds *documentService) Upload(ctx context.Context, userId, firmId uuid.UUID, request *dto.UploadDocumentRequest) (*dto.UploadDocumentResponse, error) {
	if !validCollections[request.Collection] {
		return nil, fmt.Errorf("unknown collection: %s", request.Collection)
	}

	document := &entity.Document{
		Id:         uuid.New(),
		Title:      request.Title,
		Collection: request.Collection,
		Language:   request.Language,
		Year:       request.Year,
		Authority:  request.Authority,
		SourceURI:  request.SourceURI,
		Metadata:   request.Metadata,
	}
	if request.Collection == "user_docs" {
		document.OwnerId = &userId
		document.FirmId = &firmId
	}

	uow := ds.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.DocumentRepository().Create(ctx, document); err != nil {
		return nil, err
	}

	// Chunks are stored without vectors; the ingest consumer fills them in.
	chunks := utils.SplitText(request.Content, chunkSize, chunkOverlap)
	chunkEntities := make([]*entity.DocumentChunk, len(chunks))
	for i, chunk := range chunks {
		chunkEntities[i] = &entity.DocumentChunk{
			Id:         uuid.New(),
			DocumentId: document.Id,
			Content:    chunk,
			ChunkIndex: i,
		}
	}
	if err := uow.DocumentChunkRepository().CreateBulk(ctx, chunkEntities); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	msgPayload := dto.PublishEmbedDocumentMessage{DocumentId: document.Id}
	msgJson, err := json.Marshal(msgPayload)
	if err != nil {
		return nil, err
	}
	if err := ds.publisherService.Publish(ctx, msgJson); err != nil {
		return nil, err
	}

	if ds.eventPublisher != nil {
		ownerId := ""
		if document.OwnerId != nil {
			ownerId = document.OwnerId.String()
		}
		firmIdStr := ""
		if document.FirmId != nil {
			firmIdStr = document.FirmId.String()
		}
		evt := events.NewDocumentUploaded(document.Id.String(), ownerId, firmIdStr, document.Collection)
		if err := ds.eventPublisher.Publish(ctx, evt); err != nil {
			ds.logger.Warn("failed to publish document uploaded event",
				zap.String("document_id", document.Id.String()),
				zap.Error(err))
		}
	}

	return &dto.UploadDocumentResponse{
		Id:        document.Id,
		CreatedAt: document.CreatedAt,
	}, nil
}

func (ds *documentService) Delete(ctx context.Context, userId, firmId uuid.UUID, documentId uuid.UUID) error {
	uow := ds.uowFactory.NewUnitOfWork(ctx)

	document, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: documentId})
	if err != nil {
		return err
	}
	if document == nil {
		return fmt.Errorf("document not found")
	}

	// Shared collections are managed by corpus administration, not
	// end-user requests. Only the owner (or their firm) may remove a
	// private document.
	if document.Collection != "user_docs" {
		return fmt.Errorf("document not deletable")
	}
	ownedByUser := document.OwnerId != nil && *document.OwnerId == userId
	ownedByFirm := document.FirmId != nil && *document.FirmId == firmId
	if !ownedByUser && !ownedByFirm {
		return fmt.Errorf("document not found")
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.DocumentChunkRepository().DeleteByDocumentId(ctx, documentId); err != nil {
		return err
	}
	if err := uow.DocumentRepository().Delete(ctx, documentId); err != nil {
		return err
	}
	if err := uow.Commit(); err != nil {
		return err
	}

	if ds.eventPublisher != nil {
		evt := events.NewDocumentDeleted(documentId.String())
		if err := ds.eventPublisher.Publish(ctx, evt); err != nil {
			ds.logger.Warn("failed to publish document deleted event",
				zap.String("document_id", documentId.String()),
				zap.Error(err))
		}
	}
	return nil
}
