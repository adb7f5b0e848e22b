package service

import (
	"context"
	"encoding/json"

	"legal-research-be/internal/dto"
	"legal-research-be/internal/repository/specification"
	"legal-research-be/internal/repository/unitofwork"
	"legal-research-be/pkg/embedding"
	"legal-research-be/pkg/events"
	pktNats "legal-research-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// IIngestService consumes embed-document messages and fills in chunk
// vectors. Embedding calls are rate limited so bulk corpus imports cannot
// starve interactive query embedding on the same model server.
type IIngestService interface {
	Consume(ctx context.Context) error
}

type ingestService struct {
	pubSub            *gochannel.GoChannel
	topicName         string
	uowFactory        unitofwork.RepositoryFactory
	embeddingProvider embedding.Provider
	eventPublisher    *pktNats.Publisher
	limiter           *rate.Limiter
	logger            *zap.Logger
}

func NewIngestService(
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	embeddingProvider embedding.Provider,
	eventPublisher *pktNats.Publisher,
	ratePerSecond float64,
	burst int,
	logger *zap.Logger,
) IIngestService {
	if ratePerSecond <= 0 {
		ratePerSecond = 8
	}
	if burst <= 0 {
		burst = int(ratePerSecond)
	}
	return &ingestService{
		pubSub:            pubSub,
		topicName:         topicName,
		uowFactory:        uowFactory,
		embeddingProvider: embeddingProvider,
		eventPublisher:    eventPublisher,
		limiter:           rate.NewLimiter(rate.Limit(ratePerSecond), burst),
		logger:            logger,
	}
}

func (is *ingestService) Consume(ctx context.Context) error {
	messages, err := is.pubSub.Subscribe(ctx, is.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			is.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (is *ingestService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishEmbedDocumentMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		is.logger.Error("failed to unmarshal ingest message", zap.Error(err))
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	is.logger.Info("processing document embedding",
		zap.String("document_id", payload.DocumentId.String()))

	uow := is.uowFactory.NewUnitOfWork(ctx)

	document, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: payload.DocumentId})
	if err != nil {
		is.logger.Error("failed to load document",
			zap.String("document_id", payload.DocumentId.String()),
			zap.Error(err))
		msg.Nack() // Nack for retriable errors
		return
	}
	if document == nil {
		// Deleted between upload and ingest. Nothing to do.
		msg.Ack()
		return
	}

	chunks, err := uow.DocumentChunkRepository().FindAll(ctx,
		specification.ByDocumentID{DocumentID: payload.DocumentId},
		specification.OrderBy{Field: "chunk_index", Desc: false},
	)
	if err != nil {
		is.logger.Error("failed to load chunks",
			zap.String("document_id", payload.DocumentId.String()),
			zap.Error(err))
		msg.Nack()
		return
	}

	for _, chunk := range chunks {
		if len(chunk.Dense) > 0 {
			continue // already embedded; message was redelivered
		}

		if err := is.limiter.Wait(ctx); err != nil {
			msg.Nack()
			return
		}

		pair, err := is.embeddingProvider.Generate(ctx, chunk.Content, embedding.KindBoth)
		if err != nil {
			is.logger.Error("failed to embed chunk",
				zap.String("document_id", payload.DocumentId.String()),
				zap.Int("chunk_index", chunk.ChunkIndex),
				zap.Error(err))
			msg.Nack()
			return
		}

		chunk.Dense = pair.Dense
		chunk.Sparse = pair.Sparse
		if err := uow.DocumentChunkRepository().Update(ctx, chunk); err != nil {
			is.logger.Error("failed to store chunk vectors",
				zap.String("document_id", payload.DocumentId.String()),
				zap.Int("chunk_index", chunk.ChunkIndex),
				zap.Error(err))
			msg.Nack()
			return
		}
	}

	is.logger.Info("document indexed",
		zap.String("document_id", payload.DocumentId.String()),
		zap.Int("chunks", len(chunks)))

	if is.eventPublisher != nil {
		ownerId := ""
		if document.OwnerId != nil {
			ownerId = document.OwnerId.String()
		}
		evt := events.NewDocumentIndexed(payload.DocumentId.String(), ownerId, len(chunks))
		if err := is.eventPublisher.Publish(ctx, evt); err != nil {
			is.logger.Warn("failed to publish document indexed event",
				zap.String("document_id", payload.DocumentId.String()),
				zap.Error(err))
		}
	}

	msg.Ack()
}
