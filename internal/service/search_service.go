package service

import (
	"context"

	"legal-research-be/internal/dto"
	"legal-research-be/pkg/retrieval"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ISearchService exposes the ranked retrieval pipeline directly, without
// answer generation. Used for research browsing and for evaluating ranking
// changes against live data.
type ISearchService interface {
	Search(ctx context.Context, userId, firmId uuid.UUID, request *dto.SearchRequest) (*dto.SearchResponse, error)
}

type searchService struct {
	pipeline *retrieval.Pipeline
	logger   *zap.Logger
}

func NewSearchService(pipeline *retrieval.Pipeline, logger *zap.Logger) ISearchService {
	return &searchService{
		pipeline: pipeline,
		logger:   logger,
	}
}

func (ss *searchService) Search(ctx context.Context, userId, firmId uuid.UUID, request *dto.SearchRequest) (*dto.SearchResponse, error) {
	scope := retrieval.Scope{
		UserID: userId.String(),
		FirmID: firmId.String(),
	}

	result, err := ss.pipeline.Run(ctx, request.Query, scope, &retrieval.Filter{
		Language: request.Language,
		YearMin:  request.YearMin,
		YearMax:  request.YearMax,
	})
	if err != nil {
		return nil, err
	}

	results := make([]dto.SearchResultDTO, len(result.Results))
	for i, r := range result.Results {
		docId, _ := r.Doc.Metadata["document_id"].(string)
		results[i] = dto.SearchResultDTO{
			DocumentId: docId,
			ChunkId:    r.Doc.ID,
			Title:      r.Doc.Title,
			Collection: string(r.Doc.Collection),
			Excerpt:    excerpt(r.Doc.Text, 400),
			Year:       r.Doc.Year,
			Authority:  r.Doc.Authority,
			FinalScore: r.FinalScore,
		}
	}

	return &dto.SearchResponse{
		Results: results,
		Status:  result.Status,
	}, nil
}

func excerpt(text string, max int) string {
	if len(text) <= max {
		return text
	}
	return text[:max] + "…"
}
