package search

import (
	"context"
	"fmt"

	"legal-research-be/internal/repository/contract"
	"legal-research-be/pkg/retrieval"

	"github.com/google/uuid"
)

// PgvectorIndex adapts the document chunk repository to the retrieval
// lane's index contract.
type PgvectorIndex struct {
	chunks contract.DocumentChunkRepository
}

func NewPgvectorIndex(chunks contract.DocumentChunkRepository) *PgvectorIndex {
	return &PgvectorIndex{chunks: chunks}
}

func (i *PgvectorIndex) SearchDense(ctx context.Context, collection retrieval.Collection, dense []float32, filter *retrieval.Filter, limit int) ([]retrieval.Hit, error) {
	hits, err := i.chunks.SearchDense(ctx, dense, toVectorFilter(collection, filter), limit)
	if err != nil {
		return nil, err
	}
	return toRetrievalHits(hits), nil
}

func (i *PgvectorIndex) SearchSparse(ctx context.Context, collection retrieval.Collection, sparse map[uint32]float32, filter *retrieval.Filter, limit int) ([]retrieval.Hit, error) {
	hits, err := i.chunks.SearchSparse(ctx, sparse, toVectorFilter(collection, filter), limit)
	if err != nil {
		return nil, err
	}
	return toRetrievalHits(hits), nil
}

func toVectorFilter(collection retrieval.Collection, filter *retrieval.Filter) contract.VectorFilter {
	vf := contract.VectorFilter{Collection: string(collection)}
	if filter == nil {
		return vf
	}
	if id, err := uuid.Parse(filter.OwnerID); err == nil {
		vf.OwnerID = &id
	}
	if id, err := uuid.Parse(filter.FirmID); err == nil {
		vf.FirmID = &id
	}
	vf.Language = filter.Language
	vf.YearMin = filter.YearMin
	vf.YearMax = filter.YearMax
	return vf
}

func toRetrievalHits(hits []*contract.ChunkHit) []retrieval.Hit {
	out := make([]retrieval.Hit, len(hits))
	for idx, h := range hits {
		out[idx] = retrieval.Hit{
			Doc:   toDocumentRef(h),
			Score: h.Similarity,
		}
	}
	return out
}

func toDocumentRef(h *contract.ChunkHit) retrieval.DocumentRef {
	return retrieval.DocumentRef{
		ID:         h.Chunk.Id.String(),
		Collection: retrieval.Collection(h.Document.Collection),
		Title:      h.Document.Title,
		Text:       h.Chunk.Content,
		Language:   h.Document.Language,
		Year:       h.Document.Year,
		Authority:  h.Document.Authority,
		ContentKey: fmt.Sprintf("%s chunk %d", h.Document.Title, h.Chunk.ChunkIndex),
		Dense:      h.Chunk.Dense,
		Metadata: map[string]interface{}{
			"document_id": h.Document.Id.String(),
			"source_uri":  h.Document.SourceURI,
		},
	}
}
