package search

import (
	"testing"

	"legal-research-be/internal/entity"
	"legal-research-be/internal/repository/contract"
	"legal-research-be/pkg/retrieval"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestToVectorFilter(t *testing.T) {
	owner := uuid.New()
	firm := uuid.New()

	tests := []struct {
		name       string
		collection retrieval.Collection
		filter     *retrieval.Filter
		check      func(t *testing.T, vf contract.VectorFilter)
	}{
		{
			name:       "nil filter keeps collection only",
			collection: retrieval.CollectionStatute,
			filter:     nil,
			check: func(t *testing.T, vf contract.VectorFilter) {
				assert.Equal(t, "statute", vf.Collection)
				assert.Nil(t, vf.OwnerID)
				assert.Nil(t, vf.FirmID)
			},
		},
		{
			name:       "valid scope ids are parsed",
			collection: retrieval.CollectionUserDocs,
			filter:     &retrieval.Filter{OwnerID: owner.String(), FirmID: firm.String()},
			check: func(t *testing.T, vf contract.VectorFilter) {
				assert.Equal(t, owner, *vf.OwnerID)
				assert.Equal(t, firm, *vf.FirmID)
			},
		},
		{
			name:       "malformed scope ids stay nil",
			collection: retrieval.CollectionUserDocs,
			filter:     &retrieval.Filter{OwnerID: "not-a-uuid", FirmID: ""},
			check: func(t *testing.T, vf contract.VectorFilter) {
				assert.Nil(t, vf.OwnerID)
				assert.Nil(t, vf.FirmID)
			},
		},
		{
			name:       "metadata filters pass through",
			collection: retrieval.CollectionCaseLaw,
			filter:     &retrieval.Filter{Language: "de", YearMin: 2010, YearMax: 2020},
			check: func(t *testing.T, vf contract.VectorFilter) {
				assert.Equal(t, "de", vf.Language)
				assert.Equal(t, 2010, vf.YearMin)
				assert.Equal(t, 2020, vf.YearMax)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, toVectorFilter(tt.collection, tt.filter))
		})
	}
}

func TestToDocumentRef(t *testing.T) {
	docId := uuid.New()
	chunkId := uuid.New()

	hit := &contract.ChunkHit{
		Chunk: &entity.DocumentChunk{
			Id:         chunkId,
			DocumentId: docId,
			Content:    "Art. 336c OR ...",
			ChunkIndex: 2,
			Dense:      []float32{0.1, 0.2},
		},
		Document: &entity.Document{
			Id:         docId,
			Title:      "OR Art. 336c",
			Collection: "statute",
			Language:   "de",
			Year:       0,
			SourceURI:  "https://fedlex.example/or",
		},
		Similarity: 0.87,
	}

	ref := toDocumentRef(hit)

	assert.Equal(t, chunkId.String(), ref.ID)
	assert.Equal(t, retrieval.CollectionStatute, ref.Collection)
	assert.Equal(t, "Art. 336c OR ...", ref.Text)
	assert.Equal(t, "OR Art. 336c chunk 2", ref.ContentKey)
	assert.Equal(t, []float32{0.1, 0.2}, ref.Dense)
	assert.Equal(t, docId.String(), ref.Metadata["document_id"])
	assert.Equal(t, "https://fedlex.example/or", ref.Metadata["source_uri"])
}
