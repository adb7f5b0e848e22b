package implementation

import (
	"context"

	"legal-research-be/internal/entity"
	"legal-research-be/internal/mapper"
	"legal-research-be/internal/model"
	"legal-research-be/internal/repository/contract"
	"legal-research-be/internal/repository/specification"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type DocumentChunkRepositoryImpl struct {
	db          *gorm.DB
	chunkMapper *mapper.DocumentChunkMapper
	docMapper   *mapper.DocumentMapper
}

func NewDocumentChunkRepository(db *gorm.DB) contract.DocumentChunkRepository {
	return &DocumentChunkRepositoryImpl{
		db:          db,
		chunkMapper: mapper.NewDocumentChunkMapper(),
		docMapper:   mapper.NewDocumentMapper(),
	}
}

func (r *DocumentChunkRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *DocumentChunkRepositoryImpl) Create(ctx context.Context, chunk *entity.DocumentChunk) error {
	m := r.chunkMapper.ToModel(chunk)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*chunk = *r.chunkMapper.ToEntity(m)
	return nil
}

func (r *DocumentChunkRepositoryImpl) CreateBulk(ctx context.Context, chunks []*entity.DocumentChunk) error {
	models := make([]*model.DocumentChunk, len(chunks))
	for i, c := range chunks {
		models[i] = r.chunkMapper.ToModel(c)
	}

	if err := r.db.WithContext(ctx).Create(models).Error; err != nil {
		return err
	}

	for i, m := range models {
		*chunks[i] = *r.chunkMapper.ToEntity(m)
	}
	return nil
}

func (r *DocumentChunkRepositoryImpl) Update(ctx context.Context, chunk *entity.DocumentChunk) error {
	m := r.chunkMapper.ToModel(chunk)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*chunk = *r.chunkMapper.ToEntity(m)
	return nil
}

func (r *DocumentChunkRepositoryImpl) DeleteByDocumentId(ctx context.Context, documentId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("document_id = ?", documentId).Delete(&model.DocumentChunk{}).Error
}

func (r *DocumentChunkRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.DocumentChunk, error) {
	var models []*model.DocumentChunk
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.chunkMapper.ToEntities(models), nil
}

func (r *DocumentChunkRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.DocumentChunk{}).Count(&count).Error
	return count, err
}

// scoredRow carries a chunk, its parent document columns, and the computed
// similarity in one scan.
type scoredRow struct {
	model.DocumentChunk
	Document   model.Document `gorm:"embedded;embeddedPrefix:doc_"`
	Similarity float64
}

const documentJoinSelect = `document_chunks.*,
	documents.id AS doc_id, documents.title AS doc_title,
	documents.collection AS doc_collection, documents.language AS doc_language,
	documents.year AS doc_year, documents.authority AS doc_authority,
	documents.source_uri AS doc_source_uri, documents.owner_id AS doc_owner_id,
	documents.firm_id AS doc_firm_id, documents.created_at AS doc_created_at`

// SearchDense runs nearest-neighbor search over the dense column using
// pgvector cosine distance. Soft-deleted chunks and documents are excluded.
func (r *DocumentChunkRepositoryImpl) SearchDense(ctx context.Context, dense []float32, filter contract.VectorFilter, limit int) ([]*contract.ChunkHit, error) {
	if emptyPrivateScope(filter) {
		return []*contract.ChunkHit{}, nil
	}
	if limit <= 0 {
		limit = 10
	}

	queryVector := pgvector.NewVector(dense)

	var rows []scoredRow
	query := r.db.WithContext(ctx).
		Table("document_chunks").
		Select(documentJoinSelect+", 1 - (document_chunks.dense <=> ?) AS similarity", queryVector).
		Joins("JOIN documents ON documents.id = document_chunks.document_id").
		Where("document_chunks.deleted_at IS NULL").
		Where("documents.deleted_at IS NULL")

	query = applyVectorFilter(query, filter)

	err := query.
		Order(gorm.Expr("document_chunks.dense <=> ?", queryVector)).
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	return r.toHits(rows), nil
}

// SearchSparse runs lexical-weight search over the sparsevec column using
// inner product, which matches how the sparse weights were produced.
func (r *DocumentChunkRepositoryImpl) SearchSparse(ctx context.Context, sparse map[uint32]float32, filter contract.VectorFilter, limit int) ([]*contract.ChunkHit, error) {
	if emptyPrivateScope(filter) {
		return []*contract.ChunkHit{}, nil
	}
	if limit <= 0 {
		limit = 10
	}
	if len(sparse) == 0 {
		return []*contract.ChunkHit{}, nil
	}

	queryVector := mapper.SparseFromMap(sparse)

	var rows []scoredRow
	query := r.db.WithContext(ctx).
		Table("document_chunks").
		Select(documentJoinSelect+", -(document_chunks.sparse <#> ?) AS similarity", queryVector).
		Joins("JOIN documents ON documents.id = document_chunks.document_id").
		Where("document_chunks.deleted_at IS NULL").
		Where("documents.deleted_at IS NULL")

	query = applyVectorFilter(query, filter)

	err := query.
		Order(gorm.Expr("document_chunks.sparse <#> ?", queryVector)).
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	return r.toHits(rows), nil
}

// emptyPrivateScope reports a user_docs query with no owner or firm. An
// unscoped private search must return nothing rather than everything.
func emptyPrivateScope(filter contract.VectorFilter) bool {
	return filter.Collection == "user_docs" && filter.OwnerID == nil && filter.FirmID == nil
}

func applyVectorFilter(query *gorm.DB, filter contract.VectorFilter) *gorm.DB {
	if filter.Collection != "" {
		query = query.Where("documents.collection = ?", filter.Collection)
	}
	if filter.OwnerID != nil || filter.FirmID != nil {
		// Firm scope subsumes owner scope: a document is visible when it
		// belongs to the requesting user or their firm.
		switch {
		case filter.OwnerID != nil && filter.FirmID != nil:
			query = query.Where("(documents.owner_id = ? OR documents.firm_id = ?)", *filter.OwnerID, *filter.FirmID)
		case filter.OwnerID != nil:
			query = query.Where("documents.owner_id = ?", *filter.OwnerID)
		default:
			query = query.Where("documents.firm_id = ?", *filter.FirmID)
		}
	}
	if filter.Language != "" {
		query = query.Where("documents.language = ?", filter.Language)
	}
	if filter.YearMin > 0 {
		query = query.Where("documents.year >= ?", filter.YearMin)
	}
	if filter.YearMax > 0 {
		query = query.Where("documents.year <= ?", filter.YearMax)
	}
	return query
}

func (r *DocumentChunkRepositoryImpl) toHits(rows []scoredRow) []*contract.ChunkHit {
	hits := make([]*contract.ChunkHit, len(rows))
	for i := range rows {
		hits[i] = &contract.ChunkHit{
			Chunk:      r.chunkMapper.ToEntity(&rows[i].DocumentChunk),
			Document:   r.docMapper.ToEntity(&rows[i].Document),
			Similarity: rows[i].Similarity,
		}
	}
	return hits
}
