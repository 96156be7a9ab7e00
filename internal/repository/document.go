package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/baatasaari/agenthub-knowledge/internal/domain"
)

// DocumentRepository durably mirrors documents and their chunks. A
// document and its chunks land in one transaction so the mirror can
// never hold a partially embedded document.
type DocumentRepository struct {
	pool *pgxpool.Pool
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{pool: pool}
}

// SaveDocument inserts a document and all of its chunks atomically.
func (r *DocumentRepository) SaveDocument(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := insertDocument(ctx, tx, doc); err != nil {
		return err
	}
	if err := insertChunks(ctx, tx, chunks); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func insertDocument(ctx context.Context, db dbtx, doc *domain.Document) error {
	_, err := db.Exec(ctx,
		`INSERT INTO documents
			(id, tenant_id, agent_ids, platforms, source_kind, category, priority, tags, content, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		doc.ID, doc.TenantID, doc.AgentIDs, doc.Platforms, string(doc.SourceKind),
		nullableString(doc.Category), string(doc.Priority), doc.Tags, doc.Content,
		doc.CreatedAt, doc.UpdatedAt,
	)
	return err
}

func insertChunks(ctx context.Context, db dbtx, chunks []domain.Chunk) error {
	for _, c := range chunks {
		_, err := db.Exec(ctx,
			`INSERT INTO chunks
				(id, document_id, tenant_id, chunk_index, content, embedding, agent_ids, platforms, source_kind, category, priority, tags, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			c.ID, c.DocumentID, c.TenantID, c.ChunkIndex, c.Content,
			pgvector.NewVector(c.Embedding), c.AgentIDs, c.Platforms,
			string(c.SourceKind), nullableString(c.Category), string(c.Priority),
			c.Tags, c.UpdatedAt,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// DeleteDocument removes a document; its chunks cascade.
func (r *DocumentRepository) DeleteDocument(ctx context.Context, tenantID, documentID string) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM documents WHERE tenant_id = $1 AND id = $2`,
		tenantID, documentID,
	)
	return err
}

// DeleteAll removes every document of a tenant.
func (r *DocumentRepository) DeleteAll(ctx context.Context, tenantID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM documents WHERE tenant_id = $1`, tenantID)
	return err
}

// LoadAll returns a tenant's documents and chunks for store rebuild.
func (r *DocumentRepository) LoadAll(ctx context.Context, tenantID string) ([]*domain.Document, map[string][]domain.Chunk, error) {
	docs, err := r.loadDocuments(ctx, tenantID)
	if err != nil {
		return nil, nil, err
	}

	chunks, err := r.loadChunks(ctx, tenantID)
	if err != nil {
		return nil, nil, err
	}
	return docs, chunks, nil
}

func (r *DocumentRepository) loadDocuments(ctx context.Context, tenantID string) ([]*domain.Document, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, tenant_id, agent_ids, platforms, source_kind, category, priority, tags, content, created_at, updated_at
		 FROM documents WHERE tenant_id = $1 ORDER BY created_at DESC, id DESC`,
		tenantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*domain.Document
	for rows.Next() {
		var d domain.Document
		var sourceKind, priority string
		var category *string
		if err := rows.Scan(&d.ID, &d.TenantID, &d.AgentIDs, &d.Platforms, &sourceKind,
			&category, &priority, &d.Tags, &d.Content, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		d.SourceKind = domain.SourceKind(sourceKind)
		d.Priority = domain.Priority(priority)
		if category != nil {
			d.Category = *category
		}
		docs = append(docs, &d)
	}
	return docs, rows.Err()
}

func (r *DocumentRepository) loadChunks(ctx context.Context, tenantID string) (map[string][]domain.Chunk, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, document_id, tenant_id, chunk_index, content, embedding, agent_ids, platforms, source_kind, category, priority, tags, updated_at
		 FROM chunks WHERE tenant_id = $1 ORDER BY document_id, chunk_index`,
		tenantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	chunksByDoc := make(map[string][]domain.Chunk)
	for rows.Next() {
		var c domain.Chunk
		var embedding pgvector.Vector
		var sourceKind, priority string
		var category *string
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.TenantID, &c.ChunkIndex, &c.Content,
			&embedding, &c.AgentIDs, &c.Platforms, &sourceKind, &category, &priority,
			&c.Tags, &c.UpdatedAt); err != nil {
			return nil, err
		}
		c.Embedding = embedding.Slice()
		c.SourceKind = domain.SourceKind(sourceKind)
		c.Priority = domain.Priority(priority)
		if category != nil {
			c.Category = *category
		}
		chunksByDoc[c.DocumentID] = append(chunksByDoc[c.DocumentID], c)
	}
	return chunksByDoc, rows.Err()
}
