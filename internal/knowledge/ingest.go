package knowledge

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/baatasaari/agenthub-knowledge/internal/domain"
	"github.com/baatasaari/agenthub-knowledge/internal/telemetry"
)

// DefaultEmbedConcurrency bounds concurrent embedding calls per document.
const DefaultEmbedConcurrency = 4

// EmbeddingSource resolves text to a vector, typically through a cache.
type EmbeddingSource interface {
	GetOrCompute(ctx context.Context, text, model string) ([]float32, error)
}

// ContentFetcher loads raw document content from object storage.
type ContentFetcher interface {
	FetchObject(ctx context.Context, key string) (string, error)
}

// DocumentRepository durably mirrors the in-memory store. All methods
// must be safe to call with state the store has already accepted.
type DocumentRepository interface {
	SaveDocument(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error
	DeleteDocument(ctx context.Context, tenantID, documentID string) error
	DeleteAll(ctx context.Context, tenantID string) error
}

// IngestRequest describes one document to ingest.
type IngestRequest struct {
	TenantID   string
	AgentIDs   []string
	Platforms  []string
	SourceKind domain.SourceKind
	Category   string
	Priority   domain.Priority
	Tags       []string
	Content    string
	ObjectKey  string // set for file-kind documents stored in object storage
}

// IngestResult reports what ingestion produced.
type IngestResult struct {
	Document   *domain.Document
	ChunkCount int
}

// IngestService validates, chunks, embeds, and stores documents. A
// document lands either fully embedded or not at all; partial documents
// never become queryable.
type IngestService struct {
	store       *Store
	embedder    EmbeddingSource
	fetcher     ContentFetcher
	repo        DocumentRepository
	concurrency int
	now         func() time.Time
	newID       func() string
}

// IngestOption configures an IngestService.
type IngestOption func(*IngestService)

// WithContentFetcher enables object-storage content resolution.
func WithContentFetcher(fetcher ContentFetcher) IngestOption {
	return func(s *IngestService) { s.fetcher = fetcher }
}

// WithDocumentRepository enables durable write-through.
func WithDocumentRepository(repo DocumentRepository) IngestOption {
	return func(s *IngestService) { s.repo = repo }
}

// WithEmbedConcurrency bounds concurrent embedding calls.
func WithEmbedConcurrency(n int) IngestOption {
	return func(s *IngestService) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// NewIngestService creates an IngestService.
func NewIngestService(store *Store, embedder EmbeddingSource, opts ...IngestOption) *IngestService {
	s := &IngestService{
		store:       store,
		embedder:    embedder,
		concurrency: DefaultEmbedConcurrency,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest processes one document end to end. It rejects before any
// external call when the tenant, source kind, scoping, or quota do not
// allow the document.
func (s *IngestService) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestService.Ingest", telemetry.SpanAttributes{
		TenantID:  req.TenantID,
		Operation: "ingest",
	})
	defer span.End()

	cfg, err := s.store.Config(req.TenantID)
	if err != nil {
		return nil, err
	}

	if !domain.IsValidSourceKind(req.SourceKind) {
		return nil, domain.NewDomainError(domain.ErrCodeValidation,
			fmt.Sprintf("source kind is invalid: %s", req.SourceKind))
	}
	if !cfg.SourceEnabled(req.SourceKind) {
		return nil, domain.ErrSourceKindDisabled
	}

	for _, agentID := range req.AgentIDs {
		if _, ok := cfg.Agent(agentID); !ok {
			return nil, domain.ErrAgentNotConfigured
		}
	}
	tenantPlatforms := cfg.Platforms()
	for _, platform := range req.Platforms {
		if !containsString(tenantPlatforms, platform) {
			return nil, domain.ErrPlatformNotPermitted
		}
	}

	// Early out before any provider call. The store re-checks the quota
	// under its write lock when the document commits.
	count, err := s.store.DocumentCount(req.TenantID)
	if err != nil {
		return nil, err
	}
	if count >= cfg.MaxDocuments {
		return nil, domain.ErrDocumentQuotaExceeded
	}

	content := req.Content
	if req.ObjectKey != "" {
		if s.fetcher == nil {
			return nil, domain.NewDomainError(domain.ErrCodeValidation,
				"object storage is not configured")
		}
		content, err = s.fetcher.FetchObject(ctx, req.ObjectKey)
		if err != nil {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError,
				"failed to fetch document content", err)
		}
	}

	priority := req.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}

	now := s.now()
	doc := &domain.Document{
		ID:         s.newID(),
		TenantID:   req.TenantID,
		AgentIDs:   scopeAgents(req.AgentIDs, cfg),
		Platforms:  req.Platforms,
		SourceKind: req.SourceKind,
		Category:   req.Category,
		Priority:   priority,
		Tags:       req.Tags,
		Content:    content,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := domain.ValidateDocument(doc); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation,
			"document is invalid", err)
	}

	texts := ChunkText(content, req.SourceKind, ChunkConfig{
		MaxChars: cfg.ChunkSize,
		Overlap:  cfg.ChunkOverlap,
	})
	if len(texts) == 0 {
		return nil, domain.NewDomainError(domain.ErrCodeValidation,
			"document content produced no usable chunks")
	}

	chunks, err := s.embedChunks(ctx, doc, texts, cfg.EmbeddingModel)
	if err != nil {
		return nil, err
	}

	if err := s.store.PutDocument(doc, chunks); err != nil {
		return nil, err
	}

	if s.repo != nil {
		if err := s.repo.SaveDocument(ctx, doc, chunks); err != nil {
			// Keep memory and durable state consistent.
			if _, rollbackErr := s.store.DeleteDocument(doc.TenantID, doc.ID); rollbackErr != nil {
				return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError,
					"failed to persist document and roll back", err)
			}
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError,
				"failed to persist document", err)
		}
	}

	return &IngestResult{Document: doc, ChunkCount: len(chunks)}, nil
}

// embedChunks embeds every chunk with bounded concurrency. Any failure
// aborts the whole document.
func (s *IngestService) embedChunks(ctx context.Context, doc *domain.Document, texts []string, model string) ([]domain.Chunk, error) {
	chunks := make([]domain.Chunk, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, text := range texts {
		g.Go(func() error {
			vector, err := s.embedder.GetOrCompute(gctx, text, model)
			if err != nil {
				return err
			}
			chunks[i] = domain.Chunk{
				ID:         s.newID(),
				DocumentID: doc.ID,
				TenantID:   doc.TenantID,
				ChunkIndex: i,
				Content:    text,
				Embedding:  vector,
				AgentIDs:   doc.AgentIDs,
				Platforms:  doc.Platforms,
				SourceKind: doc.SourceKind,
				Category:   doc.Category,
				Priority:   doc.Priority,
				Tags:       doc.Tags,
				UpdatedAt:  doc.UpdatedAt,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, domain.NewEmbeddingProviderError(err)
	}
	return chunks, nil
}

// DeleteDocument removes a document from memory and the durable mirror.
// Deleting an absent document succeeds with zero chunks removed.
func (s *IngestService) DeleteDocument(ctx context.Context, tenantID, documentID string) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestService.DeleteDocument", telemetry.SpanAttributes{
		TenantID:   tenantID,
		DocumentID: documentID,
		Operation:  "delete",
	})
	defer span.End()

	removed, err := s.store.DeleteDocument(tenantID, documentID)
	if err != nil {
		return 0, err
	}

	if s.repo != nil {
		if err := s.repo.DeleteDocument(ctx, tenantID, documentID); err != nil {
			return removed, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError,
				"failed to delete document from durable store", err)
		}
	}
	return removed, nil
}

// DeleteAll removes every document of a tenant.
func (s *IngestService) DeleteAll(ctx context.Context, tenantID string) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestService.DeleteAll", telemetry.SpanAttributes{
		TenantID:  tenantID,
		Operation: "delete_all",
	})
	defer span.End()

	removed, err := s.store.DeleteAll(tenantID)
	if err != nil {
		return 0, err
	}

	if s.repo != nil {
		if err := s.repo.DeleteAll(ctx, tenantID); err != nil {
			return removed, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError,
				"failed to delete documents from durable store", err)
		}
	}
	return removed, nil
}

// scopeAgents resolves an unrestricted document to its stored agent
// scope. With sharing disabled the scope is pinned to the agents
// configured at ingest time; with sharing enabled the empty scope is
// kept so the chunks stay shared.
func scopeAgents(requested []string, cfg domain.TenantConfig) []string {
	if len(requested) > 0 {
		return requested
	}
	if cfg.CrossAgentSharing {
		return nil
	}
	return cfg.AgentIDs()
}

func containsString(set []string, value string) bool {
	for _, s := range set {
		if s == value {
			return true
		}
	}
	return false
}
