package knowledge

import (
	"context"
	"time"

	"github.com/baatasaari/agenthub-knowledge/internal/domain"
	"github.com/baatasaari/agenthub-knowledge/internal/pagination"
)

// TenantConfigStore durably mirrors tenant configurations.
type TenantConfigStore interface {
	Save(ctx context.Context, cfg *domain.TenantConfig) error
	Get(ctx context.Context, tenantID string) (*domain.TenantConfig, error)
	ListTenantIDs(ctx context.Context) ([]string, error)
}

// DocumentLoader reads a tenant's durable documents and chunks.
type DocumentLoader interface {
	LoadAll(ctx context.Context, tenantID string) ([]*domain.Document, map[string][]domain.Chunk, error)
}

// TenantStats summarizes a tenant's knowledge store usage.
type TenantStats struct {
	TenantID     string `json:"tenant_id"`
	Documents    int    `json:"documents"`
	Chunks       int    `json:"chunks"`
	Agents       int    `json:"agents"`
	MaxDocuments int    `json:"max_documents"`
}

// DocumentPage is one page of a tenant's document listing.
type DocumentPage = pagination.Page[*domain.Document]

// AdminService manages tenant configuration and store lifecycle.
type AdminService struct {
	store   *Store
	cfgRepo TenantConfigStore
	docRepo DocumentLoader
	now     func() time.Time
}

// AdminOption configures an AdminService.
type AdminOption func(*AdminService)

// WithTenantConfigStore enables durable configuration write-through.
func WithTenantConfigStore(repo TenantConfigStore) AdminOption {
	return func(s *AdminService) { s.cfgRepo = repo }
}

// WithDocumentLoader enables store rebuild from durable state.
func WithDocumentLoader(repo DocumentLoader) AdminOption {
	return func(s *AdminService) { s.docRepo = repo }
}

// NewAdminService creates an AdminService.
func NewAdminService(store *Store, opts ...AdminOption) *AdminService {
	s := &AdminService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Configure validates a tenant configuration, applies defaults, installs
// it, and mirrors it durably. Reconfiguration preserves existing
// documents; changing the embedding model while embedded documents
// exist is rejected.
func (s *AdminService) Configure(ctx context.Context, cfg domain.TenantConfig) (*domain.TenantConfig, error) {
	domain.ApplyTenantDefaults(&cfg)
	if err := domain.ValidateTenantConfig(&cfg); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation,
			"tenant configuration is invalid", err)
	}
	if cfg.ConfiguredAt.IsZero() {
		cfg.ConfiguredAt = s.now()
	}

	if err := s.store.Configure(cfg); err != nil {
		return nil, err
	}

	if s.cfgRepo != nil {
		if err := s.cfgRepo.Save(ctx, &cfg); err != nil {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError,
				"failed to persist tenant configuration", err)
		}
	}
	return &cfg, nil
}

// Config returns a tenant's active configuration.
func (s *AdminService) Config(ctx context.Context, tenantID string) (*domain.TenantConfig, error) {
	cfg, err := s.store.Config(tenantID)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Stats reports a tenant's current usage.
func (s *AdminService) Stats(ctx context.Context, tenantID string) (*TenantStats, error) {
	cfg, err := s.store.Config(tenantID)
	if err != nil {
		return nil, err
	}

	docs, err := s.store.DocumentCount(tenantID)
	if err != nil {
		return nil, err
	}
	chunks, err := s.store.ChunkCount(tenantID)
	if err != nil {
		return nil, err
	}

	return &TenantStats{
		TenantID:     tenantID,
		Documents:    docs,
		Chunks:       chunks,
		Agents:       len(cfg.Agents),
		MaxDocuments: cfg.MaxDocuments,
	}, nil
}

// ListDocuments returns one page of a tenant's documents, newest first.
func (s *AdminService) ListDocuments(ctx context.Context, tenantID, cursorToken string, limit int) (*DocumentPage, error) {
	if limit <= 0 {
		limit = 20
	}

	cursor, err := pagination.Decode(cursorToken)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation,
			"cursor is invalid", err)
	}

	var after time.Time
	var afterID string
	if cursor != nil {
		after = cursor.CreatedAt
		afterID = cursor.LastID
	}

	docs, err := s.store.ListDocuments(tenantID, after, afterID, limit+1)
	if err != nil {
		return nil, err
	}

	hasMore := len(docs) > limit
	if hasMore {
		docs = docs[:limit]
	}

	page := &DocumentPage{Items: docs, HasMore: hasMore}
	if hasMore {
		last := docs[len(docs)-1]
		page.NextCursor = pagination.Cursor{CreatedAt: last.CreatedAt, LastID: last.ID}.Encode()
	}
	return page, nil
}

// Rebuild reloads every tenant from durable state into the in-memory
// store. Called once at startup before the server accepts traffic.
func (s *AdminService) Rebuild(ctx context.Context) (int, error) {
	if s.cfgRepo == nil || s.docRepo == nil {
		return 0, nil
	}

	tenantIDs, err := s.cfgRepo.ListTenantIDs(ctx)
	if err != nil {
		return 0, err
	}

	for _, tenantID := range tenantIDs {
		cfg, err := s.cfgRepo.Get(ctx, tenantID)
		if err != nil {
			return 0, err
		}
		docs, chunks, err := s.docRepo.LoadAll(ctx, tenantID)
		if err != nil {
			return 0, err
		}
		s.store.LoadTenant(*cfg, docs, chunks)
	}
	return len(tenantIDs), nil
}
