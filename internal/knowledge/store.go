package knowledge

import (
	"sort"
	"sync"
	"time"

	"github.com/baatasaari/agenthub-knowledge/internal/domain"
)

// Store is the in-memory knowledge store. Tenants are fully partitioned:
// each tenant has its own lock, config, documents, and chunks, so reads
// and writes for different tenants never contend.
type Store struct {
	mu      sync.RWMutex
	tenants map[string]*tenantStore
}

type tenantStore struct {
	mu        sync.RWMutex
	config    domain.TenantConfig
	documents map[string]*domain.Document
	chunks    map[string][]domain.Chunk // documentID -> chunks
	dimension int                       // 0 until the first chunk lands
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{tenants: make(map[string]*tenantStore)}
}

// Configure installs or replaces a tenant's configuration. Existing
// documents and chunks survive reconfiguration, so the embedding model
// is locked while embedded chunks exist: vectors from one model cannot
// be compared against queries embedded with another.
func (s *Store) Configure(cfg domain.TenantConfig) error {
	s.mu.Lock()
	ts, ok := s.tenants[cfg.TenantID]
	if !ok {
		ts = &tenantStore{
			documents: make(map[string]*domain.Document),
			chunks:    make(map[string][]domain.Chunk),
		}
		s.tenants[cfg.TenantID] = ts
	}
	s.mu.Unlock()

	ts.mu.Lock()
	defer ts.mu.Unlock()

	if cfg.EmbeddingModel != ts.config.EmbeddingModel && ts.hasEmbeddedChunks() {
		return domain.ErrEmbeddingModelLocked
	}
	ts.config = cfg
	return nil
}

// hasEmbeddedChunks reports whether any stored chunk carries a vector.
// Callers must hold ts.mu.
func (ts *tenantStore) hasEmbeddedChunks() bool {
	for _, chunks := range ts.chunks {
		for i := range chunks {
			if len(chunks[i].Embedding) > 0 {
				return true
			}
		}
	}
	return false
}

// Config returns the tenant's configuration.
func (s *Store) Config(tenantID string) (domain.TenantConfig, error) {
	ts, err := s.tenant(tenantID)
	if err != nil {
		return domain.TenantConfig{}, err
	}

	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return ts.config, nil
}

// Configured reports whether the tenant has been configured.
func (s *Store) Configured(tenantID string) bool {
	s.mu.RLock()
	_, ok := s.tenants[tenantID]
	s.mu.RUnlock()
	return ok
}

// PutDocument stores a document and its chunks atomically. The first
// chunk ever stored for a tenant fixes the tenant's embedding
// dimensionality; later documents must match it. The document quota is
// checked under the same lock as the commit, so concurrent ingests for
// one tenant cannot overshoot it.
func (s *Store) PutDocument(doc *domain.Document, chunks []domain.Chunk) error {
	ts, err := s.tenant(doc.TenantID)
	if err != nil {
		return err
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()

	if _, exists := ts.documents[doc.ID]; !exists &&
		ts.config.MaxDocuments > 0 && len(ts.documents) >= ts.config.MaxDocuments {
		return domain.ErrDocumentQuotaExceeded
	}

	dimension := ts.dimension
	for i := range chunks {
		n := len(chunks[i].Embedding)
		if n == 0 {
			continue
		}
		if dimension == 0 {
			dimension = n
			continue
		}
		if n != dimension {
			return domain.ErrEmbeddingDimensionMismatch
		}
	}

	copied := make([]domain.Chunk, len(chunks))
	copy(copied, chunks)

	ts.documents[doc.ID] = doc
	ts.chunks[doc.ID] = copied
	ts.dimension = dimension
	return nil
}

// Document returns one document by id.
func (s *Store) Document(tenantID, documentID string) (*domain.Document, error) {
	ts, err := s.tenant(tenantID)
	if err != nil {
		return nil, err
	}

	ts.mu.RLock()
	defer ts.mu.RUnlock()

	doc, ok := ts.documents[documentID]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	return doc, nil
}

// DeleteDocument removes a document and all of its chunks, returning how
// many chunks were removed. Deleting an absent document is a no-op.
func (s *Store) DeleteDocument(tenantID, documentID string) (int, error) {
	ts, err := s.tenant(tenantID)
	if err != nil {
		return 0, err
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()

	removed := len(ts.chunks[documentID])
	delete(ts.documents, documentID)
	delete(ts.chunks, documentID)
	return removed, nil
}

// DeleteAll removes every document and chunk of a tenant, returning the
// number of documents removed. The configuration survives.
func (s *Store) DeleteAll(tenantID string) (int, error) {
	ts, err := s.tenant(tenantID)
	if err != nil {
		return 0, err
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()

	removed := len(ts.documents)
	ts.documents = make(map[string]*domain.Document)
	ts.chunks = make(map[string][]domain.Chunk)
	ts.dimension = 0
	return removed, nil
}

// ChunksVisibleTo returns the tenant's chunks visible to the given agent
// and platform, honoring the tenant's cross-agent sharing setting. The
// result is a snapshot; callers may not mutate chunk embeddings.
func (s *Store) ChunksVisibleTo(tenantID, agentID, platform string) ([]domain.Chunk, error) {
	ts, err := s.tenant(tenantID)
	if err != nil {
		return nil, err
	}

	ts.mu.RLock()
	defer ts.mu.RUnlock()

	sharing := ts.config.CrossAgentSharing
	var visible []domain.Chunk
	for _, docChunks := range ts.chunks {
		for _, chunk := range docChunks {
			if chunk.VisibleTo(agentID, platform, sharing) {
				visible = append(visible, chunk)
			}
		}
	}
	return visible, nil
}

// DocumentCount returns the number of documents a tenant holds.
func (s *Store) DocumentCount(tenantID string) (int, error) {
	ts, err := s.tenant(tenantID)
	if err != nil {
		return 0, err
	}

	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return len(ts.documents), nil
}

// ChunkCount returns the number of chunks a tenant holds.
func (s *Store) ChunkCount(tenantID string) (int, error) {
	ts, err := s.tenant(tenantID)
	if err != nil {
		return 0, err
	}

	ts.mu.RLock()
	defer ts.mu.RUnlock()

	total := 0
	for _, docChunks := range ts.chunks {
		total += len(docChunks)
	}
	return total, nil
}

// ListDocuments returns the tenant's documents ordered newest first and
// id descending, starting strictly after the cursor position.
func (s *Store) ListDocuments(tenantID string, afterCreatedAt time.Time, afterID string, limit int) ([]*domain.Document, error) {
	ts, err := s.tenant(tenantID)
	if err != nil {
		return nil, err
	}

	ts.mu.RLock()
	docs := make([]*domain.Document, 0, len(ts.documents))
	for _, doc := range ts.documents {
		docs = append(docs, doc)
	}
	ts.mu.RUnlock()

	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].CreatedAt.After(docs[j].CreatedAt)
		}
		return docs[i].ID > docs[j].ID
	})

	start := 0
	if !afterCreatedAt.IsZero() {
		for i, doc := range docs {
			if doc.CreatedAt.Before(afterCreatedAt) ||
				(doc.CreatedAt.Equal(afterCreatedAt) && doc.ID < afterID) {
				start = i
				break
			}
			start = len(docs)
		}
	}

	docs = docs[start:]
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

// LoadTenant installs a tenant's config, documents, and chunks in one
// shot, bypassing dimension re-derivation. Used to rebuild the store
// from durable state at startup.
func (s *Store) LoadTenant(cfg domain.TenantConfig, docs []*domain.Document, chunksByDoc map[string][]domain.Chunk) {
	ts := &tenantStore{
		config:    cfg,
		documents: make(map[string]*domain.Document, len(docs)),
		chunks:    make(map[string][]domain.Chunk, len(chunksByDoc)),
	}
	for _, doc := range docs {
		ts.documents[doc.ID] = doc
	}
	for docID, chunks := range chunksByDoc {
		ts.chunks[docID] = chunks
		for _, chunk := range chunks {
			if ts.dimension == 0 && len(chunk.Embedding) > 0 {
				ts.dimension = len(chunk.Embedding)
			}
		}
	}

	s.mu.Lock()
	s.tenants[cfg.TenantID] = ts
	s.mu.Unlock()
}

// TenantIDs returns the ids of all configured tenants.
func (s *Store) TenantIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.tenants))
	for id := range s.tenants {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Store) tenant(tenantID string) (*tenantStore, error) {
	s.mu.RLock()
	ts, ok := s.tenants[tenantID]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrTenantNotConfigured
	}
	return ts, nil
}
