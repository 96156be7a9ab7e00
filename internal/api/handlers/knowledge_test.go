package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/baatasaari/agenthub-knowledge/internal/api/middleware"
	"github.com/baatasaari/agenthub-knowledge/internal/domain"
	"github.com/baatasaari/agenthub-knowledge/internal/knowledge"
)

type MockIngestionService struct {
	mock.Mock
}

func (m *MockIngestionService) Ingest(ctx context.Context, req knowledge.IngestRequest) (*knowledge.IngestResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*knowledge.IngestResult), args.Error(1)
}

func (m *MockIngestionService) DeleteDocument(ctx context.Context, tenantID, documentID string) (int, error) {
	args := m.Called(ctx, tenantID, documentID)
	return args.Int(0), args.Error(1)
}

func (m *MockIngestionService) DeleteAll(ctx context.Context, tenantID string) (int, error) {
	args := m.Called(ctx, tenantID)
	return args.Int(0), args.Error(1)
}

type MockQueryService struct {
	mock.Mock
}

func (m *MockQueryService) Query(ctx context.Context, req knowledge.QueryRequest) (*knowledge.QueryResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*knowledge.QueryResult), args.Error(1)
}

type MockDocumentLister struct {
	mock.Mock
}

func (m *MockDocumentLister) ListDocuments(ctx context.Context, tenantID, cursor string, limit int) (*knowledge.DocumentPage, error) {
	args := m.Called(ctx, tenantID, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*knowledge.DocumentPage), args.Error(1)
}

func newTestDocument() *domain.Document {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	return &domain.Document{
		ID:         "doc-123",
		TenantID:   "acme",
		SourceKind: domain.SourceKindFAQ,
		Category:   "hours",
		Priority:   domain.PriorityHigh,
		Content:    "Clinic hours are 9am to 5pm.",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func requestWithTenant(method, url string, body []byte) *http.Request {
	req := httptest.NewRequest(method, url, bytes.NewReader(body))
	ctx := context.WithValue(req.Context(), middleware.TenantIDKey, "acme")
	return req.WithContext(ctx)
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data, ok := resp["data"].(map[string]interface{})
	require.True(t, ok, "response has no data object: %s", w.Body.String())
	return data
}

func TestKnowledgeHandler_Ingest_Success(t *testing.T) {
	mockIngest := new(MockIngestionService)
	handler := NewKnowledgeHandler(mockIngest, nil, nil)

	mockIngest.On("Ingest", mock.Anything, mock.MatchedBy(func(req knowledge.IngestRequest) bool {
		return req.TenantID == "acme" && req.SourceKind == domain.SourceKindFAQ
	})).Return(&knowledge.IngestResult{Document: newTestDocument(), ChunkCount: 3}, nil)

	body := `{"source_kind":"faq","category":"hours","priority":"high","content":"Clinic hours are 9am to 5pm."}`
	req := requestWithTenant(http.MethodPost, "/tenants/acme/documents", []byte(body))
	w := httptest.NewRecorder()

	handler.Ingest(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "doc-123", data["id"])
	assert.Equal(t, float64(3), data["chunk_count"])
	mockIngest.AssertExpectations(t)
}

func TestKnowledgeHandler_Ingest_MissingContent(t *testing.T) {
	handler := NewKnowledgeHandler(new(MockIngestionService), nil, nil)

	body := `{"source_kind":"faq"}`
	req := requestWithTenant(http.MethodPost, "/tenants/acme/documents", []byte(body))
	w := httptest.NewRecorder()

	handler.Ingest(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestKnowledgeHandler_Ingest_QuotaExceeded(t *testing.T) {
	mockIngest := new(MockIngestionService)
	handler := NewKnowledgeHandler(mockIngest, nil, nil)

	mockIngest.On("Ingest", mock.Anything, mock.Anything).
		Return(nil, domain.ErrDocumentQuotaExceeded)

	body := `{"source_kind":"faq","content":"some content here"}`
	req := requestWithTenant(http.MethodPost, "/tenants/acme/documents", []byte(body))
	w := httptest.NewRecorder()

	handler.Ingest(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "CAPACITY_ERROR")
}

func TestKnowledgeHandler_Ingest_UnconfiguredTenant(t *testing.T) {
	mockIngest := new(MockIngestionService)
	handler := NewKnowledgeHandler(mockIngest, nil, nil)

	mockIngest.On("Ingest", mock.Anything, mock.Anything).
		Return(nil, domain.ErrTenantNotConfigured)

	body := `{"source_kind":"faq","content":"some content here"}`
	req := requestWithTenant(http.MethodPost, "/tenants/acme/documents", []byte(body))
	w := httptest.NewRecorder()

	handler.Ingest(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "CONFIGURATION_ERROR")
}

func TestKnowledgeHandler_List_Success(t *testing.T) {
	mockLister := new(MockDocumentLister)
	handler := NewKnowledgeHandler(nil, nil, mockLister)

	mockLister.On("ListDocuments", mock.Anything, "acme", "", 20).
		Return(&knowledge.DocumentPage{
			Items:   []*domain.Document{newTestDocument()},
			HasMore: false,
		}, nil)

	req := requestWithTenant(http.MethodGet, "/tenants/acme/documents", nil)
	w := httptest.NewRecorder()

	handler.List(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	items := data["items"].([]interface{})
	assert.Len(t, items, 1)
	mockLister.AssertExpectations(t)
}

func TestKnowledgeHandler_Delete_Success(t *testing.T) {
	mockIngest := new(MockIngestionService)
	handler := NewKnowledgeHandler(mockIngest, nil, nil)

	mockIngest.On("DeleteDocument", mock.Anything, "acme", "doc-123").Return(4, nil)

	req := requestWithTenant(http.MethodDelete, "/tenants/acme/documents/doc-123", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("documentID", "doc-123")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	w := httptest.NewRecorder()

	handler.Delete(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, float64(4), data["deleted_chunks"])
	mockIngest.AssertExpectations(t)
}

func TestKnowledgeHandler_DeleteAll_Success(t *testing.T) {
	mockIngest := new(MockIngestionService)
	handler := NewKnowledgeHandler(mockIngest, nil, nil)

	mockIngest.On("DeleteAll", mock.Anything, "acme").Return(7, nil)

	req := requestWithTenant(http.MethodDelete, "/tenants/acme/documents", nil)
	w := httptest.NewRecorder()

	handler.DeleteAll(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, float64(7), data["deleted_documents"])
}

func TestKnowledgeHandler_Query_Success(t *testing.T) {
	mockQuery := new(MockQueryService)
	handler := NewKnowledgeHandler(nil, mockQuery, nil)

	mockQuery.On("Query", mock.Anything, knowledge.QueryRequest{
		TenantID: "acme", AgentID: "agent-1", Platform: "web", Query: "What are your hours?",
	}).Return(&knowledge.QueryResult{
		Answer:         "We are open 9 to 5.",
		Status:         knowledge.StatusAnswered,
		RelevanceScore: 0.91,
	}, nil)

	body := `{"agent_id":"agent-1","platform":"web","query":"What are your hours?"}`
	req := requestWithTenant(http.MethodPost, "/tenants/acme/query", []byte(body))
	w := httptest.NewRecorder()

	handler.Query(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "We are open 9 to 5.", data["answer"])
	assert.Equal(t, "answered", data["status"])
	mockQuery.AssertExpectations(t)
}

func TestKnowledgeHandler_Query_MissingFields(t *testing.T) {
	handler := NewKnowledgeHandler(nil, new(MockQueryService), nil)

	for _, body := range []string{
		`{"platform":"web","query":"hi?"}`,
		`{"agent_id":"agent-1","query":"hi?"}`,
		`{"agent_id":"agent-1","platform":"web"}`,
	} {
		req := requestWithTenant(http.MethodPost, "/tenants/acme/query", []byte(body))
		w := httptest.NewRecorder()

		handler.Query(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code, "body: %s", body)
	}
}

func TestKnowledgeHandler_Query_GenerationFallbackIsOK(t *testing.T) {
	mockQuery := new(MockQueryService)
	handler := NewKnowledgeHandler(nil, mockQuery, nil)

	fallback := &knowledge.QueryResult{
		Answer:  knowledge.FallbackMessage,
		Status:  knowledge.StatusGenerationFallback,
		Sources: []knowledge.Source{{DocumentID: "doc-123", ChunkID: "c-1"}},
	}
	mockQuery.On("Query", mock.Anything, mock.Anything).
		Return(fallback, domain.NewGenerationProviderError(assert.AnError))

	body := `{"agent_id":"agent-1","platform":"web","query":"What are your hours?"}`
	req := requestWithTenant(http.MethodPost, "/tenants/acme/query", []byte(body))
	w := httptest.NewRecorder()

	handler.Query(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "generation_fallback", data["status"])
	assert.Len(t, data["sources"], 1)
}

func TestKnowledgeHandler_Query_EmbeddingProviderError(t *testing.T) {
	mockQuery := new(MockQueryService)
	handler := NewKnowledgeHandler(nil, mockQuery, nil)

	mockQuery.On("Query", mock.Anything, mock.Anything).
		Return(nil, domain.NewEmbeddingProviderError(assert.AnError))

	body := `{"agent_id":"agent-1","platform":"web","query":"What are your hours?"}`
	req := requestWithTenant(http.MethodPost, "/tenants/acme/query", []byte(body))
	w := httptest.NewRecorder()

	handler.Query(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "EMBEDDING_PROVIDER_ERROR")
}
