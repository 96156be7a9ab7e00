package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/baatasaari/agenthub-knowledge/internal/api"
	"github.com/baatasaari/agenthub-knowledge/internal/api/middleware"
	"github.com/baatasaari/agenthub-knowledge/internal/domain"
	"github.com/baatasaari/agenthub-knowledge/internal/knowledge"
)

type IngestionService interface {
	Ingest(ctx context.Context, req knowledge.IngestRequest) (*knowledge.IngestResult, error)
	DeleteDocument(ctx context.Context, tenantID, documentID string) (int, error)
	DeleteAll(ctx context.Context, tenantID string) (int, error)
}

type QueryService interface {
	Query(ctx context.Context, req knowledge.QueryRequest) (*knowledge.QueryResult, error)
}

type DocumentLister interface {
	ListDocuments(ctx context.Context, tenantID, cursor string, limit int) (*knowledge.DocumentPage, error)
}

type KnowledgeHandler struct {
	ingest IngestionService
	query  QueryService
	lister DocumentLister
}

func NewKnowledgeHandler(ingest IngestionService, query QueryService, lister DocumentLister) *KnowledgeHandler {
	return &KnowledgeHandler{ingest: ingest, query: query, lister: lister}
}

type IngestDocumentRequest struct {
	AgentIDs   []string `json:"agent_ids"`
	Platforms  []string `json:"platforms"`
	SourceKind string   `json:"source_kind"`
	Category   string   `json:"category"`
	Priority   string   `json:"priority"`
	Tags       []string `json:"tags"`
	Content    string   `json:"content"`
	ObjectKey  string   `json:"object_key"`
}

type DocumentResponse struct {
	ID         string   `json:"id"`
	TenantID   string   `json:"tenant_id"`
	AgentIDs   []string `json:"agent_ids,omitempty"`
	Platforms  []string `json:"platforms,omitempty"`
	SourceKind string   `json:"source_kind"`
	Category   string   `json:"category,omitempty"`
	Priority   string   `json:"priority"`
	Tags       []string `json:"tags,omitempty"`
	ChunkCount int      `json:"chunk_count,omitempty"`
	CreatedAt  string   `json:"created_at"`
	UpdatedAt  string   `json:"updated_at"`
}

func documentToResponse(d *domain.Document, chunkCount int) *DocumentResponse {
	return &DocumentResponse{
		ID:         d.ID,
		TenantID:   d.TenantID,
		AgentIDs:   d.AgentIDs,
		Platforms:  d.Platforms,
		SourceKind: string(d.SourceKind),
		Category:   d.Category,
		Priority:   string(d.Priority),
		Tags:       d.Tags,
		ChunkCount: chunkCount,
		CreatedAt:  d.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:  d.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func (h *KnowledgeHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())

	var req IngestDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Content == "" && req.ObjectKey == "" {
		api.Error(w, http.StatusBadRequest, "content or object_key is required")
		return
	}
	if req.SourceKind == "" {
		api.Error(w, http.StatusBadRequest, "source_kind is required")
		return
	}

	result, err := h.ingest.Ingest(r.Context(), knowledge.IngestRequest{
		TenantID:   tenantID,
		AgentIDs:   req.AgentIDs,
		Platforms:  req.Platforms,
		SourceKind: domain.SourceKind(req.SourceKind),
		Category:   req.Category,
		Priority:   domain.Priority(req.Priority),
		Tags:       req.Tags,
		Content:    req.Content,
		ObjectKey:  req.ObjectKey,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, documentToResponse(result.Document, result.ChunkCount))
}

type DocumentListResponse struct {
	Items      []*DocumentResponse `json:"items"`
	NextCursor string              `json:"next_cursor,omitempty"`
	HasMore    bool                `json:"has_more"`
}

func (h *KnowledgeHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())

	cursor := r.URL.Query().Get("cursor")
	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	page, err := h.lister.ListDocuments(r.Context(), tenantID, cursor, limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]*DocumentResponse, len(page.Items))
	for i, doc := range page.Items {
		items[i] = documentToResponse(doc, 0)
	}

	api.Success(w, http.StatusOK, DocumentListResponse{
		Items:      items,
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
	})
}

type DeleteDocumentResponse struct {
	DeletedChunks int `json:"deleted_chunks"`
}

func (h *KnowledgeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	documentID := chi.URLParam(r, "documentID")
	if documentID == "" {
		api.Error(w, http.StatusBadRequest, "document id is required")
		return
	}

	removed, err := h.ingest.DeleteDocument(r.Context(), tenantID, documentID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, DeleteDocumentResponse{DeletedChunks: removed})
}

type DeleteAllResponse struct {
	DeletedDocuments int `json:"deleted_documents"`
}

func (h *KnowledgeHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())

	removed, err := h.ingest.DeleteAll(r.Context(), tenantID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, DeleteAllResponse{DeletedDocuments: removed})
}

type QueryRequest struct {
	AgentID  string `json:"agent_id"`
	Platform string `json:"platform"`
	Query    string `json:"query"`
}

func (h *KnowledgeHandler) Query(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.AgentID == "" {
		api.Error(w, http.StatusBadRequest, "agent_id is required")
		return
	}
	if req.Platform == "" {
		api.Error(w, http.StatusBadRequest, "platform is required")
		return
	}
	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	result, err := h.query.Query(r.Context(), knowledge.QueryRequest{
		TenantID: tenantID,
		AgentID:  req.AgentID,
		Platform: req.Platform,
		Query:    req.Query,
	})
	if err != nil {
		// A fallback result is still an answer for the caller; the
		// failure is logged rather than surfaced as an error status.
		if result != nil && result.Status == knowledge.StatusGenerationFallback {
			log.Printf("generation fallback for tenant %s: %v", tenantID, err)
			api.Success(w, http.StatusOK, result)
			return
		}
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, result)
}
