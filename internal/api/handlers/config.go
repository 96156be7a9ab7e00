package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"

	"github.com/baatasaari/agenthub-knowledge/internal/api"
	"github.com/baatasaari/agenthub-knowledge/internal/api/middleware"
	"github.com/baatasaari/agenthub-knowledge/internal/domain"
	"github.com/baatasaari/agenthub-knowledge/internal/knowledge"
)

type AdminService interface {
	Configure(ctx context.Context, cfg domain.TenantConfig) (*domain.TenantConfig, error)
	Config(ctx context.Context, tenantID string) (*domain.TenantConfig, error)
	Stats(ctx context.Context, tenantID string) (*knowledge.TenantStats, error)
}

type ConfigHandler struct {
	svc AdminService
}

func NewConfigHandler(svc AdminService) *ConfigHandler {
	return &ConfigHandler{svc: svc}
}

type AgentConfigRequest struct {
	AgentID            string   `json:"agent_id"`
	Platforms          []string `json:"platforms"`
	SourceKinds        []string `json:"source_kinds"`
	MaxChunks          int      `json:"max_chunks"`
	CustomInstructions string   `json:"custom_instructions"`
}

type ConfigureTenantRequest struct {
	EmbeddingModel    string               `json:"embedding_model"`
	ChunkSize         int                  `json:"chunk_size"`
	ChunkOverlap      int                  `json:"chunk_overlap"`
	MaxDocuments      int                  `json:"max_documents"`
	AutoUpdate        bool                 `json:"auto_update"`
	CrossAgentSharing bool                 `json:"cross_agent_sharing"`
	Agents            []AgentConfigRequest `json:"agents"`
	ConfiguredBy      string               `json:"configured_by"`
}

type TenantConfigResponse struct {
	TenantID          string               `json:"tenant_id"`
	EmbeddingModel    string               `json:"embedding_model"`
	ChunkSize         int                  `json:"chunk_size"`
	ChunkOverlap      int                  `json:"chunk_overlap"`
	MaxDocuments      int                  `json:"max_documents"`
	AutoUpdate        bool                 `json:"auto_update"`
	CrossAgentSharing bool                 `json:"cross_agent_sharing"`
	Agents            []AgentConfigRequest `json:"agents"`
	ConfiguredBy      string               `json:"configured_by,omitempty"`
	ConfiguredAt      string               `json:"configured_at"`
}

func configToResponse(cfg *domain.TenantConfig) *TenantConfigResponse {
	agents := make([]AgentConfigRequest, 0, len(cfg.Agents))
	for _, id := range sortedAgentIDs(cfg) {
		agent := cfg.Agents[id]
		kinds := make([]string, 0, len(agent.SourceKinds))
		for _, kind := range agent.SourceKinds {
			kinds = append(kinds, string(kind))
		}
		agents = append(agents, AgentConfigRequest{
			AgentID:            agent.AgentID,
			Platforms:          agent.Platforms,
			SourceKinds:        kinds,
			MaxChunks:          agent.MaxChunks,
			CustomInstructions: agent.CustomInstructions,
		})
	}

	return &TenantConfigResponse{
		TenantID:          cfg.TenantID,
		EmbeddingModel:    cfg.EmbeddingModel,
		ChunkSize:         cfg.ChunkSize,
		ChunkOverlap:      cfg.ChunkOverlap,
		MaxDocuments:      cfg.MaxDocuments,
		AutoUpdate:        cfg.AutoUpdate,
		CrossAgentSharing: cfg.CrossAgentSharing,
		Agents:            agents,
		ConfiguredBy:      cfg.ConfiguredBy,
		ConfiguredAt:      cfg.ConfiguredAt.Format("2006-01-02T15:04:05Z"),
	}
}

func (h *ConfigHandler) Configure(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())

	var req ConfigureTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.EmbeddingModel == "" {
		api.Error(w, http.StatusBadRequest, "embedding_model is required")
		return
	}
	if len(req.Agents) == 0 {
		api.Error(w, http.StatusBadRequest, "at least one agent is required")
		return
	}

	agents := make(map[string]domain.AgentConfig, len(req.Agents))
	for _, a := range req.Agents {
		kinds := make([]domain.SourceKind, 0, len(a.SourceKinds))
		for _, kind := range a.SourceKinds {
			kinds = append(kinds, domain.SourceKind(kind))
		}
		agents[a.AgentID] = domain.AgentConfig{
			AgentID:            a.AgentID,
			Platforms:          a.Platforms,
			SourceKinds:        kinds,
			MaxChunks:          a.MaxChunks,
			CustomInstructions: a.CustomInstructions,
		}
	}

	cfg, err := h.svc.Configure(r.Context(), domain.TenantConfig{
		TenantID:          tenantID,
		EmbeddingModel:    req.EmbeddingModel,
		ChunkSize:         req.ChunkSize,
		ChunkOverlap:      req.ChunkOverlap,
		MaxDocuments:      req.MaxDocuments,
		AutoUpdate:        req.AutoUpdate,
		CrossAgentSharing: req.CrossAgentSharing,
		Agents:            agents,
		ConfiguredBy:      req.ConfiguredBy,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, configToResponse(cfg))
}

func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())

	cfg, err := h.svc.Config(r.Context(), tenantID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, configToResponse(cfg))
}

func (h *ConfigHandler) Stats(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())

	stats, err := h.svc.Stats(r.Context(), tenantID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, stats)
}

func sortedAgentIDs(cfg *domain.TenantConfig) []string {
	ids := cfg.AgentIDs()
	sort.Strings(ids)
	return ids
}
