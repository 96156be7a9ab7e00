package knowledge

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/baatasaari/agenthub-knowledge/internal/domain"
	"github.com/baatasaari/agenthub-knowledge/internal/telemetry"
)

// QueryStatus tells the caller how the answer was produced.
type QueryStatus string

const (
	// StatusAnswered means the answer is grounded in retrieved knowledge.
	StatusAnswered QueryStatus = "answered"
	// StatusNoKnowledge means the scope holds no visible chunks at all.
	StatusNoKnowledge QueryStatus = "no_knowledge"
	// StatusNoRelevantKnowledge means chunks exist but none cleared the
	// similarity threshold.
	StatusNoRelevantKnowledge QueryStatus = "no_relevant_knowledge"
	// StatusGenerationFallback means relevant knowledge was found but the
	// generation provider failed, so a canned answer was returned.
	StatusGenerationFallback QueryStatus = "generation_fallback"
)

// ExcerptLength is the maximum length of a source excerpt.
const ExcerptLength = 200

// Source is one attributed piece of knowledge behind an answer.
type Source struct {
	DocumentID string            `json:"document_id"`
	ChunkID    string            `json:"chunk_id"`
	Excerpt    string            `json:"excerpt"`
	Category   string            `json:"category,omitempty"`
	Priority   domain.Priority   `json:"priority"`
	SourceKind domain.SourceKind `json:"source_kind"`
	Score      float64           `json:"score"`
}

// QueryRequest scopes one question to a tenant, agent, and platform.
type QueryRequest struct {
	TenantID string
	AgentID  string
	Platform string
	Query    string
}

// QueryResult is the engine's answer.
type QueryResult struct {
	Answer         string      `json:"answer"`
	Sources        []Source    `json:"sources,omitempty"`
	RelevanceScore float64     `json:"relevance_score"`
	Status         QueryStatus `json:"status"`
}

// QueryService answers scoped questions from the knowledge store.
type QueryService struct {
	store       *Store
	embedder    EmbeddingSource
	synthesizer *Synthesizer
	rankCfg     RankConfig
	timeout     time.Duration
}

// QueryOption configures a QueryService.
type QueryOption func(*QueryService)

// WithRankConfig overrides similarity threshold and result cap.
func WithRankConfig(cfg RankConfig) QueryOption {
	return func(s *QueryService) { s.rankCfg = cfg }
}

// WithQueryTimeout bounds each query end to end.
func WithQueryTimeout(d time.Duration) QueryOption {
	return func(s *QueryService) { s.timeout = d }
}

// NewQueryService creates a QueryService.
func NewQueryService(store *Store, embedder EmbeddingSource, synthesizer *Synthesizer, opts ...QueryOption) *QueryService {
	s := &QueryService{
		store:       store,
		embedder:    embedder,
		synthesizer: synthesizer,
		rankCfg:     DefaultRankConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Query retrieves, ranks, and synthesizes an answer for the scoped
// question. Scope validation failures return configuration errors before
// any external call. A generation failure still returns a usable result
// (status generation_fallback, sources intact) alongside the error so the
// caller can respond and report.
func (s *QueryService) Query(ctx context.Context, req QueryRequest) (*QueryResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "QueryService.Query", telemetry.SpanAttributes{
		TenantID:  req.TenantID,
		AgentID:   req.AgentID,
		Operation: "query",
	})
	defer span.End()

	cfg, err := s.store.Config(req.TenantID)
	if err != nil {
		return nil, err
	}

	agent, ok := cfg.Agent(req.AgentID)
	if !ok {
		return nil, domain.ErrAgentNotConfigured
	}
	if !agent.AllowsPlatform(req.Platform) {
		return nil, domain.ErrPlatformNotPermitted
	}
	if strings.TrimSpace(req.Query) == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "query text is required")
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	visible, err := s.store.ChunksVisibleTo(req.TenantID, req.AgentID, req.Platform)
	if err != nil {
		return nil, err
	}
	if len(visible) == 0 {
		// Nothing to retrieve; answer without touching any provider.
		return &QueryResult{
			Answer: NoKnowledgeMessage,
			Status: StatusNoKnowledge,
		}, nil
	}

	queryEmbedding, err := s.embedder.GetOrCompute(ctx, req.Query, cfg.EmbeddingModel)
	if err != nil {
		return nil, domain.NewEmbeddingProviderError(err)
	}

	rankCfg := s.rankCfg
	if agent.MaxChunks > 0 && agent.MaxChunks < rankCfg.TopK {
		rankCfg.TopK = agent.MaxChunks
	}

	ranked := Rank(visible, queryEmbedding, rankCfg)
	if len(ranked) == 0 {
		return &QueryResult{
			Answer: NoKnowledgeMessage,
			Status: StatusNoRelevantKnowledge,
		}, nil
	}

	sources := make([]Source, 0, len(ranked))
	for _, sc := range ranked {
		sources = append(sources, Source{
			DocumentID: sc.Chunk.DocumentID,
			ChunkID:    sc.Chunk.ID,
			Excerpt:    makeExcerpt(sc.Chunk.Content, ExcerptLength),
			Category:   sc.Chunk.Category,
			Priority:   sc.Chunk.Priority,
			SourceKind: sc.Chunk.SourceKind,
			Score:      sc.Score,
		})
	}

	answer, err := s.synthesizer.Synthesize(ctx, req.Query, ranked, agent.CustomInstructions)
	if err != nil {
		return &QueryResult{
			Answer:  answer,
			Sources: sources,
			Status:  StatusGenerationFallback,
		}, err
	}

	return &QueryResult{
		Answer:         answer,
		Sources:        sources,
		RelevanceScore: ranked[0].Score,
		Status:         StatusAnswered,
	}, nil
}

// makeExcerpt trims content to at most maxLen runes, cutting back to a
// word boundary and appending an ellipsis when truncated.
func makeExcerpt(content string, maxLen int) string {
	content = strings.TrimSpace(content)
	runes := []rune(content)
	if len(runes) <= maxLen {
		return content
	}

	cut := maxLen
	for i := maxLen; i > maxLen/2; i-- {
		if unicode.IsSpace(runes[i-1]) {
			cut = i - 1
			break
		}
	}
	return strings.TrimSpace(string(runes[:cut])) + "..."
}
