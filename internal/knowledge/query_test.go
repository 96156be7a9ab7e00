package knowledge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baatasaari/agenthub-knowledge/internal/domain"
)

type mapEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   int
}

func (m *mapEmbedder) GetOrCompute(ctx context.Context, text, model string) ([]float32, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if v, ok := m.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 1}, nil
}

func queryFixture(t *testing.T) (*Store, *mapEmbedder, *fakeGenerator, *QueryService) {
	t.Helper()

	store := NewStore()
	store.Configure(testTenantConfig("acme"))

	embedder := &mapEmbedder{vectors: map[string][]float32{
		"What are your hours?": {1, 0, 0},
	}}
	gen := &fakeGenerator{answer: "We are open Monday to Friday, 9am to 5pm."}
	svc := NewQueryService(store, embedder, NewSynthesizer(gen, 0))
	return store, embedder, gen, svc
}

func putChunk(t *testing.T, store *Store, docID string, priority domain.Priority, embedding []float32, content string) {
	t.Helper()

	doc := testDocument("acme", docID)
	doc.Priority = priority
	chunk := testChunk("acme", docID, 0, embedding)
	chunk.Priority = priority
	chunk.Content = content
	require.NoError(t, store.PutDocument(doc, []domain.Chunk{chunk}))
}

func TestQuery_UnconfiguredTenant(t *testing.T) {
	_, embedder, _, svc := queryFixture(t)

	_, err := svc.Query(context.Background(), QueryRequest{
		TenantID: "ghost", AgentID: "agent-1", Platform: "web", Query: "hi?",
	})

	assert.ErrorIs(t, err, domain.ErrTenantNotConfigured)
	assert.Zero(t, embedder.calls)
}

func TestQuery_UnknownAgent(t *testing.T) {
	_, embedder, _, svc := queryFixture(t)

	_, err := svc.Query(context.Background(), QueryRequest{
		TenantID: "acme", AgentID: "agent-99", Platform: "web", Query: "hi?",
	})

	assert.ErrorIs(t, err, domain.ErrAgentNotConfigured)
	assert.Zero(t, embedder.calls)
}

func TestQuery_PlatformNotPermitted(t *testing.T) {
	_, embedder, _, svc := queryFixture(t)

	_, err := svc.Query(context.Background(), QueryRequest{
		TenantID: "acme", AgentID: "agent-1", Platform: "telegram", Query: "hi?",
	})

	assert.ErrorIs(t, err, domain.ErrPlatformNotPermitted)
	assert.Zero(t, embedder.calls)
}

func TestQuery_EmptyQueryRejected(t *testing.T) {
	_, _, _, svc := queryFixture(t)

	_, err := svc.Query(context.Background(), QueryRequest{
		TenantID: "acme", AgentID: "agent-1", Platform: "web", Query: "   ",
	})

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeValidation, domainErr.Code)
}

func TestQuery_NoKnowledgeSkipsProviders(t *testing.T) {
	_, embedder, gen, svc := queryFixture(t)

	result, err := svc.Query(context.Background(), QueryRequest{
		TenantID: "acme", AgentID: "agent-1", Platform: "web", Query: "What are your hours?",
	})

	require.NoError(t, err)
	assert.Equal(t, StatusNoKnowledge, result.Status)
	assert.Equal(t, NoKnowledgeMessage, result.Answer)
	assert.Empty(t, result.Sources)
	assert.Zero(t, embedder.calls, "no embedding call without knowledge")
	assert.Zero(t, gen.calls, "no generation call without knowledge")
}

func TestQuery_AnsweredFromKnowledge(t *testing.T) {
	store, _, _, svc := queryFixture(t)
	putChunk(t, store, "doc-1", domain.PriorityMedium, []float32{1, 0, 0},
		"Clinic hours are 9am to 5pm, Monday to Friday.")

	result, err := svc.Query(context.Background(), QueryRequest{
		TenantID: "acme", AgentID: "agent-1", Platform: "web", Query: "What are your hours?",
	})

	require.NoError(t, err)
	assert.Equal(t, StatusAnswered, result.Status)
	assert.Equal(t, "We are open Monday to Friday, 9am to 5pm.", result.Answer)
	assert.InDelta(t, 1.0, result.RelevanceScore, 1e-6)
	require.Len(t, result.Sources, 1)
	assert.Equal(t, "doc-1", result.Sources[0].DocumentID)
	assert.Contains(t, result.Sources[0].Excerpt, "9am to 5pm")
}

func TestQuery_NoRelevantKnowledge(t *testing.T) {
	store, _, gen, svc := queryFixture(t)
	putChunk(t, store, "doc-1", domain.PriorityMedium, []float32{0, 1, 0},
		"Completely unrelated content about parking.")

	result, err := svc.Query(context.Background(), QueryRequest{
		TenantID: "acme", AgentID: "agent-1", Platform: "web", Query: "What are your hours?",
	})

	require.NoError(t, err)
	assert.Equal(t, StatusNoRelevantKnowledge, result.Status)
	assert.Equal(t, NoKnowledgeMessage, result.Answer)
	assert.Zero(t, gen.calls, "irrelevant knowledge must not reach generation")
}

func TestQuery_PriorityOrdersSources(t *testing.T) {
	store, _, _, svc := queryFixture(t)
	putChunk(t, store, "doc-low", domain.PriorityLow, []float32{1, 0, 0},
		"Low priority note about opening hours.")
	putChunk(t, store, "doc-high", domain.PriorityHigh, []float32{1, 0.3, 0},
		"High priority policy about opening hours.")

	result, err := svc.Query(context.Background(), QueryRequest{
		TenantID: "acme", AgentID: "agent-1", Platform: "web", Query: "What are your hours?",
	})

	require.NoError(t, err)
	require.Len(t, result.Sources, 2)
	assert.Equal(t, "doc-high", result.Sources[0].DocumentID)
	assert.Equal(t, "doc-low", result.Sources[1].DocumentID)
	assert.Greater(t, result.Sources[1].Score, result.Sources[0].Score)
}

func TestQuery_EmbedFailure(t *testing.T) {
	store, embedder, _, svc := queryFixture(t)
	putChunk(t, store, "doc-1", domain.PriorityMedium, []float32{1, 0, 0},
		"Clinic hours are 9am to 5pm.")
	embedder.err = errors.New("quota exhausted")

	_, err := svc.Query(context.Background(), QueryRequest{
		TenantID: "acme", AgentID: "agent-1", Platform: "web", Query: "What are your hours?",
	})

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeEmbeddingProvider, domainErr.Code)
}

func TestQuery_GenerationFallbackKeepsSources(t *testing.T) {
	store, _, gen, svc := queryFixture(t)
	putChunk(t, store, "doc-1", domain.PriorityMedium, []float32{1, 0, 0},
		"Clinic hours are 9am to 5pm.")
	gen.err = errors.New("upstream 503")

	result, err := svc.Query(context.Background(), QueryRequest{
		TenantID: "acme", AgentID: "agent-1", Platform: "web", Query: "What are your hours?",
	})

	require.Error(t, err)
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeGenerationProvider, domainErr.Code)

	require.NotNil(t, result)
	assert.Equal(t, StatusGenerationFallback, result.Status)
	assert.Equal(t, FallbackMessage, result.Answer)
	assert.Len(t, result.Sources, 1, "sources survive a generation failure")
	assert.Zero(t, result.RelevanceScore)
}

func TestQuery_AgentMaxChunksCapsSources(t *testing.T) {
	store, _, _, svc := queryFixture(t)

	cfg := testTenantConfig("acme")
	agent := cfg.Agents["agent-1"]
	agent.MaxChunks = 2
	cfg.Agents["agent-1"] = agent
	store.Configure(cfg)

	for i := 0; i < 5; i++ {
		putChunk(t, store, fmt.Sprintf("doc-%d", i), domain.PriorityMedium,
			[]float32{1, 0, 0}, "Opening hours content variant.")
	}

	result, err := svc.Query(context.Background(), QueryRequest{
		TenantID: "acme", AgentID: "agent-1", Platform: "web", Query: "What are your hours?",
	})

	require.NoError(t, err)
	assert.Len(t, result.Sources, 2)
}

func TestQuery_IsolationBetweenAgents(t *testing.T) {
	store, _, _, svc := queryFixture(t)

	cfg := testTenantConfig("acme")
	cfg.Agents["agent-2"] = domain.AgentConfig{
		AgentID:     "agent-2",
		Platforms:   []string{"web"},
		SourceKinds: []domain.SourceKind{domain.SourceKindFAQ},
	}
	cfg.CrossAgentSharing = false
	store.Configure(cfg)

	doc := testDocument("acme", "doc-1")
	chunk := testChunk("acme", "doc-1", 0, []float32{1, 0, 0})
	chunk.AgentIDs = []string{"agent-1"}
	require.NoError(t, store.PutDocument(doc, []domain.Chunk{chunk}))

	result, err := svc.Query(context.Background(), QueryRequest{
		TenantID: "acme", AgentID: "agent-2", Platform: "web", Query: "What are your hours?",
	})

	require.NoError(t, err)
	assert.Equal(t, StatusNoKnowledge, result.Status)
}

func TestMakeExcerpt(t *testing.T) {
	short := "Short content."
	assert.Equal(t, short, makeExcerpt(short, 200))

	long := strings.Repeat("word ", 100)
	excerpt := makeExcerpt(long, 200)
	assert.LessOrEqual(t, len([]rune(excerpt)), 203)
	assert.True(t, strings.HasSuffix(excerpt, "..."))
	assert.NotContains(t, excerpt, "wor ...")
}
