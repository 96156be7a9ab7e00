//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baatasaari/agenthub-knowledge/internal/domain"
	"github.com/baatasaari/agenthub-knowledge/internal/testutil"
)

func integrationTenantConfig(tenantID string) *domain.TenantConfig {
	return &domain.TenantConfig{
		TenantID:       tenantID,
		EmbeddingModel: "text-embedding-ada-002",
		ChunkSize:      1000,
		ChunkOverlap:   100,
		MaxDocuments:   500,
		Agents: map[string]domain.AgentConfig{
			"agent-1": {
				AgentID:     "agent-1",
				Platforms:   []string{"web", "whatsapp"},
				SourceKinds: []domain.SourceKind{domain.SourceKindFAQ, domain.SourceKindManual},
				MaxChunks:   3,
			},
			"agent-2": {
				AgentID:            "agent-2",
				Platforms:          []string{"web"},
				SourceKinds:        []domain.SourceKind{domain.SourceKindFAQ},
				CustomInstructions: "Answer in one sentence.",
			},
		},
		ConfiguredBy: "admin@example.com",
		ConfiguredAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestTenantConfigRepository_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewTenantConfigRepository(pool)
	cfg := integrationTenantConfig("acme")

	require.NoError(t, repo.Save(ctx, cfg))

	got, err := repo.Get(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, cfg.TenantID, got.TenantID)
	assert.Equal(t, cfg.EmbeddingModel, got.EmbeddingModel)
	assert.Equal(t, cfg.ChunkSize, got.ChunkSize)
	assert.Equal(t, cfg.MaxDocuments, got.MaxDocuments)
	require.Len(t, got.Agents, 2)
	assert.Equal(t, cfg.Agents["agent-1"].Platforms, got.Agents["agent-1"].Platforms)
	assert.Equal(t, cfg.Agents["agent-2"].CustomInstructions, got.Agents["agent-2"].CustomInstructions)
}

func TestTenantConfigRepository_SaveReplacesAgents(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewTenantConfigRepository(pool)
	cfg := integrationTenantConfig("acme")
	require.NoError(t, repo.Save(ctx, cfg))

	delete(cfg.Agents, "agent-2")
	cfg.MaxDocuments = 50
	require.NoError(t, repo.Save(ctx, cfg))

	got, err := repo.Get(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, 50, got.MaxDocuments)
	require.Len(t, got.Agents, 1)
	_, ok := got.Agents["agent-2"]
	assert.False(t, ok)
}

func TestTenantConfigRepository_Get_NotConfigured(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewTenantConfigRepository(pool)

	_, err := repo.Get(ctx, "nobody")
	assert.ErrorIs(t, err, domain.ErrTenantNotConfigured)
}

func TestTenantConfigRepository_ListTenantIDs(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewTenantConfigRepository(pool)
	require.NoError(t, repo.Save(ctx, integrationTenantConfig("acme")))
	require.NoError(t, repo.Save(ctx, integrationTenantConfig("globex")))

	ids, err := repo.ListTenantIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"acme", "globex"}, ids)
}
