package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/baatasaari/agenthub-knowledge/internal/domain"
)

// TenantConfigRepository persists tenant configurations.
type TenantConfigRepository struct {
	pool *pgxpool.Pool
}

func NewTenantConfigRepository(pool *pgxpool.Pool) *TenantConfigRepository {
	return &TenantConfigRepository{pool: pool}
}

// Save upserts a tenant's configuration and replaces its agent set in a
// single transaction.
func (r *TenantConfigRepository) Save(ctx context.Context, cfg *domain.TenantConfig) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO tenant_configs
			(tenant_id, embedding_model, chunk_size, chunk_overlap, max_documents, auto_update, cross_agent_sharing, configured_by, configured_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (tenant_id) DO UPDATE SET
			embedding_model = EXCLUDED.embedding_model,
			chunk_size = EXCLUDED.chunk_size,
			chunk_overlap = EXCLUDED.chunk_overlap,
			max_documents = EXCLUDED.max_documents,
			auto_update = EXCLUDED.auto_update,
			cross_agent_sharing = EXCLUDED.cross_agent_sharing,
			configured_by = EXCLUDED.configured_by,
			configured_at = EXCLUDED.configured_at`,
		cfg.TenantID, cfg.EmbeddingModel, cfg.ChunkSize, cfg.ChunkOverlap,
		cfg.MaxDocuments, cfg.AutoUpdate, cfg.CrossAgentSharing,
		nullableString(cfg.ConfiguredBy), cfg.ConfiguredAt,
	)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `DELETE FROM agent_configs WHERE tenant_id = $1`, cfg.TenantID)
	if err != nil {
		return err
	}

	for _, agent := range cfg.Agents {
		sourceKinds := make([]string, 0, len(agent.SourceKinds))
		for _, kind := range agent.SourceKinds {
			sourceKinds = append(sourceKinds, string(kind))
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO agent_configs
				(tenant_id, agent_id, platforms, source_kinds, max_chunks, custom_instructions)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			cfg.TenantID, agent.AgentID, agent.Platforms, sourceKinds,
			agent.MaxChunks, nullableString(agent.CustomInstructions),
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// Get loads one tenant's configuration.
func (r *TenantConfigRepository) Get(ctx context.Context, tenantID string) (*domain.TenantConfig, error) {
	var cfg domain.TenantConfig
	var configuredBy *string
	err := r.pool.QueryRow(ctx,
		`SELECT tenant_id, embedding_model, chunk_size, chunk_overlap, max_documents, auto_update, cross_agent_sharing, configured_by, configured_at
		 FROM tenant_configs WHERE tenant_id = $1`,
		tenantID,
	).Scan(&cfg.TenantID, &cfg.EmbeddingModel, &cfg.ChunkSize, &cfg.ChunkOverlap,
		&cfg.MaxDocuments, &cfg.AutoUpdate, &cfg.CrossAgentSharing, &configuredBy, &cfg.ConfiguredAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTenantNotConfigured
		}
		return nil, err
	}
	if configuredBy != nil {
		cfg.ConfiguredBy = *configuredBy
	}

	cfg.Agents, err = r.loadAgents(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ListTenantIDs returns all configured tenant ids.
func (r *TenantConfigRepository) ListTenantIDs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT tenant_id FROM tenant_configs ORDER BY tenant_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *TenantConfigRepository) loadAgents(ctx context.Context, tenantID string) (map[string]domain.AgentConfig, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT agent_id, platforms, source_kinds, max_chunks, custom_instructions
		 FROM agent_configs WHERE tenant_id = $1`,
		tenantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	agents := make(map[string]domain.AgentConfig)
	for rows.Next() {
		var agent domain.AgentConfig
		var sourceKinds []string
		var instructions *string
		if err := rows.Scan(&agent.AgentID, &agent.Platforms, &sourceKinds, &agent.MaxChunks, &instructions); err != nil {
			return nil, err
		}
		agent.SourceKinds = make([]domain.SourceKind, 0, len(sourceKinds))
		for _, kind := range sourceKinds {
			agent.SourceKinds = append(agent.SourceKinds, domain.SourceKind(kind))
		}
		if instructions != nil {
			agent.CustomInstructions = *instructions
		}
		agents[agent.AgentID] = agent
	}
	return agents, rows.Err()
}
