package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/baatasaari/agenthub-knowledge/internal/config"
	"github.com/baatasaari/agenthub-knowledge/internal/domain"
	"github.com/baatasaari/agenthub-knowledge/internal/repository"
)

func TenantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Manage tenant configurations",
		Long:  "Configure, inspect, and list tenants directly against the database",
	}

	cmd.AddCommand(TenantConfigureCmd())
	cmd.AddCommand(TenantShowCmd())
	cmd.AddCommand(TenantListCmd())

	return cmd
}

// tenantConfigFile is the JSON shape accepted by `tenant configure`.
type tenantConfigFile struct {
	TenantID          string `json:"tenant_id"`
	EmbeddingModel    string `json:"embedding_model"`
	ChunkSize         int    `json:"chunk_size"`
	ChunkOverlap      int    `json:"chunk_overlap"`
	MaxDocuments      int    `json:"max_documents"`
	AutoUpdate        bool   `json:"auto_update"`
	CrossAgentSharing bool   `json:"cross_agent_sharing"`
	Agents            []struct {
		AgentID            string   `json:"agent_id"`
		Platforms          []string `json:"platforms"`
		SourceKinds        []string `json:"source_kinds"`
		MaxChunks          int      `json:"max_chunks"`
		CustomInstructions string   `json:"custom_instructions"`
	} `json:"agents"`
	ConfiguredBy string `json:"configured_by"`
}

func TenantConfigureCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "configure <config.json>",
		Short: "Create or replace a tenant configuration",
		Long:  "Create or replace a tenant configuration from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE:  runTenantConfigure,
	}

	return cmd
}

func runTenantConfigure(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var file tenantConfigFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	agents := make(map[string]domain.AgentConfig, len(file.Agents))
	for _, a := range file.Agents {
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

	cfg := &domain.TenantConfig{
		TenantID:          file.TenantID,
		EmbeddingModel:    file.EmbeddingModel,
		ChunkSize:         file.ChunkSize,
		ChunkOverlap:      file.ChunkOverlap,
		MaxDocuments:      file.MaxDocuments,
		AutoUpdate:        file.AutoUpdate,
		CrossAgentSharing: file.CrossAgentSharing,
		Agents:            agents,
		ConfiguredBy:      file.ConfiguredBy,
		ConfiguredAt:      time.Now().UTC(),
	}

	domain.ApplyTenantDefaults(cfg)
	if err := domain.ValidateTenantConfig(cfg); err != nil {
		return fmt.Errorf("invalid tenant config: %w", err)
	}

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	repo := repository.NewTenantConfigRepository(pool)
	if err := repo.Save(ctx, cfg); err != nil {
		return fmt.Errorf("failed to save tenant config: %w", err)
	}

	fmt.Printf("Tenant configured: %s (%d agents)\n", cfg.TenantID, len(cfg.Agents))
	return nil
}

func TenantShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <tenant-id>",
		Short: "Show a tenant configuration",
		Args:  cobra.ExactArgs(1),
		RunE:  runTenantShow,
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runTenantShow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	tenantID := args[0]
	outputFormat, _ := cmd.Flags().GetString("output")

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	repo := repository.NewTenantConfigRepository(pool)
	cfg, err := repo.Get(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("failed to load tenant config: %w", err)
	}

	if outputFormat == "json" {
		jsonBytes, _ := json.MarshalIndent(cfg, "", "  ")
		fmt.Println(string(jsonBytes))
		return nil
	}

	fmt.Printf("Tenant: %s\n", cfg.TenantID)
	fmt.Printf("  Embedding model:     %s\n", cfg.EmbeddingModel)
	fmt.Printf("  Chunk size/overlap:  %d/%d\n", cfg.ChunkSize, cfg.ChunkOverlap)
	fmt.Printf("  Max documents:       %d\n", cfg.MaxDocuments)
	fmt.Printf("  Cross-agent sharing: %t\n", cfg.CrossAgentSharing)
	fmt.Printf("  Configured at:       %s\n", cfg.ConfiguredAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("  Agents (%d):\n", len(cfg.Agents))
	for _, id := range cfg.AgentIDs() {
		agent := cfg.Agents[id]
		fmt.Printf("    %s: platforms=%v source_kinds=%v\n", id, agent.Platforms, agent.SourceKinds)
	}

	return nil
}

func TenantListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List configured tenants",
		RunE:  runTenantList,
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runTenantList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	outputFormat, _ := cmd.Flags().GetString("output")

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	repo := repository.NewTenantConfigRepository(pool)
	ids, err := repo.ListTenantIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tenants: %w", err)
	}

	if outputFormat == "json" {
		jsonBytes, _ := json.MarshalIndent(map[string]interface{}{"tenants": ids}, "", "  ")
		fmt.Println(string(jsonBytes))
		return nil
	}

	if len(ids) == 0 {
		fmt.Println("No tenants configured")
		return nil
	}
	fmt.Println("Tenants:")
	for _, id := range ids {
		fmt.Printf("  %s\n", id)
	}

	return nil
}

func getDBPool(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}
