package domain

import (
	"fmt"
	"time"
)

// Defaults applied by ApplyTenantDefaults when the corresponding field is
// left zero at configuration time.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 100
	DefaultMaxDocuments = 500
)

// AgentConfig describes one chat agent of a tenant and what it may see.
type AgentConfig struct {
	AgentID            string
	Platforms          []string
	SourceKinds        []SourceKind
	MaxChunks          int
	CustomInstructions string
}

// AllowsPlatform reports whether the agent is reachable on the platform.
func (a *AgentConfig) AllowsPlatform(platform string) bool {
	return contains(a.Platforms, platform)
}

// AllowsSource reports whether the agent accepts documents of the kind.
func (a *AgentConfig) AllowsSource(kind SourceKind) bool {
	for _, k := range a.SourceKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// TenantConfig is the per-tenant knowledge store configuration. All
// options are explicit and validated at configuration time, never at use
// time.
type TenantConfig struct {
	TenantID          string
	EmbeddingModel    string
	ChunkSize         int
	ChunkOverlap      int
	MaxDocuments      int
	AutoUpdate        bool
	CrossAgentSharing bool
	Agents            map[string]AgentConfig
	ConfiguredBy      string
	ConfiguredAt      time.Time
}

// Agent returns the configuration of one agent.
func (c *TenantConfig) Agent(agentID string) (AgentConfig, bool) {
	agent, ok := c.Agents[agentID]
	return agent, ok
}

// AgentIDs returns all configured agent ids.
func (c *TenantConfig) AgentIDs() []string {
	ids := make([]string, 0, len(c.Agents))
	for id := range c.Agents {
		ids = append(ids, id)
	}
	return ids
}

// Platforms returns the union of all agents' platforms.
func (c *TenantConfig) Platforms() []string {
	seen := make(map[string]struct{})
	var platforms []string
	for _, agent := range c.Agents {
		for _, p := range agent.Platforms {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			platforms = append(platforms, p)
		}
	}
	return platforms
}

// SourceEnabled reports whether any configured agent accepts the kind.
func (c *TenantConfig) SourceEnabled(kind SourceKind) bool {
	for _, agent := range c.Agents {
		if agent.AllowsSource(kind) {
			return true
		}
	}
	return false
}

// ApplyTenantDefaults fills zero-valued options with defaults.
func ApplyTenantDefaults(c *TenantConfig) {
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.ChunkOverlap <= 0 {
		c.ChunkOverlap = DefaultChunkOverlap
	}
	if c.MaxDocuments <= 0 {
		c.MaxDocuments = DefaultMaxDocuments
	}
}

// ValidateTenantConfig validates a TenantConfig instance.
func ValidateTenantConfig(c *TenantConfig) error {
	if c == nil {
		return fmt.Errorf("tenant config cannot be nil")
	}

	if c.TenantID == "" {
		return fmt.Errorf("tenant config TenantID is required")
	}

	if c.EmbeddingModel == "" {
		return fmt.Errorf("tenant config EmbeddingModel is required")
	}

	if c.ChunkSize <= 0 {
		return fmt.Errorf("tenant config ChunkSize must be greater than 0")
	}

	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("tenant config ChunkOverlap must be in [0, ChunkSize)")
	}

	if c.MaxDocuments <= 0 {
		return fmt.Errorf("tenant config MaxDocuments must be greater than 0")
	}

	if len(c.Agents) == 0 {
		return fmt.Errorf("tenant config requires at least one agent")
	}

	for id, agent := range c.Agents {
		if agent.AgentID != id {
			return fmt.Errorf("agent %q: AgentID does not match map key", id)
		}
		if len(agent.Platforms) == 0 {
			return fmt.Errorf("agent %q requires at least one platform", id)
		}
		if len(agent.SourceKinds) == 0 {
			return fmt.Errorf("agent %q requires at least one source kind", id)
		}
		for _, kind := range agent.SourceKinds {
			if !IsValidSourceKind(kind) {
				return fmt.Errorf("agent %q: source kind is invalid: %s", id, kind)
			}
		}
	}

	return nil
}
