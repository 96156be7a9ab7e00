package domain

import "time"

// Chunk is a retrievable slice of a document's content. Chunks are owned
// exclusively by their document: deleting the document deletes its chunks.
type Chunk struct {
	ID         string
	DocumentID string
	TenantID   string
	ChunkIndex int
	Content    string
	Embedding  []float32
	AgentIDs   []string
	Platforms  []string
	SourceKind SourceKind
	Category   string
	Priority   Priority
	Tags       []string
	UpdatedAt  time.Time
}

// VisibleTo reports whether the chunk may be returned for a query scoped
// to (agentID, platform). An empty platform set means all platforms. An
// empty agent set marks a shared chunk, visible to any agent only when
// the tenant has cross-agent sharing enabled.
func (c *Chunk) VisibleTo(agentID, platform string, crossAgentSharing bool) bool {
	if !matchOrEmpty(c.Platforms, platform) {
		return false
	}

	if len(c.AgentIDs) == 0 {
		return crossAgentSharing
	}

	return contains(c.AgentIDs, agentID)
}

func matchOrEmpty(set []string, value string) bool {
	if len(set) == 0 {
		return true
	}
	return contains(set, value)
}

func contains(set []string, value string) bool {
	for _, s := range set {
		if s == value {
			return true
		}
	}
	return false
}
