package domain

import (
	"fmt"
	"time"
)

// SourceKind identifies where a document's content came from.
type SourceKind string

const (
	SourceKindFile     SourceKind = "file"
	SourceKindFAQ      SourceKind = "faq"
	SourceKindDatabase SourceKind = "database"
	SourceKindManual   SourceKind = "manual"
	SourceKindWebsite  SourceKind = "website"
)

// Priority controls retrieval ordering ahead of similarity.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank returns the sort rank of a priority; lower ranks sort first.
// Unknown priorities rank last.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	}
	return 3
}

// Document is a unit of tenant-supplied content. Documents are never
// mutated in place; re-ingestion creates a new document and new chunks.
type Document struct {
	ID         string
	TenantID   string
	AgentIDs   []string // empty means unrestricted (see Chunk.VisibleTo)
	Platforms  []string // empty means all configured platforms
	SourceKind SourceKind
	Category   string
	Priority   Priority
	Tags       []string
	Content    string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ValidateDocument validates a Document instance.
func ValidateDocument(d *Document) error {
	if d == nil {
		return fmt.Errorf("document cannot be nil")
	}

	if d.ID == "" {
		return fmt.Errorf("document ID is required")
	}

	if d.TenantID == "" {
		return fmt.Errorf("document TenantID is required")
	}

	if d.Content == "" {
		return fmt.Errorf("document Content is required")
	}

	if !IsValidSourceKind(d.SourceKind) {
		return fmt.Errorf("document SourceKind is invalid: %s", d.SourceKind)
	}

	if !isValidPriority(d.Priority) {
		return fmt.Errorf("document Priority is invalid: %s", d.Priority)
	}

	return nil
}

// IsValidSourceKind checks if a SourceKind is one of the recognized kinds.
func IsValidSourceKind(k SourceKind) bool {
	switch k {
	case SourceKindFile, SourceKindFAQ, SourceKindDatabase,
		SourceKindManual, SourceKindWebsite:
		return true
	}
	return false
}

func isValidPriority(p Priority) bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}
