package knowledge

import (
	"context"
	"fmt"
	"strings"

	"github.com/baatasaari/agenthub-knowledge/internal/domain"
)

// Canned responses used when no grounded answer can be produced.
const (
	NoKnowledgeMessage = "I don't have information about that yet. Please contact us directly and we'll be happy to help."
	FallbackMessage    = "I'm having trouble answering right now. Please try again in a moment or contact us directly."
)

// groundingDirective instructs the model to answer only from supplied
// knowledge and to admit ignorance instead of inventing facts.
const groundingDirective = "You are a customer support assistant. " +
	"Answer using ONLY the knowledge context provided. " +
	"If the context does not contain the answer, say you don't have that information. " +
	"Never invent facts, prices, times, or policies."

// DefaultMaxContextChars bounds the knowledge context handed to the
// generation provider.
const DefaultMaxContextChars = 6000

// GenerationProvider produces answer text from a system prompt, a
// knowledge context block, and the user's query.
type GenerationProvider interface {
	Generate(ctx context.Context, systemPrompt, contextBlock, query string) (string, error)
}

// Synthesizer turns ranked chunks into a grounded natural-language answer.
type Synthesizer struct {
	provider        GenerationProvider
	maxContextChars int
}

// NewSynthesizer creates a Synthesizer. maxContextChars <= 0 selects the
// default bound.
func NewSynthesizer(provider GenerationProvider, maxContextChars int) *Synthesizer {
	if maxContextChars <= 0 {
		maxContextChars = DefaultMaxContextChars
	}
	return &Synthesizer{provider: provider, maxContextChars: maxContextChars}
}

// Synthesize generates an answer grounded in the ranked chunks. With no
// chunks it returns NoKnowledgeMessage without calling the provider. On
// provider failure it returns FallbackMessage together with the wrapped
// error so callers can both respond and report.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, ranked []ScoredChunk, customInstructions string) (string, error) {
	if len(ranked) == 0 {
		return NoKnowledgeMessage, nil
	}

	systemPrompt := groundingDirective
	if customInstructions != "" {
		systemPrompt += "\n\n" + customInstructions
	}

	answer, err := s.provider.Generate(ctx, systemPrompt, s.contextBlock(ranked), query)
	if err != nil {
		return FallbackMessage, domain.NewGenerationProviderError(err)
	}
	return answer, nil
}

// contextBlock renders ranked chunks into a numbered knowledge block,
// stopping before the character bound is exceeded. At least one chunk is
// always included so the provider never sees an empty context.
func (s *Synthesizer) contextBlock(ranked []ScoredChunk) string {
	var b strings.Builder
	for i, sc := range ranked {
		section := fmt.Sprintf("[%d] (%s, %s) %s\n", i+1, sc.Chunk.SourceKind, sc.Chunk.Priority, sc.Chunk.Content)
		if i > 0 && b.Len()+len(section) > s.maxContextChars {
			break
		}
		b.WriteString(section)
	}
	return strings.TrimRight(b.String(), "\n")
}
