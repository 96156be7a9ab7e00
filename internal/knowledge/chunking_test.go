package knowledge

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baatasaari/agenthub-knowledge/internal/domain"
)

func TestChunkText_ShortContentSingleChunk(t *testing.T) {
	content := "Our clinic is open Monday to Friday, 9am to 5pm. Walk-ins are welcome before noon."

	chunks := ChunkText(content, domain.SourceKindFAQ, DefaultChunkConfig())

	require.Len(t, chunks, 1)
	assert.Equal(t, content, chunks[0])
}

func TestChunkText_Deterministic(t *testing.T) {
	content := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 60)
	cfg := ChunkConfig{MaxChars: 200, Overlap: 40}

	first := ChunkText(content, domain.SourceKindManual, cfg)
	second := ChunkText(content, domain.SourceKindManual, cfg)

	assert.Equal(t, first, second)
	assert.Greater(t, len(first), 1)
}

func TestChunkText_RespectsMaxChars(t *testing.T) {
	content := strings.Repeat("Sentences accumulate until the window fills up. ", 50)
	cfg := ChunkConfig{MaxChars: 150, Overlap: 0}

	for _, chunk := range ChunkText(content, domain.SourceKindManual, cfg) {
		assert.LessOrEqual(t, len([]rune(chunk)), 150)
	}
}

func TestChunkText_SentenceBoundariesPreserved(t *testing.T) {
	content := "First sentence stands alone here. Second sentence follows right after. Third sentence ends the text."
	cfg := ChunkConfig{MaxChars: 70, Overlap: 0}

	chunks := ChunkText(content, domain.SourceKindManual, cfg)

	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.True(t, strings.HasSuffix(chunk, "."), "chunk should end on a sentence boundary: %q", chunk)
	}
}

func TestChunkText_OverlapSharedBetweenChunks(t *testing.T) {
	content := "Alpha beta gamma delta epsilon zeta eta theta. Iota kappa lambda mu nu xi omicron pi rho sigma."
	cfg := ChunkConfig{MaxChars: 80, Overlap: 20}

	chunks := ChunkText(content, domain.SourceKindManual, cfg)

	require.GreaterOrEqual(t, len(chunks), 2)
	tail := overlapTail(chunks[0], cfg.Overlap)
	require.NotEmpty(t, tail)
	assert.True(t, strings.HasPrefix(chunks[1], tail),
		"second chunk %q should start with overlap %q", chunks[1], tail)
}

func TestChunkText_DiscardsTinyChunks(t *testing.T) {
	chunks := ChunkText("Hi there.", domain.SourceKindManual, DefaultChunkConfig())
	assert.Empty(t, chunks)
}

func TestChunkText_EmptyContent(t *testing.T) {
	assert.Nil(t, ChunkText("", domain.SourceKindManual, DefaultChunkConfig()))
	assert.Nil(t, ChunkText("   \n\t  ", domain.SourceKindManual, DefaultChunkConfig()))
}

func TestChunkText_DatabaseKindOneChunkPerRecord(t *testing.T) {
	content := "SKU-001 | Standard consultation | 45 EUR\n" +
		"SKU-002 | Extended consultation | 80 EUR\n" +
		"\n" +
		"SKU-003 | Phone consultation | 30 EUR"

	chunks := ChunkText(content, domain.SourceKindDatabase, DefaultChunkConfig())

	require.Len(t, chunks, 3)
	assert.Equal(t, "SKU-001 | Standard consultation | 45 EUR", chunks[0])
	assert.Equal(t, "SKU-003 | Phone consultation | 30 EUR", chunks[2])
}

func TestChunkText_DatabaseKindLongRecordFallsBack(t *testing.T) {
	long := strings.Repeat("field value. ", 40)
	cfg := ChunkConfig{MaxChars: 100, Overlap: 0}

	chunks := ChunkText(long, domain.SourceKindDatabase, cfg)

	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len([]rune(chunk)), 100)
	}
}

func TestChunkText_OversizedSentenceHardSplit(t *testing.T) {
	content := strings.Repeat("word ", 100) // one 500-char "sentence", no terminators
	cfg := ChunkConfig{MaxChars: 120, Overlap: 0}

	chunks := ChunkText(content, domain.SourceKindManual, cfg)

	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len([]rune(chunk)), 120)
		assert.NotContains(t, chunk, "wor ", "words should not be split mid-token")
	}
}

func TestChunkText_MaxChunksCap(t *testing.T) {
	content := strings.Repeat("Another sentence that fills space nicely. ", 50)
	cfg := ChunkConfig{MaxChars: 100, Overlap: 0, MaxChunks: 3}

	chunks := ChunkText(content, domain.SourceKindManual, cfg)

	assert.Len(t, chunks, 3)
}

func TestChunkText_InvalidOverlapIgnored(t *testing.T) {
	content := strings.Repeat("Stable output regardless of bad overlap config. ", 20)
	cfg := ChunkConfig{MaxChars: 100, Overlap: 100}

	chunks := ChunkText(content, domain.SourceKindManual, cfg)

	require.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len([]rune(chunk)), 100)
	}
}
