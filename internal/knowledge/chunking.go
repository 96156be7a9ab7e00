package knowledge

import (
	"strings"
	"unicode"

	"github.com/baatasaari/agenthub-knowledge/internal/domain"
)

// MinChunkChars is the minimum length of a kept chunk.
const MinChunkChars = 10

// ChunkConfig controls how raw content is split into retrievable units.
type ChunkConfig struct {
	MaxChars  int
	Overlap   int
	MaxChunks int
}

// DefaultChunkConfig provides sane defaults for chunking.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxChars:  domain.DefaultChunkSize,
		Overlap:   domain.DefaultChunkOverlap,
		MaxChunks: 0,
	}
}

// ChunkText splits content into an ordered sequence of text chunks. The
// function is pure and deterministic: identical input and config always
// produce identical chunks.
//
// Natural-language content is split on sentence boundaries and
// accumulated up to MaxChars, with each chunk after the first seeded
// with the trailing Overlap characters of its predecessor. Structured
// (record-array) content produces one chunk per record; oversized
// records fall back to the natural-language splitter.
func ChunkText(content string, kind domain.SourceKind, cfg ChunkConfig) []string {
	clean := strings.TrimSpace(content)
	if clean == "" {
		return nil
	}
	if cfg.MaxChars <= 0 {
		cfg = DefaultChunkConfig()
	}
	if cfg.Overlap < 0 || cfg.Overlap >= cfg.MaxChars {
		cfg.Overlap = 0
	}

	var chunks []string
	if kind == domain.SourceKindDatabase {
		chunks = chunkRecords(clean, cfg)
	} else {
		chunks = chunkSentences(clean, cfg)
	}

	kept := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		if len([]rune(chunk)) < MinChunkChars {
			continue
		}
		if cfg.MaxChunks > 0 && len(kept) >= cfg.MaxChunks {
			break
		}
		kept = append(kept, chunk)
	}
	return kept
}

// chunkRecords treats each non-empty line as one record.
func chunkRecords(content string, cfg ChunkConfig) []string {
	var chunks []string
	for _, line := range strings.Split(content, "\n") {
		record := strings.TrimSpace(line)
		if record == "" {
			continue
		}
		if len([]rune(record)) <= cfg.MaxChars {
			chunks = append(chunks, record)
			continue
		}
		chunks = append(chunks, chunkSentences(record, cfg)...)
	}
	return chunks
}

func chunkSentences(content string, cfg ChunkConfig) []string {
	sentences := splitSentences(content)

	var chunks []string
	var buf strings.Builder
	bufLen := 0
	seedLen := 0

	reset := func() {
		buf.Reset()
		bufLen = 0
		seedLen = 0
	}

	flush := func() {
		// A buffer holding only the overlap seed carries no new content.
		if bufLen == 0 || bufLen == seedLen {
			reset()
			return
		}
		chunk := strings.TrimSpace(buf.String())
		reset()
		if chunk == "" {
			return
		}
		chunks = append(chunks, chunk)
		if cfg.Overlap > 0 {
			seed := overlapTail(chunk, cfg.Overlap)
			if seed != "" {
				buf.WriteString(seed)
				bufLen = len([]rune(seed))
				seedLen = bufLen
			}
		}
	}

	for _, sentence := range sentences {
		sentLen := len([]rune(sentence))

		if sentLen > cfg.MaxChars {
			flush()
			// Drop any overlap seed; the split pieces carry their own.
			reset()
			chunks = append(chunks, splitLong(sentence, cfg)...)
			continue
		}

		if bufLen > 0 && bufLen+1+sentLen > cfg.MaxChars {
			flush()
		}

		if bufLen > 0 {
			buf.WriteString(" ")
			bufLen++
		}
		buf.WriteString(sentence)
		bufLen += sentLen
	}

	flush()
	return chunks
}

// splitSentences breaks text at sentence-ending punctuation and newlines,
// keeping the terminator with its sentence.
func splitSentences(content string) []string {
	var sentences []string
	runes := []rune(content)
	start := 0

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		boundary := false
		switch r {
		case '\n':
			boundary = true
		case '.', '!', '?':
			// Boundary only when followed by whitespace or end of text,
			// so "9.5" or "e.g." mid-token stays intact.
			if i+1 >= len(runes) || unicode.IsSpace(runes[i+1]) {
				boundary = true
			}
		}
		if !boundary {
			continue
		}
		sentence := strings.TrimSpace(string(runes[start : i+1]))
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		start = i + 1
	}

	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}

// splitLong hard-splits an oversized sentence on a rune window, backing
// up to the nearest whitespace so words stay whole where possible.
func splitLong(text string, cfg ChunkConfig) []string {
	runes := []rune(text)
	var chunks []string
	start := 0

	for start < len(runes) {
		end := start + cfg.MaxChars
		if end > len(runes) {
			end = len(runes)
		}

		if end < len(runes) {
			cut := end
			minCut := start + cfg.MaxChars/2
			for i := end; i > minCut; i-- {
				if unicode.IsSpace(runes[i-1]) {
					cut = i
					break
				}
			}
			end = cut
		}

		if end <= start {
			break
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end >= len(runes) {
			break
		}

		nextStart := end
		if cfg.Overlap > 0 && end-start > cfg.Overlap {
			nextStart = end - cfg.Overlap
		}
		if nextStart <= start {
			nextStart = end
		}
		start = nextStart
	}

	return chunks
}

// overlapTail returns the trailing overlap runes of a chunk, advanced to
// the next word boundary so the seed never starts mid-word.
func overlapTail(chunk string, overlap int) string {
	runes := []rune(chunk)
	if len(runes) <= overlap {
		return chunk
	}

	tail := runes[len(runes)-overlap:]
	for i, r := range tail {
		if unicode.IsSpace(r) {
			return strings.TrimSpace(string(tail[i:]))
		}
	}
	return ""
}
