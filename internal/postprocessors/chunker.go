package postprocessors

import (
	"fmt"
	"maps"
	"strings"
	"unicode"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.Chunker = (*Chunker)(nil)

// sentenceWindow is how far back from a hard cut the chunker looks for a
// sentence boundary.
const sentenceWindow = 100

// ChunkConfig holds configuration for the chunker.
type ChunkConfig struct {
	// Size is the maximum chunk length in characters.
	Size int `yaml:"size"`

	// Overlap is the number of characters shared by consecutive windows.
	Overlap int `yaml:"overlap"`
}

// DefaultChunkConfig returns sensible defaults.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		Size:    1000,
		Overlap: 200,
	}
}

// Validate rejects configurations that cannot make progress.
func (c ChunkConfig) Validate() error {
	if c.Size <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidConfig, c.Size)
	}
	if c.Overlap < 0 {
		return fmt.Errorf("%w: chunk overlap must not be negative, got %d", domain.ErrInvalidConfig, c.Overlap)
	}
	if c.Overlap >= c.Size {
		return fmt.Errorf("%w: chunk overlap %d must be smaller than size %d", domain.ErrInvalidConfig, c.Overlap, c.Size)
	}
	return nil
}

// Chunker splits text into overlapping windows, preferring to cut at the end
// of a sentence. Offsets are in runes.
type Chunker struct {
	config ChunkConfig
}

// NewChunker creates a chunker. The config must be valid.
func NewChunker(config ChunkConfig) (*Chunker, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Chunker{config: config}, nil
}

// Config returns the chunker's configuration.
func (c *Chunker) Config() ChunkConfig {
	return c.config
}

// Chunk splits text into ordered chunks. Each chunk gets a copy of metadata
// plus its char_start and char_end.
func (c *Chunker) Chunk(text string, metadata map[string]any) []driven.Chunk {
	runes := []rune(text)
	n := len(runes)

	if n <= c.config.Size {
		content := strings.TrimSpace(text)
		if content == "" {
			return nil
		}
		return []driven.Chunk{c.newChunk(content, 0, 0, n, metadata)}
	}

	var chunks []driven.Chunk
	start := 0
	for {
		end := min(start+c.config.Size, n)

		if end < n {
			if cut := findSentenceBreak(runes, start, end); cut-c.config.Overlap > start {
				end = cut
			}
		}

		content := strings.TrimSpace(string(runes[start:end]))
		if content != "" {
			chunks = append(chunks, c.newChunk(content, len(chunks), start, end, metadata))
		}

		if end >= n {
			break
		}
		start = end - c.config.Overlap
	}

	return chunks
}

func (c *Chunker) newChunk(content string, position, start, end int, metadata map[string]any) driven.Chunk {
	md := make(map[string]any, len(metadata)+2)
	maps.Copy(md, metadata)
	md["char_start"] = start
	md["char_end"] = end

	return driven.Chunk{
		Content:     content,
		Position:    position,
		StartOffset: start,
		EndOffset:   end,
		Metadata:    md,
	}
}

// findSentenceBreak returns the offset just after the last sentence
// terminator in the window before maxEnd, or -1 when there is none.
// A terminator only counts when whitespace follows it.
func findSentenceBreak(runes []rune, start, maxEnd int) int {
	searchStart := max(maxEnd-sentenceWindow, start)

	for i := maxEnd - 1; i >= searchStart; i-- {
		switch runes[i] {
		case '.', '!', '?':
			if i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
				return i + 1
			}
		}
	}
	return -1
}
