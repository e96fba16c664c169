// Package usecases contains application business rules.
// Clean Architecture: Usecases orchestrate entities and depend on port interfaces.
// They contain NO framework code - just pure business logic.
package usecases

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/clinrag/clinrag-go/internal/domain/entities"
)

const (
	// DefaultChunkSize is the target chunk length in characters.
	DefaultChunkSize = 1000
	// DefaultChunkOverlap is the number of characters shared by
	// consecutive chunks of the same page.
	DefaultChunkOverlap = 200
)

// defaultSeparators is the priority list used to split text, coarsest
// first. The empty string means a hard character cut.
var defaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Chunker splits document pages into overlapping segments suitable for
// embedding and retrieval. Splitting is recursive: the coarsest
// separator that yields pieces within the size limit wins.
// Deterministic: same input and config produce the same chunk sequence.
type Chunker struct {
	chunkSize  int
	overlap    int
	separators []string
}

// NewChunker creates a Chunker. Non-positive size or negative overlap
// fall back to the defaults; overlap is clamped below chunk size.
func NewChunker(chunkSize, overlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = DefaultChunkOverlap
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 5
	}
	return &Chunker{
		chunkSize:  chunkSize,
		overlap:    overlap,
		separators: defaultSeparators,
	}
}

// Split chunks every page of the document in order and tags each chunk
// with its provenance. Chunks never span page boundaries, so the page
// number of each chunk is exact.
func (c *Chunker) Split(doc *entities.Document) []entities.Chunk {
	if doc == nil {
		return nil
	}
	var chunks []entities.Chunk
	index := 0
	for pageNum, page := range doc.Pages {
		for _, piece := range c.SplitText(page) {
			if strings.TrimSpace(piece) == "" {
				continue
			}
			chunks = append(chunks, entities.Chunk{
				ID:      chunkID(doc.Name, index),
				Source:  doc.Name,
				Index:   index,
				Page:    pageNum + 1,
				DocType: entities.DocTypeLiterature,
				Content: piece,
			})
			index++
		}
	}
	return chunks
}

// SplitText splits a single text into pieces of at most chunkSize
// characters, consecutive pieces overlapping by roughly the configured
// overlap when the text is long enough to require splitting.
// Whitespace-only pieces left over from separator recursion are
// dropped; no returned chunk is empty.
func (c *Chunker) SplitText(text string) []string {
	pieces := c.splitRecursive(text, c.separators)
	out := make([]string, 0, len(pieces))
	for _, p := range pieces {
		if strings.TrimSpace(p) == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (c *Chunker) splitRecursive(text string, separators []string) []string {
	if text == "" {
		return nil
	}
	if utf8.RuneCountInString(text) <= c.chunkSize {
		return []string{text}
	}

	// Pick the coarsest separator present in the text.
	sep := ""
	var rest []string
	for i, s := range separators {
		if s == "" {
			sep = s
			rest = nil
			break
		}
		if strings.Contains(text, s) {
			sep = s
			rest = separators[i+1:]
			break
		}
	}

	if sep == "" {
		return c.hardSplit(text)
	}

	// SplitAfter keeps separators attached so merged chunks
	// reconstruct the original text exactly.
	splits := strings.SplitAfter(text, sep)

	var final []string
	var good []string
	for _, s := range splits {
		if utf8.RuneCountInString(s) <= c.chunkSize {
			good = append(good, s)
			continue
		}
		if len(good) > 0 {
			final = append(final, c.merge(good)...)
			good = nil
		}
		final = append(final, c.splitRecursive(s, rest)...)
	}
	if len(good) > 0 {
		final = append(final, c.merge(good)...)
	}
	return final
}

// merge joins consecutive small pieces into chunks up to chunkSize,
// carrying a tail of pieces totalling at most the overlap into the
// next chunk.
func (c *Chunker) merge(splits []string) []string {
	var out []string
	var window []string
	total := 0

	join := func(parts []string) string {
		return strings.Join(parts, "")
	}

	for _, s := range splits {
		n := utf8.RuneCountInString(s)
		if total+n > c.chunkSize && len(window) > 0 {
			out = append(out, join(window))
			for len(window) > 0 && (total > c.overlap || total+n > c.chunkSize) {
				total -= utf8.RuneCountInString(window[0])
				window = window[1:]
			}
		}
		window = append(window, s)
		total += n
	}
	if len(window) > 0 {
		out = append(out, join(window))
	}
	return out
}

// hardSplit cuts text into fixed rune windows with overlap. Last
// resort when no separator applies.
func (c *Chunker) hardSplit(text string) []string {
	runes := []rune(text)
	step := c.chunkSize - c.overlap
	if step <= 0 {
		step = c.chunkSize
	}
	var out []string
	for start := 0; start < len(runes); start += step {
		end := start + c.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return out
}

// chunkID creates a deterministic ID for a chunk.
func chunkID(source string, index int) string {
	hash := sha256.Sum256([]byte(source + ":" + strconv.Itoa(index)))
	return hex.EncodeToString(hash[:8])
}
