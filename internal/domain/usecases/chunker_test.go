package usecases

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinrag/clinrag-go/internal/domain/entities"
)

// buildText produces duplicate-free prose: numbered sentences grouped
// into paragraphs, so positions in the original are unambiguous.
func buildText(sentences int) string {
	var sb strings.Builder
	for i := 0; i < sentences; i++ {
		fmt.Fprintf(&sb, "Sentence number %04d covers one clinical point. ", i)
		if i%5 == 4 {
			sb.WriteString("\n\n")
		}
	}
	return sb.String()
}

func TestChunker_Deterministic(t *testing.T) {
	c := NewChunker(200, 40)
	text := buildText(40)

	first := c.SplitText(text)
	second := c.SplitText(text)

	require.Equal(t, first, second)
}

func TestChunker_MaxSize(t *testing.T) {
	c := NewChunker(200, 40)

	for _, chunk := range c.SplitText(buildText(60)) {
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk), 200)
		assert.NotEmpty(t, chunk)
	}
}

func TestChunker_CoversInputWithoutGaps(t *testing.T) {
	c := NewChunker(200, 40)
	text := buildText(60)

	chunks := c.SplitText(text)
	require.NotEmpty(t, chunks)

	prevStart := -1
	prevEnd := 0
	for i, chunk := range chunks {
		idx := strings.Index(text[prevStart+1:], chunk)
		require.GreaterOrEqual(t, idx, 0, "chunk %d not found in original", i)
		start := prevStart + 1 + idx

		// No content gap: anything between the previous chunk's end
		// and this chunk's start must be pure whitespace.
		if start > prevEnd {
			require.Empty(t, strings.TrimSpace(text[prevEnd:start]), "content gap before chunk %d", i)
		}

		prevStart = start
		prevEnd = start + len(chunk)
	}
	require.Empty(t, strings.TrimSpace(text[prevEnd:]), "chunks must cover the input to its end")
}

func TestChunker_AdjacentChunksOverlap(t *testing.T) {
	c := NewChunker(200, 80)

	// One long paragraph: every chunk comes from the same merge pass,
	// so consecutive chunks share trailing sentences.
	var sb strings.Builder
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&sb, "Sentence number %04d covers one clinical point. ", i)
	}
	text := sb.String()

	chunks := c.SplitText(text)
	require.Greater(t, len(chunks), 2)

	prevEnd := len(chunks[0])
	offset := 0
	for i := 1; i < len(chunks); i++ {
		idx := strings.Index(text[offset+1:], chunks[i])
		require.GreaterOrEqual(t, idx, 0)
		start := offset + 1 + idx

		overlap := prevEnd - start
		assert.Greater(t, overlap, 0, "chunks %d and %d share no text", i-1, i)
		assert.LessOrEqual(t, overlap, 200)

		offset = start
		prevEnd = start + len(chunks[i])
	}
}

func TestChunker_PrefersParagraphBreaks(t *testing.T) {
	c := NewChunker(40, 0)
	text := "First paragraph stays together here.\n\nSecond paragraph also stays together.\n\nThird one too, still short."

	chunks := c.SplitText(text)
	require.Greater(t, len(chunks), 1)
	for i, chunk := range chunks[:len(chunks)-1] {
		assert.True(t, strings.HasSuffix(chunk, "\n\n"), "chunk %d should end on a paragraph break: %q", i, chunk)
	}
}

func TestChunker_HardSplitsUnbrokenText(t *testing.T) {
	c := NewChunker(50, 10)
	text := strings.Repeat("x", 180)

	chunks := c.SplitText(text)
	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 50)
	}
}

func TestChunker_ShortTextSingleChunk(t *testing.T) {
	c := NewChunker(1000, 200)

	chunks := c.SplitText("Short clinical note.")
	require.Len(t, chunks, 1)
	assert.Equal(t, "Short clinical note.", chunks[0])
}

func TestChunker_EmptyText(t *testing.T) {
	c := NewChunker(1000, 200)
	assert.Empty(t, c.SplitText(""))
}

func TestChunker_SplitTagsProvenance(t *testing.T) {
	c := NewChunker(100, 20)
	doc := &entities.Document{
		Name:  "guidelines.pdf",
		Pages: []string{buildText(10), buildText(10)},
	}

	chunks := c.Split(doc)
	require.NotEmpty(t, chunks)

	sawPageTwo := false
	for i, chunk := range chunks {
		assert.Equal(t, "guidelines.pdf", chunk.Source)
		assert.Equal(t, i, chunk.Index)
		assert.Equal(t, entities.DocTypeLiterature, chunk.DocType)
		assert.NotEmpty(t, strings.TrimSpace(chunk.Content))
		assert.NotEmpty(t, chunk.ID)
		if chunk.Page == 2 {
			sawPageTwo = true
		}
	}
	assert.True(t, sawPageTwo, "chunks from the second page must carry page 2")
}

func TestChunker_EmptyDocument(t *testing.T) {
	c := NewChunker(100, 20)
	assert.Empty(t, c.Split(&entities.Document{Name: "empty.txt", Pages: []string{"", "   "}}))
	assert.Empty(t, c.Split(nil))
}

func TestChunker_DefaultsApplied(t *testing.T) {
	c := NewChunker(0, -1)
	assert.Equal(t, DefaultChunkSize, c.chunkSize)
	assert.Equal(t, DefaultChunkOverlap, c.overlap)

	// Overlap can never reach the chunk size.
	c = NewChunker(100, 500)
	assert.Less(t, c.overlap, c.chunkSize)
}
