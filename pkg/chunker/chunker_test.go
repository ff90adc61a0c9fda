package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitEmpty(t *testing.T) {
	assert.Empty(t, Split("", DefaultOptions()))
	assert.Empty(t, Split("\n\n  \n\n", DefaultOptions()))
}

func TestSplitSingleParagraph(t *testing.T) {
	chunks := Split("Short regulatory notice.", DefaultOptions())
	require.Len(t, chunks, 1)
	assert.Equal(t, "Short regulatory notice.", chunks[0].Content)
	assert.Equal(t, 0, chunks[0].Index)
}

func TestSplitPacksParagraphsUpToSize(t *testing.T) {
	paras := []string{
		strings.Repeat("a", 40),
		strings.Repeat("b", 40),
		strings.Repeat("c", 40),
	}
	chunks := Split(strings.Join(paras, "\n\n"), Options{Size: 100, Overlap: 0})

	// First two paragraphs fit in one chunk, the third spills over.
	require.Len(t, chunks, 2)
	assert.Contains(t, chunks[0].Content, "aaa")
	assert.Contains(t, chunks[0].Content, "bbb")
	assert.Contains(t, chunks[1].Content, "ccc")
}

func TestSplitOversizeParagraphWindows(t *testing.T) {
	text := strings.Repeat("x", 250)
	chunks := Split(text, Options{Size: 100, Overlap: 20})

	require.GreaterOrEqual(t, len(chunks), 3)
	for i, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c.Content), 100)
		assert.Equal(t, i, c.Index)
	}

	// Overlap: each window starts where the previous one has 20 runes left.
	total := 0
	for _, c := range chunks {
		total += utf8.RuneCountInString(c.Content)
	}
	assert.Greater(t, total, 250, "windows must overlap, not just partition")
}

func TestSplitNoTextDropped(t *testing.T) {
	text := strings.Repeat("word ", 200)
	chunks := Split(text, Options{Size: 120, Overlap: 30})

	joined := ""
	for _, c := range chunks {
		joined += c.Content
	}
	assert.Contains(t, joined, "word")
	count := 0
	for _, c := range chunks {
		count += len(strings.Fields(c.Content))
	}
	assert.GreaterOrEqual(t, count, 200)
}

func TestSplitBadOptionsFallBack(t *testing.T) {
	// Zero size and an overlap >= size must not loop forever.
	chunks := Split(strings.Repeat("y", 3000), Options{Size: 0, Overlap: 5000})
	assert.NotEmpty(t, chunks)
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 1, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("one"))
	assert.Equal(t, 4, EstimateTokens("one two three"))
}
