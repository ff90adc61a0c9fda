// Package chunker splits normalized document text into overlapping pieces
// sized for embedding.
package chunker

import (
	"strings"
	"unicode/utf8"
)

type Chunk struct {
	Content string
	Index   int
}

type Options struct {
	Size    int // target size in characters
	Overlap int // characters repeated from the previous chunk
}

func DefaultOptions() Options {
	return Options{Size: 1500, Overlap: 200}
}

// Split cuts text on paragraph boundaries first, packing paragraphs up to
// the target size. Paragraphs larger than the target fall back to fixed
// windows with overlap so no text is dropped.
func Split(text string, opts Options) []Chunk {
	if opts.Size <= 0 {
		opts.Size = DefaultOptions().Size
	}
	if opts.Overlap < 0 || opts.Overlap >= opts.Size {
		opts.Overlap = 0
	}

	var pieces []string
	var current strings.Builder
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if utf8.RuneCountInString(para) > opts.Size {
			if current.Len() > 0 {
				pieces = append(pieces, current.String())
				current.Reset()
			}
			pieces = append(pieces, window(para, opts)...)
			continue
		}
		if current.Len() > 0 && utf8.RuneCountInString(current.String())+utf8.RuneCountInString(para)+2 > opts.Size {
			pieces = append(pieces, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	if current.Len() > 0 {
		pieces = append(pieces, current.String())
	}

	chunks := make([]Chunk, 0, len(pieces))
	for i, p := range pieces {
		chunks = append(chunks, Chunk{Content: p, Index: i})
	}
	return chunks
}

func window(text string, opts Options) []string {
	runes := []rune(text)
	step := opts.Size - opts.Overlap
	var out []string
	for start := 0; start < len(runes); start += step {
		end := start + opts.Size
		if end > len(runes) {
			end = len(runes)
		}
		piece := strings.TrimSpace(string(runes[start:end]))
		if piece != "" {
			out = append(out, piece)
		}
		if end == len(runes) {
			break
		}
	}
	return out
}

// EstimateTokens approximates the token count of English text, close enough
// for sizing embedding requests.
func EstimateTokens(text string) int {
	n := len(strings.Fields(text)) * 4 / 3
	if n < 1 {
		return 1
	}
	return n
}
