// Package textextract normalizes fetched regulatory documents to plain
// text so revisions of different formats hash and diff consistently.
package textextract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

type Document struct {
	Content string
	Pages   int
	Format  string
}

// FromBytes picks the extractor by content type. HTML and unknown types are
// treated as markup to strip; PDFs go through the pdf reader.
func FromBytes(data []byte, contentType string) (*Document, error) {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "pdf"):
		return fromPDF(data)
	case strings.Contains(ct, "html"), strings.Contains(ct, "xml"):
		return &Document{Content: stripMarkup(string(data)), Pages: 1, Format: "html"}, nil
	default:
		return &Document{Content: strings.TrimSpace(string(data)), Pages: 1, Format: "text"}, nil
	}
}

func fromPDF(data []byte) (*Document, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}

	var buf strings.Builder
	numPages := reader.NumPage()

	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page should not lose the document.
			continue
		}
		buf.WriteString(text)
		buf.WriteString("\n")
	}

	return &Document{Content: buf.String(), Pages: numPages, Format: "pdf"}, nil
}

// stripMarkup drops tags and collapses whitespace. Script and style bodies
// are removed entirely; their text is noise for change detection.
func stripMarkup(s string) string {
	var result strings.Builder
	inTag := false
	skipDepth := 0
	lower := strings.ToLower(s)

	for i, r := range s {
		switch {
		case r == '<':
			inTag = true
			rest := lower[i:]
			if strings.HasPrefix(rest, "<script") || strings.HasPrefix(rest, "<style") {
				skipDepth++
			} else if strings.HasPrefix(rest, "</script") || strings.HasPrefix(rest, "</style") {
				if skipDepth > 0 {
					skipDepth--
				}
			}
		case r == '>':
			inTag = false
			result.WriteRune(' ')
		case !inTag && skipDepth == 0:
			result.WriteRune(r)
		}
	}

	return strings.Join(strings.Fields(result.String()), " ")
}
