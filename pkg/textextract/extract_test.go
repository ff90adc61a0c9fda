package textextract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromBytesPlainText(t *testing.T) {
	doc, err := FromBytes([]byte("  Section 1. All providers must register.  \n"), "text/plain; charset=utf-8")
	require.NoError(t, err)
	assert.Equal(t, "Section 1. All providers must register.", doc.Content)
	assert.Equal(t, "text", doc.Format)
	assert.Equal(t, 1, doc.Pages)
}

func TestFromBytesUnknownTypeTreatedAsText(t *testing.T) {
	doc, err := FromBytes([]byte("raw bytes"), "application/octet-stream")
	require.NoError(t, err)
	assert.Equal(t, "text", doc.Format)
	assert.Equal(t, "raw bytes", doc.Content)
}

func TestFromBytesHTML(t *testing.T) {
	html := `<html><head><title>Register</title>
	<style>body { color: red; }</style>
	<script>track("visit");</script>
	</head><body>
	<h1>Notice</h1>
	<p>All   providers must
	register.</p>
	</body></html>`

	doc, err := FromBytes([]byte(html), "text/html")
	require.NoError(t, err)
	assert.Equal(t, "html", doc.Format)
	assert.Contains(t, doc.Content, "Notice")
	assert.Contains(t, doc.Content, "All providers must register.")
	assert.NotContains(t, doc.Content, "color: red")
	assert.NotContains(t, doc.Content, "track")
	assert.NotContains(t, doc.Content, "<")
}

func TestFromBytesInvalidPDF(t *testing.T) {
	_, err := FromBytes([]byte("definitely not a pdf"), "application/pdf")
	assert.Error(t, err)
}

func TestStripMarkupCollapsesWhitespace(t *testing.T) {
	got := stripMarkup("<div>a</div>\n\n   <div>b</div>")
	assert.Equal(t, "a b", got)
}
