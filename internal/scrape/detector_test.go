package scrape

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprintStableAcrossWhitespace(t *testing.T) {
	a := Fingerprint("Section 1.\nAll providers must register.")
	b := Fingerprint("Section 1.   All providers\n\n must   register.")
	c := Fingerprint("Section 2. All providers must register.")

	assert.Equal(t, a, b, "reflowed whitespace must not register as a change")
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestChanged(t *testing.T) {
	content := "All providers must register."
	hash := Fingerprint(content)

	tests := []struct {
		name         string
		previousHash string
		content      string
		want         bool
	}{
		{"never captured", "", content, true},
		{"identical content", hash, content, false},
		{"whitespace only", hash, "All  providers\nmust register.", false},
		{"real change", hash, "All providers must register annually.", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Changed(tt.previousHash, tt.content))
		})
	}
}
