package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSign(t *testing.T) {
	payload := []byte(`{"event":"revision.changed"}`)
	secret := "shh"

	got := Sign(payload, secret)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	assert.Equal(t, "sha256="+hex.EncodeToString(mac.Sum(nil)), got)

	// A receiver verifying with the wrong secret must not match.
	assert.NotEqual(t, got, Sign(payload, "other"))
	// Any payload change invalidates the signature.
	assert.NotEqual(t, got, Sign([]byte(`{"event":"revision.changed" }`), secret))
}

func TestCreateInputValidate(t *testing.T) {
	tests := []struct {
		name    string
		in      CreateInput
		wantErr string
	}{
		{"valid", CreateInput{URL: "https://example.com/hook", Events: []string{"revision.changed"}}, ""},
		{"all known events", CreateInput{URL: "https://example.com/hook", Events: KnownEvents()}, ""},
		{"http rejected", CreateInput{URL: "http://example.com/hook", Events: []string{"revision.changed"}}, "https"},
		{"empty url", CreateInput{URL: "", Events: []string{"revision.changed"}}, "https"},
		{"no events", CreateInput{URL: "https://example.com/hook"}, "at least one event"},
		{"unknown event", CreateInput{URL: "https://example.com/hook", Events: []string{"user.sneezed"}}, "unknown event"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}
