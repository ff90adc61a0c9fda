package scrape

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestProjectInputValidate(t *testing.T) {
	assert.NoError(t, (&ProjectInput{Name: "GDPR watch"}).Validate())
	assert.Error(t, (&ProjectInput{Name: ""}).Validate())
	assert.Error(t, (&ProjectInput{Name: "   "}).Validate())
}

func TestJurisdictionInputValidate(t *testing.T) {
	valid := &JurisdictionInput{ProjectID: uuid.New(), Name: "California"}
	assert.NoError(t, valid.Validate())

	assert.Error(t, (&JurisdictionInput{Name: "California"}).Validate())
	assert.Error(t, (&JurisdictionInput{ProjectID: uuid.New()}).Validate())
}

func TestSourceInputValidate(t *testing.T) {
	tests := []struct {
		name    string
		in      SourceInput
		wantErr bool
	}{
		{"valid https", SourceInput{JurisdictionID: uuid.New(), URL: "https://leginfo.legislature.ca.gov/notices"}, false},
		{"valid http", SourceInput{JurisdictionID: uuid.New(), URL: "http://example.gov/register"}, false},
		{"missing jurisdiction", SourceInput{URL: "https://example.gov"}, true},
		{"empty url", SourceInput{JurisdictionID: uuid.New(), URL: ""}, true},
		{"no scheme", SourceInput{JurisdictionID: uuid.New(), URL: "example.gov/register"}, true},
		{"file scheme", SourceInput{JurisdictionID: uuid.New(), URL: "file:///etc/passwd"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
