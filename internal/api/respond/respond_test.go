package respond

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legalwatchdog/platform/internal/auth"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	Success(rec, http.StatusCreated, "created", map[string]string{"id": "x"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	env := decode(t, rec)
	assert.Equal(t, "success", env.Status)
	assert.Equal(t, http.StatusCreated, env.StatusCode)
	assert.Equal(t, "created", env.Message)
	assert.NotNil(t, env.Data)
}

func TestFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	Failure(rec, http.StatusNotFound, "no such thing")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, "failure", env.Status)
	assert.Equal(t, "no such thing", env.Message)
	assert.Nil(t, env.Data)
}

func TestDenialPassesClientSafeMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	Denial(rec, auth.Forbidden("not a member of this organization"))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "not a member of this organization", decode(t, rec).Message)
}

// Integrity denials carry internal detail (which lookup broke); the client
// must only ever see a generic server error.
func TestDenialMasksIntegrityDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	Denial(rec, auth.Integrity("user references missing role"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, "internal server error", env.Message)
	assert.NotContains(t, rec.Body.String(), "role")
}

func TestErrorTranslatesDenials(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, auth.Unauthenticated("token has expired"))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "token has expired", decode(t, rec).Message)
}

func TestErrorMasksInternalErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, errors.New("pq: connection refused on 10.0.0.5"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", decode(t, rec).Message)
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
}
