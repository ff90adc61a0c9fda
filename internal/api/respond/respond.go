package respond

import (
	"encoding/json"
	"net/http"

	"github.com/legalwatchdog/platform/internal/auth"
)

// Envelope is the uniform response shape for every endpoint.
type Envelope struct {
	Status     string      `json:"status"`
	StatusCode int         `json:"status_code"`
	Message    string      `json:"message"`
	Data       interface{} `json:"data,omitempty"`
}

func write(w http.ResponseWriter, code int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(env)
}

func Success(w http.ResponseWriter, code int, message string, data interface{}) {
	write(w, code, Envelope{Status: "success", StatusCode: code, Message: message, Data: data})
}

func Failure(w http.ResponseWriter, code int, message string) {
	write(w, code, Envelope{Status: "failure", StatusCode: code, Message: message})
}

// Denial translates an authorization failure. Integrity violations are
// masked: the client sees a generic server error, never which lookup broke.
func Denial(w http.ResponseWriter, d *auth.Denial) {
	msg := d.Message
	if d.Reason == auth.DenialIntegrity {
		msg = "internal server error"
	}
	Failure(w, d.StatusCode(), msg)
}

// Error writes err as a failure, translating denials to their mapped status
// and everything else to a 500.
func Error(w http.ResponseWriter, err error) {
	if d, ok := auth.AsDenial(err); ok {
		Denial(w, d)
		return
	}
	Failure(w, http.StatusInternalServerError, "internal server error")
}
