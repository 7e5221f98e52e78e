package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/greut/dzi/dzi"
)

// HTTPError represents a HTTP error to be shown to the user.
type HTTPError struct {
	StatusCode int
	Message    string
}

// Error formats the HTTPError message.
func (e HTTPError) Error() string {
	return fmt.Sprintf("%d (%s) %s", e.StatusCode, http.StatusText(e.StatusCode), e.Message)
}

// writeError renders any error, HTTPError keeping its status code.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var e HTTPError
	if errors.As(err, &e) {
		http.Error(w, e.Error(), e.StatusCode)
		return
	}
	debug("%s: %v", r.URL.Path, err)
	http.NotFound(w, r)
}

type parseErrorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	Field string `json:"field,omitempty"`
}

// writeParseError reports a rejected upload as JSON.
func writeParseError(w http.ResponseWriter, err error) {
	body := parseErrorBody{Error: err.Error()}
	var pe dzi.ParseError
	if errors.As(err, &pe) {
		body.Kind = pe.Kind.String()
		body.Field = pe.Field
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(body)
}
