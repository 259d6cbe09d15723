package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	lerrors "github.com/FocuswithJustin/lumina/core/errors"
	"github.com/FocuswithJustin/lumina/internal/server"
)

const (
	// MaxBodyBytes bounds JSON request bodies. A study with all fields
	// filled stays well below it.
	MaxBodyBytes = 256 << 10

	// MaxQueryRunes bounds free-text inputs (queries, references,
	// characters, themes).
	MaxQueryRunes = 200

	// MaxIDLength bounds path identifiers.
	MaxIDLength = 64
)

var jsonContentTypes = []string{"application/json"}

// decodeJSON reads a size-limited JSON body into v. Unknown fields are
// rejected so typos surface as errors instead of being dropped.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" && !server.ValidateContentType(ct, jsonContentTypes) {
		return lerrors.NewValidation("Content-Type", "must be application/json")
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return lerrors.NewValidation("body", fmt.Sprintf("exceeds %d bytes", MaxBodyBytes))
		case errors.Is(err, io.EOF):
			return lerrors.NewValidation("body", "required")
		default:
			return &lerrors.ValidationError{Field: "body", Message: err.Error(), Err: err}
		}
	}
	if dec.More() {
		return lerrors.NewValidation("body", "must contain a single JSON value")
	}
	return nil
}

// cleanInput sanitizes a free-text input and bounds its length.
func cleanInput(s string) string {
	return server.LimitStringLength(server.SanitizeUserInput(s), MaxQueryRunes)
}

// ValidateID checks an identifier taken from a URL path. Prayer ids are
// UUIDs, but any short token without separators or control characters is
// accepted so imported libraries keep working.
func ValidateID(id string) error {
	if id == "" {
		return lerrors.NewValidation("id", "required")
	}
	if len(id) > MaxIDLength {
		return lerrors.NewValidation("id", fmt.Sprintf("longer than %d bytes", MaxIDLength))
	}
	if id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return lerrors.NewValidation("id", "must not contain path elements")
	}
	if server.SanitizeUserInput(id) != id {
		return lerrors.NewValidation("id", "must not contain whitespace or control characters")
	}
	if strings.ContainsAny(id, " \t\n") {
		return lerrors.NewValidation("id", "must not contain whitespace or control characters")
	}
	return nil
}
