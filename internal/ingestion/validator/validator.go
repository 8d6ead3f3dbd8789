// Package validator checks text submissions before they are persisted. It
// enforces title and body length constraints and verifies that every body
// symbol belongs to the configured scan alphabet, returning per-field error
// details.
package validator

import (
	"fmt"
	"strings"

	"github.com/permscan/permscan/internal/ingestion"
	"github.com/permscan/permscan/internal/match"
)

const (
	maxTitleLength    = 1024
	maxIdempotencyKey = 255
	minBodyLength     = 1
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	var parts []string
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s:%s", field, msg))
	}
	return strings.Join(parts, "; ")
}

// Validator validates submissions against a scan alphabet and a body size
// cap.
type Validator struct {
	alphabet     *match.Alphabet
	maxBodyBytes int
}

// New creates a Validator. maxBodyBytes <= 0 disables the size cap.
func New(alphabet *match.Alphabet, maxBodyBytes int) *Validator {
	return &Validator{alphabet: alphabet, maxBodyBytes: maxBodyBytes}
}

// ValidateSubmitRequest checks the request and returns a ValidationError
// describing every failing field. The body is rejected if any symbol falls
// outside the scan alphabet, since such a text could never be scanned.
func (v *Validator) ValidateSubmitRequest(req *ingestion.SubmitRequest) error {
	errs := make(map[string]string)

	title := strings.TrimSpace(req.Title)
	if title == "" {
		errs["title"] = "title is required"
	} else if len(title) > maxTitleLength {
		errs["title"] = fmt.Sprintf("title must be at most %d characters", maxTitleLength)
	}

	if len(req.Body) < minBodyLength {
		errs["body"] = "body is required and must not be empty"
	} else if v.maxBodyBytes > 0 && len(req.Body) > v.maxBodyBytes {
		errs["body"] = fmt.Sprintf("body must be at most %d bytes", v.maxBodyBytes)
	} else if _, err := v.alphabet.Encode(req.Body); err != nil {
		errs["body"] = err.Error()
	}

	if req.IdempotencyKey != "" && len(req.IdempotencyKey) > maxIdempotencyKey {
		errs["idempotency_key"] = fmt.Sprintf("idempotency key must be at most %d characters", maxIdempotencyKey)
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
