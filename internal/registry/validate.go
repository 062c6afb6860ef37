package registry

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ValidationError carries the per-field failures of a payload.
type ValidationError struct {
	Fields map[string]any
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %d field(s) failed validation", ErrInvalidPayload, len(e.Fields))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidPayload }

func decodePayload[P any](raw json.RawMessage) (P, error) {
	var payload P

	if len(raw) == 0 || string(raw) == "null" {
		raw = json.RawMessage(`{}`)
	}

	if err := json.Unmarshal(raw, &payload); err != nil {
		return payload, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	if err := validate.Struct(payload); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]any, len(verrs))
			for _, e := range verrs {
				fields[e.Field()] = "failed " + e.Tag()
			}
			return payload, &ValidationError{Fields: fields}
		}
		return payload, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	return payload, nil
}
