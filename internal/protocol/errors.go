package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedResponse is returned when a response is not valid JSON.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrMalformedRequest is returned by DecodeRequest for invalid JSON.
	ErrMalformedRequest = errors.New("malformed request")

	// ErrUnknownAction is returned by DecodeRequest for an action outside the catalogue.
	ErrUnknownAction = errors.New("unknown action")

	// ErrMissingField is returned when a required request or payload field is absent.
	ErrMissingField = errors.New("missing required field")
)

// ServerError is a response with success=false. Message is informational
// only and must not be parsed for control flow.
type ServerError struct {
	Action  Action
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Action, e.Message)
}

func missing(action Action, field string) error {
	return fmt.Errorf("%w: %s.%s", ErrMissingField, action, field)
}
