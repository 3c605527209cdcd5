package asr

import (
	"errors"
	"fmt"
)

// Sentinel errors for the recognition taxonomy. Matched with errors.Is.
var (
	ErrAuthSigning = errors.New("auth signing failed")
	ErrConnection  = errors.New("recognition service connection failed")
	ErrDeadline    = errors.New("recognition deadline exceeded")
	ErrNoSpeech    = errors.New("no speech recognized")
)

// ProtocolError reports a non-zero status code returned by the
// recognition service, with the server's own error description.
type ProtocolError struct {
	Code    int
	Message string
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("recognition service error %d: %s", e.Code, e.Message)
}
