package audio

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for the audio validation taxonomy. Callers match them
// with errors.Is; ErrSignalQuality is the parent of the quality-specific
// sentinels so a single check covers weak, silent, and corrupt input.
var (
	ErrInvalidAudio  = errors.New("invalid audio")
	ErrSignalQuality = errors.New("poor signal quality")

	ErrSignalTooWeak = fmt.Errorf("%w: signal too weak", ErrSignalQuality)
	ErrCorruptAudio  = fmt.Errorf("%w: non-finite samples", ErrSignalQuality)

	ErrTooLarge = fmt.Errorf("%w: payload too large", ErrInvalidAudio)
)

// DurationError reports a clip whose duration falls outside the accepted
// range. TooLong distinguishes the two failure directions.
type DurationError struct {
	Duration time.Duration
	Min      time.Duration
	Max      time.Duration
	TooLong  bool
}

// Error implements the error interface.
func (e *DurationError) Error() string {
	if e.TooLong {
		return fmt.Sprintf("audio too long: %v exceeds maximum %v", e.Duration, e.Max)
	}
	return fmt.Sprintf("audio too short: %v below minimum %v", e.Duration, e.Min)
}

// Unwrap places duration failures under the ErrInvalidAudio umbrella.
func (e *DurationError) Unwrap() error {
	return ErrInvalidAudio
}
