// Package sentinel holds the infrastructure facts event stores report.
// Callers match them with errors.Is and translate them into domain errors;
// stores wrap them with context but never replace them.
package sentinel

import "errors"

var (
	// ErrConflict: the stream's current version is not the expected version.
	ErrConflict = errors.New("version conflict")
	// ErrInvalidState: the append request itself is malformed (empty batch,
	// missing stream id or event type, negative expected version).
	ErrInvalidState = errors.New("invalid append")
)
