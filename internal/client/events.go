// File: internal/client/events.go
package client

import "github.com/rtlsec/phishletgen-cli/api/schemas"

// EventKind discriminates the variants of an AnalysisEvent.
type EventKind int

const (
	// EventProgress is an in-flight progress frame.
	EventProgress EventKind = iota
	// EventResult is the successful terminal outcome.
	EventResult
	// EventError is the failed terminal outcome.
	EventError
)

// AnalysisEvent is one unit of the analysis exchange, identical regardless
// of whether the streaming channel or the blocking fallback produced it.
// Exactly one of the fields is set; Kind resolves which.
type AnalysisEvent struct {
	Progress *schemas.ProgressUpdate
	Result   *schemas.AnalysisResult
	Err      error
}

// Kind reports which variant this event carries.
func (e AnalysisEvent) Kind() EventKind {
	switch {
	case e.Err != nil:
		return EventError
	case e.Result != nil:
		return EventResult
	default:
		return EventProgress
	}
}

// Terminal reports whether this event ends the exchange.
func (e AnalysisEvent) Terminal() bool {
	return e.Kind() != EventProgress
}
