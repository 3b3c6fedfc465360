// Package provider defines the capability shared by the two voice backends:
// the managed full-duplex voice service and the locally composed speech
// pipeline. The session orchestrator depends only on this interface and never
// on a concrete backend type.
package provider

import (
	"context"
	"time"

	"github.com/prepwise/interview-gateway/internal/transcript"
)

// EventType is the generic lifecycle/event vocabulary emitted by providers
type EventType string

const (
	// EventStarted signals that the provider reached a live conversation
	EventStarted EventType = "started"

	// EventEnded signals that the provider ended the conversation on its own
	// (remote hang-up, question plan exhausted)
	EventEnded EventType = "ended"

	// EventError carries a provider error. Fatal errors end the session;
	// non-fatal errors are surfaced to the user while the session continues.
	EventError EventType = "error"

	// EventTranscript carries one finalized utterance
	EventTranscript EventType = "transcript"

	// EventInterim carries a non-final recognition fragment, for live display
	// only; it must never be persisted as a transcript entry
	EventInterim EventType = "interim"
)

// Event is one provider notification delivered to the orchestrator
type Event struct {
	Type      EventType
	Speaker   transcript.Speaker
	Text      string
	Err       error
	Fatal     bool
	Timestamp time.Time
}

// VoiceProvider is the capability set of an active voice backend. Exactly one
// provider holds the microphone and synthesis output at a time; Stop must be
// idempotent and must release both.
type VoiceProvider interface {
	// Name identifies the backend ("managed" or "local")
	Name() string

	// Start begins the conversation. Configuration and connection failures
	// are returned synchronously so the caller can decide on fallback;
	// everything after a successful return arrives via Events.
	Start(ctx context.Context) error

	// Stop tears the conversation down and releases all held resources.
	// Safe to call more than once.
	Stop() error

	// SetMuted suspends or resumes candidate audio capture
	SetMuted(muted bool) error

	// IsActive reports whether a conversation is live
	IsActive() bool

	// Events returns the provider's event stream. The channel is closed
	// after the provider stops.
	Events() <-chan Event
}

// AudioSink is implemented by providers that accept candidate microphone
// audio forwarded from the client
type AudioSink interface {
	SendAudio(data []byte) error
}

// Suspender is implemented by providers that support pausing audio capture
// without tearing the conversation down
type Suspender interface {
	SetSuspended(suspended bool) error
}
