package tts

import "context"

// AudioSink receives synthesized audio on its way to the client
type AudioSink func(data []byte) error

// Synthesizer is the interface for text-to-speech clients. At most one
// utterance is audible at a time: Speak cancels any in-flight utterance
// before starting a new one, and returns only once the new utterance has
// been fully delivered (or the context is cancelled).
type Synthesizer interface {
	// Speak synthesizes text and delivers the audio to the sink
	Speak(ctx context.Context, text string) error

	// Cancel aborts any in-flight utterance
	Cancel()

	// Close releases the client. Any in-flight utterance is cancelled.
	Close() error

	// IsActive reports whether an utterance is currently being delivered
	IsActive() bool
}
