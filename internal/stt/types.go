package stt

import "fmt"

// ErrorCode classifies recognition failures the way the listening loop needs
// to react to them.
type ErrorCode string

const (
	// CodeNoSpeech means no speech was detected before the utterance window
	// closed. The listening loop restarts silently on this condition.
	CodeNoSpeech ErrorCode = "no-speech"

	// CodeAudioCapture means the capture device failed or disappeared
	CodeAudioCapture ErrorCode = "audio-capture"

	// CodeNotAllowed means permission to capture audio was denied or the
	// credential was rejected
	CodeNotAllowed ErrorCode = "not-allowed"

	// CodeNetwork means the recognition service is unreachable
	CodeNetwork ErrorCode = "network"

	// CodeUnknown covers everything else
	CodeUnknown ErrorCode = "unknown"
)

// Transient reports whether the listening loop should recover from this
// condition by restarting rather than surfacing it.
func (c ErrorCode) Transient() bool {
	return c == CodeNoSpeech
}

// RecognitionError is a coded recognition failure
type RecognitionError struct {
	Code ErrorCode
	Err  error
}

func (e *RecognitionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("recognition error: %s", e.Code)
	}
	return fmt.Sprintf("recognition error (%s): %v", e.Code, e.Err)
}

func (e *RecognitionError) Unwrap() error {
	return e.Err
}

// Result is one recognition result
type Result struct {
	// Text is the recognized text
	Text string

	// IsFinal indicates a finalized utterance (true) or an interim fragment (false)
	IsFinal bool

	// Confidence is the confidence score (0.0 to 1.0) if available
	Confidence float64
}

// Recognizer is the interface for continuous speech recognition clients
type Recognizer interface {
	// Start begins a recognition session
	Start() error

	// SendAudio forwards a chunk of candidate audio
	SendAudio(data []byte) error

	// Results returns the stream of interim and final results
	Results() <-chan Result

	// Errors returns coded recognition failures
	Errors() <-chan *RecognitionError

	// Stop ends the recognition session. Safe to call more than once.
	Stop() error

	// Close releases the client entirely
	Close() error

	// IsActive reports whether a recognition session is live
	IsActive() bool
}
