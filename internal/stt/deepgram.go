package stt

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	websocketv1api "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket"
	msginterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket/interfaces"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	listenClient "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
	"github.com/rs/zerolog"

	"github.com/prepwise/interview-gateway/internal/config"
	"github.com/prepwise/interview-gateway/internal/observability"
)

// deepgramCallback implements the LiveMessageCallback interface. It embeds
// the default handler and overrides only the methods we care about.
type deepgramCallback struct {
	*websocketv1api.DefaultCallbackHandler
	onMessage func(*msginterfaces.MessageResponse)
	onUttEnd  func()
	onError   func(*msginterfaces.ErrorResponse) error
}

func (c *deepgramCallback) Message(message *msginterfaces.MessageResponse) error {
	c.onMessage(message)
	return nil
}

func (c *deepgramCallback) UtteranceEnd(ur *msginterfaces.UtteranceEndResponse) error {
	if c.onUttEnd != nil {
		c.onUttEnd()
	}
	return nil
}

func (c *deepgramCallback) Error(errorResponse *msginterfaces.ErrorResponse) error {
	if c.onError != nil {
		return c.onError(errorResponse)
	}
	return c.DefaultCallbackHandler.Error(errorResponse)
}

// DeepgramRecognizer implements Recognizer using Deepgram's streaming API
type DeepgramRecognizer struct {
	config  *config.Config
	logger  zerolog.Logger
	client  *listenClient.WSCallback
	results chan Result
	errs    chan *RecognitionError

	mu        sync.RWMutex
	isActive  bool
	sawSpeech bool // any transcript text since the current Start

	ctx    context.Context
	cancel context.CancelFunc
}

// NewDeepgramRecognizer creates a new Deepgram streaming recognizer
func NewDeepgramRecognizer(cfg *config.Config) *DeepgramRecognizer {
	ctx, cancel := context.WithCancel(context.Background())
	return &DeepgramRecognizer{
		config:  cfg,
		logger:  observability.GetLogger().With().Str("component", "stt").Logger(),
		results: make(chan Result, 100),
		errs:    make(chan *RecognitionError, 10),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start begins a new streaming recognition session
func (d *DeepgramRecognizer) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.isActive {
		return fmt.Errorf("deepgram recognizer is already active")
	}

	tOptions := &interfaces.LiveTranscriptionOptions{
		Model:          d.config.DeepgramModel,
		Language:       d.config.DeepgramLanguage,
		Punctuate:      true,
		InterimResults: true,
		UtteranceEndMs: "1000",
		VadEvents:      true,
		Encoding:       "linear16",
		Channels:       1,
		SampleRate:     16000,
	}

	callback := &deepgramCallback{
		DefaultCallbackHandler: websocketv1api.NewDefaultCallbackHandler(),
		onMessage:              d.handleMessage,
		onUttEnd:               d.handleUtteranceEnd,
		onError: func(errorResponse *msginterfaces.ErrorResponse) error {
			d.mu.Lock()
			d.isActive = false
			d.mu.Unlock()
			d.emitError(classifyDeepgramError(errorResponse), fmt.Errorf("deepgram: %s", errorResponse.Description))
			return nil
		},
	}

	client, err := listenClient.NewWSUsingCallback(
		d.ctx,
		d.config.DeepgramAPIKey,
		nil, // ClientOptions - nil uses defaults
		tOptions,
		callback,
	)
	if err != nil {
		return &RecognitionError{Code: classifyErr(err), Err: err}
	}

	d.client = client
	d.isActive = true
	d.sawSpeech = false

	d.logger.Debug().
		Str("model", d.config.DeepgramModel).
		Str("language", d.config.DeepgramLanguage).
		Msg("Deepgram recognition session started")
	return nil
}

func (d *DeepgramRecognizer) handleMessage(msg *msginterfaces.MessageResponse) {
	if msg == nil {
		return
	}

	switch msg.Type {
	case "Results", "Message":
		if len(msg.Channel.Alternatives) == 0 {
			return
		}
		alt := msg.Channel.Alternatives[0]
		if alt.Transcript == "" {
			return
		}

		d.mu.Lock()
		d.sawSpeech = true
		d.mu.Unlock()

		result := Result{
			Text:       alt.Transcript,
			IsFinal:    msg.IsFinal,
			Confidence: alt.Confidence,
		}

		select {
		case d.results <- result:
		default:
			d.logger.Warn().Msg("Result channel full, dropping recognition result")
		}

	case "SpeechStarted", "Metadata":
		// Informational only
	}
}

// handleUtteranceEnd fires when Deepgram closes an utterance window. If no
// transcript text was seen since the session started, the window closed on
// silence and the loop should restart.
func (d *DeepgramRecognizer) handleUtteranceEnd() {
	d.mu.Lock()
	saw := d.sawSpeech
	d.sawSpeech = false
	d.mu.Unlock()

	if !saw {
		d.emitError(CodeNoSpeech, nil)
	}
}

func (d *DeepgramRecognizer) emitError(code ErrorCode, err error) {
	select {
	case d.errs <- &RecognitionError{Code: code, Err: err}:
	default:
		d.logger.Warn().Str("code", string(code)).Msg("Error channel full, dropping recognition error")
	}
}

// SendAudio forwards a chunk of candidate audio to Deepgram
func (d *DeepgramRecognizer) SendAudio(data []byte) error {
	d.mu.RLock()
	active := d.isActive
	client := d.client
	d.mu.RUnlock()

	if !active || client == nil {
		return fmt.Errorf("deepgram recognizer is not active")
	}

	if _, err := client.Write(data); err != nil {
		return &RecognitionError{Code: classifyErr(err), Err: err}
	}
	return nil
}

// Results returns the recognition result stream
func (d *DeepgramRecognizer) Results() <-chan Result {
	return d.results
}

// Errors returns the coded recognition error stream
func (d *DeepgramRecognizer) Errors() <-chan *RecognitionError {
	return d.errs
}

// Stop ends the recognition session
func (d *DeepgramRecognizer) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.isActive {
		return nil
	}

	d.client.Finish()
	d.isActive = false
	d.logger.Debug().Msg("Deepgram recognition session stopped")
	return nil
}

// Close releases the recognizer entirely
func (d *DeepgramRecognizer) Close() error {
	d.cancel()

	if err := d.Stop(); err != nil {
		return err
	}

	// Delay channel close so in-flight reads drain
	go func() {
		time.Sleep(100 * time.Millisecond)
		close(d.results)
		close(d.errs)
	}()

	return nil
}

// IsActive reports whether a recognition session is live
func (d *DeepgramRecognizer) IsActive() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.isActive
}

func classifyDeepgramError(resp *msginterfaces.ErrorResponse) ErrorCode {
	if resp == nil {
		return CodeUnknown
	}
	return classifyMessage(resp.Description + " " + resp.ErrMsg)
}

func classifyErr(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}
	return classifyMessage(err.Error())
}

func classifyMessage(msg string) ErrorCode {
	msg = strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "unauthorized"),
		strings.Contains(msg, "forbidden"),
		strings.Contains(msg, "invalid credentials"),
		strings.Contains(msg, "401"):
		return CodeNotAllowed
	case strings.Contains(msg, "no speech"),
		strings.Contains(msg, "net0001"): // Deepgram: no audio received in time
		return CodeNoSpeech
	case strings.Contains(msg, "connection"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "unreachable"),
		strings.Contains(msg, "eof"):
		return CodeNetwork
	case strings.Contains(msg, "audio"),
		strings.Contains(msg, "encoding"),
		strings.Contains(msg, "sample rate"):
		return CodeAudioCapture
	}
	return CodeUnknown
}
