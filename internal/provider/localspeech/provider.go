// Package localspeech composes streaming speech recognition, speech
// synthesis and the question generator into a voice backend that drives the
// interview turn-taking loop itself. It is the always-available fallback to
// the managed voice service.
package localspeech

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/prepwise/interview-gateway/internal/observability"
	"github.com/prepwise/interview-gateway/internal/provider"
	"github.com/prepwise/interview-gateway/internal/questions"
	"github.com/prepwise/interview-gateway/internal/stt"
	"github.com/prepwise/interview-gateway/internal/transcript"
	"github.com/prepwise/interview-gateway/internal/tts"
)

// listenState models the listening loop explicitly so the "never restart
// after a deliberate stop" invariant is checkable.
type listenState int

const (
	stateListening listenState = iota
	stateStoppedTransient
	stateStoppedByUser
)

// Config holds per-session settings for the local pipeline
type Config struct {
	CandidateName string
	Company       string
	Question      questions.Context

	// FollowUpDelay is the pause between finishing a follow-up and asking
	// the next planned question, to emulate natural pacing
	FollowUpDelay time.Duration

	// RestartAttempts / RestartBackoff bound recognizer restarts on
	// transient no-speech conditions
	RestartAttempts int
	RestartBackoff  time.Duration
}

// Provider implements provider.VoiceProvider over a recognizer, a
// synthesizer and the question generator.
type Provider struct {
	cfg        Config
	recognizer stt.Recognizer
	synth      tts.Synthesizer
	generator  *questions.Generator
	logger     zerolog.Logger

	events     chan provider.Event
	utterances chan string

	mu      sync.Mutex
	active  bool
	muted   bool
	listen  listenState
	plan    *questions.Plan
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a local speech provider. The recognizer and synthesizer are
// owned by the provider once Start succeeds and are released by Stop.
func New(cfg Config, recognizer stt.Recognizer, synth tts.Synthesizer, generator *questions.Generator) *Provider {
	if cfg.FollowUpDelay <= 0 {
		cfg.FollowUpDelay = 1500 * time.Millisecond
	}
	if cfg.RestartAttempts <= 0 {
		cfg.RestartAttempts = 5
	}
	if cfg.RestartBackoff <= 0 {
		cfg.RestartBackoff = 250 * time.Millisecond
	}
	return &Provider{
		cfg:        cfg,
		recognizer: recognizer,
		synth:      synth,
		generator:  generator,
		logger:     observability.GetLogger().With().Str("component", "localspeech").Logger(),
		events:     make(chan provider.Event, 64),
		utterances: make(chan string, 16),
	}
}

// Name identifies the backend
func (p *Provider) Name() string { return "local" }

// Start generates the question plan, begins recognition and launches the
// conversation driver. A recognition start failure is returned synchronously.
func (p *Provider) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.active {
		p.mu.Unlock()
		return fmt.Errorf("local provider is already active")
	}
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.mu.Unlock()

	// Never fails; degrades to the static bank
	plan := p.generator.GeneratePlan(p.ctx, p.cfg.Question)

	if err := p.recognizer.Start(); err != nil {
		p.cancel()
		return fmt.Errorf("failed to start recognition: %w", err)
	}

	p.mu.Lock()
	p.active = true
	p.listen = stateListening
	p.plan = plan
	p.mu.Unlock()

	p.wg.Add(3)
	go p.resultLoop()
	go p.errorLoop()
	go p.drive()

	p.emit(provider.Event{Type: provider.EventStarted})
	p.logger.Info().Int("questions", plan.Total()).Msg("Local speech session started")
	return nil
}

// Stop ends the session and releases the recognizer and synthesizer. Safe to
// call more than once; recognition never restarts after a deliberate stop.
func (p *Provider) Stop() error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	p.active = false
	p.listen = stateStoppedByUser
	cancel := p.cancel
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	p.synth.Cancel()
	if err := p.recognizer.Stop(); err != nil {
		p.logger.Warn().Err(err).Msg("Error stopping recognizer")
	}
	if err := p.recognizer.Close(); err != nil {
		p.logger.Warn().Err(err).Msg("Error closing recognizer")
	}
	if err := p.synth.Close(); err != nil {
		p.logger.Warn().Err(err).Msg("Error closing synthesizer")
	}

	go func() {
		p.wg.Wait()
		close(p.events)
	}()

	p.logger.Info().Msg("Local speech session stopped")
	return nil
}

// SetMuted suspends candidate audio forwarding
func (p *Provider) SetMuted(muted bool) error {
	p.mu.Lock()
	p.muted = muted
	p.mu.Unlock()
	return nil
}

// SetSuspended pauses the pipeline: recognition stops and any in-flight
// utterance is cancelled. Resuming restarts recognition.
func (p *Provider) SetSuspended(suspended bool) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	if suspended {
		p.listen = stateStoppedTransient
	} else {
		p.listen = stateListening
	}
	p.mu.Unlock()

	if suspended {
		p.synth.Cancel()
		return p.recognizer.Stop()
	}
	return p.recognizer.Start()
}

// IsActive reports whether the session is live
func (p *Provider) IsActive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Events returns the provider event stream
func (p *Provider) Events() <-chan provider.Event {
	return p.events
}

// SendAudio forwards candidate microphone audio to the recognizer. Audio is
// dropped while muted.
func (p *Provider) SendAudio(data []byte) error {
	p.mu.Lock()
	muted := p.muted
	active := p.active
	p.mu.Unlock()

	if !active || muted {
		return nil
	}
	return p.recognizer.SendAudio(data)
}

// Progress returns how many planned questions have been asked
func (p *Provider) Progress() (asked, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.plan == nil {
		return 0, 0
	}
	return p.plan.Asked(), p.plan.Total()
}

// resultLoop forwards recognition results: interim fragments for live
// display, finalized utterances into the transcript and the driver.
func (p *Provider) resultLoop() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case result, ok := <-p.recognizer.Results():
			if !ok {
				return
			}
			if result.Text == "" {
				continue
			}

			if !result.IsFinal {
				p.emit(provider.Event{
					Type:    provider.EventInterim,
					Speaker: transcript.SpeakerCandidate,
					Text:    result.Text,
				})
				continue
			}

			p.emit(provider.Event{
				Type:    provider.EventTranscript,
				Speaker: transcript.SpeakerCandidate,
				Text:    result.Text,
			})

			select {
			case p.utterances <- result.Text:
			default:
				p.logger.Warn().Msg("Utterance queue full, dropping candidate utterance")
			}
		}
	}
}

// errorLoop reacts to recognition failures: transient no-speech conditions
// restart the listening loop silently, everything else is surfaced without
// ending the session.
func (p *Provider) errorLoop() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case recErr, ok := <-p.recognizer.Errors():
			if !ok {
				return
			}

			if recErr.Code.Transient() {
				p.restartListening()
				continue
			}

			p.logger.Warn().
				Str("code", string(recErr.Code)).
				Err(recErr.Err).
				Msg("Recognition failure surfaced to session")
			p.mu.Lock()
			p.listen = stateStoppedTransient
			p.mu.Unlock()
			p.emit(provider.Event{
				Type:  provider.EventError,
				Err:   recErr,
				Fatal: false,
			})
		}
	}
}

// restartListening restarts recognition after a transient stop, unless the
// loop was deliberately stopped.
func (p *Provider) restartListening() {
	p.mu.Lock()
	if p.listen != stateListening {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	backoff := p.cfg.RestartBackoff
	for attempt := 0; attempt < p.cfg.RestartAttempts; attempt++ {
		select {
		case <-p.ctx.Done():
			return
		default:
		}

		p.mu.Lock()
		if p.listen != stateListening {
			p.mu.Unlock()
			return
		}
		p.mu.Unlock()

		_ = p.recognizer.Stop()
		if err := p.recognizer.Start(); err == nil {
			p.logger.Debug().Int("attempt", attempt+1).Msg("Listening loop restarted")
			return
		}

		select {
		case <-p.ctx.Done():
			return
		case <-time.After(backoff):
			backoff *= 2
		}
	}

	p.logger.Warn().Msg("Listening loop restart attempts exhausted")
	p.emit(provider.Event{
		Type:  provider.EventError,
		Err:   fmt.Errorf("unable to restart recognition after %d attempts", p.cfg.RestartAttempts),
		Fatal: false,
	})
}

// drive runs the interview conversation: greeting, planned questions,
// per-answer follow-ups, closing statement.
func (p *Provider) drive() {
	defer p.wg.Done()

	greeting := fmt.Sprintf(
		"Hi %s, thanks for joining. I'll be your interviewer for this %s practice session for the %s role at %s. Let's get started.",
		p.cfg.CandidateName, p.cfg.Question.InterviewType, p.cfg.Question.Role, p.cfg.Company)
	if err := p.say(greeting); err != nil {
		return
	}

	if !p.askNext() {
		return
	}

	for {
		select {
		case <-p.ctx.Done():
			return
		case answer := <-p.utterances:
			followUp := p.generator.GenerateFollowUp(p.ctx, answer, p.cfg.Question)

			// A late generation result after teardown must not speak
			select {
			case <-p.ctx.Done():
				return
			default:
			}

			if followUp != "" {
				if err := p.say(followUp); err != nil {
					return
				}
				if !p.pause(p.cfg.FollowUpDelay) {
					return
				}
			}

			if !p.askNext() {
				return
			}
		}
	}
}

// askNext speaks the next planned question, or the closing statement when
// the plan is exhausted. Returns false when the conversation is over.
func (p *Provider) askNext() bool {
	p.mu.Lock()
	question, ok := "", false
	if p.plan != nil {
		question, ok = p.plan.Next()
	}
	p.mu.Unlock()

	if !ok {
		closing := fmt.Sprintf(
			"That's all the questions I had for you today, %s. Thanks for practicing with me, and good luck with the real thing.",
			p.cfg.CandidateName)
		if err := p.say(closing); err != nil {
			return false
		}
		p.emit(provider.Event{Type: provider.EventEnded})
		return false
	}

	return p.say(question) == nil
}

// say speaks interviewer text aloud and records it in the transcript stream.
// Playback is awaited so spoken turns never overlap.
func (p *Provider) say(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	p.emit(provider.Event{
		Type:    provider.EventTranscript,
		Speaker: transcript.SpeakerInterviewer,
		Text:    text,
	})

	if err := p.synth.Speak(p.ctx, text); err != nil {
		if p.ctx.Err() != nil {
			return p.ctx.Err()
		}
		// Synthesis trouble should not kill the interview; the question is
		// already in the transcript stream for on-screen display.
		p.logger.Warn().Err(err).Msg("Speech synthesis failed, continuing")
	}
	return nil
}

func (p *Provider) pause(d time.Duration) bool {
	select {
	case <-p.ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

func (p *Provider) emit(ev provider.Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	select {
	case p.events <- ev:
	default:
		p.logger.Warn().Str("type", string(ev.Type)).Msg("Event channel full, dropping event")
	}
}
