package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/prepwise/interview-gateway/internal/evaluation"
	"github.com/prepwise/interview-gateway/internal/observability"
	"github.com/prepwise/interview-gateway/internal/provider"
	"github.com/prepwise/interview-gateway/internal/transcript"
)

// ProviderFactory builds a voice backend for one session
type ProviderFactory func(cfg Config, sessionID string) (provider.VoiceProvider, error)

// Deps wires the orchestrator's collaborators. NewLocal is required; a nil
// NewManaged disables the managed backend entirely. A nil Evaluator skips the
// evaluation handoff.
type Deps struct {
	NewManaged ProviderFactory
	NewLocal   ProviderFactory
	Evaluator  evaluation.Submitter
}

// Orchestrator owns at most one live interview session. It selects a voice
// backend, falls back silently from managed to local when the managed service
// cannot start, relays provider events to the caller as updates, and hands
// the finished transcript to the evaluation service exactly once.
type Orchestrator struct {
	deps   Deps
	logger zerolog.Logger

	updates chan Update

	mu         sync.Mutex
	status     Status
	cfg        Config
	sessionID  string
	mode       VoiceMode
	prov       provider.VoiceProvider
	timer      *Timer
	log        *transcript.Log
	metrics    *observability.SessionMetrics
	muted      bool
	wrapUpSent bool
	ended      bool

	// epoch invalidates in-flight goroutines from a previous or torn-down
	// session; results carrying a stale epoch are discarded
	epoch int
}

// NewOrchestrator creates an idle orchestrator
func NewOrchestrator(deps Deps) *Orchestrator {
	return &Orchestrator{
		deps:    deps,
		logger:  observability.GetLogger().With().Str("component", "session").Logger(),
		updates: make(chan Update, 128),
		status:  StatusIdle,
		timer:   NewTimer(),
		log:     transcript.NewLog(),
	}
}

// Updates returns the orchestrator's notification stream. The channel is
// never closed; it spans sessions.
func (o *Orchestrator) Updates() <-chan Update {
	return o.updates
}

// Status returns the current lifecycle state
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// SessionID returns the identifier of the current or most recent session
func (o *Orchestrator) SessionID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sessionID
}

// Mode returns the voice mode the current session connected with
func (o *Orchestrator) Mode() VoiceMode {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.mode
}

// Elapsed returns the accumulated interview time
func (o *Orchestrator) Elapsed() time.Duration {
	o.mu.Lock()
	timer := o.timer
	o.mu.Unlock()
	return timer.Elapsed()
}

// Transcript returns a copy of the transcript entries so far
func (o *Orchestrator) Transcript() []transcript.Entry {
	o.mu.Lock()
	log := o.log
	o.mu.Unlock()
	return log.Entries()
}

// Start validates the configuration and begins connecting. Validation and
// already-active failures are returned synchronously; connection failures
// arrive asynchronously on the update stream, after the fallback attempt.
func (o *Orchestrator) Start(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid session configuration: %w", err)
	}

	o.mu.Lock()
	switch o.status {
	case StatusConnecting, StatusConnected, StatusPaused:
		o.mu.Unlock()
		return fmt.Errorf("a session is already active")
	}

	o.epoch++
	epoch := o.epoch
	o.cfg = cfg
	o.sessionID = observability.NewSessionID()
	o.status = StatusConnecting
	o.mode = ""
	o.muted = false
	o.wrapUpSent = false
	o.ended = false
	o.timer = NewTimer()
	o.log = transcript.NewLog()
	o.metrics = observability.NewSessionMetrics(o.sessionID)
	sessionID := o.sessionID
	o.mu.Unlock()

	logger := observability.WithSessionID(sessionID)
	logger.Info().
		Str("interview_type", cfg.InterviewType).
		Int("duration_minutes", cfg.DurationMinutes).
		Msg("Starting interview session")
	o.emit(Update{Type: UpdateStatus, Status: StatusConnecting})

	go o.connect(ctx, epoch, cfg, sessionID)
	return nil
}

// connect tries the managed backend first (unless local was requested) and
// falls back to the local backend silently. Only a failure of the last
// candidate is surfaced.
func (o *Orchestrator) connect(ctx context.Context, epoch int, cfg Config, sessionID string) {
	var (
		prov     provider.VoiceProvider
		fellBack bool
	)
	logger := observability.WithSessionID(sessionID)

	useManaged := cfg.Mode != ModeLocal && o.deps.NewManaged != nil
	if useManaged {
		p, err := o.buildAndStart(ctx, o.deps.NewManaged, cfg, sessionID)
		if err != nil {
			logger.Warn().Err(err).
				Msg("Managed provider failed to start, falling back to local")
			fellBack = true
		} else {
			prov = p
		}
	}

	if prov == nil {
		p, err := o.buildAndStart(ctx, o.deps.NewLocal, cfg, sessionID)
		if err != nil {
			o.failConnect(epoch, fmt.Errorf("unable to start a voice session: %w", err))
			return
		}
		prov = p
	}

	o.mu.Lock()
	if o.epoch != epoch {
		// Session was ended while connecting; release the provider we just
		// acquired
		o.mu.Unlock()
		_ = prov.Stop()
		return
	}
	o.prov = prov
	o.mode = VoiceMode(prov.Name())
	o.status = StatusConnected
	o.timer.Start()
	metrics := o.metrics
	o.mu.Unlock()

	metrics.RecordSessionStart(prov.Name())
	metrics.RecordProviderConnected(prov.Name())
	if fellBack {
		metrics.RecordFallback()
	}

	logger.Info().
		Str("provider", prov.Name()).
		Bool("fallback", fellBack).
		Msg("Interview session connected")

	o.emit(Update{Type: UpdateStatus, Status: StatusConnected, Mode: VoiceMode(prov.Name())})
	if fellBack {
		// Exactly one notice per session, after connected, so the user
		// understands reduced fidelity without seeing an error
		o.emit(Update{
			Type: UpdateNotice,
			Text: "The premium voice service is unavailable. Continuing in standard voice mode.",
		})
	}

	go o.eventLoop(epoch, prov)
	go o.tick(epoch, cfg.DurationMinutes)
}

func (o *Orchestrator) buildAndStart(ctx context.Context, factory ProviderFactory, cfg Config, sessionID string) (provider.VoiceProvider, error) {
	p, err := factory(cfg, sessionID)
	if err != nil {
		return nil, err
	}
	if err := p.Start(ctx); err != nil {
		_ = p.Stop()
		return nil, err
	}
	return p, nil
}

// failConnect surfaces a fatal start failure and returns the orchestrator to
// idle.
func (o *Orchestrator) failConnect(epoch int, err error) {
	o.mu.Lock()
	if o.epoch != epoch {
		o.mu.Unlock()
		return
	}
	o.epoch++
	o.status = StatusIdle
	o.prov = nil
	sessionID := o.sessionID
	o.mu.Unlock()

	logger := observability.WithSessionID(sessionID)
	logger.Error().Err(err).Msg("Session failed to start")
	observability.RecordComponentError("session_start_failed", "session")
	o.emit(Update{Type: UpdateError, Error: err.Error(), Fatal: true})
	o.emit(Update{Type: UpdateStatus, Status: StatusIdle})
}

// eventLoop relays provider events until the provider's channel closes or the
// session is torn down.
func (o *Orchestrator) eventLoop(epoch int, prov provider.VoiceProvider) {
	for ev := range prov.Events() {
		o.mu.Lock()
		stale := o.epoch != epoch
		log := o.log
		metrics := o.metrics
		o.mu.Unlock()
		if stale {
			// Late events from a torn-down session must not mutate anything
			continue
		}

		switch ev.Type {
		case provider.EventStarted:
			// Connection success was already handled synchronously

		case provider.EventTranscript:
			entry, ok := log.Append(ev.Speaker, ev.Text)
			if !ok {
				continue
			}
			metrics.RecordTranscriptEntry(string(entry.Speaker))
			// The emitted entry is the stored one, so live listeners and the
			// persisted transcript agree on text and timestamp
			o.emit(Update{
				Type:    UpdateTranscript,
				Speaker: entry.Speaker,
				Text:    entry.Text,
				Entry:   &entry,
			})

		case provider.EventInterim:
			o.emit(Update{Type: UpdateInterim, Speaker: ev.Speaker, Text: ev.Text})

		case provider.EventError:
			if ev.Fatal {
				o.logger.Error().Err(ev.Err).Msg("Fatal provider error, ending session")
				metrics.RecordError("provider_fatal", string(o.Mode()))
				o.emit(Update{Type: UpdateError, Error: ev.Err.Error(), Fatal: true})
				_ = o.End(context.Background())
				return
			}
			// Device and permission trouble is surfaced but the session
			// stays up so the user can retry or end deliberately
			metrics.RecordError("provider_error", string(o.Mode()))
			o.emit(Update{Type: UpdateError, Error: ev.Err.Error(), Fatal: false})

		case provider.EventEnded:
			o.logger.Info().Msg("Provider ended the session")
			_ = o.End(context.Background())
			return
		}
	}
}

// tick publishes elapsed seconds once per second and emits a single wrap-up
// notice when the configured duration is reached. The session is not cut off;
// the duration limit is soft.
func (o *Orchestrator) tick(epoch int, durationMinutes int) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	limit := time.Duration(durationMinutes) * time.Minute
	for range ticker.C {
		o.mu.Lock()
		if o.epoch != epoch {
			o.mu.Unlock()
			return
		}
		elapsed := o.timer.Elapsed()
		sendWrapUp := !o.wrapUpSent && elapsed >= limit
		if sendWrapUp {
			o.wrapUpSent = true
		}
		o.mu.Unlock()

		o.emit(Update{Type: UpdateElapsed, Elapsed: int(elapsed.Seconds())})
		if sendWrapUp {
			o.emit(Update{Type: UpdateNotice, Text: "You have reached the planned interview length. Feel free to wrap up."})
		}
	}
}

// ToggleMute flips the microphone state. Valid only while connected or
// paused.
func (o *Orchestrator) ToggleMute() (bool, error) {
	o.mu.Lock()
	if o.status != StatusConnected && o.status != StatusPaused {
		o.mu.Unlock()
		return false, fmt.Errorf("no active session to mute")
	}
	o.muted = !o.muted
	muted := o.muted
	prov := o.prov
	o.mu.Unlock()

	if err := prov.SetMuted(muted); err != nil {
		return muted, fmt.Errorf("failed to update mute state: %w", err)
	}
	o.logger.Debug().Bool("muted", muted).Msg("Mute toggled")
	return muted, nil
}

// TogglePause switches between connected and paused. Pausing stops time
// accumulation and suspends audio capture when the backend supports it.
func (o *Orchestrator) TogglePause() (Status, error) {
	o.mu.Lock()
	var target Status
	switch o.status {
	case StatusConnected:
		target = StatusPaused
	case StatusPaused:
		target = StatusConnected
	default:
		o.mu.Unlock()
		return "", fmt.Errorf("no active session to pause")
	}
	o.status = target
	if target == StatusPaused {
		o.timer.Stop()
	} else {
		o.timer.Start()
	}
	prov := o.prov
	o.mu.Unlock()

	if s, ok := prov.(provider.Suspender); ok {
		if err := s.SetSuspended(target == StatusPaused); err != nil {
			o.logger.Warn().Err(err).Msg("Provider suspend request failed")
		}
	}

	o.logger.Info().Str("status", string(target)).Msg("Pause toggled")
	o.emit(Update{Type: UpdateStatus, Status: target})
	return target, nil
}

// SendAudio forwards candidate microphone audio to the active provider, when
// it accepts forwarded audio.
func (o *Orchestrator) SendAudio(data []byte) error {
	o.mu.Lock()
	prov := o.prov
	active := o.status == StatusConnected
	metrics := o.metrics
	o.mu.Unlock()

	if !active || prov == nil {
		return nil
	}
	sink, ok := prov.(provider.AudioSink)
	if !ok {
		return nil
	}
	metrics.RecordAudioBytes("in", int64(len(data)))
	return sink.SendAudio(data)
}

// End tears the session down: timer stopped, provider released, transcript
// rendered exactly once and handed to the evaluation service. Safe to call
// from any state and idempotent; a second call is a no-op.
func (o *Orchestrator) End(ctx context.Context) error {
	o.mu.Lock()
	if o.status == StatusIdle || o.ended {
		o.mu.Unlock()
		return nil
	}
	o.ended = true
	o.epoch++
	endEpoch := o.epoch
	o.timer.Stop()
	prov := o.prov
	o.prov = nil
	log := o.log
	metrics := o.metrics
	sessionID := o.sessionID
	o.status = StatusEnded
	o.mu.Unlock()

	o.emit(Update{Type: UpdateStatus, Status: StatusEnded})

	if prov != nil {
		if err := prov.Stop(); err != nil {
			o.logger.Warn().Err(err).Msg("Error stopping provider")
		}
	}
	if metrics != nil {
		metrics.RecordSessionEnd()
	}

	// Rendered exactly once; the evaluation handoff gets this string and
	// nothing re-renders it later
	transcriptText := log.Render()

	logger := observability.WithSessionID(sessionID)
	logger.Info().
		Int("entries", log.Len()).
		Msg("Interview session ended")

	if o.deps.Evaluator != nil && transcriptText != "" {
		go func() {
			if err := o.deps.Evaluator.Submit(ctx, sessionID, transcriptText); err != nil {
				// The session stays ended; the transcript is preserved for a
				// retry by the upstream layer
				logger.Error().Err(err).Msg("Evaluation handoff failed")
				o.emit(Update{Type: UpdateError, Error: "evaluation submission failed: " + err.Error(), Fatal: false})
			}
		}()
	}

	o.mu.Lock()
	if o.epoch != endEpoch {
		// A new session started while the provider was being released; its
		// state must not be clobbered back to idle
		o.mu.Unlock()
		return nil
	}
	o.status = StatusIdle
	o.mu.Unlock()
	o.emit(Update{Type: UpdateStatus, Status: StatusIdle})
	return nil
}

func (o *Orchestrator) emit(u Update) {
	select {
	case o.updates <- u:
	default:
		o.logger.Warn().Str("type", string(u.Type)).Msg("Update channel full, dropping update")
	}
}
