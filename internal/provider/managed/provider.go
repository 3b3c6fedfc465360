// Package managed adapts the hosted voice interview service to the
// provider.VoiceProvider interface. The service runs the whole conversation
// remotely; this adapter speaks its WebSocket protocol and translates server
// messages into generic provider events.
package managed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/prepwise/interview-gateway/internal/observability"
	"github.com/prepwise/interview-gateway/internal/provider"
	"github.com/prepwise/interview-gateway/internal/transcript"
)

// Config holds connection settings for one managed session
type Config struct {
	// ServiceURL is the WebSocket endpoint of the hosted voice service
	ServiceURL string

	// APIKey authenticates the gateway to the service
	APIKey string

	// AssistantID selects the remote interview persona. Required: without it
	// the service cannot run a session, so Start fails before dialing.
	AssistantID string

	// Metadata is forwarded to the service on session start (candidate name,
	// role, company and similar presentation details)
	Metadata map[string]string

	// DialTimeout bounds the WebSocket handshake
	DialTimeout time.Duration
}

// serverMessage is the envelope for every JSON frame the service sends
type serverMessage struct {
	Type    string `json:"type"`
	Role    string `json:"role,omitempty"`
	Text    string `json:"text,omitempty"`
	Final   *bool  `json:"final,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// clientMessage is the envelope for JSON frames sent to the service
type clientMessage struct {
	Type        string            `json:"type"`
	AssistantID string            `json:"assistantId,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Muted       *bool             `json:"muted,omitempty"`
}

// Provider implements provider.VoiceProvider over the hosted service's
// WebSocket protocol.
type Provider struct {
	cfg    Config
	logger zerolog.Logger

	events chan provider.Event

	mu      sync.RWMutex
	conn    *websocket.Conn
	writeMu sync.Mutex
	active  bool
	stopped bool

	done chan struct{}
}

// New creates a managed provider. The connection is established by Start.
func New(cfg Config) *Provider {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	return &Provider{
		cfg:    cfg,
		logger: observability.GetLogger().With().Str("component", "managed").Logger(),
		events: make(chan provider.Event, 64),
		done:   make(chan struct{}),
	}
}

// Name identifies the backend
func (p *Provider) Name() string { return "managed" }

// Start validates the configuration, dials the service and begins the
// session. Any failure is returned synchronously so the caller can fall back
// to another backend; nothing is emitted on the event channel for a failed
// start.
func (p *Provider) Start(ctx context.Context) error {
	if p.cfg.AssistantID == "" {
		return fmt.Errorf("managed voice service is not configured: missing assistant ID")
	}
	if p.cfg.ServiceURL == "" {
		return fmt.Errorf("managed voice service is not configured: missing service URL")
	}
	if _, err := url.Parse(p.cfg.ServiceURL); err != nil {
		return fmt.Errorf("invalid managed voice service URL %q: %w", p.cfg.ServiceURL, err)
	}

	p.mu.Lock()
	if p.active {
		p.mu.Unlock()
		return fmt.Errorf("managed provider is already active")
	}
	p.mu.Unlock()

	dialer := websocket.Dialer{HandshakeTimeout: p.cfg.DialTimeout}
	header := http.Header{}
	if p.cfg.APIKey != "" {
		header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}

	conn, resp, err := dialer.DialContext(ctx, p.cfg.ServiceURL, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("failed to connect to voice service (status %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("failed to connect to voice service: %w", err)
	}

	start := clientMessage{
		Type:        "start",
		AssistantID: p.cfg.AssistantID,
		Metadata:    p.cfg.Metadata,
	}
	if err := conn.WriteJSON(start); err != nil {
		conn.Close()
		return fmt.Errorf("failed to start managed session: %w", err)
	}

	p.mu.Lock()
	p.conn = conn
	p.active = true
	p.mu.Unlock()

	go p.readLoop()

	p.emit(provider.Event{Type: provider.EventStarted})
	p.logger.Info().Str("assistant_id", p.cfg.AssistantID).Msg("Managed voice session started")
	return nil
}

// Stop ends the session and closes the connection. Safe to call more than
// once.
func (p *Provider) Stop() error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	p.active = false
	conn := p.conn
	p.mu.Unlock()

	close(p.done)

	if conn != nil {
		// Best effort: tell the service the session is over before closing
		p.writeMu.Lock()
		_ = conn.WriteJSON(clientMessage{Type: "end"})
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		p.writeMu.Unlock()
		if err := conn.Close(); err != nil {
			p.logger.Warn().Err(err).Msg("Error closing voice service connection")
		}
	}

	p.logger.Info().Msg("Managed voice session stopped")
	return nil
}

// SetMuted asks the service to ignore candidate audio
func (p *Provider) SetMuted(muted bool) error {
	p.mu.RLock()
	conn := p.conn
	active := p.active
	p.mu.RUnlock()

	if !active || conn == nil {
		return nil
	}

	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	if err := conn.WriteJSON(clientMessage{Type: "mute", Muted: &muted}); err != nil {
		return fmt.Errorf("failed to update mute state: %w", err)
	}
	return nil
}

// IsActive reports whether the session is live
func (p *Provider) IsActive() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.active
}

// Events returns the provider event stream
func (p *Provider) Events() <-chan provider.Event {
	return p.events
}

// SendAudio forwards candidate microphone audio to the service as a binary
// frame.
func (p *Provider) SendAudio(data []byte) error {
	p.mu.RLock()
	conn := p.conn
	active := p.active
	p.mu.RUnlock()

	if !active || conn == nil {
		return nil
	}

	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return fmt.Errorf("failed to send audio to voice service: %w", err)
	}
	return nil
}

// readLoop translates service messages into provider events until the
// connection closes or Stop is called.
func (p *Provider) readLoop() {
	defer func() {
		p.mu.Lock()
		p.active = false
		p.mu.Unlock()
		close(p.events)
	}()

	for {
		select {
		case <-p.done:
			return
		default:
		}

		var msg serverMessage
		if err := p.conn.ReadJSON(&msg); err != nil {
			select {
			case <-p.done:
				// Expected: Stop closed the connection under us
				return
			default:
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				p.logger.Warn().Err(err).Msg("Voice service connection lost")
			}
			p.emit(provider.Event{
				Type:  provider.EventError,
				Err:   fmt.Errorf("voice service connection lost: %w", err),
				Fatal: true,
			})
			return
		}

		switch msg.Type {
		case "call-start":
			p.logger.Debug().Msg("Voice service confirmed session start")

		case "call-end":
			p.logger.Info().Msg("Voice service ended the session")
			p.emit(provider.Event{Type: provider.EventEnded})
			return

		case "message":
			speaker := transcript.SpeakerInterviewer
			if msg.Role == "user" || msg.Role == "candidate" {
				speaker = transcript.SpeakerCandidate
			}
			eventType := provider.EventTranscript
			if msg.Final != nil && !*msg.Final {
				eventType = provider.EventInterim
			}
			p.emit(provider.Event{
				Type:    eventType,
				Speaker: speaker,
				Text:    msg.Text,
			})

		case "error":
			p.logger.Warn().
				Str("code", msg.Code).
				Str("message", msg.Message).
				Msg("Voice service reported an error")
			p.emit(provider.Event{
				Type:  provider.EventError,
				Err:   fmt.Errorf("voice service error %s: %s", msg.Code, msg.Message),
				Fatal: msg.Code == "fatal" || msg.Code == "session-failed",
			})

		default:
			p.logger.Debug().Str("type", msg.Type).Msg("Ignoring unknown voice service message")
		}
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
