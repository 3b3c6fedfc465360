// Package gateway is the WebSocket surface between the browser client and
// the session orchestrator. Each connection carries JSON control frames from
// the client, JSON update frames to the client, and binary audio frames in
// both directions.
package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/prepwise/interview-gateway/internal/audio"
	"github.com/prepwise/interview-gateway/internal/config"
	"github.com/prepwise/interview-gateway/internal/evaluation"
	"github.com/prepwise/interview-gateway/internal/llm"
	"github.com/prepwise/interview-gateway/internal/observability"
	"github.com/prepwise/interview-gateway/internal/provider"
	"github.com/prepwise/interview-gateway/internal/provider/localspeech"
	"github.com/prepwise/interview-gateway/internal/provider/managed"
	"github.com/prepwise/interview-gateway/internal/questions"
	"github.com/prepwise/interview-gateway/internal/resilience"
	"github.com/prepwise/interview-gateway/internal/session"
	"github.com/prepwise/interview-gateway/internal/stt"
	"github.com/prepwise/interview-gateway/internal/tts"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// TODO: restrict to the web client's origin once it is deployed
		return true
	},
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// outboundFrameSize is the binary frame size for synthesized audio sent to
// the client: 100ms of 16kHz 16-bit mono PCM.
const outboundFrameSize = 3200

// commandFrame is a JSON control frame from the client
type commandFrame struct {
	Type   string          `json:"type"` // start, mute, pause, end
	Config *session.Config `json:"config,omitempty"`
}

// Gateway builds one orchestrator per client connection
type Gateway struct {
	cfg    *config.Config
	logger zerolog.Logger
}

// New creates the gateway handler
func New(cfg *config.Config) *Gateway {
	return &Gateway{
		cfg:    cfg,
		logger: observability.GetLogger().With().Str("component", "gateway").Logger(),
	}
}

// clientConn is one live WebSocket connection and its session
type clientConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	orch     *session.Orchestrator
	audioOut *audio.RingBuffer

	logger zerolog.Logger
	done   chan struct{}
	once   sync.Once
}

// Handler returns the WebSocket endpoint for interview sessions
func (g *Gateway) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			g.logger.Error().Err(err).Msg("Failed to upgrade connection")
			return
		}
		defer conn.Close()

		cc := &clientConn{
			conn:     conn,
			audioOut: audio.NewRingBuffer(g.cfg.AudioBufferSize),
			logger:   g.logger.With().Str("remote", conn.RemoteAddr().String()).Logger(),
			done:     make(chan struct{}),
		}
		cc.orch = session.NewOrchestrator(g.deps(cc))

		cc.logger.Info().Msg("Client connected")

		go cc.pumpUpdates()
		go cc.pumpAudio()

		cc.readLoop(r.Context())

		// The session must not outlive the connection
		_ = cc.orch.End(context.Background())
		cc.close()
		cc.logger.Info().Msg("Client disconnected")
	}
}

// deps wires the two provider factories and the evaluation client for one
// connection. Synthesized audio from the local pipeline flows into the
// connection's outbound ring buffer.
func (g *Gateway) deps(cc *clientConn) session.Deps {
	cfg := g.cfg

	var newManaged session.ProviderFactory
	if cfg.VoiceServiceURL != "" {
		newManaged = func(sc session.Config, sessionID string) (provider.VoiceProvider, error) {
			return managed.New(managed.Config{
				ServiceURL:  cfg.VoiceServiceURL,
				APIKey:      cfg.VoiceServiceAPIKey,
				AssistantID: cfg.AssistantID(sc.InterviewType),
				Metadata: map[string]string{
					"session_id": sessionID,
					"candidate":  sc.CandidateName,
					"role":       sc.Role,
					"company":    sc.Company,
					"experience": sc.ExperienceLevel,
					"difficulty": sc.Difficulty,
				},
			}), nil
		}
	}

	newLocal := func(sc session.Config, sessionID string) (provider.VoiceProvider, error) {
		recognizer := stt.NewDeepgramRecognizer(cfg)
		synth := tts.NewHTTPClient(cfg, func(data []byte) error {
			if n := cc.audioOut.Write(data); n < len(data) {
				cc.logger.Warn().Int("dropped", len(data)-n).Msg("Outbound audio buffer overflow")
			}
			return nil
		})
		generator := questions.NewGenerator(llm.NewHTTPClient(cfg))

		return localspeech.New(localspeech.Config{
			CandidateName: sc.CandidateName,
			Company:       sc.Company,
			Question: questions.Context{
				Role:            sc.Role,
				ExperienceLevel: sc.ExperienceLevel,
				InterviewType:   sc.InterviewType,
				Difficulty:      sc.Difficulty,
				Topics:          sc.Topics,
				DurationMinutes: sc.DurationMinutes,
				CustomQuestions: sc.CustomQuestions,
			},
			FollowUpDelay:   time.Duration(cfg.FollowUpDelayMs) * time.Millisecond,
			RestartAttempts: cfg.RecognizerRestartAttempts,
			RestartBackoff:  time.Duration(cfg.RecognizerRestartBackoff) * time.Millisecond,
		}, recognizer, synth, generator), nil
	}

	evaluator := evaluation.NewHTTPClient(
		cfg.EvaluationURL,
		cfg.EvaluationAPIKey,
		30*time.Second,
		&resilience.RetryConfig{
			MaxAttempts:       cfg.RetryMaxAttempts,
			InitialBackoff:    time.Duration(cfg.RetryInitialBackoff) * time.Millisecond,
			MaxBackoff:        5 * time.Second,
			BackoffMultiplier: 2.0,
		},
	)

	return session.Deps{
		NewManaged: newManaged,
		NewLocal:   newLocal,
		Evaluator:  evaluator,
	}
}

// readLoop processes client frames until the connection drops
func (cc *clientConn) readLoop(ctx context.Context) {
	for {
		msgType, data, err := cc.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				cc.logger.Warn().Err(err).Msg("WebSocket read error")
			}
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			if err := cc.orch.SendAudio(data); err != nil {
				cc.logger.Warn().Err(err).Msg("Failed to forward microphone audio")
			}

		case websocket.TextMessage:
			var cmd commandFrame
			if err := json.Unmarshal(data, &cmd); err != nil {
				cc.logger.Warn().Err(err).Msg("Ignoring malformed control frame")
				cc.writeUpdate(session.Update{Type: session.UpdateError, Error: "malformed control frame"})
				continue
			}
			cc.handleCommand(ctx, cmd)
		}
	}
}

func (cc *clientConn) handleCommand(ctx context.Context, cmd commandFrame) {
	switch cmd.Type {
	case "start":
		if cmd.Config == nil {
			cc.writeUpdate(session.Update{Type: session.UpdateError, Error: "start requires a session configuration"})
			return
		}
		if err := cc.orch.Start(ctx, *cmd.Config); err != nil {
			cc.writeUpdate(session.Update{Type: session.UpdateError, Error: err.Error()})
		}

	case "mute":
		if _, err := cc.orch.ToggleMute(); err != nil {
			cc.writeUpdate(session.Update{Type: session.UpdateError, Error: err.Error()})
		}

	case "pause":
		if _, err := cc.orch.TogglePause(); err != nil {
			cc.writeUpdate(session.Update{Type: session.UpdateError, Error: err.Error()})
		}

	case "end":
		if err := cc.orch.End(context.Background()); err != nil {
			cc.writeUpdate(session.Update{Type: session.UpdateError, Error: err.Error()})
		}
		// Interrupt any audio still queued for the finished session
		cc.audioOut.Clear()

	default:
		cc.logger.Debug().Str("type", cmd.Type).Msg("Ignoring unknown command")
	}
}

// pumpUpdates relays orchestrator updates to the client as JSON frames
func (cc *clientConn) pumpUpdates() {
	for {
		select {
		case <-cc.done:
			return
		case u := <-cc.orch.Updates():
			cc.writeUpdate(u)
		}
	}
}

// pumpAudio drains the outbound ring buffer into fixed-size binary frames at
// a steady cadence, smoothing bursty TTS delivery.
func (cc *clientConn) pumpAudio() {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	frame := make([]byte, outboundFrameSize)
	for {
		select {
		case <-cc.done:
			return
		case <-ticker.C:
			n := cc.audioOut.Read(frame)
			if n == 0 {
				continue
			}
			cc.writeMu.Lock()
			err := cc.conn.WriteMessage(websocket.BinaryMessage, frame[:n])
			cc.writeMu.Unlock()
			if err != nil {
				cc.logger.Warn().Err(err).Msg("Failed to send audio frame")
				return
			}
		}
	}
}

func (cc *clientConn) writeUpdate(u session.Update) {
	cc.writeMu.Lock()
	defer cc.writeMu.Unlock()
	if err := cc.conn.WriteJSON(u); err != nil {
		cc.logger.Debug().Err(err).Msg("Failed to write update frame")
	}
}

func (cc *clientConn) close() {
	cc.once.Do(func() { close(cc.done) })
}
