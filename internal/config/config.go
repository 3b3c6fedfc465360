package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the interview gateway service
type Config struct {
	// Server configuration
	Port string `envconfig:"PORT" default:"8080"`

	// Managed voice service (full-duplex conversational AI) configuration.
	// AssistantID values map an interview type to the pre-configured assistant
	// on the managed service; a session of that type cannot use the managed
	// provider without one.
	VoiceServiceURL         string `envconfig:"VOICE_SERVICE_URL" default:"wss://api.voice.prepwise.dev/session"`
	VoiceServiceAPIKey      string `envconfig:"VOICE_SERVICE_API_KEY"`
	BehavioralAssistantID   string `envconfig:"BEHAVIORAL_ASSISTANT_ID"`
	TechnicalAssistantID    string `envconfig:"TECHNICAL_ASSISTANT_ID"`
	SystemDesignAssistantID string `envconfig:"SYSTEM_DESIGN_ASSISTANT_ID"`

	// Deepgram streaming recognition (local pipeline)
	DeepgramAPIKey   string `envconfig:"DEEPGRAM_API_KEY" required:"true"`
	DeepgramModel    string `envconfig:"DEEPGRAM_MODEL" default:"nova-2"`
	DeepgramLanguage string `envconfig:"DEEPGRAM_LANGUAGE" default:"en"`

	// Speech synthesis (local pipeline)
	TTSAPIKey  string `envconfig:"TTS_API_KEY" required:"true"`
	TTSAPIURL  string `envconfig:"TTS_API_URL" default:"https://api.cartesia.ai/v1/tts"`
	TTSVoiceID string `envconfig:"TTS_VOICE_ID" default:"sonic-english"`
	TTSModelID string `envconfig:"TTS_MODEL_ID" default:"sonic"`

	// Text generation collaborator (question and follow-up generation)
	GenAPIKey  string `envconfig:"GEN_API_KEY" required:"true"`
	GenAPIURL  string `envconfig:"GEN_API_URL" default:"https://api.cerebras.ai/v1/chat/completions"`
	GenModel   string `envconfig:"GEN_MODEL" default:"llama3.1-8b"`
	GenTimeout int    `envconfig:"GEN_TIMEOUT" default:"20"` // seconds

	// Evaluation collaborator (scores a finished transcript)
	EvaluationURL    string `envconfig:"EVALUATION_URL" default:"http://localhost:9090/v1/evaluations"`
	EvaluationAPIKey string `envconfig:"EVALUATION_API_KEY"`

	// Session pacing
	FollowUpDelayMs int `envconfig:"FOLLOW_UP_DELAY_MS" default:"1500"` // pause before advancing to the next planned question
	AudioBufferSize int `envconfig:"AUDIO_BUFFER_SIZE" default:"16384"` // outbound audio ring buffer in bytes

	// Resilience configuration
	CircuitBreakerMaxFailures  int `envconfig:"CIRCUIT_BREAKER_MAX_FAILURES" default:"5"`
	CircuitBreakerResetTimeout int `envconfig:"CIRCUIT_BREAKER_RESET_TIMEOUT" default:"30"` // seconds
	RetryMaxAttempts           int `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`
	RetryInitialBackoff        int `envconfig:"RETRY_INITIAL_BACKOFF" default:"100"` // milliseconds
	RecognizerRestartAttempts  int `envconfig:"RECOGNIZER_RESTART_ATTEMPTS" default:"5"`
	RecognizerRestartBackoff   int `envconfig:"RECOGNIZER_RESTART_BACKOFF" default:"250"` // milliseconds

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"`
}

// Load reads configuration from environment variables.
// It first attempts to load from a .env file if one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load a .env file (useful for containerized deployments).
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DeepgramAPIKey == "" {
		return fmt.Errorf("DEEPGRAM_API_KEY is required")
	}
	if c.TTSAPIKey == "" {
		return fmt.Errorf("TTS_API_KEY is required")
	}
	if c.GenAPIKey == "" {
		return fmt.Errorf("GEN_API_KEY is required")
	}
	return nil
}

// AssistantID returns the managed-service assistant configured for the given
// interview type, or "" when none is configured.
func (c *Config) AssistantID(interviewType string) string {
	switch interviewType {
	case "behavioral":
		return c.BehavioralAssistantID
	case "technical":
		return c.TechnicalAssistantID
	case "system-design":
		return c.SystemDesignAssistantID
	}
	return ""
}
