// Package session owns the lifecycle of one interview rehearsal: provider
// selection with silent fallback, pause and mute handling, elapsed-time
// tracking, transcript assembly and the evaluation handoff at the end.
package session

import (
	"fmt"
	"strings"

	"github.com/prepwise/interview-gateway/internal/transcript"
)

// Status is the orchestrator lifecycle state
type Status string

const (
	StatusIdle       Status = "idle"
	StatusConnecting Status = "connecting"
	StatusConnected  Status = "connected"
	StatusPaused     Status = "paused"
	StatusEnded      Status = "ended"
)

// VoiceMode selects which backend runs the conversation
type VoiceMode string

const (
	// ModeManaged prefers the hosted voice service, falling back to local
	ModeManaged VoiceMode = "managed"

	// ModeLocal uses the locally composed speech pipeline directly
	ModeLocal VoiceMode = "local"
)

// Config is the interview configuration supplied by the caller at start
type Config struct {
	CandidateName   string    `json:"candidate_name"`
	Role            string    `json:"role"`
	Company         string    `json:"company"`
	ExperienceLevel string    `json:"experience_level"`
	InterviewType   string    `json:"interview_type"`
	DurationMinutes int       `json:"duration_minutes"`
	Difficulty      string    `json:"difficulty"`
	Topics          []string  `json:"topics,omitempty"`
	CustomQuestions []string  `json:"custom_questions,omitempty"`
	Mode            VoiceMode `json:"mode,omitempty"`
}

// Validate checks the configuration before any network or device access
func (c *Config) Validate() error {
	if strings.TrimSpace(c.CandidateName) == "" {
		return fmt.Errorf("candidate name is required")
	}
	if strings.TrimSpace(c.Role) == "" {
		return fmt.Errorf("role is required")
	}
	if strings.TrimSpace(c.Company) == "" {
		return fmt.Errorf("company is required")
	}
	if c.DurationMinutes < 5 || c.DurationMinutes > 60 {
		return fmt.Errorf("duration must be between 5 and 60 minutes, got %d", c.DurationMinutes)
	}
	switch c.Mode {
	case "", ModeManaged, ModeLocal:
	default:
		return fmt.Errorf("unknown voice mode %q", c.Mode)
	}
	return nil
}

// UpdateType classifies orchestrator notifications to the caller
type UpdateType string

const (
	// UpdateStatus reports a lifecycle transition
	UpdateStatus UpdateType = "status"

	// UpdateTranscript carries one finalized transcript entry
	UpdateTranscript UpdateType = "transcript"

	// UpdateInterim carries a live non-final recognition fragment
	UpdateInterim UpdateType = "interim"

	// UpdateNotice carries a non-fatal user-visible notice, such as the
	// fallback-mode notice or the wrap-up reminder
	UpdateNotice UpdateType = "notice"

	// UpdateError carries a user-visible error. Fatal errors mean the
	// session is over.
	UpdateError UpdateType = "error"

	// UpdateElapsed carries the current elapsed seconds for display
	UpdateElapsed UpdateType = "elapsed"
)

// Update is one orchestrator notification to the UI layer
type Update struct {
	Type    UpdateType         `json:"type"`
	Status  Status             `json:"status,omitempty"`
	Mode    VoiceMode          `json:"mode,omitempty"`
	Entry   *transcript.Entry  `json:"entry,omitempty"`
	Speaker transcript.Speaker `json:"speaker,omitempty"`
	Text    string             `json:"text,omitempty"`
	Error   string             `json:"error,omitempty"`
	Fatal   bool               `json:"fatal,omitempty"`
	Elapsed int                `json:"elapsed,omitempty"`
}
