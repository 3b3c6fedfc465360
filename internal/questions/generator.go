// Package questions produces the interview question plan and per-answer
// follow-ups. Generation is an enhancement, never a blocking dependency:
// every operation degrades to deterministic fallback content instead of
// returning an error.
package questions

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/prepwise/interview-gateway/internal/llm"
	"github.com/prepwise/interview-gateway/internal/observability"
)

// Context describes the candidate and interview configuration used to steer
// generation.
type Context struct {
	Role            string
	ExperienceLevel string
	InterviewType   string
	Difficulty      string
	Topics          []string
	DurationMinutes int
	CustomQuestions []string
}

// Generator produces question plans and follow-ups
type Generator struct {
	client llm.Client
	logger zerolog.Logger
}

// NewGenerator creates a Generator backed by the given text-generation client
func NewGenerator(client llm.Client) *Generator {
	return &Generator{
		client: client,
		logger: observability.GetLogger().With().Str("component", "questions").Logger(),
	}
}

const planSystemPrompt = "You are an experienced interviewer preparing questions for a practice job interview. " +
	"Respond with a JSON object of the form {\"questions\": [\"...\"]} and nothing else."

const followUpSystemPrompt = "You are an experienced interviewer conducting a practice job interview. " +
	"Given the candidate's last answer, respond with one short follow-up question (1-2 sentences) " +
	"if one would be valuable, or with an empty string if the interview should move on."

// GeneratePlan returns the question plan for a session. It never fails: on
// any generation error or unusable result it falls back to the static bank
// for the interview type. Custom questions from the configuration come first.
func (g *Generator) GeneratePlan(ctx context.Context, ic Context) *Plan {
	count := planSize(ic.DurationMinutes)

	questions := append([]string{}, ic.CustomQuestions...)
	if len(questions) >= count {
		return NewPlan(questions[:count])
	}

	start := time.Now()
	generated, err := g.requestQuestions(ctx, ic, count-len(questions))
	observability.RecordGeneration("plan", err == nil && len(generated) > 0, time.Since(start))
	if err != nil || len(generated) == 0 {
		g.logger.Warn().Err(err).
			Str("interview_type", ic.InterviewType).
			Msg("Question generation failed, using fallback bank")
		observability.RecordComponentError("generation_fallback", "questions")
		generated = fallbackBank(ic.InterviewType)
	}

	for _, q := range generated {
		if len(questions) >= count {
			break
		}
		questions = append(questions, q)
	}

	// The bank may be shorter than the requested count for very long
	// sessions; a short plan just ends the interview earlier.
	return NewPlan(questions)
}

// GenerateFollowUp returns a short follow-up to the candidate's answer, or
// "" meaning "move on". It never fails: any error degrades to "".
func (g *Generator) GenerateFollowUp(ctx context.Context, answer string, ic Context) string {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return ""
	}

	user := fmt.Sprintf("Interview type: %s. Candidate role: %s (%s level).\nCandidate's answer: %q",
		ic.InterviewType, ic.Role, ic.ExperienceLevel, answer)

	start := time.Now()
	reply, err := g.client.Complete(ctx, followUpSystemPrompt, user)
	observability.RecordGeneration("followup", err == nil, time.Since(start))
	if err != nil {
		g.logger.Debug().Err(err).Msg("Follow-up generation failed, moving on")
		return ""
	}

	reply = strings.Trim(strings.TrimSpace(reply), "\"")
	switch strings.ToLower(reply) {
	case "", "none", "n/a", "move on":
		return ""
	}
	return reply
}

func (g *Generator) requestQuestions(ctx context.Context, ic Context, count int) ([]string, error) {
	topics := "general"
	if len(ic.Topics) > 0 {
		topics = strings.Join(ic.Topics, ", ")
	}

	user := fmt.Sprintf(
		"Generate %d %s interview questions for a %s candidate (%s level) at difficulty %q. Topics: %s.",
		count, ic.InterviewType, ic.Role, ic.ExperienceLevel, ic.Difficulty, topics)

	reply, err := g.client.Complete(ctx, planSystemPrompt, user)
	if err != nil {
		return nil, err
	}

	return parseQuestions(reply)
}

type questionsPayload struct {
	Questions []string `json:"questions"`
}

// parseQuestions extracts the question list from a model reply. The model is
// asked for a JSON object but replies sometimes wrap it in prose or code
// fences, so parsing is lenient: try the raw reply, then the first JSON
// object found inside it, then fall back to non-empty lines.
func parseQuestions(reply string) ([]string, error) {
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return nil, fmt.Errorf("empty generation reply")
	}

	var payload questionsPayload
	if err := json.Unmarshal([]byte(reply), &payload); err == nil {
		return cleanQuestions(payload.Questions), nil
	}

	if start, end := strings.Index(reply, "{"), strings.LastIndex(reply, "}"); start >= 0 && end > start {
		if err := json.Unmarshal([]byte(reply[start:end+1]), &payload); err == nil {
			return cleanQuestions(payload.Questions), nil
		}
	}

	var lines []string
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "0123456789.-) "))
		if line != "" && strings.Contains(line, "?") {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("no questions found in generation reply")
	}
	return lines, nil
}

func cleanQuestions(qs []string) []string {
	var out []string
	for _, q := range qs {
		if q = strings.TrimSpace(q); q != "" {
			out = append(out, q)
		}
	}
	return out
}

// planSize returns roughly one question per three minutes of interview,
// clamped to a sensible range.
func planSize(durationMinutes int) int {
	count := durationMinutes / 3
	if count < 3 {
		count = 3
	}
	if count > 20 {
		count = 20
	}
	return count
}
