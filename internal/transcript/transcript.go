package transcript

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Speaker identifies who produced an utterance
type Speaker string

const (
	SpeakerInterviewer Speaker = "interviewer"
	SpeakerCandidate   Speaker = "candidate"
)

// Entry is one finalized utterance. Entries are never mutated after insertion.
type Entry struct {
	Speaker   Speaker
	Text      string
	Timestamp time.Time
}

// Log is an append-only, timestamp-ordered record of a conversation.
// Interim recognition fragments must not be appended; only finalized
// utterances become entries.
type Log struct {
	mu      sync.RWMutex
	started time.Time
	entries []Entry
	now     func() time.Time
}

// NewLog creates an empty transcript log anchored at the current time
func NewLog() *Log {
	return newLogAt(time.Now, time.Now())
}

func newLogAt(now func() time.Time, started time.Time) *Log {
	return &Log{started: started, now: now}
}

// Append records one finalized utterance and returns the entry exactly as
// stored, so callers can surface the same trimmed text and adjusted timestamp
// they persisted. Empty or whitespace-only text is ignored and ok is false.
// Timestamps are forced monotonically non-decreasing: an entry arriving with
// a clock earlier than the previous one is stamped with the previous entry's
// timestamp.
func (l *Log) Append(speaker Speaker, text string) (entry Entry, ok bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Entry{}, false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	ts := l.now()
	if n := len(l.entries); n > 0 && ts.Before(l.entries[n-1].Timestamp) {
		ts = l.entries[n-1].Timestamp
	}

	entry = Entry{
		Speaker:   speaker,
		Text:      text,
		Timestamp: ts,
	}
	l.entries = append(l.entries, entry)
	return entry, true
}

// Entries returns a copy of all entries in order
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Render produces the human-readable transcript handed to the evaluation
// collaborator: one line per entry, with an offset from session start.
func (l *Log) Render() string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var b strings.Builder
	for _, e := range l.entries {
		offset := e.Timestamp.Sub(l.started)
		if offset < 0 {
			offset = 0
		}
		fmt.Fprintf(&b, "[%02d:%02d] %s: %s\n",
			int(offset.Minutes()), int(offset.Seconds())%60, speakerLabel(e.Speaker), e.Text)
	}
	return b.String()
}

func speakerLabel(s Speaker) string {
	switch s {
	case SpeakerInterviewer:
		return "Interviewer"
	case SpeakerCandidate:
		return "Candidate"
	}
	return string(s)
}
