package transcript

import (
	"strings"
	"testing"
	"time"
)

func TestLog_AppendAndOrder(t *testing.T) {
	log := NewLog()

	log.Append(SpeakerInterviewer, "Tell me about yourself.")
	log.Append(SpeakerCandidate, "I have five years of backend experience.")
	log.Append(SpeakerInterviewer, "What drew you to this role?")

	entries := log.Entries()
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(entries))
	}

	for i := 1; i < len(entries); i++ {
		if entries[i].Timestamp.Before(entries[i-1].Timestamp) {
			t.Errorf("Entry %d timestamp %v precedes entry %d timestamp %v",
				i, entries[i].Timestamp, i-1, entries[i-1].Timestamp)
		}
	}
}

func TestLog_MonotonicTimestampsUnderClockSkew(t *testing.T) {
	// Simulated clock that jumps backwards between appends
	times := []time.Time{
		time.Date(2026, 1, 1, 10, 0, 10, 0, time.UTC),
		time.Date(2026, 1, 1, 10, 0, 5, 0, time.UTC), // earlier than previous
		time.Date(2026, 1, 1, 10, 0, 20, 0, time.UTC),
	}
	i := 0
	clock := func() time.Time {
		ts := times[i]
		i++
		return ts
	}

	log := newLogAt(clock, time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC))
	log.Append(SpeakerInterviewer, "first")
	log.Append(SpeakerCandidate, "second")
	log.Append(SpeakerInterviewer, "third")

	entries := log.Entries()
	for i := 1; i < len(entries); i++ {
		if entries[i].Timestamp.Before(entries[i-1].Timestamp) {
			t.Errorf("Timestamps not monotonic at entry %d", i)
		}
	}
}

func TestLog_AppendReturnsStoredEntry(t *testing.T) {
	times := []time.Time{
		time.Date(2026, 1, 1, 10, 0, 10, 0, time.UTC),
		time.Date(2026, 1, 1, 10, 0, 5, 0, time.UTC), // earlier than previous
	}
	i := 0
	clock := func() time.Time {
		ts := times[i]
		i++
		return ts
	}

	log := newLogAt(clock, time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC))

	first, ok := log.Append(SpeakerInterviewer, "  What is your greatest strength?  ")
	if !ok {
		t.Fatal("Expected append to record the entry")
	}
	if first.Text != "What is your greatest strength?" {
		t.Errorf("Expected trimmed text, got %q", first.Text)
	}

	// The returned entry carries the adjusted timestamp, not the raw clock
	second, ok := log.Append(SpeakerCandidate, "Persistence.")
	if !ok {
		t.Fatal("Expected append to record the entry")
	}
	if !second.Timestamp.Equal(first.Timestamp) {
		t.Errorf("Expected timestamp forced to %v, got %v", first.Timestamp, second.Timestamp)
	}

	entries := log.Entries()
	if len(entries) != 2 || !entries[1].Timestamp.Equal(second.Timestamp) {
		t.Errorf("Returned entry differs from stored state: %+v vs %+v", second, entries)
	}

	if _, ok := log.Append(SpeakerCandidate, "   "); ok {
		t.Error("Expected whitespace-only append to report ok=false")
	}
}

func TestLog_IgnoresEmptyText(t *testing.T) {
	log := NewLog()

	log.Append(SpeakerCandidate, "")
	log.Append(SpeakerCandidate, "   ")
	log.Append(SpeakerCandidate, "\n\t")

	if log.Len() != 0 {
		t.Errorf("Expected 0 entries for empty text, got %d", log.Len())
	}
}

func TestLog_Render(t *testing.T) {
	start := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	times := []time.Time{
		start.Add(2 * time.Second),
		start.Add(75 * time.Second),
	}
	i := 0
	clock := func() time.Time {
		ts := times[i]
		i++
		return ts
	}

	log := newLogAt(clock, start)
	log.Append(SpeakerInterviewer, "Walk me through your resume.")
	log.Append(SpeakerCandidate, "Sure, I started at a startup.")

	rendered := log.Render()

	if !strings.Contains(rendered, "[00:02] Interviewer: Walk me through your resume.") {
		t.Errorf("Missing interviewer line, got:\n%s", rendered)
	}
	if !strings.Contains(rendered, "[01:15] Candidate: Sure, I started at a startup.") {
		t.Errorf("Missing candidate line, got:\n%s", rendered)
	}
}

func TestLog_EntriesReturnsCopy(t *testing.T) {
	log := NewLog()
	log.Append(SpeakerCandidate, "original")

	entries := log.Entries()
	entries[0].Text = "mutated"

	if log.Entries()[0].Text != "original" {
		t.Error("Entries() must return a copy, internal state was mutated")
	}
}
