package ai

import (
	"strings"
	"testing"
	"time"

	"github.com/JIVTESH28/facewatch/internal/gallery"
)

func TestBuildPrompt(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	entries := []LogEntry{
		{ID: "id-1", Name: "Jane Doe", EnrolledAt: at},
		{ID: "id-2", Name: "Bob", EnrolledAt: at.Add(time.Hour)},
	}

	prompt := buildPrompt("who was enrolled first?", entries)

	if strings.Contains(prompt, "{{CONTEXT}}") || strings.Contains(prompt, "{{QUESTION}}") {
		t.Error("prompt still contains template placeholders")
	}
	if !strings.Contains(prompt, "1. Jane Doe (id id-1) enrolled at 2026-03-14T09:30:00Z") {
		t.Errorf("prompt is missing the first log line:\n%s", prompt)
	}
	if !strings.Contains(prompt, "2. Bob (id id-2)") {
		t.Error("prompt is missing the second log line")
	}
	if !strings.Contains(prompt, "Question: who was enrolled first?") {
		t.Error("prompt is missing the question")
	}
}

func TestBuildPromptEmptyLog(t *testing.T) {
	prompt := buildPrompt("anyone?", nil)

	if !strings.Contains(prompt, "(no identities enrolled)") {
		t.Error("empty log marker missing from prompt")
	}
}

func TestEntriesFromRecords(t *testing.T) {
	at := time.Now()
	records := []gallery.EnrolledIdentity{
		{ID: "a", Name: "A", Embedding: []float32{1, 2}, EnrolledAt: at},
	}

	entries := EntriesFromRecords(records)

	if len(entries) != 1 {
		t.Fatalf("entries = %d; want 1", len(entries))
	}
	if entries[0].ID != "a" || entries[0].Name != "A" || !entries[0].EnrolledAt.Equal(at) {
		t.Errorf("entry = %+v", entries[0])
	}
}
