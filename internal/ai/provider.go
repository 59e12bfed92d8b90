package ai

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/JIVTESH28/facewatch/internal/gallery"
)

//go:embed prompts/answer.txt
var answerPrompt string

// LogEntry is one enrollment-log line handed to the provider as context.
// Embeddings are never sent to the model.
type LogEntry struct {
	ID         string
	Name       string
	EnrolledAt time.Time
}

// Provider answers natural-language questions about the enrollment log.
type Provider interface {
	Name() string
	Answer(ctx context.Context, question string, entries []LogEntry) (string, error)
}

// EntriesFromRecords converts a gallery snapshot into prompt context entries.
func EntriesFromRecords(records []gallery.EnrolledIdentity) []LogEntry {
	entries := make([]LogEntry, len(records))
	for i, r := range records {
		entries[i] = LogEntry{ID: r.ID, Name: r.Name, EnrolledAt: r.EnrolledAt}
	}
	return entries
}

// buildPrompt assembles the final prompt from the embedded template.
func buildPrompt(question string, entries []LogEntry) string {
	var sb strings.Builder
	if len(entries) == 0 {
		sb.WriteString("(no identities enrolled)\n")
	}
	for i, e := range entries {
		fmt.Fprintf(&sb, "%d. %s (id %s) enrolled at %s\n",
			i+1, e.Name, e.ID, e.EnrolledAt.Format(time.RFC3339))
	}

	prompt := strings.ReplaceAll(answerPrompt, "{{CONTEXT}}", sb.String())
	return strings.ReplaceAll(prompt, "{{QUESTION}}", question)
}
