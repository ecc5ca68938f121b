package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestRecorder(t *testing.T) *FileRecorder {
	t.Helper()
	r, err := NewFileRecorder(filepath.Join(t.TempDir(), "logs", "interactions.jsonl"))
	if err != nil {
		t.Fatalf("NewFileRecorder: %v", err)
	}
	return r
}

func TestAppendAndLoadRoundTrip(t *testing.T) {
	r := newTestRecorder(t)

	events := []Event{
		{Timestamp: time.Now().Truncate(time.Second), UserID: "u1", UserMessage: "¿precios?", AssistantResponse: "Desde $150,000 MXN."},
		{Timestamp: time.Now().Truncate(time.Second), UserID: "u1", UserMessage: "¿precios?", AssistantResponse: "Desde $150,000 MXN.", Feedback: "util"},
		{Timestamp: time.Now().Truncate(time.Second), UserID: "u2", UserMessage: "¿garantías?", AssistantResponse: "3 meses.", Feedback: "no_util"},
	}
	for _, ev := range events {
		if err := r.AppendInteraction(ev); err != nil {
			t.Fatalf("AppendInteraction: %v", err)
		}
	}

	got, err := r.LoadInteractions()
	if err != nil {
		t.Fatalf("LoadInteractions: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	for i := range events {
		if got[i].UserID != events[i].UserID || got[i].Feedback != events[i].Feedback {
			t.Errorf("event %d mismatch: got %+v want %+v", i, got[i], events[i])
		}
	}
	if got[0].Feedback != "" {
		t.Errorf("unrated event must have empty feedback, got %q", got[0].Feedback)
	}
}

func TestLoadEmptyFile(t *testing.T) {
	r := newTestRecorder(t)

	got, err := r.LoadInteractions()
	if err != nil {
		t.Fatalf("LoadInteractions: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no events, got %d", len(got))
	}
}

func TestLoadSkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "interactions.jsonl")
	r, err := NewFileRecorder(path)
	if err != nil {
		t.Fatalf("NewFileRecorder: %v", err)
	}

	if err := r.AppendInteraction(Event{UserID: "u1", UserMessage: "hola", AssistantResponse: "hola"}); err != nil {
		t.Fatalf("AppendInteraction: %v", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString("{truncated json\n\n"); err != nil {
		t.Fatal(err)
	}
	f.Close()
	if err := r.AppendInteraction(Event{UserID: "u2", UserMessage: "adiós", AssistantResponse: "adiós"}); err != nil {
		t.Fatalf("AppendInteraction: %v", err)
	}

	got, err := r.LoadInteractions()
	if err != nil {
		t.Fatalf("LoadInteractions: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 valid events, got %d", len(got))
	}
	if got[0].UserID != "u1" || got[1].UserID != "u2" {
		t.Errorf("unexpected order: %+v", got)
	}
}
