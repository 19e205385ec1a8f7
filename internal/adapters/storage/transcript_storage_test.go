package storage

import (
	"context"
	"testing"
	"time"

	"github.com/emiliopalmerini/mcollect/internal/domain"
	"github.com/emiliopalmerini/mcollect/internal/ports"
)

var _ ports.TranscriptStorage = (*TranscriptStorage)(nil)

func TestTranscriptStorage_RoundTrip(t *testing.T) {
	s, err := NewTranscriptStorageAt(t.TempDir())
	if err != nil {
		t.Fatalf("NewTranscriptStorageAt failed: %v", err)
	}
	ctx := context.Background()
	now := time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)

	transcript := domain.Transcript{
		{Speaker: domain.SpeakerAgent, Text: "Hello, this is Sarah.", Timestamp: now},
		{Speaker: domain.SpeakerPersona, Text: "What do you want?", Timestamp: now.Add(time.Second)},
	}

	path, err := s.Store(ctx, "abc-1", transcript)
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if path == "" {
		t.Error("expected stored path")
	}

	ok, err := s.Exists(ctx, "abc-1")
	if err != nil || !ok {
		t.Fatalf("Exists = %v, %v", ok, err)
	}

	got, err := s.Get(ctx, "abc-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(got) != 2 || got[1].Text != "What do you want?" || !got[0].Timestamp.Equal(now) {
		t.Errorf("got %+v", got)
	}

	if err := s.Delete(ctx, "abc-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if ok, _ := s.Exists(ctx, "abc-1"); ok {
		t.Error("transcript still exists after delete")
	}
	if err := s.Delete(ctx, "abc-1"); err != nil {
		t.Errorf("second Delete = %v", err)
	}
}

func TestTranscriptStorage_Errors(t *testing.T) {
	s, err := NewTranscriptStorageAt(t.TempDir())
	if err != nil {
		t.Fatalf("NewTranscriptStorageAt failed: %v", err)
	}
	ctx := context.Background()

	if _, err := s.Get(ctx, "missing"); !domain.IsNotFound(err) {
		t.Errorf("Get(missing) = %v, want not found", err)
	}

	for _, key := range []string{"", "../escape", "a/b"} {
		if _, err := s.Store(ctx, key, nil); !domain.IsValidation(err) {
			t.Errorf("Store(%q) = %v, want validation error", key, err)
		}
	}
}
