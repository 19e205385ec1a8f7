package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func TestIsRemote(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"libsql://mcollect-org.turso.io", true},
		{"https://mcollect-org.turso.io", true},
		{"file:/tmp/mcollect.db", false},
		{"/var/lib/mcollect/mcollect.db", false},
	}
	for _, tt := range tests {
		if got := IsRemote(tt.url); got != tt.want {
			t.Errorf("IsRemote(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestOpen_LocalFile(t *testing.T) {
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "local.db"), "")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec("CREATE TABLE t (id INTEGER)"); err != nil {
		t.Errorf("Exec failed: %v", err)
	}
}

func TestWithRetry(t *testing.T) {
	ctx := context.Background()

	t.Run("retries stream errors", func(t *testing.T) {
		calls := 0
		got, err := WithRetry(ctx, 3, func() (int, error) {
			calls++
			if calls < 3 {
				return 0, errors.New("hrana: stream not found")
			}
			return 42, nil
		})
		if err != nil || got != 42 {
			t.Errorf("got %d, %v", got, err)
		}
		if calls != 3 {
			t.Errorf("calls = %d, want 3", calls)
		}
	})

	t.Run("does not retry other errors", func(t *testing.T) {
		calls := 0
		_, err := WithRetry(ctx, 3, func() (int, error) {
			calls++
			return 0, errors.New("constraint failed")
		})
		if err == nil || calls != 1 {
			t.Errorf("calls = %d, err = %v", calls, err)
		}
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		calls := 0
		_, err := WithRetry(ctx, 2, func() (struct{}, error) {
			calls++
			return struct{}{}, errors.New("stream not found")
		})
		if !IsTursoStreamError(err) || calls != 3 {
			t.Errorf("calls = %d, err = %v", calls, err)
		}
	})
}
