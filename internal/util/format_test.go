package util

import (
	"path/filepath"
	"testing"
	"time"
)

func TestFormatScore(t *testing.T) {
	if got := FormatScore(8.75); got != "8.8/10" {
		t.Errorf("FormatScore(8.75) = %q", got)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{500 * time.Millisecond, "0s"},
		{125 * time.Second, "2m5s"},
		{90*time.Minute + 400*time.Millisecond, "1h30m0s"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.in); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"You are Sarah, a collection agent", 12, "You are S..."},
		{"abcdef", 2, "ab"},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestFormatDateTime_Zero(t *testing.T) {
	if got := FormatDateTime(time.Time{}); got != "-" {
		t.Errorf("FormatDateTime(zero) = %q", got)
	}
}

func TestGetXDGDataDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dir)

	got, err := GetXDGDataDir()
	if err != nil {
		t.Fatalf("GetXDGDataDir failed: %v", err)
	}
	if got != filepath.Join(dir, "mcollect") {
		t.Errorf("GetXDGDataDir() = %q", got)
	}
}
