package storage

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/emiliopalmerini/mcollect/internal/domain"
	"github.com/emiliopalmerini/mcollect/internal/util"
)

// TranscriptStorage archives scored transcripts as gzip-compressed JSON files.
type TranscriptStorage struct {
	baseDir string
}

// NewTranscriptStorage stores transcripts under the XDG data dir.
func NewTranscriptStorage() (*TranscriptStorage, error) {
	baseDir, err := util.GetXDGDataDir()
	if err != nil {
		return nil, err
	}
	return NewTranscriptStorageAt(filepath.Join(baseDir, "transcripts"))
}

func NewTranscriptStorageAt(dir string) (*TranscriptStorage, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create transcripts directory: %w", err)
	}
	return &TranscriptStorage{baseDir: dir}, nil
}

func (s *TranscriptStorage) Store(ctx context.Context, key string, transcript domain.Transcript) (string, error) {
	destPath, err := s.getPath(key)
	if err != nil {
		return "", err
	}

	dest, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("failed to create destination file: %w", err)
	}
	defer func() { _ = dest.Close() }()

	gw := gzip.NewWriter(dest)
	defer func() { _ = gw.Close() }()

	if err := json.NewEncoder(gw).Encode(transcript); err != nil {
		return "", fmt.Errorf("failed to compress transcript: %w", err)
	}

	if err := gw.Close(); err != nil {
		return "", fmt.Errorf("failed to close gzip writer: %w", err)
	}

	return destPath, nil
}

func (s *TranscriptStorage) Get(ctx context.Context, key string) (domain.Transcript, error) {
	path, err := s.getPath(key)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, &domain.NotFoundError{Entity: "transcript", ID: key}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open transcript file: %w", err)
	}
	defer func() { _ = file.Close() }()

	gr, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer func() { _ = gr.Close() }()

	var transcript domain.Transcript
	if err := json.NewDecoder(gr).Decode(&transcript); err != nil {
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}

	return transcript, nil
}

func (s *TranscriptStorage) Delete(ctx context.Context, key string) error {
	path, err := s.getPath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete transcript: %w", err)
	}
	return nil
}

func (s *TranscriptStorage) Exists(ctx context.Context, key string) (bool, error) {
	path, err := s.getPath(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (s *TranscriptStorage) getPath(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return "", &domain.ValidationError{Field: "key", Reason: fmt.Sprintf("%q is not a valid transcript key", key)}
	}
	return filepath.Join(s.baseDir, key+".json.gz"), nil
}
