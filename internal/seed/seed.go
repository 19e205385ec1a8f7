// Package seed installs the default main prompt and personas on first start and
// reads and writes persona YAML files.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/emiliopalmerini/mcollect/internal/domain"
	"github.com/emiliopalmerini/mcollect/internal/ports"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// File is the YAML layout shared by the embedded defaults and persona import/export.
type File struct {
	MainPrompt *domain.MainPrompt `yaml:"main_prompt,omitempty"`
	Personas   []domain.Persona   `yaml:"personas"`
}

// Defaults returns the embedded default prompt and personas.
func Defaults() (*File, error) {
	return Decode(bytes.NewReader(defaultsYAML))
}

// Decode reads a seed file and validates every persona in it.
func Decode(r io.Reader) (*File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode seed file: %w", err)
	}

	if f.MainPrompt != nil {
		f.MainPrompt.Prompt = strings.TrimSpace(f.MainPrompt.Prompt)
	}
	for i := range f.Personas {
		if err := f.Personas[i].Validate(); err != nil {
			return nil, fmt.Errorf("persona %d: %w", i+1, err)
		}
	}
	return &f, nil
}

// Encode writes f as YAML.
func Encode(w io.Writer, f *File) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("failed to encode seed file: %w", err)
	}
	return enc.Close()
}

// Result reports what Apply installed.
type Result struct {
	Prompt   bool
	Personas int
}

// Apply installs the main prompt when none is stored and the personas when the
// persona table is empty. Existing data is never overwritten.
func Apply(ctx context.Context, f *File, personas ports.PersonaRepository, prompts ports.MainPromptRepository, logger *zap.Logger) (Result, error) {
	var res Result

	if f.MainPrompt != nil {
		current, err := prompts.Get(ctx)
		if err != nil {
			return res, fmt.Errorf("failed to read main prompt: %w", err)
		}
		if current == nil {
			p := *f.MainPrompt
			if err := prompts.Save(ctx, &p); err != nil {
				return res, fmt.Errorf("failed to seed main prompt: %w", err)
			}
			res.Prompt = true
		}
	}

	n, err := personas.Count(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to count personas: %w", err)
	}
	if n == 0 {
		for _, p := range f.Personas {
			p := p.Clone()
			p.ID = 0
			if err := personas.Create(ctx, &p); err != nil {
				return res, fmt.Errorf("failed to seed persona %s: %w", p.Name, err)
			}
			res.Personas++
		}
	}

	if res.Prompt || res.Personas > 0 {
		logger.Info("seeded defaults",
			zap.Bool("main_prompt", res.Prompt),
			zap.Int("personas", res.Personas))
	}
	return res, nil
}
