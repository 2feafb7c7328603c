// Package output persists run records.
package output

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/davidbz/agentrunner/internal/domain"
	"github.com/davidbz/agentrunner/internal/observability"
)

const filePerm = 0o600

// FileSink writes the record to a single file, replacing previous contents.
// Paths ending in .yaml or .yml are written as YAML, anything else as indented JSON.
type FileSink struct {
	path string
}

// NewFileSink creates a file sink.
func NewFileSink(path string) (*FileSink, error) {
	if path == "" {
		return nil, errors.New("output path cannot be empty")
	}
	return &FileSink{path: path}, nil
}

// Name returns the sink identifier.
func (s *FileSink) Name() string {
	return "file"
}

// Path returns the destination file.
func (s *FileSink) Path() string {
	return s.path
}

// Save encodes and writes the record.
func (s *FileSink) Save(ctx context.Context, record *domain.RunRecord) error {
	if record == nil {
		return errors.New("record cannot be nil")
	}

	data, err := s.encode(record)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
			return fmt.Errorf("failed to create output directory: %w", mkErr)
		}
	}

	if writeErr := os.WriteFile(s.path, data, filePerm); writeErr != nil {
		return fmt.Errorf("failed to write %s: %w", s.path, writeErr)
	}

	observability.FromContext(ctx).Info("results written", observability.String("path", s.path))
	return nil
}

func (s *FileSink) encode(record *domain.RunRecord) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(s.path)) {
	case ".yaml", ".yml":
		data, err := yaml.Marshal(record)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal record as YAML: %w", err)
		}
		return data, nil
	default:
		data, err := json.MarshalIndent(record, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal record as JSON: %w", err)
		}
		return append(data, '\n'), nil
	}
}
