package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wricardo/spellground/game/service"
)

// FileResultStore implements service.ResultStore with one JSON file per result
type FileResultStore struct {
	resultsDir string
	logger     zerolog.Logger
}

// NewFileResultStore creates a file-based result store, creating dir if needed
func NewFileResultStore(resultsDir string, logger zerolog.Logger) (*FileResultStore, error) {
	// Create results directory if it doesn't exist
	if err := os.MkdirAll(resultsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create results directory: %w", err)
	}

	return &FileResultStore{
		resultsDir: resultsDir,
		logger:     logger,
	}, nil
}

// Save persists a result to <id>.json, assigning a UUID when it has no ID
func (fs *FileResultStore) Save(ctx context.Context, result *service.StoredResult) error {
	if result == nil {
		return fmt.Errorf("result cannot be nil")
	}
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	if _, err := uuid.Parse(result.ID); err != nil {
		return fmt.Errorf("result id %q is not a UUID: %w", result.ID, err)
	}

	// Marshal to JSON with indentation for readability
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	// Write to a temp file first so readers never see half a result
	path := fs.getFilePath(result.ID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write result file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to store result file: %w", err)
	}

	fs.logger.Debug().Str("result", result.ID).Str("session", result.SessionID).Msg("result archived")
	return nil
}

// Load retrieves a result by ID
func (fs *FileResultStore) Load(ctx context.Context, id string) (*service.StoredResult, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, service.ErrResultNotFound
	}

	data, err := os.ReadFile(fs.getFilePath(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, service.ErrResultNotFound
		}
		return nil, fmt.Errorf("failed to read result file: %w", err)
	}

	var result service.StoredResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return &result, nil
}

// List loads every stored result, skipping unreadable files
func (fs *FileResultStore) List(ctx context.Context) ([]*service.StoredResult, error) {
	entries, err := os.ReadDir(fs.resultsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read results directory: %w", err)
	}

	results := make([]*service.StoredResult, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}

		r, err := fs.Load(ctx, strings.TrimSuffix(name, ".json"))
		if err != nil {
			fs.logger.Warn().Err(err).Str("file", name).Msg("skipping unreadable result")
			continue
		}
		results = append(results, r)
	}
	return results, nil
}

// Delete removes a stored result
func (fs *FileResultStore) Delete(id string) error {
	if !fs.Exists(id) {
		return service.ErrResultNotFound
	}
	if err := os.Remove(fs.getFilePath(id)); err != nil {
		return fmt.Errorf("failed to remove result file: %w", err)
	}
	return nil
}

// Exists checks if a result file exists
func (fs *FileResultStore) Exists(id string) bool {
	if _, err := uuid.Parse(id); err != nil {
		return false
	}
	_, err := os.Stat(fs.getFilePath(id))
	return err == nil
}

// getFilePath returns the full file path for a result ID
func (fs *FileResultStore) getFilePath(id string) string {
	return filepath.Join(fs.resultsDir, fmt.Sprintf("%s.json", id))
}
