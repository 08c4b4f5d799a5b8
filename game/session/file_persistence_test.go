package session

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/wricardo/spellground/game/engine"
	"github.com/wricardo/spellground/game/service"
)

func createStoredResult(sessionID string) *service.StoredResult {
	return &service.StoredResult{
		SessionID:  sessionID,
		FinishedAt: time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
		Result: &engine.Result{
			Player:    engine.Player{Name: "ada"},
			Health:    9,
			MaxHealth: 10,
			Score:     18,
			Set: &engine.SetResult{
				Name:      "pets",
				Questions: []string{"cat", "dog"},
				Record: &engine.Record{
					StartTime:     1000,
					EndTime:       5000,
					TotalDuration: 4000,
					AttemptCount:  3,
					Entries: []engine.Attempt{
						{Time: 2000, Answer: "cta"},
						{Time: 3000, Answer: "cat"},
						{Time: 4000, Answer: "dog"},
					},
				},
			},
		},
	}
}

func TestFileResultStore(t *testing.T) {
	ctx := context.Background()
	tempDir := t.TempDir()

	store, err := NewFileResultStore(filepath.Join(tempDir, "results"), zerolog.Nop())
	if err != nil {
		t.Fatalf("Failed to create result store: %v", err)
	}

	result := createStoredResult("ab12")

	t.Run("Save and Load Result", func(t *testing.T) {
		if err := store.Save(ctx, result); err != nil {
			t.Fatalf("Failed to save result: %v", err)
		}
		if result.ID == "" {
			t.Fatal("Save should assign an ID")
		}
		if !store.Exists(result.ID) {
			t.Error("Result file should exist after save")
		}

		loaded, err := store.Load(ctx, result.ID)
		if err != nil {
			t.Fatalf("Failed to load result: %v", err)
		}
		if loaded.SessionID != "ab12" || loaded.Result.Score != 18 {
			t.Errorf("Loaded result mismatch: %+v", loaded)
		}
		if !loaded.FinishedAt.Equal(result.FinishedAt) {
			t.Errorf("Expected finish time %v, got %v", result.FinishedAt, loaded.FinishedAt)
		}
		entries := loaded.Result.Set.Record.Entries
		if len(entries) != 3 || entries[0].Answer != "cta" {
			t.Errorf("Unexpected entries: %+v", entries)
		}
	})

	t.Run("List Results", func(t *testing.T) {
		second := createStoredResult("cd34")
		if err := store.Save(ctx, second); err != nil {
			t.Fatalf("Failed to save result: %v", err)
		}
		// stray files are skipped
		if err := os.WriteFile(filepath.Join(tempDir, "results", "notes.txt"), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(tempDir, "results", "broken.json"), []byte("{"), 0644); err != nil {
			t.Fatal(err)
		}

		results, err := store.List(ctx)
		if err != nil {
			t.Fatalf("Failed to list results: %v", err)
		}
		if len(results) != 2 {
			t.Errorf("Expected 2 results, got %d", len(results))
		}
	})

	t.Run("Load Missing Result", func(t *testing.T) {
		if _, err := store.Load(ctx, "00000000-0000-0000-0000-000000000000"); !errors.Is(err, service.ErrResultNotFound) {
			t.Errorf("Expected ErrResultNotFound, got %v", err)
		}
		if _, err := store.Load(ctx, "../../etc/passwd"); !errors.Is(err, service.ErrResultNotFound) {
			t.Errorf("Expected ErrResultNotFound for a non-UUID id, got %v", err)
		}
	})

	t.Run("Reject Non-UUID ID", func(t *testing.T) {
		bad := createStoredResult("ef56")
		bad.ID = "not-a-uuid"
		if err := store.Save(ctx, bad); err == nil {
			t.Error("Expected an error for a non-UUID id")
		}
	})

	t.Run("Delete Result", func(t *testing.T) {
		if err := store.Delete(result.ID); err != nil {
			t.Fatalf("Failed to delete result: %v", err)
		}
		if store.Exists(result.ID) {
			t.Error("Result should not exist after delete")
		}
		if err := store.Delete(result.ID); !errors.Is(err, service.ErrResultNotFound) {
			t.Errorf("Expected ErrResultNotFound, got %v", err)
		}
	})
}

func TestFileResultStoreFileStructure(t *testing.T) {
	ctx := context.Background()
	tempDir := t.TempDir()

	store, err := NewFileResultStore(tempDir, zerolog.Nop())
	if err != nil {
		t.Fatalf("Failed to create result store: %v", err)
	}
	result := createStoredResult("ab12")
	if err := store.Save(ctx, result); err != nil {
		t.Fatalf("Failed to save result: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(tempDir, result.ID+".json"))
	if err != nil {
		t.Fatalf("Failed to read result file: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Result file is not valid JSON: %v", err)
	}
	for _, field := range []string{"id", "session_id", "finished_at", "result"} {
		if _, ok := raw[field]; !ok {
			t.Errorf("Expected field %q in result file", field)
		}
	}

	record := raw["result"].(map[string]any)["set"].(map[string]any)["record"].(map[string]any)
	for _, field := range []string{"startTime", "endTime", "totalDuration", "attemptCount", "entries"} {
		if _, ok := record[field]; !ok {
			t.Errorf("Expected record field %q", field)
		}
	}

	if _, err := os.Stat(filepath.Join(tempDir, result.ID+".json.tmp")); !os.IsNotExist(err) {
		t.Error("Temp file should be renamed away")
	}
}

func TestMemoryResultStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryResultStore()

	result := createStoredResult("ab12")
	if err := store.Save(ctx, result); err != nil {
		t.Fatalf("Failed to save result: %v", err)
	}

	loaded, err := store.Load(ctx, result.ID)
	if err != nil {
		t.Fatalf("Failed to load result: %v", err)
	}
	loaded.SessionID = "changed"

	again, _ := store.Load(ctx, result.ID)
	if again.SessionID != "ab12" {
		t.Error("Loaded results should be copies")
	}

	list, err := store.List(ctx)
	if err != nil || len(list) != 1 {
		t.Errorf("Expected one result, got %d (%v)", len(list), err)
	}

	if _, err := store.Load(ctx, "missing"); !errors.Is(err, service.ErrResultNotFound) {
		t.Errorf("Expected ErrResultNotFound, got %v", err)
	}
}
