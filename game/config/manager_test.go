package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/wricardo/spellground/game/engine"
)

const petsJSON = `{
  "name": "Pets",
  "description": "Animals at home",
  "questions": ["cat", "dog"],
  "max_health": 5
}`

const phrasesYAML = `name: Phrases
description: Short phrases
split: word
questions:
  - good morning
  - see you soon
`

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
}

func createTestConfigDir(t *testing.T) string {
	dir := t.TempDir()
	writeFile(t, dir, "pets.json", petsJSON)
	writeFile(t, dir, "phrases.yaml", phrasesYAML)
	return dir
}

func createValidSet() *engine.QuestionSetConfig {
	return &engine.QuestionSetConfig{
		Name:        "Colors",
		Description: "Colour words",
		Questions:   []string{"red", "blue", "green"},
		Shuffle:     true,
	}
}

func TestNewManager(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		if _, err := NewManager(filepath.Join(t.TempDir(), "nope")); err == nil {
			t.Error("Expected error for missing directory")
		}
	})

	t.Run("default file wins", func(t *testing.T) {
		dir := createTestConfigDir(t)
		writeFile(t, dir, "default.yml", "name: Start\nquestions: [sun]\n")

		m, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if got := m.GetDefault().Name; got != "Start" {
			t.Errorf("Expected default 'Start', got %q", got)
		}
	})

	t.Run("first file when no default", func(t *testing.T) {
		m, err := NewManager(createTestConfigDir(t))
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if got := m.GetDefault().Name; got != "Pets" {
			t.Errorf("Expected first set 'Pets', got %q", got)
		}
	})

	t.Run("built-in set for empty directory", func(t *testing.T) {
		m, err := NewManager(t.TempDir())
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if got := m.GetDefault().Name; got != engine.DefaultQuestionSet().Name {
			t.Errorf("Expected built-in default, got %q", got)
		}
	})
}

func TestManager_LoadConfig(t *testing.T) {
	m, err := NewManager(createTestConfigDir(t))
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	tests := []struct {
		name      string
		setName   string
		wantName  string
		wantCount int
		wantErr   error
	}{
		{name: "json by id", setName: "pets", wantName: "Pets", wantCount: 2},
		{name: "json with extension", setName: "pets.json", wantName: "Pets", wantCount: 2},
		{name: "yaml by id", setName: "phrases", wantName: "Phrases", wantCount: 2},
		{name: "yaml with extension", setName: "phrases.yaml", wantName: "Phrases", wantCount: 2},
		{name: "missing", setName: "missing", wantErr: ErrConfigNotFound},
		{name: "path traversal", setName: "../pets", wantErr: ErrConfigNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := m.LoadConfig(tt.setName)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadConfig failed: %v", err)
			}
			if cfg.Name != tt.wantName || len(cfg.Questions) != tt.wantCount {
				t.Errorf("Got %q with %d questions", cfg.Name, len(cfg.Questions))
			}
		})
	}

	t.Run("yaml fields", func(t *testing.T) {
		cfg, _ := m.LoadConfig("phrases")
		if cfg.Split != engine.SplitWord {
			t.Errorf("Expected word split, got %q", cfg.Split)
		}
		if cfg.Questions[1] != "see you soon" {
			t.Errorf("Unexpected question %q", cfg.Questions[1])
		}
	})

	t.Run("cached", func(t *testing.T) {
		first, _ := m.LoadConfig("pets")
		second, _ := m.LoadConfig("pets.json")
		if first != second {
			t.Error("Expected the cached instance")
		}
	})
}

func TestManager_InvalidFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.json", `{"name": "Broken", `)
	writeFile(t, dir, "empty.yaml", "")
	writeFile(t, dir, "unknown.yaml", "name: X\nquestions: [a]\ncolour: red\n")
	writeFile(t, dir, "noquestions.json", `{"name": "None", "questions": []}`)
	writeFile(t, dir, "badsplit.yml", "name: Bad\nsplit: syllable\nquestions: [a]\n")

	m, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	for _, name := range []string{"broken", "empty", "unknown", "noquestions", "badsplit"} {
		t.Run(name, func(t *testing.T) {
			if _, err := m.LoadConfig(name); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
		})
	}

	if _, err := m.LoadConfig("noquestions"); !errors.Is(err, engine.ErrNoQuestions) {
		t.Errorf("Expected the engine error to be wrapped, got %v", err)
	}

	configs, err := m.ListConfigs()
	if err != nil {
		t.Fatalf("ListConfigs failed: %v", err)
	}
	if len(configs) != 0 {
		t.Errorf("Expected invalid files to be skipped, got %d", len(configs))
	}
}

func TestManager_ListConfigs(t *testing.T) {
	dir := createTestConfigDir(t)
	writeFile(t, dir, "README.md", "not a set")
	if err := os.Mkdir(filepath.Join(dir, "archive.json"), 0755); err != nil {
		t.Fatal(err)
	}

	m, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	configs, err := m.ListConfigs()
	if err != nil {
		t.Fatalf("ListConfigs failed: %v", err)
	}
	if len(configs) != 2 {
		t.Fatalf("Expected 2 configs, got %d", len(configs))
	}

	pets, phrases := configs[0], configs[1]
	if pets.SetID != "pets" || pets.Filename != "pets.json" {
		t.Errorf("Unexpected first entry: %+v", pets)
	}
	if pets.QuestionCount != 2 || pets.MaxHealth != 5 || pets.Split != engine.SplitChar {
		t.Errorf("Unexpected pets details: %+v", pets)
	}
	if phrases.SetID != "phrases" || phrases.Split != engine.SplitWord || phrases.Description != "Short phrases" {
		t.Errorf("Unexpected phrases details: %+v", phrases)
	}
}

func TestManager_SaveConfig(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	t.Run("json by default", func(t *testing.T) {
		if err := m.SaveConfig("colors", createValidSet()); err != nil {
			t.Fatalf("SaveConfig failed: %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, "colors.json")); err != nil {
			t.Errorf("Expected colors.json on disk: %v", err)
		}
		cfg, err := m.LoadConfig("colors")
		if err != nil || !cfg.Shuffle {
			t.Errorf("Expected saved set to load, got %+v, %v", cfg, err)
		}
	})

	t.Run("yaml round trip from disk", func(t *testing.T) {
		set := createValidSet()
		set.Name = "Colours"
		if err := m.SaveConfig("colours.yaml", set); err != nil {
			t.Fatalf("SaveConfig failed: %v", err)
		}

		fresh, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		cfg, err := fresh.LoadConfig("colours")
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Name != "Colours" || len(cfg.Questions) != 3 || !cfg.Shuffle {
			t.Errorf("Unexpected reloaded set: %+v", cfg)
		}
	})

	t.Run("invalid set", func(t *testing.T) {
		set := createValidSet()
		set.Questions = nil
		if err := m.SaveConfig("empty", set); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("bad name", func(t *testing.T) {
		if err := m.SaveConfig("../escape", createValidSet()); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestManager_SetDefaultAndRefresh(t *testing.T) {
	dir := createTestConfigDir(t)
	m, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	if err := m.SetDefault("phrases"); err != nil {
		t.Fatalf("SetDefault failed: %v", err)
	}
	if m.GetDefault().Name != "Phrases" {
		t.Errorf("Expected Phrases default, got %q", m.GetDefault().Name)
	}
	if err := m.SetDefault("missing"); !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("Expected ErrConfigNotFound, got %v", err)
	}

	// Edit on disk, the cache still holds the old copy
	writeFile(t, dir, "pets.json", `{"name": "Pets", "questions": ["cat", "dog", "fish"]}`)
	cfg, _ := m.LoadConfig("pets")
	if len(cfg.Questions) != 2 {
		t.Errorf("Expected cached copy, got %d questions", len(cfg.Questions))
	}

	m.RefreshCache()
	cfg, _ = m.LoadConfig("pets")
	if len(cfg.Questions) != 3 {
		t.Errorf("Expected refreshed copy, got %d questions", len(cfg.Questions))
	}
}

func TestManager_Watch(t *testing.T) {
	dir := createTestConfigDir(t)
	m, err := NewManager(dir, WithDebounce(10*time.Millisecond))
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	if _, err := m.LoadConfig("pets"); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Watch(ctx) }()

	// Give the watcher time to register
	time.Sleep(50 * time.Millisecond)
	writeFile(t, dir, "pets.json", `{"name": "Pets", "questions": ["cat", "dog", "cow", "pig"]}`)

	deadline := time.Now().Add(2 * time.Second)
	for {
		cfg, err := m.LoadConfig("pets")
		if err == nil && len(cfg.Questions) == 4 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Watch did not reload the changed file")
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Watch did not stop after cancel")
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	m, err := NewManager(createTestConfigDir(t))
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 60)

	for i := 0; i < 20; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			if _, err := m.LoadConfig("pets"); err != nil {
				errs <- err
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := m.ListConfigs(); err != nil {
				errs <- err
			}
		}()
		go func() {
			defer wg.Done()
			m.RefreshCache()
			_ = m.GetDefault()
		}()
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Unexpected error: %v", err)
	}
}
