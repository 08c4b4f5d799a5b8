package config

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/wricardo/spellground/game/engine"
	"github.com/wricardo/spellground/game/service"
)

var (
	ErrConfigNotFound = service.ErrQuestionSetNotFound
	ErrInvalidConfig  = errors.New("invalid question set file")
)

// DefaultSetID names the file picked as the default question set
const DefaultSetID = "default"

// extensions in lookup order
var extensions = []string{".json", ".yaml", ".yml"}

var _ service.ConfigManager = (*Manager)(nil)

// Manager loads question sets from a directory of JSON or YAML files and caches them
type Manager struct {
	configDir     string
	logger        zerolog.Logger
	defaultConfig *engine.QuestionSetConfig
	configs       map[string]*engine.QuestionSetConfig
	mu            sync.RWMutex
	debounce      time.Duration
}

// Option configures a Manager
type Option func(*Manager)

func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithDebounce sets how long Watch waits after the last file event before reloading
func WithDebounce(d time.Duration) Option {
	return func(m *Manager) { m.debounce = d }
}

// NewManager creates a new configuration manager
func NewManager(configDir string, opts ...Option) (*Manager, error) {
	// Ensure config directory exists
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("config directory does not exist: %s", configDir)
	}

	m := &Manager{
		configDir: configDir,
		logger:    zerolog.Nop(),
		configs:   make(map[string]*engine.QuestionSetConfig),
		debounce:  200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(m)
	}

	m.loadDefaultConfig()
	return m, nil
}

// SetID strips a known extension from a file name
func SetID(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	for _, known := range extensions {
		if ext == known {
			return strings.TrimSuffix(name, filepath.Ext(name))
		}
	}
	return name
}

func validName(id string) bool {
	return id != "" && id != "." && id != ".." && !strings.ContainsAny(id, `/\`)
}

// LoadConfig loads a question set by ID, with or without its extension
func (m *Manager) LoadConfig(name string) (*engine.QuestionSetConfig, error) {
	id := SetID(name)
	if !validName(id) {
		return nil, ErrConfigNotFound
	}

	m.mu.RLock()
	// Check cache first
	if cfg, exists := m.configs[id]; exists {
		m.mu.RUnlock()
		return cfg, nil
	}
	m.mu.RUnlock()

	path, err := m.findFile(name)
	if err != nil {
		return nil, err
	}

	cfg, err := ReadQuestionSet(path)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Another reader may have won the race
	if cached, exists := m.configs[id]; exists {
		return cached, nil
	}
	m.configs[id] = cfg
	return cfg, nil
}

// findFile resolves a set name to a file in the config directory
func (m *Manager) findFile(name string) (string, error) {
	candidates := []string{name}
	if SetID(name) == name {
		candidates = candidates[:0]
		for _, ext := range extensions {
			candidates = append(candidates, name+ext)
		}
	}

	for _, c := range candidates {
		path := filepath.Join(m.configDir, c)
		info, err := os.Stat(path)
		if err == nil && !info.IsDir() {
			return path, nil
		}
		if err != nil && !os.IsNotExist(err) {
			return "", fmt.Errorf("failed to stat question set file: %w", err)
		}
	}
	return "", ErrConfigNotFound
}

// ReadQuestionSet parses and validates one question set file. The format
// follows the extension: YAML for .yaml and .yml, JSON otherwise.
func ReadQuestionSet(path string) (*engine.QuestionSetConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to read question set file: %w", err)
	}

	var cfg engine.QuestionSetConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("%w: %s is empty", ErrInvalidConfig, filepath.Base(path))
			}
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}

	if err := engine.ValidateQuestionSet(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return &cfg, nil
}

// ListConfigs returns information about every loadable question set, sorted by file name
func (m *Manager) ListConfigs() ([]*service.QuestionSetInfo, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	configs := make([]*service.QuestionSetInfo, 0, len(entries))
	seen := make(map[string]bool)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		id := SetID(entry.Name())
		if id == entry.Name() || seen[id] {
			continue
		}

		cfg, err := m.LoadConfig(entry.Name())
		if err != nil {
			m.logger.Warn().Err(err).Str("file", entry.Name()).Msg("skipping question set")
			continue
		}
		seen[id] = true

		split := cfg.Split
		if split == "" {
			split = engine.SplitChar
		}
		configs = append(configs, &service.QuestionSetInfo{
			Filename:      entry.Name(),
			SetID:         id, // identifier used for session creation
			Name:          cfg.Name,
			Description:   cfg.Description,
			QuestionCount: len(cfg.Questions),
			Split:         split,
			MaxHealth:     cfg.MaxHealth,
		})
	}

	sort.Slice(configs, func(i, j int) bool { return configs[i].Filename < configs[j].Filename })
	return configs, nil
}

// GetDefault returns the default question set
func (m *Manager) GetDefault() *engine.QuestionSetConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultConfig
}

// SetDefault sets the default question set by name
func (m *Manager) SetDefault(name string) error {
	cfg, err := m.LoadConfig(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultConfig = cfg
	return nil
}

// RefreshCache drops every cached set and reloads the default from disk
func (m *Manager) RefreshCache() {
	m.mu.Lock()
	m.configs = make(map[string]*engine.QuestionSetConfig)
	m.mu.Unlock()

	m.loadDefaultConfig()
}

// loadDefaultConfig picks default.*, then the first loadable file, then the built-in set
func (m *Manager) loadDefaultConfig() {
	cfg, err := m.LoadConfig(DefaultSetID)
	if err != nil {
		configs, listErr := m.ListConfigs()
		if listErr == nil && len(configs) > 0 {
			cfg, err = m.LoadConfig(configs[0].Filename)
		}
	}
	if err != nil || cfg == nil {
		builtin := engine.DefaultQuestionSet()
		cfg = &builtin
	}

	m.mu.Lock()
	m.defaultConfig = cfg
	m.mu.Unlock()
}

// SaveConfig validates cfg and writes it as JSON, or YAML when name ends in .yaml or .yml
func (m *Manager) SaveConfig(name string, cfg *engine.QuestionSetConfig) error {
	if err := engine.ValidateQuestionSet(cfg); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	id := SetID(name)
	if !validName(id) {
		return fmt.Errorf("%w: bad file name %q", ErrInvalidConfig, name)
	}
	filename := name
	if id == name {
		filename = name + ".json"
	}

	var data []byte
	var err error
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(cfg)
	default:
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal question set: %w", err)
	}

	// Write to file
	configPath := filepath.Join(m.configDir, filename)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write question set file: %w", err)
	}

	// Update cache
	m.mu.Lock()
	m.configs[id] = cfg
	m.mu.Unlock()

	m.logger.Debug().Str("file", filename).Int("questions", len(cfg.Questions)).Msg("question set saved")
	return nil
}

// Watch reloads the cache whenever question set files change. It blocks until ctx is done.
func (m *Manager) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(m.configDir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", m.configDir, err)
	}
	m.logger.Info().Str("dir", m.configDir).Msg("watching question sets")

	// stopped timer armed on the first relevant event
	reload := time.NewTimer(m.debounce)
	if !reload.Stop() {
		<-reload.C
	}
	defer reload.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if SetID(filepath.Base(event.Name)) == filepath.Base(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			m.logger.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("question set changed")
			reload.Reset(m.debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			m.logger.Error().Err(err).Msg("question set watcher error")

		case <-reload.C:
			m.RefreshCache()
			m.logger.Info().Msg("question sets reloaded")
		}
	}
}
