// Package configsvc persists the deck configuration and notifies subscribers
// whenever it changes, whether through Save or through an edit of the file.
package configsvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"
	"github.com/ghodss/yaml"
	"go.uber.org/zap"

	"github.com/neuroplastio/neio-remote/internal/deck"
	"github.com/neuroplastio/neio-remote/internal/notify"
)

type Service struct {
	log     *zap.Logger
	path    string
	publish notify.Publisher

	mu     sync.Mutex
	digest uint64
	ready  chan struct{}
}

// New creates a config service for the file at path. publish may be nil when
// nothing listens for changes.
func New(log *zap.Logger, path string, publish notify.Publisher) *Service {
	return &Service{
		log:     log,
		path:    path,
		publish: publish,
		ready:   make(chan struct{}),
	}
}

func (s *Service) Path() string {
	return s.path
}

// Load reads the configuration from disk. A missing file is initialized with
// deck.Default.
func (s *Service) Load() (deck.Config, error) {
	cfg, data, err := readConfig(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		cfg = deck.Default()
		if err := s.write(cfg); err != nil {
			return deck.Config{}, fmt.Errorf("failed to initialize config: %w", err)
		}
		s.log.Info("Config initialized with defaults", zap.String("path", s.path))
		return cfg, nil
	case err != nil:
		return deck.Config{}, err
	}
	s.mu.Lock()
	if s.digest == 0 {
		s.digest = xxhash.Sum64(data)
	}
	s.mu.Unlock()
	return cfg, nil
}

// Save validates and writes cfg, then publishes a single ConfigUpdated event.
func (s *Service) Save(ctx context.Context, cfg deck.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := s.write(cfg); err != nil {
		return err
	}
	s.log.Info("Config saved", zap.String("path", s.path), zap.Int("buttons", len(cfg.Buttons)))
	s.notify(ctx)
	return nil
}

func (s *Service) notify(ctx context.Context) {
	if s.publish == nil {
		return
	}
	s.publish(ctx, notify.NewEvent(notify.ConfigUpdated))
}

func (s *Service) write(cfg deck.Config) error {
	data, err := encodeConfig(cfg)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := writeFileAtomic(s.path, data); err != nil {
		return err
	}
	s.digest = xxhash.Sum64(data)
	return nil
}

// Start watches the config file until ctx is done. Content changes that did
// not come from Save publish ConfigUpdated.
func (s *Service) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	absPath, err := filepath.Abs(s.path)
	if err != nil {
		return fmt.Errorf("failed to get absolute path for %s: %w", s.path, err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		return fmt.Errorf("failed to add path to watcher %s: %w", s.path, err)
	}
	close(s.ready)
	s.log.Info("Config service started", zap.String("path", absPath))
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != absPath || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}
			s.onFileChanged(ctx)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.log.Error("Watcher error", zap.Error(err))
		}
	}
}

func (s *Service) Ready() <-chan struct{} {
	return s.ready
}

func (s *Service) onFileChanged(ctx context.Context) {
	_, data, err := readConfig(s.path)
	if err != nil {
		// Editors often write in several steps; the final write triggers another event.
		s.log.Warn("Ignoring unreadable config change", zap.Error(err))
		return
	}
	digest := xxhash.Sum64(data)
	s.mu.Lock()
	changed := digest != s.digest
	s.digest = digest
	s.mu.Unlock()
	if !changed {
		return
	}
	s.log.Info("Config file changed", zap.String("path", s.path))
	s.notify(ctx)
}

func encodeConfig(cfg deck.Config) ([]byte, error) {
	jsonB, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	yamlB, err := yaml.JSONToYAML(jsonB)
	if err != nil {
		return nil, fmt.Errorf("failed to convert json to yaml: %w", err)
	}
	return yamlB, nil
}

func decodeConfig(data []byte) (deck.Config, error) {
	var cfg deck.Config
	jsonB, err := yaml.YAMLToJSON(data)
	if err != nil {
		return cfg, fmt.Errorf("failed to convert yaml to json: %w", err)
	}
	if err := json.Unmarshal(jsonB, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal json: %w", err)
	}
	return cfg, nil
}

// ReadFile decodes a config file without validating it.
func ReadFile(path string) (deck.Config, error) {
	cfg, _, err := readConfig(path)
	return cfg, err
}

// Encode renders cfg in the on-disk YAML format.
func Encode(cfg deck.Config) ([]byte, error) {
	return encodeConfig(cfg)
}

func readConfig(path string) (deck.Config, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return deck.Config{}, nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := decodeConfig(data)
	if err != nil {
		return deck.Config{}, nil, err
	}
	return cfg, data, nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp config file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	// The PIN lives in this file.
	if err := os.Chmod(tmp.Name(), 0600); err != nil {
		return fmt.Errorf("failed to set config file mode: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace config file: %w", err)
	}
	return nil
}
