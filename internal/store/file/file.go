// Package file persists the key-value snapshot as one JSON object on disk,
// the local equivalent of browser storage.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"sync"

	applog "ledger/internal/log"
	"ledger/internal/store"
)

var _ store.KeyValueStore = (*Store)(nil)

type Store struct {
	mu     sync.Mutex
	path   string
	values map[string]string
	logger *applog.Logger
}

// New opens the store at path, creating the parent directory if needed.
// A missing or empty file is an empty store. An unreadable JSON document is
// moved aside to CorruptPath(path) and the store starts empty. A nil logger
// logs through slog.Default.
func New(path string, logger *applog.Logger) (*Store, error) {
	if logger == nil {
		logger = applog.Wrap(nil, applog.ComponentStorage)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	s := &Store{path: path, values: map[string]string{}, logger: logger}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read data file: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	values := map[string]string{}
	if err := json.Unmarshal(data, &values); err != nil {
		aside := CorruptPath(s.path)
		if rerr := os.Rename(s.path, aside); rerr != nil {
			return fmt.Errorf("move corrupt data file aside: %w", rerr)
		}
		s.logger.Warn("Data file is not a JSON object of strings, starting empty",
			applog.FieldPath, s.path,
			"moved_to", aside,
			applog.FieldError, err)
		return nil
	}
	s.values = values
	return nil
}

func (s *Store) Load(ctx context.Context, keys ...string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := s.values[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (s *Store) Save(ctx context.Context, values map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next := maps.Clone(s.values)
	maps.Copy(next, values)
	if err := s.persistLocked(next); err != nil {
		return err
	}
	s.values = next
	return nil
}

func (s *Store) Remove(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next := maps.Clone(s.values)
	for _, k := range keys {
		delete(next, k)
	}
	if err := s.persistLocked(next); err != nil {
		return err
	}
	s.values = next
	return nil
}

// persistLocked writes values to a temp file and renames it over the data file.
func (s *Store) persistLocked(values map[string]string) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("encode data file: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".ledger-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp data file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp data file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp data file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp data file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace data file: %w", err)
	}
	return nil
}

// CorruptPath is where an undecodable data file is moved on open.
// An earlier copy at that path is replaced.
func CorruptPath(path string) string { return path + ".corrupt" }

// Path returns the data file location.
func (s *Store) Path() string { return s.path }

func (s *Store) Close() error { return nil }
