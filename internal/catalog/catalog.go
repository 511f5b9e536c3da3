// Package catalog loads the deck pool and the friendly-default roster from
// disk and saves customized friendly rosters back.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/DoyleJ11/deckbp/internal/apperrors"
	"github.com/DoyleJ11/deckbp/internal/deck"
)

// FriendlyStore persists the friendly-default roster.
type FriendlyStore interface {
	LoadFriendly(ctx context.Context) ([]deck.Record, error)
	SaveFriendly(ctx context.Context, records []deck.Record) error
}

// LoadPool reads the deck pool. Any failure is a config error.
func LoadPool(path string) (deck.Pool, error) {
	records, err := readRecords(path)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, apperrors.New(apperrors.KindConfig, fmt.Sprintf("deck pool %s is empty", path))
	}
	return deck.Pool(records), nil
}

// FileStore keeps the friendly-default roster in a JSON or YAML file.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string { return s.path }

// LoadFriendly reads the friendly defaults; exactly six records are required.
func (s *FileStore) LoadFriendly(ctx context.Context) ([]deck.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := readRecords(s.path)
	if err != nil {
		return nil, err
	}
	if len(records) != deck.FriendlyRosterSize {
		return nil, apperrors.New(apperrors.KindConfig,
			fmt.Sprintf("friendly roster %s has %d decks, want %d", s.path, len(records), deck.FriendlyRosterSize))
	}
	return records, nil
}

// SaveFriendly overwrites the file atomically. A failed save leaves the
// previous file in place.
func (s *FileStore) SaveFriendly(ctx context.Context, records []deck.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(records) != deck.FriendlyRosterSize {
		return apperrors.New(apperrors.KindPersistence,
			fmt.Sprintf("refusing to save %d decks, want %d", len(records), deck.FriendlyRosterSize))
	}
	data, err := encodeRecords(s.path, records)
	if err != nil {
		return apperrors.Wrap(apperrors.KindPersistence, "encode friendly roster", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return apperrors.Wrap(apperrors.KindPersistence, "save friendly roster", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return apperrors.Wrap(apperrors.KindPersistence, "save friendly roster", err)
	}
	return nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func readRecords(path string) ([]deck.Record, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, apperrors.Wrap(apperrors.KindConfig, fmt.Sprintf("config file %s not found", path), err)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindConfig, fmt.Sprintf("read %s", path), err)
	}

	var records []deck.Record
	if isYAML(path) {
		err = yaml.Unmarshal(data, &records)
	} else {
		err = json.Unmarshal(data, &records)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindConfig, fmt.Sprintf("config file %s is malformed", path), err)
	}
	if err := deck.Validate(records); err != nil {
		return nil, apperrors.Wrap(apperrors.KindConfig, fmt.Sprintf("config file %s is malformed", path), err)
	}
	return records, nil
}

func encodeRecords(path string, records []deck.Record) ([]byte, error) {
	if isYAML(path) {
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(4)
		if err := enc.Encode(records); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
