package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/neverbiasu/daily-news-rss/app/feed"
)

const (
	latestRawFile       = "latest-raw.json"
	latestProcessedFile = "latest-processed.json"
	rejectedFile        = "rejected-articles.json"
)

// SnapshotStore persists pipeline snapshots as whole-document JSON files in a
// data directory. Writes go through a temp file and rename so a crash never
// leaves a partial snapshot; the previous document survives until the rename.
type SnapshotStore struct {
	dataDir string
}

func NewSnapshotStore(dataDir string) *SnapshotStore {
	return &SnapshotStore{dataDir: dataDir}
}

func (s *SnapshotStore) WriteLatestRaw(snap *feed.RawSnapshot) error {
	return s.writeJSON(latestRawFile, snap)
}

// WriteGroupRaw writes the per-source-group dated raw archive:
// <group>/<YYYY-MM-DD-HH>-latest-raw.json.
func (s *SnapshotStore) WriteGroupRaw(group string, at time.Time, snap *feed.RawSnapshot) error {
	name := filepath.Join(group, at.UTC().Format("2006-01-02-15")+"-latest-raw.json")
	return s.writeJSON(name, snap)
}

func (s *SnapshotStore) WriteLatestProcessed(snap *feed.ProcessedSnapshot) error {
	return s.writeJSON(latestProcessedFile, snap)
}

// WriteDailyProcessed writes the dated daily-subset snapshot:
// YYYY-MM-DD-processed.json.
func (s *SnapshotStore) WriteDailyProcessed(at time.Time, snap *feed.ProcessedSnapshot) error {
	return s.writeJSON(at.UTC().Format("2006-01-02")+"-processed.json", snap)
}

func (s *SnapshotStore) WriteRejected(cache *feed.RejectedCache) error {
	return s.writeJSON(rejectedFile, cache)
}

// LoadLatestRaw returns the latest raw snapshot, or nil when none exists yet.
func (s *SnapshotStore) LoadLatestRaw() (*feed.RawSnapshot, error) {
	var snap feed.RawSnapshot
	ok, err := s.readJSON(latestRawFile, &snap)
	if err != nil || !ok {
		return nil, err
	}
	return &snap, nil
}

// LoadLatestProcessed returns the latest processed snapshot, or nil when none
// exists yet.
func (s *SnapshotStore) LoadLatestProcessed() (*feed.ProcessedSnapshot, error) {
	var snap feed.ProcessedSnapshot
	ok, err := s.readJSON(latestProcessedFile, &snap)
	if err != nil || !ok {
		return nil, err
	}
	return &snap, nil
}

// LoadRejected returns the rejected-article cache, empty when none exists.
func (s *SnapshotStore) LoadRejected() (*feed.RejectedCache, error) {
	var cache feed.RejectedCache
	ok, err := s.readJSON(rejectedFile, &cache)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &feed.RejectedCache{}, nil
	}
	return &cache, nil
}

func (s *SnapshotStore) writeJSON(name string, v any) error {
	path := filepath.Join(s.dataDir, name)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".snapshot-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}

	return nil
}

// readJSON reports whether the file existed.
func (s *SnapshotStore) readJSON(name string, v any) (bool, error) {
	data, err := os.ReadFile(filepath.Join(s.dataDir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read snapshot %s: %w", name, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to parse snapshot %s: %w", name, err)
	}

	return true, nil
}
