package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"sunledger2mqtt/internal/core/domain"
	"sunledger2mqtt/internal/core/port"
)

// FileLedgerStore persists the ledger snapshot as a JSON file. Writes go to a
// temporary file first and are renamed into place, so a crash mid-write never
// leaves a truncated snapshot behind.
type FileLedgerStore struct {
	path string
}

func NewFileLedgerStore(path string) *FileLedgerStore {
	return &FileLedgerStore{path: path}
}

func (s *FileLedgerStore) Load() (*domain.LedgerSnapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("ledger load: %w", err)
	}
	var snapshot domain.LedgerSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("ledger load: %w", err)
	}
	return &snapshot, nil
}

func (s *FileLedgerStore) Save(snapshot domain.LedgerSnapshot) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("ledger save: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ledger save: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("ledger save: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("ledger save: %w", err)
	}
	return nil
}

var _ port.LedgerStore = (*FileLedgerStore)(nil)
