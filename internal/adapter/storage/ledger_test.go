package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"sunledger2mqtt/internal/core/domain"

	"github.com/stretchr/testify/assert"
)

func TestLoadMissingFile(t *testing.T) {
	store := NewFileLedgerStore(filepath.Join(t.TempDir(), "ledger.json"))

	snapshot, err := store.Load()
	assert.NoError(t, err)
	assert.Nil(t, snapshot)
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "ledger.json")
	store := NewFileLedgerStore(path)

	window := time.Date(2026, 6, 15, 10, 30, 0, 0, time.Local)
	day := time.Date(2026, 6, 15, 0, 0, 0, 0, time.Local)
	saved := domain.LedgerSnapshot{
		Total:          12.345,
		LastWindow:     window,
		LastWindowCost: 0.135,
		LastDay:        day,
	}
	assert.NoError(t, store.Save(saved))

	loaded, err := store.Load()
	assert.NoError(t, err)
	if assert.NotNil(t, loaded) {
		assert.InDelta(t, saved.Total, loaded.Total, 1e-9)
		assert.True(t, saved.LastWindow.Equal(loaded.LastWindow))
		assert.InDelta(t, saved.LastWindowCost, loaded.LastWindowCost, 1e-9)
		assert.True(t, saved.LastDay.Equal(loaded.LastDay))
	}

	// no stray temp file left behind
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	assert.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	store := NewFileLedgerStore(path)
	snapshot, err := store.Load()
	assert.Error(t, err)
	assert.Nil(t, snapshot)
}
