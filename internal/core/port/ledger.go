package port

import "sunledger2mqtt/internal/core/domain"

// LedgerStore persists the accrual ledger between restarts.
type LedgerStore interface {
	Load() (*domain.LedgerSnapshot, error)
	Save(snapshot domain.LedgerSnapshot) error
}
