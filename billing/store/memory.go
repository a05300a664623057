// Package store provides an in-memory billing.Store for tests and dev.
package store

import (
	"context"
	"sync"

	"github.com/pakjc16/realty-flow/billing"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu           sync.RWMutex
	leases       map[string]billing.LeaseContract
	leaseOrder   []string
	maint        map[string]billing.MaintenanceContract
	maintOrder   []string
	transactions map[billing.TransactionID]billing.Transaction
	txOrder      []billing.TransactionID
}

var _ billing.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		leases:       make(map[string]billing.LeaseContract),
		maint:        make(map[string]billing.MaintenanceContract),
		transactions: make(map[billing.TransactionID]billing.Transaction),
	}
}

// =============================================================================
// CONTRACT STORE
// =============================================================================

func (m *Memory) SaveLease(_ context.Context, c billing.LeaseContract) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.leases[c.ID]; !ok {
		m.leaseOrder = append(m.leaseOrder, c.ID)
	}
	m.leases[c.ID] = c
	return nil
}

func (m *Memory) GetLease(_ context.Context, id string) (*billing.LeaseContract, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.leases[id]
	if !ok {
		return nil, billing.ErrContractNotFound
	}
	return &c, nil
}

func (m *Memory) ListLeases(_ context.Context) ([]billing.LeaseContract, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]billing.LeaseContract, 0, len(m.leaseOrder))
	for _, id := range m.leaseOrder {
		out = append(out, m.leases[id])
	}
	return out, nil
}

func (m *Memory) SaveMaintenance(_ context.Context, c billing.MaintenanceContract) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.maint[c.ID]; !ok {
		m.maintOrder = append(m.maintOrder, c.ID)
	}
	m.maint[c.ID] = c
	return nil
}

func (m *Memory) GetMaintenance(_ context.Context, id string) (*billing.MaintenanceContract, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.maint[id]
	if !ok {
		return nil, billing.ErrContractNotFound
	}
	return &c, nil
}

func (m *Memory) ListMaintenance(_ context.Context) ([]billing.MaintenanceContract, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]billing.MaintenanceContract, 0, len(m.maintOrder))
	for _, id := range m.maintOrder {
		out = append(out, m.maint[id])
	}
	return out, nil
}

// =============================================================================
// TRANSACTION STORE
// =============================================================================

func (m *Memory) Transactions(_ context.Context) ([]billing.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]billing.Transaction, 0, len(m.txOrder))
	for _, id := range m.txOrder {
		out = append(out, m.transactions[id])
	}
	return out, nil
}

func (m *Memory) GetTransaction(_ context.Context, id billing.TransactionID) (*billing.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tx, ok := m.transactions[id]
	if !ok {
		return nil, billing.ErrTransactionNotFound
	}
	return &tx, nil
}

func (m *Memory) ApplyDiff(_ context.Context, diff billing.Diff) error {
	if diff.Empty() {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	// Validate everything before writing so the batch is all-or-nothing.
	for _, tx := range diff.New {
		if _, ok := m.transactions[tx.ID]; ok {
			return billing.ErrDuplicateTransaction
		}
	}
	for _, tx := range diff.Updated {
		existing, ok := m.transactions[tx.ID]
		if !ok {
			return billing.ErrTransactionNotFound
		}
		if existing.Status == billing.StatusPaid {
			return &billing.PaidImmutableError{ID: tx.ID}
		}
	}

	for _, tx := range diff.New {
		m.insertLocked(tx)
	}
	for _, tx := range diff.Updated {
		m.transactions[tx.ID] = tx
	}
	return nil
}

func (m *Memory) InsertTransaction(_ context.Context, tx billing.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.transactions[tx.ID]; ok {
		return billing.ErrDuplicateTransaction
	}
	m.insertLocked(tx)
	return nil
}

func (m *Memory) UpdateTransaction(_ context.Context, tx billing.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.transactions[tx.ID]
	if !ok {
		return billing.ErrTransactionNotFound
	}
	if existing.Status == billing.StatusPaid {
		return &billing.PaidImmutableError{ID: tx.ID}
	}
	m.transactions[tx.ID] = tx
	return nil
}

func (m *Memory) MarkPaid(_ context.Context, id billing.TransactionID, paidDate billing.Date) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.transactions[id]
	if !ok {
		return billing.ErrTransactionNotFound
	}
	tx.Status = billing.StatusPaid
	tx.PaidDate = &paidDate
	m.transactions[id] = tx
	return nil
}

func (m *Memory) MarkUnpaid(_ context.Context, id billing.TransactionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.transactions[id]
	if !ok {
		return billing.ErrTransactionNotFound
	}
	tx.Status = billing.StatusUnpaid
	tx.PaidDate = nil
	m.transactions[id] = tx
	return nil
}

func (m *Memory) DeleteTransaction(_ context.Context, id billing.TransactionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.transactions[id]; !ok {
		return billing.ErrTransactionNotFound
	}
	delete(m.transactions, id)
	for i, tid := range m.txOrder {
		if tid == id {
			m.txOrder = append(m.txOrder[:i], m.txOrder[i+1:]...)
			break
		}
	}
	return nil
}

func (m *Memory) insertLocked(tx billing.Transaction) {
	m.transactions[tx.ID] = tx
	m.txOrder = append(m.txOrder, tx.ID)
}
