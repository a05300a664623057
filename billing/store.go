/*
store.go - Persistence contracts for the billing engine's collaborators

PURPOSE:
  The generator is pure; persistence is the caller's job. These interfaces
  define the two collaborators: the contract store (read-only snapshots the
  generator bills from) and the transaction store (the persisted ledger the
  diff is merged into).

OWNERSHIP RULES:
  - The generator never writes contracts.
  - The generator never deletes transactions; deletion is a manual,
    store-owned override.
  - Marking paid is store-owned and authoritative: once paid, the generator
    leaves the row alone forever.

IMPLEMENTATIONS:
  - store/sqlite:     Production SQLite store
  - billing/store:    In-memory store for tests and dev

SEE ALSO:
  - generator.go: Produces the Diff that ApplyDiff commits
*/
package billing

import "context"

// =============================================================================
// CONTRACT STORE - Read/write contract records, read-only to the generator
// =============================================================================

// ContractStore persists lease and maintenance contracts. Snapshots handed
// to the generator are immutable for the duration of one generation call.
type ContractStore interface {
	SaveLease(ctx context.Context, c LeaseContract) error
	GetLease(ctx context.Context, id string) (*LeaseContract, error)
	ListLeases(ctx context.Context) ([]LeaseContract, error)

	SaveMaintenance(ctx context.Context, c MaintenanceContract) error
	GetMaintenance(ctx context.Context, id string) (*MaintenanceContract, error)
	ListMaintenance(ctx context.Context) ([]MaintenanceContract, error)
}

// =============================================================================
// TRANSACTION STORE - The persisted ledger
// =============================================================================

// TransactionStore persists the ledger. The generator reads the full
// snapshot, and the caller commits the resulting diff atomically.
type TransactionStore interface {
	// Transactions returns the full ledger snapshot.
	Transactions(ctx context.Context) ([]Transaction, error)

	// GetTransaction returns one transaction, or ErrTransactionNotFound.
	GetTransaction(ctx context.Context, id TransactionID) (*Transaction, error)

	// ApplyDiff inserts diff.New and updates diff.Updated in one batch.
	// Updating a paid row fails with ErrPaidImmutable; inserting an
	// existing ID fails with ErrDuplicateTransaction. An empty diff is a
	// no-op.
	ApplyDiff(ctx context.Context, diff Diff) error

	// InsertTransaction adds a manually-created line item (e.g. a deposit).
	InsertTransaction(ctx context.Context, tx Transaction) error

	// UpdateTransaction overwrites a transaction in place. Refuses to
	// touch a paid row (ErrPaidImmutable); manual edits that settle a row
	// go through MarkPaid instead.
	UpdateTransaction(ctx context.Context, tx Transaction) error

	// MarkPaid settles a transaction, recording the paid date. This is the
	// authoritative external action the generator must never overwrite.
	MarkPaid(ctx context.Context, id TransactionID, paidDate Date) error

	// MarkUnpaid reverts a settlement, clearing the paid date. The next
	// reconciliation pass decides between unpaid and overdue.
	MarkUnpaid(ctx context.Context, id TransactionID) error

	// DeleteTransaction removes a row. Manual override only; the
	// generator never deletes.
	DeleteTransaction(ctx context.Context, id TransactionID) error
}

// Store is the full persistence surface the HTTP layer wires against.
type Store interface {
	ContractStore
	TransactionStore
}
