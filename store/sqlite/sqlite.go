/*
Package sqlite provides the SQLite-backed implementation of billing.Store.

PURPOSE:
  Persists contracts and the transaction ledger. The generator itself does
  no I/O; this store supplies contract snapshots and commits the generated
  diff in one batch.

KEY TABLES:
  lease_contracts:       Lease records (overall term, counterparty, status)
  financial_terms:       Ordered per-lease financial terms (step-up rent)
  maintenance_contracts: Flat recurring service contracts
  transactions:          The ledger; IDs are deterministic generation keys

MUTATION RULES:
  - ApplyDiff inserts and updates in a single database transaction.
  - A paid transaction is never updated here; attempts fail with
    billing.ErrPaidImmutable before any SQL runs.
  - Deletes happen only through the manual DeleteTransaction override.

WAL MODE:
  Opened with WAL so readers don't block the writer during a diff commit.

SEE ALSO:
  - billing/store.go:        Interface definitions
  - billing/store/memory.go: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pakjc16/realty-flow/billing"
)

// Store implements billing.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ billing.Store = (*Store)(nil)

// New creates a SQLite store at the given path. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS lease_contracts (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		target_type TEXT NOT NULL,
		target_id TEXT NOT NULL,
		tenant_id TEXT NOT NULL,
		status TEXT NOT NULL,
		signed_date TEXT,
		start_date TEXT,
		end_date TEXT,
		renewal TEXT,
		conditions_json TEXT,
		note TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_leases_target
		ON lease_contracts(target_type, target_id);
	CREATE INDEX IF NOT EXISTS idx_leases_status
		ON lease_contracts(status);

	-- Ordered term history per lease. seq preserves stored order because
	-- stored order is the overlap tie-break.
	CREATE TABLE IF NOT EXISTS financial_terms (
		id TEXT NOT NULL,
		contract_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		start_date TEXT,
		end_date TEXT,
		deposit TEXT NOT NULL,
		monthly_rent TEXT NOT NULL,
		admin_fee TEXT NOT NULL,
		payment_day INTEGER NOT NULL,
		payment_type TEXT NOT NULL,
		management_items_json TEXT,
		late_fee_rate REAL,
		bank_account TEXT,
		note TEXT,
		PRIMARY KEY (contract_id, seq),
		FOREIGN KEY (contract_id) REFERENCES lease_contracts(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS maintenance_contracts (
		id TEXT PRIMARY KEY,
		target_type TEXT NOT NULL,
		target_id TEXT NOT NULL,
		vendor_id TEXT NOT NULL,
		service_type TEXT NOT NULL,
		status TEXT NOT NULL,
		start_date TEXT,
		end_date TEXT,
		monthly_cost TEXT NOT NULL,
		details TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_maintenance_target
		ON maintenance_contracts(target_type, target_id);

	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		contract_id TEXT NOT NULL,
		contract_kind TEXT NOT NULL,
		target_month TEXT NOT NULL,
		charge_type TEXT NOT NULL,
		amount TEXT NOT NULL,
		due_date TEXT NOT NULL,
		status TEXT NOT NULL,
		paid_date TEXT,
		tax_invoice_issued BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Identity invariant: one charge per (contract, month, type).
	CREATE UNIQUE INDEX IF NOT EXISTS idx_transactions_identity
		ON transactions(contract_id, target_month, charge_type);
	CREATE INDEX IF NOT EXISTS idx_transactions_month
		ON transactions(target_month);
	CREATE INDEX IF NOT EXISTS idx_transactions_status
		ON transactions(status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// LEASE CONTRACTS
// =============================================================================

// SaveLease upserts a lease and replaces its term history atomically.
func (s *Store) SaveLease(ctx context.Context, c billing.LeaseContract) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	conditions, err := json.Marshal(c.Conditions)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO lease_contracts
			(id, kind, target_type, target_id, tenant_id, status,
			 signed_date, start_date, end_date, renewal, conditions_json, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			target_type = excluded.target_type,
			target_id = excluded.target_id,
			tenant_id = excluded.tenant_id,
			status = excluded.status,
			signed_date = excluded.signed_date,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			renewal = excluded.renewal,
			conditions_json = excluded.conditions_json,
			note = excluded.note
	`,
		c.ID, string(c.Kind), string(c.TargetType), c.TargetID, c.TenantID, string(c.Status),
		dateStr(c.Term.SignedDate), dateStr(c.Term.StartDate), dateStr(c.Term.EndDate),
		string(c.Term.Renewal), string(conditions), c.Note,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return err
	}

	// Replace the term history wholesale.
	if _, err := tx.ExecContext(ctx, "DELETE FROM financial_terms WHERE contract_id = ?", c.ID); err != nil {
		return err
	}
	for i, ft := range c.FinancialTerms {
		items, err := json.Marshal(ft.ManagementItems)
		if err != nil {
			return err
		}
		var lateFee any
		if ft.LateFeeRate != nil {
			lateFee = *ft.LateFeeRate
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO financial_terms
				(id, contract_id, seq, start_date, end_date, deposit, monthly_rent,
				 admin_fee, payment_day, payment_type, management_items_json,
				 late_fee_rate, bank_account, note)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			ft.ID, c.ID, i, dateStr(ft.StartDate), dateStr(ft.EndDate),
			ft.Deposit.String(), ft.MonthlyRent.String(), ft.AdminFee.String(),
			ft.PaymentDay, string(ft.PaymentType), string(items),
			lateFee, ft.BankAccount, ft.Note,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *Store) GetLease(ctx context.Context, id string) (*billing.LeaseContract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, kind, target_type, target_id, tenant_id, status,
		       signed_date, start_date, end_date, renewal, conditions_json, note
		FROM lease_contracts WHERE id = ?
	`, id)

	c, err := scanLease(row)
	if err == sql.ErrNoRows {
		return nil, billing.ErrContractNotFound
	}
	if err != nil {
		return nil, err
	}

	terms, err := s.loadTerms(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	c.FinancialTerms = terms
	return c, nil
}

func (s *Store) ListLeases(ctx context.Context) ([]billing.LeaseContract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, target_type, target_id, tenant_id, status,
		       signed_date, start_date, end_date, renewal, conditions_json, note
		FROM lease_contracts ORDER BY created_at, id
	`)
	if err != nil {
		return nil, err
	}

	var leases []billing.LeaseContract
	for rows.Next() {
		c, err := scanLease(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		leases = append(leases, *c)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range leases {
		terms, err := s.loadTerms(ctx, leases[i].ID)
		if err != nil {
			return nil, err
		}
		leases[i].FinancialTerms = terms
	}
	return leases, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLease(r rowScanner) (*billing.LeaseContract, error) {
	var c billing.LeaseContract
	var kind, targetType, status, renewal string
	var signed, start, end, conditions, note sql.NullString

	err := r.Scan(&c.ID, &kind, &targetType, &c.TargetID, &c.TenantID, &status,
		&signed, &start, &end, &renewal, &conditions, &note)
	if err != nil {
		return nil, err
	}

	c.Kind = billing.LeaseKind(kind)
	c.TargetType = billing.TargetType(targetType)
	c.Status = billing.ContractStatus(status)
	c.Term = billing.LeaseTerm{
		SignedDate: parseDateStr(signed.String),
		StartDate:  parseDateStr(start.String),
		EndDate:    parseDateStr(end.String),
		Renewal:    billing.RenewalKind(renewal),
	}
	c.Note = note.String
	if conditions.String != "" {
		if err := json.Unmarshal([]byte(conditions.String), &c.Conditions); err != nil {
			return nil, err
		}
	}
	return &c, nil
}

func (s *Store) loadTerms(ctx context.Context, contractID string) ([]billing.FinancialTerm, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, start_date, end_date, deposit, monthly_rent, admin_fee,
		       payment_day, payment_type, management_items_json,
		       late_fee_rate, bank_account, note
		FROM financial_terms WHERE contract_id = ? ORDER BY seq
	`, contractID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var terms []billing.FinancialTerm
	for rows.Next() {
		var ft billing.FinancialTerm
		var start, end, deposit, rent, adminFee, paymentType string
		var items, bankAccount, note sql.NullString
		var lateFee sql.NullFloat64

		err := rows.Scan(&ft.ID, &start, &end, &deposit, &rent, &adminFee,
			&ft.PaymentDay, &paymentType, &items, &lateFee, &bankAccount, &note)
		if err != nil {
			return nil, err
		}

		ft.StartDate = parseDateStr(start)
		ft.EndDate = parseDateStr(end)
		ft.Deposit = billing.ParseMoney(deposit)
		ft.MonthlyRent = billing.ParseMoney(rent)
		ft.AdminFee = billing.ParseMoney(adminFee)
		ft.PaymentType = billing.PaymentType(paymentType)
		ft.BankAccount = bankAccount.String
		ft.Note = note.String
		if lateFee.Valid {
			rate := lateFee.Float64
			ft.LateFeeRate = &rate
		}
		if items.String != "" {
			if err := json.Unmarshal([]byte(items.String), &ft.ManagementItems); err != nil {
				return nil, err
			}
		}
		terms = append(terms, ft)
	}
	return terms, rows.Err()
}

// =============================================================================
// MAINTENANCE CONTRACTS
// =============================================================================

func (s *Store) SaveMaintenance(ctx context.Context, c billing.MaintenanceContract) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO maintenance_contracts
			(id, target_type, target_id, vendor_id, service_type, status,
			 start_date, end_date, monthly_cost, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			target_type = excluded.target_type,
			target_id = excluded.target_id,
			vendor_id = excluded.vendor_id,
			service_type = excluded.service_type,
			status = excluded.status,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			monthly_cost = excluded.monthly_cost,
			details = excluded.details
	`,
		c.ID, string(c.TargetType), c.TargetID, c.VendorID, string(c.ServiceType),
		string(c.Status), dateStr(c.StartDate), dateStr(c.EndDate),
		c.MonthlyCost.String(), c.Details,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) GetMaintenance(ctx context.Context, id string) (*billing.MaintenanceContract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, target_type, target_id, vendor_id, service_type, status,
		       start_date, end_date, monthly_cost, details
		FROM maintenance_contracts WHERE id = ?
	`, id)

	c, err := scanMaintenance(row)
	if err == sql.ErrNoRows {
		return nil, billing.ErrContractNotFound
	}
	return c, err
}

func (s *Store) ListMaintenance(ctx context.Context) ([]billing.MaintenanceContract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, target_type, target_id, vendor_id, service_type, status,
		       start_date, end_date, monthly_cost, details
		FROM maintenance_contracts ORDER BY created_at, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contracts []billing.MaintenanceContract
	for rows.Next() {
		c, err := scanMaintenance(rows)
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, *c)
	}
	return contracts, rows.Err()
}

func scanMaintenance(r rowScanner) (*billing.MaintenanceContract, error) {
	var c billing.MaintenanceContract
	var targetType, serviceType, status, cost string
	var start, end, details sql.NullString

	err := r.Scan(&c.ID, &targetType, &c.TargetID, &c.VendorID, &serviceType,
		&status, &start, &end, &cost, &details)
	if err != nil {
		return nil, err
	}

	c.TargetType = billing.TargetType(targetType)
	c.ServiceType = billing.ServiceType(serviceType)
	c.Status = billing.ContractStatus(status)
	c.StartDate = parseDateStr(start.String)
	c.EndDate = parseDateStr(end.String)
	c.MonthlyCost = billing.ParseMoney(cost)
	c.Details = details.String
	return &c, nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func (s *Store) Transactions(ctx context.Context) ([]billing.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, contract_id, contract_kind, target_month, charge_type,
		       amount, due_date, status, paid_date, tax_invoice_issued
		FROM transactions ORDER BY created_at, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []billing.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, *tx)
	}
	return txs, rows.Err()
}

func (s *Store) GetTransaction(ctx context.Context, id billing.TransactionID) (*billing.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getTransactionLocked(ctx, id)
}

func (s *Store) getTransactionLocked(ctx context.Context, id billing.TransactionID) (*billing.Transaction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, contract_id, contract_kind, target_month, charge_type,
		       amount, due_date, status, paid_date, tax_invoice_issued
		FROM transactions WHERE id = ?
	`, string(id))

	tx, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, billing.ErrTransactionNotFound
	}
	return tx, err
}

func scanTransaction(r rowScanner) (*billing.Transaction, error) {
	var tx billing.Transaction
	var id, contractKind, targetMonth, chargeType, amount, dueDate, status string
	var paidDate sql.NullString

	err := r.Scan(&id, &tx.ContractID, &contractKind, &targetMonth, &chargeType,
		&amount, &dueDate, &status, &paidDate, &tx.TaxInvoiceIssued)
	if err != nil {
		return nil, err
	}

	tx.ID = billing.TransactionID(id)
	tx.ContractKind = billing.ContractKind(contractKind)
	tx.TargetMonth = billing.MonthKey(targetMonth)
	tx.ChargeType = billing.ChargeType(chargeType)
	tx.Amount = billing.ParseMoney(amount)
	tx.DueDate = parseDateStr(dueDate)
	tx.Status = billing.TxStatus(status)
	if paidDate.Valid && paidDate.String != "" {
		d := parseDateStr(paidDate.String)
		tx.PaidDate = &d
	}
	return &tx, nil
}

// ApplyDiff commits a generation diff in one database transaction.
func (s *Store) ApplyDiff(ctx context.Context, diff billing.Diff) error {
	if diff.Empty() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Refuse to touch paid rows before any SQL runs.
	for _, tx := range diff.Updated {
		existing, err := s.getTransactionLocked(ctx, tx.ID)
		if err != nil {
			return err
		}
		if existing.Status == billing.StatusPaid {
			return &billing.PaidImmutableError{ID: tx.ID}
		}
	}

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer dbTx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, tx := range diff.New {
		if err := insertTx(ctx, dbTx, tx, now); err != nil {
			return err
		}
	}
	for _, tx := range diff.Updated {
		_, err := dbTx.ExecContext(ctx, `
			UPDATE transactions
			SET amount = ?, due_date = ?, status = ?, updated_at = ?
			WHERE id = ?
		`, tx.Amount.String(), dateStr(tx.DueDate), string(tx.Status), now, string(tx.ID))
		if err != nil {
			return err
		}
	}

	return dbTx.Commit()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertTx(ctx context.Context, db execer, tx billing.Transaction, now string) error {
	var paidDate any
	if tx.PaidDate != nil {
		paidDate = dateStr(*tx.PaidDate)
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO transactions
			(id, contract_id, contract_kind, target_month, charge_type,
			 amount, due_date, status, paid_date, tax_invoice_issued,
			 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		string(tx.ID), tx.ContractID, string(tx.ContractKind), string(tx.TargetMonth),
		string(tx.ChargeType), tx.Amount.String(), dateStr(tx.DueDate),
		string(tx.Status), paidDate, tx.TaxInvoiceIssued, now, now,
	)
	if isUniqueViolation(err) {
		return billing.ErrDuplicateTransaction
	}
	return err
}

func (s *Store) InsertTransaction(ctx context.Context, tx billing.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertTx(ctx, s.db, tx, time.Now().UTC().Format(time.RFC3339))
}

func (s *Store) UpdateTransaction(ctx context.Context, tx billing.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.getTransactionLocked(ctx, tx.ID)
	if err != nil {
		return err
	}
	if existing.Status == billing.StatusPaid {
		return &billing.PaidImmutableError{ID: tx.ID}
	}

	var paidDate any
	if tx.PaidDate != nil {
		paidDate = dateStr(*tx.PaidDate)
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE transactions
		SET amount = ?, due_date = ?, status = ?, paid_date = ?,
		    tax_invoice_issued = ?, updated_at = ?
		WHERE id = ?
	`, tx.Amount.String(), dateStr(tx.DueDate), string(tx.Status), paidDate,
		tx.TaxInvoiceIssued, time.Now().UTC().Format(time.RFC3339), string(tx.ID))
	return err
}

func (s *Store) MarkPaid(ctx context.Context, id billing.TransactionID, paidDate billing.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE transactions
		SET status = ?, paid_date = ?, updated_at = ?
		WHERE id = ?
	`, string(billing.StatusPaid), dateStr(paidDate),
		time.Now().UTC().Format(time.RFC3339), string(id))
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Store) MarkUnpaid(ctx context.Context, id billing.TransactionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE transactions
		SET status = ?, paid_date = NULL, updated_at = ?
		WHERE id = ?
	`, string(billing.StatusUnpaid), time.Now().UTC().Format(time.RFC3339), string(id))
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Store) DeleteTransaction(ctx context.Context, id billing.TransactionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", string(id))
	if err != nil {
		return err
	}
	return requireRow(res)
}

// =============================================================================
// HELPERS
// =============================================================================

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return billing.ErrTransactionNotFound
	}
	return nil
}

// dateStr renders a date for storage; the zero Date becomes an empty string
// and round-trips back to zero.
func dateStr(d billing.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}

func parseDateStr(s string) billing.Date {
	if s == "" {
		return billing.Date{}
	}
	d, _ := billing.ParseDate(s)
	return d
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
