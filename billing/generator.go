/*
generator.go - The recurring-billing ledger generator

PURPOSE:
  Derives the complete expected transaction set from contract snapshots and
  merges it against the existing ledger. This is the one piece of the system
  with real correctness hazards: duplicate bills, unstable identity across
  runs, end-of-month clamping, and retroactive mutation of settled records.

ALGORITHM:
  1. Reconcile: every unsettled existing transaction has its status
     re-evaluated against today (unpaid -> overdue as time passes). Runs
     unconditionally, independent of contract changes.
  2. Lease walk: for each non-pending lease, walk months from the contract
     start to min(contract end, today + 2 years). Resolve the governing
     financial term per month; no term means no billing that month. Emit
     rent and admin-fee charges for positive amounts, signed by direction
     (inbound lease = expense).
  3. Maintenance walk: same month walk, fixed due day 25, single
     maintenance-cost charge, always an expense.
  4. Merge: transaction identity is the deterministic
     (contract, month, charge) key. Missing -> create. Existing and unpaid
     -> overwrite amount/due date if either changed, recomputing status.
     Existing and paid -> untouched, always.

CRITICAL INVARIANTS:
  1. IDEMPOTENT: Generating twice over the first run's output is a no-op.
  2. PURE: Inputs are never mutated; the caller commits the returned diff.
  3. BOUNDED: The two-year horizon keeps open-ended contracts finite.
  4. FROZEN HISTORY: Paid transactions never appear in the diff.

FAILURE SEMANTICS:
  Nothing here returns an error. Missing coverage skips the month, a zero
  charge is a valid "no charge" state, and an out-of-range payment day
  degrades to the end of the month. One bad contract cannot block billing
  for all others.

SEE ALSO:
  - contract.go: ResolveTerm and contract records
  - store.go:    How the caller commits a Diff
*/
package billing

// HorizonYears bounds how far into the future the generator walks for
// open-ended contracts.
const HorizonYears = 2

// MaintenanceDueDay is the fixed due day for maintenance costs. Unlike lease
// payment days it is not configurable, and 25 exists in every month so no
// clamping is needed.
const MaintenanceDueDay = 25

// =============================================================================
// DIFF - The generator's only output
// =============================================================================

// Diff is the proposed ledger change: brand-new transactions plus existing
// ones that need an in-place update. The caller merges both into its store
// in one batch; an empty diff means no store mutation at all.
type Diff struct {
	New     []Transaction
	Updated []Transaction
}

func (d Diff) Empty() bool {
	return len(d.New) == 0 && len(d.Updated) == 0
}

// =============================================================================
// GENERATE
// =============================================================================

// Horizon returns the forward cap for the month walk: today plus two years.
func Horizon(today Date) Date {
	return today.AddYears(HorizonYears)
}

// Generate derives the expected ledger for all contracts and diffs it
// against the existing transaction set. Pure: safe to call repeatedly and
// from overlapping triggers; the store converges to the same state
// regardless of interleaving because identical inputs produce identical
// diffs.
func Generate(leases []LeaseContract, maintenance []MaintenanceContract, existing []Transaction, today Date) Diff {
	m := newMerge(existing, today)

	m.reconcileStatuses()

	horizon := Horizon(today)
	for _, lease := range leases {
		generateLease(m, lease, horizon)
	}
	for _, svc := range maintenance {
		generateMaintenance(m, svc, horizon)
	}

	return m.diff()
}

func generateLease(m *merge, c LeaseContract, horizon Date) {
	if c.Status == ContractPending || !c.Billable() {
		return
	}

	end := horizon
	if !c.Term.EndDate.IsZero() {
		end = c.Term.EndDate.Min(horizon)
	}

	walk := WalkMonths(c.Term.StartDate, end)
	for month, ok := walk.Next(); ok; month, ok = walk.Next() {
		term := ResolveTerm(c.FinancialTerms, month, EndOfMonth(month))
		if term == nil {
			continue // no financial coverage: the contract bills nothing this month
		}

		due := ClampPaymentDay(month.Year(), month.Month(), term.PaymentDay)
		sign := func(amount Money) Money {
			if c.IsExpense() {
				return amount.Neg()
			}
			return amount
		}

		if term.MonthlyRent.IsPositive() {
			m.upsert(Transaction{
				ID:           TransactionKey(c.ID, MonthOf(month), ChargeRent),
				ContractID:   c.ID,
				ContractKind: KindLease,
				TargetMonth:  MonthOf(month),
				ChargeType:   ChargeRent,
				Amount:       sign(term.MonthlyRent),
				DueDate:      due,
			})
		}
		if term.AdminFee.IsPositive() {
			m.upsert(Transaction{
				ID:           TransactionKey(c.ID, MonthOf(month), ChargeAdminFee),
				ContractID:   c.ID,
				ContractKind: KindLease,
				TargetMonth:  MonthOf(month),
				ChargeType:   ChargeAdminFee,
				Amount:       sign(term.AdminFee),
				DueDate:      due,
			})
		}
	}
}

func generateMaintenance(m *merge, c MaintenanceContract, horizon Date) {
	if c.Status != ContractActive && c.Status != ContractExpired {
		return
	}
	if c.StartDate.IsZero() || !c.MonthlyCost.IsPositive() {
		return
	}

	end := horizon
	if !c.EndDate.IsZero() {
		end = c.EndDate.Min(horizon)
	}

	walk := WalkMonths(c.StartDate, end)
	for month, ok := walk.Next(); ok; month, ok = walk.Next() {
		m.upsert(Transaction{
			ID:           TransactionKey(c.ID, MonthOf(month), ChargeMaintenance),
			ContractID:   c.ID,
			ContractKind: KindMaintenance,
			TargetMonth:  MonthOf(month),
			ChargeType:   ChargeMaintenance,
			Amount:       c.MonthlyCost.Neg(), // service costs are always an expense
			DueDate:      NewDate(month.Year(), month.Month(), MaintenanceDueDay),
		})
	}
}

// =============================================================================
// MERGE STATE
// =============================================================================

// merge accumulates the diff against a copy of the existing ledger. It never
// writes through to the caller's slices.
type merge struct {
	today   Date
	byID    map[TransactionID]Transaction
	order   []TransactionID // existing ledger order, for stable Updated output
	updated map[TransactionID]bool
	created []Transaction
}

func newMerge(existing []Transaction, today Date) *merge {
	m := &merge{
		today:   today,
		byID:    make(map[TransactionID]Transaction, len(existing)),
		order:   make([]TransactionID, 0, len(existing)),
		updated: make(map[TransactionID]bool),
	}
	for _, tx := range existing {
		m.byID[tx.ID] = tx
		m.order = append(m.order, tx.ID)
	}
	return m
}

// statusFor derives unpaid/overdue purely from the due date.
func (m *merge) statusFor(due Date) TxStatus {
	if IsPastDue(due, m.today) {
		return StatusOverdue
	}
	return StatusUnpaid
}

// reconcileStatuses transitions unsettled transactions between unpaid and
// overdue as time passes. Paid and partial rows keep their status: a
// recorded payment is authoritative.
func (m *merge) reconcileStatuses() {
	for _, id := range m.order {
		tx := m.byID[id]
		if tx.Settled() {
			continue
		}
		if next := m.statusFor(tx.DueDate); next != tx.Status {
			tx.Status = next
			m.byID[id] = tx
			m.updated[id] = true
		}
	}
}

// upsert merges one desired charge into the ledger. desired carries no
// status; it is derived here from the due date.
func (m *merge) upsert(desired Transaction) {
	existing, ok := m.byID[desired.ID]
	if !ok {
		desired.Status = m.statusFor(desired.DueDate)
		m.byID[desired.ID] = desired
		m.created = append(m.created, desired)
		return
	}

	if existing.Status == StatusPaid {
		return // settled history is immutable
	}

	if existing.Amount.Equal(desired.Amount) && existing.DueDate.Equal(desired.DueDate) {
		return
	}

	existing.Amount = desired.Amount
	existing.DueDate = desired.DueDate
	if !existing.Settled() {
		existing.Status = m.statusFor(existing.DueDate)
	}
	m.byID[desired.ID] = existing
	m.updated[desired.ID] = true
}

func (m *merge) diff() Diff {
	var d Diff
	d.New = m.created
	for _, id := range m.order {
		if m.updated[id] {
			d.Updated = append(d.Updated, m.byID[id])
		}
	}
	return d
}
