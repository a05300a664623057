package billing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pakjc16/realty-flow/billing"
)

// =============================================================================
// FIXTURES
// =============================================================================

// standardLease is the canonical scenario used across the suite: an outbound
// one-year lease (2024-01-01 .. 2025-01-01) at 1.5M rent + 150k admin fee,
// due on the 25th.
func standardLease() billing.LeaseContract {
	return billing.LeaseContract{
		ID:     "lease-1",
		Kind:   billing.LeaseOutbound,
		Status: billing.ContractActive,
		Term: billing.LeaseTerm{
			StartDate: d(2024, time.January, 1),
			EndDate:   d(2025, time.January, 1),
		},
		FinancialTerms: []billing.FinancialTerm{
			term("t1", d(2024, time.January, 1), d(2025, time.January, 1), 1_500_000, 150_000, 25),
		},
	}
}

func generate(leases []billing.LeaseContract, maint []billing.MaintenanceContract, existing []billing.Transaction, today billing.Date) billing.Diff {
	return billing.Generate(leases, maint, existing, today)
}

// apply merges a diff into an existing ledger the way a store would.
func apply(existing []billing.Transaction, diff billing.Diff) []billing.Transaction {
	byID := make(map[billing.TransactionID]billing.Transaction)
	var order []billing.TransactionID
	for _, tx := range existing {
		byID[tx.ID] = tx
		order = append(order, tx.ID)
	}
	for _, tx := range diff.Updated {
		byID[tx.ID] = tx
	}
	for _, tx := range diff.New {
		byID[tx.ID] = tx
		order = append(order, tx.ID)
	}
	out := make([]billing.Transaction, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	return out
}

func byMonthAndCharge(txs []billing.Transaction) map[billing.MonthKey]map[billing.ChargeType]billing.Transaction {
	out := make(map[billing.MonthKey]map[billing.ChargeType]billing.Transaction)
	for _, tx := range txs {
		if out[tx.TargetMonth] == nil {
			out[tx.TargetMonth] = make(map[billing.ChargeType]billing.Transaction)
		}
		out[tx.TargetMonth][tx.ChargeType] = tx
	}
	return out
}

// =============================================================================
// END-TO-END SCENARIO
// =============================================================================

func TestGenerate_StandardLeaseScenario(t *testing.T) {
	// GIVEN: The standard one-year outbound lease and an empty ledger
	// WHEN: Generating on 2024-03-10
	// THEN: Every month from Jan 2024 through Jan 2025 gets a rent and an
	//       admin-fee charge; months due before today are overdue

	today := d(2024, time.March, 10)
	diff := generate([]billing.LeaseContract{standardLease()}, nil, nil, today)

	// 13 months inclusive, two charges each.
	require.Len(t, diff.New, 26)
	assert.Empty(t, diff.Updated)

	months := byMonthAndCharge(diff.New)
	require.Len(t, months, 13)

	jan := months["2024-01"]
	require.Contains(t, jan, billing.ChargeRent)
	require.Contains(t, jan, billing.ChargeAdminFee)
	assert.Equal(t, won(1_500_000), jan[billing.ChargeRent].Amount)
	assert.Equal(t, won(150_000), jan[billing.ChargeAdminFee].Amount)
	assert.Equal(t, d(2024, time.January, 25), jan[billing.ChargeRent].DueDate)
	assert.Equal(t, billing.StatusOverdue, jan[billing.ChargeRent].Status)
	assert.Equal(t, billing.StatusOverdue, months["2024-02"][billing.ChargeRent].Status)

	// March's due date (the 25th) has not passed on the 10th.
	assert.Equal(t, billing.StatusUnpaid, months["2024-03"][billing.ChargeRent].Status)
	assert.Equal(t, billing.StatusUnpaid, months["2025-01"][billing.ChargeRent].Status)

	// The contract-end month is the last one billed.
	assert.NotContains(t, months, billing.MonthKey("2025-02"))
}

func TestGenerate_DeterministicIdentity(t *testing.T) {
	today := d(2024, time.March, 10)
	diff := generate([]billing.LeaseContract{standardLease()}, nil, nil, today)

	seen := make(map[billing.TransactionID]bool)
	for _, tx := range diff.New {
		assert.False(t, seen[tx.ID], "duplicate transaction id %s", tx.ID)
		seen[tx.ID] = true
	}
	assert.Contains(t, seen, billing.TransactionKey("lease-1", "2024-01", billing.ChargeRent))
	assert.Contains(t, seen, billing.TransactionKey("lease-1", "2024-01", billing.ChargeAdminFee))
}

// =============================================================================
// IDEMPOTENCE
// =============================================================================

func TestGenerate_Idempotent(t *testing.T) {
	// GIVEN: A ledger produced by one generation run
	// WHEN: Generating again with unchanged inputs
	// THEN: The diff is empty

	today := d(2024, time.March, 10)
	leases := []billing.LeaseContract{standardLease()}

	first := generate(leases, nil, nil, today)
	ledger := apply(nil, first)

	second := generate(leases, nil, ledger, today)
	assert.True(t, second.Empty(), "regeneration over its own output must be a no-op")
}

func TestGenerate_DoesNotMutateInputs(t *testing.T) {
	today := d(2024, time.March, 1)
	existing := []billing.Transaction{
		{
			ID:          billing.TransactionKey("lease-1", "2024-01", billing.ChargeRent),
			ContractID:  "lease-1",
			TargetMonth: "2024-01",
			ChargeType:  billing.ChargeRent,
			Amount:      won(1_500_000),
			DueDate:     d(2024, time.January, 25),
			Status:      billing.StatusUnpaid,
		},
	}

	generate([]billing.LeaseContract{standardLease()}, nil, existing, today)

	// The caller's slice is untouched even though the row needed a status
	// transition; the change only appears in the diff.
	assert.Equal(t, billing.StatusUnpaid, existing[0].Status)
}

// =============================================================================
// HORIZON
// =============================================================================

func TestGenerate_OpenEndedLeaseBoundedByHorizon(t *testing.T) {
	// GIVEN: A lease with no end date and a term far into the future
	// WHEN: Generating on 2024-03-10
	// THEN: Billing stops at today + 2 years, not at the term's end

	lease := standardLease()
	lease.Term.EndDate = billing.Date{}
	lease.FinancialTerms[0].EndDate = d(2099, time.December, 31)

	today := d(2024, time.March, 10)
	diff := generate([]billing.LeaseContract{lease}, nil, nil, today)

	months := byMonthAndCharge(diff.New)
	assert.Contains(t, months, billing.MonthKey("2026-03"), "horizon month 2026-03 is still billed")
	assert.NotContains(t, months, billing.MonthKey("2026-04"))

	// 2024-01 .. 2026-03 inclusive is 27 months.
	require.Len(t, months, 27)
	require.Len(t, diff.New, 54)
}

func TestGenerate_EndDateBeyondHorizonIsCapped(t *testing.T) {
	lease := standardLease()
	lease.Term.EndDate = d(2099, time.December, 31)
	lease.FinancialTerms[0].EndDate = d(2099, time.December, 31)

	today := d(2024, time.March, 10)
	diff := generate([]billing.LeaseContract{lease}, nil, nil, today)

	months := byMonthAndCharge(diff.New)
	assert.NotContains(t, months, billing.MonthKey("2026-04"))
	assert.Len(t, months, 27)
}

// =============================================================================
// SIGN CONVENTION
// =============================================================================

func TestGenerate_InboundLeaseIsExpense(t *testing.T) {
	// GIVEN: The same figures on an inbound lease (rent we pay)
	// WHEN: Generating
	// THEN: Amounts are negated

	lease := standardLease()
	lease.Kind = billing.LeaseInbound

	diff := generate([]billing.LeaseContract{lease}, nil, nil, d(2024, time.March, 10))

	months := byMonthAndCharge(diff.New)
	assert.Equal(t, won(-1_500_000), months["2024-01"][billing.ChargeRent].Amount)
	assert.Equal(t, won(-150_000), months["2024-01"][billing.ChargeAdminFee].Amount)
}

// =============================================================================
// DUE-DAY CLAMPING
// =============================================================================

func TestGenerate_PaymentDayClampedToMonthLength(t *testing.T) {
	lease := standardLease()
	lease.FinancialTerms[0].PaymentDay = 31

	diff := generate([]billing.LeaseContract{lease}, nil, nil, d(2024, time.March, 10))

	months := byMonthAndCharge(diff.New)
	assert.Equal(t, d(2024, time.January, 31), months["2024-01"][billing.ChargeRent].DueDate)
	assert.Equal(t, d(2024, time.February, 29), months["2024-02"][billing.ChargeRent].DueDate, "2024 is a leap year")
	assert.Equal(t, d(2024, time.April, 30), months["2024-04"][billing.ChargeRent].DueDate)
}

func TestGenerate_MissingPaymentDayFallsBackToEndOfMonth(t *testing.T) {
	lease := standardLease()
	lease.FinancialTerms[0].PaymentDay = 0

	diff := generate([]billing.LeaseContract{lease}, nil, nil, d(2024, time.March, 10))

	months := byMonthAndCharge(diff.New)
	assert.Equal(t, d(2024, time.January, 31), months["2024-01"][billing.ChargeRent].DueDate)
	assert.Equal(t, d(2024, time.April, 30), months["2024-04"][billing.ChargeRent].DueDate)
}

// =============================================================================
// ZERO CHARGES AND SKIPPED CONTRACTS
// =============================================================================

func TestGenerate_ZeroRentSuppressed(t *testing.T) {
	// GIVEN: A deposit-only term (rent 0, admin fee > 0)
	// WHEN: Generating
	// THEN: Only admin-fee charges appear; zero is "no charge", not an error

	lease := standardLease()
	lease.FinancialTerms[0].MonthlyRent = won(0)

	diff := generate([]billing.LeaseContract{lease}, nil, nil, d(2024, time.March, 10))

	require.Len(t, diff.New, 13)
	for _, tx := range diff.New {
		assert.Equal(t, billing.ChargeAdminFee, tx.ChargeType)
	}
}

func TestGenerate_PendingLeaseSkipped(t *testing.T) {
	lease := standardLease()
	lease.Status = billing.ContractPending

	diff := generate([]billing.LeaseContract{lease}, nil, nil, d(2024, time.March, 10))
	assert.True(t, diff.Empty())
}

func TestGenerate_TerminatedLeaseStillBillsItsTerm(t *testing.T) {
	// Termination does not erase past obligations; only pending contracts
	// are excluded from billing.
	lease := standardLease()
	lease.Status = billing.ContractTerminated

	diff := generate([]billing.LeaseContract{lease}, nil, nil, d(2024, time.March, 10))
	assert.Len(t, diff.New, 26)
}

func TestGenerate_ContractWithoutStartDateSkipped(t *testing.T) {
	lease := standardLease()
	lease.Term.StartDate = billing.Date{}

	diff := generate([]billing.LeaseContract{lease}, nil, nil, d(2024, time.March, 10))
	assert.True(t, diff.Empty())
}

func TestGenerate_UncoveredMonthsSkipped(t *testing.T) {
	// GIVEN: A term covering only the first quarter of a full-year contract
	// WHEN: Generating
	// THEN: Only covered months bill; the rest walk through silently

	lease := standardLease()
	lease.FinancialTerms[0].EndDate = d(2024, time.March, 31)

	diff := generate([]billing.LeaseContract{lease}, nil, nil, d(2024, time.June, 10))

	months := byMonthAndCharge(diff.New)
	assert.Len(t, months, 3)
	assert.Contains(t, months, billing.MonthKey("2024-03"))
	assert.NotContains(t, months, billing.MonthKey("2024-04"))
}

// =============================================================================
// RECONCILIATION
// =============================================================================

func TestGenerate_UnpaidBecomesOverdueAsTimePasses(t *testing.T) {
	// GIVEN: A ledger generated before March's due date
	// WHEN: Regenerating after the due date has passed
	// THEN: March flips to overdue with no other changes

	leases := []billing.LeaseContract{standardLease()}

	ledger := apply(nil, generate(leases, nil, nil, d(2024, time.March, 10)))
	diff := generate(leases, nil, ledger, d(2024, time.March, 26))

	assert.Empty(t, diff.New)
	require.Len(t, diff.Updated, 2, "March rent and admin fee flip to overdue")
	for _, tx := range diff.Updated {
		assert.Equal(t, billing.MonthKey("2024-03"), tx.TargetMonth)
		assert.Equal(t, billing.StatusOverdue, tx.Status)
	}
}

func TestGenerate_OverdueRevertsWhenDueDateMovesForward(t *testing.T) {
	// Pushing the payment day out can move an overdue row back to unpaid.
	lease := standardLease()
	ledger := apply(nil, generate([]billing.LeaseContract{lease}, nil, nil, d(2024, time.February, 1)))

	lease.FinancialTerms[0].PaymentDay = 28
	diff := generate([]billing.LeaseContract{lease}, nil, ledger, d(2024, time.January, 27))

	months := byMonthAndCharge(diff.Updated)
	jan := months["2024-01"]
	require.Contains(t, jan, billing.ChargeRent)
	assert.Equal(t, d(2024, time.January, 28), jan[billing.ChargeRent].DueDate)
	assert.Equal(t, billing.StatusUnpaid, jan[billing.ChargeRent].Status)
}

func TestGenerate_TermChangeUpdatesUnsettledRows(t *testing.T) {
	// GIVEN: An existing ledger and a rent increase on the same term
	// WHEN: Regenerating
	// THEN: Unsettled rows are rewritten in place under the same identity

	lease := standardLease()
	today := d(2024, time.March, 10)
	ledger := apply(nil, generate([]billing.LeaseContract{lease}, nil, nil, today))

	lease.FinancialTerms[0].MonthlyRent = won(1_600_000)
	diff := generate([]billing.LeaseContract{lease}, nil, ledger, today)

	assert.Empty(t, diff.New, "identity is stable, so a changed amount is an update")
	require.Len(t, diff.Updated, 13)
	for _, tx := range diff.Updated {
		assert.Equal(t, billing.ChargeRent, tx.ChargeType)
		assert.Equal(t, won(1_600_000), tx.Amount)
	}
}

func TestGenerate_PaidRowsAreFrozen(t *testing.T) {
	// GIVEN: January's rent marked paid, then a retroactive rent change
	// WHEN: Regenerating
	// THEN: The paid row is absent from the diff; everything else updates

	lease := standardLease()
	today := d(2024, time.March, 10)
	ledger := apply(nil, generate([]billing.LeaseContract{lease}, nil, nil, today))

	janRent := billing.TransactionKey("lease-1", "2024-01", billing.ChargeRent)
	for i := range ledger {
		if ledger[i].ID == janRent {
			paid := d(2024, time.January, 25)
			ledger[i].Status = billing.StatusPaid
			ledger[i].PaidDate = &paid
		}
	}

	lease.FinancialTerms[0].MonthlyRent = won(1_600_000)
	diff := generate([]billing.LeaseContract{lease}, nil, ledger, today)

	require.Len(t, diff.Updated, 12)
	for _, tx := range diff.Updated {
		assert.NotEqual(t, janRent, tx.ID, "paid history must never be rewritten")
	}
}

func TestGenerate_PartialRowKeepsStatusButTakesAmount(t *testing.T) {
	// A partially paid row is settled for status purposes, but a corrected
	// amount still flows through.
	lease := standardLease()
	today := d(2024, time.March, 10)
	ledger := apply(nil, generate([]billing.LeaseContract{lease}, nil, nil, today))

	febRent := billing.TransactionKey("lease-1", "2024-02", billing.ChargeRent)
	for i := range ledger {
		if ledger[i].ID == febRent {
			ledger[i].Status = billing.StatusPartial
		}
	}

	lease.FinancialTerms[0].MonthlyRent = won(1_600_000)
	diff := generate([]billing.LeaseContract{lease}, nil, ledger, today)

	months := byMonthAndCharge(diff.Updated)
	feb := months["2024-02"]
	require.Contains(t, feb, billing.ChargeRent)
	assert.Equal(t, won(1_600_000), feb[billing.ChargeRent].Amount)
	assert.Equal(t, billing.StatusPartial, feb[billing.ChargeRent].Status)
}

func TestGenerate_StaleTransactionsLeftAlone(t *testing.T) {
	// A transaction whose contract no longer covers its month is not deleted
	// or modified; cleanup is a manual decision, not the generator's.
	stale := billing.Transaction{
		ID:          billing.TransactionKey("gone-lease", "2023-06", billing.ChargeRent),
		ContractID:  "gone-lease",
		TargetMonth: "2023-06",
		ChargeType:  billing.ChargeRent,
		Amount:      won(900_000),
		DueDate:     d(2023, time.June, 25),
		Status:      billing.StatusOverdue,
	}

	diff := generate(nil, nil, []billing.Transaction{stale}, d(2024, time.March, 10))
	assert.True(t, diff.Empty())
}

// =============================================================================
// MAINTENANCE CONTRACTS
// =============================================================================

func maintenanceContract() billing.MaintenanceContract {
	return billing.MaintenanceContract{
		ID:          "maint-1",
		ServiceType: billing.ServiceCleaning,
		Status:      billing.ContractActive,
		StartDate:   d(2024, time.January, 10),
		EndDate:     d(2024, time.June, 30),
		MonthlyCost: won(300_000),
	}
}

func TestGenerate_MaintenanceCosts(t *testing.T) {
	// GIVEN: An active cleaning contract at 300k/month
	// WHEN: Generating on 2024-03-10
	// THEN: One negative maintenance-cost charge per month, due on the 25th

	diff := generate(nil, []billing.MaintenanceContract{maintenanceContract()}, nil, d(2024, time.March, 10))

	require.Len(t, diff.New, 6)
	months := byMonthAndCharge(diff.New)

	jan := months["2024-01"][billing.ChargeMaintenance]
	assert.Equal(t, won(-300_000), jan.Amount)
	assert.Equal(t, d(2024, time.January, 25), jan.DueDate)
	assert.Equal(t, billing.KindMaintenance, jan.ContractKind)
	assert.Equal(t, billing.StatusOverdue, jan.Status)
	assert.Equal(t, billing.StatusUnpaid, months["2024-03"][billing.ChargeMaintenance].Status)
}

func TestGenerate_ExpiredMaintenanceStillBills(t *testing.T) {
	c := maintenanceContract()
	c.Status = billing.ContractExpired

	diff := generate(nil, []billing.MaintenanceContract{c}, nil, d(2024, time.March, 10))
	assert.Len(t, diff.New, 6)
}

func TestGenerate_InactiveMaintenanceSkipped(t *testing.T) {
	for _, status := range []billing.ContractStatus{billing.ContractPending, billing.ContractTerminated} {
		c := maintenanceContract()
		c.Status = status

		diff := generate(nil, []billing.MaintenanceContract{c}, nil, d(2024, time.March, 10))
		assert.True(t, diff.Empty(), "status %s must not bill", status)
	}
}

func TestGenerate_ZeroCostMaintenanceSkipped(t *testing.T) {
	c := maintenanceContract()
	c.MonthlyCost = won(0)

	diff := generate(nil, []billing.MaintenanceContract{c}, nil, d(2024, time.March, 10))
	assert.True(t, diff.Empty())
}

func TestGenerate_OpenEndedMaintenanceBoundedByHorizon(t *testing.T) {
	c := maintenanceContract()
	c.EndDate = billing.Date{}

	diff := generate(nil, []billing.MaintenanceContract{c}, nil, d(2024, time.March, 10))

	months := byMonthAndCharge(diff.New)
	assert.Contains(t, months, billing.MonthKey("2026-03"))
	assert.NotContains(t, months, billing.MonthKey("2026-04"))
}

// =============================================================================
// MIXED PORTFOLIO
// =============================================================================

func TestGenerate_MixedPortfolio(t *testing.T) {
	// Lease income and maintenance expense coexist in one run without
	// identity collisions.
	today := d(2024, time.March, 10)
	diff := generate(
		[]billing.LeaseContract{standardLease()},
		[]billing.MaintenanceContract{maintenanceContract()},
		nil,
		today,
	)

	require.Len(t, diff.New, 32)

	seen := make(map[billing.TransactionID]bool)
	for _, tx := range diff.New {
		require.False(t, seen[tx.ID])
		seen[tx.ID] = true
	}
}
