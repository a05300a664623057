/*
contract.go - Contract records and the financial-term resolver

PURPOSE:
  Defines the two contract families the generator bills from, and the
  resolver that decides which financial term governs a given calendar month.

TERM HISTORY:
  A lease carries an ordered list of financial terms so step-up rent is
  expressible: year one at 1.5M, year two at 1.65M, each with its own date
  range, payment day, and fees. Terms are kept disjoint by data-entry
  discipline, not by validation here.

TIE-BREAK:
  When two terms genuinely overlap a month, the first match in stored order
  wins. This preserves the observed behavior of the system this engine was
  extracted from; it is a compatibility rule, not a business guarantee.

SEE ALSO:
  - calendar.go:  Month boundaries the resolver compares against
  - generator.go: The per-month walk that calls ResolveTerm
*/
package billing

// =============================================================================
// LEASE CONTRACT
// =============================================================================

// RenewalKind records how a lease term came to be.
type RenewalKind string

const (
	RenewalNew      RenewalKind = "new"
	RenewalExplicit RenewalKind = "renewal"
	RenewalImplicit RenewalKind = "implicit"
)

// LeaseTerm is the overall contractual period of a lease.
type LeaseTerm struct {
	SignedDate Date
	StartDate  Date
	EndDate    Date // zero = open-ended; the generator caps the walk instead
	Renewal    RenewalKind
}

// FinancialTerm is a dated sub-period of a lease carrying its own figures.
// StartDate and EndDate are inclusive calendar-day bounds.
type FinancialTerm struct {
	ID          string
	StartDate   Date
	EndDate     Date
	Deposit     Money
	MonthlyRent Money // zero is legitimate (deposit-only arrangements)
	AdminFee    Money
	PaymentDay  int // 1..31, clamped to actual month length
	PaymentType PaymentType

	ManagementItems []ManagementItem // informational: what the admin fee bundles

	LateFeeRate *float64
	BankAccount string
	Note        string
}

// Covers reports whether the term's range overlaps the month
// [monthStart, monthEnd]. A term with a zero bound covers nothing.
func (ft FinancialTerm) Covers(monthStart, monthEnd Date) bool {
	if ft.StartDate.IsZero() || ft.EndDate.IsZero() {
		return false
	}
	return ft.StartDate.BeforeOrEqual(monthEnd) && ft.EndDate.AfterOrEqual(monthStart)
}

// LeaseContract is a lease (outbound, inbound, or sublease) against a
// property, building, or unit.
type LeaseContract struct {
	ID         string
	Kind       LeaseKind
	TargetType TargetType
	TargetID   string
	TenantID   string
	Status     ContractStatus

	Term           LeaseTerm
	FinancialTerms []FinancialTerm // ordered; order is the overlap tie-break

	Conditions []string
	Note       string
}

// Billable reports whether the contract can produce any transactions at all.
func (c LeaseContract) Billable() bool {
	return len(c.FinancialTerms) > 0 && !c.Term.StartDate.IsZero()
}

// IsExpense reports the ledger sign for this lease's charges: an inbound
// lease is rent we pay out.
func (c LeaseContract) IsExpense() bool {
	return c.Kind == LeaseInbound
}

// =============================================================================
// MAINTENANCE CONTRACT
// =============================================================================

// MaintenanceContract is a flat recurring service cost against a target.
// Unlike leases it has exactly one cost and no term history.
type MaintenanceContract struct {
	ID          string
	TargetType  TargetType
	TargetID    string
	VendorID    string
	ServiceType ServiceType
	Status      ContractStatus // active or expired

	StartDate   Date
	EndDate     Date // zero = open-ended
	MonthlyCost Money
	Details     string
}

// =============================================================================
// TERM RESOLVER
// =============================================================================

// ResolveTerm finds the financial term governing the month
// [monthStart, monthEnd]. Returns nil when no term covers the month, meaning
// the contract bills nothing for it. On overlapping terms the first match in
// stored order wins.
func ResolveTerm(terms []FinancialTerm, monthStart, monthEnd Date) *FinancialTerm {
	for i := range terms {
		if terms[i].Covers(monthStart, monthEnd) {
			return &terms[i]
		}
	}
	return nil
}
