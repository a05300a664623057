/*
Package billing implements the recurring-billing ledger engine.

PURPOSE:
  Given a snapshot of lease and maintenance contracts, the engine derives the
  complete monthly ledger of rent, admin-fee, and service-cost transactions,
  and reconciles that ledger as contracts change. The engine is a pure
  function of (contracts, existing transactions, today): no I/O, no clock,
  no mutation of its inputs.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money:       Signed currency amount (positive income, negative expense)
  - Transaction: One billable line item for one contract, month, charge type
  - TransactionKey: Deterministic identity so regeneration never duplicates

DESIGN PRINCIPLES:
  1. Idempotence: Re-running generation against its own output is a no-op
  2. Precision:   decimal.Decimal for currency, never float64
  3. Settled history is immutable: a paid transaction is never rewritten

SEE ALSO:
  - contract.go:  Contract and financial-term records
  - generator.go: The generation and reconciliation algorithm
  - store.go:     Persistence contracts for contracts and transactions
*/
package billing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Signed currency amount
// =============================================================================

// Money is a signed currency amount. By ledger convention a positive amount
// is income and a negative amount is an expense.
type Money struct {
	Value decimal.Decimal
}

func NewMoney(value int64) Money {
	return Money{Value: decimal.NewFromInt(value)}
}

func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money{Value: d}
}

// ParseMoney parses a decimal string. Malformed input yields zero, which the
// generator treats as "no charge" rather than an error.
func ParseMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{Value: decimal.Zero}
	}
	return Money{Value: d}
}

func (m Money) Add(other Money) Money { return Money{Value: m.Value.Add(other.Value)} }
func (m Money) Neg() Money            { return Money{Value: m.Value.Neg()} }
func (m Money) Abs() Money            { return Money{Value: m.Value.Abs()} }
func (m Money) IsZero() bool          { return m.Value.IsZero() }
func (m Money) IsPositive() bool      { return m.Value.IsPositive() }
func (m Money) IsNegative() bool      { return m.Value.IsNegative() }
func (m Money) Equal(other Money) bool {
	return m.Value.Equal(other.Value)
}

func (m Money) String() string { return m.Value.String() }

// =============================================================================
// ENUMERATIONS
// =============================================================================

// LeaseKind distinguishes billing direction: an outbound lease earns rent,
// an inbound lease pays it.
type LeaseKind string

const (
	LeaseOutbound LeaseKind = "lease_out"
	LeaseInbound  LeaseKind = "lease_in"
	Sublease      LeaseKind = "sublease"
)

// ContractStatus is the lifecycle state of a contract.
type ContractStatus string

const (
	ContractActive     ContractStatus = "active"
	ContractExpired    ContractStatus = "expired"
	ContractTerminated ContractStatus = "terminated"
	ContractPending    ContractStatus = "pending"
)

// TargetType identifies what a contract is attached to.
type TargetType string

const (
	TargetProperty TargetType = "property"
	TargetBuilding TargetType = "building"
	TargetUnit     TargetType = "unit"
)

// ContractKind distinguishes the two contract families in the ledger.
type ContractKind string

const (
	KindLease       ContractKind = "lease"
	KindMaintenance ContractKind = "maintenance"
)

// ChargeType is the kind of charge a transaction bills.
type ChargeType string

const (
	ChargeRent        ChargeType = "rent"
	ChargeAdminFee    ChargeType = "admin_fee"
	ChargeMaintenance ChargeType = "maintenance_cost"
	ChargeDeposit     ChargeType = "deposit"
)

// TxStatus is the settlement state of a transaction.
//
// paid and partial are set externally (the store's mark-paid path) and the
// generator treats them as authoritative: a paid transaction is frozen, a
// partial one keeps its status through reconciliation.
type TxStatus string

const (
	StatusPaid    TxStatus = "paid"
	StatusUnpaid  TxStatus = "unpaid"
	StatusOverdue TxStatus = "overdue"
	StatusPartial TxStatus = "partial"
)

// PaymentType records whether rent is collected at the start or end of the
// billed month. Informational for the ledger; the due day governs timing.
type PaymentType string

const (
	Prepaid  PaymentType = "prepaid"
	Postpaid PaymentType = "postpaid"
)

// ManagementItem is a service category bundled into the admin fee.
type ManagementItem string

const (
	ItemElectricity ManagementItem = "electricity"
	ItemWater       ManagementItem = "water"
	ItemGas         ManagementItem = "gas"
	ItemInternet    ManagementItem = "internet"
	ItemTV          ManagementItem = "tv"
	ItemCleaning    ManagementItem = "cleaning"
	ItemElevator    ManagementItem = "elevator"
	ItemSecurity    ManagementItem = "security"
	ItemParking     ManagementItem = "parking"
)

// ServiceType is the service a maintenance contract covers.
type ServiceType string

const (
	ServiceCleaning   ServiceType = "cleaning"
	ServiceSecurity   ServiceType = "security"
	ServiceElevator   ServiceType = "elevator"
	ServiceFireSafety ServiceType = "fire_safety"
	ServiceInternet   ServiceType = "internet"
)

// =============================================================================
// TRANSACTION - One billable line item
// =============================================================================

type TransactionID string

// Transaction is one charge for one contract in one month.
//
// INVARIANTS:
//   - ID is deterministic: regenerating the ledger reuses the same identity.
//   - (ContractID, TargetMonth, ChargeType) is unique in the ledger.
//   - Once Status is paid, Amount and DueDate are frozen.
type Transaction struct {
	ID               TransactionID
	ContractID       string
	ContractKind     ContractKind
	TargetMonth      MonthKey
	ChargeType       ChargeType
	Amount           Money
	DueDate          Date
	Status           TxStatus
	PaidDate         *Date
	TaxInvoiceIssued bool
}

// TransactionKey builds the deterministic identity for a generated
// transaction. Identity must not depend on wall-clock call timing: two
// generation runs for the same contract month produce the same key.
func TransactionKey(contractID string, month MonthKey, charge ChargeType) TransactionID {
	return TransactionID(fmt.Sprintf("txn_%s_%s_%s", contractID, month, charge))
}

// Settled reports whether an external payment has been recorded against the
// transaction. Settled rows keep their status through reconciliation.
func (t Transaction) Settled() bool {
	return t.Status == StatusPaid || t.Status == StatusPartial
}
