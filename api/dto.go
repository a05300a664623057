/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for the API surface. These decouple the billing engine's
  internal types (decimal amounts, civil dates) from the wire contract
  (float amounts, "YYYY-MM-DD" strings).

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

DATE HANDLING:
  Financial-term dates parse leniently: a malformed date becomes the zero
  date, which simply covers no billing months. Contract-level dates are
  validated strictly because nothing can be billed without them.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/pakjc16/realty-flow/billing"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// FinancialTermDTO is one dated financial term of a lease.
type FinancialTermDTO struct {
	ID              string   `json:"id,omitempty"`
	StartDate       string   `json:"start_date"`
	EndDate         string   `json:"end_date"`
	Deposit         float64  `json:"deposit"`
	MonthlyRent     float64  `json:"monthly_rent"`
	AdminFee        float64  `json:"admin_fee"`
	PaymentDay      int      `json:"payment_day"`
	PaymentType     string   `json:"payment_type"`
	ManagementItems []string `json:"management_items,omitempty"`
	LateFeeRate     *float64 `json:"late_fee_rate,omitempty"`
	BankAccount     string   `json:"bank_account,omitempty"`
	Note            string   `json:"note,omitempty"`
}

// LeaseContractDTO represents a lease in API responses.
type LeaseContractDTO struct {
	ID             string             `json:"id"`
	Kind           string             `json:"kind"`
	TargetType     string             `json:"target_type"`
	TargetID       string             `json:"target_id"`
	TenantID       string             `json:"tenant_id"`
	Status         string             `json:"status"`
	SignedDate     string             `json:"signed_date,omitempty"`
	StartDate      string             `json:"start_date"`
	EndDate        string             `json:"end_date,omitempty"`
	Renewal        string             `json:"renewal,omitempty"`
	FinancialTerms []FinancialTermDTO `json:"financial_terms"`
	Conditions     []string           `json:"conditions,omitempty"`
	Note           string             `json:"note,omitempty"`
}

// SaveLeaseRequest creates or replaces a lease. An empty ID mints one.
type SaveLeaseRequest = LeaseContractDTO

// MaintenanceContractDTO represents a maintenance contract.
type MaintenanceContractDTO struct {
	ID          string  `json:"id"`
	TargetType  string  `json:"target_type"`
	TargetID    string  `json:"target_id"`
	VendorID    string  `json:"vendor_id"`
	ServiceType string  `json:"service_type"`
	Status      string  `json:"status"`
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date,omitempty"`
	MonthlyCost float64 `json:"monthly_cost"`
	Details     string  `json:"details,omitempty"`
}

// SaveMaintenanceRequest creates or replaces a maintenance contract.
type SaveMaintenanceRequest = MaintenanceContractDTO

// TransactionDTO represents one ledger line item.
type TransactionDTO struct {
	ID               string  `json:"id"`
	ContractID       string  `json:"contract_id"`
	ContractKind     string  `json:"contract_kind"`
	TargetMonth      string  `json:"target_month"`
	ChargeType       string  `json:"charge_type"`
	Amount           float64 `json:"amount"`
	DueDate          string  `json:"due_date"`
	Status           string  `json:"status"`
	PaidDate         string  `json:"paid_date,omitempty"`
	TaxInvoiceIssued bool    `json:"tax_invoice_issued"`
}

// CreateTransactionRequest adds a manual line item (e.g. a deposit).
type CreateTransactionRequest struct {
	ContractID   string  `json:"contract_id"`
	ContractKind string  `json:"contract_kind"`
	TargetMonth  string  `json:"target_month"`
	ChargeType   string  `json:"charge_type"`
	Amount       float64 `json:"amount"`
	DueDate      string  `json:"due_date"`
}

// UpdateTransactionRequest edits an unsettled line item in place.
type UpdateTransactionRequest struct {
	Amount           *float64 `json:"amount,omitempty"`
	DueDate          *string  `json:"due_date,omitempty"`
	Status           *string  `json:"status,omitempty"`
	TaxInvoiceIssued *bool    `json:"tax_invoice_issued,omitempty"`
}

// PayTransactionRequest marks a transaction paid.
type PayTransactionRequest struct {
	PaidDate string `json:"paid_date,omitempty"` // defaults to today
}

// GenerateResultDTO reports what a generation run changed.
type GenerateResultDTO struct {
	Created int  `json:"created"`
	Updated int  `json:"updated"`
	Changed bool `json:"changed"`
}

// SummaryDTO is the financial roll-up for a month filter.
type SummaryDTO struct {
	TotalIncome     float64 `json:"total_income"`
	TotalExpense    float64 `json:"total_expense"`
	CollectedIncome float64 `json:"collected_income"`
	PendingIncome   float64 `json:"pending_income"`
	OverdueAmount   float64 `json:"overdue_amount"`
	CollectionRate  float64 `json:"collection_rate"`
	OverdueCount    int     `json:"overdue_count"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func money(v float64) billing.Money {
	return billing.MoneyFromDecimal(decimal.NewFromFloat(v))
}

func moneyOut(m billing.Money) float64 {
	f, _ := m.Value.Float64()
	return f
}

// lenientDate parses a date, degrading malformed input to the zero date.
func lenientDate(s string) billing.Date {
	if s == "" {
		return billing.Date{}
	}
	d, _ := billing.ParseDate(s)
	return d
}

func dateOut(d billing.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}

func toLease(dto LeaseContractDTO) billing.LeaseContract {
	terms := make([]billing.FinancialTerm, len(dto.FinancialTerms))
	for i, t := range dto.FinancialTerms {
		items := make([]billing.ManagementItem, len(t.ManagementItems))
		for j, it := range t.ManagementItems {
			items[j] = billing.ManagementItem(it)
		}
		terms[i] = billing.FinancialTerm{
			ID:              t.ID,
			StartDate:       lenientDate(t.StartDate),
			EndDate:         lenientDate(t.EndDate),
			Deposit:         money(t.Deposit),
			MonthlyRent:     money(t.MonthlyRent),
			AdminFee:        money(t.AdminFee),
			PaymentDay:      t.PaymentDay,
			PaymentType:     billing.PaymentType(t.PaymentType),
			ManagementItems: items,
			LateFeeRate:     t.LateFeeRate,
			BankAccount:     t.BankAccount,
			Note:            t.Note,
		}
	}
	return billing.LeaseContract{
		ID:         dto.ID,
		Kind:       billing.LeaseKind(dto.Kind),
		TargetType: billing.TargetType(dto.TargetType),
		TargetID:   dto.TargetID,
		TenantID:   dto.TenantID,
		Status:     billing.ContractStatus(dto.Status),
		Term: billing.LeaseTerm{
			SignedDate: lenientDate(dto.SignedDate),
			StartDate:  lenientDate(dto.StartDate),
			EndDate:    lenientDate(dto.EndDate),
			Renewal:    billing.RenewalKind(dto.Renewal),
		},
		FinancialTerms: terms,
		Conditions:     dto.Conditions,
		Note:           dto.Note,
	}
}

func toLeaseDTO(c billing.LeaseContract) LeaseContractDTO {
	terms := make([]FinancialTermDTO, len(c.FinancialTerms))
	for i, t := range c.FinancialTerms {
		items := make([]string, len(t.ManagementItems))
		for j, it := range t.ManagementItems {
			items[j] = string(it)
		}
		terms[i] = FinancialTermDTO{
			ID:              t.ID,
			StartDate:       dateOut(t.StartDate),
			EndDate:         dateOut(t.EndDate),
			Deposit:         moneyOut(t.Deposit),
			MonthlyRent:     moneyOut(t.MonthlyRent),
			AdminFee:        moneyOut(t.AdminFee),
			PaymentDay:      t.PaymentDay,
			PaymentType:     string(t.PaymentType),
			ManagementItems: items,
			LateFeeRate:     t.LateFeeRate,
			BankAccount:     t.BankAccount,
			Note:            t.Note,
		}
	}
	return LeaseContractDTO{
		ID:             c.ID,
		Kind:           string(c.Kind),
		TargetType:     string(c.TargetType),
		TargetID:       c.TargetID,
		TenantID:       c.TenantID,
		Status:         string(c.Status),
		SignedDate:     dateOut(c.Term.SignedDate),
		StartDate:      dateOut(c.Term.StartDate),
		EndDate:        dateOut(c.Term.EndDate),
		Renewal:        string(c.Term.Renewal),
		FinancialTerms: terms,
		Conditions:     c.Conditions,
		Note:           c.Note,
	}
}

func toMaintenance(dto MaintenanceContractDTO) billing.MaintenanceContract {
	return billing.MaintenanceContract{
		ID:          dto.ID,
		TargetType:  billing.TargetType(dto.TargetType),
		TargetID:    dto.TargetID,
		VendorID:    dto.VendorID,
		ServiceType: billing.ServiceType(dto.ServiceType),
		Status:      billing.ContractStatus(dto.Status),
		StartDate:   lenientDate(dto.StartDate),
		EndDate:     lenientDate(dto.EndDate),
		MonthlyCost: money(dto.MonthlyCost),
		Details:     dto.Details,
	}
}

func toMaintenanceDTO(c billing.MaintenanceContract) MaintenanceContractDTO {
	return MaintenanceContractDTO{
		ID:          c.ID,
		TargetType:  string(c.TargetType),
		TargetID:    c.TargetID,
		VendorID:    c.VendorID,
		ServiceType: string(c.ServiceType),
		Status:      string(c.Status),
		StartDate:   dateOut(c.StartDate),
		EndDate:     dateOut(c.EndDate),
		MonthlyCost: moneyOut(c.MonthlyCost),
		Details:     c.Details,
	}
}

func toTransactionDTO(tx billing.Transaction) TransactionDTO {
	dto := TransactionDTO{
		ID:               string(tx.ID),
		ContractID:       tx.ContractID,
		ContractKind:     string(tx.ContractKind),
		TargetMonth:      string(tx.TargetMonth),
		ChargeType:       string(tx.ChargeType),
		Amount:           moneyOut(tx.Amount),
		DueDate:          dateOut(tx.DueDate),
		Status:           string(tx.Status),
		TaxInvoiceIssued: tx.TaxInvoiceIssued,
	}
	if tx.PaidDate != nil {
		dto.PaidDate = dateOut(*tx.PaidDate)
	}
	return dto
}

func toTransactionDTOs(txs []billing.Transaction) []TransactionDTO {
	dtos := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = toTransactionDTO(tx)
	}
	return dtos
}

func toSummaryDTO(s billing.Summary) SummaryDTO {
	return SummaryDTO{
		TotalIncome:     moneyOut(s.TotalIncome),
		TotalExpense:    moneyOut(s.TotalExpense),
		CollectedIncome: moneyOut(s.CollectedIncome),
		PendingIncome:   moneyOut(s.PendingIncome),
		OverdueAmount:   moneyOut(s.OverdueAmount),
		CollectionRate:  s.CollectionRate,
		OverdueCount:    s.OverdueCount,
	}
}
