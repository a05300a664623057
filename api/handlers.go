/*
handlers.go - HTTP handlers for the billing service

PURPOSE:
  Exposes contract management, the ledger, and the generation trigger over
  REST. Handlers parse and validate input, delegate to the billing engine
  and store, and serialize responses.

ENDPOINTS:
  Leases:
    GET    /api/leases                 List leases
    POST   /api/leases                 Create lease
    GET    /api/leases/{id}            Get lease
    PUT    /api/leases/{id}            Replace lease

  Maintenance:
    GET    /api/maintenance            List maintenance contracts
    POST   /api/maintenance            Create maintenance contract
    GET    /api/maintenance/{id}       Get maintenance contract
    PUT    /api/maintenance/{id}       Replace maintenance contract

  Ledger:
    POST   /api/ledger/generate        Run the generator and commit the diff
    GET    /api/transactions           List (filter: ?month=YYYY-MM&mode=...)
    POST   /api/transactions           Manual line item (e.g. deposit)
    PUT    /api/transactions/{id}      Manual edit (paid rows immutable)
    DELETE /api/transactions/{id}      Manual removal
    POST   /api/transactions/{id}/pay  Mark paid
    POST   /api/transactions/{id}/unpay Revert to unpaid
    GET    /api/summary                Financial roll-up

GENERATION TRIGGER:
  The ledger is regenerated on explicit request, not by a background
  watcher: the caller decides when contract edits warrant a run. The run is
  idempotent, so over-triggering is harmless.

ERROR HANDLING:
  - 400: Malformed input
  - 404: Missing contract or transaction
  - 409: Writes refused by the paid-immutability rule
  - 500: Store failures

SEE ALSO:
  - dto.go:    Request/response shapes
  - server.go: Router and middleware
*/
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pakjc16/realty-flow/billing"
)

// =============================================================================
// HANDLER
// =============================================================================

// Handler holds the dependencies for all HTTP handlers.
type Handler struct {
	Store billing.Store

	// Now supplies the reference day for generation and due-date checks.
	// Injected so tests control the clock.
	Now func() billing.Date
}

// NewHandler creates a handler backed by the given store.
func NewHandler(store billing.Store) *Handler {
	return &Handler{Store: store, Now: billing.Today}
}

// =============================================================================
// LEASE HANDLERS
// =============================================================================

// ListLeases returns all lease contracts.
func (h *Handler) ListLeases(w http.ResponseWriter, r *http.Request) {
	leases, err := h.Store.ListLeases(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list leases", err)
		return
	}
	dtos := make([]LeaseContractDTO, len(leases))
	for i, c := range leases {
		dtos[i] = toLeaseDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateLease creates a new lease contract.
func (h *Handler) CreateLease(w http.ResponseWriter, r *http.Request) {
	var req SaveLeaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" {
		req.ID = "lease_" + uuid.NewString()
	}
	c := toLease(req)
	if c.Term.StartDate.IsZero() {
		writeError(w, http.StatusBadRequest, "start_date is required (YYYY-MM-DD)", nil)
		return
	}
	if err := h.Store.SaveLease(r.Context(), c); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save lease", err)
		return
	}
	writeJSON(w, http.StatusCreated, toLeaseDTO(c))
}

// GetLease returns a single lease contract.
func (h *Handler) GetLease(w http.ResponseWriter, r *http.Request) {
	c, err := h.Store.GetLease(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, "Failed to get lease", err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaseDTO(*c))
}

// UpdateLease replaces a lease contract.
func (h *Handler) UpdateLease(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.Store.GetLease(r.Context(), id); err != nil {
		writeStoreError(w, "Failed to get lease", err)
		return
	}

	var req SaveLeaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	req.ID = id
	c := toLease(req)
	if err := h.Store.SaveLease(r.Context(), c); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save lease", err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaseDTO(c))
}

// =============================================================================
// MAINTENANCE HANDLERS
// =============================================================================

// ListMaintenance returns all maintenance contracts.
func (h *Handler) ListMaintenance(w http.ResponseWriter, r *http.Request) {
	contracts, err := h.Store.ListMaintenance(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list maintenance contracts", err)
		return
	}
	dtos := make([]MaintenanceContractDTO, len(contracts))
	for i, c := range contracts {
		dtos[i] = toMaintenanceDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateMaintenance creates a new maintenance contract.
func (h *Handler) CreateMaintenance(w http.ResponseWriter, r *http.Request) {
	var req SaveMaintenanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" {
		req.ID = "maint_" + uuid.NewString()
	}
	c := toMaintenance(req)
	if c.StartDate.IsZero() {
		writeError(w, http.StatusBadRequest, "start_date is required (YYYY-MM-DD)", nil)
		return
	}
	if err := h.Store.SaveMaintenance(r.Context(), c); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save maintenance contract", err)
		return
	}
	writeJSON(w, http.StatusCreated, toMaintenanceDTO(c))
}

// GetMaintenance returns a single maintenance contract.
func (h *Handler) GetMaintenance(w http.ResponseWriter, r *http.Request) {
	c, err := h.Store.GetMaintenance(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, "Failed to get maintenance contract", err)
		return
	}
	writeJSON(w, http.StatusOK, toMaintenanceDTO(*c))
}

// UpdateMaintenance replaces a maintenance contract.
func (h *Handler) UpdateMaintenance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.Store.GetMaintenance(r.Context(), id); err != nil {
		writeStoreError(w, "Failed to get maintenance contract", err)
		return
	}

	var req SaveMaintenanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	req.ID = id
	c := toMaintenance(req)
	if err := h.Store.SaveMaintenance(r.Context(), c); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save maintenance contract", err)
		return
	}
	writeJSON(w, http.StatusOK, toMaintenanceDTO(c))
}

// =============================================================================
// LEDGER HANDLERS
// =============================================================================

// GenerateLedger runs the billing generator against the current contract
// and transaction snapshots and commits the diff in one batch.
func (h *Handler) GenerateLedger(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	leases, err := h.Store.ListLeases(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load leases", err)
		return
	}
	maintenance, err := h.Store.ListMaintenance(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load maintenance contracts", err)
		return
	}
	existing, err := h.Store.Transactions(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load transactions", err)
		return
	}

	diff := billing.Generate(leases, maintenance, existing, h.Now())
	if err := h.Store.ApplyDiff(ctx, diff); err != nil {
		writeStoreError(w, "Failed to apply ledger diff", err)
		return
	}

	writeJSON(w, http.StatusOK, GenerateResultDTO{
		Created: len(diff.New),
		Updated: len(diff.Updated),
		Changed: !diff.Empty(),
	})
}

// ListTransactions returns ledger transactions, optionally filtered by
// target month (?month=YYYY-MM&mode=monthly|cumulative).
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.Store.Transactions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list transactions", err)
		return
	}
	txs = billing.FilterByMonth(txs,
		billing.MonthKey(r.URL.Query().Get("month")),
		billing.ViewMode(r.URL.Query().Get("mode")))
	writeJSON(w, http.StatusOK, toTransactionDTOs(txs))
}

// CreateTransaction adds a manual line item, such as a deposit. Generated
// charges come from GenerateLedger; this path exists for items the
// generator deliberately never emits.
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req CreateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	due := lenientDate(req.DueDate)
	if due.IsZero() {
		writeError(w, http.StatusBadRequest, "due_date is required (YYYY-MM-DD)", nil)
		return
	}

	status := billing.StatusUnpaid
	if billing.IsPastDue(due, h.Now()) {
		status = billing.StatusOverdue
	}

	tx := billing.Transaction{
		ID:           billing.TransactionID("txn_manual_" + uuid.NewString()),
		ContractID:   req.ContractID,
		ContractKind: billing.ContractKind(req.ContractKind),
		TargetMonth:  billing.MonthKey(req.TargetMonth),
		ChargeType:   billing.ChargeType(req.ChargeType),
		Amount:       money(req.Amount),
		DueDate:      due,
		Status:       status,
	}
	if tx.TargetMonth == "" {
		tx.TargetMonth = billing.MonthOf(due)
	}

	if err := h.Store.InsertTransaction(r.Context(), tx); err != nil {
		writeStoreError(w, "Failed to create transaction", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(tx))
}

// UpdateTransaction edits an unsettled transaction in place.
func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id := billing.TransactionID(chi.URLParam(r, "id"))

	existing, err := h.Store.GetTransaction(r.Context(), id)
	if err != nil {
		writeStoreError(w, "Failed to get transaction", err)
		return
	}

	var req UpdateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	tx := *existing
	if req.Amount != nil {
		tx.Amount = money(*req.Amount)
	}
	if req.DueDate != nil {
		if d := lenientDate(*req.DueDate); !d.IsZero() {
			tx.DueDate = d
		}
	}
	if req.Status != nil {
		tx.Status = billing.TxStatus(*req.Status)
	}
	if req.TaxInvoiceIssued != nil {
		tx.TaxInvoiceIssued = *req.TaxInvoiceIssued
	}

	if err := h.Store.UpdateTransaction(r.Context(), tx); err != nil {
		writeStoreError(w, "Failed to update transaction", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(tx))
}

// PayTransaction marks a transaction paid. The paid date defaults to today.
func (h *Handler) PayTransaction(w http.ResponseWriter, r *http.Request) {
	id := billing.TransactionID(chi.URLParam(r, "id"))

	var req PayTransactionRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	paidDate := h.Now()
	if req.PaidDate != "" {
		d, err := billing.ParseDate(req.PaidDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid paid_date format (use YYYY-MM-DD)", err)
			return
		}
		paidDate = d
	}

	if err := h.Store.MarkPaid(r.Context(), id, paidDate); err != nil {
		writeStoreError(w, "Failed to mark transaction paid", err)
		return
	}

	tx, err := h.Store.GetTransaction(r.Context(), id)
	if err != nil {
		writeStoreError(w, "Failed to reload transaction", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(*tx))
}

// UnpayTransaction reverts a settlement. The next generation run decides
// between unpaid and overdue.
func (h *Handler) UnpayTransaction(w http.ResponseWriter, r *http.Request) {
	id := billing.TransactionID(chi.URLParam(r, "id"))

	if err := h.Store.MarkUnpaid(r.Context(), id); err != nil {
		writeStoreError(w, "Failed to revert transaction", err)
		return
	}

	tx, err := h.Store.GetTransaction(r.Context(), id)
	if err != nil {
		writeStoreError(w, "Failed to reload transaction", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(*tx))
}

// DeleteTransaction removes a transaction. This is the manual override the
// generator never performs.
func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := billing.TransactionID(chi.URLParam(r, "id"))
	if err := h.Store.DeleteTransaction(r.Context(), id); err != nil {
		writeStoreError(w, "Failed to delete transaction", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSummary returns the financial roll-up under the same month filter as
// ListTransactions.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	txs, err := h.Store.Transactions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list transactions", err)
		return
	}
	txs = billing.FilterByMonth(txs,
		billing.MonthKey(r.URL.Query().Get("month")),
		billing.ViewMode(r.URL.Query().Get("mode")))
	writeJSON(w, http.StatusOK, toSummaryDTO(billing.Summarize(txs)))
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeStoreError maps store errors onto HTTP status codes.
func writeStoreError(w http.ResponseWriter, message string, err error) {
	switch {
	case billing.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case billing.IsClientError(err):
		writeError(w, http.StatusConflict, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
