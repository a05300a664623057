/*
summary.go - Financial roll-ups over the ledger

PURPOSE:
  Aggregates the ledger into the figures the finance views show: income vs
  expense, how much of the billed income has actually been collected, and
  how much is overdue. Pure functions over a transaction slice; the caller
  picks the slice (usually via FilterByMonth).

SIGN CONVENTION:
  Income rows carry positive amounts, expense rows negative. TotalExpense is
  reported as a positive magnitude.
*/
package billing

// ViewMode selects how a month filter interprets its month.
type ViewMode string

const (
	// ViewMonthly keeps only the exact target month.
	ViewMonthly ViewMode = "monthly"
	// ViewCumulative keeps the target month and everything before it.
	ViewCumulative ViewMode = "cumulative"
)

// FilterByMonth returns the transactions visible under a month filter. An
// empty month returns everything. MonthKey's "YYYY-MM" format makes the
// cumulative comparison a plain string compare.
func FilterByMonth(txs []Transaction, month MonthKey, mode ViewMode) []Transaction {
	if month == "" {
		return txs
	}
	var out []Transaction
	for _, tx := range txs {
		switch mode {
		case ViewCumulative:
			if tx.TargetMonth <= month {
				out = append(out, tx)
			}
		default:
			if tx.TargetMonth == month {
				out = append(out, tx)
			}
		}
	}
	return out
}

// Summary is the financial roll-up of a set of transactions.
type Summary struct {
	TotalIncome     Money
	TotalExpense    Money // positive magnitude
	CollectedIncome Money
	PendingIncome   Money
	OverdueAmount   Money
	CollectionRate  float64 // percent of billed income collected
	OverdueCount    int
}

// Summarize rolls up the given transactions.
func Summarize(txs []Transaction) Summary {
	var s Summary
	s.TotalIncome = NewMoney(0)
	s.TotalExpense = NewMoney(0)
	s.CollectedIncome = NewMoney(0)
	s.PendingIncome = NewMoney(0)
	s.OverdueAmount = NewMoney(0)

	for _, tx := range txs {
		if tx.Amount.IsPositive() {
			s.TotalIncome = s.TotalIncome.Add(tx.Amount)
			if tx.Status == StatusPaid {
				s.CollectedIncome = s.CollectedIncome.Add(tx.Amount)
			} else {
				s.PendingIncome = s.PendingIncome.Add(tx.Amount)
			}
		} else if tx.Amount.IsNegative() {
			s.TotalExpense = s.TotalExpense.Add(tx.Amount.Abs())
		}

		if tx.Status == StatusOverdue {
			s.OverdueCount++
			s.OverdueAmount = s.OverdueAmount.Add(tx.Amount)
		}
	}

	if s.TotalIncome.IsPositive() {
		rate, _ := s.CollectedIncome.Value.Div(s.TotalIncome.Value).Mul(hundred).Float64()
		s.CollectionRate = rate
	}
	return s
}

var hundred = NewMoney(100).Value
