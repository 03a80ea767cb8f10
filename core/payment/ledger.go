package payment

import (
	"time"

	"github.com/trezcool/classbook/core"
)

var ErrInvalidAmount = core.NewInvalidAmountError("amount paid must be between 0 and the total amount")

// DeriveStatus applies the status precedence: a settled balance is Paid,
// any payment on an open balance is Partial, otherwise Unpaid.
func DeriveStatus(balance, amountPaid core.Money) Status {
	switch {
	case balance <= 0:
		return StatusPaid
	case amountPaid > 0:
		return StatusPartial
	}
	return StatusUnpaid
}

// ApplyPayment sets the cumulative amount paid on rec and rederives its balance and status.
// An amount outside [0, rec.TotalAmount] fails with ErrInvalidAmount and leaves rec unchanged.
// Applying the same amount twice yields the same state, apart from LastUpdated.
func ApplyPayment(rec *Record, amountPaid core.Money, now time.Time) error {
	if amountPaid < 0 || amountPaid > rec.TotalAmount {
		return ErrInvalidAmount
	}
	rec.AmountPaid = amountPaid
	rec.Balance = rec.TotalAmount - amountPaid
	rec.Status = DeriveStatus(rec.Balance, rec.AmountPaid)
	rec.LastUpdated = now.UTC()
	return nil
}

// Summary is the aggregate of a set of payment records.
type Summary struct {
	TotalAmount  core.Money
	TotalPaid    core.Money
	TotalBalance core.Money
	ByStatus     map[Status]int
	Records      []Record
}

// Aggregate sums the stored amounts of records independently and counts them by status.
// Nothing is recomputed from the statuses.
func Aggregate(records []Record) Summary {
	sum := Summary{
		ByStatus: map[Status]int{StatusPaid: 0, StatusPartial: 0, StatusUnpaid: 0},
		Records:  records,
	}
	if sum.Records == nil {
		sum.Records = []Record{}
	}
	for _, rec := range records {
		sum.TotalAmount += rec.TotalAmount
		sum.TotalPaid += rec.AmountPaid
		sum.TotalBalance += rec.Balance
		sum.ByStatus[rec.Status]++
	}
	return sum
}

type StatusCounts struct {
	Paid    int `json:"paid"`
	Partial int `json:"partial"`
	Unpaid  int `json:"unpaid"`
}

// BalanceView is the presentation of a Summary: amounts formatted with two decimals.
type BalanceView struct {
	TotalAmount      string       `json:"total_amount"`
	TotalPaid        string       `json:"total_paid"`
	TotalBalance     string       `json:"total_balance"`
	PaymentsByStatus StatusCounts `json:"payments_by_status"`
	Details          []Record     `json:"details"`
}

func (s Summary) View() BalanceView {
	return BalanceView{
		TotalAmount:  s.TotalAmount.String(),
		TotalPaid:    s.TotalPaid.String(),
		TotalBalance: s.TotalBalance.String(),
		PaymentsByStatus: StatusCounts{
			Paid:    s.ByStatus[StatusPaid],
			Partial: s.ByStatus[StatusPartial],
			Unpaid:  s.ByStatus[StatusUnpaid],
		},
		Details: s.Records,
	}
}
