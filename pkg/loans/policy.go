package loans

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// LoanPeriodDays is how long a book may be kept before the loan is due.
	LoanPeriodDays = 14
	// FinePerDay is charged for every whole day a return is late.
	FinePerDay = 500
)

// Date truncates t to midnight UTC of its calendar day. Loans store dates,
// not instants, so every comparison goes through Date first.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DueDate is the loan date plus the loan period.
func DueDate(loanDate time.Time) time.Time {
	return Date(loanDate).AddDate(0, 0, LoanPeriodDays)
}

// DaysLate is the number of whole days ref falls after due, or 0.
func DaysLate(due, ref time.Time) int {
	due, ref = Date(due), Date(ref)
	if !ref.After(due) {
		return 0
	}
	return int(ref.Sub(due).Hours() / 24)
}

// Fine is FinePerDay for every whole day ref falls after due.
func Fine(due, ref time.Time) decimal.Decimal {
	days := DaysLate(due, ref)
	if days == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(FinePerDay).Mul(decimal.NewFromInt(int64(days)))
}
