package installments

import (
	"github.com/mcclellann/fredCollect/pkg/models"
	"github.com/shopspring/decimal"
)

// The closure ledger is the loan's ClosedInstallments slice. It is append-only: a top-off
// of a partial installment adds a new record instead of editing the old one.

// Closures returns every closure record for installment n, oldest first.
func Closures(loan *models.Loan, n int) []models.ClosedInstallment {
	var out []models.ClosedInstallment
	for _, c := range loan.ClosedInstallments {
		if c.InstallmentNumber == n {
			out = append(out, c)
		}
	}
	return out
}

// IsClosed reports whether any closure record exists for installment n, partial or not.
func IsClosed(loan *models.Loan, n int) bool {
	for _, c := range loan.ClosedInstallments {
		if c.InstallmentNumber == n {
			return true
		}
	}
	return false
}

// Latest returns the most recent closure record for installment n.
func Latest(loan *models.Loan, n int) (models.ClosedInstallment, bool) {
	for i := len(loan.ClosedInstallments) - 1; i >= 0; i-- {
		if loan.ClosedInstallments[i].InstallmentNumber == n {
			return loan.ClosedInstallments[i], true
		}
	}
	return models.ClosedInstallment{}, false
}

// PrincipalOwed is the principal still expected on installment n: the remaining amount of
// its latest record when that record is a partial, the full per-installment principal otherwise.
func PrincipalOwed(loan *models.Loan, n int) decimal.Decimal {
	if latest, ok := Latest(loan, n); ok && !latest.Settled() {
		return latest.RemainingAmount
	}
	return loan.PrincipalPerInstallment()
}

// SettledCount counts the records that represent fully paid installments.
func SettledCount(records []models.ClosedInstallment) int {
	n := 0
	for _, c := range records {
		if c.Settled() {
			n++
		}
	}
	return n
}

// InstallmentsLeft derives the installments-left counter from a closure ledger.
func InstallmentsLeft(totalInstallments int, records []models.ClosedInstallment) int {
	left := totalInstallments - SettledCount(records)
	if left < 0 {
		return 0
	}
	return left
}
