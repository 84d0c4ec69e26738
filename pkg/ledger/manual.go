package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/mcclellann/fredCollect/pkg/models"
	"github.com/mcclellann/fredCollect/pkg/schedule"
)

// ManualClosure closes an installment administratively, without a payment.
type ManualClosure struct {
	InstallmentNumber int       `json:"installment_number"`
	ClosedDate        time.Time `json:"closed_date"`
	Note              string    `json:"note"`
	// Confirmed must be set by the caller once staff acknowledged that no payment is recorded.
	Confirmed bool `json:"confirmed"`
}

// ManualCloseInstallment appends a manual closure record for one installment. Balances and
// the installments-left counter are left alone; only the closure ledger changes.
func ManualCloseInstallment(loan *models.Loan, mc ManualClosure, today time.Time) (*models.Loan, error) {
	n := mc.InstallmentNumber
	if n < 1 || n > loan.TotalInstallments {
		return nil, fmt.Errorf("%w: installment #%d, loan has %d", ErrInstallmentOutOfRange, n, loan.TotalInstallments)
	}
	closed := mc.ClosedDate
	if closed.IsZero() {
		closed = today
	}
	note := strings.TrimSpace(mc.Note)
	if note == "" {
		note = "Manually closed"
	}

	updated := loan.Clone()
	updated.ClosedInstallments = append(updated.ClosedInstallments, models.ClosedInstallment{
		InstallmentNumber: n,
		DueDate:           schedule.DueDate(loan.FirstInstallmentDate, n),
		ClosedDate:        schedule.StartOfDay(closed),
		Amount:            loan.PrincipalPerInstallment(),
		Note:              note,
		ClosureType:       models.ClosureTypeManual,
	})
	return updated, nil
}
