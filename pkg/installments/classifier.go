// Package installments classifies a loan's schedule against its closure ledger.
//
// Every schedule position lands in exactly one of three views:
//
//	closed   - at least one closure record exists (partial or full)
//	missed   - open, and past due under the grace rule of schedule.IsPastDue
//	upcoming - open and not missed (recently due, due today, this week or later)
//
// The upcoming view is further split by Status for the due-this-week table.
package installments

import (
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/fredCollect/pkg/models"
	"github.com/mcclellann/fredCollect/pkg/schedule"
	"github.com/shopspring/decimal"
)

// Kind discriminates the three classification views.
type Kind string

const (
	KindUpcoming Kind = "upcoming"
	KindMissed   Kind = "missed"
	KindClosed   Kind = "closed"
)

type Status string

const (
	StatusDueToday    Status = "due-today"
	StatusDueThisWeek Status = "due-this-week"
	StatusDueFuture   Status = "due-future"
	StatusOverdue     Status = "overdue"
	StatusClosed      Status = "closed"
)

// FeeBreakdown is the per-installment share of the loan's fees.
type FeeBreakdown struct {
	FactoringFee decimal.Decimal `json:"factoring_fee"`
	ProviderFee  decimal.Decimal `json:"provider_fee"`
	Total        decimal.Decimal `json:"total"`
}

// Installment is one classified schedule position.
type Installment struct {
	Kind              Kind                       `json:"kind"`
	Status            Status                     `json:"status"`
	InstallmentNumber int                        `json:"installment_number"`
	DueDate           time.Time                  `json:"due_date"`
	DaysSinceDue      int                        `json:"days_since_due"`
	Amount            decimal.Decimal            `json:"amount"` // Principal only
	Fees              FeeBreakdown               `json:"fees"`
	RemainingAmount   decimal.Decimal            `json:"remaining_amount"`
	IsPartial         bool                       `json:"is_partial"`
	IsNext            bool                       `json:"is_next"`
	Closures          []models.ClosedInstallment `json:"closures,omitempty"`
}

// AmountWithFees is the installment's principal plus its fee share.
func (i Installment) AmountWithFees() decimal.Decimal {
	return i.Amount.Add(i.Fees.Total)
}

// Classification holds the views of a single loan.
type Classification struct {
	LoanID      uuid.UUID     `json:"loan_id"`
	Missed      []Installment `json:"missed"`
	DueThisWeek []Installment `json:"due_this_week"`
	Upcoming    []Installment `json:"upcoming"`
	Closed      []Installment `json:"closed"`
	Next        *Installment  `json:"next,omitempty"`
}

// Fees returns the loan's fee share for one installment.
func Fees(loan *models.Loan) FeeBreakdown {
	if loan.TotalInstallments <= 0 {
		return FeeBreakdown{}
	}
	n := decimal.NewFromInt(int64(loan.TotalInstallments))
	factoring := loan.FactoringFee.Div(n)
	provider := loan.ProviderFee.Div(n)
	return FeeBreakdown{
		FactoringFee: factoring,
		ProviderFee:  provider,
		Total:        factoring.Add(provider),
	}
}

// Classify places every schedule position of loan into its view as of today.
func Classify(loan *models.Loan, today time.Time) Classification {
	result := Classification{LoanID: loan.ID}
	principal := loan.PrincipalPerInstallment()
	fees := Fees(loan)
	nextFound := false

	for _, entry := range schedule.Calculate(loan.FirstInstallmentDate, loan.TotalInstallments, today) {
		inst := Installment{
			InstallmentNumber: entry.InstallmentNumber,
			DueDate:           entry.DueDate,
			DaysSinceDue:      entry.DaysSinceDue,
			Amount:            principal,
			Fees:              fees,
			RemainingAmount:   principal,
		}

		if closures := Closures(loan, entry.InstallmentNumber); len(closures) > 0 {
			latest := closures[len(closures)-1]
			inst.Kind = KindClosed
			inst.Status = StatusClosed
			inst.Closures = closures
			inst.IsPartial = !latest.Settled()
			inst.RemainingAmount = decimal.Zero
			if inst.IsPartial {
				inst.RemainingAmount = latest.RemainingAmount
			}
			result.Closed = append(result.Closed, inst)
			continue
		}

		if schedule.IsPastDue(entry.DueDate, today) {
			inst.Kind = KindMissed
			inst.Status = StatusOverdue
			result.Missed = append(result.Missed, inst)
			continue
		}

		inst.Kind = KindUpcoming
		days := entry.DaysSinceDue
		switch {
		case days == 0:
			inst.Status = StatusDueToday
		case days > 0 || -days <= schedule.GraceDays:
			inst.Status = StatusDueThisWeek
		default:
			inst.Status = StatusDueFuture
		}
		if !nextFound && days <= 0 {
			inst.IsNext = true
			nextFound = true
			next := inst
			result.Next = &next
		}

		if inst.Status != StatusDueFuture {
			result.DueThisWeek = append(result.DueThisWeek, inst)
		}
		if days <= 0 {
			result.Upcoming = append(result.Upcoming, inst)
		}
	}
	return result
}

// NextDue returns the due date of the lowest-numbered installment without a closure record.
func NextDue(loan *models.Loan) (time.Time, bool) {
	for _, entry := range schedule.For(loan.FirstInstallmentDate, loan.TotalInstallments) {
		if !IsClosed(loan, entry.InstallmentNumber) {
			return entry.DueDate, true
		}
	}
	return time.Time{}, false
}

const (
	LoanStatusPaidOff = "Paid Off"
	LoanStatusClosed  = "Closed"
	LoanStatusPartial = "Partial Payment"
	LoanStatusActive  = "Active"
)

// LoanStatus labels a loan for the status board.
func LoanStatus(loan *models.Loan) string {
	if !loan.OpenBalance.IsPositive() {
		return LoanStatusPaidOff
	}
	if loan.InstallmentsLeft <= 0 {
		return LoanStatusClosed
	}
	if n := len(loan.ClosedInstallments); n > 0 && !loan.ClosedInstallments[n-1].Settled() {
		return LoanStatusPartial
	}
	return LoanStatusActive
}
