// Package reports computes read-only rollups over loans and payments. Every function is
// pure: it sees only its arguments and keeps no state between calls.
package reports

import (
	"time"

	"github.com/mcclellann/fredCollect/pkg/installments"
	"github.com/mcclellann/fredCollect/pkg/models"
	"github.com/mcclellann/fredCollect/pkg/schedule"
	"github.com/shopspring/decimal"
)

// DateRange bounds payments by the day they were paid. A zero bound is open.
type DateRange struct {
	From time.Time `json:"from,omitempty"`
	To   time.Time `json:"to,omitempty"`
}

// Contains reports whether t falls inside the range, both ends inclusive.
func (r DateRange) Contains(t time.Time) bool {
	day := schedule.StartOfDay(t)
	if !r.From.IsZero() && day.Before(schedule.StartOfDay(r.From)) {
		return false
	}
	if !r.To.IsZero() && day.After(schedule.StartOfDay(r.To)) {
		return false
	}
	return true
}

// LoanFees tracks how much of a loan's fees has been collected.
type LoanFees struct {
	FactoringFeesEarned decimal.Decimal `json:"factoring_fees_earned"`
	ProviderFeesPaid    decimal.Decimal `json:"provider_fees_paid"`
	Total               decimal.Decimal `json:"total"`
	Remaining           decimal.Decimal `json:"remaining"` // Never negative
}

// FeesEarned sums the fee components of the loan's payments.
func FeesEarned(loan *models.Loan, payments []*models.Payment) LoanFees {
	f := LoanFees{FactoringFeesEarned: decimal.Zero, ProviderFeesPaid: decimal.Zero}
	for _, p := range payments {
		if !p.IsLoanPayment(loan.ID) {
			continue
		}
		f.FactoringFeesEarned = f.FactoringFeesEarned.Add(p.FactoringFee)
		f.ProviderFeesPaid = f.ProviderFeesPaid.Add(p.SisterCompanyFee)
	}
	f.Total = f.FactoringFeesEarned.Add(f.ProviderFeesPaid)
	f.Remaining = decimal.Max(decimal.Zero, loan.TotalFees().Sub(f.Total))
	return f
}

// OutstandingWithFees is the open principal plus the fees not yet collected.
func OutstandingWithFees(loan *models.Loan, payments []*models.Payment) decimal.Decimal {
	return loan.OpenBalance.Add(FeesEarned(loan, payments).Remaining)
}

// CollectedAmount sums the posted amounts of loan payments paid within r.
func CollectedAmount(payments []*models.Payment, r DateRange) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		if p.PaymentType == models.PaymentTypeLoan && r.Contains(p.DatePaid) {
			total = total.Add(p.PaymentAmount)
		}
	}
	return total
}

// DashboardMetrics is the headline view of the book.
type DashboardMetrics struct {
	TotalOutstanding    decimal.Decimal `json:"total_outstanding"`
	TotalPastDue        decimal.Decimal `json:"total_past_due"`
	CollectedAmount     decimal.Decimal `json:"collected_amount"`
	ActiveLoanCount     int             `json:"active_loan_count"`
	DueThisWeekAmount   decimal.Decimal `json:"due_this_week_amount"`
	FactoringFeesEarned decimal.Decimal `json:"factoring_fees_earned"` // Within the range
	ProviderFeesPaid    decimal.Decimal `json:"provider_fees_paid"`    // Within the range
	UniqueClients       int             `json:"unique_clients"`
	Current             decimal.Decimal `json:"current"` // Fee-inclusive outstanding that is neither past due nor due this week
}

// AggregateDashboardMetrics rolls loans and payments up into the dashboard figures.
// Balances are as of now; only collections and fee earnings are limited to r.
func AggregateDashboardMetrics(loans []*models.Loan, payments []*models.Payment, r DateRange, today time.Time) DashboardMetrics {
	m := DashboardMetrics{
		TotalOutstanding:    decimal.Zero,
		TotalPastDue:        decimal.Zero,
		CollectedAmount:     CollectedAmount(payments, r),
		DueThisWeekAmount:   decimal.Zero,
		FactoringFeesEarned: decimal.Zero,
		ProviderFeesPaid:    decimal.Zero,
	}
	clients := make(map[string]struct{})
	dueWithFees := decimal.Zero

	for _, loan := range loans {
		clients[loan.ClientName] = struct{}{}
		outstanding := OutstandingWithFees(loan, payments)
		m.TotalOutstanding = m.TotalOutstanding.Add(outstanding)

		if loan.InstallmentsLeft <= 0 {
			continue
		}
		m.ActiveLoanCount++
		c := installments.Classify(loan, today)
		if len(c.Missed) > 0 {
			m.TotalPastDue = m.TotalPastDue.Add(outstanding)
		}
		for _, inst := range c.DueThisWeek {
			m.DueThisWeekAmount = m.DueThisWeekAmount.Add(inst.Amount)
			dueWithFees = dueWithFees.Add(inst.AmountWithFees())
		}
	}

	for _, p := range payments {
		if p.PaymentType != models.PaymentTypeLoan || !r.Contains(p.DatePaid) {
			continue
		}
		m.FactoringFeesEarned = m.FactoringFeesEarned.Add(p.FactoringFee)
		m.ProviderFeesPaid = m.ProviderFeesPaid.Add(p.SisterCompanyFee)
	}

	m.UniqueClients = len(clients)
	// Outstanding and past due include fees, so the weekly slice does too.
	m.Current = decimal.Max(decimal.Zero, m.TotalOutstanding.Sub(m.TotalPastDue).Sub(dueWithFees))
	return m
}
