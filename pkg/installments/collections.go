package installments

import (
	"sort"
	"time"

	"github.com/mcclellann/fredCollect/pkg/models"
	"github.com/shopspring/decimal"
)

const unassignedExecutive = "Unassigned"

// PastDueLoan groups a loan with its missed installments for the collections queue.
type PastDueLoan struct {
	Loan                 *models.Loan    `json:"loan"`
	Missed               []Installment   `json:"missed_installments"`
	TotalMissedPrincipal decimal.Decimal `json:"total_missed_principal"`
	TotalMissedAmount    decimal.Decimal `json:"total_missed_amount"` // Principal plus fee share
	TotalMissedCount     int             `json:"total_missed_count"`
	MaxDaysPast          int             `json:"max_days_past"`
	AccountExecutive     string          `json:"account_executive"`
}

// DueThisWeekLoan groups a loan with its installments due this week.
type DueThisWeekLoan struct {
	Loan             *models.Loan    `json:"loan"`
	Installments     []Installment   `json:"installments"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	AccountExecutive string          `json:"account_executive"`
}

func accountExecutive(clients []*models.Client, clientName string) string {
	for _, c := range clients {
		if c.Name == clientName && c.AccountExecutive != "" {
			return c.AccountExecutive
		}
	}
	return unassignedExecutive
}

// PastDueLoans returns active loans with missed installments, most days past due first.
func PastDueLoans(loans []*models.Loan, clients []*models.Client, today time.Time) []PastDueLoan {
	var out []PastDueLoan
	for _, loan := range loans {
		if loan.InstallmentsLeft <= 0 {
			continue
		}
		c := Classify(loan, today)
		if len(c.Missed) == 0 {
			continue
		}
		group := PastDueLoan{
			Loan:                 loan,
			Missed:               c.Missed,
			TotalMissedPrincipal: decimal.Zero,
			TotalMissedAmount:    decimal.Zero,
			TotalMissedCount:     len(c.Missed),
			AccountExecutive:     accountExecutive(clients, loan.ClientName),
		}
		for _, m := range c.Missed {
			group.TotalMissedPrincipal = group.TotalMissedPrincipal.Add(m.Amount)
			group.TotalMissedAmount = group.TotalMissedAmount.Add(m.AmountWithFees())
			if m.DaysSinceDue > group.MaxDaysPast {
				group.MaxDaysPast = m.DaysSinceDue
			}
		}
		out = append(out, group)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].MaxDaysPast > out[j].MaxDaysPast
	})
	return out
}

// DueThisWeekLoans returns active loans with installments due this week, earliest due date first.
func DueThisWeekLoans(loans []*models.Loan, clients []*models.Client, today time.Time) []DueThisWeekLoan {
	var out []DueThisWeekLoan
	for _, loan := range loans {
		if loan.InstallmentsLeft <= 0 {
			continue
		}
		c := Classify(loan, today)
		if len(c.DueThisWeek) == 0 {
			continue
		}
		group := DueThisWeekLoan{
			Loan:             loan,
			Installments:     c.DueThisWeek,
			TotalAmount:      decimal.Zero,
			AccountExecutive: accountExecutive(clients, loan.ClientName),
		}
		for _, inst := range c.DueThisWeek {
			group.TotalAmount = group.TotalAmount.Add(inst.AmountWithFees())
		}
		out = append(out, group)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Installments[0].DueDate.Before(out[j].Installments[0].DueDate)
	})
	return out
}
