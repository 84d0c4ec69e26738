package reports

import (
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/fredCollect/pkg/models"
	"github.com/shopspring/decimal"
)

// Filters narrows the company summary. Empty names match everything.
type Filters struct {
	DateFrom      time.Time `json:"date_from,omitempty"`
	DateTo        time.Time `json:"date_to,omitempty"`
	ClientName    string    `json:"client_name,omitempty"`
	SisterCompany string    `json:"sister_company,omitempty"`
}

// CompanyLoanLine is one loan's contribution to a company summary.
type CompanyLoanLine struct {
	LoanNumber       string          `json:"loan_number"`
	ClientName       string          `json:"client_name"`
	PaidAmount       decimal.Decimal `json:"paid_amount"`
	OverdueAmount    decimal.Decimal `json:"overdue_amount"`
	FactoringFees    decimal.Decimal `json:"factoring_fees"`
	ProviderFees     decimal.Decimal `json:"provider_fees"`
	InstallmentsLeft int             `json:"installments_left"`
	OpenBalance      decimal.Decimal `json:"open_balance"`
}

// CompanySummary totals the payments received by, and balances still owed to, one sister company.
type CompanySummary struct {
	CompanyName        string            `json:"company_name"`
	TotalPaidAmount    decimal.Decimal   `json:"total_paid_amount"`
	TotalOverdueAmount decimal.Decimal   `json:"total_overdue_amount"`
	TotalFactoringFees decimal.Decimal   `json:"total_factoring_fees"`
	TotalProviderFees  decimal.Decimal   `json:"total_provider_fees"`
	PaymentCount       int               `json:"payment_count"`
	OverdueCount       int               `json:"overdue_count"`
	Loans              []CompanyLoanLine `json:"loans"`
}

func (s *CompanySummary) line(loan *models.Loan) *CompanyLoanLine {
	for i := range s.Loans {
		if s.Loans[i].LoanNumber == loan.LoanNumber {
			return &s.Loans[i]
		}
	}
	s.Loans = append(s.Loans, CompanyLoanLine{
		LoanNumber:       loan.LoanNumber,
		ClientName:       loan.ClientName,
		PaidAmount:       decimal.Zero,
		OverdueAmount:    decimal.Zero,
		FactoringFees:    decimal.Zero,
		ProviderFees:     decimal.Zero,
		InstallmentsLeft: loan.InstallmentsLeft,
		OpenBalance:      loan.OpenBalance,
	})
	return &s.Loans[len(s.Loans)-1]
}

// SummarizeByCompany builds one summary per sister company, in the order given. Paid
// amounts follow the company that received each loan payment; overdue balances follow the
// loan's provider. Fees are apportioned by each payment's share of the installment amount.
// Companies with nothing paid and nothing overdue are left out.
func SummarizeByCompany(loans []*models.Loan, payments []*models.Payment, companies []*models.SisterCompany, f Filters) []CompanySummary {
	summaries := make([]CompanySummary, len(companies))
	byName := make(map[string]*CompanySummary, len(companies))
	for i, c := range companies {
		summaries[i] = CompanySummary{
			CompanyName:        c.Name,
			TotalPaidAmount:    decimal.Zero,
			TotalOverdueAmount: decimal.Zero,
			TotalFactoringFees: decimal.Zero,
			TotalProviderFees:  decimal.Zero,
			Loans:              []CompanyLoanLine{},
		}
		byName[c.Name] = &summaries[i]
	}
	loansByID := make(map[uuid.UUID]*models.Loan, len(loans))
	for _, l := range loans {
		loansByID[l.ID] = l
	}
	r := DateRange{From: f.DateFrom, To: f.DateTo}

	for _, p := range payments {
		if p.PaymentType != models.PaymentTypeLoan || !p.LoanID.Valid || !r.Contains(p.DatePaid) {
			continue
		}
		if f.SisterCompany != "" && p.CompanyName != f.SisterCompany {
			continue
		}
		loan, ok := loansByID[p.LoanID.UUID]
		if !ok || (f.ClientName != "" && loan.ClientName != f.ClientName) {
			continue
		}
		s, ok := byName[p.CompanyName]
		if !ok {
			continue
		}

		ratio := decimal.Zero
		if loan.InstallmentAmount.IsPositive() {
			ratio = p.PaymentAmount.Div(loan.InstallmentAmount)
		}
		factoring := loan.FactoringFee.Mul(ratio)
		provider := loan.ProviderFee.Mul(ratio)

		s.TotalPaidAmount = s.TotalPaidAmount.Add(p.PaymentAmount)
		s.TotalFactoringFees = s.TotalFactoringFees.Add(factoring)
		s.TotalProviderFees = s.TotalProviderFees.Add(provider)
		s.PaymentCount++

		line := s.line(loan)
		line.PaidAmount = line.PaidAmount.Add(p.PaymentAmount)
		line.FactoringFees = line.FactoringFees.Add(factoring)
		line.ProviderFees = line.ProviderFees.Add(provider)
	}

	for _, loan := range loans {
		if f.ClientName != "" && loan.ClientName != f.ClientName {
			continue
		}
		if f.SisterCompany != "" && loan.ProviderName != f.SisterCompany {
			continue
		}
		s, ok := byName[loan.ProviderName]
		if !ok || !loan.OpenBalance.IsPositive() {
			continue
		}
		s.TotalOverdueAmount = s.TotalOverdueAmount.Add(loan.OpenBalance)
		s.OverdueCount++
		s.line(loan).OverdueAmount = loan.OpenBalance
	}

	out := make([]CompanySummary, 0, len(summaries))
	for _, s := range summaries {
		if s.TotalPaidAmount.IsPositive() || s.TotalOverdueAmount.IsPositive() {
			out = append(out, s)
		}
	}
	return out
}
