package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/fredCollect/pkg/installments"
	"github.com/mcclellann/fredCollect/pkg/models"
	"github.com/mcclellann/fredCollect/pkg/schedule"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ResultCode identifies why a closure was refused.
type ResultCode string

const (
	CodeInvalidAmount      ResultCode = "INVALID_AMOUNT"
	CodeLoanFullyPaid      ResultCode = "LOAN_FULLY_PAID"
	CodeValidationFailed   ResultCode = "VALIDATION_FAILED"
	CodeInvalidInstallment ResultCode = "INVALID_INSTALLMENT"
	CodeUnexpected         ResultCode = "UNEXPECTED_ERROR"
)

var (
	// matchTolerance is the difference under which a payment counts as exactly one installment.
	matchTolerance = decimal.NewFromFloat(0.01)
)

// CloseInstallmentData is what staff enter when collecting an installment.
// PaymentAmount is principal only; the fees are entered separately.
type CloseInstallmentData struct {
	PaymentAmount          decimal.Decimal        `json:"payment_amount"`
	FactoringFee           decimal.Decimal        `json:"factoring_fee"`
	SisterCompanyFee       decimal.Decimal        `json:"sister_company_fee"`
	PaymentDate            time.Time              `json:"payment_date"`
	TransactionType        models.TransactionType `json:"transaction_type"`
	BankConfirmationNumber string                 `json:"bank_confirmation_number"`
	Notes                  string                 `json:"notes,omitempty"`
	CompanyName            string                 `json:"company_name"`
}

// Breakdown carries the amounts a closure produced (or would have produced).
type Breakdown struct {
	Principal               decimal.Decimal `json:"principal"`
	SisterCompanyFee        decimal.Decimal `json:"sister_company_fee"`
	FactoringFee            decimal.Decimal `json:"factoring_fee"`
	PostedAmount            decimal.Decimal `json:"posted_amount"`   // Principal + sister company fee
	TotalCollected          decimal.Decimal `json:"total_collected"` // Posted amount + factoring fee
	PrincipalPerInstallment decimal.Decimal `json:"principal_per_installment"`
	PrincipalOwed           decimal.Decimal `json:"principal_owed"`
	RemainingAmount         decimal.Decimal `json:"remaining_amount"`
	Excess                  decimal.Decimal `json:"excess"`
	ExistingPrincipalPaid   decimal.Decimal `json:"existing_principal_paid"`
	TotalPrincipalPaid      decimal.Decimal `json:"total_principal_paid"`
	OpenBalance             decimal.Decimal `json:"open_balance"`
	InstallmentsLeft        int             `json:"installments_left"`
	IsPartial               bool            `json:"is_partial"`
}

// CloseInstallmentResult is the outcome of a closure. Failures are reported here, never as panics.
type CloseInstallmentResult struct {
	Success     bool            `json:"success"`
	Message     string          `json:"message"`
	Error       ResultCode      `json:"error,omitempty"`
	Errors      []string        `json:"errors,omitempty"`
	Breakdown   *Breakdown      `json:"breakdown,omitempty"`
	NewPayment  *models.Payment `json:"new_payment,omitempty"`
	UpdatedLoan *models.Loan    `json:"updated_loan,omitempty"`
}

// Processor computes installment closures. It holds no state besides its clock and ID source
// and never touches storage: persisting NewPayment and UpdatedLoan is the caller's job.
type Processor struct {
	now   func() time.Time
	newID func() uuid.UUID
	log   *zap.Logger
}

// NewProcessor creates a Processor using the wall clock and random UUIDs.
func NewProcessor(log *zap.Logger) *Processor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{now: time.Now, newID: uuid.New, log: log}
}

// PrincipalPaid sums the principal collected by the loan's payments. Each posted amount
// includes the sister company fee, which is backed out; a payment never contributes less than zero.
func PrincipalPaid(loan *models.Loan, payments []*models.Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		if !p.IsLoanPayment(loan.ID) {
			continue
		}
		total = total.Add(decimal.Max(decimal.Zero, p.PaymentAmount.Sub(p.SisterCompanyFee)))
	}
	return total
}

// OpenBalanceAfter is the loan principal less everything paid, floored at zero.
func OpenBalanceAfter(loan *models.Loan, principalPaid decimal.Decimal) decimal.Decimal {
	return decimal.Max(decimal.Zero, loan.LoanAmount.Sub(principalPaid))
}

// CanCloseInstallment reports whether the loan still accepts installment payments.
func CanCloseInstallment(loan *models.Loan) (bool, string) {
	if loan.InstallmentsLeft <= 0 {
		return false, "Loan is already fully paid"
	}
	return true, ""
}

// SuggestedPrincipal is the principal to prefill when collecting installment n.
func SuggestedPrincipal(loan *models.Loan, n int) decimal.Decimal {
	return installments.PrincipalOwed(loan, n)
}

// CloseInstallment records a payment against one installment of loan.
// existingPayments may contain payments of other loans; only this loan's are reconciled.
func (p *Processor) CloseInstallment(loan *models.Loan, inst installments.Installment, data CloseInstallmentData, existingPayments []*models.Payment) (result CloseInstallmentResult) {
	defer func() {
		if r := recover(); r != nil {
			fields := []zap.Field{zap.Int("installment", inst.InstallmentNumber), zap.Any("panic", r)}
			if loan != nil {
				fields = append(fields, zap.String("loan_id", loan.ID.String()))
			}
			p.log.Error("close installment failed", fields...)
			result = unexpectedResult()
		}
	}()

	if loan == nil {
		p.log.Error("close installment called without a loan", zap.Int("installment", inst.InstallmentNumber))
		return unexpectedResult()
	}

	if !data.PaymentAmount.IsPositive() {
		return CloseInstallmentResult{
			Message: "Payment amount must be greater than 0",
			Error:   CodeInvalidAmount,
		}
	}
	if ok, reason := CanCloseInstallment(loan); !ok {
		return CloseInstallmentResult{Message: reason, Error: CodeLoanFullyPaid}
	}
	if v := ValidateCloseInstallmentData(data); !v.IsValid {
		return CloseInstallmentResult{
			Message: "Installment data is invalid",
			Error:   CodeValidationFailed,
			Errors:  v.Errors,
		}
	}
	n := inst.InstallmentNumber
	if n < 1 || n > loan.TotalInstallments {
		return CloseInstallmentResult{
			Message: fmt.Sprintf("Installment #%d is outside the loan schedule (1-%d)", n, loan.TotalInstallments),
			Error:   CodeInvalidInstallment,
		}
	}
	dueDate := inst.DueDate
	if dueDate.IsZero() {
		dueDate = schedule.DueDate(loan.FirstInstallmentDate, n)
	}

	b := &Breakdown{
		Principal:               data.PaymentAmount,
		SisterCompanyFee:        data.SisterCompanyFee,
		FactoringFee:            data.FactoringFee,
		PrincipalPerInstallment: loan.PrincipalPerInstallment(),
		PrincipalOwed:           installments.PrincipalOwed(loan, n),
		RemainingAmount:         decimal.Zero,
		Excess:                  decimal.Zero,
	}
	b.PostedAmount = data.PaymentAmount.Add(data.SisterCompanyFee)
	b.TotalCollected = b.PostedAmount.Add(data.FactoringFee)

	b.ExistingPrincipalPaid = PrincipalPaid(loan, existingPayments)
	b.TotalPrincipalPaid = b.ExistingPrincipalPaid.Add(data.PaymentAmount)
	b.OpenBalance = OpenBalanceAfter(loan, b.TotalPrincipalPaid)

	diff := b.PrincipalOwed.Sub(data.PaymentAmount)
	b.IsPartial = diff.GreaterThanOrEqual(matchTolerance)
	if b.IsPartial {
		b.RemainingAmount = diff
	} else if diff.IsNegative() {
		b.Excess = diff.Neg()
	}

	payment := &models.Payment{
		ID:                     p.newID(),
		CompanyName:            data.CompanyName,
		PaymentType:            models.PaymentTypeLoan,
		LoanID:                 uuid.NullUUID{UUID: loan.ID, Valid: true},
		LoanNumber:             loan.LoanNumber,
		ClientName:             loan.ClientName,
		InstallmentNumber:      n,
		PaymentAmount:          b.PostedAmount,
		TransactionType:        data.TransactionType,
		BankConfirmationNumber: data.BankConfirmationNumber,
		DatePaid:               schedule.StartOfDay(data.PaymentDate),
		Notes:                  data.Notes,
		FactoringFee:           data.FactoringFee,
		SisterCompanyFee:       data.SisterCompanyFee,
		CreatedAt:              p.now(),
	}
	if payment.Notes == "" {
		payment.Notes = fmt.Sprintf("Installment #%d payment - Due Date: %s", n, dueDate.Format("2006-01-02"))
	}

	record := models.ClosedInstallment{
		InstallmentNumber: n,
		DueDate:           dueDate,
		ClosedDate:        payment.DatePaid,
		Amount:            b.PrincipalPerInstallment,
		PaymentAmount:     b.PostedAmount,
		PaymentID:         payment.ID.String(),
		ClosureType:       models.ClosureTypePayment,
		IsPartial:         b.IsPartial,
		RemainingAmount:   b.RemainingAmount,
	}
	if b.IsPartial {
		record.Note = "Partial payment"
	}

	updated := loan.Clone()
	updated.ClosedInstallments = append(updated.ClosedInstallments, record)
	updated.OpenBalance = b.OpenBalance
	updated.InstallmentsLeft = installments.InstallmentsLeft(loan.TotalInstallments, updated.ClosedInstallments)
	updated.UpdatedAt = p.now()
	b.InstallmentsLeft = updated.InstallmentsLeft

	p.log.Debug("installment closure computed",
		zap.String("loan", loan.LoanNumber),
		zap.Int("installment", n),
		zap.String("existing_principal_paid", b.ExistingPrincipalPaid.String()),
		zap.String("total_principal_paid", b.TotalPrincipalPaid.String()),
		zap.String("open_balance", b.OpenBalance.String()),
		zap.Int("installments_paid", loan.TotalInstallments-updated.InstallmentsLeft),
		zap.Int("installments_left", updated.InstallmentsLeft),
		zap.Bool("partial", b.IsPartial))

	return CloseInstallmentResult{
		Success:     true,
		Message:     closureMessage(n, b),
		Breakdown:   b,
		NewPayment:  payment,
		UpdatedLoan: updated,
	}
}

func unexpectedResult() CloseInstallmentResult {
	return CloseInstallmentResult{
		Message: "An unexpected error occurred while closing the installment",
		Error:   CodeUnexpected,
	}
}

func money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

func closureMessage(n int, b *Breakdown) string {
	amounts := fmt.Sprintf("Principal: %s, Sister Company Fee: %s, Factoring Fee: %s. Total collected: %s.",
		money(b.Principal), money(b.SisterCompanyFee), money(b.FactoringFee), money(b.TotalCollected))
	switch {
	case b.IsPartial:
		return fmt.Sprintf("Partial payment recorded for Installment #%d. %s Installment marked as closed with %s remaining.",
			n, amounts, money(b.RemainingAmount))
	case b.Excess.LessThan(matchTolerance):
		return fmt.Sprintf("Installment #%d successfully closed. %s", n, amounts)
	default:
		return fmt.Sprintf("Installment #%d closed with overpayment. %s Excess principal of %s will be applied to future installments.",
			n, amounts, money(b.Excess))
	}
}
