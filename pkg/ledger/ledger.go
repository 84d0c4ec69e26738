package ledger

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/fredCollect/pkg/installments"
	"github.com/mcclellann/fredCollect/pkg/models"
	"github.com/mcclellann/fredCollect/pkg/schedule"
	"github.com/mcclellann/fredCollect/pkg/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrInvalidLoan                 = errors.New("invalid loan")
	ErrInvalidPayment              = errors.New("invalid payment")
	ErrInstallmentOutOfRange       = errors.New("installment out of range")
	ErrLoanPaymentNeedsInstallment = errors.New("loan payments must be recorded by closing an installment")
	ErrManualCloseNotConfirmed     = errors.New("manual closure must be confirmed")
)

// IsClientError reports whether err was caused by the request rather than the system.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidLoan) ||
		errors.Is(err, ErrInvalidPayment) ||
		errors.Is(err, ErrInstallmentOutOfRange) ||
		errors.Is(err, ErrLoanPaymentNeedsInstallment)
}

// Ledger handles the business logic for loans, installment closures and payments.
type Ledger struct {
	storage   store.Storage
	processor *Processor
	log       *zap.Logger
	now       func() time.Time

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

// NewLedger creates a new Ledger with a given Storage implementation.
func NewLedger(s store.Storage, log *zap.Logger) *Ledger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{
		storage:   s,
		processor: NewProcessor(log.Named("closure")),
		log:       log,
		now:       time.Now,
		locks:     make(map[uuid.UUID]*sync.Mutex),
	}
}

// lockLoan serializes every read-modify-write of one loan. Different loans proceed in parallel.
func (l *Ledger) lockLoan(id uuid.UUID) func() {
	l.mu.Lock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m.Unlock
}

func (l *Ledger) today() time.Time {
	return schedule.StartOfDay(l.now())
}

// LoanInput holds the editable fields of a loan.
type LoanInput struct {
	LoanNumber           string          `json:"loan_number"`
	ClientName           string          `json:"client_name"`
	ProviderName         string          `json:"provider_name"`
	LoanAmount           decimal.Decimal `json:"loan_amount"`
	TotalInstallments    int             `json:"total_installments"`
	FactoringFee         decimal.Decimal `json:"factoring_fee"`
	ProviderFee          decimal.Decimal `json:"provider_fee"`
	LoanDate             time.Time       `json:"loan_date"`
	FirstInstallmentDate time.Time       `json:"first_installment_date"`
}

func (in LoanInput) validate() error {
	var problems []string
	if strings.TrimSpace(in.LoanNumber) == "" {
		problems = append(problems, "loan number is required")
	}
	if strings.TrimSpace(in.ClientName) == "" {
		problems = append(problems, "client name is required")
	}
	if strings.TrimSpace(in.ProviderName) == "" {
		problems = append(problems, "provider name is required")
	}
	if !in.LoanAmount.IsPositive() {
		problems = append(problems, "loan amount must be greater than 0")
	}
	if in.TotalInstallments <= 0 {
		problems = append(problems, "total installments must be greater than 0")
	}
	if in.FactoringFee.IsNegative() || in.ProviderFee.IsNegative() {
		problems = append(problems, "fees cannot be negative")
	}
	if in.FirstInstallmentDate.IsZero() {
		problems = append(problems, "first installment date is required")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidLoan, strings.Join(problems, "; "))
	}
	return nil
}

// apply copies the input onto loan and derives the installment amount.
func (in LoanInput) apply(loan *models.Loan) {
	loan.LoanNumber = strings.TrimSpace(in.LoanNumber)
	loan.ClientName = strings.TrimSpace(in.ClientName)
	loan.ProviderName = strings.TrimSpace(in.ProviderName)
	loan.LoanAmount = in.LoanAmount
	loan.TotalInstallments = in.TotalInstallments
	loan.FactoringFee = in.FactoringFee
	loan.ProviderFee = in.ProviderFee
	loan.LoanDate = schedule.StartOfDay(in.LoanDate)
	loan.FirstInstallmentDate = schedule.StartOfDay(in.FirstInstallmentDate)
	loan.InstallmentAmount = in.LoanAmount.Add(loan.TotalFees()).Div(decimal.NewFromInt(int64(in.TotalInstallments)))
}

// reconcile re-derives the cached counters of loan from its closure ledger and payments.
func reconcile(loan *models.Loan, payments []*models.Payment) {
	loan.InstallmentsLeft = installments.InstallmentsLeft(loan.TotalInstallments, loan.ClosedInstallments)
	loan.OpenBalance = OpenBalanceAfter(loan, PrincipalPaid(loan, payments))
}

// CreateLoan enters a new loan with an empty closure ledger.
func (l *Ledger) CreateLoan(in LoanInput) (*models.Loan, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := l.now()
	loan := &models.Loan{
		ID:                 uuid.New(),
		ClosedInstallments: []models.ClosedInstallment{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	in.apply(loan)
	loan.InstallmentsLeft = loan.TotalInstallments
	loan.OpenBalance = loan.LoanAmount

	if err := l.storage.CreateLoan(loan); err != nil {
		return nil, fmt.Errorf("failed to store loan: %w", err)
	}
	l.log.Info("loan created",
		zap.String("loan", loan.LoanNumber),
		zap.String("client", loan.ClientName),
		zap.String("amount", loan.LoanAmount.StringFixed(2)),
		zap.Int("installments", loan.TotalInstallments))
	return loan, nil
}

// GetLoan retrieves a loan by its ID.
func (l *Ledger) GetLoan(id uuid.UUID) (*models.Loan, error) {
	return l.storage.GetLoan(id)
}

// GetAllLoans retrieves all loans.
func (l *Ledger) GetAllLoans() ([]*models.Loan, error) {
	return l.storage.GetAllLoans()
}

// UpdateLoan edits a loan's data. The closure ledger is kept as stored and the cached
// counters are derived again, so an edit can never desynchronize them.
func (l *Ledger) UpdateLoan(id uuid.UUID, in LoanInput) (*models.Loan, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	unlock := l.lockLoan(id)
	defer unlock()

	loan, err := l.storage.GetLoan(id)
	if err != nil {
		return nil, err
	}
	payments, err := l.storage.GetPaymentsForLoan(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load payments: %w", err)
	}
	in.apply(loan)
	reconcile(loan, payments)
	loan.UpdatedAt = l.now()

	if err := l.storage.UpdateLoan(loan); err != nil {
		return nil, err
	}
	return loan, nil
}

// DeleteLoan deletes a loan. Its payments stay in the payment history.
func (l *Ledger) DeleteLoan(id uuid.UUID) error {
	unlock := l.lockLoan(id)
	defer unlock()
	if err := l.storage.DeleteLoan(id); err != nil {
		return err
	}
	l.mu.Lock()
	delete(l.locks, id)
	l.mu.Unlock()
	l.log.Info("loan deleted", zap.String("loan_id", id.String()))
	return nil
}

// Classify returns the installment views of a loan as of today.
func (l *Ledger) Classify(id uuid.UUID, today time.Time) (installments.Classification, error) {
	loan, err := l.storage.GetLoan(id)
	if err != nil {
		return installments.Classification{}, err
	}
	return installments.Classify(loan, today), nil
}

// CloseInstallment records a payment against installment n of a loan and persists the
// updated loan together with the new payment. Business refusals come back in the result;
// the error is reserved for lookups and storage.
func (l *Ledger) CloseInstallment(loanID uuid.UUID, n int, data CloseInstallmentData) (CloseInstallmentResult, error) {
	unlock := l.lockLoan(loanID)
	defer unlock()

	loan, err := l.storage.GetLoan(loanID)
	if err != nil {
		return CloseInstallmentResult{}, err
	}
	payments, err := l.storage.GetPaymentsForLoan(loanID)
	if err != nil {
		return CloseInstallmentResult{}, fmt.Errorf("failed to load payments: %w", err)
	}

	inst := installments.Installment{InstallmentNumber: n}
	if n >= 1 && n <= loan.TotalInstallments {
		inst.DueDate = schedule.DueDate(loan.FirstInstallmentDate, n)
	}
	result := l.processor.CloseInstallment(loan, inst, data, payments)
	if !result.Success {
		l.log.Warn("installment closure refused",
			zap.String("loan", loan.LoanNumber),
			zap.Int("installment", n),
			zap.String("code", string(result.Error)),
			zap.Strings("errors", result.Errors))
		return result, nil
	}

	if err := l.storage.ApplyClosure(result.UpdatedLoan, result.NewPayment); err != nil {
		l.log.Error("failed to persist installment closure",
			zap.String("loan", loan.LoanNumber),
			zap.Int("installment", n),
			zap.Error(err))
		return CloseInstallmentResult{
			Message: "An unexpected error occurred while closing the installment",
			Error:   CodeUnexpected,
		}, fmt.Errorf("failed to persist closure: %w", err)
	}

	l.log.Info("installment closed",
		zap.String("loan", loan.LoanNumber),
		zap.Int("installment", n),
		zap.String("payment_id", result.NewPayment.ID.String()),
		zap.String("principal", data.PaymentAmount.StringFixed(2)),
		zap.Bool("partial", result.Breakdown.IsPartial),
		zap.String("open_balance", result.UpdatedLoan.OpenBalance.StringFixed(2)),
		zap.Int("installments_left", result.UpdatedLoan.InstallmentsLeft))
	return result, nil
}

// ManualCloseInstallment closes an installment without a payment. The caller must have
// confirmed the action; balances are not touched.
func (l *Ledger) ManualCloseInstallment(loanID uuid.UUID, mc ManualClosure) (*models.Loan, error) {
	if !mc.Confirmed {
		return nil, ErrManualCloseNotConfirmed
	}
	unlock := l.lockLoan(loanID)
	defer unlock()

	loan, err := l.storage.GetLoan(loanID)
	if err != nil {
		return nil, err
	}
	updated, err := ManualCloseInstallment(loan, mc, l.today())
	if err != nil {
		return nil, err
	}
	updated.UpdatedAt = l.now()
	if err := l.storage.UpdateLoan(updated); err != nil {
		return nil, err
	}
	l.log.Info("installment closed manually",
		zap.String("loan", loan.LoanNumber),
		zap.Int("installment", mc.InstallmentNumber),
		zap.String("note", mc.Note))
	return updated, nil
}

func validatePayment(p *models.Payment) error {
	var problems []string
	if !p.PaymentType.Valid() {
		problems = append(problems, fmt.Sprintf("unknown payment type %q", p.PaymentType))
	}
	if strings.TrimSpace(p.CompanyName) == "" {
		problems = append(problems, "company name is required")
	}
	if !p.PaymentAmount.IsPositive() {
		problems = append(problems, "payment amount must be greater than 0")
	}
	if !p.TransactionType.Valid() {
		problems = append(problems, "transaction type must be ACH or Wire")
	}
	if strings.TrimSpace(p.BankConfirmationNumber) == "" {
		problems = append(problems, "bank confirmation number is required")
	}
	if p.FactoringFee.IsNegative() || p.SisterCompanyFee.IsNegative() {
		problems = append(problems, "fees cannot be negative")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidPayment, strings.Join(problems, "; "))
	}
	return nil
}

// RecordPayment stores a payment that is not an installment collection (fuel, equipment,
// and other outgoing categories). Loan payments go through CloseInstallment.
func (l *Ledger) RecordPayment(p *models.Payment) (*models.Payment, error) {
	if p.PaymentType == models.PaymentTypeLoan {
		return nil, ErrLoanPaymentNeedsInstallment
	}
	if err := validatePayment(p); err != nil {
		return nil, err
	}
	payment := *p
	payment.ID = uuid.New()
	payment.CreatedAt = l.now()
	payment.LoanID = uuid.NullUUID{}
	payment.InstallmentNumber = 0
	if payment.DatePaid.IsZero() {
		payment.DatePaid = l.today()
	}
	payment.DatePaid = schedule.StartOfDay(payment.DatePaid)

	if err := l.storage.CreatePayment(&payment); err != nil {
		return nil, fmt.Errorf("failed to store payment: %w", err)
	}
	l.log.Info("payment recorded",
		zap.String("payment_id", payment.ID.String()),
		zap.String("type", string(payment.PaymentType)),
		zap.String("company", payment.CompanyName),
		zap.String("amount", payment.PaymentAmount.StringFixed(2)))
	return &payment, nil
}

// GetPayment retrieves a payment by its ID.
func (l *Ledger) GetPayment(id uuid.UUID) (*models.Payment, error) {
	return l.storage.GetPayment(id)
}

// GetAllPayments retrieves all payments.
func (l *Ledger) GetAllPayments() ([]*models.Payment, error) {
	return l.storage.GetAllPayments()
}

// GetPaymentsForLoan retrieves the payments collected against a loan.
func (l *Ledger) GetPaymentsForLoan(loanID uuid.UUID) ([]*models.Payment, error) {
	if _, err := l.storage.GetLoan(loanID); err != nil {
		return nil, err
	}
	return l.storage.GetPaymentsForLoan(loanID)
}

// UpdatePayment edits a payment's data. Loan links cannot be changed by an edit; when a
// loan payment's amounts change, the loan's open balance is derived again.
func (l *Ledger) UpdatePayment(id uuid.UUID, edit *models.Payment) (*models.Payment, error) {
	existing, err := l.storage.GetPayment(id)
	if err != nil {
		return nil, err
	}
	if (existing.PaymentType == models.PaymentTypeLoan) != (edit.PaymentType == models.PaymentTypeLoan) {
		return nil, fmt.Errorf("%w: a payment cannot move in or out of the Loan type", ErrInvalidPayment)
	}
	if err := validatePayment(edit); err != nil {
		return nil, err
	}

	updated := *edit
	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt
	updated.LoanID = existing.LoanID
	updated.LoanNumber = existing.LoanNumber
	updated.InstallmentNumber = existing.InstallmentNumber
	if updated.DatePaid.IsZero() {
		updated.DatePaid = existing.DatePaid
	}
	updated.DatePaid = schedule.StartOfDay(updated.DatePaid)

	if !existing.LoanID.Valid {
		if err := l.storage.UpdatePayment(&updated); err != nil {
			return nil, err
		}
		return &updated, nil
	}

	unlock := l.lockLoan(existing.LoanID.UUID)
	defer unlock()
	if err := l.storage.UpdatePayment(&updated); err != nil {
		return nil, err
	}
	if err := l.reconcileLoan(existing.LoanID.UUID); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeletePayment removes a payment. A loan payment's closure record stays in the ledger,
// but the loan's open balance is derived again without it.
func (l *Ledger) DeletePayment(id uuid.UUID) error {
	existing, err := l.storage.GetPayment(id)
	if err != nil {
		return err
	}
	if !existing.LoanID.Valid {
		return l.storage.DeletePayment(id)
	}

	unlock := l.lockLoan(existing.LoanID.UUID)
	defer unlock()
	if err := l.storage.DeletePayment(id); err != nil {
		return err
	}
	return l.reconcileLoan(existing.LoanID.UUID)
}

// reconcileLoan re-derives and stores a loan's counters. The loan lock must be held.
// A loan that no longer exists is skipped.
func (l *Ledger) reconcileLoan(loanID uuid.UUID) error {
	loan, err := l.storage.GetLoan(loanID)
	if errors.Is(err, store.ErrLoanNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	payments, err := l.storage.GetPaymentsForLoan(loanID)
	if err != nil {
		return fmt.Errorf("failed to load payments: %w", err)
	}
	before := loan.OpenBalance
	reconcile(loan, payments)
	loan.UpdatedAt = l.now()
	if err := l.storage.UpdateLoan(loan); err != nil {
		return fmt.Errorf("failed to update loan balance: %w", err)
	}
	l.log.Info("loan balance reconciled",
		zap.String("loan", loan.LoanNumber),
		zap.String("before", before.StringFixed(2)),
		zap.String("after", loan.OpenBalance.StringFixed(2)))
	return nil
}

// PastDueLoans returns the collections queue as of today.
func (l *Ledger) PastDueLoans(today time.Time) ([]installments.PastDueLoan, error) {
	loans, err := l.storage.GetAllLoans()
	if err != nil {
		return nil, err
	}
	clients, err := l.storage.GetAllClients()
	if err != nil {
		return nil, err
	}
	return installments.PastDueLoans(loans, clients, today), nil
}

// DueThisWeekLoans returns the loans with installments due this week as of today.
func (l *Ledger) DueThisWeekLoans(today time.Time) ([]installments.DueThisWeekLoan, error) {
	loans, err := l.storage.GetAllLoans()
	if err != nil {
		return nil, err
	}
	clients, err := l.storage.GetAllClients()
	if err != nil {
		return nil, err
	}
	return installments.DueThisWeekLoans(loans, clients, today), nil
}

// SweepPastDue logs the collections queue. It runs on a schedule so account executives
// find the day's past-due list in the logs each morning.
func (l *Ledger) SweepPastDue() {
	today := l.today()
	queue, err := l.PastDueLoans(today)
	if err != nil {
		l.log.Error("past-due sweep failed", zap.Error(err))
		return
	}
	total := decimal.Zero
	for _, p := range queue {
		total = total.Add(p.TotalMissedAmount)
		l.log.Info("loan past due",
			zap.String("loan", p.Loan.LoanNumber),
			zap.String("client", p.Loan.ClientName),
			zap.String("account_executive", p.AccountExecutive),
			zap.Int("missed_installments", p.TotalMissedCount),
			zap.Int("max_days_past", p.MaxDaysPast),
			zap.String("missed_amount", p.TotalMissedAmount.StringFixed(2)))
	}
	l.log.Info("past-due sweep complete",
		zap.String("date", today.Format("2006-01-02")),
		zap.Int("loans", len(queue)),
		zap.String("total_missed", total.StringFixed(2)))
}
