package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/fredCollect/pkg/schedule"
	"github.com/shopspring/decimal"
)

// Loan is a factoring advance repaid in weekly installments.
// InstallmentsLeft and OpenBalance are caches derived from ClosedInstallments and the
// principal collected by the loan's payments; only the ledger updates them.
type Loan struct {
	ID                   uuid.UUID           `json:"id"`
	LoanNumber           string              `json:"loan_number"` // Human identifier, e.g. "L000"
	ClientName           string              `json:"client_name"`
	ProviderName         string              `json:"provider_name"` // Sister company that funded the advance
	LoanAmount           decimal.Decimal     `json:"loan_amount"`
	TotalInstallments    int                 `json:"total_installments"`
	InstallmentsLeft     int                 `json:"installments_left"`
	OpenBalance          decimal.Decimal     `json:"open_balance"`
	InstallmentAmount    decimal.Decimal     `json:"installment_amount"` // (principal + fees) / installments
	FactoringFee         decimal.Decimal     `json:"factoring_fee"`      // Collector's fee for the whole loan
	ProviderFee          decimal.Decimal     `json:"provider_fee"`       // Sister company fee for the whole loan
	LoanDate             time.Time           `json:"loan_date"`
	FirstInstallmentDate time.Time           `json:"first_installment_date"`
	ClosedInstallments   []ClosedInstallment `json:"closed_installments"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
}

// PrincipalPerInstallment is the principal share of a single installment.
func (l *Loan) PrincipalPerInstallment() decimal.Decimal {
	if l.TotalInstallments <= 0 {
		return decimal.Zero
	}
	return l.LoanAmount.Div(decimal.NewFromInt(int64(l.TotalInstallments)))
}

// TotalFees is the factoring fee plus the provider fee for the whole loan.
func (l *Loan) TotalFees() decimal.Decimal {
	return l.FactoringFee.Add(l.ProviderFee)
}

// Clone returns a copy whose closure ledger can be appended to without touching the original.
func (l *Loan) Clone() *Loan {
	c := *l
	c.ClosedInstallments = make([]ClosedInstallment, len(l.ClosedInstallments))
	copy(c.ClosedInstallments, l.ClosedInstallments)
	return &c
}

type ClosureType string

const (
	ClosureTypePayment ClosureType = "payment"
	ClosureTypeManual  ClosureType = "manual"
)

// ClosedInstallment records that an installment was settled, by payment or administratively.
// Several records may share an installment number when a partial closure is topped off later.
type ClosedInstallment struct {
	InstallmentNumber int             `json:"installment_number"` // 1-based schedule position
	DueDate           time.Time       `json:"due_date"`
	ClosedDate        time.Time       `json:"closed_date"`
	Amount            decimal.Decimal `json:"amount"`         // Principal per installment
	PaymentAmount     decimal.Decimal `json:"payment_amount"` // Posted amount (principal + provider fee), 0 for manual
	PaymentID         string          `json:"payment_id"`     // Empty for manual closures
	Note              string          `json:"note,omitempty"`
	ClosureType       ClosureType     `json:"closure_type"`
	IsPartial         bool            `json:"is_partial"`
	RemainingAmount   decimal.Decimal `json:"remaining_amount"`
}

// Settled reports whether the record counts as a fully paid installment.
func (c ClosedInstallment) Settled() bool {
	return !c.IsPartial || c.RemainingAmount.IsZero()
}

type PaymentType string

const (
	PaymentTypeLoan       PaymentType = "Loan"
	PaymentTypeFuel       PaymentType = "Fuel"
	PaymentTypeEquipment  PaymentType = "Equipment"
	PaymentTypeBJKFuel    PaymentType = "BJK Fuel"
	PaymentTypeTDX        PaymentType = "TDX"
	PaymentTypeAdditional PaymentType = "Additional"
)

// PaymentTypes lists every payment category accepted by payment entry.
var PaymentTypes = []PaymentType{
	PaymentTypeLoan,
	PaymentTypeFuel,
	PaymentTypeEquipment,
	PaymentTypeBJKFuel,
	PaymentTypeTDX,
	PaymentTypeAdditional,
}

// Valid reports whether t is a known payment category.
func (t PaymentType) Valid() bool {
	for _, known := range PaymentTypes {
		if t == known {
			return true
		}
	}
	return false
}

type TransactionType string

const (
	TransactionTypeACH  TransactionType = "ACH"
	TransactionTypeWire TransactionType = "Wire"
)

// Valid reports whether t is ACH or Wire.
func (t TransactionType) Valid() bool {
	return t == TransactionTypeACH || t == TransactionTypeWire
}

// Payment is a cash collection (or outgoing payment) event.
// For loan payments PaymentAmount is principal plus the sister company fee; the factoring
// fee is carried as metadata only.
type Payment struct {
	ID                     uuid.UUID       `json:"id"`
	CompanyName            string          `json:"company_name"`
	PaymentType            PaymentType     `json:"payment_type"`
	LoanID                 uuid.NullUUID   `json:"loan_id"`
	LoanNumber             string          `json:"loan_number,omitempty"`
	ClientName             string          `json:"client_name,omitempty"`
	InstallmentNumber      int             `json:"installment_number,omitempty"`
	PaymentAmount          decimal.Decimal `json:"payment_amount"`
	TransactionType        TransactionType `json:"transaction_type"`
	BankConfirmationNumber string          `json:"bank_confirmation_number"`
	DatePaid               time.Time       `json:"date_paid"`
	Notes                  string          `json:"notes,omitempty"`
	FactoringFee           decimal.Decimal `json:"factoring_fee"`
	SisterCompanyFee       decimal.Decimal `json:"sister_company_fee"`
	CreatedAt              time.Time       `json:"created_at"`
}

// UnmarshalJSON accepts date_paid as "2025-07-18" as well as RFC 3339.
func (p *Payment) UnmarshalJSON(b []byte) error {
	type plain Payment
	aux := struct {
		*plain
		DatePaid schedule.Date `json:"date_paid"`
	}{plain: (*plain)(p), DatePaid: schedule.Date{Time: p.DatePaid}}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	p.DatePaid = aux.DatePaid.Time
	return nil
}

// IsLoanPayment reports whether the payment was collected against loanID.
func (p *Payment) IsLoanPayment(loanID uuid.UUID) bool {
	return p.PaymentType == PaymentTypeLoan && p.LoanID.Valid && p.LoanID.UUID == loanID
}

type Client struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	Phone            string    `json:"phone"`
	AccountExecutive string    `json:"account_executive"`
	CreatedAt        time.Time `json:"created_at"`
}

// SisterCompany is a loan provider.
type SisterCompany struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	CompanyName string    `json:"company_name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	Address     string    `json:"address"`
	City        string    `json:"city"`
	State       string    `json:"state"`
	ZipCode     string    `json:"zip_code"`
	Country     string    `json:"country"`
	CreatedAt   time.Time `json:"created_at"`
}

type User struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}
