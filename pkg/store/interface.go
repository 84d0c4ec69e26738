package store

import (
	"errors"

	"github.com/google/uuid"
	"github.com/mcclellann/fredCollect/pkg/models"
)

var (
	ErrLoanNotFound          = errors.New("loan not found")
	ErrPaymentNotFound       = errors.New("payment not found")
	ErrClientNotFound        = errors.New("client not found")
	ErrSisterCompanyNotFound = errors.New("sister company not found")
	ErrUserNotFound          = errors.New("user not found")
)

// IsNotFound reports whether err means the requested record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrLoanNotFound) ||
		errors.Is(err, ErrPaymentNotFound) ||
		errors.Is(err, ErrClientNotFound) ||
		errors.Is(err, ErrSisterCompanyNotFound) ||
		errors.Is(err, ErrUserNotFound)
}

// Storage defines the interface for database operations related to loans, payments and
// the reference entities around them. Loans are always read and written together with
// their closure records.
type Storage interface {
	CreateLoan(loan *models.Loan) error
	GetLoan(id uuid.UUID) (*models.Loan, error)
	UpdateLoan(loan *models.Loan) error
	DeleteLoan(id uuid.UUID) error
	GetAllLoans() ([]*models.Loan, error)

	// ApplyClosure persists an updated loan and the payment that closed one of its
	// installments. Either both are written or neither is.
	ApplyClosure(loan *models.Loan, payment *models.Payment) error

	CreatePayment(payment *models.Payment) error
	GetPayment(id uuid.UUID) (*models.Payment, error)
	UpdatePayment(payment *models.Payment) error
	DeletePayment(id uuid.UUID) error
	GetAllPayments() ([]*models.Payment, error)
	GetPaymentsForLoan(loanID uuid.UUID) ([]*models.Payment, error)

	CreateClient(client *models.Client) error
	GetClient(id uuid.UUID) (*models.Client, error)
	UpdateClient(client *models.Client) error
	DeleteClient(id uuid.UUID) error
	GetAllClients() ([]*models.Client, error)

	CreateSisterCompany(company *models.SisterCompany) error
	GetSisterCompany(id uuid.UUID) (*models.SisterCompany, error)
	UpdateSisterCompany(company *models.SisterCompany) error
	DeleteSisterCompany(id uuid.UUID) error
	GetAllSisterCompanies() ([]*models.SisterCompany, error)

	CreateUser(user *models.User) error
	GetUser(id uuid.UUID) (*models.User, error)
	UpdateUser(user *models.User) error
	DeleteUser(id uuid.UUID) error
	GetAllUsers() ([]*models.User, error)

	Close() error
}
