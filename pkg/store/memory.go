package store

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/mcclellann/fredCollect/pkg/models"
)

// MemoryStore keeps everything in maps guarded by one lock. Records are copied on the
// way in and on the way out so callers never share state with the store.
type MemoryStore struct {
	mu        sync.RWMutex
	loans     map[uuid.UUID]*models.Loan
	payments  map[uuid.UUID]*models.Payment
	clients   map[uuid.UUID]*models.Client
	companies map[uuid.UUID]*models.SisterCompany
	users     map[uuid.UUID]*models.User
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		loans:     make(map[uuid.UUID]*models.Loan),
		payments:  make(map[uuid.UUID]*models.Payment),
		clients:   make(map[uuid.UUID]*models.Client),
		companies: make(map[uuid.UUID]*models.SisterCompany),
		users:     make(map[uuid.UUID]*models.User),
	}
}

func copyOf[T any](v *T) *T {
	c := *v
	return &c
}

// values returns copies of every record in m ordered by less.
func values[T any](m map[uuid.UUID]*T, clone func(*T) *T, less func(a, b *T) bool) []*T {
	out := make([]*T, 0, len(m))
	for _, v := range m {
		out = append(out, clone(v))
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func (m *MemoryStore) CreateLoan(loan *models.Loan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.loans[loan.ID]; ok {
		return fmt.Errorf("failed to create loan: duplicate id %s", loan.ID)
	}
	m.loans[loan.ID] = loan.Clone()
	return nil
}

func (m *MemoryStore) GetLoan(id uuid.UUID) (*models.Loan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	loan, ok := m.loans[id]
	if !ok {
		return nil, ErrLoanNotFound
	}
	return loan.Clone(), nil
}

func (m *MemoryStore) UpdateLoan(loan *models.Loan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.loans[loan.ID]; !ok {
		return ErrLoanNotFound
	}
	m.loans[loan.ID] = loan.Clone()
	return nil
}

// DeleteLoan removes the loan only. Payments made against it stay in the payment history.
func (m *MemoryStore) DeleteLoan(id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.loans[id]; !ok {
		return ErrLoanNotFound
	}
	delete(m.loans, id)
	return nil
}

func (m *MemoryStore) GetAllLoans() ([]*models.Loan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return values(m.loans, (*models.Loan).Clone, func(a, b *models.Loan) bool {
		if a.LoanNumber != b.LoanNumber {
			return a.LoanNumber < b.LoanNumber
		}
		return a.ID.String() < b.ID.String()
	}), nil
}

func (m *MemoryStore) ApplyClosure(loan *models.Loan, payment *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.loans[loan.ID]; !ok {
		return ErrLoanNotFound
	}
	if _, ok := m.payments[payment.ID]; ok {
		return fmt.Errorf("failed to apply closure: duplicate payment id %s", payment.ID)
	}
	m.loans[loan.ID] = loan.Clone()
	m.payments[payment.ID] = copyOf(payment)
	return nil
}

func (m *MemoryStore) CreatePayment(payment *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.payments[payment.ID]; ok {
		return fmt.Errorf("failed to create payment: duplicate id %s", payment.ID)
	}
	m.payments[payment.ID] = copyOf(payment)
	return nil
}

func (m *MemoryStore) GetPayment(id uuid.UUID) (*models.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.payments[id]
	if !ok {
		return nil, ErrPaymentNotFound
	}
	return copyOf(p), nil
}

func (m *MemoryStore) UpdatePayment(payment *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.payments[payment.ID]; !ok {
		return ErrPaymentNotFound
	}
	m.payments[payment.ID] = copyOf(payment)
	return nil
}

func (m *MemoryStore) DeletePayment(id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.payments[id]; !ok {
		return ErrPaymentNotFound
	}
	delete(m.payments, id)
	return nil
}

func paymentLess(a, b *models.Payment) bool {
	if !a.DatePaid.Equal(b.DatePaid) {
		return a.DatePaid.Before(b.DatePaid)
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

func (m *MemoryStore) GetAllPayments() ([]*models.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return values(m.payments, copyOf[models.Payment], paymentLess), nil
}

func (m *MemoryStore) GetPaymentsForLoan(loanID uuid.UUID) ([]*models.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.Payment
	for _, p := range values(m.payments, copyOf[models.Payment], paymentLess) {
		if p.LoanID.Valid && p.LoanID.UUID == loanID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MemoryStore) CreateClient(client *models.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients[client.ID] = copyOf(client)
	return nil
}

func (m *MemoryStore) GetClient(id uuid.UUID) (*models.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.clients[id]
	if !ok {
		return nil, ErrClientNotFound
	}
	return copyOf(c), nil
}

func (m *MemoryStore) UpdateClient(client *models.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clients[client.ID]; !ok {
		return ErrClientNotFound
	}
	m.clients[client.ID] = copyOf(client)
	return nil
}

func (m *MemoryStore) DeleteClient(id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clients[id]; !ok {
		return ErrClientNotFound
	}
	delete(m.clients, id)
	return nil
}

func (m *MemoryStore) GetAllClients() ([]*models.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return values(m.clients, copyOf[models.Client], func(a, b *models.Client) bool {
		return a.Name < b.Name
	}), nil
}

func (m *MemoryStore) CreateSisterCompany(company *models.SisterCompany) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.companies[company.ID] = copyOf(company)
	return nil
}

func (m *MemoryStore) GetSisterCompany(id uuid.UUID) (*models.SisterCompany, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.companies[id]
	if !ok {
		return nil, ErrSisterCompanyNotFound
	}
	return copyOf(c), nil
}

func (m *MemoryStore) UpdateSisterCompany(company *models.SisterCompany) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.companies[company.ID]; !ok {
		return ErrSisterCompanyNotFound
	}
	m.companies[company.ID] = copyOf(company)
	return nil
}

func (m *MemoryStore) DeleteSisterCompany(id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.companies[id]; !ok {
		return ErrSisterCompanyNotFound
	}
	delete(m.companies, id)
	return nil
}

func (m *MemoryStore) GetAllSisterCompanies() ([]*models.SisterCompany, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return values(m.companies, copyOf[models.SisterCompany], func(a, b *models.SisterCompany) bool {
		return a.Name < b.Name
	}), nil
}

func (m *MemoryStore) CreateUser(user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = copyOf(user)
	return nil
}

func (m *MemoryStore) GetUser(id uuid.UUID) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return copyOf(u), nil
}

func (m *MemoryStore) UpdateUser(user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return ErrUserNotFound
	}
	m.users[user.ID] = copyOf(user)
	return nil
}

func (m *MemoryStore) DeleteUser(id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return ErrUserNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *MemoryStore) GetAllUsers() ([]*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return values(m.users, copyOf[models.User], func(a, b *models.User) bool {
		return a.Username < b.Username
	}), nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }
