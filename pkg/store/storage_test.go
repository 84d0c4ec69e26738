package store

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/fredCollect/pkg/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Both implementations must satisfy the same contract.
var (
	_ Storage = (*MemoryStore)(nil)
	_ Storage = (*SQLiteStore)(nil)
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newLoan(number string) *models.Loan {
	now := day(2025, time.July, 11)
	return &models.Loan{
		ID:                   uuid.New(),
		LoanNumber:           number,
		ClientName:           "STU Enterprises",
		ProviderName:         "Fuel Co",
		LoanAmount:           decimal.NewFromInt(15000),
		TotalInstallments:    15,
		InstallmentsLeft:     15,
		OpenBalance:          decimal.NewFromInt(15000),
		InstallmentAmount:    decimal.NewFromInt(1050),
		FactoringFee:         decimal.NewFromInt(450),
		ProviderFee:          decimal.NewFromInt(300),
		LoanDate:             now,
		FirstInstallmentDate: day(2025, time.July, 18),
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

func newPayment(loan *models.Loan, n int, paid time.Time) *models.Payment {
	p := &models.Payment{
		ID:                     uuid.New(),
		CompanyName:            "Fuel Co",
		PaymentType:            models.PaymentTypeFuel,
		PaymentAmount:          decimal.NewFromInt(1020),
		TransactionType:        models.TransactionTypeACH,
		BankConfirmationNumber: "ACH-1",
		DatePaid:               paid,
		SisterCompanyFee:       decimal.NewFromInt(20),
		FactoringFee:           decimal.NewFromInt(30),
		CreatedAt:              paid,
	}
	if loan != nil {
		p.PaymentType = models.PaymentTypeLoan
		p.LoanID = uuid.NullUUID{UUID: loan.ID, Valid: true}
		p.LoanNumber = loan.LoanNumber
		p.ClientName = loan.ClientName
		p.InstallmentNumber = n
	}
	return p
}

func closeOne(loan *models.Loan, p *models.Payment, partial bool) *models.Loan {
	updated := loan.Clone()
	rec := models.ClosedInstallment{
		InstallmentNumber: p.InstallmentNumber,
		DueDate:           day(2025, time.July, 18).AddDate(0, 0, 7*(p.InstallmentNumber-1)),
		ClosedDate:        p.DatePaid,
		Amount:            decimal.NewFromInt(1000),
		PaymentAmount:     p.PaymentAmount,
		PaymentID:         p.ID.String(),
		ClosureType:       models.ClosureTypePayment,
		IsPartial:         partial,
		RemainingAmount:   decimal.Zero,
	}
	if partial {
		rec.RemainingAmount = decimal.NewFromInt(600)
		rec.Note = "Partial payment"
	} else {
		updated.InstallmentsLeft--
	}
	updated.ClosedInstallments = append(updated.ClosedInstallments, rec)
	updated.OpenBalance = updated.OpenBalance.Sub(p.PaymentAmount.Sub(p.SisterCompanyFee))
	return updated
}

func runStorageContract(t *testing.T, open func(t *testing.T) Storage) {
	t.Run("loan CRUD", func(t *testing.T) {
		s := open(t)
		loan := newLoan("L000")
		require.NoError(t, s.CreateLoan(loan))

		got, err := s.GetLoan(loan.ID)
		require.NoError(t, err)
		assert.Equal(t, "L000", got.LoanNumber)
		assert.True(t, got.InstallmentAmount.Equal(decimal.NewFromInt(1050)))
		assert.True(t, got.FirstInstallmentDate.Equal(loan.FirstInstallmentDate))
		assert.Empty(t, got.ClosedInstallments)

		got.ClientName = "ABC Trucking"
		require.NoError(t, s.UpdateLoan(got))
		again, err := s.GetLoan(loan.ID)
		require.NoError(t, err)
		assert.Equal(t, "ABC Trucking", again.ClientName)

		require.NoError(t, s.DeleteLoan(loan.ID))
		_, err = s.GetLoan(loan.ID)
		assert.ErrorIs(t, err, ErrLoanNotFound)
		assert.ErrorIs(t, s.DeleteLoan(loan.ID), ErrLoanNotFound)
		assert.ErrorIs(t, s.UpdateLoan(loan), ErrLoanNotFound)
	})

	t.Run("loans ordered by number", func(t *testing.T) {
		s := open(t)
		for _, n := range []string{"L002", "L000", "L001"} {
			require.NoError(t, s.CreateLoan(newLoan(n)))
		}

		loans, err := s.GetAllLoans()

		require.NoError(t, err)
		require.Len(t, loans, 3)
		assert.Equal(t, []string{"L000", "L001", "L002"}, []string{loans[0].LoanNumber, loans[1].LoanNumber, loans[2].LoanNumber})
	})

	t.Run("apply closure keeps ledger order", func(t *testing.T) {
		s := open(t)
		loan := newLoan("L000")
		require.NoError(t, s.CreateLoan(loan))

		p1 := newPayment(loan, 2, day(2025, time.July, 25))
		loan = closeOne(loan, p1, true)
		require.NoError(t, s.ApplyClosure(loan, p1))
		p2 := newPayment(loan, 1, day(2025, time.July, 26))
		loan = closeOne(loan, p2, false)
		require.NoError(t, s.ApplyClosure(loan, p2))

		got, err := s.GetLoan(loan.ID)
		require.NoError(t, err)
		require.Len(t, got.ClosedInstallments, 2)
		assert.Equal(t, 2, got.ClosedInstallments[0].InstallmentNumber)
		assert.True(t, got.ClosedInstallments[0].IsPartial)
		assert.True(t, got.ClosedInstallments[0].RemainingAmount.Equal(decimal.NewFromInt(600)))
		assert.Equal(t, p1.ID.String(), got.ClosedInstallments[0].PaymentID)
		assert.Equal(t, 1, got.ClosedInstallments[1].InstallmentNumber)
		assert.Equal(t, 14, got.InstallmentsLeft)
		assert.True(t, got.OpenBalance.Equal(decimal.NewFromInt(13000)), got.OpenBalance.String())

		payments, err := s.GetPaymentsForLoan(loan.ID)
		require.NoError(t, err)
		require.Len(t, payments, 2)
		assert.Equal(t, p1.ID, payments[0].ID)
		assert.Equal(t, 2, payments[0].InstallmentNumber)
		assert.True(t, payments[0].LoanID.Valid)
	})

	t.Run("apply closure is all or nothing", func(t *testing.T) {
		s := open(t)
		loan := newLoan("L000")
		require.NoError(t, s.CreateLoan(loan))
		p := newPayment(loan, 1, day(2025, time.July, 18))
		require.NoError(t, s.CreatePayment(p))

		// GIVEN: the payment id is already taken
		updated := closeOne(loan, p, false)

		err := s.ApplyClosure(updated, p)

		// THEN: the loan is left untouched
		require.Error(t, err)
		got, err := s.GetLoan(loan.ID)
		require.NoError(t, err)
		assert.Empty(t, got.ClosedInstallments)
		assert.Equal(t, 15, got.InstallmentsLeft)
	})

	t.Run("payments", func(t *testing.T) {
		s := open(t)
		fuel := newPayment(nil, 0, day(2025, time.July, 20))
		early := newPayment(nil, 0, day(2025, time.July, 1))
		require.NoError(t, s.CreatePayment(fuel))
		require.NoError(t, s.CreatePayment(early))

		all, err := s.GetAllPayments()
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, early.ID, all[0].ID)
		assert.False(t, all[1].LoanID.Valid)

		fuel.Notes = "corrected"
		fuel.PaymentAmount = decimal.RequireFromString("99.95")
		require.NoError(t, s.UpdatePayment(fuel))
		got, err := s.GetPayment(fuel.ID)
		require.NoError(t, err)
		assert.Equal(t, "corrected", got.Notes)
		assert.True(t, got.PaymentAmount.Equal(decimal.RequireFromString("99.95")))

		require.NoError(t, s.DeletePayment(fuel.ID))
		_, err = s.GetPayment(fuel.ID)
		assert.ErrorIs(t, err, ErrPaymentNotFound)
		assert.True(t, IsNotFound(s.DeletePayment(fuel.ID)))
	})

	t.Run("deleting a loan keeps its payments", func(t *testing.T) {
		s := open(t)
		loan := newLoan("L000")
		require.NoError(t, s.CreateLoan(loan))
		p := newPayment(loan, 1, day(2025, time.July, 18))
		require.NoError(t, s.ApplyClosure(closeOne(loan, p, false), p))

		require.NoError(t, s.DeleteLoan(loan.ID))

		got, err := s.GetPayment(p.ID)
		require.NoError(t, err)
		assert.Equal(t, loan.ID, got.LoanID.UUID)
	})

	t.Run("reference entities", func(t *testing.T) {
		s := open(t)
		client := &models.Client{ID: uuid.New(), Name: "STU Enterprises", AccountExecutive: "Amanda Martinez"}
		company := &models.SisterCompany{ID: uuid.New(), Name: "Fuel Co", CompanyName: "Fuel Co"}
		user := &models.User{ID: uuid.New(), Username: "ops", Email: "ops@factoring.com", Role: "Operations Manager", IsActive: true}
		require.NoError(t, s.CreateClient(client))
		require.NoError(t, s.CreateSisterCompany(company))
		require.NoError(t, s.CreateUser(user))

		client.Phone = "555-0100"
		require.NoError(t, s.UpdateClient(client))
		gotClient, err := s.GetClient(client.ID)
		require.NoError(t, err)
		assert.Equal(t, "555-0100", gotClient.Phone)

		gotCompany, err := s.GetSisterCompany(company.ID)
		require.NoError(t, err)
		assert.Equal(t, "Fuel Co", gotCompany.CompanyName)

		gotUser, err := s.GetUser(user.ID)
		require.NoError(t, err)
		assert.True(t, gotUser.IsActive)

		require.NoError(t, s.DeleteClient(client.ID))
		require.NoError(t, s.DeleteSisterCompany(company.ID))
		require.NoError(t, s.DeleteUser(user.ID))
		_, err = s.GetClient(client.ID)
		assert.ErrorIs(t, err, ErrClientNotFound)
		_, err = s.GetSisterCompany(company.ID)
		assert.ErrorIs(t, err, ErrSisterCompanyNotFound)
		_, err = s.GetUser(user.ID)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("seed", func(t *testing.T) {
		s := open(t)
		require.NoError(t, Seed(s, day(2025, time.July, 11)))

		loans, err := s.GetAllLoans()
		require.NoError(t, err)
		require.Len(t, loans, 1)
		assert.Equal(t, "L000", loans[0].LoanNumber)
		companies, err := s.GetAllSisterCompanies()
		require.NoError(t, err)
		assert.Len(t, companies, 4)
		clients, err := s.GetAllClients()
		require.NoError(t, err)
		require.Len(t, clients, 1)
		assert.Equal(t, "Amanda Martinez", clients[0].AccountExecutive)
		users, err := s.GetAllUsers()
		require.NoError(t, err)
		assert.Len(t, users, 4)
	})
}
