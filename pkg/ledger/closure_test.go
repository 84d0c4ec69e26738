package ledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/fredCollect/pkg/installments"
	"github.com/mcclellann/fredCollect/pkg/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func newLoan() *models.Loan {
	return &models.Loan{
		ID:                   uuid.New(),
		LoanNumber:           "L000",
		ClientName:           "STU Enterprises",
		ProviderName:         "Fuel Co",
		LoanAmount:           dec(15000),
		TotalInstallments:    15,
		InstallmentsLeft:     15,
		OpenBalance:          dec(15000),
		InstallmentAmount:    dec(1050),
		FactoringFee:         dec(450),
		ProviderFee:          dec(300),
		LoanDate:             date(2025, time.July, 11),
		FirstInstallmentDate: date(2025, time.July, 18),
		ClosedInstallments:   []models.ClosedInstallment{},
	}
}

func closeData(principal, factoring, sister int64) CloseInstallmentData {
	return CloseInstallmentData{
		PaymentAmount:          dec(principal),
		FactoringFee:           dec(factoring),
		SisterCompanyFee:       dec(sister),
		PaymentDate:            date(2025, time.July, 18),
		TransactionType:        models.TransactionTypeACH,
		BankConfirmationNumber: "ACH-001",
		CompanyName:            "Fuel Co",
	}
}

func newTestProcessor() *Processor {
	p := NewProcessor(nil)
	p.now = func() time.Time { return time.Date(2025, time.July, 18, 15, 0, 0, 0, time.UTC) }
	return p
}

func inst(n int) installments.Installment {
	return installments.Installment{InstallmentNumber: n}
}

func TestCloseInstallment_FullPayment(t *testing.T) {
	p := newTestProcessor()
	loan := newLoan()

	result := p.CloseInstallment(loan, inst(1), closeData(1000, 30, 20), nil)

	require.True(t, result.Success, result.Message)
	assert.Empty(t, result.Error)

	pay := result.NewPayment
	require.NotNil(t, pay)
	assert.True(t, pay.PaymentAmount.Equal(dec(1020)), "posted amount is principal plus sister company fee")
	assert.True(t, pay.FactoringFee.Equal(dec(30)))
	assert.True(t, pay.SisterCompanyFee.Equal(dec(20)))
	assert.Equal(t, models.PaymentTypeLoan, pay.PaymentType)
	assert.True(t, pay.IsLoanPayment(loan.ID))
	assert.Equal(t, 1, pay.InstallmentNumber)
	assert.Equal(t, "Installment #1 payment - Due Date: 2025-07-18", pay.Notes)

	updated := result.UpdatedLoan
	require.NotNil(t, updated)
	assert.True(t, updated.OpenBalance.Equal(dec(14000)))
	assert.Equal(t, 14, updated.InstallmentsLeft)
	require.Len(t, updated.ClosedInstallments, 1)

	rec := updated.ClosedInstallments[0]
	assert.Equal(t, 1, rec.InstallmentNumber)
	assert.Equal(t, models.ClosureTypePayment, rec.ClosureType)
	assert.Equal(t, pay.ID.String(), rec.PaymentID)
	assert.True(t, rec.Amount.Equal(dec(1000)))
	assert.True(t, rec.PaymentAmount.Equal(dec(1020)))
	assert.False(t, rec.IsPartial)
	assert.True(t, rec.RemainingAmount.IsZero())
	assert.Equal(t, date(2025, time.July, 18), rec.DueDate)

	assert.Contains(t, result.Message, "Installment #1 successfully closed")
	assert.Contains(t, result.Message, "Total collected: $1050.00")

	// input is untouched
	assert.Empty(t, loan.ClosedInstallments)
	assert.Equal(t, 15, loan.InstallmentsLeft)
}

func TestCloseInstallment_PartialThenTopOff(t *testing.T) {
	p := newTestProcessor()
	loan := newLoan()

	first := p.CloseInstallment(loan, inst(1), closeData(1000, 30, 20), nil)
	require.True(t, first.Success)
	payments := []*models.Payment{first.NewPayment}

	// GIVEN: only 400 of installment #2's 1000 principal is collected
	partial := p.CloseInstallment(first.UpdatedLoan, inst(2), closeData(400, 0, 0), payments)

	require.True(t, partial.Success, partial.Message)
	assert.True(t, partial.Breakdown.IsPartial)
	assert.True(t, partial.Breakdown.RemainingAmount.Equal(dec(600)))
	assert.True(t, partial.UpdatedLoan.OpenBalance.Equal(dec(13600)))
	assert.Equal(t, 14, partial.UpdatedLoan.InstallmentsLeft, "a partial closure does not count as paid")
	rec := partial.UpdatedLoan.ClosedInstallments[1]
	assert.True(t, rec.IsPartial)
	assert.Equal(t, "Partial payment", rec.Note)
	assert.Contains(t, partial.Message, "Partial payment recorded for Installment #2")
	assert.Contains(t, partial.Message, "$600.00 remaining")

	// WHEN: the remaining 600 is collected
	payments = append(payments, partial.NewPayment)
	assert.True(t, SuggestedPrincipal(partial.UpdatedLoan, 2).Equal(dec(600)))
	topOff := p.CloseInstallment(partial.UpdatedLoan, inst(2), closeData(600, 0, 0), payments)

	// THEN: a second record settles #2
	require.True(t, topOff.Success, topOff.Message)
	assert.False(t, topOff.Breakdown.IsPartial)
	assert.True(t, topOff.UpdatedLoan.OpenBalance.Equal(dec(13000)))
	assert.Equal(t, 13, topOff.UpdatedLoan.InstallmentsLeft)
	assert.Len(t, installments.Closures(topOff.UpdatedLoan, 2), 2)
	assert.Contains(t, topOff.Message, "successfully closed")
}

func TestCloseInstallment_Overpayment(t *testing.T) {
	p := newTestProcessor()

	result := p.CloseInstallment(newLoan(), inst(1), closeData(1500, 0, 0), nil)

	require.True(t, result.Success)
	assert.False(t, result.Breakdown.IsPartial)
	assert.True(t, result.Breakdown.Excess.Equal(dec(500)))
	assert.True(t, result.UpdatedLoan.OpenBalance.Equal(dec(13500)))
	assert.Equal(t, 14, result.UpdatedLoan.InstallmentsLeft)
	assert.Contains(t, result.Message, "closed with overpayment")
	assert.Contains(t, result.Message, "Excess principal of $500.00")
}

func TestCloseInstallment_WithinToleranceIsNotPartial(t *testing.T) {
	p := newTestProcessor()
	loan := newLoan()
	loan.LoanAmount = dec(1000)
	loan.TotalInstallments = 3
	loan.InstallmentsLeft = 3

	data := closeData(0, 0, 0)
	data.PaymentAmount = decimal.RequireFromString("333.33")

	result := p.CloseInstallment(loan, inst(1), data, nil)

	require.True(t, result.Success)
	assert.False(t, result.Breakdown.IsPartial)
	assert.Equal(t, 2, result.UpdatedLoan.InstallmentsLeft)
}

func TestCloseInstallment_OpenBalanceNeverNegative(t *testing.T) {
	p := newTestProcessor()
	loan := newLoan()
	earlier := &models.Payment{
		ID:               uuid.New(),
		PaymentType:      models.PaymentTypeLoan,
		LoanID:           uuid.NullUUID{UUID: loan.ID, Valid: true},
		PaymentAmount:    dec(14800),
		SisterCompanyFee: dec(300),
	}

	result := p.CloseInstallment(loan, inst(15), closeData(1000, 0, 0), []*models.Payment{earlier})

	require.True(t, result.Success)
	assert.True(t, result.Breakdown.ExistingPrincipalPaid.Equal(dec(14500)))
	assert.True(t, result.UpdatedLoan.OpenBalance.IsZero())
}

func TestPrincipalPaid_IgnoresOtherPayments(t *testing.T) {
	loan := newLoan()
	other := uuid.New()
	payments := []*models.Payment{
		{PaymentType: models.PaymentTypeLoan, LoanID: uuid.NullUUID{UUID: loan.ID, Valid: true}, PaymentAmount: dec(1020), SisterCompanyFee: dec(20)},
		{PaymentType: models.PaymentTypeLoan, LoanID: uuid.NullUUID{UUID: other, Valid: true}, PaymentAmount: dec(5000)},
		{PaymentType: models.PaymentTypeFuel, PaymentAmount: dec(700)},
		// fee larger than the posted amount contributes nothing
		{PaymentType: models.PaymentTypeLoan, LoanID: uuid.NullUUID{UUID: loan.ID, Valid: true}, PaymentAmount: dec(10), SisterCompanyFee: dec(25)},
	}

	assert.True(t, PrincipalPaid(loan, payments).Equal(dec(1000)))
}

func TestCloseInstallment_Refusals(t *testing.T) {
	tests := []struct {
		name   string
		loan   func() *models.Loan
		n      int
		data   func() CloseInstallmentData
		code   ResultCode
		errors []string
	}{
		{
			name: "zero amount",
			loan: newLoan,
			n:    1,
			data: func() CloseInstallmentData { return closeData(0, 0, 0) },
			code: CodeInvalidAmount,
		},
		{
			name: "amount checked before fully paid",
			loan: func() *models.Loan { l := newLoan(); l.InstallmentsLeft = 0; return l },
			n:    1,
			data: func() CloseInstallmentData { return closeData(-5, 0, 0) },
			code: CodeInvalidAmount,
		},
		{
			name: "fully paid",
			loan: func() *models.Loan { l := newLoan(); l.InstallmentsLeft = 0; return l },
			n:    1,
			data: func() CloseInstallmentData { return closeData(1000, 0, 0) },
			code: CodeLoanFullyPaid,
		},
		{
			name: "missing fields",
			loan: newLoan,
			n:    1,
			data: func() CloseInstallmentData {
				d := closeData(1000, 0, -1)
				d.BankConfirmationNumber = " "
				d.CompanyName = ""
				return d
			},
			code: CodeValidationFailed,
			errors: []string{
				"Bank confirmation number is required",
				"Company name is required",
				"Sister company fee cannot be negative",
			},
		},
		{
			name: "past the schedule",
			loan: newLoan,
			n:    16,
			data: func() CloseInstallmentData { return closeData(1000, 0, 0) },
			code: CodeInvalidInstallment,
		},
		{
			name: "before the schedule",
			loan: newLoan,
			n:    0,
			data: func() CloseInstallmentData { return closeData(1000, 0, 0) },
			code: CodeInvalidInstallment,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loan := tt.loan()
			result := newTestProcessor().CloseInstallment(loan, inst(tt.n), tt.data(), nil)

			assert.False(t, result.Success)
			assert.Equal(t, tt.code, result.Error)
			assert.NotEmpty(t, result.Message)
			assert.Nil(t, result.NewPayment)
			assert.Nil(t, result.UpdatedLoan)
			if tt.errors != nil {
				assert.Equal(t, tt.errors, result.Errors)
			}
			assert.Empty(t, loan.ClosedInstallments)
		})
	}
}

func TestCloseInstallment_RecoversFromPanic(t *testing.T) {
	p := newTestProcessor()
	p.newID = func() uuid.UUID { panic("id source exhausted") }

	result := p.CloseInstallment(newLoan(), inst(1), closeData(1000, 0, 0), nil)

	assert.False(t, result.Success)
	assert.Equal(t, CodeUnexpected, result.Error)
	assert.Nil(t, result.UpdatedLoan)
}

func TestCloseInstallment_NilLoan(t *testing.T) {
	p := newTestProcessor()

	var result CloseInstallmentResult
	require.NotPanics(t, func() {
		result = p.CloseInstallment(nil, inst(1), closeData(1000, 0, 0), nil)
	})

	assert.False(t, result.Success)
	assert.Equal(t, CodeUnexpected, result.Error)
	assert.Nil(t, result.NewPayment)
}

func TestValidateCloseInstallmentData(t *testing.T) {
	v := ValidateCloseInstallmentData(CloseInstallmentData{})

	assert.False(t, v.IsValid)
	assert.Equal(t, []string{
		"Payment amount is required and must be greater than 0",
		"Payment date is required",
		"Transaction type is required",
		"Bank confirmation number is required",
		"Company name is required",
	}, v.Errors)

	ok := ValidateCloseInstallmentData(closeData(1, 0, 0))
	assert.True(t, ok.IsValid)
	assert.Empty(t, ok.Errors)

	fees := closeData(1, -1, -1)
	v = ValidateCloseInstallmentData(fees)
	assert.Equal(t, []string{"Factoring fee cannot be negative", "Sister company fee cannot be negative"}, v.Errors)
}

func TestCanCloseInstallment(t *testing.T) {
	loan := newLoan()
	ok, reason := CanCloseInstallment(loan)
	assert.True(t, ok)
	assert.Empty(t, reason)

	loan.InstallmentsLeft = 0
	ok, reason = CanCloseInstallment(loan)
	assert.False(t, ok)
	assert.NotEmpty(t, reason)
}

func TestManualCloseInstallment(t *testing.T) {
	loan := newLoan()
	today := date(2025, time.August, 6)

	updated, err := ManualCloseInstallment(loan, ManualClosure{InstallmentNumber: 3, Note: "Settled offline"}, today)

	require.NoError(t, err)
	require.Len(t, updated.ClosedInstallments, 1)
	rec := updated.ClosedInstallments[0]
	assert.Equal(t, models.ClosureTypeManual, rec.ClosureType)
	assert.Empty(t, rec.PaymentID)
	assert.True(t, rec.PaymentAmount.IsZero())
	assert.False(t, rec.IsPartial)
	assert.Equal(t, today, rec.ClosedDate)
	assert.Equal(t, date(2025, time.August, 1), rec.DueDate)
	assert.Equal(t, "Settled offline", rec.Note)

	assert.True(t, updated.OpenBalance.Equal(loan.OpenBalance))
	assert.Equal(t, loan.InstallmentsLeft, updated.InstallmentsLeft)
	assert.Empty(t, loan.ClosedInstallments)

	c := installments.Classify(updated, today)
	for _, m := range c.Missed {
		assert.NotEqual(t, 3, m.InstallmentNumber)
	}
}

func TestManualCloseInstallment_OutOfRange(t *testing.T) {
	_, err := ManualCloseInstallment(newLoan(), ManualClosure{InstallmentNumber: 99}, date(2025, time.August, 6))
	assert.ErrorIs(t, err, ErrInstallmentOutOfRange)
}
