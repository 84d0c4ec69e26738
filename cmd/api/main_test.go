package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mcclellann/fredCollect/pkg/installments"
	"github.com/mcclellann/fredCollect/pkg/ledger"
	"github.com/mcclellann/fredCollect/pkg/models"
	"github.com/mcclellann/fredCollect/pkg/reports"
	"github.com/mcclellann/fredCollect/pkg/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	s := NewServer(store.NewMemoryStore(), zap.NewNop())
	s.now = func() time.Time { return time.Date(2025, time.August, 6, 9, 30, 0, 0, time.UTC) }
	t.Cleanup(func() { s.storage.Close() })
	return s, s.routes()
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func createLoan(t *testing.T, h http.Handler) *models.Loan {
	t.Helper()
	rr := do(t, h, "POST", "/loans", map[string]any{
		"loan_number":            "L000",
		"client_name":            "STU Enterprises",
		"provider_name":          "Fuel Co",
		"loan_amount":            15000,
		"total_installments":     15,
		"factoring_fee":          450,
		"provider_fee":           300,
		"loan_date":              "2025-07-11T00:00:00Z",
		"first_installment_date": "2025-07-18T00:00:00Z",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	loan := decodeBody[models.Loan](t, rr)
	return &loan
}

func closeBody(principal float64) map[string]any {
	return map[string]any{
		"payment_amount":           principal,
		"factoring_fee":            30,
		"sister_company_fee":       20,
		"payment_date":             "2025-07-18T00:00:00Z",
		"transaction_type":         "ACH",
		"bank_confirmation_number": "ACH-1001",
		"company_name":             "Fuel Co",
	}
}

func TestAPI_CreateAndGetLoan(t *testing.T) {
	_, h := setupTestServer(t)

	loan := createLoan(t, h)
	assert.True(t, loan.InstallmentAmount.Equal(decimal.NewFromInt(1050)), loan.InstallmentAmount.String())
	assert.Equal(t, 15, loan.InstallmentsLeft)

	rr := do(t, h, "GET", "/loans/"+loan.ID.String(), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	got := decodeBody[models.Loan](t, rr)
	assert.Equal(t, "L000", got.LoanNumber)
	assert.True(t, got.OpenBalance.Equal(decimal.NewFromInt(15000)))
}

func TestAPI_CreateLoan_Invalid(t *testing.T) {
	_, h := setupTestServer(t)

	rr := do(t, h, "POST", "/loans", map[string]any{"loan_number": "L001"})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decodeBody[errorBody](t, rr).Error, "invalid loan")
}

func TestAPI_GetLoan_NotFoundAndBadID(t *testing.T) {
	_, h := setupTestServer(t)

	assert.Equal(t, http.StatusNotFound, do(t, h, "GET", "/loans/5f0c4a36-8d5e-4c8e-9d61-8f3b2c0b8a11", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, "GET", "/loans/not-a-uuid", nil).Code)
}

func TestAPI_CloseInstallment_FullThenPartial(t *testing.T) {
	_, h := setupTestServer(t)
	loan := createLoan(t, h)
	base := "/loans/" + loan.ID.String() + "/installments/"

	// WHEN: installment #1 is paid in full
	rr := do(t, h, "POST", base+"1/close", closeBody(1000))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	result := decodeBody[ledger.CloseInstallmentResult](t, rr)

	// THEN: the posted amount carries the sister company fee only
	require.True(t, result.Success)
	assert.True(t, result.NewPayment.PaymentAmount.Equal(decimal.NewFromInt(1020)))
	assert.True(t, result.UpdatedLoan.OpenBalance.Equal(decimal.NewFromInt(14000)))
	assert.Equal(t, 14, result.UpdatedLoan.InstallmentsLeft)

	// WHEN: installment #2 is paid partially
	rr = do(t, h, "POST", base+"2/close", closeBody(400))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	result = decodeBody[ledger.CloseInstallmentResult](t, rr)

	assert.True(t, result.Breakdown.IsPartial)
	assert.True(t, result.Breakdown.RemainingAmount.Equal(decimal.NewFromInt(600)))
	assert.Equal(t, 14, result.UpdatedLoan.InstallmentsLeft)

	rr = do(t, h, "GET", "/loans/"+loan.ID.String()+"/payments", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeBody[[]models.Payment](t, rr), 2)

	rr = do(t, h, "GET", "/loans/"+loan.ID.String(), nil)
	stored := decodeBody[models.Loan](t, rr)
	assert.True(t, stored.OpenBalance.Equal(decimal.NewFromInt(13600)), stored.OpenBalance.String())
	assert.Len(t, stored.ClosedInstallments, 2)
}

func TestAPI_CalendarDates(t *testing.T) {
	_, h := setupTestServer(t)

	// GIVEN: a loan whose dates are sent without a time of day
	rr := do(t, h, "POST", "/loans", map[string]any{
		"loan_number":            "L001",
		"client_name":            "ABC Trucking",
		"provider_name":          "Fuel Co",
		"loan_amount":            15000,
		"total_installments":     15,
		"factoring_fee":          450,
		"provider_fee":           300,
		"loan_date":              "2025-07-11",
		"first_installment_date": "2025-07-18",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	loan := decodeBody[models.Loan](t, rr)
	assert.True(t, loan.FirstInstallmentDate.Equal(time.Date(2025, time.July, 18, 0, 0, 0, 0, time.UTC)))

	// WHEN: an installment is closed with a calendar payment date
	body := closeBody(1000)
	body["payment_date"] = "2025-07-18"
	rr = do(t, h, "POST", "/loans/"+loan.ID.String()+"/installments/1/close", body)

	// THEN: it is accepted and dated that day
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	result := decodeBody[ledger.CloseInstallmentResult](t, rr)
	require.True(t, result.Success, result.Message)
	assert.True(t, result.NewPayment.DatePaid.Equal(time.Date(2025, time.July, 18, 0, 0, 0, 0, time.UTC)))

	body["payment_date"] = "07/18/2025"
	rr = do(t, h, "POST", "/loans/"+loan.ID.String()+"/installments/2/close", body)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAPI_CloseInstallment_Refusals(t *testing.T) {
	_, h := setupTestServer(t)
	loan := createLoan(t, h)
	base := "/loans/" + loan.ID.String() + "/installments/"

	missingBank := closeBody(1000)
	delete(missingBank, "bank_confirmation_number")

	tests := []struct {
		name   string
		path   string
		body   map[string]any
		status int
		code   ledger.ResultCode
	}{
		{"zero amount", base + "1/close", closeBody(0), http.StatusUnprocessableEntity, ledger.CodeInvalidAmount},
		{"validation", base + "1/close", missingBank, http.StatusBadRequest, ledger.CodeValidationFailed},
		{"out of range", base + "16/close", closeBody(1000), http.StatusBadRequest, ledger.CodeInvalidInstallment},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, "POST", tt.path, tt.body)

			assert.Equal(t, tt.status, rr.Code, rr.Body.String())
			result := decodeBody[ledger.CloseInstallmentResult](t, rr)
			assert.False(t, result.Success)
			assert.Equal(t, tt.code, result.Error)
		})
	}

	rr := do(t, h, "GET", "/loans/"+loan.ID.String()+"/payments", nil)
	assert.Empty(t, decodeBody[[]models.Payment](t, rr))
}

func TestAPI_CloseInstallment_UnknownLoan(t *testing.T) {
	_, h := setupTestServer(t)

	rr := do(t, h, "POST", "/loans/5f0c4a36-8d5e-4c8e-9d61-8f3b2c0b8a11/installments/1/close", closeBody(1000))

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAPI_ManualClose(t *testing.T) {
	_, h := setupTestServer(t)
	loan := createLoan(t, h)
	path := "/loans/" + loan.ID.String() + "/installments/3/manual-close"

	rr := do(t, h, "POST", path, map[string]any{"note": "Waived"})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = do(t, h, "POST", path, map[string]any{"note": "Waived", "confirmed": true})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	got := decodeBody[models.Loan](t, rr)
	require.Len(t, got.ClosedInstallments, 1)
	assert.Equal(t, models.ClosureTypeManual, got.ClosedInstallments[0].ClosureType)
	assert.Equal(t, 3, got.ClosedInstallments[0].InstallmentNumber)
	assert.True(t, got.OpenBalance.Equal(decimal.NewFromInt(15000)))
}

func TestAPI_ClassifyAndSummary(t *testing.T) {
	_, h := setupTestServer(t)
	loan := createLoan(t, h)
	require.Equal(t, http.StatusCreated, do(t, h, "POST", "/loans/"+loan.ID.String()+"/installments/1/close", closeBody(1000)).Code)

	rr := do(t, h, "GET", "/loans/"+loan.ID.String()+"/installments?today=2025-08-06", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	c := decodeBody[installments.Classification](t, rr)
	assert.Len(t, c.Closed, 1)
	assert.Len(t, c.Missed, 2)
	for _, m := range c.Missed {
		assert.Equal(t, installments.KindMissed, m.Kind)
	}

	rr = do(t, h, "GET", "/loans/"+loan.ID.String()+"/summary?today=2025-08-06", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	summary := decodeBody[loanSummary](t, rr)
	assert.Equal(t, installments.LoanStatusActive, summary.Status)
	assert.True(t, summary.CanClose)
	assert.True(t, summary.SuggestedPayment.Equal(decimal.NewFromInt(1000)))

	rr = do(t, h, "GET", "/loans/"+loan.ID.String()+"/schedule?today=bad", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAPI_Payments(t *testing.T) {
	_, h := setupTestServer(t)
	loan := createLoan(t, h)

	// GIVEN: an outgoing fuel payment
	rr := do(t, h, "POST", "/payments", map[string]any{
		"company_name":             "Fuel Co",
		"payment_type":             "Fuel",
		"payment_amount":           250,
		"transaction_type":         "Wire",
		"bank_confirmation_number": "W-77",
		"date_paid":                "2025-07-20T00:00:00Z",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	fuel := decodeBody[models.Payment](t, rr)
	assert.False(t, fuel.LoanID.Valid)

	// A loan payment without an installment is refused
	rr = do(t, h, "POST", "/payments", map[string]any{
		"company_name":   "Fuel Co",
		"payment_type":   "Loan",
		"payment_amount": 1000,
		"loan_id":        loan.ID.String(),
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	// A loan payment naming its installment is posted as a closure
	rr = do(t, h, "POST", "/payments", map[string]any{
		"company_name":             "Fuel Co",
		"payment_type":             "Loan",
		"payment_amount":           1000,
		"sister_company_fee":       20,
		"transaction_type":         "ACH",
		"bank_confirmation_number": "ACH-9",
		"date_paid":                "2025-07-18T00:00:00Z",
		"loan_id":                  loan.ID.String(),
		"installment_number":       1,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	result := decodeBody[ledger.CloseInstallmentResult](t, rr)
	assert.Equal(t, 1, result.NewPayment.InstallmentNumber)

	rr = do(t, h, "GET", "/payments", nil)
	assert.Len(t, decodeBody[[]models.Payment](t, rr), 2)

	rr = do(t, h, "DELETE", "/payments/"+fuel.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, "GET", "/payments/"+fuel.ID.String(), nil).Code)
}

func TestAPI_Dashboard(t *testing.T) {
	_, h := setupTestServer(t)
	loan := createLoan(t, h)
	require.Equal(t, http.StatusCreated, do(t, h, "POST", "/loans/"+loan.ID.String()+"/installments/1/close", closeBody(1000)).Code)

	rr := do(t, h, "GET", "/dashboard?from=2025-07-01&to=2025-07-31&today=2025-08-06", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	m := decodeBody[reports.DashboardMetrics](t, rr)
	assert.True(t, m.CollectedAmount.Equal(decimal.NewFromInt(1020)), m.CollectedAmount.String())
	assert.Equal(t, 1, m.ActiveLoanCount)
	assert.True(t, m.TotalPastDue.IsPositive())
}

func TestAPI_CompanySummaryExports(t *testing.T) {
	s, h := setupTestServer(t)
	require.NoError(t, store.Seed(s.storage, s.now()))

	rr := do(t, h, "GET", "/reports/company-summary", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	summaries := decodeBody[[]reports.CompanySummary](t, rr)
	require.Len(t, summaries, 1)
	assert.Equal(t, "Fuel Co", summaries[0].CompanyName)

	rr = do(t, h, "GET", "/reports/company-summary?format=xlsx", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, contentTypeXLSX, rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "company-summary-2025-08-06.xlsx")

	rr = do(t, h, "GET", "/reports/company-summary?format=pdf", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, bytes.HasPrefix(rr.Body.Bytes(), []byte("%PDF")))

	assert.Equal(t, http.StatusBadRequest, do(t, h, "GET", "/reports/company-summary?format=csv", nil).Code)
}

func TestAPI_Collections(t *testing.T) {
	s, h := setupTestServer(t)
	require.NoError(t, store.Seed(s.storage, s.now()))

	rr := do(t, h, "GET", "/collections/past-due?today=2025-08-06", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	queue := decodeBody[[]installments.PastDueLoan](t, rr)
	require.Len(t, queue, 1)
	assert.Equal(t, "Amanda Martinez", queue[0].AccountExecutive)

	rr = do(t, h, "GET", "/collections/past-due?today=2025-08-06&format=xlsx", nil)
	assert.Equal(t, contentTypeXLSX, rr.Header().Get("Content-Type"))

	rr = do(t, h, "GET", "/collections/due-this-week?today=2025-08-06", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeBody[[]installments.DueThisWeekLoan](t, rr), 1)
}

func TestAPI_ClientCRUD(t *testing.T) {
	_, h := setupTestServer(t)

	rr := do(t, h, "POST", "/clients", map[string]any{"name": "ABC Trucking", "account_executive": "John Smith"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	client := decodeBody[models.Client](t, rr)

	rr = do(t, h, "PUT", "/clients/"+client.ID.String(), map[string]any{"phone": "555-0199"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	updated := decodeBody[models.Client](t, rr)
	assert.Equal(t, "ABC Trucking", updated.Name)
	assert.Equal(t, "555-0199", updated.Phone)
	assert.Equal(t, client.ID, updated.ID)

	assert.Equal(t, http.StatusBadRequest, do(t, h, "POST", "/clients", map[string]any{"email": "x@y.z"}).Code)
	assert.Equal(t, http.StatusNoContent, do(t, h, "DELETE", "/clients/"+client.ID.String(), nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, "GET", "/clients/"+client.ID.String(), nil).Code)
}

type lockedStore struct {
	*store.MemoryStore
}

func (lockedStore) GetAllClients() ([]*models.Client, error) {
	return nil, errors.New("database is locked")
}

func TestAPI_ClientList_StoreFailure(t *testing.T) {
	// GIVEN: a store that fails on read
	s := NewServer(lockedStore{store.NewMemoryStore()}, zap.NewNop())
	t.Cleanup(func() { s.storage.Close() })

	rr := do(t, s.routes(), "GET", "/clients", nil)

	// THEN: the failure is reported without its internals
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	body := decodeBody[errorBody](t, rr)
	assert.Equal(t, "internal server error", body.Error)
	assert.NotContains(t, rr.Body.String(), "locked")
}
