package main

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/fredCollect/pkg/installments"
	"github.com/mcclellann/fredCollect/pkg/ledger"
	"github.com/mcclellann/fredCollect/pkg/models"
	"github.com/mcclellann/fredCollect/pkg/reports"
	"github.com/mcclellann/fredCollect/pkg/schedule"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func (s *Server) createLoanHandler(w http.ResponseWriter, r *http.Request) {
	var in ledger.LoanInput
	if err := decode(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	loan, err := s.ledger.CreateLoan(in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, loan)
}

func (s *Server) getLoanHandler(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	loan, err := s.ledger.GetLoan(loanID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

func (s *Server) listLoansHandler(w http.ResponseWriter, r *http.Request) {
	loans, err := s.ledger.GetAllLoans()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loans)
}

func (s *Server) updateLoanHandler(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var in ledger.LoanInput
	if err := decode(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	loan, err := s.ledger.UpdateLoan(loanID, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

func (s *Server) deleteLoanHandler(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.ledger.DeleteLoan(loanID); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type loanSummary struct {
	Loan                *models.Loan              `json:"loan"`
	Status              string                    `json:"status"`
	NextDueDate         *time.Time                `json:"next_due_date,omitempty"`
	CanClose            bool                      `json:"can_close"`
	CannotCloseReason   string                    `json:"cannot_close_reason,omitempty"`
	NextInstallment     *installments.Installment `json:"next_installment,omitempty"`
	SuggestedPayment    decimal.Decimal           `json:"suggested_payment"`
	Fees                reports.LoanFees          `json:"fees"`
	OutstandingWithFees decimal.Decimal           `json:"outstanding_with_fees"`
}

// loanSummaryHandler gathers what the loan status board shows for one loan.
func (s *Server) loanSummaryHandler(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	today, err := s.today(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	loan, err := s.ledger.GetLoan(loanID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	payments, err := s.ledger.GetPaymentsForLoan(loanID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	summary := loanSummary{
		Loan:                loan,
		Status:              installments.LoanStatus(loan),
		Fees:                reports.FeesEarned(loan, payments),
		OutstandingWithFees: reports.OutstandingWithFees(loan, payments),
	}
	if due, ok := installments.NextDue(loan); ok {
		summary.NextDueDate = &due
	}
	summary.CanClose, summary.CannotCloseReason = ledger.CanCloseInstallment(loan)
	if next := installments.Classify(loan, today).Next; next != nil {
		summary.NextInstallment = next
		summary.SuggestedPayment = ledger.SuggestedPrincipal(loan, next.InstallmentNumber)
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) scheduleHandler(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	today, err := s.today(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	loan, err := s.ledger.GetLoan(loanID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, schedule.Calculate(loan.FirstInstallmentDate, loan.TotalInstallments, today))
}

func (s *Server) classifyHandler(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	today, err := s.today(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	c, err := s.ledger.Classify(loanID, today)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func resultStatus(code ledger.ResultCode) int {
	switch code {
	case ledger.CodeInvalidAmount:
		return http.StatusUnprocessableEntity
	case ledger.CodeLoanFullyPaid:
		return http.StatusConflict
	case ledger.CodeValidationFailed, ledger.CodeInvalidInstallment:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) closeInstallmentHandler(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	n, err := pathInstallment(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var data ledger.CloseInstallmentData
	if err := decode(r, &data); err != nil {
		s.fail(w, r, err)
		return
	}
	s.closeInstallment(w, r, loanID, n, data)
}

func (s *Server) closeInstallment(w http.ResponseWriter, r *http.Request, loanID uuid.UUID, n int, data ledger.CloseInstallmentData) {
	result, err := s.ledger.CloseInstallment(loanID, n, data)
	if err != nil {
		if errorStatus(err) != http.StatusInternalServerError {
			s.fail(w, r, err)
			return
		}
		s.log.Error("installment closure failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, result)
		return
	}
	if !result.Success {
		writeJSON(w, resultStatus(result.Error), result)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) manualCloseHandler(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	n, err := pathInstallment(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var mc ledger.ManualClosure
	if err := decode(r, &mc); err != nil {
		s.fail(w, r, err)
		return
	}
	mc.InstallmentNumber = n
	loan, err := s.ledger.ManualCloseInstallment(loanID, mc)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

func (s *Server) loanPaymentsHandler(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	payments, err := s.ledger.GetPaymentsForLoan(loanID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payments)
}
