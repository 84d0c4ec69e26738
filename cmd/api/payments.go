package main

import (
	"net/http"

	"github.com/mcclellann/fredCollect/pkg/ledger"
	"github.com/mcclellann/fredCollect/pkg/models"
)

func (s *Server) listPaymentsHandler(w http.ResponseWriter, r *http.Request) {
	payments, err := s.ledger.GetAllPayments()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payments)
}

// createPaymentHandler records a payment. A Loan payment names its loan and installment and
// is posted through the installment closure; its payment_amount is the principal collected.
func (s *Server) createPaymentHandler(w http.ResponseWriter, r *http.Request) {
	var p models.Payment
	if err := decode(r, &p); err != nil {
		s.fail(w, r, err)
		return
	}

	if p.PaymentType == models.PaymentTypeLoan {
		if !p.LoanID.Valid || p.InstallmentNumber <= 0 {
			s.fail(w, r, ledger.ErrLoanPaymentNeedsInstallment)
			return
		}
		s.closeInstallment(w, r, p.LoanID.UUID, p.InstallmentNumber, ledger.CloseInstallmentData{
			PaymentAmount:          p.PaymentAmount,
			FactoringFee:           p.FactoringFee,
			SisterCompanyFee:       p.SisterCompanyFee,
			PaymentDate:            p.DatePaid,
			TransactionType:        p.TransactionType,
			BankConfirmationNumber: p.BankConfirmationNumber,
			Notes:                  p.Notes,
			CompanyName:            p.CompanyName,
		})
		return
	}

	payment, err := s.ledger.RecordPayment(&p)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, payment)
}

func (s *Server) getPaymentHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	payment, err := s.ledger.GetPayment(id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

func (s *Server) updatePaymentHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var p models.Payment
	if err := decode(r, &p); err != nil {
		s.fail(w, r, err)
		return
	}
	payment, err := s.ledger.UpdatePayment(id, &p)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

func (s *Server) deletePaymentHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.ledger.DeletePayment(id); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
