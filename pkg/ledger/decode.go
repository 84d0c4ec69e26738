package ledger

import (
	"encoding/json"

	"github.com/mcclellann/fredCollect/pkg/schedule"
)

// Request dates may be sent as "2025-07-18" or as RFC 3339 timestamps.

func (in *LoanInput) UnmarshalJSON(b []byte) error {
	type plain LoanInput
	aux := struct {
		*plain
		LoanDate             schedule.Date `json:"loan_date"`
		FirstInstallmentDate schedule.Date `json:"first_installment_date"`
	}{
		plain:                (*plain)(in),
		LoanDate:             schedule.Date{Time: in.LoanDate},
		FirstInstallmentDate: schedule.Date{Time: in.FirstInstallmentDate},
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	in.LoanDate = aux.LoanDate.Time
	in.FirstInstallmentDate = aux.FirstInstallmentDate.Time
	return nil
}

func (d *CloseInstallmentData) UnmarshalJSON(b []byte) error {
	type plain CloseInstallmentData
	aux := struct {
		*plain
		PaymentDate schedule.Date `json:"payment_date"`
	}{plain: (*plain)(d), PaymentDate: schedule.Date{Time: d.PaymentDate}}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	d.PaymentDate = aux.PaymentDate.Time
	return nil
}

func (mc *ManualClosure) UnmarshalJSON(b []byte) error {
	type plain ManualClosure
	aux := struct {
		*plain
		ClosedDate schedule.Date `json:"closed_date"`
	}{plain: (*plain)(mc), ClosedDate: schedule.Date{Time: mc.ClosedDate}}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	mc.ClosedDate = aux.ClosedDate.Time
	return nil
}
