package ledger

import "strings"

// ValidationResult lists every problem found in a closure request.
type ValidationResult struct {
	IsValid bool     `json:"is_valid"`
	Errors  []string `json:"errors,omitempty"`
}

// ValidateCloseInstallmentData checks the entered closure fields. It reports all problems at once.
func ValidateCloseInstallmentData(data CloseInstallmentData) ValidationResult {
	var errs []string
	if !data.PaymentAmount.IsPositive() {
		errs = append(errs, "Payment amount is required and must be greater than 0")
	}
	if data.PaymentDate.IsZero() {
		errs = append(errs, "Payment date is required")
	}
	if !data.TransactionType.Valid() {
		errs = append(errs, "Transaction type is required")
	}
	if strings.TrimSpace(data.BankConfirmationNumber) == "" {
		errs = append(errs, "Bank confirmation number is required")
	}
	if strings.TrimSpace(data.CompanyName) == "" {
		errs = append(errs, "Company name is required")
	}
	if data.FactoringFee.IsNegative() {
		errs = append(errs, "Factoring fee cannot be negative")
	}
	if data.SisterCompanyFee.IsNegative() {
		errs = append(errs, "Sister company fee cannot be negative")
	}
	return ValidationResult{IsValid: len(errs) == 0, Errors: errs}
}
