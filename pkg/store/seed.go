package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/fredCollect/pkg/models"
	"github.com/shopspring/decimal"
)

// Seed loads the demo book: one client with a 15-week loan, the sister companies and a
// few staff users. It is meant for an empty store.
func Seed(s Storage, now time.Time) error {
	day := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

	clients := []*models.Client{
		{Name: "STU Enterprises", Email: "info@stuenterprises.com", Phone: "(555) 890-1234", AccountExecutive: "Amanda Martinez"},
	}
	for _, c := range clients {
		c.ID, c.CreatedAt = uuid.New(), now
		if err := s.CreateClient(c); err != nil {
			return fmt.Errorf("seed client %s: %w", c.Name, err)
		}
	}

	companies := []*models.SisterCompany{
		{Name: "Fuel Co", CompanyName: "Fuel Co", Email: "payments@fuelco.com", Phone: "555-0101"},
		{Name: "Equipment Co", CompanyName: "Equipment Co", Email: "finance@equipmentco.com", Phone: "555-0202"},
		{Name: "BJK Fuel", CompanyName: "BJK Fuel", Email: "accounts@bjkfuel.com", Phone: "555-0303"},
		{Name: "TDX", CompanyName: "TDX", Email: "payments@tdx.com", Phone: "555-0404"},
	}
	for _, c := range companies {
		c.ID, c.CreatedAt, c.Country = uuid.New(), now, "USA"
		if err := s.CreateSisterCompany(c); err != nil {
			return fmt.Errorf("seed sister company %s: %w", c.Name, err)
		}
	}

	users := []*models.User{
		{Username: "jsmith", Email: "john.smith@factoring.com", Role: "Account Executive", FirstName: "John", LastName: "Smith"},
		{Username: "sjohnson", Email: "sarah.johnson@factoring.com", Role: "Account Executive", FirstName: "Sarah", LastName: "Johnson"},
		{Username: "amartinez", Email: "amanda.martinez@factoring.com", Role: "Account Executive", FirstName: "Amanda", LastName: "Martinez"},
		{Username: "ops", Email: "operations@factoring.com", Role: "Operations Manager", FirstName: "Olivia", LastName: "Park"},
	}
	for _, u := range users {
		u.ID, u.CreatedAt, u.IsActive = uuid.New(), now, true
		if err := s.CreateUser(u); err != nil {
			return fmt.Errorf("seed user %s: %w", u.Username, err)
		}
	}

	loan := &models.Loan{
		ID:                   uuid.New(),
		LoanNumber:           "L000",
		ClientName:           "STU Enterprises",
		ProviderName:         "Fuel Co",
		LoanAmount:           decimal.NewFromInt(15000),
		TotalInstallments:    15,
		InstallmentsLeft:     15,
		OpenBalance:          decimal.NewFromInt(15000),
		InstallmentAmount:    decimal.NewFromInt(1050),
		FactoringFee:         decimal.NewFromInt(450),
		ProviderFee:          decimal.NewFromInt(300),
		LoanDate:             day(2025, time.July, 11),
		FirstInstallmentDate: day(2025, time.July, 18),
		ClosedInstallments:   []models.ClosedInstallment{},
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.CreateLoan(loan); err != nil {
		return fmt.Errorf("seed loan %s: %w", loan.LoanNumber, err)
	}
	return nil
}
