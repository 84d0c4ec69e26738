package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcclellann/fredCollect/pkg/models"
	"go.uber.org/zap"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore manages the database connection and operations for SQLite.
type SQLiteStore struct {
	db  *sql.DB
	log *zap.Logger
}

// NewSQLiteStore creates a new SQLiteStore and initializes the database.
func NewSQLiteStore(dataSourceName string, log *zap.Logger) (*SQLiteStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}
	// One writer at a time; closures span several statements.
	db.SetMaxOpenConns(1)

	if _, err = db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err = db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}

	s := &SQLiteStore{db: db, log: log}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("could not initialize schema: %w", err)
	}
	log.Info("database connection established", zap.String("dsn", dataSourceName))
	return s, nil
}

// initSchema creates the tables if they don't already exist.
// Money columns are TEXT so no decimal precision is lost.
func (s *SQLiteStore) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS loans (
		id TEXT PRIMARY KEY,
		loan_number TEXT NOT NULL,
		client_name TEXT NOT NULL,
		provider_name TEXT NOT NULL,
		loan_amount TEXT NOT NULL,
		total_installments INTEGER NOT NULL,
		installments_left INTEGER NOT NULL,
		open_balance TEXT NOT NULL,
		installment_amount TEXT NOT NULL,
		factoring_fee TEXT NOT NULL DEFAULT '0',
		provider_fee TEXT NOT NULL DEFAULT '0',
		loan_date DATETIME NOT NULL,
		first_installment_date DATETIME NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS closed_installments (
		loan_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		installment_number INTEGER NOT NULL,
		due_date DATETIME NOT NULL,
		closed_date DATETIME NOT NULL,
		amount TEXT NOT NULL,
		payment_amount TEXT NOT NULL,
		payment_id TEXT NOT NULL DEFAULT '',
		note TEXT NOT NULL DEFAULT '',
		closure_type TEXT NOT NULL,
		is_partial INTEGER NOT NULL DEFAULT 0,
		remaining_amount TEXT NOT NULL DEFAULT '0',
		PRIMARY KEY (loan_id, seq),
		FOREIGN KEY(loan_id) REFERENCES loans(id) ON DELETE CASCADE
	);
	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		company_name TEXT NOT NULL,
		payment_type TEXT NOT NULL,
		loan_id TEXT,
		loan_number TEXT NOT NULL DEFAULT '',
		client_name TEXT NOT NULL DEFAULT '',
		installment_number INTEGER NOT NULL DEFAULT 0,
		payment_amount TEXT NOT NULL,
		transaction_type TEXT NOT NULL,
		bank_confirmation_number TEXT NOT NULL,
		date_paid DATETIME NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		factoring_fee TEXT NOT NULL DEFAULT '0',
		sister_company_fee TEXT NOT NULL DEFAULT '0',
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_payments_loan_id ON payments(loan_id);
	CREATE TABLE IF NOT EXISTS clients (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		account_executive TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS sister_companies (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		company_name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		city TEXT NOT NULL DEFAULT '',
		state TEXT NOT NULL DEFAULT '',
		zip_code TEXT NOT NULL DEFAULT '',
		country TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT '',
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

type scanner interface {
	Scan(dest ...any) error
}

func checkAffected(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}

const loanColumns = `id, loan_number, client_name, provider_name, loan_amount, total_installments, installments_left, open_balance, installment_amount, factoring_fee, provider_fee, loan_date, first_installment_date, created_at, updated_at`

// CreateLoan inserts a new loan and its closure records.
func (s *SQLiteStore) CreateLoan(loan *models.Loan) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO loans (`+loanColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		loan.ID.String(), loan.LoanNumber, loan.ClientName, loan.ProviderName, loan.LoanAmount, loan.TotalInstallments, loan.InstallmentsLeft,
		loan.OpenBalance, loan.InstallmentAmount, loan.FactoringFee, loan.ProviderFee, loan.LoanDate, loan.FirstInstallmentDate, loan.CreatedAt, loan.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create loan: %w", err)
	}
	if err := writeClosures(tx, loan); err != nil {
		return err
	}
	return tx.Commit()
}

func scanLoan(row scanner) (*models.Loan, error) {
	var loan models.Loan
	var idStr string
	err := row.Scan(&idStr, &loan.LoanNumber, &loan.ClientName, &loan.ProviderName, &loan.LoanAmount, &loan.TotalInstallments, &loan.InstallmentsLeft,
		&loan.OpenBalance, &loan.InstallmentAmount, &loan.FactoringFee, &loan.ProviderFee, &loan.LoanDate, &loan.FirstInstallmentDate, &loan.CreatedAt, &loan.UpdatedAt)
	if err != nil {
		return nil, err
	}
	loan.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid loan id %q: %w", idStr, err)
	}
	return &loan, nil
}

// GetLoan retrieves a loan by its ID together with its closure records.
func (s *SQLiteStore) GetLoan(id uuid.UUID) (*models.Loan, error) {
	loan, err := scanLoan(s.db.QueryRow(`SELECT `+loanColumns+` FROM loans WHERE id = ?`, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLoanNotFound
		}
		return nil, fmt.Errorf("failed to get loan: %w", err)
	}
	closures, err := s.closuresByLoan(loan.ID.String())
	if err != nil {
		return nil, err
	}
	loan.ClosedInstallments = closures[loan.ID.String()]
	return loan, nil
}

func updateLoanRow(ex execer, loan *models.Loan) error {
	result, err := ex.Exec(
		`UPDATE loans SET loan_number = ?, client_name = ?, provider_name = ?, loan_amount = ?, total_installments = ?, installments_left = ?, open_balance = ?,
		installment_amount = ?, factoring_fee = ?, provider_fee = ?, loan_date = ?, first_installment_date = ?, updated_at = ? WHERE id = ?`,
		loan.LoanNumber, loan.ClientName, loan.ProviderName, loan.LoanAmount, loan.TotalInstallments, loan.InstallmentsLeft, loan.OpenBalance,
		loan.InstallmentAmount, loan.FactoringFee, loan.ProviderFee, loan.LoanDate, loan.FirstInstallmentDate, loan.UpdatedAt, loan.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update loan: %w", err)
	}
	return checkAffected(result, ErrLoanNotFound)
}

// writeClosures replaces the stored closure records of loan with loan.ClosedInstallments.
func writeClosures(ex execer, loan *models.Loan) error {
	if _, err := ex.Exec(`DELETE FROM closed_installments WHERE loan_id = ?`, loan.ID.String()); err != nil {
		return fmt.Errorf("failed to clear closed installments: %w", err)
	}
	for seq, c := range loan.ClosedInstallments {
		_, err := ex.Exec(
			`INSERT INTO closed_installments (loan_id, seq, installment_number, due_date, closed_date, amount, payment_amount, payment_id, note, closure_type, is_partial, remaining_amount)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			loan.ID.String(), seq, c.InstallmentNumber, c.DueDate, c.ClosedDate, c.Amount, c.PaymentAmount, c.PaymentID, c.Note, string(c.ClosureType), c.IsPartial, c.RemainingAmount,
		)
		if err != nil {
			return fmt.Errorf("failed to write closed installment #%d: %w", c.InstallmentNumber, err)
		}
	}
	return nil
}

// UpdateLoan updates an existing loan and rewrites its closure records within a transaction.
func (s *SQLiteStore) UpdateLoan(loan *models.Loan) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := updateLoanRow(tx, loan); err != nil {
		return err
	}
	if err := writeClosures(tx, loan); err != nil {
		return err
	}
	return tx.Commit()
}

// ApplyClosure writes the updated loan, its closure records and the new payment in one transaction.
func (s *SQLiteStore) ApplyClosure(loan *models.Loan, payment *models.Payment) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := updateLoanRow(tx, loan); err != nil {
		return err
	}
	if err := writeClosures(tx, loan); err != nil {
		return err
	}
	if err := insertPayment(tx, payment); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit closure: %w", err)
	}
	s.log.Debug("closure persisted", zap.String("loan_id", loan.ID.String()), zap.String("payment_id", payment.ID.String()))
	return nil
}

// DeleteLoan removes a loan and its closure records within a transaction.
// Payments keep their loan reference so the collection history survives.
func (s *SQLiteStore) DeleteLoan(id uuid.UUID) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err = tx.Exec(`DELETE FROM closed_installments WHERE loan_id = ?`, id.String()); err != nil {
		return fmt.Errorf("failed to delete closed installments: %w", err)
	}
	result, err := tx.Exec(`DELETE FROM loans WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete loan: %w", err)
	}
	if err := checkAffected(result, ErrLoanNotFound); err != nil {
		return err
	}
	return tx.Commit()
}

// GetAllLoans retrieves all loans ordered by loan number.
func (s *SQLiteStore) GetAllLoans() ([]*models.Loan, error) {
	rows, err := s.db.Query(`SELECT ` + loanColumns + ` FROM loans ORDER BY loan_number, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all loans: %w", err)
	}
	defer rows.Close()

	var loans []*models.Loan
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan loan row: %w", err)
		}
		loans = append(loans, loan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}

	closures, err := s.closuresByLoan("")
	if err != nil {
		return nil, err
	}
	for _, loan := range loans {
		loan.ClosedInstallments = closures[loan.ID.String()]
	}
	return loans, nil
}

// closuresByLoan loads closure records grouped by loan id, in ledger order.
// An empty loanID loads every loan's records.
func (s *SQLiteStore) closuresByLoan(loanID string) (map[string][]models.ClosedInstallment, error) {
	query := `SELECT loan_id, installment_number, due_date, closed_date, amount, payment_amount, payment_id, note, closure_type, is_partial, remaining_amount FROM closed_installments`
	var args []any
	if loanID != "" {
		query += ` WHERE loan_id = ?`
		args = append(args, loanID)
	}
	query += ` ORDER BY loan_id, seq`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get closed installments: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]models.ClosedInstallment)
	for rows.Next() {
		var id, closureType string
		var c models.ClosedInstallment
		if err := rows.Scan(&id, &c.InstallmentNumber, &c.DueDate, &c.ClosedDate, &c.Amount, &c.PaymentAmount, &c.PaymentID, &c.Note, &closureType, &c.IsPartial, &c.RemainingAmount); err != nil {
			return nil, fmt.Errorf("failed to scan closed installment row: %w", err)
		}
		c.ClosureType = models.ClosureType(closureType)
		out[id] = append(out[id], c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration for closed installments: %w", err)
	}
	return out, nil
}

const paymentColumns = `id, company_name, payment_type, loan_id, loan_number, client_name, installment_number, payment_amount, transaction_type, bank_confirmation_number, date_paid, notes, factoring_fee, sister_company_fee, created_at`

func nullableLoanID(id uuid.NullUUID) sql.NullString {
	if !id.Valid {
		return sql.NullString{}
	}
	return sql.NullString{String: id.UUID.String(), Valid: true}
}

func insertPayment(ex execer, p *models.Payment) error {
	_, err := ex.Exec(
		`INSERT INTO payments (`+paymentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID.String(), p.CompanyName, string(p.PaymentType), nullableLoanID(p.LoanID), p.LoanNumber, p.ClientName, p.InstallmentNumber, p.PaymentAmount,
		string(p.TransactionType), p.BankConfirmationNumber, p.DatePaid, p.Notes, p.FactoringFee, p.SisterCompanyFee, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

func scanPayment(row scanner) (*models.Payment, error) {
	var p models.Payment
	var idStr, paymentType, transactionType string
	var loanID sql.NullString
	err := row.Scan(&idStr, &p.CompanyName, &paymentType, &loanID, &p.LoanNumber, &p.ClientName, &p.InstallmentNumber, &p.PaymentAmount,
		&transactionType, &p.BankConfirmationNumber, &p.DatePaid, &p.Notes, &p.FactoringFee, &p.SisterCompanyFee, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	if p.ID, err = uuid.Parse(idStr); err != nil {
		return nil, fmt.Errorf("invalid payment id %q: %w", idStr, err)
	}
	if loanID.Valid {
		parsed, err := uuid.Parse(loanID.String)
		if err != nil {
			return nil, fmt.Errorf("invalid loan id %q on payment %s: %w", loanID.String, idStr, err)
		}
		p.LoanID = uuid.NullUUID{UUID: parsed, Valid: true}
	}
	p.PaymentType = models.PaymentType(paymentType)
	p.TransactionType = models.TransactionType(transactionType)
	return &p, nil
}

func (s *SQLiteStore) queryPayments(query string, args ...any) ([]*models.Payment, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get payments: %w", err)
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment row: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration for payments: %w", err)
	}
	return payments, nil
}

// CreatePayment inserts a payment that is not tied to an installment closure.
func (s *SQLiteStore) CreatePayment(payment *models.Payment) error {
	return insertPayment(s.db, payment)
}

// GetPayment retrieves a payment by its ID.
func (s *SQLiteStore) GetPayment(id uuid.UUID) (*models.Payment, error) {
	p, err := scanPayment(s.db.QueryRow(`SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return p, nil
}

// UpdatePayment overwrites an existing payment.
func (s *SQLiteStore) UpdatePayment(p *models.Payment) error {
	result, err := s.db.Exec(
		`UPDATE payments SET company_name = ?, payment_type = ?, loan_id = ?, loan_number = ?, client_name = ?, installment_number = ?, payment_amount = ?,
		transaction_type = ?, bank_confirmation_number = ?, date_paid = ?, notes = ?, factoring_fee = ?, sister_company_fee = ? WHERE id = ?`,
		p.CompanyName, string(p.PaymentType), nullableLoanID(p.LoanID), p.LoanNumber, p.ClientName, p.InstallmentNumber, p.PaymentAmount,
		string(p.TransactionType), p.BankConfirmationNumber, p.DatePaid, p.Notes, p.FactoringFee, p.SisterCompanyFee, p.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}
	return checkAffected(result, ErrPaymentNotFound)
}

// DeletePayment removes a payment.
func (s *SQLiteStore) DeletePayment(id uuid.UUID) error {
	result, err := s.db.Exec(`DELETE FROM payments WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete payment: %w", err)
	}
	return checkAffected(result, ErrPaymentNotFound)
}

// GetAllPayments retrieves every payment, oldest first.
func (s *SQLiteStore) GetAllPayments() ([]*models.Payment, error) {
	return s.queryPayments(`SELECT ` + paymentColumns + ` FROM payments ORDER BY date_paid ASC, created_at ASC`)
}

// GetPaymentsForLoan retrieves all payments for a given loan ID, oldest first.
func (s *SQLiteStore) GetPaymentsForLoan(loanID uuid.UUID) ([]*models.Payment, error) {
	return s.queryPayments(`SELECT `+paymentColumns+` FROM payments WHERE loan_id = ? ORDER BY date_paid ASC, created_at ASC`, loanID.String())
}

// CreateClient inserts a client.
func (s *SQLiteStore) CreateClient(c *models.Client) error {
	_, err := s.db.Exec(`INSERT INTO clients (id, name, email, phone, account_executive, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID.String(), c.Name, c.Email, c.Phone, c.AccountExecutive, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	return nil
}

func scanClient(row scanner) (*models.Client, error) {
	var c models.Client
	var idStr string
	if err := row.Scan(&idStr, &c.Name, &c.Email, &c.Phone, &c.AccountExecutive, &c.CreatedAt); err != nil {
		return nil, err
	}
	var err error
	c.ID, err = uuid.Parse(idStr)
	return &c, err
}

// GetClient retrieves a client by its ID.
func (s *SQLiteStore) GetClient(id uuid.UUID) (*models.Client, error) {
	c, err := scanClient(s.db.QueryRow(`SELECT id, name, email, phone, account_executive, created_at FROM clients WHERE id = ?`, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return c, nil
}

// UpdateClient overwrites an existing client.
func (s *SQLiteStore) UpdateClient(c *models.Client) error {
	result, err := s.db.Exec(`UPDATE clients SET name = ?, email = ?, phone = ?, account_executive = ? WHERE id = ?`,
		c.Name, c.Email, c.Phone, c.AccountExecutive, c.ID.String())
	if err != nil {
		return fmt.Errorf("failed to update client: %w", err)
	}
	return checkAffected(result, ErrClientNotFound)
}

// DeleteClient removes a client.
func (s *SQLiteStore) DeleteClient(id uuid.UUID) error {
	result, err := s.db.Exec(`DELETE FROM clients WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete client: %w", err)
	}
	return checkAffected(result, ErrClientNotFound)
}

// GetAllClients retrieves every client ordered by name.
func (s *SQLiteStore) GetAllClients() ([]*models.Client, error) {
	rows, err := s.db.Query(`SELECT id, name, email, phone, account_executive, created_at FROM clients ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all clients: %w", err)
	}
	defer rows.Close()

	var clients []*models.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan client row: %w", err)
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

const companyColumns = `id, name, company_name, email, phone, address, city, state, zip_code, country, created_at`

// CreateSisterCompany inserts a sister company.
func (s *SQLiteStore) CreateSisterCompany(c *models.SisterCompany) error {
	_, err := s.db.Exec(`INSERT INTO sister_companies (`+companyColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID.String(), c.Name, c.CompanyName, c.Email, c.Phone, c.Address, c.City, c.State, c.ZipCode, c.Country, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create sister company: %w", err)
	}
	return nil
}

func scanSisterCompany(row scanner) (*models.SisterCompany, error) {
	var c models.SisterCompany
	var idStr string
	if err := row.Scan(&idStr, &c.Name, &c.CompanyName, &c.Email, &c.Phone, &c.Address, &c.City, &c.State, &c.ZipCode, &c.Country, &c.CreatedAt); err != nil {
		return nil, err
	}
	var err error
	c.ID, err = uuid.Parse(idStr)
	return &c, err
}

// GetSisterCompany retrieves a sister company by its ID.
func (s *SQLiteStore) GetSisterCompany(id uuid.UUID) (*models.SisterCompany, error) {
	c, err := scanSisterCompany(s.db.QueryRow(`SELECT `+companyColumns+` FROM sister_companies WHERE id = ?`, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSisterCompanyNotFound
		}
		return nil, fmt.Errorf("failed to get sister company: %w", err)
	}
	return c, nil
}

// UpdateSisterCompany overwrites an existing sister company.
func (s *SQLiteStore) UpdateSisterCompany(c *models.SisterCompany) error {
	result, err := s.db.Exec(
		`UPDATE sister_companies SET name = ?, company_name = ?, email = ?, phone = ?, address = ?, city = ?, state = ?, zip_code = ?, country = ? WHERE id = ?`,
		c.Name, c.CompanyName, c.Email, c.Phone, c.Address, c.City, c.State, c.ZipCode, c.Country, c.ID.String())
	if err != nil {
		return fmt.Errorf("failed to update sister company: %w", err)
	}
	return checkAffected(result, ErrSisterCompanyNotFound)
}

// DeleteSisterCompany removes a sister company.
func (s *SQLiteStore) DeleteSisterCompany(id uuid.UUID) error {
	result, err := s.db.Exec(`DELETE FROM sister_companies WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete sister company: %w", err)
	}
	return checkAffected(result, ErrSisterCompanyNotFound)
}

// GetAllSisterCompanies retrieves every sister company ordered by name.
func (s *SQLiteStore) GetAllSisterCompanies() ([]*models.SisterCompany, error) {
	rows, err := s.db.Query(`SELECT ` + companyColumns + ` FROM sister_companies ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all sister companies: %w", err)
	}
	defer rows.Close()

	var companies []*models.SisterCompany
	for rows.Next() {
		c, err := scanSisterCompany(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sister company row: %w", err)
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

const userColumns = `id, username, email, role, first_name, last_name, is_active, created_at`

// CreateUser inserts a user.
func (s *SQLiteStore) CreateUser(u *models.User) error {
	_, err := s.db.Exec(`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID.String(), u.Username, u.Email, u.Role, u.FirstName, u.LastName, u.IsActive, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func scanUser(row scanner) (*models.User, error) {
	var u models.User
	var idStr string
	if err := row.Scan(&idStr, &u.Username, &u.Email, &u.Role, &u.FirstName, &u.LastName, &u.IsActive, &u.CreatedAt); err != nil {
		return nil, err
	}
	var err error
	u.ID, err = uuid.Parse(idStr)
	return &u, err
}

// GetUser retrieves a user by its ID.
func (s *SQLiteStore) GetUser(id uuid.UUID) (*models.User, error) {
	u, err := scanUser(s.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE id = ?`, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// UpdateUser overwrites an existing user.
func (s *SQLiteStore) UpdateUser(u *models.User) error {
	result, err := s.db.Exec(`UPDATE users SET username = ?, email = ?, role = ?, first_name = ?, last_name = ?, is_active = ? WHERE id = ?`,
		u.Username, u.Email, u.Role, u.FirstName, u.LastName, u.IsActive, u.ID.String())
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return checkAffected(result, ErrUserNotFound)
}

// DeleteUser removes a user.
func (s *SQLiteStore) DeleteUser(id uuid.UUID) error {
	result, err := s.db.Exec(`DELETE FROM users WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return checkAffected(result, ErrUserNotFound)
}

// GetAllUsers retrieves every user ordered by username.
func (s *SQLiteStore) GetAllUsers() ([]*models.User, error) {
	rows, err := s.db.Query(`SELECT ` + userColumns + ` FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
