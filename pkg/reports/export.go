package reports

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/mcclellann/fredCollect/pkg/installments"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

var summaryColumns = []string{
	"Company", "Loan", "Client", "Paid", "Overdue", "Factoring Fees", "Provider Fees", "Installments Left", "Open Balance",
}

func money(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

// sheet wraps an excelize workbook with a styled, frozen header row.
type sheet struct {
	file     *excelize.File
	name     string
	row      int
	currency int
}

func newSheet(name string, columns []string) (*sheet, error) {
	file := excelize.NewFile()
	if err := file.SetSheetName("Sheet1", name); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	header, err := file.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	currencyFmt := "$#,##0.00"
	currency, err := file.NewStyle(&excelize.Style{CustomNumFmt: &currencyFmt})
	if err != nil {
		return nil, fmt.Errorf("failed to create currency style: %w", err)
	}

	for i, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		file.SetCellValue(name, cell, col)
		file.SetCellStyle(name, cell, cell, header)
		colName, _ := excelize.ColumnNumberToName(i + 1)
		file.SetColWidth(name, colName, colName, 18)
	}
	file.SetPanes(name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
	return &sheet{file: file, name: name, row: 2, currency: currency}, nil
}

// add writes one row. decimal values are written as currency cells.
func (s *sheet) add(values ...any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, s.row)
		if d, ok := v.(decimal.Decimal); ok {
			s.file.SetCellValue(s.name, cell, money(d))
			s.file.SetCellStyle(s.name, cell, cell, s.currency)
			continue
		}
		s.file.SetCellValue(s.name, cell, v)
	}
	s.row++
}

func (s *sheet) write(w io.Writer) error {
	defer s.file.Close()
	if err := s.file.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// WriteCompanySummaryXLSX writes the company summary as an Excel workbook: one row per
// company total followed by its loan lines.
func WriteCompanySummaryXLSX(w io.Writer, summaries []CompanySummary) error {
	s, err := newSheet("Company Summary", summaryColumns)
	if err != nil {
		return err
	}
	for _, c := range summaries {
		s.add(c.CompanyName, "TOTAL", fmt.Sprintf("%d payments", c.PaymentCount),
			c.TotalPaidAmount, c.TotalOverdueAmount, c.TotalFactoringFees, c.TotalProviderFees, "", "")
		for _, l := range c.Loans {
			s.add(c.CompanyName, l.LoanNumber, l.ClientName,
				l.PaidAmount, l.OverdueAmount, l.FactoringFees, l.ProviderFees, l.InstallmentsLeft, l.OpenBalance)
		}
	}
	return s.write(w)
}

// WritePastDueXLSX writes the collections queue as an Excel workbook.
func WritePastDueXLSX(w io.Writer, queue []installments.PastDueLoan) error {
	s, err := newSheet("Past Due", []string{
		"Loan", "Client", "Provider", "Account Executive", "Missed", "Max Days Past", "Missed Principal", "Missed With Fees", "Open Balance",
	})
	if err != nil {
		return err
	}
	for _, p := range queue {
		s.add(p.Loan.LoanNumber, p.Loan.ClientName, p.Loan.ProviderName, p.AccountExecutive,
			p.TotalMissedCount, p.MaxDaysPast, p.TotalMissedPrincipal, p.TotalMissedAmount, p.Loan.OpenBalance)
	}
	return s.write(w)
}

// WriteCompanySummaryPDF renders the company summary as a landscape A4 table.
func WriteCompanySummaryPDF(w io.Writer, summaries []CompanySummary, generated time.Time) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(15, 20, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, "Company Summary", "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, "Generated "+generated.Format("2006-01-02 15:04"), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	widths := []float64{32, 20, 40, 28, 28, 28, 28, 24, 28}
	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(68, 114, 196)
	pdf.SetTextColor(255, 255, 255)
	for i, col := range summaryColumns {
		pdf.CellFormat(widths[i], 7, col, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetTextColor(0, 0, 0)
	amount := func(d decimal.Decimal) string { return "$" + d.StringFixed(2) }
	for _, c := range summaries {
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(242, 242, 242)
		cells := []string{c.CompanyName, "TOTAL", fmt.Sprintf("%d payments", c.PaymentCount),
			amount(c.TotalPaidAmount), amount(c.TotalOverdueAmount), amount(c.TotalFactoringFees), amount(c.TotalProviderFees), "", ""}
		for i, v := range cells {
			pdf.CellFormat(widths[i], 6, v, "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetFont("Arial", "", 9)
		for _, l := range c.Loans {
			cells := []string{"", l.LoanNumber, l.ClientName,
				amount(l.PaidAmount), amount(l.OverdueAmount), amount(l.FactoringFees), amount(l.ProviderFees),
				fmt.Sprintf("%d", l.InstallmentsLeft), amount(l.OpenBalance)}
			for i, v := range cells {
				pdf.CellFormat(widths[i], 6, v, "1", 0, "L", false, 0, "")
			}
			pdf.Ln(-1)
		}
	}
	if len(summaries) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.CellFormat(0, 8, "No payments or overdue balances for the selected filters.", "", 1, "L", false, 0, "")
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render pdf: %w", err)
	}
	return nil
}
