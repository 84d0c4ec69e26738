package main

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/mcclellann/fredCollect/pkg/reports"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypePDF  = "application/pdf"
)

func (s *Server) dashboardHandler(w http.ResponseWriter, r *http.Request) {
	today, err := s.today(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var dr reports.DateRange
	if dr.From, err = queryDate(r, "from"); err != nil {
		s.fail(w, r, err)
		return
	}
	if dr.To, err = queryDate(r, "to"); err != nil {
		s.fail(w, r, err)
		return
	}
	loans, err := s.ledger.GetAllLoans()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	payments, err := s.ledger.GetAllPayments()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reports.AggregateDashboardMetrics(loans, payments, dr, today))
}

func (s *Server) pastDueHandler(w http.ResponseWriter, r *http.Request) {
	today, err := s.today(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	queue, err := s.ledger.PastDueLoans(today)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		writeJSON(w, http.StatusOK, queue)
	case "xlsx":
		s.writeFile(w, r, contentTypeXLSX, "past-due-"+today.Format(dateLayout)+".xlsx", func(buf *bytes.Buffer) error {
			return reports.WritePastDueXLSX(buf, queue)
		})
	default:
		s.fail(w, r, fmt.Errorf("%w: unsupported format %q", errBadRequest, format))
	}
}

func (s *Server) dueThisWeekHandler(w http.ResponseWriter, r *http.Request) {
	today, err := s.today(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	due, err := s.ledger.DueThisWeekLoans(today)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, due)
}

func (s *Server) companySummaryHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := reports.Filters{
		ClientName:    q.Get("client"),
		SisterCompany: q.Get("sister_company"),
	}
	var err error
	if f.DateFrom, err = queryDate(r, "from"); err != nil {
		s.fail(w, r, err)
		return
	}
	if f.DateTo, err = queryDate(r, "to"); err != nil {
		s.fail(w, r, err)
		return
	}

	loans, err := s.ledger.GetAllLoans()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	payments, err := s.ledger.GetAllPayments()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	companies, err := s.storage.GetAllSisterCompanies()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	summaries := reports.SummarizeByCompany(loans, payments, companies, f)

	stamp := s.now().Format(dateLayout)
	switch format := q.Get("format"); format {
	case "", "json":
		writeJSON(w, http.StatusOK, summaries)
	case "xlsx":
		s.writeFile(w, r, contentTypeXLSX, "company-summary-"+stamp+".xlsx", func(buf *bytes.Buffer) error {
			return reports.WriteCompanySummaryXLSX(buf, summaries)
		})
	case "pdf":
		s.writeFile(w, r, contentTypePDF, "company-summary-"+stamp+".pdf", func(buf *bytes.Buffer) error {
			return reports.WriteCompanySummaryPDF(buf, summaries, s.now())
		})
	default:
		s.fail(w, r, fmt.Errorf("%w: unsupported format %q", errBadRequest, format))
	}
}

// writeFile renders into a buffer first so a failed export still gets a JSON error.
func (s *Server) writeFile(w http.ResponseWriter, r *http.Request, contentType, filename string, render func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		s.fail(w, r, fmt.Errorf("failed to export %s: %w", filename, err))
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
