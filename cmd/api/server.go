package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/mcclellann/fredCollect/pkg/ledger"
	"github.com/mcclellann/fredCollect/pkg/schedule"
	"github.com/mcclellann/fredCollect/pkg/store"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

var errBadRequest = errors.New("bad request")

// Server holds the ledger instance.
type Server struct {
	ledger  *ledger.Ledger
	storage store.Storage // Keep a reference to the storage to close it
	log     *zap.Logger
	now     func() time.Time
}

func NewServer(s store.Storage, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		ledger:  ledger.NewLedger(s, log.Named("ledger")),
		storage: s,
		log:     log,
		now:     time.Now,
	}
}

func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()
	router.Use(s.logRequests)

	router.HandleFunc("/loans", s.listLoansHandler).Methods("GET")
	router.HandleFunc("/loans", s.createLoanHandler).Methods("POST")
	router.HandleFunc("/loans/{id}", s.getLoanHandler).Methods("GET")
	router.HandleFunc("/loans/{id}", s.updateLoanHandler).Methods("PUT")
	router.HandleFunc("/loans/{id}", s.deleteLoanHandler).Methods("DELETE")
	router.HandleFunc("/loans/{id}/summary", s.loanSummaryHandler).Methods("GET")
	router.HandleFunc("/loans/{id}/schedule", s.scheduleHandler).Methods("GET")
	router.HandleFunc("/loans/{id}/installments", s.classifyHandler).Methods("GET")
	router.HandleFunc("/loans/{id}/installments/{n}/close", s.closeInstallmentHandler).Methods("POST")
	router.HandleFunc("/loans/{id}/installments/{n}/manual-close", s.manualCloseHandler).Methods("POST")
	router.HandleFunc("/loans/{id}/payments", s.loanPaymentsHandler).Methods("GET")

	router.HandleFunc("/payments", s.listPaymentsHandler).Methods("GET")
	router.HandleFunc("/payments", s.createPaymentHandler).Methods("POST")
	router.HandleFunc("/payments/{id}", s.getPaymentHandler).Methods("GET")
	router.HandleFunc("/payments/{id}", s.updatePaymentHandler).Methods("PUT")
	router.HandleFunc("/payments/{id}", s.deletePaymentHandler).Methods("DELETE")

	s.clientResource().register(router, "/clients")
	s.sisterCompanyResource().register(router, "/sister-companies")
	s.userResource().register(router, "/users")

	router.HandleFunc("/dashboard", s.dashboardHandler).Methods("GET")
	router.HandleFunc("/collections/past-due", s.pastDueHandler).Methods("GET")
	router.HandleFunc("/collections/due-this-week", s.dueThisWeekHandler).Methods("GET")
	router.HandleFunc("/reports/company-summary", s.companySummaryHandler).Methods("GET")

	return router
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}

type errorBody struct {
	Error  string   `json:"error"`
	Errors []string `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, details ...string) {
	writeJSON(w, status, errorBody{Error: msg, Errors: details})
}

func errorStatus(err error) int {
	switch {
	case store.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrManualCloseNotConfirmed):
		return http.StatusConflict
	case ledger.IsClientError(err), errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with the status it maps to. Server errors are logged and not echoed.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, status, "internal server error")
		return
	}
	writeError(w, status, err.Error())
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	return nil
}

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid ID", errBadRequest)
	}
	return id, nil
}

func pathInstallment(r *http.Request) (int, error) {
	n, err := strconv.Atoi(mux.Vars(r)["n"])
	if err != nil {
		return 0, fmt.Errorf("%w: invalid installment number", errBadRequest)
	}
	return n, nil
}

// queryDate parses a YYYY-MM-DD query parameter. A missing parameter is the zero time.
func queryDate(r *http.Request, key string) (time.Time, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be YYYY-MM-DD", errBadRequest, key)
	}
	return t, nil
}

// today honours a ?today= override so past and future views can be inspected.
func (s *Server) today(r *http.Request) (time.Time, error) {
	t, err := queryDate(r, "today")
	if err != nil {
		return time.Time{}, err
	}
	if t.IsZero() {
		t = s.now()
	}
	return schedule.StartOfDay(t), nil
}
