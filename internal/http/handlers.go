package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"prestiti/internal/core"
	"prestiti/internal/rows"
)

func (s *Server) handleUserCredits(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("user_id"), 10, 64)
	if err != nil {
		writeError(w, core.Errf(core.KindInvalidFormat, "Invalid user id."), nil)
		return
	}

	st, err := s.statements.UserStatement(r.Context(), id)
	if err != nil {
		s.logDomainError(r, "statement", err)
		writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handlePlansPerformance(w http.ResponseWriter, r *http.Request) {
	out, err := s.performance.PlansPerformance(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		s.logDomainError(r, "plans_performance", err)
		writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"performance_data": out})
}

type importRequest struct {
	Rows []map[string]any `json:"rows"`
}

type importFunc func(r *http.Request, set rows.Set) error

func (s *Server) handleImport(op string, detail string, do importFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req importRequest
		if err := parseJSON(r, &req); err != nil {
			writeError(w, core.Errf(core.KindInvalidFormat, "Invalid request body."), nil)
			return
		}

		if err := do(r, rows.FromRecords(req.Rows)); err != nil {
			s.logDomainError(r, op, err)
			writeError(w, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"detail": detail})
	}
}

func (s *Server) handleImportPayments(w http.ResponseWriter, r *http.Request) {
	var payments []core.Payment
	if err := parseJSON(r, &payments); err != nil {
		writeError(w, core.Errf(core.KindInvalidFormat, "Invalid request body."), nil)
		return
	}

	imported, err := s.importer.ImportPayments(r.Context(), payments)
	if err != nil {
		s.logDomainError(r, "import_payments", err)
		writeError(w, err, map[string]any{"imported": imported})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"detail":   "Payments imported successfully.",
		"imported": imported,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.Ping(r.Context()); err != nil {
		slog.ErrorContext(r.Context(), "Readiness check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// logDomainError keeps the wrapped cause in the logs; clients only ever see
// the kinded message.
func (s *Server) logDomainError(r *http.Request, op string, err error) {
	if core.KindOf(err) == core.KindInternal {
		slog.ErrorContext(r.Context(), "Operation failed", "operation", op, "error", err)
		return
	}
	slog.WarnContext(r.Context(), "Request rejected", "operation", op, "reason", err.Error())
}
