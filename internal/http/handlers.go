package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/services"
)

const (
	msgSaveFailed  = "Could not save the summary. Please try again."
	msgClearFailed = "Could not clear the data. Please try again."
	msgUnknown     = "No summaries recorded for that month."
	msgBadMonth    = "Months are written as MM/yyyy."
	msgRateLimited = "Too many requests. Please slow down."
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).String(),
	})
}

// handleReady reports whether the storage backend answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]string{"templates": "ok", "storage": "ok"}
	if err := s.ledger.Ping(ctx); err != nil {
		checks["storage"] = "failed: " + err.Error()
		status, code = "not_ready", http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleIndex renders the full page. A month query parameter moves the
// selection first; an empty value clears it.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var n *notice
	status := http.StatusOK
	if month, ok := monthParam(r.URL.Query()); ok {
		if err := s.ledger.Select(month); err != nil {
			msg := msgUnknown
			status = http.StatusNotFound
			if errors.Is(err, core.ErrInvalidMonthKey) {
				status, msg = http.StatusBadRequest, msgBadMonth
			}
			n = &notice{Kind: NotificationError, Message: msg}
		}
	}
	s.renderPage(w, r, status, n)
}

// handleSubmit records an entry and answers with the refreshed ledger.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		s.fail(w, r, http.StatusBadRequest, "Invalid request format", err, applog.OpSubmit)
		return
	}

	summary, err := s.ledger.Submit(r.Context(), parser.EntryInput())
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, msgSaveFailed, err, applog.OpSubmit)
		return
	}
	month := ""
	if t, ok := core.ParseDay(summary.Date); ok {
		month = core.MonthKeyOf(t)
	}

	if parser.IsJSON() || wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]any{"month": month, "summary": summary})
		return
	}
	if isHTMX(r) {
		s.writePartial(w, r, NewHTMXResponse().
			TriggerLedgerUpdated(month).
			TriggerFormReset().
			TriggerSuccessNotification("Summary saved"))
		return
	}
	s.renderPage(w, r, http.StatusOK, &notice{Kind: NotificationSuccess, Message: "Summary saved"})
}

// handleClear wipes every month and the running totals.
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.Clear(r.Context()); err != nil {
		s.fail(w, r, http.StatusInternalServerError, msgClearFailed, err, applog.OpClear)
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, s.ledger.View())
		return
	}
	if isHTMX(r) {
		s.writePartial(w, r, NewHTMXResponse().
			TriggerLedgerCleared().
			TriggerFormReset().
			TriggerSuccessNotification("Data cleared"))
		return
	}
	s.renderPage(w, r, http.StatusOK, &notice{Kind: NotificationSuccess, Message: "Data cleared"})
}

// handleSelect moves the view cursor to the posted month.
func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(w, r); resp != nil {
		resp.Write(w)
		return
	}
	month, _ := monthParam(r.PostForm)
	if err := s.ledger.Select(month); err != nil {
		if errors.Is(err, core.ErrInvalidMonthKey) {
			s.fail(w, r, http.StatusBadRequest, msgBadMonth, err, applog.OpSelect)
			return
		}
		if errors.Is(err, core.ErrUnknownMonth) {
			s.fail(w, r, http.StatusNotFound, msgUnknown, err, applog.OpSelect)
			return
		}
		s.fail(w, r, http.StatusInternalServerError, "Could not select the month.", err, applog.OpSelect)
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, s.ledger.View())
		return
	}
	if isHTMX(r) {
		s.writePartial(w, r, NewHTMXResponse().TriggerMonthSelected(month))
		return
	}
	s.renderPage(w, r, http.StatusOK, nil)
}

// handleAPILedger returns the current view as JSON.
func (s *Server) handleAPILedger(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ledger.View())
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	if wantsJSON(r) {
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": msgRateLimited})
		return
	}
	TooManyRequestsError(msgRateLimited).Write(w)
}

// fail logs err and answers with message in the shape the client expects.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, message string, err error, op string) {
	if status >= http.StatusInternalServerError {
		s.logs.LogError(r.Context(), "Request failed", err, applog.ComponentHTTP, op, nil)
	} else {
		applog.FromContext(r.Context()).DebugContext(r.Context(), "Request rejected",
			applog.FieldOperation, op, applog.FieldError, err.Error())
	}

	switch {
	case wantsJSON(r):
		writeJSON(w, status, map[string]string{"error": message})
	case isHTMX(r):
		ErrorResponse(status, message).Write(w)
	default:
		s.renderPage(w, r, status, &notice{Kind: NotificationError, Message: message})
	}
}

// renderPage writes index.html for the current view.
func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, n *notice) {
	data := newPageData(s.ledger.View())
	data.Notice = n
	body, err := s.execute("index.html", data)
	if err != nil {
		s.logs.LogError(r.Context(), "Template execution failed", err, applog.ComponentTemplate, applog.OpRender, nil)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	NewHTMXResponse().Status(status).BodyHTML(body).Write(w)
}

// writePartial renders the ledger partial into resp and sends it.
func (s *Server) writePartial(w http.ResponseWriter, r *http.Request, resp *HTMXResponseBuilder) {
	body, err := s.execute("ledger", newPageData(s.ledger.View()))
	if err != nil {
		s.logs.LogError(r.Context(), "Template execution failed", err, applog.ComponentTemplate, applog.OpRender, nil)
		InternalServerError("Could not render the ledger.").Write(w)
		return
	}
	resp.BodyHTML(body).Write(w)
}

// execute renders into a buffer so a failing template never sends a partial page.
func (s *Server) execute(name string, data pageData) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

var _ Ledger = (*services.LedgerService)(nil)
