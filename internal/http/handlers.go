package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"expensemanager/internal/core"
	"expensemanager/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).String(),
	})
}

// handleReady reports whether the page can be rendered and the last save
// reached persistence.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{})

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if err := s.svc.LastSaveError(); err != nil {
		checks["persistence"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["persistence"] = "ok"
	}

	checks["ledger"] = map[string]interface{}{
		"expenses": s.svc.Len(),
		"revision": s.svc.Revision(),
	}
	checks["cache"] = map[string]interface{}{
		"statistics_entries": s.statsCache.Size(),
	}
	checks["rate_limiter"] = map[string]interface{}{
		"active_clients": s.limiter.ActiveClients(),
	}

	writeJSON(w, r, httpStatus, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics writes counters in Prometheus text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	svcMetrics := s.svc.Metrics()
	traceMetrics := s.tracer.GetMetrics()
	rateLimitMetrics := s.limiter.GetMetrics()
	cacheStats := s.statsCache.Stats()

	w.WriteHeader(http.StatusOK)

	counter := func(name, help string, value int64) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n%s %d\n\n", name, help, name, name, value)
	}
	gauge := func(name, help string, value float64) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s gauge\n%s %g\n\n", name, help, name, name, value)
	}

	counter("http_requests_total", "Total number of HTTP requests", traceMetrics.TotalRequests)
	counter("http_client_errors_total", "Responses with a 4xx status", traceMetrics.ClientErrors)
	counter("http_server_errors_total", "Responses with a 5xx status", traceMetrics.ServerErrors)
	gauge("http_response_time_avg_ms", "Average response time", float64(traceMetrics.AverageResponseTime.Microseconds())/1000)

	counter("expenses_added_total", "Expenses appended", svcMetrics.Added)
	counter("expenses_deleted_total", "Expenses removed", svcMetrics.Deleted)
	counter("expense_validation_errors_total", "Rejected expense submissions", svcMetrics.ValidationErrors)
	counter("expense_save_errors_total", "Failed persistence writes", svcMetrics.SaveErrors)
	counter("ledger_event_publish_errors_total", "Failed ledger event publishes", svcMetrics.PublishErrors)
	gauge("expenses", "Expenses currently recorded", float64(s.svc.Len()))

	counter("cache_hits_total", "Statistics cache hits", cacheStats.Hits)
	counter("cache_misses_total", "Statistics cache misses", cacheStats.Misses)
	gauge("cache_entries", "Statistics cache entries", float64(cacheStats.Size))

	counter("rate_limit_hits_total", "Requests rejected by the rate limiter", rateLimitMetrics.Limited)
	gauge("active_rate_limit_clients", "Currently tracked rate limit clients", float64(rateLimitMetrics.ClientCount))

	gauge("uptime_seconds", "Application uptime in seconds", time.Since(s.started).Truncate(time.Second).Seconds())
}

type apiExpense struct {
	Index int `json:"index"`
	core.Expense
}

type apiExpenses struct {
	Revision uint64       `json:"revision"`
	Expenses []apiExpense `json:"expenses"`
}

type apiCategory struct {
	Name   string     `json:"name"`
	Amount core.Money `json:"amount"`
}

type apiStatistics struct {
	Revision   uint64        `json:"revision"`
	Currency   string        `json:"currency"`
	Count      int           `json:"count"`
	Total      core.Money    `json:"total"`
	ByCategory []apiCategory `json:"by_category"`
}

func (s *Server) handleAPIExpenses(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
	items, revision := s.svc.Snapshot(r.Context())
	out := apiExpenses{Revision: revision, Expenses: make([]apiExpense, 0, len(items))}
	for i, e := range items {
		out.Expenses = append(out.Expenses, apiExpense{Index: i, Expense: e})
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) handleAPIStatistics(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
	items, revision := s.svc.Snapshot(r.Context())
	stats := core.Summarize(items)
	out := apiStatistics{
		Revision:   revision,
		Currency:   s.currency,
		Count:      stats.Count,
		Total:      stats.Total,
		ByCategory: make([]apiCategory, 0, len(stats.ByCategory)),
	}
	for _, c := range stats.ByCategory {
		out.ByCategory = append(out.ByCategory, apiCategory{Name: c.Name, Amount: c.Amount})
	}
	writeJSON(w, r, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.FromContext(r.Context()).WithComponent(log.ComponentHTTP).WarnContext(r.Context(), "Failed to encode JSON response",
			log.FieldError, err,
			log.FieldPath, r.URL.Path)
	}
}
