package http

import (
	"net/http"
)

// tableView is the expense table as rendered at one revision. The revision
// travels with the delete form.
type tableView struct {
	Revision uint64
	Rows     []expenseRow
}

func (s *Server) tableView(r *http.Request) tableView {
	items, revision := s.svc.Snapshot(r.Context())
	return tableView{
		Revision: revision,
		Rows:     expenseRows(items, s.currency),
	}
}

// handleExpenseTable renders the table partial in store order.
func (s *Server) handleExpenseTable(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
	s.render(w, r, "expense_table", s.tableView(r))
}

// handleStatistics renders the totals partial.
func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
	view, _ := s.statistics(r.Context())
	s.render(w, r, "statistics", view)
}
