package http

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"

	"expensemanager/internal/core"
	"expensemanager/internal/ledger"
	"expensemanager/internal/log"
	"expensemanager/internal/services"
)

const (
	msgInvalidAmount  = "Amount must be a positive number"
	msgInvalidDate    = "Date must be in YYYY-MM-DD format"
	msgBadRequest     = "Invalid request format"
	msgExpenseAdded   = "Expense added successfully!"
	msgExpenseDeleted = "Expense deleted successfully!"
	msgNoSelection    = "Please select an expense to delete"
	msgStaleSelection = "The expense list has changed, please select the expense again"
	msgSaveFailed     = "The change is kept in memory but could not be saved"
)

type indexPage struct {
	Today           string
	DefaultCategory string
	Categories      []string
	Table           tableView
	Stats           statisticsView
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if resp := RequireMethod(r, http.MethodGet, http.MethodHead); resp != nil {
		resp.Write(w)
		return
	}

	stats, _ := s.statistics(r.Context())
	s.render(w, r, "index.html", indexPage{
		Today:           core.Today().String(),
		DefaultCategory: core.DefaultCategory,
		Categories:      core.DefaultCategories,
		Table:           s.tableView(r),
		Stats:           stats,
	})
}

// handleCreateExpense appends one expense. A rejected amount or date leaves
// the ledger untouched and the form as typed.
func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()
	logger := log.FromContext(ctx).WithComponent(log.ComponentExpense)

	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		logger.WarnContext(ctx, "Parse form error",
			log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeValidation)
		BadRequestError(msgBadRequest).Write(w)
		return
	}

	in := ParseExpenseInput(p)
	exp, err := in.Expense(core.Today())
	if err != nil {
		s.writeValidationError(w, r, in, err)
		return
	}

	index, err := s.svc.AddExpense(ctx, exp)
	switch {
	case errors.Is(err, core.ErrInvalidAmount):
		s.writeValidationError(w, r, in, err)
		return
	case errors.Is(err, services.ErrPersist):
		InternalServerError(msgSaveFailed).
			TriggerErrorNotification(msgSaveFailed).
			TriggerLedgerChanged(s.svc.Revision()).
			Write(w)
		return
	case err != nil:
		log.NewStructuredLogger(logger).LogError(ctx, "Failed to add expense", err,
			log.ComponentExpense, log.OpCreate, log.NewFields().WithExpense(exp))
		InternalServerError("Error adding expense").Write(w)
		return
	}

	logger.DebugContext(ctx, "Expense added", log.FieldIndex, index)
	NewHTMXResponse().
		TriggerFormReset().
		TriggerLedgerChanged(s.svc.Revision()).
		TriggerSuccessNotification(msgExpenseAdded).
		BodyHTML(`<div class="success" role="status">` + msgExpenseAdded + `</div>`).
		Write(w)
}

func (s *Server) writeValidationError(w http.ResponseWriter, r *http.Request, in ExpenseInput, err error) {
	msg := msgInvalidAmount
	if errors.Is(err, core.ErrInvalidDate) {
		msg = msgInvalidDate
	}
	log.FromContext(r.Context()).WithComponent(log.ComponentExpense).WarnContext(r.Context(), "Expense validation failed",
		log.FieldError, err,
		log.FieldErrorType, log.ErrorTypeValidation,
		log.FieldAmount, in.Amount,
		log.FieldDate, in.Date)
	UnprocessableEntityError(msg).Write(w)
}

// handleDeleteExpense removes the selected row. The selection carries the
// revision the table was rendered at so a stale index never removes a row
// the user did not see.
func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if resp := RequireDeleteOrPOST(r); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()
	logger := log.FromContext(ctx).WithComponent(log.ComponentExpense)

	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		logger.WarnContext(ctx, "Parse form error", log.FieldError, err)
		BadRequestError(msgBadRequest).Write(w)
		return
	}

	sel, err := ParseSelection(p)
	if err != nil {
		logger.InfoContext(ctx, "Delete without selection",
			log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeSelection)
		WarningResponse(http.StatusBadRequest, msgNoSelection).
			TriggerWarningNotification(msgNoSelection).
			Write(w)
		return
	}

	var removed core.Expense
	if sel.HasRevision {
		removed, err = s.svc.DeleteSelected(ctx, sel.Index, sel.Revision)
	} else {
		removed, err = s.svc.DeleteAt(ctx, sel.Index)
	}

	switch {
	case errors.Is(err, services.ErrStaleSelection), errors.Is(err, ledger.ErrOutOfRange):
		logger.InfoContext(ctx, "Stale delete selection",
			log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeConflict,
			log.FieldIndex, sel.Index)
		WarningResponse(http.StatusConflict, msgStaleSelection).
			TriggerWarningNotification(msgStaleSelection).
			TriggerLedgerChanged(s.svc.Revision()).
			Write(w)
		return
	case errors.Is(err, services.ErrPersist):
		InternalServerError(msgSaveFailed).
			TriggerErrorNotification(msgSaveFailed).
			TriggerLedgerChanged(s.svc.Revision()).
			Write(w)
		return
	case err != nil:
		log.NewStructuredLogger(logger).LogError(ctx, "Failed to delete expense", err,
			log.ComponentExpense, log.OpDelete, log.NewFields().With(log.FieldIndex, sel.Index))
		InternalServerError("Error deleting expense").Write(w)
		return
	}

	NewHTMXResponse().
		TriggerLedgerChanged(s.svc.Revision()).
		TriggerSuccessNotification(msgExpenseDeleted).
		BodyHTML(fmt.Sprintf(`<div class="success" role="status">Deleted %s %s</div>`,
			template.HTMLEscapeString(removed.Category), template.HTMLEscapeString(removed.Amount.Format(s.currency)))).
		Write(w)
}
