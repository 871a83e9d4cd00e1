// Package sheets mirrors the ledger into a spreadsheet. The mirror is a
// downstream copy: it is overwritten from ledger snapshots and never read
// back into the application.
package sheets

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"expensemanager/internal/core"
)

// Mirror receives the full ledger and replaces whatever it held before.
type Mirror interface {
	ReplaceAll(ctx context.Context, expenses []core.Expense) error
}

// Header is the first row written to the sheet.
var Header = []any{"Date", "Category", "Amount", "Description"}

// ToRows encodes expenses as sheet rows, header first.
func ToRows(expenses []core.Expense) [][]any {
	rows := make([][]any, 0, len(expenses)+1)
	rows = append(rows, Header)
	for _, e := range expenses {
		rows = append(rows, []any{e.Date.String(), e.Category, e.Amount.String(), e.Description})
	}
	return rows
}

// FromRows decodes rows produced by ToRows. A leading header row is skipped,
// blank rows are ignored.
func FromRows(values [][]any) ([]core.Expense, error) {
	expenses := []core.Expense{}
	for i, row := range values {
		cells := toStrings(row)
		if i == 0 && len(cells) > 0 && strings.EqualFold(cells[0], "Date") {
			continue
		}
		if isBlank(cells) {
			continue
		}
		d, err := core.ParseDate(safeGet(cells, 0))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		amount, err := decimal.NewFromString(safeGet(cells, 2))
		if err != nil {
			return nil, fmt.Errorf("row %d: amount %q: %w", i+1, safeGet(cells, 2), err)
		}
		expenses = append(expenses, core.Expense{
			Date:        d,
			Category:    safeGet(cells, 1),
			Amount:      core.Money{Decimal: amount},
			Description: safeGet(cells, 3),
		})
	}
	return expenses, nil
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}
