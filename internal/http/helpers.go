package http

import (
	"strings"

	"github.com/shopspring/decimal"

	"expensemanager/internal/core"
)

var hundred = decimal.NewFromInt(100)

// sanitizeInput removes control characters. Spaces are kept: categories
// group by their exact text.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 {
			return -1
		}
		if r == 127 {
			return -1
		}
		return r
	}, s)
}

// expenseRow is one table line as rendered.
type expenseRow struct {
	Index       int
	Date        string
	Category    string
	Amount      string
	Description string
}

// categoryRow is one statistics line. Width is the bar length in percent of
// the largest category.
type categoryRow struct {
	Name   string
	Amount string
	Width  int
}

type statisticsView struct {
	Count int
	Total string
	Rows  []categoryRow
}

func expenseRows(items []core.Expense, symbol string) []expenseRow {
	rows := make([]expenseRow, 0, len(items))
	for i, e := range items {
		rows = append(rows, expenseRow{
			Index:       i,
			Date:        e.Date.String(),
			Category:    e.Category,
			Amount:      e.Amount.Format(symbol),
			Description: e.Description,
		})
	}
	return rows
}

func buildStatisticsView(stats core.Statistics, symbol string) statisticsView {
	view := statisticsView{
		Count: stats.Count,
		Total: stats.Total.Format(symbol),
		Rows:  make([]categoryRow, 0, len(stats.ByCategory)),
	}

	var largest core.Money
	for _, c := range stats.ByCategory {
		if c.Amount.GreaterThan(largest.Decimal) {
			largest = c.Amount
		}
	}

	for _, c := range stats.ByCategory {
		width := 0
		if largest.IsPositive() && c.Amount.IsPositive() {
			width = int(c.Amount.Mul(hundred).Div(largest.Decimal).Round(0).IntPart())
			if width < 2 {
				width = 2
			}
			if width > 100 {
				width = 100
			}
		}
		view.Rows = append(view.Rows, categoryRow{
			Name:   c.Name,
			Amount: c.Amount.Format(symbol),
			Width:  width,
		})
	}
	return view
}
