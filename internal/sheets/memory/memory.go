// Package memory is an in-process sheets mirror used when no spreadsheet is
// configured and in tests.
package memory

import (
	"context"
	"sync"

	"expensemanager/internal/core"
	"expensemanager/internal/sheets"
)

var _ sheets.Mirror = (*Mirror)(nil)

type Mirror struct {
	mu      sync.Mutex
	rows    [][]any
	replays int
}

func New() *Mirror {
	return &Mirror{rows: sheets.ToRows(nil)}
}

// ReplaceAll implements sheets.Mirror
func (m *Mirror) ReplaceAll(_ context.Context, expenses []core.Expense) error {
	rows := sheets.ToRows(expenses)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = rows
	m.replays++
	return nil
}

// Rows returns a copy of the stored rows, header included.
func (m *Mirror) Rows() [][]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]any, len(m.rows))
	for i, r := range m.rows {
		out[i] = append([]any(nil), r...)
	}
	return out
}

// Expenses decodes the stored rows.
func (m *Mirror) Expenses() ([]core.Expense, error) {
	return sheets.FromRows(m.Rows())
}

// Replays counts ReplaceAll calls.
func (m *Mirror) Replays() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.replays
}
