// Package storage defines whole-collection persistence for the ledger.
//
// Every backend stores the complete ordered sequence: Load reads it all once
// at startup, and Save overwrites it all after each mutation. There is no
// incremental or append-only mode.
package storage

import (
	"context"

	"expensemanager/internal/core"
)

// Persistence is implemented by jsonfile.File and sqlite.Repository.
type Persistence interface {
	// Load returns the stored sequence in order. A backend that has never
	// been written returns an empty sequence and no error.
	Load(ctx context.Context) ([]core.Expense, error)

	// Save replaces the stored sequence with expenses.
	Save(ctx context.Context, expenses []core.Expense) error

	Close() error
}
