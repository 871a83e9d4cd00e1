// Package ledger holds the in-memory, ordered sequence of expenses that is
// the single source of truth while the process runs.
package ledger

import (
	"errors"
	"fmt"
	"sync"

	"expensemanager/internal/core"
)

// ErrOutOfRange is returned when a position does not address a current record.
var ErrOutOfRange = errors.New("expense index out of range")

// Store is an insertion-ordered list of expenses. Records have no identity
// beyond their current position.
type Store struct {
	mu       sync.RWMutex
	items    []core.Expense
	revision uint64
}

func New(items ...core.Expense) *Store {
	s := &Store{}
	s.items = append(s.items, items...)
	return s
}

// Append adds e at the end and returns its position. The caller validates
// the amount beforehand.
func (s *Store) Append(e core.Expense) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, e)
	s.revision++
	return len(s.items) - 1
}

// RemoveAt deletes the record at index and returns it.
func (s *Store) RemoveAt(index int) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.items) {
		return core.Expense{}, fmt.Errorf("%w: %d (have %d)", ErrOutOfRange, index, len(s.items))
	}
	removed := s.items[index]
	s.items = append(s.items[:index], s.items[index+1:]...)
	s.revision++
	return removed, nil
}

// All returns a copy of the records in insertion order.
func (s *Store) All() []core.Expense {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Expense(nil), s.items...)
}

// Replace swaps the whole sequence, used once when loading from disk.
func (s *Store) Replace(items []core.Expense) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append([]core.Expense(nil), items...)
	s.revision++
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Revision increases on every mutation. Views rendered at one revision can
// detect that positions have shifted since.
func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}
