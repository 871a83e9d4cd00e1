package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"expensemanager/internal/amqp"
	"expensemanager/internal/core"
	"expensemanager/internal/ledger"
	"expensemanager/internal/log"
	"expensemanager/internal/storage"
)

var (
	// ErrPersist wraps save failures. The in-memory ledger keeps the change.
	ErrPersist = errors.New("failed to save expenses")
	// ErrStaleSelection means the ledger changed after the caller rendered
	// the row it selected.
	ErrStaleSelection = errors.New("selection is out of date")
)

// EventPublisher receives a ledger event after every successful mutation
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, evt *amqp.LedgerEvent) error
}

// Metrics is a point-in-time copy of the service counters
type Metrics struct {
	Added            int64
	Deleted          int64
	ValidationErrors int64
	SaveErrors       int64
	PublishErrors    int64
}

// ExpenseService serializes user actions against the ledger and writes the
// full sequence through to persistence after each one.
type ExpenseService struct {
	mu          sync.Mutex
	session     uuid.UUID
	store       *ledger.Store
	persistence storage.Persistence
	publisher   EventPublisher

	lastSaveErr atomic.Value // error wrapper, see saveState

	added            atomic.Int64
	deleted          atomic.Int64
	validationErrors atomic.Int64
	saveErrors       atomic.Int64
	publishErrors    atomic.Int64
}

type saveState struct{ err error }

// NewExpenseService creates a service over persistence. publisher may be nil.
func NewExpenseService(persistence storage.Persistence, publisher EventPublisher) *ExpenseService {
	s := &ExpenseService{
		session:     uuid.New(),
		store:       ledger.New(),
		persistence: persistence,
		publisher:   publisher,
	}
	s.lastSaveErr.Store(saveState{})
	return s
}

// Load replaces the ledger with the persisted sequence
func (s *ExpenseService) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	expenses, err := s.persistence.Load(ctx)
	if err != nil {
		return fmt.Errorf("load expenses: %w", err)
	}
	s.store.Replace(expenses)

	log.FromContext(ctx).WithComponent(log.ComponentStorage).InfoContext(ctx, "Expenses loaded",
		log.FieldCount, len(expenses),
		log.FieldRevision, s.store.Revision())
	return nil
}

// AddExpense validates e, appends it and saves. It returns the new position.
func (s *ExpenseService) AddExpense(ctx context.Context, e core.Expense) (int, error) {
	if err := e.Validate(); err != nil {
		s.validationErrors.Add(1)
		return -1, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	index := s.store.Append(e)
	revision := s.store.Revision()
	s.added.Add(1)

	saveErr := s.save(ctx)

	log.NewStructuredLogger(log.FromContext(ctx)).LogExpenseCreated(ctx, e, index, revision)
	s.publish(ctx, amqp.EventExpenseCreated, revision, index, e)

	if saveErr != nil {
		return index, saveErr
	}
	return index, nil
}

// DeleteAt removes the record at index and saves.
func (s *ExpenseService) DeleteAt(ctx context.Context, index int) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteLocked(ctx, index)
}

// DeleteSelected removes the record at index only if the ledger is still at
// the revision the selection was made against.
func (s *ExpenseService) DeleteSelected(ctx context.Context, index int, revision uint64) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current := s.store.Revision(); current != revision {
		return core.Expense{}, fmt.Errorf("%w: selected at revision %d, ledger is at %d", ErrStaleSelection, revision, current)
	}
	return s.deleteLocked(ctx, index)
}

func (s *ExpenseService) deleteLocked(ctx context.Context, index int) (core.Expense, error) {
	removed, err := s.store.RemoveAt(index)
	if err != nil {
		return core.Expense{}, err
	}
	revision := s.store.Revision()
	s.deleted.Add(1)

	saveErr := s.save(ctx)

	log.NewStructuredLogger(log.FromContext(ctx)).LogExpenseDeleted(ctx, removed, index, revision)
	s.publish(ctx, amqp.EventExpenseDeleted, revision, index, removed)

	if saveErr != nil {
		return removed, saveErr
	}
	return removed, nil
}

// save ignores request cancellation so every applied mutation reaches storage.
func (s *ExpenseService) save(ctx context.Context) error {
	err := s.persistence.Save(context.WithoutCancel(ctx), s.store.All())
	s.lastSaveErr.Store(saveState{err: err})
	if err != nil {
		s.saveErrors.Add(1)
		log.NewStructuredLogger(log.FromContext(ctx)).LogError(ctx, "Failed to save expenses", err,
			log.ComponentStorage, log.OpSave,
			log.NewFields().WithErrorType(log.ErrorTypePersistence))
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}

// publish is best effort; a broker problem never fails the user action.
func (s *ExpenseService) publish(ctx context.Context, kind amqp.EventKind, revision uint64, index int, e core.Expense) {
	if s.publisher == nil {
		return
	}
	evt := amqp.NewLedgerEvent(s.session, kind, revision, index, e, s.store.All())
	if err := s.publisher.PublishLedgerEvent(ctx, evt); err != nil {
		s.publishErrors.Add(1)
		log.FromContext(ctx).WithComponent(log.ComponentAMQP).WarnContext(ctx, "Failed to publish ledger event",
			log.FieldError, err,
			log.FieldEventID, evt.ID.String(),
			log.FieldRevision, revision)
	}
}

// List returns the records in insertion order
func (s *ExpenseService) List(ctx context.Context) []core.Expense {
	items := s.store.All()
	if items == nil {
		items = []core.Expense{}
	}
	return items
}

// Snapshot returns the records together with the revision they belong to
func (s *ExpenseService) Snapshot(ctx context.Context) ([]core.Expense, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.store.All()
	if items == nil {
		items = []core.Expense{}
	}
	return items, s.store.Revision()
}

// Statistics summarizes the current ledger
func (s *ExpenseService) Statistics(ctx context.Context) core.Statistics {
	return core.Summarize(s.store.All())
}

func (s *ExpenseService) Revision() uint64 {
	return s.store.Revision()
}

func (s *ExpenseService) Len() int {
	return s.store.Len()
}

// LastSaveError returns the outcome of the most recent save, nil if it
// succeeded or none happened yet.
func (s *ExpenseService) LastSaveError() error {
	return s.lastSaveErr.Load().(saveState).err
}

func (s *ExpenseService) Metrics() Metrics {
	return Metrics{
		Added:            s.added.Load(),
		Deleted:          s.deleted.Load(),
		ValidationErrors: s.validationErrors.Load(),
		SaveErrors:       s.saveErrors.Load(),
		PublishErrors:    s.publishErrors.Load(),
	}
}

// Close closes persistence and the publisher when it holds a connection
func (s *ExpenseService) Close() error {
	var errs []error

	if s.persistence != nil {
		if err := s.persistence.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if closer, ok := s.publisher.(io.Closer); ok && closer != nil {
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close expense service: %w", errors.Join(errs...))
	}

	return nil
}
