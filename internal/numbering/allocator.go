package numbering

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// AllocationError wraps a failed counter read or write. The Allocator always
// pairs it with a usable fallback identifier.
type AllocationError struct {
	CompanyID string
	Type      EntityType
	Err       error
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("allocate %s number for company %s: %v", e.Type, e.CompanyID, e.Err)
}

func (e *AllocationError) Unwrap() error { return e.Err }

// Allocation is the result of numbering a new record.
type Allocation struct {
	Identifier Identifier
	Revision   Revision
	// Fallback is true when the identifier was synthesized from the clock
	// because the counter could not be allocated.
	Fallback bool
}

// Allocator issues per-company, per-type sequence numbers.
type Allocator struct {
	store  CounterStore
	locks  *keyedMutex
	now    func() time.Time
	logger *slog.Logger

	fallbackMu   sync.Mutex
	lastFallback int64
}

// Option configures an Allocator.
type Option func(*Allocator)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *Allocator) { a.now = now }
}

// WithLogger sets the logger used for fallback warnings.
func WithLogger(l *slog.Logger) Option {
	return func(a *Allocator) { a.logger = l }
}

// NewAllocator creates an Allocator over store.
func NewAllocator(store CounterStore, opts ...Option) *Allocator {
	a := &Allocator{
		store:  store,
		locks:  newKeyedMutex(),
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Allocate numbers a new record of type t for companyID. On failure it still
// returns a fallback Allocation together with an *AllocationError so callers
// can proceed and log.
func (a *Allocator) Allocate(ctx context.Context, companyID string, t EntityType) (Allocation, error) {
	if !t.Valid() {
		return Allocation{}, fmt.Errorf("%w: %q", ErrUnknownEntityType, string(t))
	}

	now := a.now()
	rev, err := ComputeRevision(now, now)
	if err != nil {
		return Allocation{}, err
	}

	code, seq, err := a.next(ctx, companyID, t)
	if err != nil {
		id := a.fallback(t, now)
		a.logger.Warn("Counter allocation failed, using fallback identifier.",
			"companyId", companyID, "entityType", string(t), "docNumber", id.Rendered, "error", err)
		return Allocation{Identifier: id, Revision: rev, Fallback: true},
			&AllocationError{CompanyID: companyID, Type: t, Err: err}
	}

	return Allocation{Identifier: NewIdentifier(code, t, seq), Revision: rev}, nil
}

// AllocateRecord numbers recordID and stamps it through binder in one step.
// If the counter cannot be advanced, a fallback Allocation is returned with an
// *AllocationError and nothing is stamped; the caller stores it. Missing,
// foreign and already numbered records are returned as errors without a
// fallback.
func (a *Allocator) AllocateRecord(ctx context.Context, binder RecordBinder, companyID string, t EntityType, recordID string) (Allocation, error) {
	if !t.Valid() {
		return Allocation{}, fmt.Errorf("%w: %q", ErrUnknownEntityType, string(t))
	}

	now := a.now()
	rev, err := ComputeRevision(now, now)
	if err != nil {
		return Allocation{}, err
	}

	var issued Allocation
	err = binder.BindNext(ctx, companyID, t, recordID, func(code string, value int) Allocation {
		issued = Allocation{Identifier: NewIdentifier(code, t, value), Revision: rev}
		return issued
	})
	switch {
	case err == nil:
		return issued, nil
	case errors.Is(err, ErrAlreadyNumbered), errors.Is(err, ErrRecordNotFound):
		return Allocation{}, err
	}

	id := a.fallback(t, now)
	a.logger.Warn("Counter allocation failed, using fallback identifier.",
		"companyId", companyID, "recordId", recordID, "entityType", string(t), "docNumber", id.Rendered, "error", err)
	return Allocation{Identifier: id, Revision: rev, Fallback: true},
		&AllocationError{CompanyID: companyID, Type: t, Err: err}
}

func (a *Allocator) next(ctx context.Context, companyID string, t EntityType) (string, int, error) {
	if inc, ok := a.store.(AtomicIncrementer); ok {
		return inc.IncrementCounter(ctx, companyID, t)
	}

	unlock := a.locks.Lock(companyID + "/" + string(t))
	defer unlock()

	company, err := a.store.ReadCompany(ctx, companyID)
	if err != nil {
		return "", 0, fmt.Errorf("read company: %w", err)
	}
	value := company.Counters[t] + 1
	if err := a.store.WriteCounter(ctx, companyID, t, value); err != nil {
		return "", 0, fmt.Errorf("write %s: %w", t.CounterField(), err)
	}
	return company.Code, value, nil
}

// fallback keeps successive synthetic numbers distinct even within one
// millisecond.
func (a *Allocator) fallback(t EntityType, now time.Time) Identifier {
	a.fallbackMu.Lock()
	defer a.fallbackMu.Unlock()

	ms := now.UnixMilli()
	if ms <= a.lastFallback {
		ms = a.lastFallback + 1
	}
	a.lastFallback = ms
	return fallbackIdentifier(t, ms)
}
