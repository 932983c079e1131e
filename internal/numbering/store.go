package numbering

import (
	"context"
	"errors"
)

// ErrCompanyNotFound is returned by a CounterStore when the company record
// does not exist.
var ErrCompanyNotFound = errors.New("company not found")

// CompanyCounters is the numbering state held on a company record.
type CompanyCounters struct {
	Code     string
	Counters map[EntityType]int
}

// CounterStore is the read-modify-write interface the data platform offers.
type CounterStore interface {
	ReadCompany(ctx context.Context, companyID string) (CompanyCounters, error)
	WriteCounter(ctx context.Context, companyID string, t EntityType, value int) error
}

// AtomicIncrementer is implemented by stores that can increment a counter and
// return the new value in one serialized step. The Allocator prefers it.
type AtomicIncrementer interface {
	IncrementCounter(ctx context.Context, companyID string, t EntityType) (code string, value int, err error)
}

// ErrAlreadyNumbered is returned by a RecordBinder when the record carries a
// number already. Nothing is written.
var ErrAlreadyNumbered = errors.New("record already numbered")

// ErrRecordNotFound is returned by a RecordBinder when the record does not
// exist or belongs to another company.
var ErrRecordNotFound = errors.New("record not found")

// RecordBinder is implemented by stores that can increment a counter and stamp
// the issued number onto the record in one transaction, so a counter value is
// never consumed without being kept. issue maps the company code and the new
// counter value to the allocation to store; it may be called more than once
// if the transaction is retried.
type RecordBinder interface {
	BindNext(ctx context.Context, companyID string, t EntityType, recordID string, issue func(code string, value int) Allocation) error
}
