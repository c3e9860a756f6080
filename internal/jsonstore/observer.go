package jsonstore

import "time"

// Op names a store operation reported to an Observer.
type Op string

const (
	OpRead   Op = "read"
	OpUpdate Op = "update"
	OpReset  Op = "reset"
)

// Observer receives the outcome of every store operation.
// Implementations must be safe for concurrent use.
type Observer interface {
	Observe(op Op, took time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) Observe(Op, time.Duration, error) {}
