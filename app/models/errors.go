package models

import "fmt"

// ValidationError rejects missing or malformed input before any state is
// touched.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
	}
	return "validation failed: " + e.Message
}

// NotFoundError reports a reference to an unknown record.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// StockShortfall describes one product lacking stock for an operation.
type StockShortfall struct {
	ProductID   string
	ProductName string
	Requested   int
	Available   int
}

// InsufficientStockError aborts an operation that would drive stock
// negative. It lists every short product so the caller can report all of
// them at once.
type InsufficientStockError struct {
	Shortfalls []StockShortfall
}

func (e *InsufficientStockError) Error() string {
	if len(e.Shortfalls) == 1 {
		s := e.Shortfalls[0]
		return fmt.Sprintf("insufficient stock for %s: requested %d, available %d",
			s.ProductName, s.Requested, s.Available)
	}
	return fmt.Sprintf("insufficient stock for %d products", len(e.Shortfalls))
}

// InvalidStateError reports a lifecycle transition attempted from the
// wrong state.
type InvalidStateError struct {
	Entity   string
	ID       string
	State    string
	Expected string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s %s is %s, expected %s", e.Entity, e.ID, e.State, e.Expected)
}

// RemoteWriteError wraps a transient remote failure. It never blocks the
// caller; the write is queued for replay instead.
type RemoteWriteError struct {
	Op         string
	Collection string
	Err        error
}

func (e *RemoteWriteError) Error() string {
	return fmt.Sprintf("remote %s on %s failed: %v", e.Op, e.Collection, e.Err)
}

func (e *RemoteWriteError) Unwrap() error { return e.Err }

// RemoteAuthorizationError reports a permission denial from the remote
// ledger. Unlike transient failures this is a configuration problem:
// retrying cannot help and refreshes are aborted until it is resolved.
type RemoteAuthorizationError struct {
	Collections []string
	Err         error
}

func (e *RemoteAuthorizationError) Error() string {
	return fmt.Sprintf("remote ledger denied access to %v: %v", e.Collections, e.Err)
}

func (e *RemoteAuthorizationError) Unwrap() error { return e.Err }

// ImportRowError records one failed row or group in a batch import. Line
// is the 1-based file line; Group carries the sale number for grouped
// sale imports.
type ImportRowError struct {
	Line   int
	Group  string
	Reason string
}

func (e *ImportRowError) Error() string {
	switch {
	case e.Group != "":
		return fmt.Sprintf("group %s: %s", e.Group, e.Reason)
	case e.Line > 0:
		return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
	default:
		return e.Reason
	}
}
