package reconcile

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrOrderNotFound is returned when an order number has no live order.
	ErrOrderNotFound = errors.New("order not found")
	// ErrItemNotFound is returned when a line item id does not exist.
	ErrItemNotFound = errors.New("line item not found")
	// ErrBatchNotFound is returned when an import batch does not exist or is deleted.
	ErrBatchNotFound = errors.New("batch not found")
	// ErrValidationNotFound is returned when a validation id does not exist.
	ErrValidationNotFound = errors.New("validation not found")
	// ErrInvalidFact is returned when an incoming fact violates its contract.
	ErrInvalidFact = errors.New("invalid fact")
	// ErrConcurrentUpdate is returned when a conditional write lost to another writer.
	ErrConcurrentUpdate = errors.New("item changed concurrently")
)

// AmbiguityError reports a raw order number with several plausible orders.
type AmbiguityError struct {
	Raw        string
	Candidates []string
}

func (e *AmbiguityError) Error() string {
	return fmt.Sprintf("order number %q is ambiguous: %s", e.Raw, strings.Join(e.Candidates, ", "))
}

// NotFoundError reports a raw order number with no plausible order.
type NotFoundError struct {
	Raw string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no production order for %q", e.Raw)
}

// ConsistencyError reports derived counters that would violate an invariant.
type ConsistencyError struct {
	OrderNumber string
	Ordered     int
	Delivered   int
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("order %s: refusing to write ordered=%d delivered=%d", e.OrderNumber, e.Ordered, e.Delivered)
}
