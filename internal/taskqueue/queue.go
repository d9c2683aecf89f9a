package taskqueue

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrEmpty is returned by Receive when the long poll times out with no
// message available. The worker loop treats it as a successful empty
// iteration, not an error.
var ErrEmpty = errors.New("no messages to receive")

// Message is one delivery of a queued task. The loop treats it as an opaque
// handle passed back to Ack and Unlock; LockToken identifies this delivery's
// peek lock.
type Message struct {
	ID            string
	Body          []byte
	DeliveryCount int
	EnqueuedAt    time.Time
	LockToken     string
}

// Queue is the durable message queue the worker loop consumes. Receive uses
// peek-lock semantics: a received message stays invisible to other consumers
// until Ack, Unlock, or lock expiry.
type Queue interface {
	// Receive long-polls for one message, returning ErrEmpty on timeout.
	Receive(ctx context.Context, timeout time.Duration) (Message, error)

	// Ack deletes the message permanently.
	Ack(ctx context.Context, msg Message) error

	// Unlock releases the peek lock, making the message immediately
	// eligible for redelivery.
	Unlock(ctx context.Context, msg Message) error
}

// Enqueuer is the producer side of the queue, used by handlers that fan out
// follow-up work.
type Enqueuer interface {
	Enqueue(ctx context.Context, body []byte) error
}

// Handler processes one message body. It must be safe to call again with the
// same body: deliveries are at-least-once.
type Handler interface {
	Handle(ctx context.Context, body []byte) error
}

// HandlerFunc is a function adapter for Handler.
type HandlerFunc func(ctx context.Context, body []byte) error

func (f HandlerFunc) Handle(ctx context.Context, body []byte) error {
	return f(ctx, body)
}

// TransientError marks a failure caused by a network-layer collaborator, as
// opposed to a business error in the handler. Both are retried up to the
// poison threshold; the distinction exists for logging and for handlers that
// want to inspect their own failures.
type TransientError struct {
	Cause error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient: %v", e.Cause)
}

func (e *TransientError) Unwrap() error {
	return e.Cause
}

// Transient wraps err as a TransientError. A nil err returns nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Cause: err}
}

// IsTransient reports whether any error in err's chain is a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
