package ports

import (
	"context"

	"github.com/aretw0/ttystep/pkg/domain"
)

// Stepper is one engine strategy behind a session. Implementations are driven by
// exactly one goroutine at a time.
type Stepper interface {
	// Start launches the program and blocks until its first yield.
	Start(ctx context.Context) (done bool, err error)

	// Step feeds one action and blocks until the program yields or terminates.
	Step(ctx context.Context, action domain.Action) (done bool, err error)

	// Observation returns the bytes emitted during the last resumption.
	Observation() []byte

	// Reset restores the program to its initial state and performs the first transfer.
	Reset(ctx context.Context) error

	// Done reports whether the program reached its exit path.
	Done() bool

	// Close releases every resource. It is idempotent.
	Close() error
}
