package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/errors"
)

// WithTimeout runs fn under a context that expires after timeout. fn must
// honour its context. When the deadline, and not the parent, ends the call
// the error matches both apperrors.ErrTimeout and
// context.DeadlineExceeded. A non-positive timeout calls fn directly.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := fn(opCtx)
	if err == nil || ctx.Err() != nil || !errors.Is(opCtx.Err(), context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%s: %w after %v: %w", name, apperrors.ErrTimeout, timeout, context.DeadlineExceeded)
}
