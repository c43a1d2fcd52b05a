package notify

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/quicklyway/internal/logging"
)

// Dispatcher sends messages on background goroutines. Failures are logged
// and dropped.
type Dispatcher struct {
	notifier Notifier
	logger   logging.Logger
	timeout  time.Duration
	wg       sync.WaitGroup
}

func NewDispatcher(n Notifier, timeout time.Duration, logger logging.Logger) *Dispatcher {
	return &Dispatcher{notifier: n, logger: logger, timeout: timeout}
}

// Dispatch schedules msg for delivery and returns immediately. The send
// outlives the request context but not the dispatcher timeout.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) {
	d.wg.Add(1)

	go func() {
		defer d.wg.Done()

		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()

		defer func() {
			if p := recover(); p != nil {
				d.logger.Error(sendCtx, "reset notification panicked", "panic", p)
			}
		}()

		if err := d.notifier.Send(sendCtx, msg); err != nil {
			d.logger.Error(sendCtx, "failed to send password reset email", "error", err)
		}
	}()
}

// Wait blocks until in-flight sends finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
