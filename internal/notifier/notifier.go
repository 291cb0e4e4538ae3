package notifier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"BandSentinel/internal/model"
)

// Notifier delivers actionable signals. Delivery guarantees are up to the
// implementation.
type Notifier interface {
	Notify(ctx context.Context, sig model.Signal) error
	Name() string
}

// Fanout delivers every signal to all of its notifiers.
type Fanout []Notifier

func (f Fanout) Name() string { return "fanout" }

func (f Fanout) Notify(ctx context.Context, sig model.Signal) error {
	var errs []error
	for _, n := range f {
		if err := n.Notify(ctx, sig); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// ConsoleNotifier prints signals as plain text lines.
type ConsoleNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsoleNotifier(w io.Writer) *ConsoleNotifier {
	return &ConsoleNotifier{w: w}
}

func (c *ConsoleNotifier) Name() string { return "console" }

func (c *ConsoleNotifier) Notify(_ context.Context, sig model.Signal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintln(c.w, FormatPlain(sig))
	return err
}
