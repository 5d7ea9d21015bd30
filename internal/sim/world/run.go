package world

import (
	"context"
	"errors"
	"time"
)

// ErrStopped is returned by Attach once the loop is no longer running.
var ErrStopped = errors.New("world stopped")

// Source supplies the observer position for each tick.
type Source interface {
	Advance(dt time.Duration) (x, y float64)
}

// Run steps the world at TickRateHz until ctx is done or Stop is called. Attach requests are
// served between steps so a new viewer never sees a half-applied batch.
//
// Run returns nil after Stop, ctx.Err() once ctx is done, and otherwise the step error that
// ended the loop, even when that error wraps a context error of its own.
func (w *World) Run(ctx context.Context, src Source) error {
	defer w.exitOnce.Do(func() { close(w.exited) })

	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	x, y := src.Advance(0)
	if _, err := w.Step(ctx, x, y); err != nil {
		return stepErr(ctx, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.attach:
			req.fn(w.Loaded())
			close(req.done)
		case <-ticker.C:
			x, y := src.Advance(interval)
			if _, err := w.Step(ctx, x, y); err != nil {
				return stepErr(ctx, err)
			}
		}
	}
}

func stepErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

func (w *World) Stop() { w.stopOnce.Do(func() { close(w.stop) }) }

// Attach runs fn on the loop goroutine with the current snapshot. No step runs while fn is
// executing, so a viewer registered inside fn sees every later batch exactly once.
func (w *World) Attach(ctx context.Context, fn func(Snapshot)) error {
	req := attachReq{fn: fn, done: make(chan struct{})}
	select {
	case w.attach <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-w.stop:
		return ErrStopped
	case <-w.exited:
		return ErrStopped
	}
	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-w.exited:
		select {
		case <-req.done:
			return nil
		default:
			return ErrStopped
		}
	}
}
