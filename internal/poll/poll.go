// Package poll repeats a boolean check until it succeeds, runs out of
// attempts, or runs out of time.
//
// Both provisioning protocols confirm remote state this way: the device
// accepts a request long before it has acted on it, so a single negative
// answer right after a submission is not conclusive.
package poll

import (
	"context"
	"errors"
	"time"

	"github.com/juju/clock"
	"github.com/juju/retry"
)

// Options bounds a poll.
type Options struct {
	// Attempts is the maximum number of checks. Values below 1 mean a single check.
	Attempts int
	// InitialDelay is waited once before the first check.
	InitialDelay time.Duration
	// Delay is the pause between checks.
	Delay time.Duration
	// MaxDelay caps the pause when Backoff is set.
	MaxDelay time.Duration
	// Backoff doubles the pause after every inconclusive check.
	Backoff bool
	// Timeout bounds the whole poll, checks included. Zero means no bound
	// beyond Attempts.
	Timeout time.Duration
	// Clock drives the delays. Nil selects the wall clock.
	Clock clock.Clock
}

// DefaultOptions returns five checks one second apart, bounded by 20 seconds.
func DefaultOptions() Options {
	return Options{
		Attempts: 5,
		Delay:    time.Second,
		MaxDelay: 5 * time.Second,
		Timeout:  20 * time.Second,
	}
}

// Result describes how a poll ended.
type Result struct {
	// Confirmed is true when a check returned true.
	Confirmed bool
	// Attempts is the number of checks performed.
	Attempts int
	// LastErr is the error of the most recent check that failed with one, or
	// the context error if the caller cancelled.
	LastErr error
	// TimedOut is true when Timeout elapsed before a check confirmed.
	TimedOut bool
}

// CheckFunc reports whether the awaited state has been reached. A false
// result or an error are both inconclusive.
type CheckFunc func(ctx context.Context) (bool, error)

var errNotYet = errors.New("not confirmed yet")

// Until runs check until it returns true or the poll is exhausted.
func Until(ctx context.Context, opts Options, check CheckFunc) Result {
	clk := opts.Clock
	if clk == nil {
		clk = clock.WallClock
	}

	attempts := opts.Attempts
	if attempts < 1 {
		attempts = 1
	}

	// retry rejects a zero delay.
	delay := opts.Delay
	if delay <= 0 {
		delay = time.Millisecond
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	var res Result

	if opts.InitialDelay > 0 {
		select {
		case <-clk.After(opts.InitialDelay):
		case <-ctx.Done():
			return finish(ctx, res)
		}
	}

	args := retry.CallArgs{
		Func: func() error {
			res.Attempts++
			ok, err := check(ctx)
			if err != nil {
				res.LastErr = err
				return err
			}
			if !ok {
				return errNotYet
			}
			res.Confirmed = true
			return nil
		},
		Attempts:    attempts,
		Delay:       delay,
		MaxDuration: opts.Timeout,
		Clock:       clk,
		Stop:        ctx.Done(),
	}
	if opts.Backoff {
		args.BackoffFunc = retry.DoubleDelay
		args.MaxDelay = opts.MaxDelay
	}

	err := retry.Call(args)
	if err == nil {
		return res
	}
	if retry.IsDurationExceeded(err) {
		res.TimedOut = true
		return res
	}
	return finish(ctx, res)
}

// finish records why ctx ended the poll, if it did.
func finish(ctx context.Context, res Result) Result {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		res.TimedOut = true
	case ctx.Err() != nil:
		res.LastErr = ctx.Err()
	}
	return res
}
