package client

import (
	"context"
	"time"

	"github.com/Backland-Labs/runclient/internal/schema"
)

const (
	// DefaultPollInterval is the wait between two status checks in RunSync
	DefaultPollInterval = time.Second

	// DefaultMaxAttempts is how many status checks RunSync makes before giving up
	DefaultMaxAttempts = 300
)

// PollConfig controls the RunSync polling loop. Zero fields use the defaults.
type PollConfig struct {
	Interval    time.Duration
	MaxAttempts int
}

// DefaultPollConfig returns 1s x 300 attempts
func DefaultPollConfig() PollConfig {
	return PollConfig{
		Interval:    DefaultPollInterval,
		MaxAttempts: DefaultMaxAttempts,
	}
}

func (p PollConfig) withDefaults() PollConfig {
	if p.Interval <= 0 {
		p.Interval = DefaultPollInterval
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	return p
}

// PollObserver is told about every status check RunSync makes
type PollObserver func(attempt int, out *schema.RunOutput, err error)

// SyncOption customizes a single RunSync call
type SyncOption func(*syncOptions)

type syncOptions struct {
	observer PollObserver
}

// OnPoll registers an observer for each poll attempt
func OnPoll(fn PollObserver) SyncOption {
	return func(o *syncOptions) {
		o.observer = fn
	}
}

// RunSync submits a run and polls it until it reports success.
//
// A failed submission is returned as is and nothing is polled. A failed status
// check counts as an attempt just like a non-success status. When every attempt
// is used up the result only carries the run ID (see RunOutput.Incomplete) and
// the error is nil. If ctx ends first the error has KindCanceled.
func (c *Client) RunSync(ctx context.Context, req schema.RunRequest, opts ...SyncOption) (*schema.RunOutput, error) {
	var o syncOptions
	for _, opt := range opts {
		opt(&o)
	}

	handle, err := c.Run(ctx, req)
	if err != nil {
		return nil, err
	}

	log := c.log.WithRun(handle.RunID)
	log.Debugf("Run submitted, polling up to %d times every %s", c.poll.MaxAttempts, c.poll.Interval)

	for attempt := 1; attempt <= c.poll.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := wait(ctx, c.poll.Interval); err != nil {
				return nil, &Error{Op: "run_sync", Kind: KindCanceled, Err: err}
			}
		}

		out, err := c.GetRun(ctx, handle.RunID)
		if o.observer != nil {
			o.observer(attempt, out, err)
		}
		if err != nil {
			if IsKind(err, KindCanceled) {
				return nil, err
			}
			continue
		}
		if out.Status == schema.StatusSuccess {
			log.WithField("attempts", attempt).Debug("Run succeeded")
			return out, nil
		}
	}

	log.Warnf("Run did not succeed within %d attempts", c.poll.MaxAttempts)
	return &schema.RunOutput{ID: handle.RunID}, nil
}

// wait blocks for d or until ctx is done
func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
