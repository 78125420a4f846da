package sources

import (
	"context"
	"errors"
	"time"
)

// RetryState is a state of the rate-limit retry machine.
type RetryState int

const (
	StateAttempting RetryState = iota
	StateSucceeded
	StateAbandoned
)

func (s RetryState) String() string {
	switch s {
	case StateAttempting:
		return "attempting"
	case StateSucceeded:
		return "succeeded"
	case StateAbandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// SleepFunc pauses for d, returning early with an error when ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Backoff retries an operation while it reports ErrRateLimited. After each
// rate-limited attempt it sleeps the current backoff, doubles it and gives
// up once the doubled value exceeds Ceiling. Any other error gives up at once.
type Backoff struct {
	Initial time.Duration
	Ceiling time.Duration
	Sleep   SleepFunc
}

// RetryOutcome reports how a Run ended.
type RetryOutcome struct {
	State    RetryState
	Attempts int
	Delays   []time.Duration
	Err      error
}

// retryMachine is the Attempting(n, backoff) state.
type retryMachine struct {
	attempt int
	backoff time.Duration
}

// Run drives op through Attempting(n, backoff) until Succeeded or Abandoned.
func (b Backoff) Run(ctx context.Context, op func(ctx context.Context) error) RetryOutcome {
	sleep := b.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	m := retryMachine{attempt: 1, backoff: b.Initial}
	out := RetryOutcome{State: StateAttempting}

	for out.State == StateAttempting {
		out.Attempts = m.attempt
		err := op(ctx)
		switch {
		case err == nil:
			out.State = StateSucceeded
		case !errors.Is(err, ErrRateLimited):
			out.State, out.Err = StateAbandoned, err
		default:
			out.Err = err
			out.Delays = append(out.Delays, m.backoff)
			if serr := sleep(ctx, m.backoff); serr != nil {
				out.State, out.Err = StateAbandoned, serr
				break
			}
			m.backoff *= 2
			if m.backoff > b.Ceiling {
				out.State = StateAbandoned
				break
			}
			m.attempt++
		}
	}

	if out.State == StateSucceeded {
		out.Err = nil
	}
	return out
}
