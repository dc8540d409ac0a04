// Package retry runs an operation until it succeeds, a predicate stops asking
// for another attempt, or the attempt budget is spent.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// State describes the outcome of one attempt.
type State struct {
	Attempt     int           // 1-based attempt number
	MaxAttempts int           // attempt budget
	Result      any           // result of the attempt, nil when Err is set
	Err         error         // error of the attempt
	Elapsed     time.Duration // time since the first attempt started
}

// Error is returned once every attempt has been used and the last outcome
// still asked for a retry.
type Error struct {
	Attempts   int
	Last       error
	LastResult any
}

func (e *Error) Error() string {
	if e.Last != nil {
		return fmt.Sprintf("retry: %d attempts failed: %v", e.Attempts, e.Last)
	}
	return fmt.Sprintf("retry: %d attempts failed on result", e.Attempts)
}

func (e *Error) Unwrap() error {
	return e.Last
}

// Strategy holds the attempt budget, the fixed delay, the retry predicates
// and the hooks. Predicates are evaluated in order: outcome checks, error
// checks, result checks; the first true asks for a retry. A strategy with no
// predicates retries on any error.
type Strategy struct {
	Attempts int
	Delay    time.Duration

	outcomeChecks []func(State) bool
	errorChecks   []func(error) bool
	resultChecks  []func(any) bool

	before      func(context.Context, State)
	after       func(context.Context, State)
	onExhausted func(context.Context, State) error
}

type Option func(*Strategy)

// OnOutcome adds a predicate that sees every outcome, error or result.
func OnOutcome(fn func(State) bool) Option {
	return func(s *Strategy) { s.outcomeChecks = append(s.outcomeChecks, fn) }
}

// OnError adds a predicate that runs only when the attempt failed.
func OnError(fn func(error) bool) Option {
	return func(s *Strategy) { s.errorChecks = append(s.errorChecks, fn) }
}

// OnErrorType adds an error predicate that runs only when the error chain
// contains an E.
func OnErrorType[E error](fn func(E) bool) Option {
	return OnError(func(err error) bool {
		var target E
		if !errors.As(err, &target) {
			return false
		}
		return fn(target)
	})
}

// OnResult adds a predicate that runs only when the attempt succeeded.
func OnResult(fn func(any) bool) Option {
	return func(s *Strategy) { s.resultChecks = append(s.resultChecks, fn) }
}

// Before runs before every attempt.
func Before(fn func(context.Context, State)) Option {
	return func(s *Strategy) { s.before = fn }
}

// After runs after every attempt that asked for a retry, before the budget check.
func After(fn func(context.Context, State)) Option {
	return func(s *Strategy) { s.after = fn }
}

// OnExhausted replaces the default *Error returned when the budget is spent.
func OnExhausted(fn func(context.Context, State) error) Option {
	return func(s *Strategy) { s.onExhausted = fn }
}

// New builds a strategy. attempts below 1 still allow a single attempt.
func New(attempts int, delay time.Duration, opts ...Option) *Strategy {
	s := &Strategy{Attempts: attempts, Delay: delay}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Strategy) maxAttempts() int {
	if s.Attempts < 1 {
		return 1
	}
	return s.Attempts
}

func (s *Strategy) hasPredicates() bool {
	return len(s.outcomeChecks)+len(s.errorChecks)+len(s.resultChecks) > 0
}

// ShouldRetry reports whether the outcome in st asks for another attempt.
func (s *Strategy) ShouldRetry(st State) bool {
	if !s.hasPredicates() {
		return st.Err != nil
	}
	for _, check := range s.outcomeChecks {
		if check(st) {
			return true
		}
	}
	if st.Err != nil {
		for _, check := range s.errorChecks {
			if check(st.Err) {
				return true
			}
		}
		return false
	}
	for _, check := range s.resultChecks {
		if check(st.Result) {
			return true
		}
	}
	return false
}

// Do calls fn until the strategy stops asking for retries. A nil strategy
// calls fn exactly once. When the budget is spent the last result is
// returned together with the exhaustion error.
func Do[T any](ctx context.Context, s *Strategy, fn func(context.Context) (T, error)) (T, error) {
	if s == nil {
		return fn(ctx)
	}

	start := time.Now()
	budget := s.maxAttempts()

	for attempt := 1; ; attempt++ {
		st := State{Attempt: attempt, MaxAttempts: budget}
		if s.before != nil {
			s.before(ctx, st)
		}

		result, err := fn(ctx)
		st.Err = err
		if err == nil {
			st.Result = result
		}
		st.Elapsed = time.Since(start)

		if !s.ShouldRetry(st) {
			return result, err
		}

		if s.after != nil {
			s.after(ctx, st)
		}

		if attempt >= budget {
			if s.onExhausted != nil {
				return result, s.onExhausted(ctx, st)
			}
			return result, &Error{Attempts: attempt, Last: err, LastResult: st.Result}
		}

		if s.Delay > 0 {
			timer := time.NewTimer(s.Delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return result, ctx.Err()
			case <-timer.C:
			}
		} else if ctx.Err() != nil {
			return result, ctx.Err()
		}
	}
}
