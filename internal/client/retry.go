package client

import "time"

// RetryPolicy bounds reconnect attempts: a fixed maximum count with a
// fixed delay between attempts, never exponential or unbounded.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultRetryPolicy mirrors the reconnect behavior surfaced to users: a
// handful of attempts, then a persistent disconnected state.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 5, Delay: 3 * time.Second}

// RetryState is the pure state threaded through successive attempts.
type RetryState struct {
	Attempt int
}

// Next evaluates one transition: given the state after a failed attempt,
// it returns the next state, how long to wait before retrying, and whether
// a retry is allowed at all.
func (p RetryPolicy) Next(s RetryState) (RetryState, time.Duration, bool) {
	if s.Attempt+1 >= p.MaxAttempts {
		return s, 0, false
	}
	return RetryState{Attempt: s.Attempt + 1}, p.Delay, true
}
