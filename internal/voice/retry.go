package voice

import "time"

// RetryPolicy bounds restarts after a no-speech error.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultRetryPolicy retries three times, 300ms apart.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3, Delay: 300 * time.Millisecond}

// retryState tracks attempts within one listening session.
type retryState struct {
	policy   RetryPolicy
	attempts int
}

func (p RetryPolicy) start() *retryState {
	return &retryState{policy: p}
}

// Next reports whether another attempt is allowed and how long to wait first.
func (r *retryState) Next() (time.Duration, bool) {
	if r.attempts >= r.policy.MaxAttempts {
		return 0, false
	}
	r.attempts++
	return r.policy.Delay, true
}

// Reset clears the attempt count after a successful utterance.
func (r *retryState) Reset() {
	r.attempts = 0
}

// Attempts returns the retries used so far.
func (r *retryState) Attempts() int {
	return r.attempts
}
