package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRetryPolicyBoundedAttempts(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, Delay: 50 * time.Millisecond}

	state := RetryState{}
	attempts := 1 // the initial attempt already happened
	for {
		next, wait, ok := policy.Next(state)
		if !ok {
			break
		}
		require.Equal(t, 50*time.Millisecond, wait)
		require.Equal(t, state.Attempt+1, next.Attempt)
		state = next
		attempts++
	}

	require.Equal(t, 3, attempts)
}

func TestRetryPolicySingleAttempt(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 1, Delay: time.Second}
	_, _, ok := policy.Next(RetryState{})
	require.False(t, ok)
}
