package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("transient")

func TestPolicyRetriesUntilSuccess(t *testing.T) {
	p := Policy{
		MaxAttempts: 3,
		Delay:       time.Millisecond,
		Retryable:   func(err error) bool { return errors.Is(err, errTransient) },
	}

	calls := 0
	err := p.Do(context.Background(), func(attempt int) error {
		calls++
		assert.Equal(t, calls-1, attempt)
		if calls < 2 {
			return errTransient
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestPolicyStopsOnNonRetryable(t *testing.T) {
	fatal := errors.New("fatal")
	p := Policy{
		MaxAttempts: 5,
		Retryable:   func(err error) bool { return errors.Is(err, errTransient) },
	}

	calls := 0
	err := p.Do(context.Background(), func(int) error {
		calls++
		return fatal
	})

	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls)
}

func TestPolicyExhaustsBudget(t *testing.T) {
	p := Policy{
		MaxAttempts: 3,
		Delay:       time.Millisecond,
		Retryable:   func(error) bool { return true },
	}

	calls := 0
	err := p.Do(context.Background(), func(int) error {
		calls++
		return errTransient
	})

	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 3, calls)
}

func TestPolicyBackoffGrowsDelay(t *testing.T) {
	p := Policy{
		MaxAttempts: 3,
		Delay:       10 * time.Millisecond,
		Backoff:     3,
		Retryable:   func(error) bool { return true },
	}

	start := time.Now()
	err := p.Do(context.Background(), func(int) error { return errTransient })
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, errTransient)
	// Waits 10ms then 30ms between the three attempts.
	assert.GreaterOrEqual(t, elapsed, 40*time.Millisecond)
}

func TestPolicyRespectsContext(t *testing.T) {
	p := Policy{
		MaxAttempts: 10,
		Delay:       time.Hour,
		Retryable:   func(error) bool { return true },
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := p.Do(ctx, func(int) error { return errTransient })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPolicyDefaultsToSingleAttempt(t *testing.T) {
	calls := 0
	err := Policy{}.Do(context.Background(), func(int) error {
		calls++
		return errTransient
	})

	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 1, calls)
}
