// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/yomira/internal/pipeline/retry"
)

var errConfigured = errors.New("configured connection failure")
var errOther = errors.New("unrelated error")

func configuredClass(err error) bool { return errors.Is(err, errConfigured) }

/*
TestPolicy_SucceedsWithoutRetry verifies that a fn which succeeds on
the first call never sleeps or retries.
*/
func TestPolicy_SucceedsWithoutRetry(t *testing.T) {
	p := retry.Default()
	p.Retryable = configuredClass

	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

/*
TestPolicy_NonConfiguredErrorPropagatesImmediately verifies that an
error outside the configured class is returned without any sleep or
retry, per spec §4.2.
*/
func TestPolicy_NonConfiguredErrorPropagatesImmediately(t *testing.T) {
	p := retry.Default()
	p.Retryable = configuredClass
	var slept []time.Duration
	p.Sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		return errOther
	})
	require.ErrorIs(t, err, errOther)
	assert.Equal(t, 1, calls)
	assert.Empty(t, slept)
}

/*
TestPolicy_ExponentialScheduleCapsAtBorder verifies property 7: on N
consecutive configured-class failures, the sleep durations follow
min(start*factor^k, border) for k = 1..N.
*/
func TestPolicy_ExponentialScheduleCapsAtBorder(t *testing.T) {
	p := retry.Policy{
		StartSleep:  100 * time.Millisecond,
		Factor:      2,
		BorderSleep: 350 * time.Millisecond,
		Retryable:   configuredClass,
	}
	var slept []time.Duration
	p.Sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	attempt := 0
	err := p.Do(context.Background(), func() error {
		attempt++
		if attempt <= 4 {
			return errConfigured
		}
		return nil
	})
	require.NoError(t, err)

	want := []time.Duration{
		200 * time.Millisecond, // min(100*2^1, 350)
		350 * time.Millisecond, // min(100*2^2, 350) = min(400, 350)
		350 * time.Millisecond, // min(100*2^3, 350) = min(800, 350)
		350 * time.Millisecond, // min(100*2^4, 350)
	}
	require.Equal(t, len(want), len(slept))
	for i := range want {
		assert.Equal(t, want[i], slept[i], "sleep %d", i)
	}
}

/*
TestPolicy_RetriesExhausted is scenario S4: a function that always
fails with the configured class, wrapped with MaxRetries=2, must
return [retry.ErrRetriesExhausted] after exactly two retries.
*/
func TestPolicy_RetriesExhausted(t *testing.T) {
	p := retry.Policy{
		StartSleep:  time.Millisecond,
		Factor:      2,
		BorderSleep: 10 * time.Millisecond,
		MaxRetries:  2,
		Retryable:   configuredClass,
	}
	p.Sleep = func(_ context.Context, _ time.Duration) error { return nil }

	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		return errConfigured
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, retry.ErrRetriesExhausted)
	assert.Equal(t, 3, calls, "one initial attempt plus two retries")
}

/*
TestPolicy_ContextCancellationDuringSleepAborts verifies that a
cancelled context interrupts the retry loop promptly instead of
retrying forever.
*/
func TestPolicy_ContextCancellationDuringSleepAborts(t *testing.T) {
	p := retry.Default()
	p.Retryable = configuredClass

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Do(ctx, func() error { return errConfigured })
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

/*
TestIsSourceConnErr and TestIsSinkConnErr spot-check the two named
error-class predicates the Driver stacks its backoffs around.
*/
func TestIsSourceConnErr(t *testing.T) {
	assert.True(t, retry.IsSourceConnErr(context.DeadlineExceeded))
	assert.False(t, retry.IsSourceConnErr(nil))
	assert.False(t, retry.IsSourceConnErr(errOther))
}

func TestIsSinkConnErr(t *testing.T) {
	assert.True(t, retry.IsSinkConnErr(retry.ErrSinkUnavailable))
	assert.False(t, retry.IsSinkConnErr(nil))
	assert.False(t, retry.IsSinkConnErr(errOther))
}
