package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() *Config {
	return &Config{
		MaxRetries:   3,
		InitialDelay: time.Millisecond,
		MaxDelay:     4 * time.Millisecond,
		Multiplier:   2.0,
	}
}

type driverError struct{ retryable bool }

func (e driverError) Error() string     { return "driver error" }
func (e driverError) IsRetryable() bool { return e.retryable }

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 100*time.Millisecond, cfg.InitialDelay)
	assert.Equal(t, 5*time.Second, cfg.MaxDelay)
	assert.Equal(t, 2.0, cfg.Multiplier)
	assert.Equal(t, 5, cfg.MaxSameErrorType)
}

func TestDo(t *testing.T) {
	t.Run("succeeds after failures", func(t *testing.T) {
		calls := 0
		err := Do(context.Background(), fastConfig(), func() error {
			calls++
			if calls < 3 {
				return errors.New("authentication failed")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("returns last error when exhausted", func(t *testing.T) {
		calls := 0
		err := Do(context.Background(), fastConfig(), func() error {
			calls++
			return errors.New("still down")
		})
		assert.EqualError(t, err, "still down")
		assert.Equal(t, 4, calls)
	})

	t.Run("stops on cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cfg := fastConfig()
		cfg.InitialDelay = time.Hour

		calls := 0
		err := Do(ctx, cfg, func() error {
			calls++
			cancel()
			return errors.New("connection refused")
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})
}

func TestDoWithResult(t *testing.T) {
	calls := 0
	got, err := DoWithResult(context.Background(), fastConfig(), func() (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("dial tcp: connection refused")
		}
		return "pool", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "pool", got)
	assert.Equal(t, 2, calls)

	got, err = DoWithResult(context.Background(), &Config{}, func() (string, error) {
		return "partial", errors.New("no retries configured")
	})
	assert.Error(t, err)
	assert.Equal(t, "partial", got)
}

func TestDoWithResult_NilConfigUsesDefaults(t *testing.T) {
	got, err := DoWithResult(context.Background(), nil, func() (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, got)
}

func TestBackoff_GrowsAndCaps(t *testing.T) {
	b := newBackoff(fastConfig())
	require.NoError(t, b.wait(context.Background()))
	assert.Equal(t, 2*time.Millisecond, b.delay)
	require.NoError(t, b.wait(context.Background()))
	require.NoError(t, b.wait(context.Background()))
	assert.Equal(t, 4*time.Millisecond, b.delay)
}

func TestApplyJitter(t *testing.T) {
	assert.Equal(t, time.Second, applyJitter(time.Second, 0))
	for range 50 {
		d := applyJitter(time.Second, 0.1)
		assert.GreaterOrEqual(t, d, 900*time.Millisecond)
		assert.LessOrEqual(t, d, 1100*time.Millisecond)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("dial tcp 10.0.0.5:5432: connect: connection refused"), true},
		{errors.New("Connection Reset by peer"), true},
		{errors.New("write: broken pipe"), true},
		{errors.New("i/o timeout"), true},
		{errors.New("ERROR: deadlock detected (SQLSTATE 40P01)"), true},
		{errors.New("ERROR: could not serialize access due to concurrent update"), true},
		{errors.New("database is locked (5) (SQLITE_BUSY)"), true},
		{errors.New("Transaction (Process ID 52) was deadlocked on lock resources and has been chosen as the deadlock victim"), true},
		{errors.New("driver: bad connection"), true},
		{errors.New("FATAL: sorry, too many connections for role"), true},
		{errors.New("503 Service Unavailable"), true},
		{errors.New("FATAL: password authentication failed for user \"demographics\""), false},
		{errors.New("ERROR: relation \"chingu_members\" does not exist"), false},
		{errors.New("syntax error at or near \"FROM\""), false},
		{errors.New("permission denied for table chingu_members"), false},
		{driverError{retryable: true}, true},
		{driverError{retryable: false}, false},
	}

	for _, tt := range tests {
		name := "nil"
		if tt.err != nil {
			name = tt.err.Error()
		}
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestDoIfRetryable(t *testing.T) {
	t.Run("retries transient errors", func(t *testing.T) {
		calls := 0
		err := DoIfRetryable(context.Background(), fastConfig(), func() error {
			calls++
			if calls < 3 {
				return errors.New("database is locked")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("returns permanent errors immediately", func(t *testing.T) {
		calls := 0
		err := DoIfRetryable(context.Background(), fastConfig(), func() error {
			calls++
			return errors.New("relation does not exist")
		})
		assert.EqualError(t, err, "relation does not exist")
		assert.Equal(t, 1, calls)
	})

	t.Run("escalates repeated failures", func(t *testing.T) {
		cfg := fastConfig()
		cfg.MaxRetries = 10
		cfg.MaxSameErrorType = 2

		calls := 0
		err := DoIfRetryable(context.Background(), cfg, func() error {
			calls++
			return errors.New("connection refused")
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "repeated error (2 times, type=connection)")
		assert.Equal(t, 2, calls)
	})

	t.Run("exhausts retries", func(t *testing.T) {
		calls := 0
		err := DoIfRetryable(context.Background(), fastConfig(), func() error {
			calls++
			if calls%2 == 0 {
				return errors.New("i/o timeout")
			}
			return errors.New("connection reset")
		})
		assert.Error(t, err)
		assert.Equal(t, 4, calls)
	})

	t.Run("stops on cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cfg := fastConfig()
		cfg.InitialDelay = time.Hour

		err := DoIfRetryable(ctx, cfg, func() error {
			cancel()
			return errors.New("connection refused")
		})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestClassifyErrorType(t *testing.T) {
	assert.Equal(t, "nil", classifyErrorType(nil))
	assert.Equal(t, "503", classifyErrorType(errors.New("upstream returned 503")))
	assert.Equal(t, "connection", classifyErrorType(errors.New("driver: bad connection")))
	assert.Equal(t, "timeout", classifyErrorType(errors.New("connection timed out")))
	assert.Equal(t, "contention", classifyErrorType(errors.New("database is locked")))
	assert.Equal(t, "unknown", classifyErrorType(errors.New("something else")))
}
