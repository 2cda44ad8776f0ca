package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kycflow/pkg/platform/sentinel"
)

func TestInMemory(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewInMemory(WithClock(func() time.Time { return now }))

	t.Run("second acquire fails while held", func(t *testing.T) {
		release, err := l.Acquire(ctx, "app-1", time.Minute)
		require.NoError(t, err)

		_, err = l.Acquire(ctx, "app-1", time.Minute)
		assert.ErrorIs(t, err, sentinel.ErrLocked)

		_, err = l.Acquire(ctx, "app-2", time.Minute)
		assert.NoError(t, err, "keys are independent")

		require.NoError(t, release(ctx))
		_, err = l.Acquire(ctx, "app-1", time.Minute)
		assert.NoError(t, err)
	})

	t.Run("expired lease can be taken and stale release is ignored", func(t *testing.T) {
		staleRelease, err := l.Acquire(ctx, "app-3", time.Second)
		require.NoError(t, err)

		now = now.Add(2 * time.Second)
		_, err = l.Acquire(ctx, "app-3", time.Minute)
		require.NoError(t, err)

		require.NoError(t, staleRelease(ctx))
		_, err = l.Acquire(ctx, "app-3", time.Minute)
		assert.ErrorIs(t, err, sentinel.ErrLocked, "new holder keeps the lease")
	})
}

func TestNoop(t *testing.T) {
	release, err := Noop{}.Acquire(context.Background(), "x", time.Second)
	require.NoError(t, err)
	assert.NoError(t, release(context.Background()))
}
