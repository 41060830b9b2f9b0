package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker() (*RedisLocker, redismock.ClientMock) {
	client, mock := redismock.NewClientMock()
	return &RedisLocker{client: client, newToken: func() string { return "token-1" }}, mock
}

func TestAcquire_AndRelease(t *testing.T) {
	locker, mock := newTestLocker()
	ctx := context.Background()

	mock.ExpectSetNX("timeclock:lease:overdue-sweep:d1", "token-1", 5*time.Minute).SetVal(true)
	mock.ExpectEval(releaseScript, []string{"timeclock:lease:overdue-sweep:d1"}, "token-1").SetVal(int64(1))

	release, ok, err := locker.Acquire(ctx, "overdue-sweep:d1", 5*time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, release(ctx))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcquire_HeldElsewhere(t *testing.T) {
	locker, mock := newTestLocker()

	mock.ExpectSetNX("timeclock:lease:overdue-sweep:d1", "token-1", time.Minute).SetVal(false)

	release, ok, err := locker.Acquire(context.Background(), "overdue-sweep:d1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, release)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcquire_RedisDown(t *testing.T) {
	locker, mock := newTestLocker()

	mock.ExpectSetNX("timeclock:lease:overdue-sweep:d1", "token-1", time.Minute).SetErr(errors.New("connection refused"))

	_, ok, err := locker.Acquire(context.Background(), "overdue-sweep:d1", time.Minute)
	assert.False(t, ok)
	assert.ErrorContains(t, err, "connection refused")
}

func TestRelease_Error(t *testing.T) {
	locker, mock := newTestLocker()
	ctx := context.Background()

	mock.ExpectSetNX("timeclock:lease:k", "token-1", time.Minute).SetVal(true)
	mock.ExpectEval(releaseScript, []string{"timeclock:lease:k"}, "token-1").SetErr(errors.New("timeout"))

	release, ok, err := locker.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	assert.ErrorContains(t, release(ctx), "timeout")
}
