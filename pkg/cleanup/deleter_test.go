package cleanup

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeleter_DrainAttemptsEveryItemOnce(t *testing.T) {
	for n := 0; n <= 12; n++ {
		for width := 1; width <= 4; width++ {
			remote := newFakeRemote(n)
			d := NewDeleter(remote, &recordingReporter{}, width, zerolog.Nop())

			page, err := remote.ListPage(context.Background(), Filter{}, n)
			require.NoError(t, err)
			require.NoError(t, d.Drain(context.Background(), page))

			assert.Equal(t, n, remote.attemptCount(), "n=%d width=%d", n, width)
			for id, count := range remote.attempts {
				assert.Equal(t, 1, count, "item %d attempted %d times", id, count)
			}
		}
	}
}

func TestDeleter_MaxInFlightIsWindowSize(t *testing.T) {
	remote := newFakeRemote(10)
	remote.delay = 10 * time.Millisecond
	d := NewDeleter(remote, &recordingReporter{}, 3, zerolog.Nop())

	page, _ := remote.ListPage(context.Background(), Filter{}, 10)
	require.NoError(t, d.Drain(context.Background(), page))

	assert.LessOrEqual(t, remote.maxInFlight.Load(), int32(3))
	assert.Equal(t, 10, remote.attemptCount())
}

func TestDeleter_FailureDoesNotStopSiblings(t *testing.T) {
	remote := newFakeRemote(4)
	remote.failIDs[1] = http.StatusInternalServerError
	reporter := &recordingReporter{}
	d := NewDeleter(remote, reporter, 2, zerolog.Nop())

	page, _ := remote.ListPage(context.Background(), Filter{}, 4)
	err := d.Drain(context.Background(), page)
	require.Error(t, err)

	var delErr *DeleteError
	require.ErrorAs(t, err, &delErr)
	assert.Equal(t, int64(1), delErr.Item.ID)
	assert.Equal(t, http.StatusInternalServerError, delErr.Status)
	assert.ErrorIs(t, err, ErrDeleteFailed)

	// The sibling in the same window still ran; the next window did not.
	assert.Equal(t, 1, remote.attempts[1])
	assert.Equal(t, 1, remote.attempts[2])
	assert.Zero(t, remote.attempts[3])
	assert.Zero(t, remote.attempts[4])

	require.Len(t, reporter.errors, 1)
	assert.Contains(t, reporter.errors[0], "ID:1")
	assert.Contains(t, reporter.errors[0], "Status code: 500")
	assert.Len(t, reporter.debug, 1)
}

func TestDeleter_FirstFailureInWindowOrder(t *testing.T) {
	remote := newFakeRemote(2)
	remote.failIDs[1] = http.StatusForbidden
	remote.failIDs[2] = http.StatusNotFound
	reporter := &recordingReporter{}
	d := NewDeleter(remote, reporter, 2, zerolog.Nop())

	page, _ := remote.ListPage(context.Background(), Filter{}, 2)
	err := d.Drain(context.Background(), page)

	var delErr *DeleteError
	require.ErrorAs(t, err, &delErr)
	assert.Equal(t, int64(1), delErr.Item.ID)
	assert.Len(t, reporter.errors, 2, "every failure is reported, only the first is returned")
}

func TestDeleter_TransportErrorAndMissingLabel(t *testing.T) {
	remote := newFakeRemote(1)
	remote.items[0].Label = ""
	remote.failIDs[1] = 0
	reporter := &recordingReporter{}
	d := NewDeleter(remote, reporter, 2, zerolog.Nop())

	page, _ := remote.ListPage(context.Background(), Filter{}, 1)
	err := d.Drain(context.Background(), page)
	require.Error(t, err)

	var delErr *DeleteError
	require.ErrorAs(t, err, &delErr)
	assert.Equal(t, "run 1", delErr.Item.DisplayLabel())
	assert.Contains(t, err.Error(), "connection reset by peer")
}

func TestDeleter_UnexpectedSuccessStatusIsFailure(t *testing.T) {
	remote := newFakeRemote(1)
	remote.failIDs[1] = http.StatusOK
	d := NewDeleter(remote, &recordingReporter{}, 2, zerolog.Nop())

	page, _ := remote.ListPage(context.Background(), Filter{}, 1)
	err := d.Drain(context.Background(), page)

	var delErr *DeleteError
	require.True(t, errors.As(err, &delErr))
	assert.Equal(t, http.StatusOK, delErr.Status)
}
