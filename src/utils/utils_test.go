package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/opsportal/portal/src/oops"
	"github.com/stretchr/testify/assert"
)

func TestOrDefault(t *testing.T) {
	assert.Equal(t, 5, OrDefault(0, 5))
	assert.Equal(t, 3, OrDefault(3, 5))
	assert.Equal(t, "fallback", OrDefault("", "fallback"))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 1, Clamp(1, -4, 20))
	assert.Equal(t, 20, Clamp(1, 400, 20))
	assert.Equal(t, 7, Clamp(1, 7, 20))
}

func TestLaterOf(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 100, 0, time.UTC)
	later := base.Add(50 * time.Second)
	earlier := base.Add(-50 * time.Second)

	assert.Equal(t, base, LaterOf(base, nil))
	assert.Equal(t, later, LaterOf(base, &later))
	assert.Equal(t, base, LaterOf(base, &earlier))
}

func TestRecoverPanicAsError(t *testing.T) {
	t.Run("error value", func(t *testing.T) {
		sentinel := errors.New("kaboom")
		f := func() (err error) {
			defer RecoverPanicAsError(&err)
			panic(sentinel)
		}
		err := f()
		assert.ErrorIs(t, err, sentinel)
		var oopsErr *oops.Error
		assert.ErrorAs(t, err, &oopsErr)
	})
	t.Run("non-error value", func(t *testing.T) {
		f := func() (err error) {
			defer RecoverPanicAsError(&err)
			panic("just a string")
		}
		assert.ErrorContains(t, f(), "just a string")
	})
	t.Run("no panic", func(t *testing.T) {
		f := func() (err error) {
			defer RecoverPanicAsError(&err)
			return nil
		}
		assert.NoError(t, f())
	})
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, SleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, SleepContext(ctx, time.Hour), ErrSleepInterrupted)
}
