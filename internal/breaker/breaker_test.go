package breaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
)

var errBoom = errors.New("boom")
var errCaller = errors.New("bad input")

func fail(err error) func() (interface{}, error) {
	return func() (interface{}, error) { return nil, err }
}

func TestNew_TripsAfterConsecutiveFailures(t *testing.T) {
	cb := New(Settings{Name: "test", MaxFailures: 2, OpenTimeout: time.Minute})

	_, err := cb.Execute(fail(errBoom))
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, gobreaker.StateClosed, cb.State())

	_, err = cb.Execute(fail(errBoom))
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, gobreaker.StateOpen, cb.State())

	_, err = cb.Execute(fail(nil))
	assert.True(t, IsOpen(err))
}

func TestNew_IgnoredErrorsDoNotTrip(t *testing.T) {
	cb := New(Settings{
		Name:        "test",
		MaxFailures: 1,
		Ignore:      func(err error) bool { return errors.Is(err, errCaller) },
	})

	for range 3 {
		_, err := cb.Execute(fail(errCaller))
		assert.ErrorIs(t, err, errCaller)
	}
	_, _ = cb.Execute(fail(context.Canceled))
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestNew_Defaults(t *testing.T) {
	cb := New(Settings{Name: "defaults"})

	for range DefaultMaxFailures - 1 {
		_, _ = cb.Execute(fail(errBoom))
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())

	_, _ = cb.Execute(fail(errBoom))
	assert.Equal(t, gobreaker.StateOpen, cb.State())
}

func TestIsOpen(t *testing.T) {
	assert.True(t, IsOpen(gobreaker.ErrOpenState))
	assert.True(t, IsOpen(gobreaker.ErrTooManyRequests))
	assert.False(t, IsOpen(errBoom))
	assert.False(t, IsOpen(nil))
}
