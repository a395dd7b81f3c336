package apperr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindOf_UnwrapsTripError(t *testing.T) {
	cause := errors.New("connection refused")
	err := New(TransientProvider, "flightdata.GetFlightStatus", "provider unreachable", cause)

	require.Equal(t, TransientProvider, KindOf(err))
	require.True(t, IsRetryable(err))
	require.ErrorIs(t, err, cause)
}

func TestKindOf_WrappedTripError(t *testing.T) {
	inner := New(NotFound, "store.GetTripByID", "no such trip", nil)
	wrapped := errors.New("wrapper: " + inner.Error())
	require.Equal(t, Persistence, KindOf(wrapped), "a plain error that merely mentions a TripError is not unwrapped")

	var asErr error = fmtWrap(inner)
	require.Equal(t, NotFound, KindOf(asErr))
}

func TestKindOf_UnclassifiedDefaultsToPersistence(t *testing.T) {
	require.Equal(t, Persistence, KindOf(errors.New("generic failure")))
}

func TestIsRetryable_NonTripErrorIsFalse(t *testing.T) {
	require.False(t, IsRetryable(errors.New("generic failure")))
}

func fmtWrap(err error) error {
	return &wrappedErr{cause: err}
}

type wrappedErr struct{ cause error }

func (w *wrappedErr) Error() string { return "context: " + w.cause.Error() }
func (w *wrappedErr) Unwrap() error { return w.cause }
