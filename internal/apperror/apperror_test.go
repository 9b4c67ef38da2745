package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatus(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  *Error
		want int
	}{
		{Validation("missing"), http.StatusBadRequest},
		{Conflict("dup"), http.StatusConflict},
		{Authentication("nope"), http.StatusUnauthorized},
		{NotFound("gone"), http.StatusNotFound},
		{Dependency("upload", errors.New("boom")), http.StatusInternalServerError},
		{Internal("oops", nil), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, tc.err.Status(), tc.err.Kind)
	}
}

func TestFrom(t *testing.T) {
	t.Parallel()

	t.Run("nil stays nil", func(t *testing.T) {
		require.Nil(t, From(nil))
	})

	t.Run("unwraps wrapped app errors", func(t *testing.T) {
		orig := Conflict("user exists")
		got := From(fmt.Errorf("register: %w", orig))
		require.Same(t, orig, got)
	})

	t.Run("unknown errors become internal", func(t *testing.T) {
		cause := errors.New("disk on fire")
		got := From(cause)
		require.Equal(t, KindInternal, got.Kind)
		require.ErrorIs(t, got, cause)
	})
}

func TestIs(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("ctx: %w", AuthenticationCause("invalid token", errors.New("sig")))
	require.True(t, Is(err, KindAuthentication))
	require.False(t, Is(err, KindNotFound))
	require.False(t, Is(errors.New("plain"), KindInternal))
}
