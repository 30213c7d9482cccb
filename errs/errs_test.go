package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCode(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"not found", fmt.Errorf("%w: request", ErrNotFound), "ERR_NOT_FOUND"},
		{"invalid input", ErrInvalidInput, "ERR_INVALID_INPUT"},
		{"conflict", fmt.Errorf("%w: already friends", ErrConflict), "ERR_CONFLICT"},
		{"invalid state", ErrInvalidState, "ERR_INVALID_STATE"},
		{"unauthorized", ErrUnauthorized, "ERR_UNAUTHORIZED"},
		{"consistency", ErrConsistency, "ERR_CONSISTENCY"},
		{"unavailable", Unavailable("insert", errors.New("timeout")), "ERR_UNAVAILABLE"},
		{"unknown", errors.New("boom"), "ERR_INTERNAL"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Code(tc.err))
		})
	}
}

func TestUnavailable(t *testing.T) {
	assert.NoError(t, Unavailable("insert", nil))

	err := Unavailable("insert", errors.New("connection reset"))
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "connection reset")
}
