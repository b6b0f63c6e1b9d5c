package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Message(t *testing.T) {
	plain := New(ErrKindInvalidConfig, "identifier cannot be empty")
	assert.Equal(t, "[invalid_config] identifier cannot be empty", plain.Error())

	cause := errors.New("connection refused")
	wrapped := Wrap(ErrKindDatabase, "ping failed", cause)
	assert.Equal(t, "[database] ping failed: connection refused", wrapped.Error())
	assert.ErrorIs(t, wrapped, cause)
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name string
		err  error
		pred func(error) bool
	}{
		{"database", Wrap(ErrKindDatabase, "x", nil), IsDatabase},
		{"not connected", NotConnected(), IsNotConnected},
		{"already connected", AlreadyConnected(), IsAlreadyConnected},
		{"invalid config", InvalidConfig("bad %s", "name"), IsInvalidConfig},
		{"not found", New(ErrKindNotFound, "x"), IsNotFound},
		{"timeout", New(ErrKindTimeout, "x"), IsTimeout},
		{"storage", New(ErrKindStorage, "x"), IsStorage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.pred(tt.err))
			assert.True(t, tt.pred(fmt.Errorf("outer: %w", tt.err)), "predicate must see through wrapping")
		})
	}
}

func TestKindOf_ForeignError(t *testing.T) {
	assert.Equal(t, ErrKindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, ErrKindUnknown, KindOf(nil))
	assert.False(t, IsDatabase(errors.New("plain")))
}

func TestInvalidConfig_Formats(t *testing.T) {
	err := InvalidConfig("invalid identifier %q", "a b")
	assert.Equal(t, `invalid identifier "a b"`, err.Message)
	assert.Equal(t, "invalid_config", err.Kind.String())
}
