// pkg/wxerr/wxerr_test.go
package wxerr

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestNewExpectedError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	if err := NewExpectedError(ctx, nil); err != nil {
		t.Error("NewExpectedError(nil) should return nil")
	}

	cause := errors.New("requirements.txt not found")
	wrapped := NewExpectedError(ctx, cause)
	if wrapped == nil {
		t.Fatal("NewExpectedError should wrap a non-nil error")
	}

	var ue *UserError
	if !errors.As(wrapped, &ue) {
		t.Error("NewExpectedError should return a UserError")
	}
	if !errors.Is(wrapped, cause) {
		t.Error("wrapped error should preserve the cause")
	}
	if wrapped.Error() != cause.Error() {
		t.Errorf("Error() = %q, want %q", wrapped.Error(), cause.Error())
	}
}

func TestUserErrorWithoutCause(t *testing.T) {
	t.Parallel()

	e := &UserError{}
	if e.Error() != "user error" {
		t.Errorf("Error() = %q", e.Error())
	}
}

func TestIsExpectedUserError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("disk full"), false},
		{"user error", &UserError{Err: errors.New("declined")}, true},
		{"wrapped user error", fmt.Errorf("step: %w", NewExpectedError(context.Background(), errors.New("declined"))), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsExpectedUserError(tt.err); got != tt.want {
				t.Errorf("IsExpectedUserError() = %v, want %v", got, tt.want)
			}
		})
	}
}
