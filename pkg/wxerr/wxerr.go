// pkg/wxerr/wxerr.go

package wxerr

import (
	"context"
	"errors"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// UserError marks an operator mistake: wrong invocation, missing
// prerequisite, declined prompt. The CLI wrapper prints these without a
// stack trace.
type UserError struct {
	Err error
}

func (e *UserError) Error() string {
	if e.Err == nil {
		return "user error"
	}
	return e.Err.Error()
}

func (e *UserError) Unwrap() error { return e.Err }

// NewExpectedError wraps err as a UserError and records it at info level,
// since expected errors are part of normal operation. Returns nil for nil.
func NewExpectedError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	otelzap.Ctx(ctx).Info("Expected user error", zap.Error(err))
	return &UserError{Err: err}
}

// IsExpectedUserError reports whether err (or anything it wraps) is a
// UserError.
func IsExpectedUserError(err error) bool {
	var ue *UserError
	return errors.As(err, &ue)
}
