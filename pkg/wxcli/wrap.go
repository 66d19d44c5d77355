// pkg/wxcli/wrap.go

package wxcli

import (
	"context"

	cerr "github.com/cockroachdb/errors"
	"github.com/i474232898/weatherctl/pkg/wxerr"
	"github.com/i474232898/weatherctl/pkg/wxio"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Wrap adapts a RuntimeContext handler to cobra's RunE, adding panic
// recovery, lifecycle logging, and expected-error handling.
func Wrap(fn func(rc *wxio.RuntimeContext, cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		rc := wxio.NewContext(cmd.Context(), cmd.Name())
		defer rc.End(&err)

		defer func() {
			if r := recover(); r != nil {
				err = cerr.AssertionFailedf("panic: %v", r)
				rc.Log.Error("Panic recovered", zap.Any("panic", r))
			}
		}()

		err = fn(rc, cmd, args)
		if err != nil && !wxerr.IsExpectedUserError(err) {
			err = cerr.WithStack(err)
		}
		return err
	}
}

// WrapWithContext is like Wrap but derives the runtime context from an
// explicit parent, for callers that manage cancellation themselves.
func WrapWithContext(parent context.Context, fn func(rc *wxio.RuntimeContext, cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		rc := wxio.NewContext(parent, cmd.Name())
		defer rc.End(&err)
		defer rc.HandlePanic(&err)

		err = fn(rc, cmd, args)
		if err != nil && !wxerr.IsExpectedUserError(err) {
			err = cerr.WithStack(err)
		}
		return err
	}
}
