// pkg/wxio/context_test.go
package wxio

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewContextPopulatesFields(t *testing.T) {
	t.Parallel()

	rc := NewContext(context.Background(), "install")
	require.NotNil(t, rc)

	assert.NotNil(t, rc.Ctx)
	assert.NotNil(t, rc.Log)
	assert.NotNil(t, rc.Span)
	assert.NotNil(t, rc.Attributes)
	assert.Len(t, rc.RunID, 8)
	assert.Equal(t, "install", rc.Command)
	assert.WithinDuration(t, time.Now(), rc.Timestamp, time.Minute)
}

func TestHandlePanicConvertsToError(t *testing.T) {
	t.Parallel()

	rc := NewContext(context.Background(), "install")

	run := func() (err error) {
		defer rc.HandlePanic(&err)
		panic("unit body mismatch")
	}

	err := run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unit body mismatch")
}

func TestHandlePanicLeavesCleanRuns(t *testing.T) {
	t.Parallel()

	rc := NewContext(context.Background(), "status")

	run := func() (err error) {
		defer rc.HandlePanic(&err)
		return nil
	}

	assert.NoError(t, run())
}

func TestEndToleratesBothOutcomes(t *testing.T) {
	t.Parallel()

	rc := NewContext(context.Background(), "install")
	var err error
	rc.End(&err)

	rc = NewContext(context.Background(), "install")
	err = context.DeadlineExceeded
	rc.End(&err)
}

func TestClassifyCommand(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "lifecycle", classifyCommand("install"))
	assert.Equal(t, "inspect", classifyCommand("status"))
	assert.Equal(t, "general", classifyCommand("run"))
	assert.Equal(t, "general", classifyCommand("weatherctl"))
}
