// pkg/provision/step_test.go
package provision

import (
	"context"
	"testing"

	cerr "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutcomeStrings(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "already satisfied", OutcomeSatisfied.String())
	assert.Equal(t, "converged", OutcomeConverged.String())
	assert.Equal(t, "failed", OutcomeFailed.String())

	assert.Equal(t, "=", OutcomeSatisfied.Glyph())
	assert.Equal(t, "+", OutcomeConverged.Glyph())
	assert.Equal(t, "!", OutcomeFailed.Glyph())
}

func TestRunPipelineFatalAborts(t *testing.T) {
	t.Parallel()

	var ran []string
	step := func(name string, fatal bool, err error) Step {
		return Step{
			Name:  name,
			Fatal: fatal,
			Run: func(ctx context.Context, cfg *Config) (StepResult, error) {
				ran = append(ran, name)
				return StepResult{Outcome: OutcomeConverged}, err
			},
		}
	}

	var results []StepResult
	err := RunPipeline(context.Background(), &Config{}, []Step{
		step("one", true, nil),
		step("two", true, cerr.New("boom")),
		step("three", true, nil),
	}, &results)

	require.Error(t, err)
	assert.Equal(t, []string{"one", "two"}, ran, "steps after a fatal failure must not run")
	require.Len(t, results, 2)
	assert.Equal(t, OutcomeConverged, results[0].Outcome)
	assert.Equal(t, OutcomeFailed, results[1].Outcome, "an error forces the failed outcome")
	assert.Equal(t, "boom", results[1].Reason)
}

func TestRunPipelineToleratedFailureContinues(t *testing.T) {
	t.Parallel()

	var ran []string
	var results []StepResult
	err := RunPipeline(context.Background(), &Config{}, []Step{
		{Name: "flaky", Fatal: false, Run: func(ctx context.Context, cfg *Config) (StepResult, error) {
			ran = append(ran, "flaky")
			return StepResult{}, cerr.New("tolerated")
		}},
		{Name: "after", Fatal: true, Run: func(ctx context.Context, cfg *Config) (StepResult, error) {
			ran = append(ran, "after")
			return StepResult{Outcome: OutcomeSatisfied}, nil
		}},
	}, &results)

	require.NoError(t, err)
	assert.Equal(t, []string{"flaky", "after"}, ran)
	require.Len(t, results, 2)
	assert.Equal(t, OutcomeFailed, results[0].Outcome)
	assert.Equal(t, "tolerated", results[0].Warning, "tolerated errors surface as warnings")
	assert.Equal(t, OutcomeSatisfied, results[1].Outcome)
}

func TestRunPipelineSeesEarlierResults(t *testing.T) {
	t.Parallel()

	var results []StepResult
	var seen int
	err := RunPipeline(context.Background(), &Config{}, []Step{
		{Name: "first", Run: func(ctx context.Context, cfg *Config) (StepResult, error) {
			return StepResult{Outcome: OutcomeConverged}, nil
		}},
		{Name: "second", Run: func(ctx context.Context, cfg *Config) (StepResult, error) {
			seen = len(results)
			return StepResult{Outcome: OutcomeSatisfied}, nil
		}},
	}, &results)

	require.NoError(t, err)
	assert.Equal(t, 1, seen, "a later step can inspect earlier outcomes")
}

func TestRunPipelineHonorsCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	var results []StepResult

	err := RunPipeline(ctx, &Config{}, []Step{
		{Name: "canceller", Fatal: false, Run: func(ctx context.Context, cfg *Config) (StepResult, error) {
			cancel()
			return StepResult{Outcome: OutcomeConverged}, nil
		}},
		{Name: "never", Fatal: true, Run: func(ctx context.Context, cfg *Config) (StepResult, error) {
			t.Fatal("step ran after cancellation")
			return StepResult{}, nil
		}},
	}, &results)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, results, 1, "only the step that ran before cancellation is recorded")
}

func TestRunStepFillsNameAndDuration(t *testing.T) {
	t.Parallel()

	var results []StepResult
	err := RunPipeline(context.Background(), &Config{}, []Step{
		{Name: "timed", Run: func(ctx context.Context, cfg *Config) (StepResult, error) {
			return StepResult{Outcome: OutcomeSatisfied, Reason: "nothing to do"}, nil
		}},
	}, &results)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "timed", results[0].Name)
	assert.Equal(t, "nothing to do", results[0].Reason)
	assert.GreaterOrEqual(t, results[0].Duration.Nanoseconds(), int64(0))
}
