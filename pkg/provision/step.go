// pkg/provision/step.go

package provision

import (
	"context"
	"time"

	"github.com/i474232898/weatherctl/pkg/telemetry"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Outcome is the tri-state result of one pipeline step.
type Outcome int

const (
	// OutcomeSatisfied - the host was already in the desired state
	OutcomeSatisfied Outcome = iota
	// OutcomeConverged - the step changed the host
	OutcomeConverged
	// OutcomeFailed - the step failed; fatal steps abort the pipeline
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSatisfied:
		return "already satisfied"
	case OutcomeConverged:
		return "converged"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Glyph is the one-character marker used in the step report.
func (o Outcome) Glyph() string {
	switch o {
	case OutcomeSatisfied:
		return "="
	case OutcomeConverged:
		return "+"
	case OutcomeFailed:
		return "!"
	default:
		return "?"
	}
}

// StepResult records what one step did to the host.
type StepResult struct {
	Name     string
	Outcome  Outcome
	Reason   string // short human explanation of the outcome
	Warning  string // tolerated-failure detail, empty when clean
	Duration time.Duration
}

// Step is one stage of the install pipeline. A step returning an error
// aborts the pipeline only when Fatal is set; otherwise the error is
// recorded as a warning on the result and the run continues.
type Step struct {
	Name  string
	Fatal bool
	Run   func(ctx context.Context, cfg *Config) (StepResult, error)
}

// RunPipeline executes steps in order, appending one result per step to
// results. Steps that run later can therefore see what the earlier ones did.
// The appended results cover every step that ran, including a failing one.
func RunPipeline(ctx context.Context, cfg *Config, steps []Step, results *[]StepResult) error {
	logger := otelzap.Ctx(ctx)

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}

		res, err := runStep(ctx, cfg, step)
		*results = append(*results, res)

		if err != nil {
			if step.Fatal {
				logger.Error("Pipeline aborted",
					zap.String("step", step.Name),
					zap.Error(err))
				return err
			}
			logger.Warn("Step failed but is tolerated, continuing",
				zap.String("step", step.Name),
				zap.Error(err))
		}
	}
	return nil
}

func runStep(ctx context.Context, cfg *Config, step Step) (StepResult, error) {
	logger := otelzap.Ctx(ctx)
	logger.Info("Running step", zap.String("step", step.Name))

	ctx, span := telemetry.Start(ctx, "provision."+step.Name)
	defer span.End()

	start := time.Now()
	res, err := step.Run(ctx, cfg)
	res.Duration = time.Since(start)
	if res.Name == "" {
		res.Name = step.Name
	}

	if err != nil {
		span.RecordError(err)
		res.Outcome = OutcomeFailed
		if res.Reason == "" {
			res.Reason = err.Error()
		}
		if !step.Fatal && res.Warning == "" {
			res.Warning = err.Error()
		}
	}

	logger.Info("Step finished",
		zap.String("step", res.Name),
		zap.String("outcome", res.Outcome.String()),
		zap.Duration("duration", res.Duration))
	return res, err
}

// ReportResults logs the one-line-per-step pipeline summary.
func ReportResults(ctx context.Context, results []StepResult) {
	logger := otelzap.Ctx(ctx)
	for _, r := range results {
		line := r.Outcome.Glyph() + " " + r.Name
		fields := []zap.Field{
			zap.String("outcome", r.Outcome.String()),
			zap.Duration("duration", r.Duration.Round(time.Millisecond)),
		}
		if r.Reason != "" {
			fields = append(fields, zap.String("reason", r.Reason))
		}
		if r.Warning != "" {
			fields = append(fields, zap.String("warning", r.Warning))
			logger.Warn(line, fields...)
			continue
		}
		logger.Info(line, fields...)
	}
}
