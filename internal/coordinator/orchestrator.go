package coordinator

import (
	"context"
	"log/slog"
)

// Step is a single unit of work of a sync attempt. Compensate undoes the
// effects of a successful Execute when a later step fails.
type Step interface {
	Name() string
	Execute(ctx context.Context) error
	Compensate(ctx context.Context) error
}

// Orchestrator runs steps in order and compensates the completed ones, last
// first, when a step fails.
type Orchestrator struct {
	steps []Step
}

func NewOrchestrator(steps ...Step) *Orchestrator {
	return &Orchestrator{steps: steps}
}

func (o *Orchestrator) Start(ctx context.Context) error {
	var done []Step

	for _, step := range o.steps {
		slog.DebugContext(ctx, "executing step", "step", step.Name())
		if err := step.Execute(ctx); err != nil {
			slog.WarnContext(ctx, "step failed, rolling back", "step", step.Name(), "error", err)
			o.rollback(ctx, done)
			return err
		}
		done = append(done, step)
	}
	return nil
}

func (o *Orchestrator) rollback(ctx context.Context, steps []Step) {
	for i := len(steps) - 1; i >= 0; i-- {
		step := steps[i]
		slog.InfoContext(ctx, "compensating step", "step", step.Name())
		if err := step.Compensate(ctx); err != nil {
			slog.ErrorContext(ctx, "CRITICAL: failed to compensate step", "step", step.Name(), "error", err)
		}
	}
}
