package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ericogr/idlerpg-arena/internal/constants"
	"github.com/ericogr/idlerpg-arena/internal/engine"
	"github.com/ericogr/idlerpg-arena/internal/logging"
	"github.com/ericogr/idlerpg-arena/internal/settlement"
	"github.com/ericogr/idlerpg-arena/internal/telemetry"
)

// Presenter turns encounter state into chat messages. Failures are logged
// and never roll back combat state.
type Presenter interface {
	RenderSnapshot(ctx context.Context, snap engine.Snapshot) error
	RenderOutcome(ctx context.Context, out Outcome) error
	Say(ctx context.Context, text string) error
}

// Outcome is the final report of one encounter.
type Outcome struct {
	Snapshot engine.Snapshot
	Result   *settlement.Result
	Notes    []string
}

// Runner drives an encounter to a terminal state, one action per pace
// interval.
type Runner struct {
	pace  time.Duration
	sleep func(ctx context.Context, d time.Duration) error
}

func NewRunner(pace time.Duration) *Runner {
	return &Runner{pace: pace, sleep: sleepCtx}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Run steps enc until it finishes. A non-nil error means the encounter was
// aborted mid-fight; HP changes already applied stay applied and the caller
// must not settle it.
func (r *Runner) Run(ctx context.Context, enc *engine.Encounter, p Presenter) error {
	ctx, span := telemetry.Tracer("service").Start(ctx, "encounter.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("encounter.id", enc.ID()),
		attribute.String("encounter.kind", enc.Kind()),
	)

	for !enc.Done() {
		if _, err := enc.Step(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		if err := p.RenderSnapshot(ctx, enc.Snapshot()); err != nil {
			logging.Warn("snapshot presentation failed", logging.Fields{
				constants.LogFieldEncounterID: enc.ID(),
				"error":                       err.Error(),
			})
		}
		if enc.Done() {
			break
		}
		if err := r.sleep(ctx, r.pace); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "aborted")
			return err
		}
	}
	span.SetAttributes(
		attribute.String("encounter.outcome", string(enc.State())),
		attribute.Int("encounter.actions", enc.Actions()),
	)
	return nil
}
