package solve

import (
	"context"

	"github.com/edaniels/golog"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/elektrokombinacija/mapfsat/internal/decode"
	"github.com/elektrokombinacija/mapfsat/internal/encode"
	"github.com/elektrokombinacija/mapfsat/internal/gridworld"
	"github.com/elektrokombinacija/mapfsat/internal/reach"
)

// Driver runs the iterative-deepening, two-phase makespan-then-SOC search
// described in the encoding design: it tries increasing makespan bounds
// until one is satisfiable, then, if the resulting sum-of-cost is not
// already provably optimal at that bound, re-encodes once more at the
// derived SOC-optimal bound with a warm start.
type Driver struct {
	Problem *gridworld.Problem
	Oracle  *reach.Oracle

	// Backend discharges phase 1 (makespan). Phase2Backend discharges
	// phase 2 (sum-of-costs) if non-nil, so the two phases can select
	// different external algorithm families (e.g. linear-SU for the first
	// deepening loop, OLL for the single SOC-optimal re-solve); when nil,
	// Backend is reused for both phases.
	Backend      Backend
	Phase2Backend Backend

	Options encode.Options
	Logger  golog.Logger

	// MaxBound stops the deepening loop and returns an error once exceeded;
	// 0 means unbounded (the hosting process's own CPU/memory limits are
	// the only backstop).
	MaxBound int
}

func (d *Driver) phase2Backend() Backend {
	if d.Phase2Backend != nil {
		return d.Phase2Backend
	}
	return d.Backend
}

// PlanResult is the outcome of a full driver run. MakespanPlan is always the
// plan decoded at the first satisfiable bound (minimal makespan); Plan is
// the final plan returned to the caller (the sum-of-costs-optimal one once
// phase 2 runs, otherwise identical to MakespanPlan).
type PlanResult struct {
	Plan          *gridworld.Plan
	MakespanPlan  *gridworld.Plan
	MakespanBound int
	SOC           int
	Phase2Used    bool
}

// Run executes the search to completion or until ctx is cancelled.
func (d *Driver) Run(ctx context.Context) (*PlanResult, error) {
	if d.Logger == nil {
		d.Logger = golog.NewDevelopmentLogger("solve")
	}

	for a, spl := range d.Oracle.SPL {
		if spl < 0 {
			return nil, errors.Errorf("solve: agent %d cannot reach its goal from its start", a)
		}
	}

	bound := d.Oracle.InitialBound
	for {
		if d.MaxBound > 0 && bound > d.MaxBound {
			return nil, errors.Errorf("solve: no solution found within makespan bound %d", d.MaxBound)
		}
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "solve: cancelled during phase 1 deepening")
		}

		runID := uuid.New().String()
		res, err := encode.Build(d.Problem, d.Oracle, bound, d.Options)
		if err != nil {
			if _, ok := err.(*encode.UnsatDetected); ok {
				d.Logger.Debugw("bound infeasible before solving, deepening", "run", runID, "bound", bound)
				bound++
				continue
			}
			return nil, errors.Wrap(err, "solve: phase 1 encode")
		}

		d.Logger.Infow("phase 1 encode complete", "run", runID, "bound", bound,
			"vars", res.Formula.NumVars, "hard", len(res.Formula.Hard), "soft", len(res.Formula.Soft))

		outcome, err := d.Backend.Solve(ctx, res.Formula, nil)
		if err != nil {
			return nil, errors.Wrapf(err, "solve: phase 1 backend %s", d.Backend.Name())
		}
		if outcome.Status != StatusOptimum {
			d.Logger.Infow("bound unsatisfiable, deepening", "run", runID, "bound", bound, "status", outcome.Status)
			bound++
			continue
		}

		soc := res.BaseCost + outcome.Cost
		tStar := d.Oracle.InitialBound + soc - d.Oracle.BestPossibleCost - 1
		d.Logger.Infow("phase 1 solved", "run", runID, "bound", bound, "soc", soc, "tStar", tStar)

		if tStar <= bound {
			plan, err := decode.Decode(d.Problem, res.Schema, outcome.Model)
			if err != nil {
				return nil, errors.Wrap(err, "solve: decoding phase 1 plan")
			}
			if err := decode.ValidateAgainstProblem(d.Problem, plan); err != nil {
				return nil, errors.Wrap(err, "solve: phase 1 plan failed validation")
			}
			return &PlanResult{Plan: plan, MakespanPlan: plan, MakespanBound: bound, SOC: soc}, nil
		}

		makespanPlan, err := decode.Decode(d.Problem, res.Schema, outcome.Model)
		if err != nil {
			return nil, errors.Wrap(err, "solve: decoding phase 1 (makespan-optimal) plan")
		}
		if err := decode.ValidateAgainstProblem(d.Problem, makespanPlan); err != nil {
			return nil, errors.Wrap(err, "solve: phase 1 (makespan-optimal) plan failed validation")
		}

		hint := extractHint(res.Schema, outcome.Model)
		res2, err := encode.Build(d.Problem, d.Oracle, tStar, d.Options)
		if err != nil {
			return nil, errors.Wrap(err, "solve: phase 2 encode (unexpected UNSAT at a bound derived from a feasible phase 1 solution)")
		}
		d.Logger.Infow("phase 2 encode complete", "run", runID, "bound", tStar,
			"vars", res2.Formula.NumVars, "hard", len(res2.Formula.Hard), "soft", len(res2.Formula.Soft))

		outcome2, err := d.phase2Backend().Solve(ctx, res2.Formula, hint)
		if err != nil {
			return nil, errors.Wrapf(err, "solve: phase 2 backend %s", d.phase2Backend().Name())
		}
		if outcome2.Status != StatusOptimum {
			return nil, errors.Errorf("solve: phase 2 at derived bound %d was unexpectedly %v", tStar, outcome2.Status)
		}

		soc2 := res2.BaseCost + outcome2.Cost
		plan, err := decode.Decode(d.Problem, res2.Schema, outcome2.Model)
		if err != nil {
			return nil, errors.Wrap(err, "solve: decoding phase 2 plan")
		}
		if err := decode.ValidateAgainstProblem(d.Problem, plan); err != nil {
			return nil, errors.Wrap(err, "solve: phase 2 plan failed validation")
		}
		d.Logger.Infow("phase 2 solved", "run", runID, "bound", tStar, "soc", soc2)
		return &PlanResult{Plan: plan, MakespanPlan: makespanPlan, MakespanBound: tStar, SOC: soc2, Phase2Used: true}, nil
	}
}

// extractHint pulls every true on/shift variable out of a phase's model,
// to seed the next phase's solve as a warm start.
func extractHint(s *encode.Schema, model map[int]bool) *Hint {
	var trueVars []int
	for id, v := range model {
		if !v {
			continue
		}
		info, ok := s.KindOf(id)
		if !ok {
			continue
		}
		if info.Kind == encode.KindOn || info.Kind == encode.KindShift {
			trueVars = append(trueVars, id)
		}
	}
	return &Hint{TrueVars: trueVars}
}
