package solve

import (
	"context"
	"strconv"

	"github.com/crillab/gophersat/maxsat"
	"github.com/pkg/errors"

	"github.com/elektrokombinacija/mapfsat/internal/wcnf"
)

// Embedded is the in-process MaxSAT backend, built on the pure-Go
// crillab/gophersat solver library. Every hard clause becomes an
// at-least-1-of constraint with no weight; every soft clause becomes the
// same with its weight attached, which gophersat's maxsat package turns
// into a blocking-literal-guarded cost-function term internally.
type Embedded struct{}

func NewEmbedded() *Embedded { return &Embedded{} }

func (*Embedded) Name() string { return "embedded" }

func (*Embedded) Solve(ctx context.Context, f *wcnf.Formula, hint *Hint) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{Status: StatusUnknown}, err
	}

	if isTrivialUnsat(f) {
		return Outcome{Status: StatusUnsat}, nil
	}

	constrs := make([]maxsat.Constr, 0, len(f.Hard)+len(f.Soft))
	for _, c := range f.Hard {
		constrs = append(constrs, toConstr(c.Lits, 0))
	}
	for _, c := range f.Soft {
		weight := c.Weight
		if weight == 0 {
			weight = 1
		}
		constrs = append(constrs, toConstr(c.Lits, weight))
	}

	// The warm-start hint has no direct equivalent in gophersat's maxsat
	// API (it exposes no decision-polarity hook); the hint is only honored
	// by the external backend. It is accepted here and ignored so callers
	// don't need to special-case backends.
	_ = hint

	problem := maxsat.New(constrs...)
	model, cost, broken := problem.Solve()
	if model == nil {
		return Outcome{Status: StatusUnsat}, nil
	}

	wm := wcnf.Model{}
	for name, v := range model {
		id, err := strconv.Atoi(name)
		if err != nil {
			return Outcome{}, errors.Wrapf(err, "solve: embedded backend returned non-numeric variable name %q", name)
		}
		wm[id] = v
	}

	_ = broken // broken soft-constraint indices aren't needed: every soft clause has weight 1, so cost already counts them.
	return Outcome{Status: StatusOptimum, Model: wm, Cost: cost}, nil
}

func isTrivialUnsat(f *wcnf.Formula) bool {
	return f.NumVars == 0 && len(f.Hard) == 1 && len(f.Hard[0].Lits) == 0 && len(f.Soft) == 0
}

func toConstr(lits []int, weight int) maxsat.Constr {
	out := make([]maxsat.Lit, len(lits))
	for i, l := range lits {
		v := l
		negated := false
		if v < 0 {
			v = -v
			negated = true
		}
		out[i] = maxsat.Lit{Var: strconv.Itoa(v), Negated: negated}
	}
	return maxsat.Constr{Lits: out, Weight: weight, AtLeast: 1}
}
