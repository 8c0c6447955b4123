// Package solve drives the makespan-bound search loop and hides the actual
// MaxSAT solving behind a common Backend interface, so the core encoding
// pipeline never depends on how the optimization is discharged.
package solve

import (
	"context"

	"github.com/elektrokombinacija/mapfsat/internal/wcnf"
)

// Status classifies a solver's response to one formula.
type Status int

const (
	StatusOptimum Status = iota
	StatusUnsat
	StatusUnknown
)

// Outcome is what a Backend returns for one Solve call.
type Outcome struct {
	Status Status
	Model  wcnf.Model
	// Cost is the number of falsified soft clauses (not the full SOC; the
	// driver adds BaseCost to get SOC).
	Cost int
}

// Hint is a partial assignment used to warm-start a subsequent solve, built
// from a prior phase's true on/shift literals.
type Hint struct {
	TrueVars []int
}

// Backend discharges the actual MaxSAT optimization for one formula. Two
// backends exist: an in-process solver (embedded.go) and a subprocess one
// invoking an external binary over the WCNF wire format (external.go).
type Backend interface {
	Name() string
	Solve(ctx context.Context, f *wcnf.Formula, hint *Hint) (Outcome, error)
}
