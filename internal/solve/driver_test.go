package solve

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/edaniels/golog"

	"github.com/elektrokombinacija/mapfsat/internal/cardinality"
	"github.com/elektrokombinacija/mapfsat/internal/decode"
	"github.com/elektrokombinacija/mapfsat/internal/encode"
	"github.com/elektrokombinacija/mapfsat/internal/gridworld"
	"github.com/elektrokombinacija/mapfsat/internal/reach"
	"github.com/elektrokombinacija/mapfsat/internal/wcnf"
)

// bruteForceBackend exhaustively searches all 2^NumVars assignments for the
// minimum-weight satisfying one. Only usable in tests against tiny
// instances, but exercises the real encode/solve/decode pipeline without
// depending on any external library's search behavior.
type bruteForceBackend struct{}

func (bruteForceBackend) Name() string { return "bruteforce-test" }

func (bruteForceBackend) Solve(ctx context.Context, f *wcnf.Formula, hint *Hint) (Outcome, error) {
	n := f.NumVars
	if n > 20 {
		panic("bruteForceBackend: instance too large for exhaustive search")
	}
	bestCost := -1
	var bestModel wcnf.Model

	for mask := 0; mask < (1 << n); mask++ {
		assign := make([]bool, n+1)
		for i := 1; i <= n; i++ {
			assign[i] = mask&(1<<(i-1)) != 0
		}
		if !allSatisfied(f.Hard, assign) {
			continue
		}
		cost := 0
		for _, c := range f.Soft {
			if !clauseSatisfied(c.Lits, assign) {
				cost += c.Weight
			}
		}
		if bestCost == -1 || cost < bestCost {
			bestCost = cost
			m := wcnf.Model{}
			for i := 1; i <= n; i++ {
				m[i] = assign[i]
			}
			bestModel = m
		}
	}
	if bestCost == -1 {
		return Outcome{Status: StatusUnsat}, nil
	}
	return Outcome{Status: StatusOptimum, Model: bestModel, Cost: bestCost}, nil
}

func allSatisfied(clauses []wcnf.Clause, assign []bool) bool {
	for _, c := range clauses {
		if !clauseSatisfied(c.Lits, assign) {
			return false
		}
	}
	return true
}

func clauseSatisfied(lits []int, assign []bool) bool {
	for _, l := range lits {
		v := l
		neg := false
		if v < 0 {
			v = -v
			neg = true
		}
		val := assign[v]
		if neg {
			val = !val
		}
		if val {
			return true
		}
	}
	return false // an empty clause is always false (the UNSAT-shortcut case)
}

// scriptedPlan is a hand-verified joint plan for one fixed bound: positions
// every agent occupies at every time step, the time each agent's finalState
// first goes true, and the falsified-soft-clause count the plan should be
// reported as costing.
type scriptedPlan struct {
	positions [][]gridworld.Pos // positions[a][t], 0<=t<=bound
	finalAt   []int             // finalAt[a]: first t with finalState(a,t) true
	cost      int
}

// scriptedBackend is a test-only Backend that skips search entirely: it
// rebuilds the schema for a known bound and asserts exactly the on/shift/
// finalState variables a scriptedPlan calls for, reporting a caller-chosen
// cost. It lets a test drive the two-phase control flow (or pin down a
// specific decoded plan) on instances too large for bruteForceBackend's
// exhaustive search, without needing to reason about hard-clause semantics
// at all — decode.Decode only reads off asserted variables.
type scriptedBackend struct {
	problem *gridworld.Problem
	oracle  *reach.Oracle
	opts    encode.Options
	bound   int
	plan    scriptedPlan
}

func (b *scriptedBackend) Name() string { return "scripted-test" }

func (b *scriptedBackend) Solve(ctx context.Context, f *wcnf.Formula, hint *Hint) (Outcome, error) {
	res, err := encode.Build(b.problem, b.oracle, b.bound, b.opts)
	if err != nil {
		return Outcome{}, err
	}
	s := res.Schema
	model := wcnf.Model{}

	moves := make([]map[gridworld.Pos]gridworld.Direction, b.bound)
	for t := range moves {
		moves[t] = map[gridworld.Pos]gridworld.Direction{}
	}

	for a, positions := range b.plan.positions {
		for t, pos := range positions {
			if v := s.On(pos, a, t); v != 0 {
				model[v] = true
			}
		}
		for t := 0; t < b.bound; t++ {
			moves[t][positions[t]] = directionTo(positions[t], positions[t+1])
		}
	}

	for t := 0; t < b.bound; t++ {
		for x := 0; x < b.problem.Grid.X; x++ {
			for y := 0; y < b.problem.Grid.Y; y++ {
				pos := gridworld.Pos{X: x, Y: y}
				if b.problem.Grid.At(pos).Obstacle {
					continue
				}
				d, ok := moves[t][pos]
				if !ok {
					d = gridworld.Stay
				}
				if v := s.Shift(pos, d, t); v != 0 {
					model[v] = true
				}
			}
		}
	}

	for a, t := range b.plan.finalAt {
		if v := s.FinalState(a, t); v != 0 {
			model[v] = true
		}
	}

	return Outcome{Status: StatusOptimum, Model: model, Cost: b.plan.cost}, nil
}

func directionTo(from, to gridworld.Pos) gridworld.Direction {
	switch {
	case from == to:
		return gridworld.Stay
	case to.X == from.X-1 && to.Y == from.Y:
		return gridworld.Up
	case to.X == from.X+1 && to.Y == from.Y:
		return gridworld.Down
	case to.X == from.X && to.Y == from.Y-1:
		return gridworld.Left
	case to.X == from.X && to.Y == from.Y+1:
		return gridworld.Right
	default:
		panic(fmt.Sprintf("scriptedBackend: %v -> %v is not a single grid step", from, to))
	}
}

// TestDriverMultiAgentConflictAvoidance runs two agents crossing the same
// corridor on disjoint edges at the same time step and checks the real
// encode/solve/decode pipeline (via bruteForceBackend, no shortcuts) comes
// back with a collision-free plan at the sum-of-shortest-paths cost.
func TestDriverMultiAgentConflictAvoidance(t *testing.T) {
	p, err := gridworld.Load(strings.NewReader(`p2
Grid:
1,3
...
Agents:
2
0,0,1,0,2
1,0,0,0,1
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	o := reach.Build(p, reach.Dijkstra)
	d := &Driver{
		Problem: p,
		Oracle:  o,
		Backend: bruteForceBackend{},
		Options: encode.Options{Mode: encode.ModeFull, Formulation: encode.SwapOnly, AtMostOneKind: cardinality.Pairwise},
		Logger:  golog.NewTestLogger(t),
	}
	result, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.SOC != o.BestPossibleCost {
		t.Errorf("SOC = %d, want %d (both agents move on disjoint edges, no contention)", result.SOC, o.BestPossibleCost)
	}
	if conflicts := decode.FindAllConflicts(result.Plan); len(conflicts) != 0 {
		t.Errorf("decoded plan has conflicts: %v", conflicts)
	}
	if err := decode.ValidateAgainstProblem(p, result.Plan); err != nil {
		t.Errorf("decoded plan failed validation: %v", err)
	}
}

// TestDriverPhase2TriggeredBySOCBound forces the T*>bound branch: a makespan-
// optimal plan in which one agent detours around another costs more in
// sum-of-costs than the bound derived from it admits, so the driver must
// re-encode and re-solve at the larger derived bound. Both the makespan-
// optimal and the final plan are hand-verified collision-free.
func TestDriverPhase2TriggeredBySOCBound(t *testing.T) {
	p, err := gridworld.Load(strings.NewReader(`p3
Grid:
2,4
....
#.##
Agents:
2
0,0,0,0,3
1,0,1,0,0
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	o := reach.Build(p, reach.Dijkstra)
	opts := encode.Options{Mode: encode.ModeFull, Formulation: encode.SwapOnly, AtMostOneKind: cardinality.Pairwise}

	// Agent 0: (0,0)->(0,1)->(0,2)->(0,3), its own shortest path (SPL=3).
	// Agent 1: (0,1)->(1,1)->(0,1)->(0,0), detouring into the (1,1) bay and
	// back out to let agent 0 pass through (0,1) at t=1, then returning to
	// its goal (0,0) at t=3 — two steps later than its SPL=1.
	phase1Positions := [][]gridworld.Pos{
		{{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 0, Y: 2}, {X: 0, Y: 3}},
		{{X: 0, Y: 1}, {X: 1, Y: 1}, {X: 0, Y: 1}, {X: 0, Y: 0}},
	}
	if o.InitialBound != 3 {
		t.Fatalf("InitialBound = %d, want 3 (test setup assumption)", o.InitialBound)
	}
	backend1 := &scriptedBackend{
		problem: p, oracle: o, opts: opts, bound: o.InitialBound,
		plan: scriptedPlan{positions: phase1Positions, finalAt: []int{3, 3}, cost: 2},
	}

	// Same joint plan extended by one trailing "stay" step to fit the
	// larger derived bound.
	phase2Positions := [][]gridworld.Pos{
		{{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 0, Y: 2}, {X: 0, Y: 3}, {X: 0, Y: 3}},
		{{X: 0, Y: 1}, {X: 1, Y: 1}, {X: 0, Y: 1}, {X: 0, Y: 0}, {X: 0, Y: 0}},
	}
	backend2 := &scriptedBackend{
		problem: p, oracle: o, opts: opts, bound: 4,
		plan: scriptedPlan{positions: phase2Positions, finalAt: []int{3, 3}, cost: 2},
	}

	d := &Driver{
		Problem:       p,
		Oracle:        o,
		Backend:       backend1,
		Phase2Backend: backend2,
		Options:       opts,
		Logger:        golog.NewTestLogger(t),
	}
	result, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Phase2Used {
		t.Fatal("Phase2Used = false, want true (SOC-derived bound exceeds the makespan bound)")
	}
	if result.MakespanBound != 4 {
		t.Errorf("MakespanBound = %d, want 4 (derived T*)", result.MakespanBound)
	}
	if result.SOC != 6 {
		t.Errorf("SOC = %d, want 6", result.SOC)
	}
	if result.MakespanPlan.Makespan != 3 {
		t.Errorf("MakespanPlan.Makespan = %d, want 3", result.MakespanPlan.Makespan)
	}
	for name, plan := range map[string]*gridworld.Plan{"makespan-optimal": result.MakespanPlan, "final": result.Plan} {
		if conflicts := decode.FindAllConflicts(plan); len(conflicts) != 0 {
			t.Errorf("%s plan has conflicts: %v", name, conflicts)
		}
		if err := decode.ValidateAgainstProblem(p, plan); err != nil {
			t.Errorf("%s plan failed validation: %v", name, err)
		}
	}
}

func TestDriverSingleAgentStraightLine(t *testing.T) {
	p, err := gridworld.Load(strings.NewReader(`p1
Grid:
1,3
...
Agents:
1
0,0,0,0,2
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	o := reach.Build(p, reach.Dijkstra)
	d := &Driver{
		Problem: p,
		Oracle:  o,
		Backend: bruteForceBackend{},
		Options: encode.Options{Mode: encode.ModeFull, Formulation: encode.SwapOnly, AtMostOneKind: cardinality.Pairwise},
		Logger:  golog.NewTestLogger(t),
	}
	result, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.SOC != o.SPL[0] {
		t.Errorf("SOC = %d, want %d (single agent, no contention)", result.SOC, o.SPL[0])
	}
	if err := decode.ValidateAgainstProblem(p, result.Plan); err != nil {
		t.Errorf("decoded plan failed validation: %v", err)
	}
}
