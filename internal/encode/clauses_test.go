package encode

import (
	"strings"
	"testing"

	"github.com/elektrokombinacija/mapfsat/internal/cardinality"
	"github.com/elektrokombinacija/mapfsat/internal/gridworld"
	"github.com/elektrokombinacija/mapfsat/internal/reach"
)

func mustLoad(t *testing.T, s string) *gridworld.Problem {
	t.Helper()
	p, err := gridworld.Load(strings.NewReader(s))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return p
}

func TestBuildSingleAgentNoSoftClausesAtSPL(t *testing.T) {
	p := mustLoad(t, `p1
Grid:
1,3
...
Agents:
1
0,0,0,0,2
`)
	o := reach.Build(p, reach.Dijkstra)
	res, err := Build(p, o, o.SPL[0], Options{Mode: ModeFull, Formulation: SwapOnly, AtMostOneKind: cardinality.Pairwise})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.NumSoftClauses != 0 {
		t.Errorf("NumSoftClauses = %d at makespan==SPL, want 0", res.NumSoftClauses)
	}
	if res.BaseCost != o.SPL[0] {
		t.Errorf("BaseCost = %d, want %d", res.BaseCost, o.SPL[0])
	}
}

func TestBuildDeeperBoundAddsSoftClauses(t *testing.T) {
	p := mustLoad(t, `p1
Grid:
1,3
...
Agents:
1
0,0,0,0,2
`)
	o := reach.Build(p, reach.Dijkstra)
	bound := o.SPL[0] + 2
	res, err := Build(p, o, bound, Options{Mode: ModeFull, Formulation: SwapOnly, AtMostOneKind: cardinality.Pairwise})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.NumSoftClauses != 2 {
		t.Errorf("NumSoftClauses = %d, want 2 (bound-SPL)", res.NumSoftClauses)
	}
}

func TestBuildUnreachableStartReportsUnsat(t *testing.T) {
	p := mustLoad(t, `p1
Grid:
1,3
...
Agents:
1
0,0,0,0,2
`)
	o := reach.Build(p, reach.Dijkstra)
	// bound smaller than SPL: the goal pin at t=bound can't exist.
	_, err := Build(p, o, o.SPL[0]-1, Options{Mode: ModeFull, Formulation: SwapOnly, AtMostOneKind: cardinality.Pairwise})
	if err == nil {
		t.Fatalf("expected UnsatDetected for bound < SPL")
	}
	if _, ok := err.(*UnsatDetected); !ok {
		t.Errorf("expected *UnsatDetected, got %T: %v", err, err)
	}
}

func TestStartAndGoalPinnedAsUnitClauses(t *testing.T) {
	p := mustLoad(t, `p1
Grid:
2,2
..
..
Agents:
2
0,0,0,1,1
1,1,1,0,0
`)
	o := reach.Build(p, reach.Dijkstra)
	bound := o.InitialBound
	res, err := Build(p, o, bound, Options{Mode: ModeFull, Formulation: SwapAndFollow, AtMostOneKind: cardinality.Sequential})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	startVar0 := res.Schema.On(gridworld.Pos{X: 0, Y: 0}, 0, 0)
	goalVar0 := res.Schema.On(gridworld.Pos{X: 1, Y: 1}, 0, bound)
	found, goalFound := false, false
	for _, c := range res.Formula.Hard {
		if len(c.Lits) == 1 && c.Lits[0] == startVar0 {
			found = true
		}
		if len(c.Lits) == 1 && c.Lits[0] == goalVar0 {
			goalFound = true
		}
	}
	if !found {
		t.Errorf("expected a unit clause pinning agent 0's start variable")
	}
	if goalVar0 == 0 || !goalFound {
		t.Errorf("expected a unit clause pinning agent 0's goal variable at t=%d", bound)
	}
}
