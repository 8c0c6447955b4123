package decode

import (
	"fmt"

	"github.com/elektrokombinacija/mapfsat/internal/gridworld"
)

// ConflictKind distinguishes the two collision types the validator detects.
type ConflictKind int

const (
	VertexConflict ConflictKind = iota
	EdgeConflict                // a swap through a shared edge in one step
)

// Conflict describes two agents occupying or crossing the same space at
// the same time.
type Conflict struct {
	Kind           ConflictKind
	AgentA, AgentB int
	Time           int
	Pos            gridworld.Pos // for VertexConflict
	PosA, PosB     gridworld.Pos // for EdgeConflict: A's and B's positions at Time
}

func (c Conflict) String() string {
	if c.Kind == VertexConflict {
		return fmt.Sprintf("vertex conflict: agents %d and %d both at %v at t=%d", c.AgentA, c.AgentB, c.Pos, c.Time)
	}
	return fmt.Sprintf("edge conflict: agents %d and %d swap %v<->%v at t=%d", c.AgentA, c.AgentB, c.PosA, c.PosB, c.Time)
}

// FindAllConflicts re-derives every collision directly from decoded
// per-time-step positions, independent of however the plan was produced.
// Positions are exact per integer time step, so no interpolation is needed.
// Vertex conflicts and swaps are reported; follow conflicts (one agent
// entering a cell another leaves in the same step) are not.
func FindAllConflicts(plan *gridworld.Plan) []Conflict {
	var conflicts []Conflict
	n := len(plan.Positions)

	for t := 0; t <= plan.Makespan; t++ {
		for a := 0; a < n; a++ {
			for b := a + 1; b < n; b++ {
				if plan.Positions[a][t] == plan.Positions[b][t] {
					conflicts = append(conflicts, Conflict{
						Kind: VertexConflict, AgentA: a, AgentB: b, Time: t, Pos: plan.Positions[a][t],
					})
				}
			}
		}
	}

	for t := 0; t < plan.Makespan; t++ {
		for a := 0; a < n; a++ {
			for b := a + 1; b < n; b++ {
				aFrom, aTo := plan.Positions[a][t], plan.Positions[a][t+1]
				bFrom, bTo := plan.Positions[b][t], plan.Positions[b][t+1]
				if aFrom == bTo && aTo == bFrom && aFrom != aTo {
					conflicts = append(conflicts, Conflict{
						Kind: EdgeConflict, AgentA: a, AgentB: b, Time: t, PosA: aFrom, PosB: bFrom,
					})
				}
			}
		}
	}

	return conflicts
}

// FindFirstConflict returns the first conflict found, or ok=false if the
// plan is collision-free.
func FindFirstConflict(plan *gridworld.Plan) (Conflict, bool) {
	all := FindAllConflicts(plan)
	if len(all) == 0 {
		return Conflict{}, false
	}
	return all[0], true
}

// ValidateAgainstProblem checks the boundary conditions a decoded plan must
// satisfy: every agent starts and ends where the problem says, and the
// plan is collision-free.
func ValidateAgainstProblem(p *gridworld.Problem, plan *gridworld.Plan) error {
	for a, agent := range p.Agents {
		if plan.Positions[a][0] != agent.Start {
			return fmt.Errorf("decode: agent %d starts at %v, want %v", a, plan.Positions[a][0], agent.Start)
		}
		if plan.Positions[a][plan.Makespan] != agent.Goal {
			return fmt.Errorf("decode: agent %d ends at %v, want %v", a, plan.Positions[a][plan.Makespan], agent.Goal)
		}
	}
	if conflicts := FindAllConflicts(plan); len(conflicts) > 0 {
		return fmt.Errorf("decode: plan has %d unresolved conflicts, first: %s", len(conflicts), conflicts[0])
	}
	return nil
}
