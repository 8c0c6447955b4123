// Package decode turns a satisfying MaxSAT model back into a concrete joint
// plan, and independently re-derives any conflicts it contains as a sanity
// check that does not trust the clause generator.
package decode

import (
	"github.com/pkg/errors"

	"github.com/elektrokombinacija/mapfsat/internal/encode"
	"github.com/elektrokombinacija/mapfsat/internal/gridworld"
	"github.com/elektrokombinacija/mapfsat/internal/wcnf"
)

// Decode reads positions and shifts for every agent and time step out of a
// satisfying model, and computes each agent's cost from its finalState
// variables.
func Decode(p *gridworld.Problem, s *encode.Schema, model wcnf.Model) (*gridworld.Plan, error) {
	n := len(p.Agents)
	plan := &gridworld.Plan{
		Makespan:  s.Bound,
		Positions: make([][]gridworld.Pos, n),
		AgentCost: make([]int, n),
	}

	for a := range p.Agents {
		positions := make([]gridworld.Pos, s.Bound+1)
		for t := 0; t <= s.Bound; t++ {
			pos, err := positionAt(p, s, model, a, t)
			if err != nil {
				return nil, err
			}
			positions[t] = pos
		}
		plan.Positions[a] = positions

		cost := s.Bound
		for t := 0; t <= s.Bound; t++ {
			if v := s.FinalState(a, t); v != 0 && model[v] {
				cost = t
				break
			}
		}
		plan.AgentCost[a] = cost
	}

	plan.Shifts = make([][][]gridworld.Direction, s.Bound)
	for t := 0; t < s.Bound; t++ {
		row := make([][]gridworld.Direction, p.Grid.X)
		for x := 0; x < p.Grid.X; x++ {
			row[x] = make([]gridworld.Direction, p.Grid.Y)
			for y := 0; y < p.Grid.Y; y++ {
				row[x][y] = -1
			}
		}
		for x := 0; x < p.Grid.X; x++ {
			for y := 0; y < p.Grid.Y; y++ {
				pos := gridworld.Pos{X: x, Y: y}
				cell := p.Grid.At(pos)
				if cell.Obstacle {
					continue
				}
				found := false
				for _, d := range cell.CompatibleOps {
					if v := s.Shift(pos, d, t); v != 0 && model[v] {
						row[x][y] = d
						found = true
						break
					}
				}
				if !found {
					return nil, errors.Errorf("decode: no shift asserted true for cell %v at t=%d", pos, t)
				}
			}
		}
		plan.Shifts[t] = row
	}

	return plan, nil
}

func positionAt(p *gridworld.Problem, s *encode.Schema, model wcnf.Model, a, t int) (gridworld.Pos, error) {
	found := -1
	var result gridworld.Pos
	for x := 0; x < p.Grid.X; x++ {
		for y := 0; y < p.Grid.Y; y++ {
			pos := gridworld.Pos{X: x, Y: y}
			if v := s.On(pos, a, t); v != 0 && model[v] {
				if found >= 0 {
					return gridworld.Pos{}, errors.Errorf("decode: agent %d has more than one position at t=%d", a, t)
				}
				found = 1
				result = pos
			}
		}
	}
	if found < 0 {
		return gridworld.Pos{}, errors.Errorf("decode: agent %d has no position at t=%d", a, t)
	}
	return result, nil
}
