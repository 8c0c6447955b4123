package encode

import (
	"github.com/elektrokombinacija/mapfsat/internal/cardinality"
	"github.com/elektrokombinacija/mapfsat/internal/gridworld"
	"github.com/elektrokombinacija/mapfsat/internal/reach"
	"github.com/elektrokombinacija/mapfsat/internal/wcnf"
)

var allDirections = []gridworld.Direction{gridworld.Stay, gridworld.Up, gridworld.Down, gridworld.Left, gridworld.Right}

// Mode selects which clause families are emitted.
type Mode int

const (
	// ModeFull emits C1-C9 (redundant but typically the fastest to solve).
	ModeFull Mode = iota
	// ModeNoC9 omits the agent-at-one-cell clauses.
	ModeNoC9
	// ModeNoC5 omits the position-existence clauses.
	ModeNoC5
)

// Formulation selects how conflict avoidance (C7) is encoded.
type Formulation int

const (
	// SwapOnly (F=0) forbids only agent-agent swaps across an edge.
	SwapOnly Formulation = iota
	// SwapAndFollow (F=1) additionally forbids one agent following another
	// into a cell it vacates in the same step.
	SwapAndFollow
)

// Options configures one encode(bound) invocation.
type Options struct {
	Mode          Mode
	Formulation   Formulation
	AtMostOneKind cardinality.Kind
}

// UnsatDetected is returned by Build when a required start variable was
// pruned away by the reachability oracle at this bound: the instance is
// certainly UNSAT here and the caller should increment the bound without
// invoking a solver.
type UnsatDetected struct {
	Agent int
}

func (e *UnsatDetected) Error() string {
	return "encode: agent start position unreachable at this makespan bound"
}

// Result is everything the solve driver needs from one encode(bound) call.
type Result struct {
	Schema         *Schema
	Formula        *wcnf.Formula
	BaseCost       int
	NumSoftClauses int
}

// Build runs the clause generator for a fixed bound, returning an
// *UnsatDetected error if a start or goal cell was pruned by the oracle.
func Build(p *gridworld.Problem, o *reach.Oracle, bound int, opt Options) (*Result, error) {
	schema := BuildSchema(p, o, bound)
	ctr := cardinality.NewCounter(schema.NumVars)

	var hard []wcnf.Clause
	addHard := func(lits ...int) {
		cp := append([]int(nil), lits...)
		hard = append(hard, wcnf.Clause{Lits: cp})
	}
	addCardinality := func(clauses []cardinality.Clause) {
		for _, c := range clauses {
			lits := make([]int, len(c))
			for i, l := range c {
				lits[i] = int(l)
			}
			hard = append(hard, wcnf.Clause{Lits: lits})
		}
	}

	// C1: start pinning.
	for a, agent := range p.Agents {
		v := schema.On(agent.Start, a, 0)
		if v == 0 {
			return nil, &UnsatDetected{Agent: a}
		}
		addHard(v)
	}

	// C2: goal pinning.
	for a, agent := range p.Agents {
		v := schema.On(agent.Goal, a, bound)
		if v == 0 {
			return nil, &UnsatDetected{Agent: a}
		}
		addHard(v)
		fv := schema.FinalState(a, bound)
		addHard(fv)
	}

	// C3: finalState semantics.
	for a, agent := range p.Agents {
		for t := o.SPL[a]; t < bound; t++ {
			ft := schema.FinalState(a, t)
			ft1 := schema.FinalState(a, t+1)
			if ft == 0 || ft1 == 0 {
				continue
			}
			onGoalT := schema.On(agent.Goal, a, t)
			// finalState(t) -> finalState(t+1)
			addHard(-ft, ft1)
			if onGoalT != 0 {
				// finalState(t) -> on(goal,t)
				addHard(-ft, onGoalT)
				// on(goal,t) & finalState(t+1) -> finalState(t)
				addHard(-onGoalT, -ft1, ft)
			}
		}
	}

	// C4: transition coupling.
	for t := 0; t < bound; t++ {
		for a := range p.Agents {
			for x := 0; x < p.Grid.X; x++ {
				for y := 0; y < p.Grid.Y; y++ {
					pos := gridworld.Pos{X: x, Y: y}
					cell := p.Grid.At(pos)
					if cell.Obstacle {
						continue
					}
					onHere := schema.On(pos, a, t)
					if onHere == 0 {
						continue
					}
					for _, d := range cell.CompatibleOps {
						shiftVar := schema.Shift(pos, d, t)
						target := pos.Step(d)
						onThere := schema.On(target, a, t+1)
						if onThere == 0 {
							// impossible shift for this agent at this time
							addHard(-onHere, -shiftVar)
							continue
						}
						addHard(-onHere, -shiftVar, onThere)
						addHard(-onHere, -onThere, shiftVar)
					}
				}
			}
		}
	}

	// C5: position existence (skipped in ModeNoC5).
	if opt.Mode != ModeNoC5 {
		for a := range p.Agents {
			for x := 0; x < p.Grid.X; x++ {
				for y := 0; y < p.Grid.Y; y++ {
					pos := gridworld.Pos{X: x, Y: y}
					cell := p.Grid.At(pos)
					if cell.Obstacle {
						continue
					}
					for t := 0; t <= bound; t++ {
						onHere := schema.On(pos, a, t)
						if onHere == 0 {
							continue
						}
						if t < bound {
							var succ []int
							for _, d := range cell.CompatibleOps {
								if v := schema.On(pos.Step(d), a, t+1); v != 0 {
									succ = append(succ, v)
								}
							}
							addHard(append([]int{-onHere}, succ...)...)
						}
						if t > 0 {
							var pred []int
							// Iterate over the canonical directions, not
							// pos's own CompatibleOps: a predecessor src
							// reaches pos via the direction src->pos, which
							// is the opposite of pos->src, not one of
							// pos's own forward directions.
							for _, d := range allDirections {
								src := pos.Step(d.Opposite())
								if !p.Grid.InBounds(src) || p.Grid.At(src).Obstacle {
									continue
								}
								if v := schema.On(src, a, t-1); v != 0 {
									pred = append(pred, v)
								}
							}
							addHard(append([]int{-onHere}, pred...)...)
						}
					}
				}
			}
		}
	}

	// C6: exactly-one-shift-per-cell.
	for t := 0; t < bound; t++ {
		for x := 0; x < p.Grid.X; x++ {
			for y := 0; y < p.Grid.Y; y++ {
				pos := gridworld.Pos{X: x, Y: y}
				cell := p.Grid.At(pos)
				if cell.Obstacle {
					continue
				}
				var lits []int
				var clits []cardinality.Lit
				for _, d := range cell.CompatibleOps {
					v := schema.Shift(pos, d, t)
					lits = append(lits, v)
					clits = append(clits, cardinality.Lit(v))
				}
				addHard(lits...) // at least one
				addCardinality(cardinality.EncodeAtMostOne(clits, opt.AtMostOneKind, ctr))
			}
		}
	}

	// C7: conflict avoidance.
	for t := 0; t < bound; t++ {
		for x := 0; x < p.Grid.X; x++ {
			for y := 0; y < p.Grid.Y; y++ {
				pos := gridworld.Pos{X: x, Y: y}
				cell := p.Grid.At(pos)
				if cell.Obstacle {
					continue
				}
				for _, d := range cell.CompatibleOps {
					if d == gridworld.Stay {
						continue
					}
					target := pos.Step(d)
					shiftVar := schema.Shift(pos, d, t)
					var other int
					if opt.Formulation == SwapAndFollow {
						other = schema.Shift(target, gridworld.Stay, t)
					} else {
						other = schema.Shift(target, d.Opposite(), t)
					}
					if other == 0 {
						continue
					}
					if opt.Formulation == SwapAndFollow {
						// shift(pos,d) -> shift(target,STAY)
						addHard(-shiftVar, other)
					} else {
						// the two cells may not point at each other: no swap
						addHard(-shiftVar, -other)
					}
				}
			}
		}
	}

	// C8: one-agent-per-cell (at most).
	for t := 0; t <= bound; t++ {
		for x := 0; x < p.Grid.X; x++ {
			for y := 0; y < p.Grid.Y; y++ {
				pos := gridworld.Pos{X: x, Y: y}
				if p.Grid.At(pos).Obstacle {
					continue
				}
				var clits []cardinality.Lit
				for a := range p.Agents {
					if v := schema.On(pos, a, t); v != 0 {
						clits = append(clits, cardinality.Lit(v))
					}
				}
				addCardinality(cardinality.EncodeAtMostOne(clits, opt.AtMostOneKind, ctr))
			}
		}
	}

	// C9: agent-at-one-cell (skipped in ModeNoC9).
	if opt.Mode != ModeNoC9 {
		for a := range p.Agents {
			for t := 1; t <= bound; t++ {
				var lits []int
				var clits []cardinality.Lit
				for x := 0; x < p.Grid.X; x++ {
					for y := 0; y < p.Grid.Y; y++ {
						pos := gridworld.Pos{X: x, Y: y}
						if v := schema.On(pos, a, t); v != 0 {
							lits = append(lits, v)
							clits = append(clits, cardinality.Lit(v))
						}
					}
				}
				addHard(lits...)
				addCardinality(cardinality.EncodeAtMostOne(clits, opt.AtMostOneKind, ctr))
			}
		}
	}

	// Soft clauses: agent-time-off-goal cost.
	var soft []wcnf.Clause
	baseCost := 0
	for a := range p.Agents {
		baseCost += o.SPL[a]
		for t := o.SPL[a]; t < bound; t++ {
			v := schema.FinalState(a, t)
			if v == 0 {
				continue
			}
			soft = append(soft, wcnf.Clause{Lits: []int{v}, Weight: 1})
		}
	}

	formula := &wcnf.Formula{
		NumVars: ctr.Peek(),
		Hard:    hard,
		Soft:    soft,
	}

	return &Result{
		Schema:         schema,
		Formula:        formula,
		BaseCost:       baseCost,
		NumSoftClauses: len(soft),
	}, nil
}
