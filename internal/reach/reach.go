// Package reach computes, per agent, the shortest-path distances that the
// encoder uses to prune variables that no satisfying assignment could ever
// use.
package reach

import (
	"container/heap"

	"github.com/elektrokombinacija/mapfsat/internal/gridworld"
)

// Mode selects the distance metric used by the oracle.
type Mode int

const (
	// Dijkstra runs a real shortest-path search over the 4-connected
	// non-obstacle graph. Since every edge has weight 1 this is
	// indistinguishable from BFS in outcome, but the priority-queue
	// machinery is kept so the same code path would serve a future
	// weighted-edge mode without change.
	Dijkstra Mode = iota
	// Manhattan is a cheaper, less precise fallback: it uses |dx|+|dy|,
	// ignoring obstacles along the way (obstacle cells themselves are still
	// marked unreachable). It admits more variables than strictly
	// necessary but is useful when Dijkstra's extra passes are not worth
	// the cost (e.g. very large obstacle-free grids).
	Manhattan
)

const unreachable = -1

// Oracle holds per-agent distance tables computed once for a Problem,
// independent of any makespan bound.
type Oracle struct {
	mode Mode
	grid *gridworld.Grid
	// distToStart[a][x][y] and distToGoal[a][x][y]; unreachable sentinel.
	distToStart [][][]int
	distToGoal  [][][]int

	// SPL[a] is the shortest-path length from agent a's start to its goal.
	SPL []int
	// InitialBound is max_a SPL(a), the first makespan the driver tries.
	InitialBound int
	// BestPossibleCost is sum_a SPL(a), the SOC lower bound.
	BestPossibleCost int
}

// Build computes the oracle for every agent in the problem.
func Build(p *gridworld.Problem, mode Mode) *Oracle {
	o := &Oracle{mode: mode, grid: p.Grid}
	n := len(p.Agents)
	o.distToStart = make([][][]int, n)
	o.distToGoal = make([][][]int, n)
	o.SPL = make([]int, n)

	for i, a := range p.Agents {
		switch mode {
		case Manhattan:
			o.distToStart[i] = manhattanTable(p.Grid, a.Start)
			o.distToGoal[i] = manhattanTable(p.Grid, a.Goal)
		default:
			o.distToStart[i] = bfsTable(p.Grid, a.Start)
			o.distToGoal[i] = bfsTable(p.Grid, a.Goal)
		}
		spl := o.distToGoal[i][a.Start.X][a.Start.Y]
		o.SPL[i] = spl
		if spl > o.InitialBound {
			o.InitialBound = spl
		}
		o.BestPossibleCost += spl
	}
	return o
}

// DistToStart returns distToStart[x,y,a], or -1 if unreachable.
func (o *Oracle) DistToStart(p gridworld.Pos, a int) int {
	return o.distToStart[a][p.X][p.Y]
}

// DistToGoal returns distToGoal[x,y,a], or -1 if unreachable.
func (o *Oracle) DistToGoal(p gridworld.Pos, a int) int {
	return o.distToGoal[a][p.X][p.Y]
}

// Reachable implements reachable(x,y,a,t,T) = distToStart[x,y,a]<=t and
// distToGoal[x,y,a]<=T-t.
func (o *Oracle) Reachable(p gridworld.Pos, a, t, bound int) bool {
	ds := o.DistToStart(p, a)
	dg := o.DistToGoal(p, a)
	if ds == unreachable || dg == unreachable {
		return false
	}
	return ds <= t && dg <= bound-t
}

func manhattanTable(g *gridworld.Grid, from gridworld.Pos) [][]int {
	table := make([][]int, g.X)
	for x := 0; x < g.X; x++ {
		table[x] = make([]int, g.Y)
		for y := 0; y < g.Y; y++ {
			p := gridworld.Pos{X: x, Y: y}
			if !g.IsFree(p) {
				table[x][y] = unreachable
				continue
			}
			table[x][y] = abs(x-from.X) + abs(y-from.Y)
		}
	}
	return table
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// item is one entry of the Dijkstra frontier.
type item struct {
	pos   gridworld.Pos
	dist  int
	index int
}

// posHeap implements heap.Interface as a min-heap on dist.
type posHeap []*item

func (h posHeap) Len() int            { return len(h) }
func (h posHeap) Less(i, j int) bool  { return h[i].dist < h[j].dist }
func (h posHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *posHeap) Push(x interface{}) {
	n := x.(*item)
	n.index = len(*h)
	*h = append(*h, n)
}
func (h *posHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return x
}

// bfsTable runs Dijkstra (unit weights, so equivalent to BFS) from a single
// source over the grid's non-obstacle 4-connected graph.
func bfsTable(g *gridworld.Grid, from gridworld.Pos) [][]int {
	table := make([][]int, g.X)
	for x := range table {
		table[x] = make([]int, g.Y)
		for y := range table[x] {
			table[x][y] = unreachable
		}
	}
	if !g.IsFree(from) {
		return table
	}

	table[from.X][from.Y] = 0
	h := &posHeap{}
	heap.Init(h)
	heap.Push(h, &item{pos: from, dist: 0})

	for h.Len() > 0 {
		cur := heap.Pop(h).(*item)
		if cur.dist > table[cur.pos.X][cur.pos.Y] {
			continue // stale entry, a shorter path to this cell was already settled
		}
		for _, n := range g.Neighbors4(cur.pos) {
			nd := cur.dist + 1
			if table[n.X][n.Y] == unreachable || nd < table[n.X][n.Y] {
				table[n.X][n.Y] = nd
				heap.Push(h, &item{pos: n, dist: nd})
			}
		}
	}
	return table
}
