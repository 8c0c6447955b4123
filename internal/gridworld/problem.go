package gridworld

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// AgentID identifies an agent by its position in Problem.Agents.
type AgentID int

// Agent carries the start position (where it sits at t=0) and the goal
// position it must occupy at t=T. Field names are taken at face value: no
// start/goal swap is performed on ingestion.
type Agent struct {
	ID    AgentID
	Start Pos
	Goal  Pos
}

// Problem is a fully parsed, not-yet-preprocessed MAPF instance.
type Problem struct {
	ID     string
	Grid   *Grid
	Agents []Agent
}

// Validate checks the structural preconditions every downstream stage
// assumes: agents exist, and every start/goal cell is in-bounds and free.
func (p *Problem) Validate() error {
	if p.Grid == nil {
		return errors.New("gridworld: problem has no grid")
	}
	if len(p.Agents) == 0 {
		return errors.New("gridworld: problem has no agents")
	}
	for _, a := range p.Agents {
		if !p.Grid.IsFree(a.Start) {
			return errors.Errorf("gridworld: agent %d start %v is out of bounds or an obstacle", a.ID, a.Start)
		}
		if !p.Grid.IsFree(a.Goal) {
			return errors.Errorf("gridworld: agent %d goal %v is out of bounds or an obstacle", a.ID, a.Goal)
		}
	}
	return nil
}

// Load parses the whitespace-tolerant instance format:
//
//	<problemId>
//	Grid:
//	<X>,<Y>
//	<row0>            # X rows of Y characters: '.' free, anything else obstacle
//	...
//	Agents:
//	<A>
//	<id>,<sx>,<sy>,<gx>,<gy>   # A lines
func Load(r io.Reader) (*Problem, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	next := func() (string, bool) {
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" {
				continue
			}
			return line, true
		}
		return "", false
	}

	problemID, ok := next()
	if !ok {
		return nil, errors.New("gridworld: empty input, expected a problem id")
	}

	header, ok := next()
	if !ok || !strings.EqualFold(header, "Grid:") {
		return nil, errors.Errorf("gridworld: expected \"Grid:\" header, got %q", header)
	}

	dimsLine, ok := next()
	if !ok {
		return nil, errors.New("gridworld: missing grid dimensions line")
	}
	dims := strings.Split(dimsLine, ",")
	if len(dims) != 2 {
		return nil, errors.Errorf("gridworld: malformed grid dimensions %q, want X,Y", dimsLine)
	}
	x, err := strconv.Atoi(strings.TrimSpace(dims[0]))
	if err != nil {
		return nil, errors.Wrapf(err, "gridworld: parsing grid width %q", dims[0])
	}
	y, err := strconv.Atoi(strings.TrimSpace(dims[1]))
	if err != nil {
		return nil, errors.Wrapf(err, "gridworld: parsing grid height %q", dims[1])
	}
	if x <= 0 || y <= 0 {
		return nil, errors.Errorf("gridworld: grid dimensions must be positive, got %d,%d", x, y)
	}

	grid := NewGrid(x, y)
	for row := 0; row < x; row++ {
		rowLine, ok := next()
		if !ok {
			return nil, errors.Errorf("gridworld: expected %d grid rows, got %d", x, row)
		}
		if len(rowLine) < y {
			return nil, errors.Errorf("gridworld: grid row %d has length %d, want %d", row, len(rowLine), y)
		}
		for col := 0; col < y; col++ {
			if rowLine[col] != '.' {
				grid.Cells[row][col].Obstacle = true
			}
		}
	}
	grid.ComputeCompatibleOps()

	agentsHeader, ok := next()
	if !ok || !strings.EqualFold(agentsHeader, "Agents:") {
		return nil, errors.Errorf("gridworld: expected \"Agents:\" header, got %q", agentsHeader)
	}

	countLine, ok := next()
	if !ok {
		return nil, errors.New("gridworld: missing agent count line")
	}
	nAgents, err := strconv.Atoi(strings.TrimSpace(countLine))
	if err != nil {
		return nil, errors.Wrapf(err, "gridworld: parsing agent count %q", countLine)
	}

	agents := make([]Agent, 0, nAgents)
	for i := 0; i < nAgents; i++ {
		line, ok := next()
		if !ok {
			return nil, errors.Errorf("gridworld: expected %d agent records, got %d", nAgents, i)
		}
		fields := strings.Split(line, ",")
		if len(fields) != 5 {
			return nil, errors.Errorf("gridworld: malformed agent record %q, want id,sx,sy,gx,gy", line)
		}
		vals := make([]int, 5)
		for j, f := range fields {
			v, err := strconv.Atoi(strings.TrimSpace(f))
			if err != nil {
				return nil, errors.Wrapf(err, "gridworld: parsing agent field %q", f)
			}
			vals[j] = v
		}
		agents = append(agents, Agent{
			ID:    AgentID(vals[0]),
			Start: Pos{X: vals[1], Y: vals[2]},
			Goal:  Pos{X: vals[3], Y: vals[4]},
		})
	}

	p := &Problem{ID: problemID, Grid: grid, Agents: agents}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
