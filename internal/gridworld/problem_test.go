package gridworld

import (
	"strings"
	"testing"
)

func TestLoadParsesGridAndAgents(t *testing.T) {
	p, err := Load(strings.NewReader(`demo-1
Grid:
2,3
.#.
...
Agents:
2
0,0,0,1,2
1,1,0,0,2
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.ID != "demo-1" {
		t.Errorf("ID = %q, want demo-1", p.ID)
	}
	if p.Grid.X != 2 || p.Grid.Y != 3 {
		t.Fatalf("Grid dims = %d,%d, want 2,3", p.Grid.X, p.Grid.Y)
	}
	if !p.Grid.Cells[0][1].Obstacle {
		t.Errorf("expected (0,1) to be an obstacle")
	}
	if p.Grid.Cells[0][0].Obstacle || p.Grid.Cells[1][1].Obstacle {
		t.Errorf("expected (0,0) and (1,1) to be free")
	}
	if len(p.Agents) != 2 {
		t.Fatalf("len(Agents) = %d, want 2", len(p.Agents))
	}
	if p.Agents[0].Start != (Pos{0, 0}) || p.Agents[0].Goal != (Pos{1, 2}) {
		t.Errorf("agent 0 = %+v, want start (0,0) goal (1,2)", p.Agents[0])
	}
}

func TestLoadRejectsObstacleStart(t *testing.T) {
	_, err := Load(strings.NewReader(`p
Grid:
1,2
#.
Agents:
1
0,0,0,0,1
`))
	if err == nil {
		t.Fatalf("expected an error for agent starting on an obstacle")
	}
}

func TestLoadRejectsMalformedDimensions(t *testing.T) {
	_, err := Load(strings.NewReader(`p
Grid:
notanumber,2
Agents:
0
`))
	if err == nil {
		t.Fatalf("expected an error for malformed grid dimensions")
	}
}

func TestGridComputeCompatibleOpsExcludesObstacleNeighbors(t *testing.T) {
	g := NewGrid(1, 3)
	g.Cells[0][1].Obstacle = true
	g.ComputeCompatibleOps()
	ops := g.Cells[0][0].CompatibleOps
	for _, d := range ops {
		if d == Right {
			t.Errorf("expected RIGHT excluded from (0,0) compatible ops since (0,1) is an obstacle")
		}
	}
}

func TestDirectionOppositeIsExhaustiveAndInvolutive(t *testing.T) {
	for _, d := range []Direction{Stay, Up, Down, Left, Right} {
		if d.Opposite().Opposite() != d {
			t.Errorf("Opposite is not involutive for %v", d)
		}
	}
}
