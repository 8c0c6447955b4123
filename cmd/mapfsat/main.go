// Command mapfsat reduces a grid multi-agent pathfinding instance to
// Partial Weighted MaxSAT and searches for a makespan- and then sum-of-cost-
// optimal joint plan.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/elektrokombinacija/mapfsat/internal/cardinality"
	"github.com/elektrokombinacija/mapfsat/internal/config"
	"github.com/elektrokombinacija/mapfsat/internal/encode"
	"github.com/elektrokombinacija/mapfsat/internal/gridworld"
	"github.com/elektrokombinacija/mapfsat/internal/reach"
	"github.com/elektrokombinacija/mapfsat/internal/solve"
)

func main() {
	logger := golog.NewDevelopmentLogger("mapfsat")

	app := &cli.App{
		Name:      "mapfsat",
		Usage:     "solve optimal multi-agent pathfinding by reduction to partial weighted MaxSAT",
		ArgsUsage: "<input-file> <output-prefix>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "algorithm1", Value: "linear-su", Usage: "phase 1 (makespan) MaxSAT algorithm: linear-su, msu3, part-msu3, oll"},
			&cli.StringFlag{Name: "algorithm2", Value: "linear-su", Usage: "phase 2 (sum-of-costs) MaxSAT algorithm"},
			&cli.StringFlag{Name: "amo", Value: "pairwise", Usage: "at-most-one encoding kind"},
			&cli.IntFlag{Name: "encoding-mode", Value: 0, Usage: "0 = full, 1 = omit C9, 2 = omit C5"},
			&cli.IntFlag{Name: "formulation", Value: 1, Usage: "0 = swap-only conflicts, 1 = swap+follow conflicts"},
			&cli.BoolFlag{Name: "manhattan", Usage: "use Manhattan-distance reachability instead of Dijkstra"},
			&cli.StringFlag{Name: "backend", Value: "embedded", Usage: "embedded or external:<path-to-binary>"},
			&cli.IntFlag{Name: "cpu-limit", Value: 0, Usage: "CPU-seconds budget, 0 = unbounded"},
			&cli.IntFlag{Name: "mem-limit", Value: 0, Usage: "soft RSS budget in megabytes, 0 = unbounded (advisory only)"},
			&cli.IntFlag{Name: "max-makespan", Value: 0, Usage: "abandon the search past this makespan bound, 0 = unbounded"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}},
		},
		Action: func(c *cli.Context) error {
			return run(c, logger)
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Fatal(err)
	}
}

func run(c *cli.Context, logger golog.Logger) error {
	if c.Args().Len() != 2 {
		return cli.Exit("expected exactly 2 positional arguments: <input-file> <output-prefix>", 2)
	}
	inputPath := c.Args().Get(0)
	outputPrefix := c.Args().Get(1)

	if c.Bool("verbose") {
		logger = golog.NewDebugLogger("mapfsat")
	}

	cfg, err := buildConfig(c, inputPath, outputPrefix)
	if err != nil {
		return cli.Exit(err.Error(), 3)
	}

	ctx := context.Background()
	if cfg.CPULimitSecs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(cfg.CPULimitSecs)*time.Second)
		defer cancel()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	f, err := os.Open(cfg.InputFile)
	if err != nil {
		return cli.Exit(errors.Wrap(err, "opening input file").Error(), 10)
	}
	defer f.Close()

	problem, err := gridworld.Load(f)
	if err != nil {
		return cli.Exit(errors.Wrap(err, "malformed input").Error(), 10)
	}

	oracle := reach.Build(problem, cfg.ReachMode)

	backend1, err := buildBackend(cfg, cfg.Algorithm1)
	if err != nil {
		return cli.Exit(err.Error(), 3)
	}
	backend2, err := buildBackend(cfg, cfg.Algorithm2)
	if err != nil {
		return cli.Exit(err.Error(), 3)
	}

	driver := &solve.Driver{
		Problem:       problem,
		Oracle:        oracle,
		Backend:       backend1,
		Phase2Backend: backend2,
		Options: encode.Options{
			Mode:          cfg.EncodingMode,
			Formulation:   cfg.Formulation,
			AtMostOneKind: cfg.AtMostOneKind,
		},
		Logger:   logger,
		MaxBound: cfg.MaxMakespan,
	}

	result, err := driver.Run(ctx)
	if err != nil {
		return cli.Exit(errors.Wrap(err, "solving").Error(), 20)
	}

	logger.Infow("solved", "makespan", result.MakespanBound, "soc", result.SOC, "phase2", result.Phase2Used)

	if err := writePlanFiles(cfg.OutputPrefix, result); err != nil {
		return cli.Exit(errors.Wrap(err, "writing output").Error(), 11)
	}
	return nil
}

func buildConfig(c *cli.Context, inputPath, outputPrefix string) (*config.Config, error) {
	amoKind, err := cardinality.ParseKind(c.String("amo"))
	if err != nil {
		return nil, err
	}
	mode, err := config.ParseEncodingMode(c.Int("encoding-mode"))
	if err != nil {
		return nil, err
	}
	formulation, err := config.ParseFormulation(c.Int("formulation"))
	if err != nil {
		return nil, err
	}
	reachMode := reach.Dijkstra
	if c.Bool("manhattan") {
		reachMode = reach.Manhattan
	}

	return &config.Config{
		InputFile:     inputPath,
		OutputPrefix:  outputPrefix,
		Algorithm1:    c.String("algorithm1"),
		Algorithm2:    c.String("algorithm2"),
		AtMostOneKind: amoKind,
		EncodingMode:  mode,
		Formulation:   formulation,
		ReachMode:     reachMode,
		Backend:       c.String("backend"),
		CPULimitSecs:  c.Int("cpu-limit"),
		MemLimitMB:    c.Int("mem-limit"),
		MaxMakespan:   c.Int("max-makespan"),
		Verbose:       c.Bool("verbose"),
	}, nil
}

func buildBackend(cfg *config.Config, algorithm string) (solve.Backend, error) {
	if cfg.Backend == "embedded" || cfg.Backend == "" {
		return solve.NewEmbedded(), nil
	}
	const prefix = "external:"
	if strings.HasPrefix(cfg.Backend, prefix) {
		path := strings.TrimPrefix(cfg.Backend, prefix)
		if path == "" {
			return nil, errors.New("config: external backend requires a binary path, e.g. -backend=external:/usr/local/bin/openwbo")
		}
		return solve.NewExternal(path, algorithm), nil
	}
	return nil, errors.Errorf("config: unknown backend %q, want \"embedded\" or \"external:<path>\"", cfg.Backend)
}

// writePlanFiles always writes both spec-mandated output files: the
// makespan-optimal plan found at the end of phase 1, and the sum-of-costs-
// optimal plan (identical to the makespan-optimal one when phase 2 never
// ran). Each file lists every on(a,x,y,t) occupancy and every shift(x,y,t,d)
// issued to reach it, d being the numeric Direction value.
func writePlanFiles(prefix string, result *solve.PlanResult) error {
	socPlan := result.Plan
	socBound := result.MakespanBound
	makespanBound := result.MakespanBound
	if result.Phase2Used {
		makespanBound = result.MakespanPlan.Makespan
	}

	if err := writePlanFile(prefix+"_makespan_optimal.sol", result.MakespanPlan, makespanBound, makespanSOC(result.MakespanPlan)); err != nil {
		return err
	}
	return writePlanFile(prefix+"_soc_optimal.sol", socPlan, socBound, result.SOC)
}

func makespanSOC(plan *gridworld.Plan) int {
	soc := 0
	for _, c := range plan.AgentCost {
		soc += c
	}
	return soc
}

func writePlanFile(path string, plan *gridworld.Plan, makespan, soc int) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()

	for a, positions := range plan.Positions {
		for t, pos := range positions {
			if _, err := fmt.Fprintf(out, "on(%d,%d,%d,%d)\n", a, pos.X, pos.Y, t); err != nil {
				return err
			}
		}
	}
	for t, row := range plan.Shifts {
		for x, col := range row {
			for y, d := range col {
				if d == -1 {
					continue
				}
				if _, err := fmt.Fprintf(out, "shift(%d,%d,%d,%d)\n", x, y, t, d); err != nil {
					return err
				}
			}
		}
	}
	_, err = fmt.Fprintf(out, "# makespan=%d soc=%d\n", makespan, soc)
	return err
}
