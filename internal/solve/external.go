package solve

import (
	"bytes"
	"context"
	"os/exec"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/elektrokombinacija/mapfsat/internal/wcnf"
)

// External shells out to an operator-supplied MaxSAT binary, feeding it the
// WCNF formula on stdin and parsing its standard s/o/v output convention.
// This is the backend that actually exercises the named algorithm families
// (linear-su, msu3, part-msu3, oll): those are properties of the external
// binary the operator points at, selected with its own flags, which this
// system passes through verbatim via Algorithm.
type External struct {
	Path      string
	Algorithm string // passed through as -alg=<Algorithm> if non-empty
	ExtraArgs []string
}

func NewExternal(path, algorithm string, extraArgs ...string) *External {
	return &External{Path: path, Algorithm: algorithm, ExtraArgs: extraArgs}
}

func (e *External) Name() string { return "external:" + e.Path }

func (e *External) Solve(ctx context.Context, f *wcnf.Formula, hint *Hint) (Outcome, error) {
	args := append([]string(nil), e.ExtraArgs...)
	if e.Algorithm != "" {
		args = append(args, "-alg="+e.Algorithm)
	}
	if hint != nil && len(hint.TrueVars) > 0 {
		// Not every external solver supports a hint file; this system
		// passes it as a best-effort flag and relies on the binary to
		// ignore it if unsupported.
		var sb strings.Builder
		for i, v := range hint.TrueVars {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(strconv.Itoa(v))
		}
		args = append(args, "-hint="+sb.String())
	}

	cmd := exec.CommandContext(ctx, e.Path, args...)
	var in bytes.Buffer
	if err := f.Write(&in); err != nil {
		return Outcome{}, errors.Wrap(err, "solve: serializing WCNF for external backend")
	}
	cmd.Stdin = &in

	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	model, cost, status, parseErr := wcnf.ParseSolverOutput(bytes.NewReader(out.Bytes()))
	if parseErr != nil {
		return Outcome{}, errors.Wrapf(parseErr, "solve: parsing %s output (stderr: %s)", e.Path, stderr.String())
	}

	switch {
	case strings.Contains(status, "UNSATISFIABLE"):
		return Outcome{Status: StatusUnsat}, nil
	case strings.Contains(status, "OPTIMUM"):
		return Outcome{Status: StatusOptimum, Model: model, Cost: cost}, nil
	default:
		if runErr != nil {
			return Outcome{Status: StatusUnknown}, errors.Wrapf(runErr, "solve: running external backend %s (stderr: %s)", e.Path, stderr.String())
		}
		return Outcome{Status: StatusUnknown, Model: model, Cost: cost}, nil
	}
}
