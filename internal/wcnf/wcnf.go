// Package wcnf implements the Partial Weighted CNF wire format used to hand
// a problem to an external MaxSAT solver, and to parse back its verdict.
package wcnf

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Clause is a hard or soft disjunction of DIMACS-style signed literals.
type Clause struct {
	Lits   []int
	Weight int // 0 means hard
}

// Formula is a complete Partial Weighted CNF instance.
type Formula struct {
	NumVars int
	Hard    []Clause
	Soft    []Clause // each has Weight set, conventionally 1 in this system
}

// Top returns the weight used to mark a clause as hard: the sum of all
// soft weights, i.e. numSoftClauses (every soft clause here has weight 1).
// This matches the wire format exactly: original_source/MAPFEncoder/
// MAPFtoMaxSAT.hh uses numSoftClauses verbatim as both the header's top
// field and each hard clause's weight, with no "+1" margin.
func (f *Formula) Top() int {
	top := 0
	for _, c := range f.Soft {
		top += c.Weight
	}
	return top
}

// Unsatisfiable builds the canonical trivially-UNSAT formula: no variables
// and a single empty hard clause, which Write serializes as "p wcnf 0 1 2"
// followed by "2 0".
func Unsatisfiable() *Formula {
	return &Formula{NumVars: 0, Hard: []Clause{{Lits: nil, Weight: 0}}}
}

func (f *Formula) isTriviallyUnsat() bool {
	return f.NumVars == 0 && len(f.Hard) == 1 && len(f.Hard[0].Lits) == 0 && len(f.Soft) == 0
}

// Write serializes f as DIMACS partial weighted CNF.
func (f *Formula) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if f.isTriviallyUnsat() {
		if _, err := fmt.Fprintln(bw, "p wcnf 0 1 2"); err != nil {
			return err
		}
		if _, err := fmt.Fprintln(bw, "2 0"); err != nil {
			return err
		}
		return bw.Flush()
	}

	top := f.Top()
	numClauses := len(f.Hard) + len(f.Soft)
	if _, err := fmt.Fprintf(bw, "p wcnf %d %d %d\n", f.NumVars, numClauses, top); err != nil {
		return err
	}
	for _, c := range f.Hard {
		if err := writeClause(bw, top, c.Lits); err != nil {
			return err
		}
	}
	for _, c := range f.Soft {
		weight := c.Weight
		if weight == 0 {
			weight = 1
		}
		if err := writeClause(bw, weight, c.Lits); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeClause(w *bufio.Writer, weight int, lits []int) error {
	if _, err := fmt.Fprintf(w, "%d", weight); err != nil {
		return err
	}
	for _, l := range lits {
		if _, err := fmt.Fprintf(w, " %d", l); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, " 0")
	return err
}

// Model is the set of true variable IDs a solver reported.
type Model map[int]bool

// ParseSolverOutput reads the standard MaxSAT solver output convention: a
// line starting with "s" carries the status (OPTIMUM FOUND / UNSATISFIABLE
// / UNKNOWN), a line starting with "o" carries the best cost found so far
// (the last one is authoritative), and a line starting with "v" carries the
// model, either as signed literals one per token or as a single unseparated
// 0/1 string where position i gives variable i (both styles are accepted).
func ParseSolverOutput(r io.Reader) (model Model, cost int, status string, err error) {
	model = Model{}
	cost = -1
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		switch line[0] {
		case 's':
			status = strings.TrimSpace(line[1:])
		case 'o':
			v, perr := strconv.Atoi(strings.TrimSpace(line[1:]))
			if perr == nil {
				cost = v
			}
		case 'v':
			if perr := parseModelLine(line[1:], model); perr != nil {
				return nil, 0, "", errors.Wrap(perr, "wcnf: parsing model line")
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, 0, "", errors.Wrap(err, "wcnf: reading solver output")
	}
	return model, cost, status, nil
}

func parseModelLine(body string, model Model) error {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil
	}
	// Dense 0/1 bitstring form (no separators, no sign, 1-indexed).
	if strings.IndexAny(body, " \t-") == -1 && strings.Trim(body, "01") == "" {
		for i, c := range body {
			if c == '1' {
				model[i+1] = true
			}
		}
		return nil
	}
	for _, tok := range strings.Fields(body) {
		v, err := strconv.Atoi(tok)
		if err != nil {
			return errors.Wrapf(err, "unparseable literal token %q", tok)
		}
		if v == 0 {
			continue
		}
		model[abs(v)] = v > 0
	}
	return nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
