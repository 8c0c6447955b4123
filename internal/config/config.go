// Package config centralizes the command-surface flags into one value that
// is threaded explicitly through the driver, rather than read ad hoc from
// globals at each call site.
package config

import (
	"github.com/pkg/errors"

	"github.com/elektrokombinacija/mapfsat/internal/cardinality"
	"github.com/elektrokombinacija/mapfsat/internal/encode"
	"github.com/elektrokombinacija/mapfsat/internal/reach"
)

// Config is the fully parsed command-line configuration for one run.
type Config struct {
	InputFile    string
	OutputPrefix string

	Algorithm1 string // phase 1 MaxSAT algorithm family
	Algorithm2 string // phase 2 MaxSAT algorithm family

	AtMostOneKind cardinality.Kind
	EncodingMode  encode.Mode
	Formulation   encode.Formulation
	ReachMode     reach.Mode

	Backend      string // "embedded" or "external:<path>"
	ExternalPath string
	ExternalArgs []string
	CPULimitSecs int
	MemLimitMB   int
	MaxMakespan  int
	Verbose      bool
}

// ParseEncodingMode maps a CLI flag value (0,1,2) to encode.Mode.
func ParseEncodingMode(v int) (encode.Mode, error) {
	switch v {
	case 0:
		return encode.ModeFull, nil
	case 1:
		return encode.ModeNoC9, nil
	case 2:
		return encode.ModeNoC5, nil
	default:
		return 0, errors.Errorf("config: encoding mode must be 0, 1, or 2, got %d", v)
	}
}

// ParseFormulation maps a CLI flag value (0,1) to encode.Formulation.
func ParseFormulation(v int) (encode.Formulation, error) {
	switch v {
	case 0:
		return encode.SwapOnly, nil
	case 1:
		return encode.SwapAndFollow, nil
	default:
		return 0, errors.Errorf("config: problem formulation must be 0 or 1, got %d", v)
	}
}
