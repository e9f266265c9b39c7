package sensing

import (
	"fmt"
	"math"
	"strings"

	"snakevo/internal/grid"
	"snakevo/internal/model"
)

var ErrUnknownSentinel = fmt.Errorf("%w: unknown sentinel policy", model.ErrConfiguration)

// Sentinel is the value a global ray reports when it reaches the wall
// without seeing body or food. Trained weights are not portable across
// policies.
type Sentinel int

const (
	// SentinelSpan reports max(X, Y), one step beyond the longest ray.
	SentinelSpan Sentinel = iota
	SentinelInf
	SentinelMinusOne
)

var sentinelNames = map[Sentinel]string{
	SentinelSpan:     "span",
	SentinelInf:      "inf",
	SentinelMinusOne: "minus-one",
}

func (s Sentinel) String() string {
	if name, ok := sentinelNames[s]; ok {
		return name
	}
	return fmt.Sprintf("sentinel(%d)", int(s))
}

func ParseSentinel(value string) (Sentinel, error) {
	lookup := strings.ToLower(strings.TrimSpace(value))
	if lookup == "" {
		return SentinelSpan, nil
	}
	for sentinel, name := range sentinelNames {
		if lookup == name {
			return sentinel, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSentinel, value)
}

func (s Sentinel) Value(cfg grid.GridConfig) float64 {
	switch s {
	case SentinelInf:
		return math.Inf(1)
	case SentinelMinusOne:
		return -1
	default:
		return float64(max(cfg.X, cfg.Y))
	}
}

func (s Sentinel) MarshalText() ([]byte, error) {
	name, ok := sentinelNames[s]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSentinel, int(s))
	}
	return []byte(name), nil
}

func (s *Sentinel) UnmarshalText(text []byte) error {
	parsed, err := ParseSentinel(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
