package sensing

import (
	"fmt"
	"sort"
	"strings"

	"snakevo/internal/model"
)

var ErrUnknownMode = fmt.Errorf("%w: unknown sensing mode", model.ErrConfiguration)

// Mode selects one fixed feature layout. The set is closed; every mode
// carries its input width so a network can be sized before any episode runs.
type Mode int

const (
	Local4 Mode = iota + 1
	Local4Bearing
	Local8
	Local8Bearing
	Global4
	Global4Bearing
	Global8
	Global8Bearing
)

type modeSpec struct {
	id       string
	name     string
	global   bool
	diagonal bool
	bearing  bool
}

var modeSpecs = map[Mode]modeSpec{
	Local4:         {id: "a", name: "local4"},
	Local4Bearing:  {id: "b", name: "local4-bearing", bearing: true},
	Local8:         {id: "c", name: "local8", diagonal: true},
	Local8Bearing:  {id: "d", name: "local8-bearing", diagonal: true, bearing: true},
	Global4:        {id: "e", name: "global4", global: true},
	Global4Bearing: {id: "f", name: "global4-bearing", global: true, bearing: true},
	Global8:        {id: "g", name: "global8", global: true, diagonal: true},
	Global8Bearing: {id: "h", name: "global8-bearing", global: true, diagonal: true, bearing: true},
}

// Width is the length of the vector the mode produces.
func (m Mode) Width() int {
	spec, ok := modeSpecs[m]
	if !ok {
		return 0
	}
	perDirection := 2
	if spec.global {
		perDirection = 3
	}
	directions := 4
	if spec.diagonal {
		directions = 8
	}
	width := perDirection * directions
	if spec.bearing {
		width += 2
	}
	return width
}

func (m Mode) String() string {
	if spec, ok := modeSpecs[m]; ok {
		return spec.name
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ID is the one-letter alias used in run labels.
func (m Mode) ID() string {
	return modeSpecs[m].id
}

func (m Mode) Valid() bool {
	_, ok := modeSpecs[m]
	return ok
}

func (m Mode) Global() bool   { return modeSpecs[m].global }
func (m Mode) Diagonal() bool { return modeSpecs[m].diagonal }
func (m Mode) Bearing() bool  { return modeSpecs[m].bearing }

// ParseMode resolves a mode by name or by one-letter alias.
func ParseMode(value string) (Mode, error) {
	lookup := strings.ToLower(strings.TrimSpace(value))
	for mode, spec := range modeSpecs {
		if lookup == spec.name || lookup == spec.id {
			return mode, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMode, value)
}

// Modes lists every mode in alias order.
func Modes() []Mode {
	modes := make([]Mode, 0, len(modeSpecs))
	for mode := range modeSpecs {
		modes = append(modes, mode)
	}
	sort.Slice(modes, func(i, j int) bool { return modes[i] < modes[j] })
	return modes
}

func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMode, int(m))
	}
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
