package units

import (
	"errors"
	"fmt"
	"strconv"
)

// Conversion factors from the source's metric units to display units.
const (
	MPSToMPH     = 2.23694
	MetersToFeet = 3.28084
	KgToPounds   = 2.20462
)

// Display precision used by the converted views.
const (
	VelocityDecimals = 1
	HeightDecimals   = 1
)

var ErrMalformed = errors.New("malformed measurement")

type Kind int

const (
	None Kind = iota
	Velocity
	Distance
	Height
	Weight
)

// Recognized measurement fields. Anything not listed here passes through untouched.
var lookup = map[string]Kind{
	"MaxPitchVel":  Velocity,
	"MaxExitVel":   Velocity,
	"AvgPitchVel":  Velocity,
	"AvgExitVel":   Velocity,
	"HHVel":        Velocity,
	"ExitBallVel1": Velocity,
	"ExitBallVel2": Velocity,
	"ExitBallVel3": Velocity,
	"PitchVel":     Velocity,
	"ExitVelo":     Velocity,

	"AvgDistance":   Distance,
	"MaxDistance":   Distance,
	"MaxGroundDist": Distance,
	"AvgGroundDist": Distance,
	"Distance":      Distance,
	"GroundDist":    Distance,
}

// KindOf reports how a batch field is converted. Height and Weight are never
// returned here: user attributes are only converted by the views.
func KindOf(field string) Kind {
	return lookup[field]
}

// Unit returns the display unit string for a kind.
func (k Kind) Unit() string {
	switch k {
	case Velocity:
		return "mph"
	case Distance, Height:
		return "ft"
	case Weight:
		return "lbs"
	}
	return ""
}

// Factor returns the multiplier applied to a source value of this kind.
func (k Kind) Factor() float64 {
	switch k {
	case Velocity:
		return MPSToMPH
	case Distance, Height:
		return MetersToFeet
	case Weight:
		return KgToPounds
	}
	return 1
}

// Batch is a tabular set of rows sharing one column list.
type Batch struct {
	Columns []string
	Rows    [][]any
}

func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Rows)
}

// Index returns the position of a column or -1.
func (b *Batch) Index(column string) int {
	for i, c := range b.Columns {
		if c == column {
			return i
		}
	}
	return -1
}

func (b *Batch) clone() *Batch {
	out := &Batch{
		Columns: append([]string(nil), b.Columns...),
		Rows:    make([][]any, len(b.Rows)),
	}
	for i, row := range b.Rows {
		out.Rows[i] = append([]any(nil), row...)
	}
	return out
}

// Convert returns a copy of the batch with every recognized velocity and distance
// field scaled to mph and feet. Missing values count as zero. Applying it twice
// to the same data converts twice.
func Convert(b *Batch) (*Batch, error) {
	if b == nil {
		return &Batch{}, nil
	}
	out := b.clone()
	for col, name := range out.Columns {
		kind := KindOf(name)
		if kind == None {
			continue
		}
		for r, row := range out.Rows {
			v, err := toFloat(row[col])
			if err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", r, name, err)
			}
			row[col] = v * kind.Factor()
		}
	}
	return out, nil
}

// FillMissing returns a copy of the batch with null recognized measurements set to zero.
func FillMissing(b *Batch) *Batch {
	if b == nil {
		return &Batch{}
	}
	out := b.clone()
	for col, name := range out.Columns {
		if KindOf(name) == None {
			continue
		}
		for _, row := range out.Rows {
			if row[col] == nil {
				row[col] = float64(0)
			}
		}
	}
	return out
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case []byte:
		f, err := strconv.ParseFloat(string(n), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrMalformed, n)
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrMalformed, n)
		}
		return f, nil
	}
	return 0, fmt.Errorf("%w: unsupported type %T", ErrMalformed, v)
}

// Expression renders the view column for a converted measurement and its alias.
func Expression(kind Kind, column string) (expr, alias string) {
	quoted := `"` + column + `"`
	factor := strconv.FormatFloat(kind.Factor(), 'f', -1, 64)
	switch kind {
	case Velocity:
		return fmt.Sprintf("CAST(ROUND(%s * %s, %d) AS DOUBLE)", quoted, factor, VelocityDecimals), column + "Mph"
	case Distance:
		return fmt.Sprintf("CAST(ROUND(%s * %s) AS INTEGER)", quoted, factor), column + "Feet"
	case Height:
		return fmt.Sprintf("CAST(ROUND(%s * %s, %d) AS DOUBLE)", quoted, factor, HeightDecimals), column + "Feet"
	case Weight:
		return fmt.Sprintf("CAST(ROUND(%s * %s) AS INTEGER)", quoted, factor), column + "Lbs"
	}
	return quoted, column
}
