package processor

import (
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/mat"
)

// DateColumn is the canonical name of the observation-date column. The
// loader renames the source header (基準日) to this before cleaning.
const DateColumn = "date"

// CellKind tags the outcome of coercing one raw cell.
type CellKind int

const (
	CellNumeric CellKind = iota
	CellMissing
	CellInvalid
)

// Cell is the result of a single coercion: a parsed yield, a recognized
// missing-value sentinel, or unusable content.
type Cell struct {
	Kind  CellKind
	Value float64 // valid only when Kind == CellNumeric
	Raw   string
}

// Coerce classifies one raw cell against the sentinel set. Surrounding
// whitespace is ignored; Raw keeps the cell as read.
func Coerce(raw string, sentinels []string) Cell {
	s := strings.TrimSpace(raw)
	for _, sentinel := range sentinels {
		if s == sentinel {
			return Cell{Kind: CellMissing, Raw: raw}
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Cell{Kind: CellInvalid, Raw: raw}
	}
	return Cell{Kind: CellNumeric, Value: v, Raw: raw}
}

// YieldCurveTable is the cleaned, fully rectangular analysis input:
// one row per retained observation date, one column per maturity.
type YieldCurveTable struct {
	Dates      []time.Time // retained dates, source order
	DateLabels []string    // dates as they appeared in the source
	Maturities []string    // column labels, source order
	Data       *mat.Dense  // len(Dates) x len(Maturities)
}

func (t *YieldCurveTable) Rows() int { return len(t.Dates) }
func (t *YieldCurveTable) Cols() int { return len(t.Maturities) }

// Frame renders the table back into a DataFrame of the same shape the
// cleaner consumes. Cleaning its output again is a no-op.
func (t *YieldCurveTable) Frame() dataframe.DataFrame {
	cols := make([]series.Series, 0, len(t.Maturities)+1)
	cols = append(cols, series.New(t.DateLabels, series.String, DateColumn))
	for j, m := range t.Maturities {
		vals := make([]string, t.Rows())
		for i := range vals {
			vals[i] = strconv.FormatFloat(t.Data.At(i, j), 'g', -1, 64)
		}
		cols = append(cols, series.New(vals, series.String, m))
	}
	return dataframe.New(cols...)
}
