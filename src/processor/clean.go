package processor

import (
	"fmt"
	"time"

	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/gonum/mat"

	"YieldCurvePCA/src/utils"
)

// DefaultSentinels are the markers the Ministry of Finance tables use for
// yields that were not observed ("-", or an empty cell).
var DefaultSentinels = []string{"-", ""}

// Clean coerces every yield cell of a raw yield-curve frame and drops each
// date row containing at least one missing value. Rows are dropped
// wholesale, never imputed: imputation artifacts would leak into the
// variance estimates the decomposition is built on.
//
// The frame must carry a DateColumn plus one string column per maturity.
// A cell that is neither numeric nor a sentinel aborts with *CoercionError;
// if nothing survives, Clean returns *EmptyResultError.
func Clean(df dataframe.DataFrame, sentinels []string) (*YieldCurveTable, error) {
	if sentinels == nil {
		sentinels = DefaultSentinels
	}
	if !utils.HasColumn(df, DateColumn) {
		return nil, fmt.Errorf("clean: frame has no %q column", DateColumn)
	}

	var maturities []string
	for _, name := range df.Names() {
		if name != DateColumn {
			maturities = append(maturities, name)
		}
	}
	if len(maturities) == 0 {
		return nil, fmt.Errorf("clean: frame has no maturity columns")
	}

	dateLabels := df.Col(DateColumn).Records()
	columns := make([][]string, len(maturities))
	for j, m := range maturities {
		columns[j] = df.Col(m).Records()
	}

	var (
		kept    []float64
		dates   []string
		dropped int
	)
	for i := 0; i < df.Nrow(); i++ {
		row := make([]float64, len(maturities))
		missing := false
		for j := range maturities {
			cell := Coerce(columns[j][i], sentinels)
			switch cell.Kind {
			case CellInvalid:
				return nil, &CoercionError{
					Date:     dateLabels[i],
					Maturity: maturities[j],
					Raw:      cell.Raw,
				}
			case CellMissing:
				missing = true
			case CellNumeric:
				row[j] = cell.Value
			}
		}
		if missing {
			dropped++
			continue
		}
		kept = append(kept, row...)
		dates = append(dates, dateLabels[i])
	}

	if len(dates) == 0 {
		return nil, &EmptyResultError{Dropped: dropped}
	}

	parsed := make([]time.Time, len(dates))
	for i, label := range dates {
		t, err := utils.ParseObservationDate(label)
		if err != nil {
			return nil, fmt.Errorf("clean: %w", err)
		}
		parsed[i] = t
	}

	return &YieldCurveTable{
		Dates:      parsed,
		DateLabels: dates,
		Maturities: maturities,
		Data:       mat.NewDense(len(dates), len(maturities), kept),
	}, nil
}
