package processor

import "fmt"

// CoercionError reports a cell that is neither numeric nor a known
// missing-value sentinel.
type CoercionError struct {
	Date     string // date label of the offending row
	Maturity string // column label of the offending cell
	Raw      string // cell content as read
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("clean: cell [%s, %s] is not numeric and not a missing-value sentinel: %q",
		e.Date, e.Maturity, e.Raw)
}

// EmptyResultError reports that cleaning dropped every row.
type EmptyResultError struct {
	Dropped int
}

func (e *EmptyResultError) Error() string {
	return fmt.Sprintf("clean: no usable rows left (%d dropped for missing values)", e.Dropped)
}

// NumericalError reports an input matrix the decomposition cannot handle.
type NumericalError struct {
	Reason string
	Rows   int
	Cols   int
}

func (e *NumericalError) Error() string {
	return fmt.Sprintf("pca: %s (%d rows x %d maturities)", e.Reason, e.Rows, e.Cols)
}
