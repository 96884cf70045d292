package processor

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"YieldCurvePCA/src/utils"
)

// DefaultComponents matches the classical level/slope/curvature reading of
// yield-curve variance.
const DefaultComponents = 3

// Decomposition holds everything the principal-component step produces:
// per-date scores, per-maturity loadings, and explained-variance ratios.
// Loadings plus ColumnMeans are enough to project new observations.
type Decomposition struct {
	Components     int
	Maturities     []string
	Scores         *mat.Dense // rows x Components
	Loadings       *mat.Dense // Components x maturities
	VarianceRatios []float64  // descending, each in [0,1]
	ColumnMeans    []float64
}

// Decompose centers the cleaned matrix and extracts the top k directions of
// variance with gonum's stat.PC. Component signs are fixed so the loading on
// the longest maturity is non-negative, making runs reproducible across
// implementations of the underlying eigendecomposition.
func Decompose(t *YieldCurveTable, k int) (*Decomposition, error) {
	if k < 1 {
		return nil, fmt.Errorf("pca: component count %d out of range", k)
	}
	n, m := t.Rows(), t.Cols()
	if n < 2 || n < k {
		return nil, &NumericalError{Reason: fmt.Sprintf("too few retained rows for %d components", k), Rows: n, Cols: m}
	}
	if m < k {
		return nil, &NumericalError{Reason: fmt.Sprintf("too few maturities for %d components", k), Rows: n, Cols: m}
	}

	means := make([]float64, m)
	for j := 0; j < m; j++ {
		means[j] = stat.Mean(mat.Col(nil, j, t.Data), nil)
	}

	centered := mat.NewDense(n, m, nil)
	totalVar := 0.0
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			d := t.Data.At(i, j) - means[j]
			centered.Set(i, j, d)
			totalVar += d * d
		}
	}
	totalVar /= float64(n - 1)
	if totalVar < 1e-12 {
		return nil, &NumericalError{Reason: "matrix is constant, no variance to decompose", Rows: n, Cols: m}
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(t.Data, nil); !ok {
		return nil, &NumericalError{Reason: "eigendecomposition failed to converge", Rows: n, Cols: m}
	}

	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	vars := pc.VarsTo(nil)

	dirs := mat.DenseCopyOf(vecs.Slice(0, m, 0, k)) // m x k, columns are components
	scores := mat.NewDense(n, k, nil)
	scores.Mul(centered, dirs)
	fixSigns(dirs, scores, t.Maturities)

	ratios := make([]float64, k)
	for i := 0; i < k; i++ {
		r := vars[i] / totalVar
		ratios[i] = math.Min(math.Max(r, 0), 1)
	}

	loadings := mat.NewDense(k, m, nil)
	loadings.Copy(dirs.T())

	return &Decomposition{
		Components:     k,
		Maturities:     t.Maturities,
		Scores:         scores,
		Loadings:       loadings,
		VarianceRatios: ratios,
		ColumnMeans:    means,
	}, nil
}

// fixSigns resolves the eigenvector sign ambiguity: each component is
// flipped so its weight on the longest maturity is non-negative.
func fixSigns(dirs, scores *mat.Dense, maturities []string) {
	longest := len(maturities) - 1
	best := math.Inf(-1)
	for j, label := range maturities {
		if years, err := utils.MaturityYears(label); err == nil && years > best {
			best = years
			longest = j
		}
	}

	_, k := dirs.Dims()
	n, _ := scores.Dims()
	m := len(maturities)
	for c := 0; c < k; c++ {
		if dirs.At(longest, c) >= 0 {
			continue
		}
		for j := 0; j < m; j++ {
			dirs.Set(j, c, -dirs.At(j, c))
		}
		for i := 0; i < n; i++ {
			scores.Set(i, c, -scores.At(i, c))
		}
	}
}

// Project maps one raw curve observation (same maturity order as the input
// table) onto the fitted components.
func (d *Decomposition) Project(row []float64) ([]float64, error) {
	if len(row) != len(d.ColumnMeans) {
		return nil, fmt.Errorf("pca: projection row has %d values, want %d", len(row), len(d.ColumnMeans))
	}
	out := make([]float64, d.Components)
	for c := 0; c < d.Components; c++ {
		sum := 0.0
		for j, v := range row {
			sum += (v - d.ColumnMeans[j]) * d.Loadings.At(c, j)
		}
		out[c] = sum
	}
	return out, nil
}
