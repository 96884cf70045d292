package presenter

import (
	"fmt"
	"image/color"
	"math"
	"strings"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"YieldCurvePCA/src/processor"
	"YieldCurvePCA/src/storage"
)

// conventional reading of the first three principal components of
// yield-curve variation
var conventionalNames = []string{"Level", "Slope", "Curvature"}

// FactorSeries is the terminal analysis output: one named score series per
// component, aligned with the retained observation dates.
type FactorSeries struct {
	Dates  []time.Time
	Labels []string    // source date labels, one per Dates entry
	Names  []string    // Level/Slope/Curvature or PC1..PCn
	Values [][]float64 // [component][date index]
}

// ChartSpec is a render-ready chart description. Rendering consumes this
// object; no process-wide plotting state is involved.
type ChartSpec struct {
	Title  string
	Series []ChartSeries
}

type ChartSeries struct {
	Name   string
	Dates  []time.Time
	Values []float64
}

// BuildFactorSeries names and arranges the decomposition scores. The
// Level/Slope/Curvature labels are applied only when the loading shapes
// back the convention (flat, one sign change, two sign changes); otherwise
// the factors keep PC numbering and a warning is logged.
func BuildFactorSeries(t *processor.YieldCurveTable, dec *processor.Decomposition, logger *storage.Logger) (*FactorSeries, error) {
	if t.Rows() == 0 {
		return nil, fmt.Errorf("present: no retained dates to plot")
	}

	names := make([]string, dec.Components)
	for c := range names {
		names[c] = fmt.Sprintf("PC%d", c+1)
	}
	if dec.Components == len(conventionalNames) {
		if shapesMatchConvention(dec) {
			copy(names, conventionalNames)
		} else if logger != nil {
			logger.Warning("loading shapes do not match the level/slope/curvature convention, keeping PC labels")
		}
	}

	values := make([][]float64, dec.Components)
	for c := range values {
		col := make([]float64, t.Rows())
		for i := range col {
			col[i] = dec.Scores.At(i, c)
		}
		values[c] = col
	}

	return &FactorSeries{
		Dates:  t.Dates,
		Labels: t.DateLabels,
		Names:  names,
		Values: values,
	}, nil
}

// shapesMatchConvention checks the sign structure of the first three
// loading vectors: level is one-signed, slope crosses zero once, curvature
// twice.
func shapesMatchConvention(dec *processor.Decomposition) bool {
	for c, want := range []int{0, 1, 2} {
		if signChanges(dec.Loadings, c) != want {
			return false
		}
	}
	return true
}

func signChanges(loadings *mat.Dense, row int) int {
	_, m := loadings.Dims()
	maxAbs := 0.0
	for j := 0; j < m; j++ {
		maxAbs = math.Max(maxAbs, math.Abs(loadings.At(row, j)))
	}
	if maxAbs == 0 {
		return -1
	}
	tol := 1e-6 * maxAbs

	changes := 0
	prev := 0.0
	for j := 0; j < m; j++ {
		v := loadings.At(row, j)
		if math.Abs(v) < tol {
			continue // near-zero weights carry no sign information
		}
		if prev != 0 && (v > 0) != (prev > 0) {
			changes++
		}
		prev = v
	}
	return changes
}

// Chart arranges the factor series into a render-ready spec.
func Chart(fs *FactorSeries, title string) *ChartSpec {
	spec := &ChartSpec{Title: title}
	for c, name := range fs.Names {
		spec.Series = append(spec.Series, ChartSeries{
			Name:   name,
			Dates:  fs.Dates,
			Values: fs.Values[c],
		})
	}
	return spec
}

var seriesColors = []color.RGBA{
	{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
	{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff},
	{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff},
	{R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
}

// RenderPNG draws the chart as a multi-line time series and writes it to
// path.
func RenderPNG(spec *ChartSpec, path string) error {
	if len(spec.Series) == 0 {
		return fmt.Errorf("present: chart spec has no series")
	}

	p := plot.New()
	p.Title.Text = spec.Title
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "Score"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01"}
	p.Add(plotter.NewGrid())

	for i, s := range spec.Series {
		xys := make(plotter.XYs, len(s.Dates))
		for j, d := range s.Dates {
			xys[j].X = float64(d.Unix())
			xys[j].Y = s.Values[j]
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return fmt.Errorf("present: series %s: %w", s.Name, err)
		}
		line.Color = seriesColors[i%len(seriesColors)]
		p.Add(line)
		p.Legend.Add(s.Name, line)
	}
	p.Legend.Top = true

	if err := p.Save(12*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("present: save chart: %w", err)
	}
	return nil
}

// Summary formats the variance-explained report printed after each run and
// mailed/pushed with the outputs.
func Summary(fs *FactorSeries, dec *processor.Decomposition) string {
	var b strings.Builder
	total := 0.0
	for c, r := range dec.VarianceRatios {
		fmt.Fprintf(&b, "%s (PC%d) explained variance ratio: %.4f\n", fs.Names[c], c+1, r)
		total += r
	}
	fmt.Fprintf(&b, "Total explained variance (first %d): %.4f\n", dec.Components, total)
	fmt.Fprintf(&b, "Retained dates: %d (%s .. %s)\n",
		len(fs.Dates),
		fs.Dates[0].Format("2006-01-02"),
		fs.Dates[len(fs.Dates)-1].Format("2006-01-02"))
	return b.String()
}
