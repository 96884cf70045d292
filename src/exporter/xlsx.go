package exporter

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"YieldCurvePCA/src/presenter"
	"YieldCurvePCA/src/processor"
)

// WriteWorkbook saves the full run output as an xlsx workbook with three
// sheets: the factor scores per date, the loadings per maturity, and the
// explained-variance ratios.
func WriteWorkbook(path string, dec *processor.Decomposition, fs *presenter.FactorSeries) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := writeScores(f, dec, fs); err != nil {
		return err
	}
	if err := writeLoadings(f, dec); err != nil {
		return err
	}
	if err := writeVariance(f, dec, fs); err != nil {
		return err
	}
	f.DeleteSheet("Sheet1")

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("export: save %s: %w", path, err)
	}
	return nil
}

func writeScores(f *excelize.File, dec *processor.Decomposition, fs *presenter.FactorSeries) error {
	const sheet = "Scores"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("export: %w", err)
	}

	setCell(f, sheet, 1, 1, "date")
	for c, name := range fs.Names {
		setCell(f, sheet, c+2, 1, name)
	}
	for i, label := range fs.Labels {
		setCell(f, sheet, 1, i+2, label)
		for c := 0; c < dec.Components; c++ {
			setCell(f, sheet, c+2, i+2, dec.Scores.At(i, c))
		}
	}
	return nil
}

func writeLoadings(f *excelize.File, dec *processor.Decomposition) error {
	const sheet = "Loadings"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("export: %w", err)
	}

	setCell(f, sheet, 1, 1, "component")
	for j, m := range dec.Maturities {
		setCell(f, sheet, j+2, 1, m)
	}
	for c := 0; c < dec.Components; c++ {
		setCell(f, sheet, 1, c+2, fmt.Sprintf("PC%d", c+1))
		for j := range dec.Maturities {
			setCell(f, sheet, j+2, c+2, dec.Loadings.At(c, j))
		}
	}
	return nil
}

func writeVariance(f *excelize.File, dec *processor.Decomposition, fs *presenter.FactorSeries) error {
	const sheet = "Variance"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("export: %w", err)
	}

	setCell(f, sheet, 1, 1, "component")
	setCell(f, sheet, 2, 1, "label")
	setCell(f, sheet, 3, 1, "explained_variance_ratio")
	setCell(f, sheet, 4, 1, "cumulative")
	cum := 0.0
	for c, r := range dec.VarianceRatios {
		cum += r
		setCell(f, sheet, 1, c+2, fmt.Sprintf("PC%d", c+1))
		setCell(f, sheet, 2, c+2, fs.Names[c])
		setCell(f, sheet, 3, c+2, r)
		setCell(f, sheet, 4, c+2, cum)
	}
	return nil
}

func setCell(f *excelize.File, sheet string, col, row int, value interface{}) {
	cell, _ := excelize.CoordinatesToCellName(col, row)
	f.SetCellValue(sheet, cell, value)
}
