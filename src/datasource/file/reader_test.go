package file

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/tealeg/xlsx"
	"golang.org/x/text/encoding/japanese"

	"YieldCurvePCA/src/processor"
)

func writeFixture(t *testing.T, name, content string, shiftJIS bool) string {
	t.Helper()
	data := []byte(content)
	if shiftJIS {
		enc, err := japanese.ShiftJIS.NewEncoder().Bytes(data)
		if err != nil {
			t.Fatalf("encode fixture: %v", err)
		}
		data = enc
	}
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

const jgbcmFixture = "国債金利情報,,,\n" +
	"基準日,1年,5年,10年\n" +
	"S49.9.24,10.327,9.361,-\n" +
	"H9.1.6,0.54,2.005,2.565\n" +
	"R1.5.7,-0.16,-0.145,-0.045\n"

func TestReadCSVJgbcmFormat(t *testing.T) {
	path := writeFixture(t, "jgbcm_all.csv", jgbcmFixture, true)

	df, err := ReadCSV(path, "cp932")
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	wantCols := []string{processor.DateColumn, "1年", "5年", "10年"}
	if !reflect.DeepEqual(df.Names(), wantCols) {
		t.Errorf("columns = %v, want %v", df.Names(), wantCols)
	}
	if df.Nrow() != 3 {
		t.Errorf("rows = %d, want 3", df.Nrow())
	}
	dates := df.Col(processor.DateColumn).Records()
	if !reflect.DeepEqual(dates, []string{"S49.9.24", "H9.1.6", "R1.5.7"}) {
		t.Errorf("dates = %v", dates)
	}
	// the sentinel passes through untouched, cleaning is a later stage
	if got := df.Col("10年").Records()[0]; got != "-" {
		t.Errorf("sentinel cell = %q, want \"-\"", got)
	}
}

func TestReadCSVPlainHeaderUTF8(t *testing.T) {
	content := "date,1Y,10Y\n2024-01-04,0.01,0.61\n2024-01-05,0.02,0.62\n"
	path := writeFixture(t, "plain.csv", content, false)

	df, err := ReadCSV(path, "utf-8")
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if df.Nrow() != 2 {
		t.Errorf("rows = %d, want 2", df.Nrow())
	}
}

func TestReadCSVNoDateColumn(t *testing.T) {
	content := "a,b\n1,2\n"
	path := writeFixture(t, "nodate.csv", content, false)
	_, err := ReadCSV(path, "utf-8")
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("want *ParseError, got %v", err)
	}
}

func TestReadCSVUnparseableDate(t *testing.T) {
	content := "date,1Y\n2024-01-04,0.1\nnot-a-date,0.2\n"
	path := writeFixture(t, "baddate.csv", content, false)
	_, err := ReadCSV(path, "utf-8")
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("want *ParseError, got %v", err)
	}
	if pe.Row != 3 {
		t.Errorf("Row = %d, want 3", pe.Row)
	}
}

func TestReadCSVOutOfOrderDates(t *testing.T) {
	content := "date,1Y\n2024-01-05,0.1\n2024-01-04,0.2\n"
	path := writeFixture(t, "order.csv", content, false)
	var pe *ParseError
	if _, err := ReadCSV(path, "utf-8"); !errors.As(err, &pe) {
		t.Fatalf("want *ParseError, got %v", err)
	}
}

func TestReadCSVUnknownEncoding(t *testing.T) {
	path := writeFixture(t, "enc.csv", "date,1Y\n2024-01-04,0.1\n", false)
	var ee *EncodingError
	if _, err := ReadCSV(path, "klingon"); !errors.As(err, &ee) {
		t.Fatalf("want *EncodingError, got %v", err)
	}
}

func TestReadCSVWrongEncodingIsEncodingError(t *testing.T) {
	// Shift_JIS bytes read as UTF-8 leave invalid sequences in the header.
	path := writeFixture(t, "wrongenc.csv", jgbcmFixture, true)
	var ee *EncodingError
	if _, err := ReadCSV(path, "utf-8"); !errors.As(err, &ee) {
		t.Fatalf("want *EncodingError, got %v", err)
	}
}

func TestReadCSVHeaderOnly(t *testing.T) {
	path := writeFixture(t, "empty.csv", "date,1Y\n", false)
	var pe *ParseError
	if _, err := ReadCSV(path, "utf-8"); !errors.As(err, &pe) {
		t.Fatalf("want *ParseError, got %v", err)
	}
}

// yieldWorkbook builds a small workbook like the ones attached to
// delivery mails.
func yieldWorkbook(t *testing.T, sheetName string) []byte {
	t.Helper()
	wb := xlsx.NewFile()
	sheet, err := wb.AddSheet(sheetName)
	if err != nil {
		t.Fatalf("add sheet: %v", err)
	}
	rows := [][]string{
		{"基準日", "1年", "5年", "10年"},
		{"2024-01-04", "0.05", "0.21", "0.61"},
		{"2024-01-05", "0.04", "0.20", "0.60"},
	}
	for _, cells := range rows {
		row := sheet.AddRow()
		for _, v := range cells {
			row.AddCell().SetString(v)
		}
	}
	var buf bytes.Buffer
	if err := wb.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

func TestReadXLSXBytes(t *testing.T) {
	data := yieldWorkbook(t, "金利")

	df, err := ReadXLSXBytes(data, "inbox.xlsx", "金利")
	if err != nil {
		t.Fatalf("ReadXLSXBytes: %v", err)
	}
	wantCols := []string{processor.DateColumn, "1年", "5年", "10年"}
	if !reflect.DeepEqual(df.Names(), wantCols) {
		t.Errorf("columns = %v, want %v", df.Names(), wantCols)
	}
	if df.Nrow() != 2 {
		t.Errorf("rows = %d, want 2", df.Nrow())
	}
	if got := df.Col("10年").Records()[0]; got != "0.61" {
		t.Errorf("cell = %q, want \"0.61\"", got)
	}
}

func TestReadXLSXBytesMissingSheet(t *testing.T) {
	data := yieldWorkbook(t, "金利")
	var pe *ParseError
	if _, err := ReadXLSXBytes(data, "inbox.xlsx", "missing"); !errors.As(err, &pe) {
		t.Fatalf("want *ParseError, got %v", err)
	}
}

func TestReadTableDispatchesXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "curve.xlsx")
	if err := os.WriteFile(path, yieldWorkbook(t, "金利"), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	df, err := ReadTable(path, Options{Sheet: "金利"})
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if df.Nrow() != 2 {
		t.Errorf("rows = %d, want 2", df.Nrow())
	}
}

func TestReadCSVDuplicateMaturity(t *testing.T) {
	content := "date,1Y,1Y\n2024-01-04,0.1,0.2\n"
	path := writeFixture(t, "dup.csv", content, false)
	var pe *ParseError
	if _, err := ReadCSV(path, "utf-8"); !errors.As(err, &pe) {
		t.Fatalf("want *ParseError, got %v", err)
	}
}
