// reader.go
package file

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/tealeg/xlsx"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"YieldCurvePCA/src/processor"
	"YieldCurvePCA/src/utils"
)

// DefaultEncoding matches the Ministry of Finance download (cp932).
const DefaultEncoding = "cp932"

// names the source may use for the observation-date column
var dateColumnNames = []string{"基準日", "date", "Date", "日付"}

// ParseError reports a malformed yield table.
type ParseError struct {
	Path string
	Row  int // 1-based physical row, 0 when not row-specific
	Msg  string
}

func (e *ParseError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("load %s: row %d: %s", e.Path, e.Row, e.Msg)
	}
	return fmt.Sprintf("load %s: %s", e.Path, e.Msg)
}

// EncodingError reports text that could not be decoded with the configured
// encoding, or an encoding name this loader does not know.
type EncodingError struct {
	Path     string
	Encoding string
	Msg      string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("load %s: encoding %q: %s", e.Path, e.Encoding, e.Msg)
}

// Options controls how a yield table is read.
type Options struct {
	Encoding string // CSV text encoding, DefaultEncoding when empty
	Sheet    string // XLSX sheet name, first sheet when empty
}

// ReadTable loads a yield table into a DataFrame of string columns:
// processor.DateColumn first, then one column per maturity in source order.
// The format is picked from the file extension (.csv or .xlsx).
func ReadTable(path string, opts Options) (dataframe.DataFrame, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return ReadXLSX(path, opts.Sheet)
	default:
		return ReadCSV(path, opts.Encoding)
	}
}

// ReadCSV reads a delimited yield table with the given text encoding.
func ReadCSV(path, encodingName string) (dataframe.DataFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("load %s: %w", path, err)
	}
	defer f.Close()
	return readCSV(f, path, encodingName)
}

func readCSV(r io.Reader, path, encodingName string) (dataframe.DataFrame, error) {
	if encodingName == "" {
		encodingName = DefaultEncoding
	}
	enc, err := encodingByName(encodingName)
	if err != nil {
		return dataframe.DataFrame{}, &EncodingError{Path: path, Encoding: encodingName, Msg: err.Error()}
	}
	if enc != nil {
		r = transform.NewReader(r, enc.NewDecoder())
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		// a wrong decoder surfaces here for the stateful encodings
		// (ISO-2022-JP escape sequences, UTF-16 without BOM)
		return dataframe.DataFrame{}, &EncodingError{Path: path, Encoding: encodingName, Msg: err.Error()}
	}
	if len(records) > 0 && len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], "\uFEFF")
	}
	for i := 0; i < len(records) && i < 2; i++ {
		if mojibake(records[i]) {
			return dataframe.DataFrame{}, &EncodingError{Path: path, Encoding: encodingName,
				Msg: "header is not valid text under this encoding, wrong encoding configured"}
		}
	}

	df, perr := buildFrame(records, path)
	if perr != nil {
		return dataframe.DataFrame{}, perr
	}
	return df, nil
}

// ReadXLSX reads a yield table from a worksheet, first sheet when name is empty.
func ReadXLSX(path, sheetName string) (dataframe.DataFrame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("load %s: %w", path, err)
	}
	return ReadXLSXBytes(data, path, sheetName)
}

// ReadXLSXBytes reads a yield table from workbook data already in memory.
func ReadXLSXBytes(data []byte, name, sheetName string) (dataframe.DataFrame, error) {
	xlFile, err := xlsx.OpenBinary(data)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("load %s: %w", name, err)
	}
	return sheetToFrame(xlFile, name, sheetName)
}

func sheetToFrame(xlFile *xlsx.File, path, sheetName string) (dataframe.DataFrame, error) {
	if len(xlFile.Sheets) == 0 {
		return dataframe.DataFrame{}, &ParseError{Path: path, Msg: "workbook has no sheets"}
	}
	sheet := xlFile.Sheets[0]
	if sheetName != "" {
		s, ok := xlFile.Sheet[sheetName]
		if !ok {
			return dataframe.DataFrame{}, &ParseError{Path: path, Msg: fmt.Sprintf("no sheet named %q", sheetName)}
		}
		sheet = s
	}

	records := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]string, 0, len(row.Cells))
		for _, cell := range row.Cells {
			cells = append(cells, cell.String())
		}
		records = append(records, cells)
	}
	df, perr := buildFrame(records, path)
	if perr != nil {
		return dataframe.DataFrame{}, perr
	}
	return df, nil
}

// buildFrame turns raw records into the loader's DataFrame contract. The
// published jgbcm files carry a one-line preamble before the maturity
// header; plain exports start with the header directly. Either way the
// header is the record naming the date column.
func buildFrame(records [][]string, path string) (dataframe.DataFrame, *ParseError) {
	headerIdx := -1
	for i := 0; i < len(records) && i < 2; i++ {
		if dateIndex(records[i]) >= 0 {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return dataframe.DataFrame{}, &ParseError{Path: path,
			Msg: "no date column (基準日 or date) found in the first two rows"}
	}
	header := records[headerIdx]
	data := records[headerIdx+1:]
	if len(data) == 0 {
		return dataframe.DataFrame{}, &ParseError{Path: path, Msg: "table has a header but no data rows"}
	}

	dateIdx := dateIndex(header)
	labels := make([]string, 0, len(header))
	colIdx := make([]int, 0, len(header))
	seen := map[string]bool{}
	for i, h := range header {
		if i == dateIdx {
			continue
		}
		label := strings.TrimSpace(h)
		if label == "" {
			continue // trailing empty cells are common in the xlsx exports
		}
		if seen[label] {
			return dataframe.DataFrame{}, &ParseError{Path: path, Row: headerIdx + 1,
				Msg: fmt.Sprintf("duplicate maturity column %q", label)}
		}
		seen[label] = true
		labels = append(labels, label)
		colIdx = append(colIdx, i)
	}
	if len(labels) == 0 {
		return dataframe.DataFrame{}, &ParseError{Path: path, Row: headerIdx + 1, Msg: "no maturity columns"}
	}

	dates := make([]string, len(data))
	columns := make([][]string, len(labels))
	for j := range columns {
		columns[j] = make([]string, len(data))
	}
	var prev int64 = -1 << 62
	for i, rec := range data {
		physRow := headerIdx + 2 + i
		if dateIdx >= len(rec) {
			return dataframe.DataFrame{}, &ParseError{Path: path, Row: physRow, Msg: "row has no date cell"}
		}
		raw := strings.TrimSpace(rec[dateIdx])
		t, err := utils.ParseObservationDate(raw)
		if err != nil {
			return dataframe.DataFrame{}, &ParseError{Path: path, Row: physRow, Msg: err.Error()}
		}
		u := t.Unix()
		if u <= prev {
			return dataframe.DataFrame{}, &ParseError{Path: path, Row: physRow,
				Msg: fmt.Sprintf("date %q out of chronological order", raw)}
		}
		prev = u
		dates[i] = raw
		for j, c := range colIdx {
			if c < len(rec) {
				columns[j][i] = rec[c]
			}
		}
	}

	cols := make([]series.Series, 0, len(labels)+1)
	cols = append(cols, series.New(dates, series.String, processor.DateColumn))
	for j, label := range labels {
		cols = append(cols, series.New(columns[j], series.String, label))
	}
	return dataframe.New(cols...), nil
}

func dateIndex(row []string) int {
	for i, cell := range row {
		if utils.Contains(dateColumnNames, strings.TrimSpace(cell)) {
			return i
		}
	}
	return -1
}

// mojibake reports replacement characters or invalid UTF-8 in a record.
// ContainsRune with utf8.RuneError matches both.
func mojibake(cells []string) bool {
	for _, c := range cells {
		if strings.ContainsRune(c, utf8.RuneError) {
			return true
		}
	}
	return false
}

func encodingByName(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "cp932", "ms932", "windows-31j", "shift_jis", "shift-jis", "sjis":
		return japanese.ShiftJIS, nil
	case "euc-jp", "eucjp":
		return japanese.EUCJP, nil
	case "iso-2022-jp", "jis":
		return japanese.ISO2022JP, nil
	case "utf-16le":
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM), nil
	case "utf-16be":
		return unicode.UTF16(unicode.BigEndian, unicode.UseBOM), nil
	case "utf-8", "utf8":
		return nil, nil // no transform needed
	default:
		return nil, fmt.Errorf("unsupported encoding name")
	}
}
