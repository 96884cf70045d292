package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
)

func Contains[T comparable](slice []T, item T) bool {
	for _, v := range slice {
		if v == item {
			return true
		}
	}
	return false
}

// HasColumn reports whether the DataFrame carries a column with that name.
func HasColumn(df dataframe.DataFrame, name string) bool {
	for _, n := range df.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// MaturityYears converts a maturity column label to a year count.
// Accepted forms: "10Y", "10y", "10年", "6M", "6ヶ月", "6ヵ月", bare "10".
func MaturityYears(label string) (float64, error) {
	s := strings.TrimSpace(label)
	if s == "" {
		return 0, fmt.Errorf("empty maturity label")
	}

	months := false
	switch {
	case strings.HasSuffix(s, "Y") || strings.HasSuffix(s, "y"):
		s = s[:len(s)-1]
	case strings.HasSuffix(s, "年"):
		s = strings.TrimSuffix(s, "年")
	case strings.HasSuffix(s, "M") || strings.HasSuffix(s, "m"):
		s = s[:len(s)-1]
		months = true
	case strings.HasSuffix(s, "ヶ月"):
		s = strings.TrimSuffix(s, "ヶ月")
		months = true
	case strings.HasSuffix(s, "ヵ月"):
		s = strings.TrimSuffix(s, "ヵ月")
		months = true
	}

	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("maturity label %q: %w", label, err)
	}
	if months {
		n /= 12
	}
	return n, nil
}

// 和暦 era start years, Gregorian.
var eraBase = map[byte]int{
	'M': 1868, // 明治
	'T': 1912, // 大正
	'S': 1926, // 昭和
	'H': 1989, // 平成
	'R': 2019, // 令和
}

var isoLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006/1/2",
	"2006.1.2",
	"20060102",
}

// ParseObservationDate parses a yield-table date cell. The published jgbcm
// files use era notation ("S49.9.24", "H9.1.6", "R1.5.7"); downloads
// converted elsewhere usually carry ISO dates.
func ParseObservationDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date cell")
	}

	if base, ok := eraBase[s[0]]; ok {
		parts := strings.Split(s[1:], ".")
		if len(parts) != 3 {
			return time.Time{}, fmt.Errorf("era date %q: want E<y>.<m>.<d>", s)
		}
		nums := make([]int, 3)
		for i, p := range parts {
			n, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil {
				return time.Time{}, fmt.Errorf("era date %q: %w", s, err)
			}
			nums[i] = n
		}
		if nums[0] < 1 {
			return time.Time{}, fmt.Errorf("era date %q: era year starts at 1", s)
		}
		t := time.Date(base+nums[0]-1, time.Month(nums[1]), nums[2], 0, 0, 0, 0, time.UTC)
		if int(t.Month()) != nums[1] || t.Day() != nums[2] {
			return time.Time{}, fmt.Errorf("era date %q: no such day", s)
		}
		return t, nil
	}

	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
