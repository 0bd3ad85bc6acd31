package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
}

// ParseQuantity reads a box count. Blank cells are zero; fractional values are truncated.
func ParseQuantity(raw string) (int64, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return 0, fmt.Errorf("invalid quantity %q", raw)
	}
	return d.IntPart(), nil
}

// FormatQuantity renders a quantity for a table cell.
func FormatQuantity(q int64) string {
	return strconv.FormatInt(q, 10)
}

// ParseTimestamp accepts RFC3339, common spreadsheet layouts and Excel serial numbers.
// Blank input returns the zero time.
func ParseTimestamp(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, nil
	}
	if serial, err := strconv.ParseFloat(trimmed, 64); err == nil {
		ts, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid serial timestamp %q: %w", raw, err)
		}
		return ts.UTC(), nil
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, trimmed); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", raw)
}

// NormalizeDate renders an expiry cell as YYYY-MM-DD when it parses as a date and
// otherwise keeps the trimmed text.
func NormalizeDate(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	ts, err := ParseTimestamp(trimmed)
	if err != nil {
		return trimmed
	}
	return ts.Format("2006-01-02")
}

// ParseCompletionFlag reports whether a Vehicle_Completed cell marks the delivery as
// finished. Only a boolean FALSE counts as incomplete; blanks and any other text
// are complete.
func ParseCompletionFlag(raw string) bool {
	return strings.TrimSpace(raw) != "FALSE"
}

// FormatBool renders booleans the way spreadsheets display them.
func FormatBool(v bool) string {
	if v {
		return "TRUE"
	}
	return "FALSE"
}

// FormatTimestamp renders a timestamp cell in UTC at second precision so it parses
// back to the same instant. The zero time renders blank.
func FormatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Truncate(time.Second).Format(time.RFC3339)
}
