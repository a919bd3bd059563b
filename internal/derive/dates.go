package derive

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// MsgEndBeforeStart is reported for inverted ranges.
const MsgEndBeforeStart = "End date must be after start date"

// RangeResult is the outcome of ValidateRange.
type RangeResult struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

var (
	yearMonthPattern = regexp.MustCompile(`^\s*(\d{4})-(0[1-9]|1[0-2])\s*$`)
	monthNamePattern = regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?[\s,./-]*(\d{4})\b`)
	yearPattern      = regexp.MustCompile(`^\s*(\d{4})\s*$`)
)

var monthIndex = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

// ParseDate reads a loose CV date. The first matching form wins: YYYY-MM,
// a month name followed by a year, then a bare year (read as January).
// Anything else is "no date", reported through ok.
func ParseDate(s string) (t time.Time, ok bool) {
	if m := yearMonthPattern.FindStringSubmatch(s); m != nil {
		month, _ := strconv.Atoi(m[2])
		return dateOf(m[1], time.Month(month)), true
	}
	if m := monthNamePattern.FindStringSubmatch(s); m != nil {
		return dateOf(m[2], monthIndex[strings.ToLower(m[1])]), true
	}
	if m := yearPattern.FindStringSubmatch(s); m != nil {
		return dateOf(m[1], time.January), true
	}
	return time.Time{}, false
}

func dateOf(year string, month time.Month) time.Time {
	y, _ := strconv.Atoi(year)
	return time.Date(y, month, 1, 0, 0, 0, 0, time.UTC)
}

// ValidateRange flags a range only when both ends parse and start falls
// strictly after end. Blank ranges and an end of "present" are valid.
func ValidateRange(start, end string) RangeResult {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	if start == "" && end == "" {
		return RangeResult{Valid: true}
	}
	if strings.EqualFold(end, "present") {
		return RangeResult{Valid: true}
	}

	startDate, startOK := ParseDate(start)
	endDate, endOK := ParseDate(end)
	if startOK && endOK && startDate.After(endDate) {
		return RangeResult{Valid: false, Message: MsgEndBeforeStart}
	}
	return RangeResult{Valid: true}
}
