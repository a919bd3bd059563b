package derive

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		input string
		year  int
		month time.Month
		ok    bool
	}{
		{input: "2020-06", year: 2020, month: time.June, ok: true},
		{input: " 2020-06 ", year: 2020, month: time.June, ok: true},
		{input: "Jun 2021", year: 2021, month: time.June, ok: true},
		{input: "september, 2019", year: 2019, month: time.September, ok: true},
		{input: "Sept. 2019", year: 2019, month: time.September, ok: true},
		{input: "DEC-2018", year: 2018, month: time.December, ok: true},
		{input: "2017", year: 2017, month: time.January, ok: true},
		{input: "2020-13", ok: false},
		{input: "last year", ok: false},
		{input: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseDate(tt.input)
			if ok != tt.ok {
				t.Fatalf("Expected ok=%v, got %v", tt.ok, ok)
			}
			if !ok {
				return
			}
			if got.Year() != tt.year || got.Month() != tt.month {
				t.Errorf("Expected %d-%02d, got %s", tt.year, tt.month, got.Format("2006-01"))
			}
		})
	}
}

func TestValidateRange(t *testing.T) {
	tests := []struct {
		name  string
		start string
		end   string
		valid bool
	}{
		{name: "both blank", start: "", end: "  ", valid: true},
		{name: "present", start: "2030-01", end: "Present", valid: true},
		{name: "ordered", start: "2019-01", end: "2020-06", valid: true},
		{name: "same month", start: "2020-06", end: "2020-06", valid: true},
		{name: "inverted", start: "2021-01", end: "2020-06", valid: false},
		{name: "mixed forms inverted", start: "Mar 2022", end: "2021", valid: false},
		{name: "year vs month same year", start: "2020", end: "2020-06", valid: true},
		{name: "unparsable start", start: "once upon a time", end: "2020", valid: true},
		{name: "unparsable end", start: "2020", end: "soon", valid: true},
		{name: "only start", start: "2020-01", end: "", valid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateRange(tt.start, tt.end)
			if result.Valid != tt.valid {
				t.Fatalf("Expected valid=%v, got %v", tt.valid, result.Valid)
			}
			if !result.Valid && result.Message != MsgEndBeforeStart {
				t.Errorf("Expected message %q, got %q", MsgEndBeforeStart, result.Message)
			}
			if result.Valid && result.Message != "" {
				t.Errorf("Expected no message, got %q", result.Message)
			}
		})
	}
}
