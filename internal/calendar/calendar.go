// Package calendar implements the hand-rolled date arithmetic used by the
// offer pipeline: parsing, validity checks, and short-range day addition.
// It intentionally does not use the time package for the core rules; the
// leap-year rule is the simplified divisible-by-4 form inherited from the
// upstream feed contract (2100 is treated as a leap year).
package calendar

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MaxExtensionDays is the largest day offset AddDays supports. Offsets
// beyond one month would need full month-by-month rolling, which the
// stay-extension use case never requires.
const MaxExtensionDays = 31

var (
	// ErrEmptyDate is returned when a date string is empty.
	ErrEmptyDate = errors.New("calendar: empty date string")
	// ErrBadDateChar is returned when a date string contains a character
	// other than a digit or '-'.
	ErrBadDateChar = errors.New("calendar: date contains invalid character")
	// ErrExtensionTooLong is returned by AddDays for offsets above MaxExtensionDays.
	ErrExtensionTooLong = errors.New("calendar: extension exceeds 31 days")
)

// ParseError reports why a date string could not be parsed or validated.
type ParseError struct {
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("calendar: invalid date %q: %v", e.Input, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Date is a plain (year, month, day) triple. The zero value is not a
// valid date and doubles as the sentinel for failed arithmetic.
type Date struct {
	Year  int
	Month int
	Day   int
}

// Parse splits s on '-' and assigns the three fields. The feed delivers
// dates in either YYYY-MM-DD or MM-DD-YYYY order; whichever field is
// exactly four characters long is taken as the year, and the remaining
// two are month then day in the order they appear. Parse only performs
// the character-class and shape checks; range validation is IsValid's job.
func Parse(s string) (Date, error) {
	if s == "" {
		return Date{}, &ParseError{Input: s, Err: ErrEmptyDate}
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '-' {
			return Date{}, &ParseError{Input: s, Err: ErrBadDateChar}
		}
	}

	fields := strings.Split(s, "-")
	if len(fields) != 3 {
		return Date{}, &ParseError{Input: s, Err: fmt.Errorf("expected 3 fields, got %d", len(fields))}
	}

	yearField, monthField, dayField := fields[0], fields[1], fields[2]
	if len(fields[1]) == 4 {
		yearField, monthField, dayField = fields[1], fields[0], fields[2]
	}
	if len(fields[2]) == 4 {
		yearField, monthField, dayField = fields[2], fields[0], fields[1]
	}

	year, err := strconv.Atoi(yearField)
	if err != nil {
		return Date{}, &ParseError{Input: s, Err: err}
	}
	month, err := strconv.Atoi(monthField)
	if err != nil {
		return Date{}, &ParseError{Input: s, Err: err}
	}
	day, err := strconv.Atoi(dayField)
	if err != nil {
		return Date{}, &ParseError{Input: s, Err: err}
	}

	return Date{Year: year, Month: month, Day: day}, nil
}

// IsLeapYear reports whether year is a leap year under the simplified
// divisible-by-4 rule. The century exception is deliberately not applied.
func IsLeapYear(year int) bool {
	return year%4 == 0
}

// DaysInMonth returns the number of days in the given month of the given
// year. Month must be in [1, 12]; anything else is a caller bug.
func DaysInMonth(year, month int) int {
	if month < 1 || month > 12 {
		panic(fmt.Sprintf("calendar: month %d out of range", month))
	}
	switch month {
	case 2:
		if IsLeapYear(year) {
			return 29
		}
		return 28
	case 4, 6, 9, 11:
		return 30
	default:
		return 31
	}
}

// IsValid reports whether s parses to a date with a month in [1, 12] and
// a day in [1, DaysInMonth]. The year value itself is not range-checked.
func IsValid(s string) bool {
	d, err := Parse(s)
	if err != nil {
		return false
	}
	if d.Month < 1 || d.Month > 12 {
		return false
	}
	return d.Day >= 1 && d.Day <= DaysInMonth(d.Year, d.Month)
}

// AddDays returns the date n days after d, for 0 <= n <= MaxExtensionDays.
// Overflowing the current month rolls into the next one, wrapping the
// year at December. Larger offsets return the zero Date and
// ErrExtensionTooLong rather than computing a wrong answer.
func AddDays(d Date, n int) (Date, error) {
	if n > MaxExtensionDays {
		return Date{}, ErrExtensionTooLong
	}

	daysInMonth := DaysInMonth(d.Year, d.Month)
	next := d
	if d.Day+n > daysInMonth {
		next.Month = d.Month + 1
		if next.Month > 12 {
			next.Year++
			next.Month = 1
		}
		next.Day = d.Day + n - daysInMonth
	} else {
		next.Day = d.Day + n
	}
	return next, nil
}

// After reports whether d is strictly later than other, comparing year,
// then month, then day.
func (d Date) After(other Date) bool {
	if d.Year != other.Year {
		return d.Year > other.Year
	}
	if d.Month != other.Month {
		return d.Month > other.Month
	}
	return d.Day > other.Day
}

// String renders d in month-day-year order, matching the feed's most
// common shape.
func (d Date) String() string {
	return fmt.Sprintf("%d-%d-%d", d.Month, d.Day, d.Year)
}
