package core

import (
	"fmt"
	"regexp"
	"time"
)

const (
	YearMonthLayout = "2006-01"
	DateLayout      = "2006-01-02"
)

var (
	yearMonthRe = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)
	dateRe      = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])-(0[1-9]|[12]\d|3[01])$`)
)

type (
	// YearMonth identifies a calendar month. Its string form is YYYY-MM.
	YearMonth struct {
		Year  int
		Month time.Month
	}

	// Date is a calendar day at midnight UTC.
	Date struct {
		time.Time
	}
)

// ParseYearMonth parses a YYYY-MM token.
func ParseYearMonth(s string) (YearMonth, error) {
	if !yearMonthRe.MatchString(s) {
		return YearMonth{}, fmt.Errorf("%w: %q", ErrInvalidYearMonth, s)
	}
	t, err := time.Parse(YearMonthLayout, s)
	if err != nil {
		return YearMonth{}, fmt.Errorf("%w: %q", ErrInvalidYearMonth, s)
	}
	return YearMonth{Year: t.Year(), Month: t.Month()}, nil
}

// YearMonthOf returns the month t falls in, in t's own location.
func YearMonthOf(t time.Time) YearMonth {
	return YearMonth{Year: t.Year(), Month: t.Month()}
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

func (ym YearMonth) Validate() error {
	if ym.Month < time.January || ym.Month > time.December || ym.Year < 0 || ym.Year > 9999 {
		return fmt.Errorf("%w: %s", ErrInvalidYearMonth, ym)
	}
	return nil
}

func (ym YearMonth) IsZero() bool {
	return ym.Year == 0 && ym.Month == 0
}

// FirstDay returns the first day of the month.
func (ym YearMonth) FirstDay() Date {
	return NewDate(ym.Year, int(ym.Month), 1)
}

// LastDay returns the last day of the month.
func (ym YearMonth) LastDay() Date {
	return NewDate(ym.Year, int(ym.Month)+1, 0)
}

// Days returns the number of days in the month (28-31).
func (ym YearMonth) Days() int {
	return ym.LastDay().Day()
}

func (ym YearMonth) Next() YearMonth {
	return YearMonthOf(ym.FirstDay().AddDate(0, 1, 0))
}

func (ym YearMonth) Prev() YearMonth {
	return YearMonthOf(ym.FirstDay().AddDate(0, -1, 0))
}

func (ym YearMonth) Before(other YearMonth) bool {
	if ym.Year != other.Year {
		return ym.Year < other.Year
	}
	return ym.Month < other.Month
}

// MarshalText lets YearMonth be used directly in JSON payloads and map keys.
func (ym YearMonth) MarshalText() ([]byte, error) {
	return []byte(ym.String()), nil
}

func (ym *YearMonth) UnmarshalText(b []byte) error {
	parsed, err := ParseYearMonth(string(b))
	if err != nil {
		return err
	}
	*ym = parsed
	return nil
}

// NewDate creates a Date from year, month, day. Out-of-range values are normalized
// the way time.Date does it.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a YYYY-MM-DD string, rejecting impossible days such as 2025-02-30.
func ParseDate(s string) (Date, error) {
	if !dateRe.MatchString(s) {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrInvalidDate)
	}
	return nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

// YearMonth returns the month the date belongs to.
func (d Date) YearMonth() YearMonth {
	return YearMonthOf(d.Time)
}

// AddDays returns the date n days later (or earlier for negative n).
func (d Date) AddDays(n int) Date {
	return Date{Time: d.AddDate(0, 0, n)}
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON overrides the RFC 3339 encoding promoted from time.Time.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("%w: %s", ErrInvalidDate, s)
	}
	return d.UnmarshalText([]byte(s[1 : len(s)-1]))
}
