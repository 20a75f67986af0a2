package blackmarble

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidDate = errors.New("invalid date")

// ParseDate accepts YYYY-MM-DD, YYYY-MM or YYYY and normalises to the start of the product period.
func ParseDate(p Product, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var (
		t   time.Time
		err error
	)
	switch len(s) {
	case len("2006-01-02"):
		t, err = time.Parse("2006-01-02", s)
	case len("2006-01"):
		if p.Period == PeriodDay {
			return time.Time{}, fmt.Errorf("%w: %s needs a full date for %s", ErrInvalidDate, s, p.ID)
		}
		t, err = time.Parse("2006-01", s)
	case len("2006"):
		if p.Period != PeriodYear {
			return time.Time{}, fmt.Errorf("%w: %s is only a year, %s is not annual", ErrInvalidDate, s, p.ID)
		}
		t, err = time.Parse("2006", s)
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidDate, err)
	}
	return Normalize(p, t), nil
}

func Normalize(p Product, t time.Time) time.Time {
	t = t.UTC()
	switch p.Period {
	case PeriodMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	case PeriodYear:
		return time.Date(t.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
}

// DateRange expands start..end (inclusive) one product period at a time.
func DateRange(p Product, start, end time.Time) ([]time.Time, error) {
	start, end = Normalize(p, start), Normalize(p, end)
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end %s before start %s", ErrInvalidDate, end.Format("2006-01-02"), start.Format("2006-01-02"))
	}
	var dates []time.Time
	for d := start; !d.After(end); d = next(p, d) {
		dates = append(dates, d)
	}
	return dates, nil
}

func next(p Product, t time.Time) time.Time {
	switch p.Period {
	case PeriodMonth:
		return t.AddDate(0, 1, 0)
	case PeriodYear:
		return t.AddDate(1, 0, 0)
	default:
		return t.AddDate(0, 0, 1)
	}
}

// DayOfYearPath is the archive directory for a date, e.g. 2021/274.
func DayOfYearPath(t time.Time) string {
	return fmt.Sprintf("%04d/%03d", t.Year(), t.YearDay())
}

// FormatDate renders t at the product's resolution.
func FormatDate(p Product, t time.Time) string {
	switch p.Period {
	case PeriodMonth:
		return t.Format("2006-01")
	case PeriodYear:
		return t.Format("2006")
	default:
		return t.Format("2006-01-02")
	}
}
