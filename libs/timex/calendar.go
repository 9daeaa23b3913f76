package timex

import "time"

// Bounds selects which ends of an IsBetween range are inclusive.
type Bounds uint8

const (
	Exclusive      Bounds = 0
	IncludeStart   Bounds = 1 << 0
	IncludeEnd     Bounds = 1 << 1
	Inclusive             = IncludeStart | IncludeEnd
	HalfOpen              = IncludeStart
	LeftOpenClosed        = IncludeEnd
)

func IsSame(a, b time.Time) bool   { return a.Equal(b) }
func IsBefore(a, b time.Time) bool { return a.Before(b) }
func IsAfter(a, b time.Time) bool  { return a.After(b) }

// IsBetween reports whether t lies between start and end under the given
// bounds.
func IsBetween(t, start, end time.Time, b Bounds) bool {
	afterStart := t.After(start) || (b&IncludeStart != 0 && t.Equal(start))
	beforeEnd := t.Before(end) || (b&IncludeEnd != 0 && t.Equal(end))
	return afterStart && beforeEnd
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

func AddMinutes(t time.Time, n int) time.Time {
	return t.Add(time.Duration(n) * time.Minute)
}

// AddDays moves t by n calendar days keeping the UTC wall clock.
func AddDays(t time.Time, n int) time.Time {
	return t.UTC().AddDate(0, 0, n)
}

// AddMonths moves t by n months, clamping the day to the length of the
// target month (Jan 31 + 1 month = Feb 28/29).
func AddMonths(t time.Time, n int) time.Time {
	t = t.UTC()
	first := time.Date(t.Year(), t.Month(), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC).AddDate(0, n, 0)
	day := min(t.Day(), DaysInMonth(first.Year(), first.Month()))
	return first.AddDate(0, 0, day-1)
}

// DaysInMonth handles leap years.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// StartOfDay truncates t to UTC midnight.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func StartOfMonth(t time.Time) time.Time {
	y, m, _ := t.UTC().Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

// Clamp limits t to [lo, hi].
func Clamp(t, lo, hi time.Time) time.Time {
	if t.Before(lo) {
		return lo
	}
	if t.After(hi) {
		return hi
	}
	return t
}

func Max(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func Min(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
