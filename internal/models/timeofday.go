package models

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// MinutesPerDay bounds minute-of-day arithmetic; an occurrence must end
// at or before midnight of the day it starts on.
const MinutesPerDay = 24 * 60

// MinuteOfDay converts a zero-padded 24-hour "HH:MM" string into minutes
// since midnight. Interval comparisons must go through this conversion;
// comparing raw time strings silently breaks on unpadded input.
func MinuteOfDay(s string) (int, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("time %q must be zero-padded HH:MM", s)
	}
	for _, i := range []int{0, 1, 3, 4} {
		if s[i] < '0' || s[i] > '9' {
			return 0, fmt.Errorf("time %q must be zero-padded HH:MM", s)
		}
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	if h > 23 || m > 59 {
		return 0, fmt.Errorf("time %q out of range", s)
	}
	return h*60 + m, nil
}

// FormatMinuteOfDay renders minutes since midnight as "HH:MM", wrapping
// values that spill past midnight. Callers computing an end time from a
// start plus a duration must bounds-check against MinutesPerDay first;
// a wrapped end time would land before its start.
func FormatMinuteOfDay(m int) string {
	m = ((m % MinutesPerDay) + MinutesPerDay) % MinutesPerDay
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// ParseDate parses a "YYYY-MM-DD" calendar date.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q must be YYYY-MM-DD", s)
	}
	return d, nil
}

// FormatDate renders a calendar date as "YYYY-MM-DD".
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// WeekdayOf returns the weekday (0 = Sunday … 6 = Saturday) of a
// "YYYY-MM-DD" date.
func WeekdayOf(date string) (int, error) {
	d, err := ParseDate(date)
	if err != nil {
		return 0, err
	}
	return int(d.Weekday()), nil
}

// WeekdayName maps a 0-6 weekday to its English name for display tags.
func WeekdayName(day int) string {
	if day < 0 || day > 6 {
		return "unknown"
	}
	return time.Weekday(day).String()
}
