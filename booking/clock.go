/*
clock.go - Time-of-day arithmetic

PURPOSE:
  The engine reasons about times-of-day independently of dates: policy
  windows ("bookable 09:00-18:00"), shift boundaries, quantisation
  grids. ClockTime is that time-of-day, stored as seconds since
  midnight.

KEY OPERATIONS:
  - ParseClock: "15:04" or "15:04:05"; "24:00" is accepted as an
    exclusive end-of-day.
  - ClockOf: the time-of-day of an instant, read in its location.
  - ClockTime.At: stamp a time-of-day onto an instant's date. Values at
    or past 24h roll the date forward, which quantisation relies on
    when a rounded end crosses midnight.
  - clockSpan: wall-clock distance between two times-of-day, normalised
    into (0, 24h] so intervals crossing midnight stay positive.
*/
package booking

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ClockTime is a time-of-day in seconds since midnight. The value
// 86400 ("24:00") is permitted as an exclusive end-of-day bound.
type ClockTime int

const (
	secondsPerMinute = 60
	secondsPerHour   = 60 * secondsPerMinute
	secondsPerDay    = 24 * secondsPerHour
)

// ParseClock parses a wall-clock time of day in "15:04" or "15:04:05"
// form.
func ParseClock(s string) (ClockTime, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}

	fields := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || len(p) == 0 || len(p) > 2 || n < 0 {
			return 0, fmt.Errorf("invalid clock time %q", s)
		}
		fields[i] = n
	}

	h, m, sec := fields[0], fields[1], fields[2]
	switch {
	case h == 24 && m == 0 && sec == 0:
		return ClockTime(secondsPerDay), nil
	case h < 0 || h > 23, m < 0 || m > 59, sec < 0 || sec > 59:
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	return ClockTime(h*secondsPerHour + m*secondsPerMinute + sec), nil
}

// MustClock is ParseClock for literals; it panics on malformed input.
func MustClock(s string) ClockTime {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

// ClockOf returns the time-of-day of t, read in t's location.
func ClockOf(t time.Time) ClockTime {
	return ClockTime(t.Hour()*secondsPerHour + t.Minute()*secondsPerMinute + t.Second())
}

// At stamps the time-of-day onto the date of day, in day's location.
// Values outside [0, 24h) roll the date accordingly.
func (c ClockTime) At(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, 0, 0, int(c), 0, day.Location())
}

// Duration returns the clock time as an offset from midnight.
func (c ClockTime) Duration() time.Duration {
	return time.Duration(c) * time.Second
}

func (c ClockTime) String() string {
	h := int(c) / secondsPerHour
	m := int(c) % secondsPerHour / secondsPerMinute
	s := int(c) % secondsPerMinute
	if s == 0 {
		return fmt.Sprintf("%02d:%02d", h, m)
	}
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// clockSpan returns the wall-clock distance from start to end. An end
// at or before the start is taken to cross midnight, so the result is
// always in (0, 24h].
func clockSpan(start, end ClockTime) time.Duration {
	span := int(end) - int(start)
	if span <= 0 {
		span += secondsPerDay
	}
	return time.Duration(span) * time.Second
}
