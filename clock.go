package auth

import "time"

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f().UTC()
}

func normalizeClock(c Clock) Clock {
	if c == nil {
		return SystemClock{}
	}
	return c
}
