package service

import "time"

// Clock supplies the current time. Services never call time.Now directly
// for scheduling decisions so tests can advance weeks deterministically.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

// NewRealClock returns a Clock backed by the system wall clock (UTC).
func NewRealClock() Clock {
	return realClock{}
}
