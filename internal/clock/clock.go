// Package clock abstracts time reads so schedulers can run against a fake
// clock in tests.
package clock

import "time"

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// System returns the wall clock, normalized to UTC.
func System() Clock { return systemClock{} }
