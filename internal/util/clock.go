package util

import (
	"fmt"
	"time"
)

// Clock reports the current time in a configured location. Export file
// names are stamped with it.
type Clock struct {
	location *time.Location
	now      func() time.Time
}

// NewClock creates a Clock for timezone. An empty name or "Local" means the
// system zone.
func NewClock(timezone string) (*Clock, error) {
	loc := time.Local
	if timezone != "" && timezone != "Local" {
		l, err := time.LoadLocation(timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone '%s': %w\nValid examples: Local, UTC, Europe/Berlin, America/Toronto", timezone, err)
		}
		loc = l
	}
	return &Clock{location: loc, now: time.Now}, nil
}

func (c *Clock) Now() time.Time {
	return c.now().In(c.location)
}

func (c *Clock) Location() *time.Location {
	return c.location
}
