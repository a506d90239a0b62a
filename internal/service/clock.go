package service

import "time"

// Clock returns the current time; tests replace it with a fixed instant.
type Clock func() time.Time

func systemClock() time.Time { return time.Now() }
