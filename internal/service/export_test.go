package service

import "time"

// SetEngineClock replaces the clock of e.
func SetEngineClock(e *StatusEngine, now func() time.Time) { e.now = now }

// SetRevocationClock replaces the clock of s.
func SetRevocationClock(s *RevocationService, now func() time.Time) { s.now = now }
