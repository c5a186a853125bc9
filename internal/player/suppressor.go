package player

import "time"

// Suppressor is a timed flag: Idle until Suppress is called, then Suppressing
// until the expiry passes. Overlapping windows extend to the latest expiry.
type Suppressor struct {
	now   func() time.Time
	until time.Time
}

func NewSuppressor(now func() time.Time) *Suppressor {
	if now == nil {
		now = time.Now
	}

	return &Suppressor{now: now}
}

func (s *Suppressor) Suppress(d time.Duration) {
	until := s.now().Add(d)
	if until.After(s.until) {
		s.until = until
	}
}

func (s *Suppressor) Active() bool {
	return s.ActiveAt(s.now())
}

// ActiveAt reports whether instant t falls before the current expiry.
func (s *Suppressor) ActiveAt(t time.Time) bool {
	return t.Before(s.until)
}

// Until returns the expiry of the current window, zero when idle.
func (s *Suppressor) Until() time.Time {
	if !s.Active() {
		return time.Time{}
	}

	return s.until
}

func (s *Suppressor) Reset() {
	s.until = time.Time{}
}
