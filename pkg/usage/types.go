package usage

import "time"

// Unlimited as a limit disables the check.
const Unlimited int64 = -1

// Window is the persisted counter.
type Window struct {
	Count   int64     `json:"count"`
	ResetAt time.Time `json:"reset_at"`
}

// Expired reports whether the window has reached its reset time.
func (w Window) Expired(now time.Time) bool {
	return !now.Before(w.ResetAt)
}

// Usage is the display view of a window.
type Usage struct {
	Used      int64     `json:"used"`
	Limit     int64     `json:"limit"`
	Remaining int64     `json:"remaining"` // -1 when unlimited
	ResetAt   time.Time `json:"reset_at"`  // zero when no window exists yet
}

// Usage renders the window against limit.
func (w Window) Usage(limit int64) Usage {
	u := Usage{Used: w.Count, Limit: limit, ResetAt: w.ResetAt}
	switch {
	case limit == Unlimited:
		u.Remaining = Unlimited
	case limit > w.Count:
		u.Remaining = limit - w.Count
	}
	return u
}
