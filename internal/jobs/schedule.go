package jobs

import "time"

// NextRun returns the first instant strictly after now whose wall clock in
// loc reads at, an offset from midnight.
func NextRun(now time.Time, at time.Duration, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	h := int(at / time.Hour)
	m := int(at % time.Hour / time.Minute)

	y, mo, d := now.In(loc).Date()
	next := time.Date(y, mo, d, h, m, 0, 0, loc)
	for !next.After(now) {
		d++
		next = time.Date(y, mo, d, h, m, 0, 0, loc)
	}
	return next
}

// backoff is 2^attempts seconds, capped at ten minutes.
func backoff(attempts int) time.Duration {
	if attempts >= 10 {
		return 600 * time.Second
	}
	return min(time.Duration(1<<attempts)*time.Second, 600*time.Second)
}
