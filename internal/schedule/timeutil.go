package schedule

import (
	"fmt"
	"time"

	"imgbot/internal/storage"
)

// TimeError reports an invalid or non-future schedule time. Its message is
// shown to the requester verbatim.
type TimeError struct {
	msg string
}

func (e *TimeError) Error() string { return e.msg }

func timeErrorf(format string, args ...any) *TimeError {
	return &TimeError{msg: fmt.Sprintf(format, args...)}
}

// NextRepeat computes the next run time after a delivery at now for a row
// whose previous run time was prev. The result is always strictly in the
// future: a delayed dispatcher skips missed occurrences instead of firing a
// burst, at most one delivery per tick.
func NextRepeat(prev, now int64, iv storage.Interval) int64 {
	u := iv.Seconds()
	if u <= 0 {
		return prev
	}
	next := prev + u
	for next <= now {
		next += u
	}
	return next
}

// RunAtFromComponents builds an absolute schedule time in now's location.
// year==0 defaults to the current year. Calendrically invalid dates (Feb 30)
// and instants not strictly after now are rejected with a TimeError.
func RunAtFromComponents(now time.Time, year, month, day, hour, minute int) (int64, error) {
	if year == 0 {
		year = now.Year()
	}
	target := time.Date(year, time.Month(month), day, hour, minute, 0, 0, now.Location())
	// time.Date normalizes out-of-range components (Feb 30 becomes Mar 1/2),
	// so a changed component means the date was invalid.
	if target.Year() != year || target.Month() != time.Month(month) || target.Day() != day ||
		target.Hour() != hour || target.Minute() != minute {
		return 0, timeErrorf("invalid date/time: %04d-%02d-%02d %02d:%02d", year, month, day, hour, minute)
	}
	if !target.After(now) {
		return 0, timeErrorf("scheduled time must be in the future")
	}
	return target.Unix(), nil
}

// NextOccurrence returns today's instant at hour:minute in now's location,
// rolled forward one calendar day if that instant is not strictly after now.
func NextOccurrence(now time.Time, hour, minute int) int64 {
	target := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !target.After(now) {
		target = target.AddDate(0, 0, 1)
	}
	return target.Unix()
}
