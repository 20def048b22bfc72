package schedule

import (
	"fmt"
	"time"
)

type Classifier string

const (
	WindowToday    Classifier = "today"
	WindowUpcoming Classifier = "upcoming"
	WindowHistory  Classifier = "history"
)

// Window computes the [start, end) bounds for a session listing
// classifier relative to now:
//
//	today:    [midnight, next midnight)
//	upcoming: [tomorrow midnight, tomorrow midnight + 1 year)
//	history:  [midnight - 1 year, yesterday 23:59:59.999]
//
// Pure function of the arguments; fetching sessions inside the bounds
// is the caller's business.
// UnixBounds reduces window bounds to unix seconds with an exclusive
// end, so adjacent windows never both list a session starting exactly
// on the boundary. A sub-second endpoint rounds up to keep its final
// second inside the window.
func UnixBounds(start, end time.Time) (int64, int64) {
	endUnix := end.Unix()
	if end.Nanosecond() > 0 {
		endUnix++
	}
	return start.Unix(), endUnix
}

func Window(c Classifier, now time.Time) (time.Time, time.Time, error) {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch c {
	case WindowToday:
		return midnight, midnight.AddDate(0, 0, 1), nil
	case WindowUpcoming:
		tomorrow := midnight.AddDate(0, 0, 1)
		return tomorrow, tomorrow.AddDate(1, 0, 0), nil
	case WindowHistory:
		return midnight.AddDate(-1, 0, 0), midnight.Add(-time.Millisecond), nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("unknown schedule window %q", c)
	}
}
