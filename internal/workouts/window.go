package workouts

import (
	"errors"
	"fmt"
	"time"
)

// AllTime is the days sentinel for an unbounded analytics window.
const AllTime = -1

// Window bounds the workouts considered by the analyzer.
// A nil bound means unbounded on that side.
type Window struct {
	From *time.Time
	To   *time.Time
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999999000, t.Location())
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// NewWindow resolves the days / explicit-range selector. An explicit
// start or end date may only be combined with days == -1; days >= 0 spans
// from the start of day N days ago to the end of today, so partial
// "today" activity is always included.
func NewWindow(days int, startDate, endDate string, now time.Time) (Window, error) {
	if days < AllTime {
		return Window{}, fmt.Errorf("invalid days value: %d", days)
	}

	if startDate != "" || endDate != "" {
		if days != AllTime {
			return Window{}, errors.New("provide either days or an explicit date range, not both")
		}

		var window Window
		if startDate != "" {
			from, err := time.Parse("2006-01-02", startDate)
			if err != nil {
				return Window{}, fmt.Errorf("invalid start_date: %q", startDate)
			}
			window.From = &from
		}
		if endDate != "" {
			to, err := time.Parse("2006-01-02", endDate)
			if err != nil {
				return Window{}, fmt.Errorf("invalid end_date: %q", endDate)
			}
			toEnd := endOfDay(to)
			window.To = &toEnd
		}
		return window, nil
	}

	if days == AllTime {
		return Window{}, nil
	}

	from := startOfDay(now.AddDate(0, 0, -days))
	to := endOfDay(now)
	return Window{From: &from, To: &to}, nil
}
