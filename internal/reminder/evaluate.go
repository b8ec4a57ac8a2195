package reminder

import "time"

// civil truncates a timestamp to its calendar date, pinned to UTC so that
// day arithmetic is a clean multiple of 24h regardless of the source zone.
func civil(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysUntil returns (target - today) in whole calendar days.
func DaysUntil(target, today time.Time) int {
	return int(civil(target).Sub(civil(today)) / (24 * time.Hour))
}

// DueLockups returns the lockup alerts due on the given calendar day.
//
// A stage is due iff the day distance to lockup end equals that stage's
// offset exactly. Days outside the fixed ladder never match; there is no
// catch-up for missed days.
func DueLockups(lockups []Lockup, today time.Time) []DueLockup {
	var due []DueLockup
	for _, l := range lockups {
		dd := DaysUntil(l.End, today)
		for _, st := range LockupStages {
			if dd == st.Days {
				due = append(due, DueLockup{Lockup: l, Stage: st.Stage})
			}
		}
	}
	return due
}

// DueEvents returns the event alerts due at the given instant.
//
// Each offset of each event is evaluated independently: the alert day is
// event_date + offset, and the alert time is the event's own time for the
// offset-0 alert (when set), otherwise defaultAt. The match is an exact
// minute comparison, not "at or after": the scheduler cadence is itself one
// minute, so exact match avoids re-firing on later ticks of the same day.
// The dedup log, not this comparison, is the real at-most-once guarantee.
func DueEvents(events []Event, now time.Time, defaultAt TimeOfDay) []DueEvent {
	var due []DueEvent
	for _, e := range events {
		for _, off := range e.Offsets {
			targetDay := e.Date.AddDate(0, 0, off)
			at := defaultAt
			if off == 0 && e.At != nil {
				at = *e.At
			}
			if !civil(targetDay).Equal(civil(now)) {
				continue
			}
			if now.Hour() != at.Hour || now.Minute() != at.Minute {
				continue
			}
			due = append(due, DueEvent{Event: e, Offset: off, Stage: StageForOffset(off), At: at})
		}
	}
	return due
}
