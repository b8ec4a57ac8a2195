package reminder

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Stage is a named alert tier, e.g. "D-7" fires seven days before the target
// date. Lockups use the fixed four-tier ladder below; events derive a stage
// from each of their configured offsets.
type Stage string

// lockupStage pairs a stage label with its day offset before lockup end.
// Offsets are distinct, so at most one stage can match per record per day.
type lockupStage struct {
	Stage Stage
	Days  int
}

// LockupStages is the fixed alert ladder for lockup expiries, in firing order.
var LockupStages = []lockupStage{
	{Stage: "D-30", Days: 30},
	{Stage: "D-7", Days: 7},
	{Stage: "D-1", Days: 1},
	{Stage: "D-0", Days: 0},
}

// StageForOffset derives an event stage label from a signed day offset.
// Offset 0 renders as "D-0"; the sign is preserved otherwise, so -7 is "D-7"
// and 3 is "D3".
func StageForOffset(off int) Stage {
	if off == 0 {
		return "D-0"
	}
	return Stage(fmt.Sprintf("D%d", off))
}

// TimeOfDay is a wall-clock hour and minute in the reference zone.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return TimeOfDay{}, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return TimeOfDay{}, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return TimeOfDay{}, fmt.Errorf("invalid minute in %q", s)
	}
	return TimeOfDay{Hour: h, Minute: m}, nil
}

// ParseOffsets parses a comma-separated signed day-offset list.
// An empty value means the single offset 0 (alert on the event day).
func ParseOffsets(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return []int{0}, nil
	}
	var out []int
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		n, err := strconv.Atoi(tok)
		if err != nil {
			return nil, fmt.Errorf("invalid offset %q", tok)
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return []int{0}, nil
	}
	return out, nil
}

// Lockup is a security holding under a trading restriction until End.
// Records are immutable once created; ids are assigned by the store and are
// strictly increasing, never reused.
type Lockup struct {
	ID       int64
	Ticker   string
	Account  string
	Quantity int64
	Start    time.Time // date only
	End      time.Time // date only
	Notes    string
	ChatID   int64
}

// Event is a corporate event with one alert per configured day offset.
// At is the time of day for the offset-0 alert; nil means the default time.
type Event struct {
	ID        int64
	Issuer    string
	EventType string
	Date      time.Time // date only
	At        *TimeOfDay
	Notes     string
	ChatID    int64
	Offsets   []int
}

// DueLockup is one lockup alert that should fire now.
type DueLockup struct {
	Lockup Lockup
	Stage  Stage
}

// DueEvent is one event alert that should fire now.
type DueEvent struct {
	Event  Event
	Offset int
	Stage  Stage
	At     TimeOfDay
}

// DayBucket keys lockup dedup log entries; the daily pass visits each
// calendar day once, so day resolution is enough.
func DayBucket(t time.Time) string { return t.Format("20060102") }

// MinuteBucket keys event dedup log entries. The minute pass may visit the
// same minute more than once if runs overlap, hence the finer key.
func MinuteBucket(t time.Time) string { return t.Format("200601021504") }
