package bot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"lockbot/internal/reminder"
)

const dateLayout = "2006-01-02"

// ParseLockupArgs parses the /add_lockup argument string:
//
//	TICKER,ACCOUNT,QUANTITY,YYYY-MM-DD,YYYY-MM-DD[,NOTES]
//
// The returned record has no id or chat destination; the caller fills those.
func ParseLockupArgs(raw string) (reminder.Lockup, error) {
	parts := splitFields(raw)
	if len(parts) < 5 {
		return reminder.Lockup{}, fmt.Errorf("need TICKER,ACCOUNT,QUANTITY,YYYY-MM-DD,YYYY-MM-DD[,NOTES]")
	}
	qty, err := strconv.ParseInt(strings.ReplaceAll(parts[2], ",", ""), 10, 64)
	if err != nil {
		return reminder.Lockup{}, fmt.Errorf("invalid quantity %q", parts[2])
	}
	if qty < 0 {
		return reminder.Lockup{}, fmt.Errorf("quantity must be >= 0")
	}
	start, err := time.Parse(dateLayout, parts[3])
	if err != nil {
		return reminder.Lockup{}, fmt.Errorf("invalid start date %q", parts[3])
	}
	end, err := time.Parse(dateLayout, parts[4])
	if err != nil {
		return reminder.Lockup{}, fmt.Errorf("invalid end date %q", parts[4])
	}
	notes := ""
	if len(parts) > 5 {
		notes = strings.Join(parts[5:], ",")
	}
	return reminder.Lockup{
		Ticker:   parts[0],
		Account:  parts[1],
		Quantity: qty,
		Start:    start,
		End:      end,
		Notes:    notes,
	}, nil
}

// ParseEventArgs parses the /add_event argument string:
//
//	ISSUER,EVENT_TYPE,YYYY-MM-DD[,HH:MM][,OFFSETS][- NOTES]
//
// Notes are split off at the first " - " (or " -") before comma-splitting
// the remainder, because notes may themselves contain commas. Notes that
// contain a dash-space sequence therefore truncate at the first match; this
// mirrors the registration grammar users already rely on.
func ParseEventArgs(raw string) (reminder.Event, error) {
	main, notes := splitEventNotes(raw)
	parts := splitFields(main)
	if len(parts) < 3 {
		return reminder.Event{}, fmt.Errorf("need ISSUER,EVENT_TYPE,YYYY-MM-DD")
	}
	date, err := time.Parse(dateLayout, parts[2])
	if err != nil {
		return reminder.Event{}, fmt.Errorf("invalid date %q", parts[2])
	}

	var at *reminder.TimeOfDay
	rest := parts[3:]
	if len(rest) > 0 && strings.Contains(rest[0], ":") {
		t, err := reminder.ParseTimeOfDay(rest[0])
		if err != nil {
			return reminder.Event{}, err
		}
		at = &t
		rest = rest[1:]
	}
	offsets, err := reminder.ParseOffsets(strings.Join(rest, ","))
	if err != nil {
		return reminder.Event{}, err
	}

	return reminder.Event{
		Issuer:    parts[0],
		EventType: parts[1],
		Date:      date,
		At:        at,
		Notes:     notes,
		Offsets:   offsets,
	}, nil
}

func splitFields(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		out = append(out, strings.TrimSpace(p))
	}
	// Drop trailing empties from inputs like "a,b,".
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return out
}

func splitEventNotes(raw string) (main, notes string) {
	if i := strings.Index(raw, " - "); i >= 0 {
		return raw[:i], strings.TrimSpace(raw[i+3:])
	}
	if i := strings.Index(raw, " -"); i >= 0 {
		return raw[:i], strings.TrimSpace(raw[i+2:])
	}
	return raw, ""
}
