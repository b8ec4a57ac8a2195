package storage

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"lockbot/internal/reminder"
)

// Stored rows keep everything as strings, spreadsheet-style. Parsing back
// into domain records is an explicit best-effort step so that a single
// malformed row can be skipped without failing the whole scan.

const dateLayout = "2006-01-02"

type lockupRow struct {
	ID       string `json:"id"`
	Ticker   string `json:"ticker"`
	Account  string `json:"account"`
	Quantity string `json:"quantity"`
	Start    string `json:"lockup_start"`
	End      string `json:"lockup_end"`
	Notes    string `json:"notes"`
	ChatID   string `json:"chat_id"`
}

type eventRow struct {
	ID        string `json:"id"`
	Issuer    string `json:"issuer"`
	EventType string `json:"event_type"`
	Date      string `json:"event_date"`
	Time      string `json:"event_time"`
	Notes     string `json:"notes"`
	ChatID    string `json:"chat_id"`
	Offsets   string `json:"alert_offsets"`
}

func lockupToRow(id int64, l reminder.Lockup) lockupRow {
	return lockupRow{
		ID:       strconv.FormatInt(id, 10),
		Ticker:   l.Ticker,
		Account:  l.Account,
		Quantity: strconv.FormatInt(l.Quantity, 10),
		Start:    l.Start.Format(dateLayout),
		End:      l.End.Format(dateLayout),
		Notes:    l.Notes,
		ChatID:   strconv.FormatInt(l.ChatID, 10),
	}
}

func eventToRow(id int64, e reminder.Event) eventRow {
	at := ""
	if e.At != nil {
		at = e.At.String()
	}
	return eventRow{
		ID:        strconv.FormatInt(id, 10),
		Issuer:    e.Issuer,
		EventType: e.EventType,
		Date:      e.Date.Format(dateLayout),
		Time:      at,
		Notes:     e.Notes,
		ChatID:    strconv.FormatInt(e.ChatID, 10),
		Offsets:   formatOffsets(e.Offsets),
	}
}

func (r lockupRow) parse() (reminder.Lockup, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(r.ID), 10, 64)
	if err != nil {
		return reminder.Lockup{}, fmt.Errorf("id: %w", err)
	}
	// Quantity may carry thousands separators when imported from a sheet.
	qty, err := strconv.ParseInt(strings.ReplaceAll(strings.TrimSpace(r.Quantity), ",", ""), 10, 64)
	if err != nil {
		return reminder.Lockup{}, fmt.Errorf("quantity: %w", err)
	}
	if qty < 0 {
		return reminder.Lockup{}, fmt.Errorf("quantity: negative %d", qty)
	}
	start, err := parseDate(r.Start)
	if err != nil {
		return reminder.Lockup{}, fmt.Errorf("lockup_start: %w", err)
	}
	end, err := parseDate(r.End)
	if err != nil {
		return reminder.Lockup{}, fmt.Errorf("lockup_end: %w", err)
	}
	chatID, err := strconv.ParseInt(strings.TrimSpace(r.ChatID), 10, 64)
	if err != nil {
		return reminder.Lockup{}, fmt.Errorf("chat_id: %w", err)
	}
	return reminder.Lockup{
		ID:       id,
		Ticker:   strings.TrimSpace(r.Ticker),
		Account:  strings.TrimSpace(r.Account),
		Quantity: qty,
		Start:    start,
		End:      end,
		Notes:    strings.TrimSpace(r.Notes),
		ChatID:   chatID,
	}, nil
}

func (r eventRow) parse() (reminder.Event, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(r.ID), 10, 64)
	if err != nil {
		return reminder.Event{}, fmt.Errorf("id: %w", err)
	}
	date, err := parseDate(r.Date)
	if err != nil {
		return reminder.Event{}, fmt.Errorf("event_date: %w", err)
	}
	var at *reminder.TimeOfDay
	if strings.TrimSpace(r.Time) != "" {
		t, err := reminder.ParseTimeOfDay(r.Time)
		if err != nil {
			return reminder.Event{}, fmt.Errorf("event_time: %w", err)
		}
		at = &t
	}
	chatID, err := strconv.ParseInt(strings.TrimSpace(r.ChatID), 10, 64)
	if err != nil {
		return reminder.Event{}, fmt.Errorf("chat_id: %w", err)
	}
	offs, err := reminder.ParseOffsets(r.Offsets)
	if err != nil {
		return reminder.Event{}, fmt.Errorf("alert_offsets: %w", err)
	}
	return reminder.Event{
		ID:        id,
		Issuer:    strings.TrimSpace(r.Issuer),
		EventType: strings.TrimSpace(r.EventType),
		Date:      date,
		At:        at,
		Notes:     strings.TrimSpace(r.Notes),
		ChatID:    chatID,
		Offsets:   offs,
	}, nil
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, strings.TrimSpace(s))
}

func formatOffsets(offs []int) string {
	if len(offs) == 0 {
		return "0"
	}
	parts := make([]string, 0, len(offs))
	for _, o := range offs {
		parts = append(parts, strconv.Itoa(o))
	}
	return strings.Join(parts, ",")
}
