package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"lockbot/internal/reminder"
	"lockbot/internal/transport"
	"lockbot/pkg/logx"
)

const helpText = `/myid
/add_lockup TICKER,ACCOUNT,QUANTITY,YYYY-MM-DD,YYYY-MM-DD[,NOTES]
/list_lockup
/add_event ISSUER,EVENT_TYPE,YYYY-MM-DD[,HH:MM][,OFFSETS][- NOTES]
  e.g. /add_event ACME,demand-open,2025-11-19,09:00,-1,0
/list_event`

func (r *Router) cmdStart(ctx context.Context, m *transport.Message) {
	r.reply(ctx, m, "Lockup & event reminder bot ready. See /help for commands.")
}

func (r *Router) cmdHelp(ctx context.Context, m *transport.Message) {
	r.reply(ctx, m, helpText)
}

func (r *Router) cmdMyID(ctx context.Context, m *transport.Message) {
	r.reply(ctx, m, fmt.Sprintf("chat_id = %d", m.ChatID))
}

func (r *Router) cmdAddLockup(ctx context.Context, m *transport.Message, args string) {
	l, err := ParseLockupArgs(args)
	if err != nil {
		r.reply(ctx, m, "Format error: "+err.Error())
		return
	}
	l.ChatID = m.ChatID
	id, err := r.store.AddLockup(ctx, l)
	if err != nil {
		r.log.Warn("add_lockup store write failed", logx.Int64("chat_id", m.ChatID), logx.Err(err))
		r.reply(ctx, m, "Registration failed: "+err.Error())
		return
	}
	r.reply(ctx, m, fmt.Sprintf("[Lockup registered] id=%d / %s/%s expires %s",
		id, l.Ticker, l.Account, l.End.Format(dateLayout)))
}

func (r *Router) cmdListLockups(ctx context.Context, m *transport.Message) {
	lockups, err := r.store.ListLockups(ctx)
	if err != nil {
		r.reply(ctx, m, "Listing failed: "+err.Error())
		return
	}
	today := r.clock.Now()
	var lines []string
	for _, l := range lockups {
		if l.ChatID != m.ChatID {
			continue
		}
		dd := reminder.DaysUntil(l.End, today)
		lines = append(lines, fmt.Sprintf("%d) %s/%s expires %s (D%+d) qty %s",
			l.ID, l.Ticker, l.Account, l.End.Format(dateLayout), dd, humanize.Comma(l.Quantity)))
	}
	if len(lines) == 0 {
		r.reply(ctx, m, "No lockups registered.")
		return
	}
	r.reply(ctx, m, strings.Join(lines, "\n"))
}

func (r *Router) cmdAddEvent(ctx context.Context, m *transport.Message, args string) {
	e, err := ParseEventArgs(args)
	if err != nil {
		r.reply(ctx, m, "Format error: "+err.Error())
		return
	}
	e.ChatID = m.ChatID
	id, err := r.store.AddEvent(ctx, e)
	if err != nil {
		r.log.Warn("add_event store write failed", logx.Int64("chat_id", m.ChatID), logx.Err(err))
		r.reply(ctx, m, "Registration failed: "+err.Error())
		return
	}
	at := ""
	if e.At != nil {
		at = " " + e.At.String()
	}
	r.reply(ctx, m, fmt.Sprintf("[Event registered] id=%d / %s %s %s%s offsets=%s",
		id, e.Issuer, e.EventType, e.Date.Format(dateLayout), at, joinOffsets(e.Offsets)))
}

func (r *Router) cmdListEvents(ctx context.Context, m *transport.Message) {
	events, err := r.store.ListEvents(ctx)
	if err != nil {
		r.reply(ctx, m, "Listing failed: "+err.Error())
		return
	}
	var lines []string
	for _, e := range events {
		if e.ChatID != m.ChatID {
			continue
		}
		at := r.defaultAt.String()
		if e.At != nil {
			at = e.At.String()
		}
		lines = append(lines, fmt.Sprintf("%d) %s %s %s %s offsets[%s]",
			e.ID, e.Issuer, e.EventType, e.Date.Format(dateLayout), at, joinOffsets(e.Offsets)))
	}
	if len(lines) == 0 {
		r.reply(ctx, m, "No events registered.")
		return
	}
	r.reply(ctx, m, strings.Join(lines, "\n"))
}

func joinOffsets(offs []int) string {
	parts := make([]string, 0, len(offs))
	for _, o := range offs {
		parts = append(parts, fmt.Sprintf("%d", o))
	}
	return strings.Join(parts, ",")
}
