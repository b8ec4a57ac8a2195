package reminder

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

const dateLayout = "2006-01-02"

// FormatLockupAlert renders the outbound message for one due lockup stage.
func FormatLockupAlert(d DueLockup) string {
	l := d.Lockup
	var b strings.Builder
	fmt.Fprintf(&b, "🔔 Lockup expiry %s\n", d.Stage)
	fmt.Fprintf(&b, "- Ticker: %s\n", l.Ticker)
	fmt.Fprintf(&b, "- Account: %s\n", l.Account)
	fmt.Fprintf(&b, "- Quantity: %s\n", humanize.Comma(l.Quantity))
	fmt.Fprintf(&b, "- Lockup start: %s\n", l.Start.Format(dateLayout))
	fmt.Fprintf(&b, "- Lockup end: %s\n", l.End.Format(dateLayout))
	fmt.Fprintf(&b, "- Notes: %s", orDash(l.Notes))
	return b.String()
}

// FormatEventAlert renders the outbound message for one due event offset.
func FormatEventAlert(d DueEvent) string {
	e := d.Event
	var b strings.Builder
	fmt.Fprintf(&b, "📅 Event reminder %s\n", d.Stage)
	fmt.Fprintf(&b, "- Issuer: %s\n", e.Issuer)
	fmt.Fprintf(&b, "- Type: %s\n", e.EventType)
	fmt.Fprintf(&b, "- When: %s %s\n", e.Date.Format(dateLayout), d.At)
	fmt.Fprintf(&b, "- Notes: %s", orDash(e.Notes))
	return b.String()
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
