package bot

import (
	"context"
	"strings"

	"lockbot/internal/reminder"
	"lockbot/internal/transport"
	"lockbot/pkg/logx"
)

// Store is the registration/listing subset of persistence the command layer
// needs. Satisfied by storage.Store.
type Store interface {
	AddLockup(ctx context.Context, l reminder.Lockup) (int64, error)
	ListLockups(ctx context.Context) ([]reminder.Lockup, error)
	AddEvent(ctx context.Context, e reminder.Event) (int64, error)
	ListEvents(ctx context.Context) ([]reminder.Event, error)
}

type Config struct {
	// AllowedChatIDs restricts who may use the bot. Empty means everyone.
	AllowedChatIDs []int64
	// DefaultEventTime is shown for events without an explicit time.
	DefaultEventTime reminder.TimeOfDay
}

// Router dispatches incoming chat commands. It runs as a single-threaded
// loop over the adapter's update channel, handling one command at a time;
// the scheduler runs independently of it.
type Router struct {
	store     Store
	sender    transport.Sender
	clock     reminder.Clock
	log       logx.Logger
	allowed   map[int64]struct{}
	defaultAt reminder.TimeOfDay
}

func NewRouter(cfg Config, store Store, sender transport.Sender, clock reminder.Clock, log logx.Logger) *Router {
	if log.IsZero() {
		log = logx.Nop()
	}
	var allowed map[int64]struct{}
	if len(cfg.AllowedChatIDs) > 0 {
		allowed = make(map[int64]struct{}, len(cfg.AllowedChatIDs))
		for _, id := range cfg.AllowedChatIDs {
			allowed[id] = struct{}{}
		}
	}
	return &Router{store: store, sender: sender, clock: clock, log: log, allowed: allowed, defaultAt: cfg.DefaultEventTime}
}

func (r *Router) Run(ctx context.Context, updates <-chan transport.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case up, ok := <-updates:
			if !ok {
				return
			}
			if up.Kind != transport.UpdateMessage || up.Message == nil {
				continue
			}
			r.handle(ctx, up.Message)
		}
	}
}

func (r *Router) isAllowed(chatID int64) bool {
	if r.allowed == nil {
		return true
	}
	_, ok := r.allowed[chatID]
	return ok
}

func (r *Router) handle(ctx context.Context, m *transport.Message) {
	text := strings.TrimSpace(m.Text)
	if !strings.HasPrefix(text, "/") {
		return
	}
	cmd, args := splitCommand(text)

	// /myid works regardless of the allowlist so operators can discover ids.
	if cmd == "/myid" {
		r.cmdMyID(ctx, m)
		return
	}
	if !r.isAllowed(m.ChatID) {
		r.log.Debug("command from non-allowlisted chat ignored",
			logx.Int64("chat_id", m.ChatID), logx.String("cmd", cmd))
		return
	}

	switch cmd {
	case "/start":
		r.cmdStart(ctx, m)
	case "/help":
		r.cmdHelp(ctx, m)
	case "/add_lockup":
		r.cmdAddLockup(ctx, m, args)
	case "/list_lockup":
		r.cmdListLockups(ctx, m)
	case "/add_event":
		r.cmdAddEvent(ctx, m, args)
	case "/list_event":
		r.cmdListEvents(ctx, m)
	}
}

// splitCommand separates "/cmd@botname rest of line" into "/cmd" and the
// trimmed argument string.
func splitCommand(text string) (cmd, args string) {
	cmd = text
	if i := strings.IndexAny(text, " \t\n"); i >= 0 {
		cmd, args = text[:i], strings.TrimSpace(text[i+1:])
	}
	if i := strings.IndexByte(cmd, '@'); i >= 0 {
		cmd = cmd[:i]
	}
	return strings.ToLower(cmd), args
}

func (r *Router) reply(ctx context.Context, m *transport.Message, text string) {
	to := transport.ChatTarget{ChatID: m.ChatID}
	if _, err := r.sender.SendText(ctx, to, text, &transport.SendOptions{DisablePreview: true}); err != nil {
		r.log.Warn("reply failed", logx.Int64("chat_id", m.ChatID), logx.Err(err))
	}
}
