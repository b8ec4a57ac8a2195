package bot

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"lockbot/internal/reminder"
	"lockbot/internal/transport"
	"lockbot/pkg/logx"
)

type memStore struct {
	mu      sync.Mutex
	nextID  int64
	lockups []reminder.Lockup
	events  []reminder.Event
}

func (s *memStore) AddLockup(_ context.Context, l reminder.Lockup) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	l.ID = s.nextID
	s.lockups = append(s.lockups, l)
	return l.ID, nil
}

func (s *memStore) ListLockups(context.Context) ([]reminder.Lockup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]reminder.Lockup(nil), s.lockups...), nil
}

func (s *memStore) AddEvent(_ context.Context, e reminder.Event) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	e.ID = s.nextID
	s.events = append(s.events, e)
	return e.ID, nil
}

func (s *memStore) ListEvents(context.Context) ([]reminder.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]reminder.Event(nil), s.events...), nil
}

type recordSender struct {
	mu   sync.Mutex
	sent []string
}

func (r *recordSender) SendText(_ context.Context, _ transport.ChatTarget, text string, _ *transport.SendOptions) (transport.MessageRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, text)
	return transport.MessageRef{}, nil
}

func (r *recordSender) last(t *testing.T) string {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sent) == 0 {
		t.Fatal("no reply sent")
	}
	return r.sent[len(r.sent)-1]
}

type stoppedClock struct{ t time.Time }

func (c stoppedClock) Now() time.Time { return c.t }

func newTestRouter(cfg Config, store Store, sender transport.Sender) *Router {
	clock := stoppedClock{t: time.Date(2025, 10, 20, 9, 0, 0, 0, time.UTC)}
	return NewRouter(cfg, store, sender, clock, logx.Nop())
}

func msg(chatID int64, text string) *transport.Message {
	return &transport.Message{ID: 1, ChatID: chatID, Text: text}
}

func TestRouterAddAndListLockup(t *testing.T) {
	t.Parallel()
	store := &memStore{}
	sender := &recordSender{}
	r := newTestRouter(Config{DefaultEventTime: reminder.TimeOfDay{Hour: 9}}, store, sender)
	ctx := context.Background()

	r.handle(ctx, msg(42, "/add_lockup ACME,fund-a,1000000,2025-05-19,2025-11-19"))
	reply := sender.last(t)
	if !strings.Contains(reply, "[Lockup registered] id=1") || !strings.Contains(reply, "2025-11-19") {
		t.Fatalf("unexpected reply: %q", reply)
	}

	r.handle(ctx, msg(42, "/list_lockup"))
	reply = sender.last(t)
	if !strings.Contains(reply, "ACME/fund-a") || !strings.Contains(reply, "(D+30)") {
		t.Fatalf("unexpected listing: %q", reply)
	}
	if !strings.Contains(reply, "1,000,000") {
		t.Fatalf("quantity not grouped: %q", reply)
	}
}

func TestRouterListFiltersByChat(t *testing.T) {
	t.Parallel()
	store := &memStore{}
	sender := &recordSender{}
	r := newTestRouter(Config{}, store, sender)
	ctx := context.Background()

	r.handle(ctx, msg(1, "/add_lockup ACME,a,10,2025-05-19,2025-11-19"))
	r.handle(ctx, msg(2, "/list_lockup"))
	if got := sender.last(t); got != "No lockups registered." {
		t.Fatalf("chat 2 sees chat 1 records: %q", got)
	}
}

func TestRouterAddAndListEvent(t *testing.T) {
	t.Parallel()
	store := &memStore{}
	sender := &recordSender{}
	r := newTestRouter(Config{DefaultEventTime: reminder.TimeOfDay{Hour: 9}}, store, sender)
	ctx := context.Background()

	r.handle(ctx, msg(7, "/add_event ACME,demand-open,2025-11-19,09:30,-1,0"))
	reply := sender.last(t)
	if !strings.Contains(reply, "[Event registered] id=1") || !strings.Contains(reply, "offsets=-1,0") {
		t.Fatalf("unexpected reply: %q", reply)
	}

	// An event without its own time lists the default time.
	r.handle(ctx, msg(7, "/add_event ACME,listing,2025-12-01"))
	r.handle(ctx, msg(7, "/list_event"))
	reply = sender.last(t)
	if !strings.Contains(reply, "09:30") || !strings.Contains(reply, "09:00") {
		t.Fatalf("unexpected listing: %q", reply)
	}
}

func TestRouterFormatErrorReply(t *testing.T) {
	t.Parallel()
	sender := &recordSender{}
	r := newTestRouter(Config{}, &memStore{}, sender)

	r.handle(context.Background(), msg(1, "/add_lockup ACME,oops"))
	if got := sender.last(t); !strings.HasPrefix(got, "Format error:") {
		t.Fatalf("unexpected reply: %q", got)
	}
}

func TestRouterAllowlist(t *testing.T) {
	t.Parallel()
	sender := &recordSender{}
	r := newTestRouter(Config{AllowedChatIDs: []int64{10}}, &memStore{}, sender)
	ctx := context.Background()

	r.handle(ctx, msg(99, "/help"))
	if len(sender.sent) != 0 {
		t.Fatalf("non-allowlisted chat got a reply: %q", sender.sent)
	}

	// /myid bypasses the allowlist so new chats can discover their id.
	r.handle(ctx, msg(99, "/myid"))
	if got := sender.last(t); !strings.Contains(got, "chat_id = 99") {
		t.Fatalf("unexpected reply: %q", got)
	}

	r.handle(ctx, msg(10, "/help"))
	if got := sender.last(t); !strings.Contains(got, "/add_lockup") {
		t.Fatalf("unexpected reply: %q", got)
	}
}

func TestRouterIgnoresNonCommands(t *testing.T) {
	t.Parallel()
	sender := &recordSender{}
	r := newTestRouter(Config{}, &memStore{}, sender)

	r.handle(context.Background(), msg(1, "hello there"))
	r.handle(context.Background(), msg(1, "/unknown_cmd"))
	if len(sender.sent) != 0 {
		t.Fatalf("unexpected replies: %q", sender.sent)
	}
}
