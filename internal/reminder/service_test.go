package reminder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"lockbot/internal/transport"
	"lockbot/pkg/logx"
)

type fakeStore struct {
	lockups []Lockup
	events  []Event
	listErr error

	mu            sync.Mutex
	lockupLogs    map[string]bool
	eventLogs     map[string]bool
	lockupAppends int
	eventAppends  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		lockupLogs: make(map[string]bool),
		eventLogs:  make(map[string]bool),
	}
}

func logKey(id int64, stage Stage, bucket string) string {
	return fmt.Sprintf("%d|%s|%s", id, stage, bucket)
}

func (f *fakeStore) ListLockups(context.Context) ([]Lockup, error) {
	return f.lockups, f.listErr
}

func (f *fakeStore) ListEvents(context.Context) ([]Event, error) {
	return f.events, f.listErr
}

func (f *fakeStore) HasLockupLog(_ context.Context, id int64, stage Stage, day string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lockupLogs[logKey(id, stage, day)], nil
}

func (f *fakeStore) AppendLockupLog(_ context.Context, id int64, stage Stage, day string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lockupLogs[logKey(id, stage, day)] = true
	f.lockupAppends++
	return nil
}

func (f *fakeStore) HasEventLog(_ context.Context, id int64, stage Stage, minute string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.eventLogs[logKey(id, stage, minute)], nil
}

func (f *fakeStore) AppendEventLog(_ context.Context, id int64, stage Stage, minute string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.eventLogs[logKey(id, stage, minute)] = true
	f.eventAppends++
	return nil
}

type sentMsg struct {
	ChatID int64
	Text   string
}

type fakeSender struct {
	mu       sync.Mutex
	sent     []sentMsg
	attempts int
	fail     bool
}

func (f *fakeSender) SendText(_ context.Context, to transport.ChatTarget, text string, _ *transport.SendOptions) (transport.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.fail {
		return transport.MessageRef{}, errors.New("telegram: 429")
	}
	f.sent = append(f.sent, sentMsg{ChatID: to.ChatID, Text: text})
	return transport.MessageRef{ChatID: to.ChatID, MessageID: f.attempts}, nil
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func newTestService(store *fakeStore, sender *fakeSender) *Service {
	cfg := Config{
		Timezone:  "UTC",
		DailyAt:   TimeOfDay{Hour: 9},
		DefaultAt: TimeOfDay{Hour: 9},
	}
	return New(cfg, store, sender, fixedClock{t: at(2025, 10, 20, 9, 0)}, logx.Nop())
}

func TestLockupPassSendsAndLogs(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	store.lockups = []Lockup{{
		ID: 1, Ticker: "ACME", Account: "fund-a", Quantity: 1_000_000,
		End: day(2025, 11, 19), ChatID: 42,
	}}
	sender := &fakeSender{}
	svc := newTestService(store, sender)

	now := at(2025, 10, 20, 9, 0)
	if err := svc.RunLockupPass(context.Background(), now); err != nil {
		t.Fatalf("RunLockupPass: %v", err)
	}

	if len(sender.sent) != 1 {
		t.Fatalf("sent = %d, want 1", len(sender.sent))
	}
	if sender.sent[0].ChatID != 42 {
		t.Fatalf("ChatID = %d, want 42", sender.sent[0].ChatID)
	}
	if !strings.Contains(sender.sent[0].Text, "D-30") || !strings.Contains(sender.sent[0].Text, "ACME") {
		t.Fatalf("unexpected alert text: %q", sender.sent[0].Text)
	}
	if !store.lockupLogs[logKey(1, "D-30", "20251020")] {
		t.Fatal("dedup log entry missing")
	}
}

func TestLockupPassIdempotentWithinDay(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	store.lockups = []Lockup{{ID: 1, Ticker: "ACME", End: day(2025, 11, 19), ChatID: 1}}
	sender := &fakeSender{}
	svc := newTestService(store, sender)

	now := at(2025, 10, 20, 9, 0)
	for i := 0; i < 3; i++ {
		if err := svc.RunLockupPass(context.Background(), now); err != nil {
			t.Fatalf("pass %d: %v", i, err)
		}
	}

	if len(sender.sent) != 1 {
		t.Fatalf("sent = %d, want 1", len(sender.sent))
	}
	if store.lockupAppends != 1 {
		t.Fatalf("appends = %d, want 1", store.lockupAppends)
	}
}

func TestLockupPassNewDayNewBucket(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	store.lockups = []Lockup{{ID: 1, Ticker: "ACME", End: day(2025, 11, 19), ChatID: 1}}
	// A D-1 entry from the day before must not suppress the D-0 alert.
	store.lockupLogs[logKey(1, "D-1", "20251118")] = true
	sender := &fakeSender{}
	svc := newTestService(store, sender)

	if err := svc.RunLockupPass(context.Background(), at(2025, 11, 19, 9, 0)); err != nil {
		t.Fatalf("RunLockupPass: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent = %d, want 1", len(sender.sent))
	}
	if !store.lockupLogs[logKey(1, "D-0", "20251119")] {
		t.Fatal("D-0 log entry missing")
	}
}

func TestEventPassIdempotentWithinMinute(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	nine := TimeOfDay{Hour: 9}
	store.events = []Event{{
		ID: 7, Issuer: "ACME", EventType: "earnings",
		Date: day(2025, 11, 19), At: &nine, ChatID: 9, Offsets: []int{-1, 0},
	}}
	sender := &fakeSender{}
	svc := newTestService(store, sender)

	now := at(2025, 11, 18, 9, 0)
	for i := 0; i < 2; i++ {
		if err := svc.RunEventPass(context.Background(), now); err != nil {
			t.Fatalf("pass %d: %v", i, err)
		}
	}

	if len(sender.sent) != 1 {
		t.Fatalf("sent = %d, want 1", len(sender.sent))
	}
	if !strings.Contains(sender.sent[0].Text, "D-1") {
		t.Fatalf("unexpected alert text: %q", sender.sent[0].Text)
	}
	if !store.eventLogs[logKey(7, "D-1", "202511180900")] {
		t.Fatal("dedup log entry missing")
	}
}

func TestFailedSendIsNotRetried(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	store.lockups = []Lockup{{ID: 1, Ticker: "ACME", End: day(2025, 11, 19), ChatID: 1}}
	sender := &fakeSender{fail: true}
	svc := newTestService(store, sender)

	now := at(2025, 11, 19, 9, 0)
	if err := svc.RunLockupPass(context.Background(), now); err != nil {
		t.Fatalf("RunLockupPass: %v", err)
	}
	if sender.attempts != 1 || len(sender.sent) != 0 {
		t.Fatalf("attempts = %d sent = %d", sender.attempts, len(sender.sent))
	}
	// The log was written before the send, so the alert stays consumed.
	if !store.lockupLogs[logKey(1, "D-0", "20251119")] {
		t.Fatal("dedup log entry missing after failed send")
	}

	sender.fail = false
	if err := svc.RunLockupPass(context.Background(), now); err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if sender.attempts != 1 {
		t.Fatalf("attempts = %d, want 1 (no retry)", sender.attempts)
	}
}

func TestPassPropagatesListError(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	store.listErr = errors.New("db locked")
	svc := newTestService(store, &fakeSender{})

	if err := svc.RunLockupPass(context.Background(), at(2025, 11, 19, 9, 0)); err == nil {
		t.Fatal("expected error from lockup pass")
	}
	if err := svc.RunEventPass(context.Background(), at(2025, 11, 19, 9, 0)); err == nil {
		t.Fatal("expected error from event pass")
	}
}

func TestStartStop(t *testing.T) {
	t.Parallel()
	svc := newTestService(newFakeStore(), &fakeSender{})
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	// Second Start is a no-op.
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	svc.Stop(ctx)
	svc.Stop(ctx)
}
