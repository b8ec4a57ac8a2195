package reminder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"lockbot/internal/transport"
	"lockbot/pkg/logx"
)

// Store is the persistence surface the reminder core consumes. Log appends
// are unconditional; existence of a (id, stage, bucket) entry is the sole
// dedup signal. Check-then-append is not atomic, so a single scheduler
// process is assumed; concurrent schedulers could double-send.
type Store interface {
	ListLockups(ctx context.Context) ([]Lockup, error)
	ListEvents(ctx context.Context) ([]Event, error)

	HasLockupLog(ctx context.Context, lockupID int64, stage Stage, day string) (bool, error)
	AppendLockupLog(ctx context.Context, lockupID int64, stage Stage, day string) error
	HasEventLog(ctx context.Context, eventID int64, stage Stage, minute string) (bool, error)
	AppendEventLog(ctx context.Context, eventID int64, stage Stage, minute string) error
}

// Clock supplies the current instant in the reference zone.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in a fixed location.
type SystemClock struct {
	Loc *time.Location
}

func (c SystemClock) Now() time.Time { return time.Now().In(c.Loc) }

type Config struct {
	Timezone  string    // IANA TZ, e.g. "Asia/Seoul"
	DailyAt   TimeOfDay // lockup pass time
	DefaultAt TimeOfDay // event alert time when no explicit time applies
}

// Service drives the two evaluation passes on a cron trigger: the lockup
// pass once daily and the event pass every minute. All collaborators are
// injected at construction; the service holds no process-wide state.
type Service struct {
	cfg    Config
	store  Store
	sender transport.Sender
	clock  Clock
	log    logx.Logger

	mu     sync.Mutex
	c      *cron.Cron
	runCtx context.Context
	cancel context.CancelFunc
}

func New(cfg Config, store Store, sender transport.Sender, clock Clock, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{cfg: cfg, store: store, sender: sender, clock: clock, log: log}
}

func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return nil
	}

	loc := time.Local
	if tz := s.cfg.Timezone; tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return fmt.Errorf("reminder: invalid timezone %q: %w", tz, err)
		}
		loc = l
	}

	s.runCtx, s.cancel = context.WithCancel(ctx)
	runCtx := s.runCtx

	c := cron.New(cron.WithLocation(loc))
	dailySpec := fmt.Sprintf("%d %d * * *", s.cfg.DailyAt.Minute, s.cfg.DailyAt.Hour)
	if _, err := c.AddFunc(dailySpec, func() {
		if err := s.RunLockupPass(runCtx, s.clock.Now()); err != nil {
			s.log.Warn("lockup pass failed", logx.Err(err))
		}
	}); err != nil {
		return err
	}
	if _, err := c.AddFunc("* * * * *", func() {
		if err := s.RunEventPass(runCtx, s.clock.Now()); err != nil {
			s.log.Warn("event pass failed", logx.Err(err))
		}
	}); err != nil {
		return err
	}

	s.c = c
	c.Start()
	s.log.Info("reminder scheduler started",
		logx.String("tz", loc.String()),
		logx.String("daily_at", s.cfg.DailyAt.String()),
		logx.String("default_event_time", s.cfg.DefaultAt.String()))
	return nil
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	cancel := s.cancel
	s.c = nil
	s.cancel = nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	if cancel != nil {
		cancel()
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
	s.log.Info("reminder scheduler stopped")
}

// RunLockupPass evaluates every lockup against the given instant and fires
// the due stages through the dedup gate. The log entry is written before the
// send: a crash between log-write and send loses the alert, which is the
// accepted failure direction for at-most-once delivery.
func (s *Service) RunLockupPass(ctx context.Context, now time.Time) error {
	lockups, err := s.store.ListLockups(ctx)
	if err != nil {
		return fmt.Errorf("list lockups: %w", err)
	}

	bucket := DayBucket(now)
	for _, d := range DueLockups(lockups, now) {
		sent, err := s.store.HasLockupLog(ctx, d.Lockup.ID, d.Stage, bucket)
		if err != nil {
			s.log.Warn("lockup dedup check failed", logx.Int64("id", d.Lockup.ID), logx.Err(err))
			continue
		}
		if sent {
			continue
		}
		if err := s.store.AppendLockupLog(ctx, d.Lockup.ID, d.Stage, bucket); err != nil {
			s.log.Warn("lockup log append failed", logx.Int64("id", d.Lockup.ID), logx.Err(err))
			continue
		}
		s.dispatch(ctx, d.Lockup.ChatID, FormatLockupAlert(d),
			logx.Int64("lockup_id", d.Lockup.ID), logx.String("stage", string(d.Stage)))
	}
	return nil
}

// RunEventPass evaluates every event offset against the given instant and
// fires the due ones through the dedup gate, keyed at minute resolution.
func (s *Service) RunEventPass(ctx context.Context, now time.Time) error {
	events, err := s.store.ListEvents(ctx)
	if err != nil {
		return fmt.Errorf("list events: %w", err)
	}

	bucket := MinuteBucket(now)
	for _, d := range DueEvents(events, now, s.cfg.DefaultAt) {
		sent, err := s.store.HasEventLog(ctx, d.Event.ID, d.Stage, bucket)
		if err != nil {
			s.log.Warn("event dedup check failed", logx.Int64("id", d.Event.ID), logx.Err(err))
			continue
		}
		if sent {
			continue
		}
		if err := s.store.AppendEventLog(ctx, d.Event.ID, d.Stage, bucket); err != nil {
			s.log.Warn("event log append failed", logx.Int64("id", d.Event.ID), logx.Err(err))
			continue
		}
		s.dispatch(ctx, d.Event.ChatID, FormatEventAlert(d),
			logx.Int64("event_id", d.Event.ID), logx.String("stage", string(d.Stage)))
	}
	return nil
}

// dispatch sends one alert. Failed sends are not retried and the dedup log
// entry stands, so a failed alert is permanently lost (reference behavior).
func (s *Service) dispatch(ctx context.Context, chatID int64, text string, fields ...logx.Field) {
	to := transport.ChatTarget{ChatID: chatID}
	if _, err := s.sender.SendText(ctx, to, text, &transport.SendOptions{DisablePreview: true}); err != nil {
		s.log.Warn("alert send failed", append(fields, logx.Int64("chat_id", chatID), logx.Err(err))...)
		return
	}
	s.log.Debug("alert sent", append(fields, logx.Int64("chat_id", chatID))...)
}
