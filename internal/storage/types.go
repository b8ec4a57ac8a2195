package storage

import (
	"context"
	"time"

	"lockbot/internal/reminder"
)

// Config configures storage.
//
// Driver values:
//   - "sqlite": SQLite database file
//   - "file": dependency-free JSON Lines backend (Path is a directory)
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Store is the persistence API used by the reminder core and the command
// layer. Records are immutable: there are no update or delete operations.
// Log appends enforce no uniqueness; dedup lives in the caller.
type Store interface {
	AddLockup(ctx context.Context, l reminder.Lockup) (int64, error)
	ListLockups(ctx context.Context) ([]reminder.Lockup, error)
	AddEvent(ctx context.Context, e reminder.Event) (int64, error)
	ListEvents(ctx context.Context) ([]reminder.Event, error)

	HasLockupLog(ctx context.Context, lockupID int64, stage reminder.Stage, day string) (bool, error)
	AppendLockupLog(ctx context.Context, lockupID int64, stage reminder.Stage, day string) error
	HasEventLog(ctx context.Context, eventID int64, stage reminder.Stage, minute string) (bool, error)
	AppendEventLog(ctx context.Context, eventID int64, stage reminder.Stage, minute string) error

	Close() error
}
