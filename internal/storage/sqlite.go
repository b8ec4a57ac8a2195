package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"lockbot/internal/reminder"
	"lockbot/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &sqliteStore{db: db, log: log}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// AddLockup appends a record and returns the assigned id. AUTOINCREMENT keeps
// ids strictly increasing and never reused, even after a crash.
func (s *sqliteStore) AddLockup(ctx context.Context, l reminder.Lockup) (int64, error) {
	r := lockupToRow(0, l)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO lockups(ticker, account, quantity, lockup_start, lockup_end, notes, chat_id)
		 VALUES(?,?,?,?,?,?,?)`,
		r.Ticker, r.Account, r.Quantity, r.Start, r.End, r.Notes, r.ChatID,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *sqliteStore) ListLockups(ctx context.Context) ([]reminder.Lockup, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ticker, account, quantity, lockup_start, lockup_end, notes, chat_id
		 FROM lockups ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []reminder.Lockup
	for rows.Next() {
		var r lockupRow
		if err := rows.Scan(&r.ID, &r.Ticker, &r.Account, &r.Quantity, &r.Start, &r.End, &r.Notes, &r.ChatID); err != nil {
			return nil, err
		}
		l, err := r.parse()
		if err != nil {
			s.log.Debug("skipping malformed lockup row", logx.String("id", r.ID), logx.Err(err))
			continue
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *sqliteStore) AddEvent(ctx context.Context, e reminder.Event) (int64, error) {
	r := eventToRow(0, e)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO events(issuer, event_type, event_date, event_time, notes, chat_id, alert_offsets)
		 VALUES(?,?,?,?,?,?,?)`,
		r.Issuer, r.EventType, r.Date, r.Time, r.Notes, r.ChatID, r.Offsets,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *sqliteStore) ListEvents(ctx context.Context) ([]reminder.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, issuer, event_type, event_date, event_time, notes, chat_id, alert_offsets
		 FROM events ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []reminder.Event
	for rows.Next() {
		var r eventRow
		if err := rows.Scan(&r.ID, &r.Issuer, &r.EventType, &r.Date, &r.Time, &r.Notes, &r.ChatID, &r.Offsets); err != nil {
			return nil, err
		}
		e, err := r.parse()
		if err != nil {
			s.log.Debug("skipping malformed event row", logx.String("id", r.ID), logx.Err(err))
			continue
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *sqliteStore) HasLockupLog(ctx context.Context, lockupID int64, stage reminder.Stage, day string) (bool, error) {
	return s.hasLog(ctx,
		`SELECT 1 FROM lockup_logs WHERE lockup_id = ? AND stage = ? AND day = ? LIMIT 1`,
		lockupID, string(stage), day)
}

func (s *sqliteStore) AppendLockupLog(ctx context.Context, lockupID int64, stage reminder.Stage, day string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO lockup_logs(lockup_id, stage, day) VALUES(?,?,?)`,
		lockupID, string(stage), day)
	return err
}

func (s *sqliteStore) HasEventLog(ctx context.Context, eventID int64, stage reminder.Stage, minute string) (bool, error) {
	return s.hasLog(ctx,
		`SELECT 1 FROM event_logs WHERE event_id = ? AND stage = ? AND minute = ? LIMIT 1`,
		eventID, string(stage), minute)
}

func (s *sqliteStore) AppendEventLog(ctx context.Context, eventID int64, stage reminder.Stage, minute string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO event_logs(event_id, stage, minute) VALUES(?,?,?)`,
		eventID, string(stage), minute)
	return err
}

func (s *sqliteStore) hasLog(ctx context.Context, query string, args ...any) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
