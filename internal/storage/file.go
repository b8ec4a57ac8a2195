package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"lockbot/internal/reminder"
	"lockbot/pkg/logx"
)

// fileStore is a dependency-free persistence backend.
//
// Files under the configured directory:
//   - lockups.jsonl      (append-only rows)
//   - events.jsonl       (append-only rows)
//   - lockup_logs.jsonl  (append-only dedup log)
//   - event_logs.jsonl   (append-only dedup log)
//
// Rows are replayed into memory at open; appends go to both the file and the
// in-memory state. Id assignment is max-seen + 1, replayed at open, so ids
// stay strictly increasing as long as the log files are intact.
type fileStore struct {
	log logx.Logger

	mu sync.Mutex

	dir string

	lockupFile    *os.File
	eventFile     *os.File
	lockupLogFile *os.File
	eventLogFile  *os.File

	lockups []lockupRow
	events  []eventRow

	lockupLogs map[string]struct{}
	eventLogs  map[string]struct{}

	nextLockupID int64
	nextEventID  int64
}

type logRow struct {
	ID     int64  `json:"id"`
	Stage  string `json:"stage"`
	Bucket string `json:"bucket"`
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	dir := strings.TrimSpace(cfg.Path)
	if dir == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	s := &fileStore{
		log:          log,
		dir:          dir,
		lockupLogs:   map[string]struct{}{},
		eventLogs:    map[string]struct{}{},
		nextLockupID: 1,
		nextEventID:  1,
	}

	if err := s.replay(); err != nil {
		return nil, err
	}

	var err error
	if s.lockupFile, err = appendFile(filepath.Join(dir, "lockups.jsonl")); err != nil {
		return nil, err
	}
	if s.eventFile, err = appendFile(filepath.Join(dir, "events.jsonl")); err != nil {
		s.closeFiles()
		return nil, err
	}
	if s.lockupLogFile, err = appendFile(filepath.Join(dir, "lockup_logs.jsonl")); err != nil {
		s.closeFiles()
		return nil, err
	}
	if s.eventLogFile, err = appendFile(filepath.Join(dir, "event_logs.jsonl")); err != nil {
		s.closeFiles()
		return nil, err
	}
	return s, nil
}

func appendFile(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
}

func (s *fileStore) replay() error {
	if err := readLines(filepath.Join(s.dir, "lockups.jsonl"), func(line []byte) {
		var r lockupRow
		if json.Unmarshal(line, &r) != nil {
			return
		}
		s.lockups = append(s.lockups, r)
		if id, err := strconv.ParseInt(r.ID, 10, 64); err == nil && id >= s.nextLockupID {
			s.nextLockupID = id + 1
		}
	}); err != nil {
		return err
	}
	if err := readLines(filepath.Join(s.dir, "events.jsonl"), func(line []byte) {
		var r eventRow
		if json.Unmarshal(line, &r) != nil {
			return
		}
		s.events = append(s.events, r)
		if id, err := strconv.ParseInt(r.ID, 10, 64); err == nil && id >= s.nextEventID {
			s.nextEventID = id + 1
		}
	}); err != nil {
		return err
	}
	if err := readLines(filepath.Join(s.dir, "lockup_logs.jsonl"), func(line []byte) {
		var r logRow
		if json.Unmarshal(line, &r) == nil {
			s.lockupLogs[logKey(r.ID, r.Stage, r.Bucket)] = struct{}{}
		}
	}); err != nil {
		return err
	}
	return readLines(filepath.Join(s.dir, "event_logs.jsonl"), func(line []byte) {
		var r logRow
		if json.Unmarshal(line, &r) == nil {
			s.eventLogs[logKey(r.ID, r.Stage, r.Bucket)] = struct{}{}
		}
	})
}

func readLines(path string, fn func(line []byte)) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fn([]byte(line))
	}
	return sc.Err()
}

func logKey(id int64, stage, bucket string) string {
	return fmt.Sprintf("%d|%s|%s", id, stage, bucket)
}

func (s *fileStore) closeFiles() {
	for _, f := range []*os.File{s.lockupFile, s.eventFile, s.lockupLogFile, s.eventLogFile} {
		if f != nil {
			_ = f.Close()
		}
	}
	s.lockupFile, s.eventFile, s.lockupLogFile, s.eventLogFile = nil, nil, nil, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeFiles()
	return nil
}

func (s *fileStore) AddLockup(ctx context.Context, l reminder.Lockup) (int64, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lockupFile == nil {
		return 0, errors.New("store closed")
	}
	id := s.nextLockupID
	r := lockupToRow(id, l)
	if err := json.NewEncoder(s.lockupFile).Encode(r); err != nil {
		return 0, err
	}
	s.nextLockupID = id + 1
	s.lockups = append(s.lockups, r)
	return id, nil
}

// ListLockups parses stored rows best-effort: malformed rows are skipped so
// one bad row cannot take down every scheduled pass.
func (s *fileStore) ListLockups(ctx context.Context) ([]reminder.Lockup, error) {
	_ = ctx
	s.mu.Lock()
	rows := make([]lockupRow, len(s.lockups))
	copy(rows, s.lockups)
	s.mu.Unlock()

	var out []reminder.Lockup
	for _, r := range rows {
		l, err := r.parse()
		if err != nil {
			s.log.Debug("skipping malformed lockup row", logx.String("id", r.ID), logx.Err(err))
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (s *fileStore) AddEvent(ctx context.Context, e reminder.Event) (int64, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.eventFile == nil {
		return 0, errors.New("store closed")
	}
	id := s.nextEventID
	r := eventToRow(id, e)
	if err := json.NewEncoder(s.eventFile).Encode(r); err != nil {
		return 0, err
	}
	s.nextEventID = id + 1
	s.events = append(s.events, r)
	return id, nil
}

func (s *fileStore) ListEvents(ctx context.Context) ([]reminder.Event, error) {
	_ = ctx
	s.mu.Lock()
	rows := make([]eventRow, len(s.events))
	copy(rows, s.events)
	s.mu.Unlock()

	var out []reminder.Event
	for _, r := range rows {
		e, err := r.parse()
		if err != nil {
			s.log.Debug("skipping malformed event row", logx.String("id", r.ID), logx.Err(err))
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *fileStore) HasLockupLog(ctx context.Context, lockupID int64, stage reminder.Stage, day string) (bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.lockupLogs[logKey(lockupID, string(stage), day)]
	return ok, nil
}

func (s *fileStore) AppendLockupLog(ctx context.Context, lockupID int64, stage reminder.Stage, day string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lockupLogFile == nil {
		return errors.New("store closed")
	}
	r := logRow{ID: lockupID, Stage: string(stage), Bucket: day}
	if err := json.NewEncoder(s.lockupLogFile).Encode(r); err != nil {
		return err
	}
	s.lockupLogs[logKey(lockupID, string(stage), day)] = struct{}{}
	return nil
}

func (s *fileStore) HasEventLog(ctx context.Context, eventID int64, stage reminder.Stage, minute string) (bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.eventLogs[logKey(eventID, string(stage), minute)]
	return ok, nil
}

func (s *fileStore) AppendEventLog(ctx context.Context, eventID int64, stage reminder.Stage, minute string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.eventLogFile == nil {
		return errors.New("store closed")
	}
	r := logRow{ID: eventID, Stage: string(stage), Bucket: minute}
	if err := json.NewEncoder(s.eventLogFile).Encode(r); err != nil {
		return err
	}
	s.eventLogs[logKey(eventID, string(stage), minute)] = struct{}{}
	return nil
}
