// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/watchlist/internal/dvr"
	"github.com/ManuGH/watchlist/internal/persistence/sqlite"
	"github.com/ManuGH/watchlist/internal/watchlist"
)

const timeLayout = time.RFC3339

var migrations = []sqlite.Migration{
	{Version: 1, SQL: `
	CREATE TABLE IF NOT EXISTS record (
		recordid INTEGER PRIMARY KEY,
		type INTEGER NOT NULL DEFAULT 0,
		title TEXT NOT NULL DEFAULT '',
		maxepisodes INTEGER NOT NULL DEFAULT 0,
		avg_delay INTEGER NOT NULL DEFAULT 100,
		next_record TEXT,
		last_record TEXT,
		last_delete TEXT
	);

	CREATE TABLE IF NOT EXISTS recorded (
		chanid INTEGER NOT NULL,
		starttime TEXT NOT NULL,
		endtime TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		recordid INTEGER NOT NULL DEFAULT 0,
		recgroup TEXT NOT NULL DEFAULT 'Default',
		watched INTEGER NOT NULL DEFAULT 0,
		autoexpire INTEGER NOT NULL DEFAULT 1,
		deletepending INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (chanid, starttime)
	);

	CREATE INDEX IF NOT EXISTS idx_recorded_recordid ON recorded(recordid);
	CREATE INDEX IF NOT EXISTS idx_recorded_starttime ON recorded(starttime);
	`},
}

// Store provides SQLite persistence for recordings and recording rules.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore opens the database at dbPath and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sqlite.Open(dbPath, sqlite.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := sqlite.Migrate(context.Background(), db, migrations); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// WithClock replaces the clock used to stamp deletions.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// UpsertRule inserts or replaces a recording rule.
func (s *Store) UpsertRule(ctx context.Context, r Rule) error {
	avgDelay := r.AvgDelay
	if avgDelay == 0 {
		avgDelay = 100
	}

	query := `
	INSERT INTO record (recordid, type, title, maxepisodes, avg_delay, next_record, last_record, last_delete)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(recordid) DO UPDATE SET
		type = excluded.type,
		title = excluded.title,
		maxepisodes = excluded.maxepisodes,
		avg_delay = excluded.avg_delay,
		next_record = excluded.next_record,
		last_record = excluded.last_record,
		last_delete = excluded.last_delete
	`
	_, err := s.db.ExecContext(ctx, query,
		r.ID,
		int(r.Type),
		r.Title,
		r.MaxEpisodes,
		avgDelay,
		formatNullTime(r.NextRecord),
		formatNullTime(r.LastRecord),
		formatNullTime(r.LastDelete),
	)
	return err
}

// GetRule retrieves a single rule by id.
func (s *Store) GetRule(ctx context.Context, id int) (*Rule, error) {
	query := `
	SELECT recordid, type, title, maxepisodes, avg_delay, next_record, last_record, last_delete
	FROM record
	WHERE recordid = ?
	`
	r, err := scanRule(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrRuleNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ListRules returns every rule ordered by id.
func (s *Store) ListRules(ctx context.Context) ([]Rule, error) {
	query := `
	SELECT recordid, type, title, maxepisodes, avg_delay, next_record, last_record, last_delete
	FROM record
	ORDER BY recordid
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var rules []Rule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *r)
	}
	return rules, rows.Err()
}

// ListRuleMeta loads the scheduling history of every rule in one query.
func (s *Store) ListRuleMeta(ctx context.Context) (map[int]watchlist.RuleMeta, error) {
	rules, err := s.ListRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}

	meta := make(map[int]watchlist.RuleMeta, len(rules))
	for _, r := range rules {
		meta[r.ID] = watchlist.NewRuleMeta(
			r.Type,
			r.MaxEpisodes,
			r.AvgDelay,
			derefTime(r.NextRecord),
			derefTime(r.LastRecord),
			derefTime(r.LastDelete),
		)
	}
	return meta, nil
}

// UpsertRecording inserts or updates a recording.
func (s *Store) UpsertRecording(ctx context.Context, rec Recording) error {
	group := rec.RecGroup
	if group == "" {
		group = RecGroupDefault
	}

	query := `
	INSERT INTO recorded (chanid, starttime, endtime, title, recordid, recgroup, watched, autoexpire, deletepending)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(chanid, starttime) DO UPDATE SET
		endtime = excluded.endtime,
		title = excluded.title,
		recordid = excluded.recordid,
		recgroup = excluded.recgroup,
		watched = excluded.watched,
		autoexpire = excluded.autoexpire,
		deletepending = excluded.deletepending
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.ChanID,
		formatTime(rec.StartTime),
		formatTime(rec.EndTime),
		rec.Title,
		rec.RuleID,
		group,
		rec.Watched,
		rec.AutoExpire,
		rec.DeletePending,
	)
	return err
}

// GetRecording retrieves a single recording by key.
func (s *Store) GetRecording(ctx context.Context, key watchlist.RecordingKey) (*Recording, error) {
	query := `
	SELECT chanid, starttime, endtime, title, recordid, recgroup, watched, autoexpire, deletepending
	FROM recorded
	WHERE chanid = ? AND starttime = ?
	`
	rec, err := scanRecording(s.db.QueryRowContext(ctx, query, key.ChanID, formatTime(key.StartTime)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRecordingNotFound, key)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListCandidates returns the recordings eligible for the watch list, most
// recent recording first. Deleted, pending-delete and live TV recordings are
// skipped; watched ones are kept so the ranker can account for them.
func (s *Store) ListCandidates(ctx context.Context) ([]watchlist.Candidate, error) {
	query := `
	SELECT chanid, starttime, endtime, title, recordid, recgroup, watched, autoexpire, deletepending
	FROM recorded
	WHERE deletepending = 0 AND recgroup NOT IN (?, ?)
	ORDER BY starttime DESC, chanid
	`
	rows, err := s.db.QueryContext(ctx, query, RecGroupDeleted, RecGroupLiveTV)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []watchlist.Candidate
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, watchlist.Candidate{
			Key:           watchlist.RecordingKey{ChanID: rec.ChanID, StartTime: rec.StartTime},
			RuleID:        rec.RuleID,
			Title:         rec.Title,
			RecGroup:      rec.RecGroup,
			ScheduledEnd:  rec.EndTime,
			Watched:       rec.Watched,
			AutoExpirable: rec.AutoExpire,
		})
	}
	return out, rows.Err()
}

// DeleteRecording moves a recording into the Deleted group. Unless force is
// set, the owning rule's last_delete is stamped and the hours between
// recording and deletion are folded into its average delay.
func (s *Store) DeleteRecording(ctx context.Context, key watchlist.RecordingKey, force bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var ruleID int
	err = tx.QueryRowContext(ctx,
		`SELECT recordid FROM recorded WHERE chanid = ? AND starttime = ?`,
		key.ChanID, formatTime(key.StartTime),
	).Scan(&ruleID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrRecordingNotFound, key)
	}
	if err != nil {
		return fmt.Errorf("lookup recording: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE recorded SET recgroup = ? WHERE chanid = ? AND starttime = ?`,
		RecGroupDeleted, key.ChanID, formatTime(key.StartTime),
	); err != nil {
		return fmt.Errorf("move to deleted: %w", err)
	}

	if !force && ruleID != 0 {
		now := s.now()
		delay := int(now.Sub(key.StartTime) / time.Hour)
		delay = min(max(delay, minDeleteDelayHours), maxDeleteDelayHours)

		if _, err := tx.ExecContext(ctx,
			`UPDATE record SET last_delete = ?, avg_delay = (avg_delay * 3 + ?) / 4 WHERE recordid = ?`,
			formatTime(now), delay, ruleID,
		); err != nil {
			return fmt.Errorf("update rule delete history: %w", err)
		}
	}

	return tx.Commit()
}

// UndeleteRecording restores a deleted recording to the Default group and
// clears the rule's last_delete so its blackout window ends.
func (s *Store) UndeleteRecording(ctx context.Context, key watchlist.RecordingKey) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var ruleID int
	err = tx.QueryRowContext(ctx,
		`SELECT recordid FROM recorded WHERE chanid = ? AND starttime = ? AND recgroup = ?`,
		key.ChanID, formatTime(key.StartTime), RecGroupDeleted,
	).Scan(&ruleID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrRecordingNotFound, key)
	}
	if err != nil {
		return fmt.Errorf("lookup recording: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE recorded SET recgroup = ? WHERE chanid = ? AND starttime = ?`,
		RecGroupDefault, key.ChanID, formatTime(key.StartTime),
	); err != nil {
		return fmt.Errorf("restore recording: %w", err)
	}

	if ruleID != 0 {
		if _, err := tx.ExecContext(ctx,
			`UPDATE record SET last_delete = NULL WHERE recordid = ?`, ruleID,
		); err != nil {
			return fmt.Errorf("clear rule delete history: %w", err)
		}
	}

	return tx.Commit()
}

// SetWatched sets the watched flag of a recording.
func (s *Store) SetWatched(ctx context.Context, key watchlist.RecordingKey, watched bool) error {
	return s.setFlag(ctx, "watched", key, watched)
}

// SetAutoExpire sets whether a recording may be expired automatically.
func (s *Store) SetAutoExpire(ctx context.Context, key watchlist.RecordingKey, on bool) error {
	return s.setFlag(ctx, "autoexpire", key, on)
}

// setFlag updates a boolean column; column is never user input.
func (s *Store) setFlag(ctx context.Context, column string, key watchlist.RecordingKey, value bool) error {
	// #nosec G201 -- column is one of a fixed set of identifiers
	query := fmt.Sprintf(`UPDATE recorded SET %s = ? WHERE chanid = ? AND starttime = ?`, column)
	res, err := s.db.ExecContext(ctx, query, value, key.ChanID, formatTime(key.StartTime))
	if err != nil {
		return fmt.Errorf("update %s: %w", column, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update %s: %w", column, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRecordingNotFound, key)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (*Rule, error) {
	var r Rule
	var typ int
	var next, last, del sql.NullString

	if err := row.Scan(&r.ID, &typ, &r.Title, &r.MaxEpisodes, &r.AvgDelay, &next, &last, &del); err != nil {
		return nil, err
	}
	r.Type = dvr.RecordingType(typ)

	var err error
	if r.NextRecord, err = parseNullTime("next_record", next); err != nil {
		return nil, fmt.Errorf("rule %d: %w", r.ID, err)
	}
	if r.LastRecord, err = parseNullTime("last_record", last); err != nil {
		return nil, fmt.Errorf("rule %d: %w", r.ID, err)
	}
	if r.LastDelete, err = parseNullTime("last_delete", del); err != nil {
		return nil, fmt.Errorf("rule %d: %w", r.ID, err)
	}
	return &r, nil
}

func scanRecording(row rowScanner) (*Recording, error) {
	var rec Recording
	var start, end string

	if err := row.Scan(
		&rec.ChanID,
		&start,
		&end,
		&rec.Title,
		&rec.RuleID,
		&rec.RecGroup,
		&rec.Watched,
		&rec.AutoExpire,
		&rec.DeletePending,
	); err != nil {
		return nil, err
	}

	var err error
	if rec.StartTime, err = time.Parse(timeLayout, start); err != nil {
		return nil, fmt.Errorf("recording on channel %d: parse starttime %q: %w", rec.ChanID, start, err)
	}
	if rec.EndTime, err = time.Parse(timeLayout, end); err != nil {
		return nil, fmt.Errorf("recording on channel %d: parse endtime %q: %w", rec.ChanID, end, err)
	}
	return &rec, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatNullTime(t *time.Time) sql.NullString {
	if t == nil || t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(column string, s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := time.Parse(timeLayout, s.String)
	if err != nil {
		return nil, fmt.Errorf("parse %s %q: %w", column, s.String, err)
	}
	return &t, nil
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
