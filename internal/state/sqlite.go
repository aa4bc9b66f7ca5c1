package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			script_title TEXT NOT NULL DEFAULT '',
			seed INTEGER NOT NULL DEFAULT 0,
			start_ts TEXT NOT NULL,
			end_ts TEXT NOT NULL DEFAULT '',
			reached TEXT NOT NULL DEFAULT 'preloader',
			completed INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS stage_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			from_stage TEXT NOT NULL,
			to_stage TEXT NOT NULL,
			ts TEXT NOT NULL,
			FOREIGN KEY(session_id) REFERENCES sessions(id)
		);`,
		`CREATE TABLE IF NOT EXISTS attempts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			stage TEXT NOT NULL,
			kind TEXT NOT NULL,
			slot TEXT NOT NULL DEFAULT '',
			passed INTEGER NOT NULL DEFAULT 0,
			ts TEXT NOT NULL,
			FOREIGN KEY(session_id) REFERENCES sessions(id)
		);`,
		`CREATE TABLE IF NOT EXISTS outcome_scores (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			score REAL NOT NULL,
			tier TEXT NOT NULL,
			ts TEXT NOT NULL,
			FOREIGN KEY(session_id) REFERENCES sessions(id)
		);`,
		`CREATE INDEX IF NOT EXISTS attempts_session ON attempts(session_id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) StartSession(ctx context.Context, session Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions(id, script_title, seed, start_ts) VALUES(?,?,?,?)`,
		session.ID,
		strings.TrimSpace(session.ScriptTitle),
		int64(session.Seed),
		session.StartTS.UTC().Format(timeLayout),
	)
	return err
}

func (s *SQLiteStore) RecordStage(ctx context.Context, ev StageEvent) error {
	ts := ev.TS.UTC().Format(timeLayout)
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO stage_events(session_id, from_stage, to_stage, ts) VALUES(?,?,?,?)`,
		ev.SessionID, ev.From, ev.To, ts,
	); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `UPDATE sessions SET reached = ? WHERE id = ?`, ev.To, ev.SessionID)
	return err
}

func (s *SQLiteStore) RecordAttempt(ctx context.Context, a Attempt) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO attempts(session_id, stage, kind, slot, passed, ts) VALUES(?,?,?,?,?,?)`,
		a.SessionID, a.Stage, a.Kind, a.Slot, ifThen(a.Passed, 1, 0), a.TS.UTC().Format(timeLayout),
	)
	return err
}

func (s *SQLiteStore) RecordScore(ctx context.Context, sc Score) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO outcome_scores(session_id, score, tier, ts) VALUES(?,?,?,?)`,
		sc.SessionID, sc.Value, sc.Tier, sc.TS.UTC().Format(timeLayout),
	)
	return err
}

func (s *SQLiteStore) FinishSession(ctx context.Context, sessionID string, reached string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET end_ts = ?, reached = ?, completed = ? WHERE id = ?`,
		at.UTC().Format(timeLayout), reached, ifThen(reached == "complete", 1, 0), sessionID,
	)
	return err
}

func (s *SQLiteStore) GetSummary(ctx context.Context) (Summary, error) {
	var (
		out        Summary
		lastPlayed sql.NullString
	)
	row := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM sessions),
			(SELECT COUNT(*) FROM sessions WHERE completed = 1),
			(SELECT COUNT(*) FROM attempts WHERE kind <> 'upload'),
			(SELECT COUNT(*) FROM attempts WHERE kind = 'upload'),
			(SELECT COALESCE(MAX(score), 0) FROM outcome_scores),
			(SELECT MAX(start_ts) FROM sessions)
	`)
	if err := row.Scan(&out.Sessions, &out.Champions, &out.Attempts, &out.Uploads, &out.BestScore, &lastPlayed); err != nil {
		return Summary{}, err
	}
	if lastPlayed.Valid {
		if t, err := time.Parse(timeLayout, lastPlayed.String); err == nil {
			out.LastPlayed = t
		}
	}
	return out, nil
}

func (s *SQLiteStore) GetLastSession(ctx context.Context) (*SessionRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT s.id, s.start_ts, s.end_ts, s.reached, s.completed,
			(SELECT COUNT(*) FROM attempts a WHERE a.session_id = s.id),
			(SELECT COALESCE(MAX(score), 0) FROM outcome_scores o WHERE o.session_id = s.id)
		FROM sessions s
		ORDER BY s.start_ts DESC, s.rowid DESC
		LIMIT 1
	`)
	var (
		rec       SessionRecord
		startRaw  string
		endRaw    string
		completed int
	)
	if err := row.Scan(&rec.ID, &startRaw, &endRaw, &rec.Reached, &completed, &rec.Attempts, &rec.BestScore); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if t, err := time.Parse(timeLayout, startRaw); err == nil {
		rec.StartTS = t
	}
	if t, err := time.Parse(timeLayout, endRaw); err == nil {
		rec.EndTS = t
	}
	rec.Completed = completed == 1
	return &rec, nil
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

func ifThen(cond bool, yes, no int) int {
	if cond {
		return yes
	}
	return no
}
