package state

import (
	"context"
	"time"
)

// Store records finished facts about runs. Live game state never goes
// through it.
type Store interface {
	EnsureSchema(ctx context.Context) error
	StartSession(ctx context.Context, session Session) error
	RecordStage(ctx context.Context, ev StageEvent) error
	RecordAttempt(ctx context.Context, a Attempt) error
	RecordScore(ctx context.Context, sc Score) error
	FinishSession(ctx context.Context, sessionID string, reached string, at time.Time) error
	GetSummary(ctx context.Context) (Summary, error)
	GetLastSession(ctx context.Context) (*SessionRecord, error)
	Close() error
}

type Session struct {
	ID          string
	ScriptTitle string
	Seed        uint64
	StartTS     time.Time
}

type StageEvent struct {
	SessionID string
	From      string
	To        string
	TS        time.Time
}

const (
	AttemptChat    = "chat"
	AttemptKeyword = "keyword"
	AttemptCode    = "code"
	AttemptUpload  = "upload"
)

type Attempt struct {
	SessionID string
	Stage     string
	Kind      string
	Slot      string
	Passed    bool
	TS        time.Time
}

type Score struct {
	SessionID string
	Value     float64
	Tier      string
	TS        time.Time
}

type Summary struct {
	Sessions   int
	Champions  int
	Attempts   int
	Uploads    int
	BestScore  float64
	LastPlayed time.Time
}

type SessionRecord struct {
	ID        string
	StartTS   time.Time
	EndTS     time.Time
	Reached   string
	Completed bool
	Attempts  int
	BestScore float64
}
