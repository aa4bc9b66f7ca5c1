package app

import (
	"context"
	"time"

	"triwizard/internal/state"
)

type Logger interface {
	Debug(msg string, fields map[string]any)
	Info(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
}

type Store interface {
	StartSession(ctx context.Context, session state.Session) error
	RecordStage(ctx context.Context, ev state.StageEvent) error
	RecordAttempt(ctx context.Context, a state.Attempt) error
	RecordScore(ctx context.Context, sc state.Score) error
	FinishSession(ctx context.Context, sessionID string, reached string, at time.Time) error
	GetSummary(ctx context.Context) (state.Summary, error)
	Close() error
}
