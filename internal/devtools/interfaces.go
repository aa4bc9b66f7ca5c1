package devtools

import (
	"context"
)

// Simulator replays scripted input against a headless game.
type Simulator interface {
	Names() []string
	Resolve(name string) (Scenario, error)
	Run(ctx context.Context, sc Scenario, opts RunOptions) (Report, error)
}
