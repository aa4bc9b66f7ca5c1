package clock

import "context"

// Loop is a standalone serial event loop for running the core without the
// terminal program, which otherwise owns event dispatch.
type Loop struct {
	events chan func()
}

func NewLoop(buffer int) *Loop {
	if buffer <= 0 {
		buffer = 64
	}
	return &Loop{events: make(chan func(), buffer)}
}

// Post queues fn for the loop goroutine. It blocks while the buffer is full.
func (l *Loop) Post(fn func()) {
	if fn == nil {
		return
	}
	l.events <- fn
}

// Run executes posted callbacks one at a time until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.events:
			fn()
		}
	}
}
