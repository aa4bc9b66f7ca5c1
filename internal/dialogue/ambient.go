package dialogue

import (
	"math/rand/v2"

	"triwizard/internal/clock"
)

// ambient occasionally emits a cosmetic guide line. It never touches the
// riddle state or the response queue.
type ambient struct {
	sched   clock.Scheduler
	rng     *rand.Rand
	cfg     AmbientConfig
	emit    func(string)
	timer   clock.Timer
	stopped bool
}

func newAmbient(sched clock.Scheduler, rng *rand.Rand, cfg AmbientConfig, emit func(string)) *ambient {
	return &ambient{sched: sched, rng: rng, cfg: cfg, emit: emit}
}

func (a *ambient) enabled() bool {
	return a.cfg.Interval > 0 && a.cfg.Chance > 0 && len(a.cfg.Lines) > 0
}

func (a *ambient) start() {
	if !a.enabled() || a.stopped {
		return
	}
	a.timer = a.sched.AfterFunc(a.cfg.Interval, a.tick)
}

func (a *ambient) tick() {
	if a.stopped {
		return
	}
	if a.rng.Float64() < a.cfg.Chance {
		a.emit(a.cfg.Lines[a.rng.IntN(len(a.cfg.Lines))])
	}
	a.timer = a.sched.AfterFunc(a.cfg.Interval, a.tick)
}

func (a *ambient) stop() {
	a.stopped = true
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}
