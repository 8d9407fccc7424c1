package session

import "time"

// RevealState is the state of the incremental reveal pipeline
type RevealState int

const (
	RevealIdle RevealState = iota
	RevealRevealing
)

func (s RevealState) String() string {
	if s == RevealRevealing {
		return "revealing"
	}
	return "idle"
}

// revealer paces the disclosure of one assistant message. It holds no lock of
// its own; the Manager's mutex guards it.
//
// Every start, finalize or abandon bumps gen, so a tick scheduled for an older
// reveal is ignored even if its timer could not be stopped in time.
type revealer struct {
	sched    Scheduler
	stride   int
	interval time.Duration

	state RevealState
	index int
	runes []rune
	shown int
	gen   uint64
	timer Timer
}

func newRevealer(sched Scheduler, stride int, interval time.Duration) *revealer {
	return &revealer{sched: sched, stride: stride, interval: interval}
}

// start begins revealing content as message index. Any reveal in progress is
// finalized first. tick is scheduled with the new generation.
func (r *revealer) start(index int, content string, tick func(gen uint64)) {
	r.finalize()
	r.index = index
	r.runes = []rune(content)
	r.shown = 0
	if len(r.runes) == 0 {
		return
	}
	r.state = RevealRevealing
	r.schedule(tick)
}

// advance moves the prefix forward by one stride. It reports whether gen was
// current; a stale tick changes nothing.
func (r *revealer) advance(gen uint64, tick func(gen uint64)) bool {
	if r.state != RevealRevealing || gen != r.gen {
		return false
	}
	r.shown += r.stride
	if r.shown >= len(r.runes) {
		r.shown = len(r.runes)
		r.state = RevealIdle
		r.timer = nil
		return true
	}
	r.schedule(tick)
	return true
}

// finalize jumps to the full content
func (r *revealer) finalize() bool {
	if r.state != RevealRevealing {
		return false
	}
	r.cancel()
	r.shown = len(r.runes)
	r.state = RevealIdle
	return true
}

// abandon drops the reveal without exposing anything more
func (r *revealer) abandon() {
	r.cancel()
	r.state = RevealIdle
	r.runes = nil
	r.shown = 0
}

func (r *revealer) cancel() {
	r.gen++
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

func (r *revealer) schedule(tick func(gen uint64)) {
	r.gen++
	gen := r.gen
	r.timer = r.sched.AfterFunc(r.interval, func() { tick(gen) })
}

func (r *revealer) partial() string {
	return string(r.runes[:r.shown])
}
