package greactor

import (
	"time"

	"github.com/godyy/greactor/engine"
)

// fakeHandle fakeEngine 句柄.
type fakeHandle struct {
	e        *fakeEngine
	timer    bool
	delay    time.Duration
	interval time.Duration
	expireAt time.Duration
	stream   engine.Stream
	dir      engine.Direction
	cb       engine.Callback
	active   bool
	pending  bool
	released bool
}

func (h *fakeHandle) Start() error {
	if h.released {
		return engine.ErrHandleReleased
	}
	if h.active || h.pending {
		return nil
	}
	h.active = true
	if h.timer {
		period := h.delay
		if h.interval > 0 {
			period = h.interval
		}
		h.expireAt = h.e.now + period
	}
	return nil
}

func (h *fakeHandle) Stop() error {
	if h.released {
		return engine.ErrHandleReleased
	}
	h.pending = false
	h.active = false
	return nil
}

func (h *fakeHandle) IsActive() bool {
	return h.active || h.pending
}

func (h *fakeHandle) Release() error {
	if h.released {
		return nil
	}
	h.active = false
	h.pending = false
	h.released = true
	for i, hh := range h.e.handles {
		if hh == h {
			h.e.handles = append(h.e.handles[:i], h.e.handles[i+1:]...)
			break
		}
	}
	return nil
}

// fakeEngine 确定性的 Engine 实现. 时间只在 RunOnce 时按 step 推进.
type fakeEngine struct {
	now     time.Duration
	step    time.Duration
	handles []*fakeHandle
	ready   map[engine.Stream]engine.Direction
	ioErr   error
	passes  int
	halts   int
	closed  bool
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		ready: make(map[engine.Stream]engine.Direction),
	}
}

func (e *fakeEngine) Timer(delay, interval time.Duration, cb engine.Callback) (engine.Handle, error) {
	if e.closed {
		return nil, engine.ErrClosed
	}
	h := &fakeHandle{
		e:        e,
		timer:    true,
		delay:    delay,
		interval: interval,
		expireAt: e.now + delay,
		cb:       cb,
		active:   true,
	}
	e.handles = append(e.handles, h)
	return h, nil
}

func (e *fakeEngine) IO(s engine.Stream, dir engine.Direction, cb engine.Callback) (engine.Handle, error) {
	if e.closed {
		return nil, engine.ErrClosed
	}
	if e.ioErr != nil {
		return nil, e.ioErr
	}
	h := &fakeHandle{
		e:      e,
		stream: s,
		dir:    dir,
		cb:     cb,
		active: true,
	}
	e.handles = append(e.handles, h)
	return h, nil
}

// setReady 设置 s 在 dir 方向上就绪.
func (e *fakeEngine) setReady(s engine.Stream, dir engine.Direction, ready bool) {
	if ready {
		e.ready[s] |= dir
	} else {
		e.ready[s] &^= dir
	}
}

func (e *fakeEngine) RunOnce(time.Duration) error {
	if e.closed {
		return engine.ErrClosed
	}

	e.passes++
	e.now += e.step

	due := make([]*fakeHandle, 0, len(e.handles))
	for _, h := range e.handles {
		if !h.active {
			continue
		}
		if h.timer {
			if h.expireAt <= e.now {
				h.active = false
				h.pending = true
				due = append(due, h)
			}
		} else if e.ready[h.stream]&h.dir != 0 {
			h.pending = true
			due = append(due, h)
		}
	}

	for i, h := range due {
		if !h.pending {
			continue
		}
		h.pending = false
		if !h.timer && !h.active {
			continue
		}
		if err := h.cb(h); err != nil {
			for _, rest := range due[i+1:] {
				if rest.pending && rest.timer {
					rest.active = true
				}
				rest.pending = false
			}
			return err
		}
	}

	return nil
}

func (e *fakeEngine) Halt() {
	e.halts++
}

func (e *fakeEngine) Close() error {
	e.closed = true
	return nil
}
