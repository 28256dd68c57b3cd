package macrodeck

import (
	"time"

	"go.uber.org/zap"

	"github.com/griddeck/griddeck"
)

const (
	defaultInterval    = time.Second / 30
	defaultReadTimeout = 10 * time.Millisecond
)

type loopConfig struct {
	interval    time.Duration
	readTimeout time.Duration
	tick        func(dt time.Duration) bool
	sleep       func(d time.Duration) error
}

// LoopOption configures RunLoop.
type LoopOption func(*loopConfig)

// WithTick sets a callback invoked once per iteration, after dispatch,
// with the time elapsed since the previous iteration. Returning false
// stops the loop.
func WithTick(fn func(dt time.Duration) bool) LoopOption {
	return func(c *loopConfig) { c.tick = fn }
}

// WithSleep replaces the sleep between iterations. The function is
// called exactly once per iteration; an error ends the loop and is
// returned from RunLoop.
func WithSleep(fn func(d time.Duration) error) LoopOption {
	return func(c *loopConfig) { c.sleep = fn }
}

// WithInterval sets the target iteration interval. The default is one
// thirtieth of a second.
func WithInterval(d time.Duration) LoopOption {
	return func(c *loopConfig) { c.interval = d }
}

// WithReadTimeout bounds the blocking input read of each iteration,
// which also bounds how late a stop request is noticed. The default is
// 10ms.
func WithReadTimeout(d time.Duration) LoopOption {
	return func(c *loopConfig) { c.readTimeout = d }
}

// RunLoop polls the deck and dispatches callbacks until StopLoop is
// called, the tick callback returns false, the sleep function errors, or
// device I/O fails. Only one loop may run per MacroDeck.
func (m *MacroDeck) RunLoop(opts ...LoopOption) error {
	cfg := loopConfig{
		interval:    defaultInterval,
		readTimeout: defaultReadTimeout,
		sleep: func(d time.Duration) error {
			time.Sleep(d)
			return nil
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if !m.loopActive.CompareAndSwap(false, true) {
		return ErrLoopRunning
	}
	defer m.loopActive.Store(false)
	m.stopFlag.Store(false)

	m.log.Debug("macro loop started", zap.String("device", m.deck.ID()))
	defer m.log.Debug("macro loop finished", zap.String("device", m.deck.ID()))

	last := time.Now()
	for {
		if m.stopFlag.Load() {
			return nil
		}
		started := time.Now()

		prev, cur, err := m.poll(cfg.readTimeout)
		if err != nil {
			return err
		}
		m.dispatch(prev, cur)

		now := time.Now()
		if cfg.tick != nil && !cfg.tick(now.Sub(last)) {
			return nil
		}
		last = now

		if err := cfg.sleep(cfg.interval - time.Since(started)); err != nil {
			return err
		}
	}
}

// StopLoop requests the running loop to stop. The flag is checked at the
// top of each iteration, so callbacks in flight always finish. Blocking
// waits started while the loop was active are cancelled with ErrStopped.
func (m *MacroDeck) StopLoop() {
	m.stopFlag.Store(true)
}

// LoopRunning reports whether a macro loop is currently active.
func (m *MacroDeck) LoopRunning() bool {
	return m.loopActive.Load()
}

// dispatch fires callbacks for the transitions between two input
// snapshots. Handlers are captured under the lock and invoked after it
// is released, in a fixed order: keys, then dials, then touch events,
// ascending index within each category. Per key the pressed-image swap
// comes first, then OnPress or OnRelease, then the key macro on press.
func (m *MacroDeck) dispatch(prev, cur griddeck.InputState) {
	m.mu.Lock()
	if !m.enabled {
		m.mu.Unlock()
		return
	}

	var actions []func()
	for i, down := range cur.Keys {
		was := i < len(prev.Keys) && prev.Keys[i]
		if was == down {
			continue
		}
		key, pressed := i, down

		if cfg := m.configs[key]; cfg != nil {
			if cfg.hasPressedVisual() {
				payload, ok, err := m.resolveVisualLocked(cfg, pressed)
				if err != nil {
					m.log.Warn("rendering key visual", zap.Int("key", key), zap.Error(err))
				} else {
					if !ok {
						payload = nil
					}
					actions = append(actions, func() {
						if err := m.pushKey(key, payload); err != nil {
							m.log.Warn("updating key image", zap.Int("key", key), zap.Error(err))
						}
					})
				}
			}
			if pressed && cfg.OnPress != nil {
				fn := cfg.OnPress
				actions = append(actions, func() { fn(key) })
			}
			if !pressed && cfg.OnRelease != nil {
				fn := cfg.OnRelease
				actions = append(actions, func() { fn(key) })
			}
		}
		if pressed {
			if fn := m.keyMacros[key]; fn != nil {
				actions = append(actions, func() { fn(key) })
			}
		}
	}

	for i, dial := range cur.Dials {
		was := i < len(prev.Dials) && prev.Dials[i].Pressed
		if dial.Pressed != was {
			if fn := m.dialPushes[i]; fn != nil {
				d, pressed := i, dial.Pressed
				actions = append(actions, func() { fn(d, pressed) })
			}
		}
		if dial.Delta != 0 {
			if fn := m.dialTurns[i]; fn != nil {
				d, delta := i, dial.Delta
				actions = append(actions, func() { fn(d, delta) })
			}
		}
	}

	for _, ev := range cur.Touch {
		if fn := m.touches[ev.Type]; fn != nil {
			fn, ev := fn, ev
			actions = append(actions, func() { fn(ev) })
		}
	}
	m.mu.Unlock()

	for _, action := range actions {
		m.invoke(action)
	}
}

// invoke runs one captured action, recovering panics so a failing
// callback cannot disturb the snapshot or the rest of the tick.
func (m *MacroDeck) invoke(action func()) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("macro callback panicked",
				zap.String("device", m.deck.ID()),
				zap.Any("panic", r))
		}
	}()
	action()
}
