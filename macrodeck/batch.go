package macrodeck

import "sort"

// Batch accumulates key configuration changes without touching the
// hardware until its scope exits.
type Batch struct {
	m     *MacroDeck
	dirty map[int]bool
}

// ConfigureKey merges options into a key configuration like
// (*MacroDeck).ConfigureKey, but defers the hardware update to the end
// of the batch scope.
func (b *Batch) ConfigureKey(key int, opts ...KeyOption) error {
	if err := b.m.validKey(key); err != nil {
		return err
	}
	b.m.mu.Lock()
	cfg := b.m.ensureConfigLocked(key)
	for _, opt := range opts {
		opt(cfg)
	}
	b.m.mu.Unlock()
	b.dirty[key] = true
	return nil
}

// Batch runs fn within a batch scope. Each key configured inside the
// scope is pushed to hardware exactly once when the scope exits, in
// ascending key order followed by a single device flush, regardless of
// whether fn returns normally, returns an error, or panics.
func (m *MacroDeck) Batch(fn func(*Batch) error) (err error) {
	b := &Batch{m: m, dirty: make(map[int]bool)}
	defer func() {
		if ferr := m.flushBatch(b); err == nil {
			err = ferr
		}
	}()
	return fn(b)
}

func (m *MacroDeck) flushBatch(b *Batch) error {
	if len(b.dirty) == 0 {
		return nil
	}
	keys := make([]int, 0, len(b.dirty))
	for key := range b.dirty {
		keys = append(keys, key)
	}
	sort.Ints(keys)

	m.mu.Lock()
	payloads := make([][]byte, len(keys))
	pushes := make([]bool, len(keys))
	var err error
	for i, key := range keys {
		cfg := m.configs[key]
		if cfg == nil {
			continue
		}
		payloads[i], pushes[i], err = m.resolveForPushLocked(cfg)
		if err != nil {
			break
		}
	}
	m.mu.Unlock()
	if err != nil {
		return err
	}

	var first error
	pushed := false
	for i, key := range keys {
		if !pushes[i] {
			continue
		}
		pushed = true
		if err := m.deck.SetKeyImage(key, payloads[i]); err != nil && first == nil {
			first = err
		}
	}
	if pushed {
		if err := m.deck.Flush(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
