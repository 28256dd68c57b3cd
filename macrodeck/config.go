package macrodeck

import "sort"

// KeyConfig holds the visuals and callbacks attached to one key. Image
// and Label are alternative forms of the idle visual; PressedImage and
// PressedLabel of the pressed visual. Setting one form clears the other.
type KeyConfig struct {
	Image        []byte
	PressedImage []byte
	Label        string
	PressedLabel string
	OnPress      KeyHandler
	OnRelease    KeyHandler
}

func (c *KeyConfig) clone() *KeyConfig {
	out := *c
	out.Image = clonePayload(c.Image)
	out.PressedImage = clonePayload(c.PressedImage)
	return &out
}

// hasPressedVisual reports whether press and release swap the key image.
func (c *KeyConfig) hasPressedVisual() bool {
	return c.PressedImage != nil || c.PressedLabel != ""
}

func clonePayload(p []byte) []byte {
	if p == nil {
		return nil
	}
	return append([]byte(nil), p...)
}

// KeyOption mutates one field of a key configuration. Options apply in
// argument order; omitted fields are left unchanged.
type KeyOption func(*KeyConfig)

// WithImage sets the idle visual to a pre-encoded native payload. nil
// clears it.
func WithImage(payload []byte) KeyOption {
	payload = clonePayload(payload)
	return func(c *KeyConfig) {
		c.Image = payload
		c.Label = ""
	}
}

// WithPressedImage sets the visual shown while the key is held.
func WithPressedImage(payload []byte) KeyOption {
	payload = clonePayload(payload)
	return func(c *KeyConfig) {
		c.PressedImage = payload
		c.PressedLabel = ""
	}
}

// WithLabel sets the idle visual to rendered text. Empty clears it.
func WithLabel(text string) KeyOption {
	return func(c *KeyConfig) {
		c.Label = text
		c.Image = nil
	}
}

// WithPressedLabel sets the text shown while the key is held.
func WithPressedLabel(text string) KeyOption {
	return func(c *KeyConfig) {
		c.PressedLabel = text
		c.PressedImage = nil
	}
}

// WithOnPress sets the callback fired on a press transition.
func WithOnPress(fn KeyHandler) KeyOption {
	return func(c *KeyConfig) { c.OnPress = fn }
}

// WithOnRelease sets the callback fired on a release transition.
func WithOnRelease(fn KeyHandler) KeyOption {
	return func(c *KeyConfig) { c.OnRelease = fn }
}

// ConfigureKey upserts the configuration for one key, merging the given
// options into whatever is already stored. The key's idle visual is
// pushed to hardware immediately when the deck is open and visual.
func (m *MacroDeck) ConfigureKey(key int, opts ...KeyOption) error {
	if err := m.validKey(key); err != nil {
		return err
	}

	m.mu.Lock()
	cfg := m.ensureConfigLocked(key)
	for _, opt := range opts {
		opt(cfg)
	}
	payload, push, err := m.resolveForPushLocked(cfg)
	m.mu.Unlock()

	if err != nil {
		return err
	}
	if push {
		return m.deck.SetKeyImage(key, payload)
	}
	return nil
}

// UpdateKeyConfiguration merges options into a key configuration. It is
// an alias of ConfigureKey kept for symmetry with the rest of the
// configuration family.
func (m *MacroDeck) UpdateKeyConfiguration(key int, opts ...KeyOption) error {
	return m.ConfigureKey(key, opts...)
}

// KeyConfiguration returns a copy of the stored configuration, or nil
// when the key has none.
func (m *MacroDeck) KeyConfiguration(key int) (*KeyConfig, error) {
	if err := m.validKey(key); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg := m.configs[key]
	if cfg == nil {
		return nil, nil
	}
	return cfg.clone(), nil
}

// ConfiguredKeys returns the keys holding a configuration, ascending.
func (m *MacroDeck) ConfiguredKeys() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]int, 0, len(m.configs))
	for key := range m.configs {
		keys = append(keys, key)
	}
	sort.Ints(keys)
	return keys
}

// ClearKeyConfiguration removes a key's configuration and macro and
// blanks it on hardware.
func (m *MacroDeck) ClearKeyConfiguration(key int) error {
	if err := m.validKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.configs, key)
	delete(m.keyMacros, key)
	ready := m.hardwareReady()
	m.mu.Unlock()

	if ready {
		return m.pushKey(key, nil)
	}
	return nil
}

// ClearAllKeyConfigurations removes every configuration and key macro,
// blanking the affected keys.
func (m *MacroDeck) ClearAllKeyConfigurations() error {
	m.mu.Lock()
	seen := make(map[int]bool, len(m.configs)+len(m.keyMacros))
	for key := range m.configs {
		seen[key] = true
	}
	for key := range m.keyMacros {
		seen[key] = true
	}
	m.configs = make(map[int]*KeyConfig)
	m.keyMacros = make(map[int]KeyHandler)
	ready := m.hardwareReady()
	m.mu.Unlock()

	if !ready {
		return nil
	}
	keys := make([]int, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Ints(keys)
	var first error
	for _, key := range keys {
		if err := m.pushKey(key, nil); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// CopyKeyConfiguration copies a key's configuration and macro to another
// key. A missing source leaves the destination untouched.
func (m *MacroDeck) CopyKeyConfiguration(src, dst int) error {
	if err := m.validKey(src); err != nil {
		return err
	}
	if err := m.validKey(dst); err != nil {
		return err
	}
	if src == dst {
		return nil
	}

	m.mu.Lock()
	var payload []byte
	var push bool
	var err error
	if cfg := m.configs[src]; cfg != nil {
		copied := cfg.clone()
		m.configs[dst] = copied
		payload, push, err = m.resolveForPushLocked(copied)
	}
	if macro, ok := m.keyMacros[src]; ok {
		m.keyMacros[dst] = macro
	}
	m.mu.Unlock()

	if err != nil {
		return err
	}
	if push {
		return m.deck.SetKeyImage(dst, payload)
	}
	return nil
}

// MoveKeyConfiguration moves a key's configuration and macro to another
// key, blanking the source.
func (m *MacroDeck) MoveKeyConfiguration(src, dst int) error {
	if err := m.CopyKeyConfiguration(src, dst); err != nil {
		return err
	}
	if src == dst {
		return nil
	}
	return m.ClearKeyConfiguration(src)
}

// SwapKeyConfigurations exchanges the configurations and macros of two
// keys and refreshes both on hardware. Swapping twice restores the
// original state, absent entries included.
func (m *MacroDeck) SwapKeyConfigurations(a, b int) error {
	if err := m.validKey(a); err != nil {
		return err
	}
	if err := m.validKey(b); err != nil {
		return err
	}
	if a == b {
		return nil
	}

	m.mu.Lock()
	swapMapEntries(m.configs, a, b)
	swapMapEntries(m.keyMacros, a, b)

	type refresh struct {
		payload []byte
		ok      bool
	}
	var states [2]refresh
	var err error
	ready := m.hardwareReady()
	if ready {
		for i, key := range [2]int{a, b} {
			if cfg := m.configs[key]; cfg != nil {
				states[i].payload, states[i].ok, err = m.resolveVisualLocked(cfg, false)
				if err != nil {
					break
				}
			}
		}
	}
	m.mu.Unlock()

	if err != nil || !ready {
		return err
	}
	for i, key := range [2]int{a, b} {
		payload := states[i].payload
		if !states[i].ok {
			payload = nil
		}
		if err := m.pushKey(key, payload); err != nil {
			return err
		}
	}
	return nil
}

// SetKeyLabel displays text on a key, storing it in the configuration.
func (m *MacroDeck) SetKeyLabel(key int, text string) error {
	return m.ConfigureKey(key, WithLabel(text))
}

// SetKeyImageBytes displays a pre-encoded payload on a key, storing it
// in the configuration.
func (m *MacroDeck) SetKeyImageBytes(key int, payload []byte) error {
	return m.ConfigureKey(key, WithImage(payload))
}

// CopyKeyImage copies the idle visual from one key to another. Unlike
// CopyKeyConfiguration an empty source blanks the destination.
func (m *MacroDeck) CopyKeyImage(src, dst int) error {
	if err := m.validKey(src); err != nil {
		return err
	}
	if err := m.validKey(dst); err != nil {
		return err
	}
	if src == dst {
		return nil
	}

	m.mu.Lock()
	var img []byte
	var label string
	if cfg := m.configs[src]; cfg != nil {
		img, label = cfg.Image, cfg.Label
	}
	cfg := m.ensureConfigLocked(dst)
	cfg.Image, cfg.Label = img, label
	payload, err := m.resolveOrBlankLocked(cfg)
	m.mu.Unlock()

	if err != nil {
		return err
	}
	if payload != nil {
		return m.deck.SetKeyImage(dst, payload)
	}
	return nil
}

// MoveKeyImage moves the idle visual from one key to another, blanking
// the source.
func (m *MacroDeck) MoveKeyImage(src, dst int) error {
	if err := m.CopyKeyImage(src, dst); err != nil {
		return err
	}
	if src == dst {
		return nil
	}

	m.mu.Lock()
	if cfg := m.configs[src]; cfg != nil {
		cfg.Image, cfg.Label = nil, ""
	}
	ready := m.hardwareReady()
	m.mu.Unlock()

	if ready {
		return m.pushKey(src, nil)
	}
	return nil
}

// SwapKeyImages exchanges the idle visuals of two keys.
func (m *MacroDeck) SwapKeyImages(a, b int) error {
	if err := m.validKey(a); err != nil {
		return err
	}
	if err := m.validKey(b); err != nil {
		return err
	}
	if a == b {
		return nil
	}

	m.mu.Lock()
	ca := m.ensureConfigLocked(a)
	cb := m.ensureConfigLocked(b)
	ca.Image, cb.Image = cb.Image, ca.Image
	ca.Label, cb.Label = cb.Label, ca.Label
	pa, erra := m.resolveOrBlankLocked(ca)
	pb, errb := m.resolveOrBlankLocked(cb)
	m.mu.Unlock()

	if erra != nil {
		return erra
	}
	if errb != nil {
		return errb
	}
	if pa != nil {
		if err := m.deck.SetKeyImage(a, pa); err != nil {
			return err
		}
	}
	if pb != nil {
		return m.deck.SetKeyImage(b, pb)
	}
	return nil
}

// RefreshKeyImages re-pushes the idle visual of every configured key,
// restoring the configured layout after a board repainted the hardware.
func (m *MacroDeck) RefreshKeyImages() error {
	if !m.deck.Visual() {
		return nil
	}

	m.mu.Lock()
	keys := make([]int, 0, len(m.configs))
	for key := range m.configs {
		keys = append(keys, key)
	}
	sort.Ints(keys)
	payloads := make([][]byte, len(keys))
	var err error
	for i, key := range keys {
		var ok bool
		payloads[i], ok, err = m.resolveVisualLocked(m.configs[key], false)
		if err != nil {
			break
		}
		if !ok {
			payloads[i] = nil
		}
	}
	m.mu.Unlock()

	if err != nil {
		return err
	}
	for i, key := range keys {
		if err := m.pushKey(key, payloads[i]); err != nil {
			return err
		}
	}
	return m.deck.Flush()
}

// ensureConfigLocked returns the configuration for a key, creating an
// empty one when absent. m.mu must be held.
func (m *MacroDeck) ensureConfigLocked(key int) *KeyConfig {
	cfg := m.configs[key]
	if cfg == nil {
		cfg = &KeyConfig{}
		m.configs[key] = cfg
	}
	return cfg
}

// resolveForPushLocked resolves a configuration's idle visual when the
// hardware should be updated. m.mu must be held.
func (m *MacroDeck) resolveForPushLocked(cfg *KeyConfig) ([]byte, bool, error) {
	if !m.hardwareReady() {
		return nil, false, nil
	}
	return m.resolveVisualLocked(cfg, false)
}

// resolveOrBlankLocked resolves a configuration's idle visual for an
// unconditional hardware refresh, substituting blank for an empty slot.
// A nil payload with nil error means the hardware is not ready. m.mu
// must be held.
func (m *MacroDeck) resolveOrBlankLocked(cfg *KeyConfig) ([]byte, error) {
	if !m.hardwareReady() {
		return nil, nil
	}
	payload, ok, err := m.resolveVisualLocked(cfg, false)
	if err != nil {
		return nil, err
	}
	if !ok {
		return m.blankLocked()
	}
	return payload, nil
}

func swapMapEntries[V any](entries map[int]V, a, b int) {
	va, oka := entries[a]
	vb, okb := entries[b]
	if okb {
		entries[a] = vb
	} else {
		delete(entries, a)
	}
	if oka {
		entries[b] = va
	} else {
		delete(entries, b)
	}
}
