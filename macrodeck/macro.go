package macrodeck

import (
	"fmt"

	"github.com/griddeck/griddeck"
)

// KeyHandler fires with the canonical index of the key that changed.
type KeyHandler func(key int)

// DialTurnHandler fires with the rotation accumulated since the previous
// poll. Negative deltas are counter-clockwise.
type DialTurnHandler func(dial, delta int)

// DialPushHandler fires on dial press and release transitions.
type DialPushHandler func(dial int, pressed bool)

// TouchHandler fires once per decoded touch event.
type TouchHandler func(ev griddeck.TouchEvent)

// RegisterKeyMacro attaches a macro fired when the key is pressed.
// Macros are independent of key configurations.
func (m *MacroDeck) RegisterKeyMacro(key int, fn KeyHandler) error {
	if err := m.validKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	m.keyMacros[key] = fn
	m.mu.Unlock()
	return nil
}

// UnregisterKeyMacro removes the macro attached to a key.
func (m *MacroDeck) UnregisterKeyMacro(key int) error {
	if err := m.validKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.keyMacros, key)
	m.mu.Unlock()
	return nil
}

// HasKeyMacro reports whether a key has a macro attached.
func (m *MacroDeck) HasKeyMacro(key int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.keyMacros[key]
	return ok
}

// RegisterDialTurnMacro attaches a macro fired when the dial is rotated.
func (m *MacroDeck) RegisterDialTurnMacro(dial int, fn DialTurnHandler) error {
	if err := m.validDial(dial); err != nil {
		return err
	}
	m.mu.Lock()
	m.dialTurns[dial] = fn
	m.mu.Unlock()
	return nil
}

// RegisterDialPushMacro attaches a macro fired when the dial is pressed
// or released.
func (m *MacroDeck) RegisterDialPushMacro(dial int, fn DialPushHandler) error {
	if err := m.validDial(dial); err != nil {
		return err
	}
	m.mu.Lock()
	m.dialPushes[dial] = fn
	m.mu.Unlock()
	return nil
}

// UnregisterDialTurnMacro removes the turn macro attached to a dial.
func (m *MacroDeck) UnregisterDialTurnMacro(dial int) error {
	if err := m.validDial(dial); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.dialTurns, dial)
	m.mu.Unlock()
	return nil
}

// UnregisterDialPushMacro removes the push macro attached to a dial.
func (m *MacroDeck) UnregisterDialPushMacro(dial int) error {
	if err := m.validDial(dial); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.dialPushes, dial)
	m.mu.Unlock()
	return nil
}

// HasDialTurnMacro reports whether a dial has a turn macro attached.
func (m *MacroDeck) HasDialTurnMacro(dial int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.dialTurns[dial]
	return ok
}

// HasDialPushMacro reports whether a dial has a push macro attached.
func (m *MacroDeck) HasDialPushMacro(dial int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.dialPushes[dial]
	return ok
}

// RegisterTouchMacro attaches a macro fired for one touch event type.
func (m *MacroDeck) RegisterTouchMacro(ev griddeck.TouchEventType, fn TouchHandler) error {
	if err := m.validTouch(ev); err != nil {
		return err
	}
	m.mu.Lock()
	m.touches[ev] = fn
	m.mu.Unlock()
	return nil
}

// UnregisterTouchMacro removes the macro attached to a touch event type.
func (m *MacroDeck) UnregisterTouchMacro(ev griddeck.TouchEventType) error {
	if err := m.validTouch(ev); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.touches, ev)
	m.mu.Unlock()
	return nil
}

// HasTouchMacro reports whether a touch event type has a macro attached.
func (m *MacroDeck) HasTouchMacro(ev griddeck.TouchEventType) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.touches[ev]
	return ok
}

// RegisterKeyMacros registers several key macros at once. Every index is
// validated before any registration takes effect.
func (m *MacroDeck) RegisterKeyMacros(macros map[int]KeyHandler) error {
	for key := range macros {
		if err := m.validKey(key); err != nil {
			return err
		}
	}
	m.mu.Lock()
	for key, fn := range macros {
		m.keyMacros[key] = fn
	}
	m.mu.Unlock()
	return nil
}

// RegisterDialTurnMacros registers several turn macros at once,
// all-or-nothing.
func (m *MacroDeck) RegisterDialTurnMacros(macros map[int]DialTurnHandler) error {
	for dial := range macros {
		if err := m.validDial(dial); err != nil {
			return err
		}
	}
	m.mu.Lock()
	for dial, fn := range macros {
		m.dialTurns[dial] = fn
	}
	m.mu.Unlock()
	return nil
}

// RegisterDialPushMacros registers several push macros at once,
// all-or-nothing.
func (m *MacroDeck) RegisterDialPushMacros(macros map[int]DialPushHandler) error {
	for dial := range macros {
		if err := m.validDial(dial); err != nil {
			return err
		}
	}
	m.mu.Lock()
	for dial, fn := range macros {
		m.dialPushes[dial] = fn
	}
	m.mu.Unlock()
	return nil
}

// RegisterTouchMacros registers several touch macros at once,
// all-or-nothing.
func (m *MacroDeck) RegisterTouchMacros(macros map[griddeck.TouchEventType]TouchHandler) error {
	for ev := range macros {
		if err := m.validTouch(ev); err != nil {
			return err
		}
	}
	m.mu.Lock()
	for ev, fn := range macros {
		m.touches[ev] = fn
	}
	m.mu.Unlock()
	return nil
}

// CopyKeyMacro copies the macro from one key to another. An absent
// source clears the destination.
func (m *MacroDeck) CopyKeyMacro(src, dst int) error {
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
	if fn, ok := m.keyMacros[src]; ok {
		m.keyMacros[dst] = fn
	} else {
		delete(m.keyMacros, dst)
	}
	m.mu.Unlock()
	return nil
}

// MoveKeyMacro moves the macro from one key to another.
func (m *MacroDeck) MoveKeyMacro(src, dst int) error {
	if err := m.CopyKeyMacro(src, dst); err != nil {
		return err
	}
	if src == dst {
		return nil
	}
	m.mu.Lock()
	delete(m.keyMacros, src)
	m.mu.Unlock()
	return nil
}

// SwapKeyMacros exchanges the macros of two keys, absent entries
// included.
func (m *MacroDeck) SwapKeyMacros(a, b int) error {
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
	swapMapEntries(m.keyMacros, a, b)
	m.mu.Unlock()
	return nil
}

// ClearAllMacros empties the macro registry. Key configurations are left
// alone.
func (m *MacroDeck) ClearAllMacros() {
	m.mu.Lock()
	m.keyMacros = make(map[int]KeyHandler)
	m.dialTurns = make(map[int]DialTurnHandler)
	m.dialPushes = make(map[int]DialPushHandler)
	m.touches = make(map[griddeck.TouchEventType]TouchHandler)
	m.mu.Unlock()
}

func (m *MacroDeck) validTouch(ev griddeck.TouchEventType) error {
	if !m.deck.HasTouchscreen() {
		return fmt.Errorf("%w: no touchscreen", griddeck.ErrUnsupported)
	}
	switch ev {
	case griddeck.TouchShort, griddeck.TouchLong, griddeck.TouchDrag:
		return nil
	}
	return fmt.Errorf("%w: touch event type %d", ErrOutOfRange, ev)
}
