// Package macrodeck attaches application behavior to deck input: callbacks
// for key, dial and touch events, per-key images and labels, character and
// image boards, and a polling loop that dispatches it all.
package macrodeck

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/griddeck/griddeck"
	"github.com/griddeck/griddeck/imagehelper"
)

// Deck is the device surface MacroDeck drives. *griddeck.Device satisfies
// it; tests substitute their own.
type Deck interface {
	ID() string
	KeyCount() int
	Rows() int
	Columns() int
	DialCount() int
	HasTouchscreen() bool
	Visual() bool
	IsOpen() bool
	KeyImageFormat() griddeck.ImageFormat
	SetKeyImage(key int, payload []byte) error
	ReadInput(timeout time.Duration) (griddeck.InputState, error)
	Reset() error
	Flush() error
}

var _ Deck = (*griddeck.Device)(nil)

// MacroDeck owns one deck handle plus the key configurations, macro
// registry and boards attached to it.
//
// One mutex guards all stored state including the input snapshot, so
// configuration changes appear atomic to a concurrently running poll
// tick. Callbacks are captured under the lock but invoked after it is
// released. A second mutex serializes device reads so the run loop and
// blocking waits never interleave reports.
type MacroDeck struct {
	deck Deck
	log  *zap.Logger

	mu         sync.Mutex
	configs    map[int]*KeyConfig
	keyMacros  map[int]KeyHandler
	dialTurns  map[int]DialTurnHandler
	dialPushes map[int]DialPushHandler
	touches    map[griddeck.TouchEventType]TouchHandler
	board      *charBoard
	imageBoard *imageBoard
	snapshot   griddeck.InputState
	enabled    bool
	blank      []byte

	pollMu sync.Mutex

	loopActive atomic.Bool
	stopFlag   atomic.Bool
}

// Option configures a MacroDeck.
type Option func(*MacroDeck)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(m *MacroDeck) { m.log = log }
}

// New wraps a deck handle. The handle is not opened; callers control its
// lifecycle.
func New(deck Deck, opts ...Option) *MacroDeck {
	m := &MacroDeck{
		deck:       deck,
		log:        zap.NewNop(),
		configs:    make(map[int]*KeyConfig),
		keyMacros:  make(map[int]KeyHandler),
		dialTurns:  make(map[int]DialTurnHandler),
		dialPushes: make(map[int]DialPushHandler),
		touches:    make(map[griddeck.TouchEventType]TouchHandler),
		enabled:    true,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Enable resumes callback dispatch on the next poll tick. Presses missed
// while disabled are not replayed.
func (m *MacroDeck) Enable() {
	m.mu.Lock()
	m.enabled = true
	m.mu.Unlock()
}

// Disable suppresses callback dispatch and pressed-image swaps. Polling
// continues and the input snapshot stays current.
func (m *MacroDeck) Disable() {
	m.mu.Lock()
	m.enabled = false
	m.mu.Unlock()
}

// Enabled reports whether callbacks are dispatched.
func (m *MacroDeck) Enabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabled
}

// Reset discards all configurations, macros and boards, re-enables
// dispatch, and resets the deck itself.
func (m *MacroDeck) Reset() error {
	m.mu.Lock()
	m.configs = make(map[int]*KeyConfig)
	m.keyMacros = make(map[int]KeyHandler)
	m.dialTurns = make(map[int]DialTurnHandler)
	m.dialPushes = make(map[int]DialPushHandler)
	m.touches = make(map[griddeck.TouchEventType]TouchHandler)
	m.board = nil
	m.imageBoard = nil
	m.snapshot = griddeck.InputState{}
	m.enabled = true
	m.mu.Unlock()
	return m.deck.Reset()
}

// PressedKeys returns the canonical indices pressed in the last polled
// input snapshot, ascending.
func (m *MacroDeck) PressedKeys() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	var pressed []int
	for i, down := range m.snapshot.Keys {
		if down {
			pressed = append(pressed, i)
		}
	}
	return pressed
}

// PressedChars returns the board characters under the currently pressed
// keys. A character board must exist.
func (m *MacroDeck) PressedChars() ([]rune, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.board == nil {
		return nil, ErrNoBoard
	}
	cols := m.deck.Columns()
	var chars []rune
	for i, down := range m.snapshot.Keys {
		if down && i < m.deck.KeyCount() {
			chars = append(chars, m.board.cells[i/cols][i%cols])
		}
	}
	return chars, nil
}

// poll reads one input report and rotates the snapshot, returning the
// previous and current states for transition diffing.
func (m *MacroDeck) poll(timeout time.Duration) (prev, cur griddeck.InputState, err error) {
	m.pollMu.Lock()
	defer m.pollMu.Unlock()
	cur, err = m.deck.ReadInput(timeout)
	if err != nil {
		return griddeck.InputState{}, griddeck.InputState{}, err
	}
	m.mu.Lock()
	prev = m.snapshot
	m.snapshot = cur
	m.mu.Unlock()
	return prev, cur, nil
}

func (m *MacroDeck) validKey(key int) error {
	if key < 0 || key >= m.deck.KeyCount() {
		return fmt.Errorf("%w: %d", griddeck.ErrInvalidKey, key)
	}
	return nil
}

func (m *MacroDeck) validDial(dial int) error {
	if dial < 0 || dial >= m.deck.DialCount() {
		return fmt.Errorf("%w: %d", griddeck.ErrInvalidDial, dial)
	}
	return nil
}

// hardwareReady reports whether implicit pushes should reach the device.
func (m *MacroDeck) hardwareReady() bool {
	return m.deck.IsOpen() && m.deck.Visual()
}

// resolveVisualLocked returns the payload a key configuration shows in
// the given pressed state. ok is false when the configuration has nothing
// to show. Labels are rendered on demand. m.mu must be held.
func (m *MacroDeck) resolveVisualLocked(cfg *KeyConfig, pressed bool) (payload []byte, ok bool, err error) {
	if pressed {
		if cfg.PressedImage != nil {
			return cfg.PressedImage, true, nil
		}
		if cfg.PressedLabel != "" {
			payload, err = imagehelper.RenderKeyLabel(m.deck, cfg.PressedLabel)
			return payload, err == nil, err
		}
	}
	if cfg.Image != nil {
		return cfg.Image, true, nil
	}
	if cfg.Label != "" {
		payload, err = imagehelper.RenderKeyLabel(m.deck, cfg.Label)
		return payload, err == nil, err
	}
	return nil, false, nil
}

// pushKey writes a payload to a key, substituting a blank image for nil.
// Call without m.mu held.
func (m *MacroDeck) pushKey(key int, payload []byte) error {
	if payload == nil {
		m.mu.Lock()
		var err error
		payload, err = m.blankLocked()
		m.mu.Unlock()
		if err != nil {
			return err
		}
	}
	return m.deck.SetKeyImage(key, payload)
}

// blankLocked returns the encoded all-black key image, cached after the
// first render. m.mu must be held.
func (m *MacroDeck) blankLocked() ([]byte, error) {
	if m.blank != nil {
		return m.blank, nil
	}
	payload, err := imagehelper.BlankKeyImage(m.deck)
	if err != nil {
		return nil, err
	}
	m.blank = payload
	return payload, nil
}
