package macrodeck

import (
	"image"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/griddeck/griddeck"
)

// fakeDeck is a scripted Deck: pushed images land in an ordered log,
// reads are served from a queue, and an empty queue returns the previous
// logical state the way a timed-out device read does.
type fakeDeck struct {
	rows   int
	cols   int
	dials  int
	touch  bool
	visual bool
	format griddeck.ImageFormat

	mu      sync.Mutex
	opened  bool
	pushes  []keyPush
	flushes int
	resets  int
	queue   []griddeck.InputState
	last    griddeck.InputState
	readErr error
}

type keyPush struct {
	key     int
	payload []byte
}

var _ Deck = (*fakeDeck)(nil)

func newFakeDeck() *fakeDeck {
	f := &fakeDeck{
		rows: 2, cols: 3, dials: 2,
		touch: true, visual: true, opened: true,
		format: griddeck.ImageFormat{Size: image.Pt(24, 24), Encoding: griddeck.EncodingBMP},
	}
	f.last = f.state()
	return f
}

func (f *fakeDeck) ID() string { return "fake/0" }

func (f *fakeDeck) KeyCount() int { return f.rows * f.cols }

func (f *fakeDeck) Rows() int { return f.rows }

func (f *fakeDeck) Columns() int { return f.cols }

func (f *fakeDeck) DialCount() int { return f.dials }

func (f *fakeDeck) HasTouchscreen() bool { return f.touch }

func (f *fakeDeck) Visual() bool { return f.visual }

func (f *fakeDeck) KeyImageFormat() griddeck.ImageFormat { return f.format }

func (f *fakeDeck) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opened
}

func (f *fakeDeck) setOpen(open bool) {
	f.mu.Lock()
	f.opened = open
	f.mu.Unlock()
}

func (f *fakeDeck) SetKeyImage(key int, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.opened {
		return griddeck.ErrNotOpen
	}
	f.pushes = append(f.pushes, keyPush{key: key, payload: append([]byte(nil), payload...)})
	return nil
}

func (f *fakeDeck) ReadInput(timeout time.Duration) (griddeck.InputState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.opened {
		return griddeck.InputState{}, griddeck.ErrNotOpen
	}
	if f.readErr != nil {
		err := f.readErr
		f.readErr = nil
		return griddeck.InputState{}, err
	}
	if len(f.queue) > 0 {
		st := f.queue[0]
		f.queue = f.queue[1:]
		f.last = st
		return st, nil
	}
	// No report: the previous state with momentary values cleared.
	st := griddeck.InputState{
		Keys:  append([]bool(nil), f.last.Keys...),
		Dials: append([]griddeck.DialState(nil), f.last.Dials...),
	}
	for i := range st.Dials {
		st.Dials[i].Delta = 0
	}
	return st, nil
}

func (f *fakeDeck) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	return nil
}

func (f *fakeDeck) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushes++
	return nil
}

// state returns an all-idle input state shaped for the fake.
func (f *fakeDeck) state() griddeck.InputState {
	return griddeck.InputState{
		Keys:  make([]bool, f.rows*f.cols),
		Dials: make([]griddeck.DialState, f.dials),
	}
}

// pressState returns a state with the given keys held down.
func (f *fakeDeck) pressState(keys ...int) griddeck.InputState {
	st := f.state()
	for _, k := range keys {
		st.Keys[k] = true
	}
	return st
}

func (f *fakeDeck) feed(st griddeck.InputState) {
	f.mu.Lock()
	f.queue = append(f.queue, st)
	f.mu.Unlock()
}

func (f *fakeDeck) feedPress(keys ...int) {
	f.feed(f.pressState(keys...))
}

func (f *fakeDeck) failNextRead(err error) {
	f.mu.Lock()
	f.readErr = err
	f.mu.Unlock()
}

func (f *fakeDeck) pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

func (f *fakeDeck) pushLog() []keyPush {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]keyPush(nil), f.pushes...)
}

func (f *fakeDeck) pushCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pushes)
}

func (f *fakeDeck) flushCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.flushes
}

func (f *fakeDeck) resetCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resets
}

func (f *fakeDeck) clearLog() {
	f.mu.Lock()
	f.pushes = nil
	f.flushes = 0
	f.mu.Unlock()
}

func newTestMacroDeck(t *testing.T) (*MacroDeck, *fakeDeck) {
	t.Helper()
	f := newFakeDeck()
	return New(f, WithLogger(zaptest.NewLogger(t))), f
}

func TestNewDefaults(t *testing.T) {
	m, _ := newTestMacroDeck(t)
	require.True(t, m.Enabled())
	require.False(t, m.LoopRunning())
	require.Empty(t, m.PressedKeys())
	require.Empty(t, m.ConfiguredKeys())
}

func TestEnableDisable(t *testing.T) {
	m, _ := newTestMacroDeck(t)
	m.Disable()
	require.False(t, m.Enabled())
	m.Enable()
	require.True(t, m.Enabled())
}

func TestResetClearsEverything(t *testing.T) {
	m, f := newTestMacroDeck(t)
	require.NoError(t, m.ConfigureKey(0, WithLabel("A")))
	require.NoError(t, m.RegisterKeyMacro(1, func(int) {}))
	require.NoError(t, m.CreateBoard(2, 3, '.'))
	m.Disable()

	require.NoError(t, m.Reset())

	require.Empty(t, m.ConfiguredKeys())
	require.False(t, m.HasKeyMacro(1))
	_, err := m.Board()
	require.ErrorIs(t, err, ErrNoBoard)
	require.True(t, m.Enabled())
	require.Equal(t, 1, f.resetCount())
}

func TestPressedKeysFollowSnapshot(t *testing.T) {
	m, f := newTestMacroDeck(t)

	f.feedPress(0, 4)
	_, _, err := m.poll(time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, []int{0, 4}, m.PressedKeys())

	f.feedPress()
	_, _, err = m.poll(time.Millisecond)
	require.NoError(t, err)
	require.Empty(t, m.PressedKeys())
}

func TestPressedChars(t *testing.T) {
	m, f := newTestMacroDeck(t)

	_, err := m.PressedChars()
	require.ErrorIs(t, err, ErrNoBoard)

	require.NoError(t, m.CreateBoardFromStrings([]string{"abc", "def"}))
	f.feedPress(0, 4)
	_, _, err = m.poll(time.Millisecond)
	require.NoError(t, err)

	chars, err := m.PressedChars()
	require.NoError(t, err)
	require.Equal(t, []rune{'a', 'e'}, chars)
}
