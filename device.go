// Package griddeck drives USB HID key panels ("decks") with per-key
// displays, rotary dials, and touch surfaces. A capability table maps
// vendor/product pairs to protocol families; Device is the uniform handle
// over all of them, Manager enumerates attached hardware, and Monitor
// watches for attach and detach.
package griddeck

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/griddeck/griddeck/transport"
)

// fadeDelay is the pause between brightness steps during a fade.
const fadeDelay = 10 * time.Millisecond

// protocol is the wire dialect of one device family. Every method is
// invoked with d.mu held and performs its I/O through the locked helpers
// on Device; decodeInput only mutates the input snapshot.
type protocol interface {
	open(d *Device) error
	shutdown(d *Device) error
	reset(d *Device) error
	clear(d *Device) error
	flush(d *Device) error
	setBrightness(d *Device, percent int) error
	setKeyImage(d *Device, key int, payload []byte) error
	setTouchscreenImage(d *Device, payload []byte, x, y, w, h int) error
	setScreenImage(d *Device, payload []byte) error
	setKeyColor(d *Device, key int, r, g, b uint8) error
	serial(d *Device) (string, error)
	firmware(d *Device) (string, error)
	decodeInput(d *Device, report []byte)
}

// baseProto supplies the defaults shared by the families: no handshake or
// parting writes, and unsupported secondary surfaces.
type baseProto struct{}

func (baseProto) open(*Device) error     { return nil }
func (baseProto) shutdown(*Device) error { return nil }
func (baseProto) flush(*Device) error    { return nil }

func (baseProto) setTouchscreenImage(*Device, []byte, int, int, int, int) error {
	return ErrUnsupported
}

func (baseProto) setScreenImage(*Device, []byte) error { return ErrUnsupported }

func (baseProto) setKeyColor(*Device, int, uint8, uint8, uint8) error {
	return ErrUnsupported
}

// Device is the handle to one deck. All transport access is serialized by
// an internal mutex. The handle moves Closed -> Open -> Closed; any
// non-timeout transport error closes it again, and every later operation
// fails with ErrNotOpen until Open is called anew.
type Device struct {
	model Model
	info  transport.DeviceInfo
	log   *zap.Logger

	mu             sync.Mutex
	conn           transport.Conn
	keyStates      []bool
	dialStates     []DialState
	pendingTouch   []TouchEvent
	pendingRelease int

	sleepMu            sync.Mutex
	asleep             bool
	brightness         int
	preSleepBrightness int
	fadeDuration       time.Duration
	sleepTimeout       time.Duration
	lastActionTime     time.Time
	sleepCancel        context.CancelFunc
}

// DeviceOption configures a Device handle.
type DeviceOption func(*Device)

// WithDeviceLogger attaches a logger to the handle.
func WithDeviceLogger(log *zap.Logger) DeviceOption {
	return func(d *Device) {
		if log != nil {
			d.log = log
		}
	}
}

// NewDevice builds a closed handle binding a capability descriptor to an
// enumerated transport device.
func NewDevice(info transport.DeviceInfo, model Model, opts ...DeviceOption) *Device {
	d := &Device{
		model:          model,
		info:           info,
		log:            zap.NewNop(),
		pendingRelease: -1,
		brightness:     100,
		lastActionTime: time.Now(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ID returns the transport path identifying this device.
func (d *Device) ID() string { return d.info.Path }

// Info returns the enumeration record the handle was built from.
func (d *Device) Info() transport.DeviceInfo { return d.info }

// Model returns the capability descriptor.
func (d *Device) Model() Model { return d.model }

// Name returns the model's display name.
func (d *Device) Name() string { return d.model.Name }

// KeyCount returns the number of physical keys.
func (d *Device) KeyCount() int { return d.model.Keys }

// Rows returns the number of key rows.
func (d *Device) Rows() int { return d.model.Rows }

// Columns returns the number of key columns.
func (d *Device) Columns() int { return d.model.Columns }

// DialCount returns the number of rotary dials.
func (d *Device) DialCount() int { return d.model.Dials }

// TouchKeyCount returns the number of touch keys beyond the physical grid.
func (d *Device) TouchKeyCount() int { return d.model.TouchKeys }

// Pixels returns the pixel edge length of one key display.
func (d *Device) Pixels() int { return d.model.Pixels }

// DPI returns the pixel density of the key displays.
func (d *Device) DPI() int { return d.model.DPI }

// Padding returns the pixel gap between neighboring key displays.
func (d *Device) Padding() int { return d.model.Padding }

// Visual reports whether the model has key displays at all.
func (d *Device) Visual() bool { return d.model.Visual }

// HasTouchscreen reports whether the model carries a touch strip.
func (d *Device) HasTouchscreen() bool { return d.model.HasTouchscreen() }

// KeyImageFormat returns the native image format of one key display.
func (d *Device) KeyImageFormat() ImageFormat { return d.model.KeyFormat }

// TouchscreenSize returns the touch strip dimensions, zero without one.
func (d *Device) TouchscreenSize() (w, h int) {
	return d.model.TouchscreenSize.X, d.model.TouchscreenSize.Y
}

// TouchscreenImageFormat returns the native format of the touch strip.
func (d *Device) TouchscreenImageFormat() ImageFormat { return d.model.TouchscreenFormat }

// ScreenSize returns the info screen dimensions, zero without one.
func (d *Device) ScreenSize() (w, h int) {
	return d.model.ScreenSize.X, d.model.ScreenSize.Y
}

// ScreenImageFormat returns the native format of the info screen.
func (d *Device) ScreenImageFormat() ImageFormat { return d.model.ScreenFormat }

// IsOpen reports whether the handle currently holds a live connection.
func (d *Device) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conn != nil
}

// Open connects the transport and runs the family's handshake. Opening an
// already open handle is a no-op.
func (d *Device) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn != nil {
		return nil
	}

	conn, err := d.info.Open()
	if err != nil {
		return fmt.Errorf("opening %s: %w", d.info.Path, err)
	}
	d.conn = conn
	d.resetInputLocked()

	if err := d.model.proto.open(d); err != nil {
		return err
	}
	d.log.Info("deck opened",
		zap.String("model", d.model.Name),
		zap.String("path", d.info.Path))
	return nil
}

// Close runs the family's parting sequence and releases the transport.
// Closing a closed handle is a no-op.
func (d *Device) Close() error {
	d.cancelSleepTimer()

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil {
		return nil
	}

	// Parting writes are best effort; the transport is released regardless.
	if err := d.model.proto.shutdown(d); err != nil {
		d.log.Debug("shutdown sequence failed", zap.Error(err))
	}
	if d.conn == nil {
		return nil
	}

	err := d.conn.Close()
	d.conn = nil
	d.log.Info("deck closed", zap.String("path", d.info.Path))
	return err
}

// Reset restores the deck to its default state, blanking all key displays.
func (d *Device) Reset() error {
	if !d.model.Visual {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.model.proto.reset(d)
}

// Clear blanks every key display without touching the rest of the device
// state. Families without a dedicated clear command fall back to Reset.
func (d *Device) Clear() error {
	if !d.model.Visual {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.model.proto.clear(d)
}

// Flush completes any in-flight display uploads. A no-op on families that
// apply images immediately.
func (d *Device) Flush() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil {
		return ErrNotOpen
	}
	return d.model.proto.flush(d)
}

// SetBrightness sets the backlight of all key displays to a percentage.
// Values outside [0,100] fail before any transport write. While the deck
// is asleep a non-zero value is remembered for wake-up instead of written.
func (d *Device) SetBrightness(percent int) error {
	if percent < 0 || percent > 100 {
		return fmt.Errorf("%w: %d", ErrInvalidBrightness, percent)
	}
	if !d.model.Visual {
		return fmt.Errorf("%w: %s has no backlight", ErrUnsupported, d.model.Name)
	}

	d.sleepMu.Lock()
	if d.asleep && percent > 0 {
		d.preSleepBrightness = percent
		d.sleepMu.Unlock()
		return nil
	}
	d.brightness = percent
	d.sleepMu.Unlock()

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.model.proto.setBrightness(d, percent)
}

// SetKeyImage uploads a pre-encoded native image payload to one key
// display. The payload must already match the model's KeyImageFormat.
func (d *Device) SetKeyImage(key int, payload []byte) error {
	if !d.model.Visual {
		return fmt.Errorf("%w: %s has no key displays", ErrUnsupported, d.model.Name)
	}
	if key < 0 || key >= d.model.Keys {
		return fmt.Errorf("%w: %d", ErrInvalidKey, key)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.model.proto.setKeyImage(d, key, payload)
}

// SetTouchscreenImage uploads a pre-encoded payload to a rectangle of the
// touch strip.
func (d *Device) SetTouchscreenImage(payload []byte, x, y, w, h int) error {
	if !d.model.HasTouchscreen() {
		return fmt.Errorf("%w: %s has no touchscreen", ErrUnsupported, d.model.Name)
	}
	if x < 0 || y < 0 || w <= 0 || h <= 0 ||
		x+w > d.model.TouchscreenSize.X || y+h > d.model.TouchscreenSize.Y {
		return fmt.Errorf("%w: %dx%d at (%d,%d)", ErrInvalidRect, w, h, x, y)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.model.proto.setTouchscreenImage(d, payload, x, y, w, h)
}

// SetScreenImage uploads a pre-encoded payload to the info screen.
func (d *Device) SetScreenImage(payload []byte) error {
	if !d.model.HasScreen() {
		return fmt.Errorf("%w: %s has no screen", ErrUnsupported, d.model.Name)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.model.proto.setScreenImage(d, payload)
}

// SetKeyColor sets the backlight color of a touch key. Touch keys occupy
// the canonical indices directly above the physical grid.
func (d *Device) SetKeyColor(key int, r, g, b uint8) error {
	if d.model.TouchKeys == 0 {
		return fmt.Errorf("%w: %s has no touch keys", ErrUnsupported, d.model.Name)
	}
	if key < d.model.Keys || key >= d.model.Keys+d.model.TouchKeys {
		return fmt.Errorf("%w: %d", ErrInvalidKey, key)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.model.proto.setKeyColor(d, key, r, g, b)
}

// Serial returns the device serial number.
func (d *Device) Serial() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil {
		return "", ErrNotOpen
	}
	return d.model.proto.serial(d)
}

// FirmwareVersion returns the device firmware revision.
func (d *Device) FirmwareVersion() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil {
		return "", ErrNotOpen
	}
	return d.model.proto.firmware(d)
}

// ReadInput reads and decodes at most one input report. When no report
// arrives within the timeout the previous logical state is returned with
// no events and zero dial deltas. Key activity on a sleeping deck wakes it
// and is otherwise swallowed.
func (d *Device) ReadInput(timeout time.Duration) (InputState, error) {
	d.mu.Lock()
	if d.conn == nil {
		d.mu.Unlock()
		return InputState{}, ErrNotOpen
	}

	// Dial motion and synthesized releases are consumed by each read.
	d.clearMomentaryLocked()

	buf := make([]byte, d.model.inputLen)
	n, err := d.conn.Read(buf, timeout)
	if err != nil {
		if errors.Is(err, transport.ErrReadTimeout) {
			st := d.snapshotLocked()
			d.mu.Unlock()
			return st, nil
		}
		d.failLocked()
		d.mu.Unlock()
		return InputState{}, fmt.Errorf("reading input report: %w", err)
	}

	woke := false
	if n > 0 {
		if d.isAsleep() {
			woke = true
		} else {
			d.model.proto.decodeInput(d, buf[:n])
			d.markActivity()
		}
	}
	st := d.snapshotLocked()
	d.mu.Unlock()

	if woke {
		if err := d.Wake(); err != nil {
			d.log.Debug("wake on input failed", zap.Error(err))
		}
	}
	return st, nil
}

// KeyStates returns a copy of the last observed key states.
func (d *Device) KeyStates() []bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]bool(nil), d.keyStates...)
}

// DialStates returns a copy of the last observed dial states.
func (d *Device) DialStates() []DialState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]DialState(nil), d.dialStates...)
}

// Sleep dims the deck to black, remembering the brightness for Wake.
func (d *Device) Sleep() error {
	d.sleepMu.Lock()
	if d.asleep {
		d.sleepMu.Unlock()
		return nil
	}
	pre := d.brightness
	fade := d.fadeDuration
	d.sleepMu.Unlock()

	if err := d.Fade(pre, 0, fade); err != nil {
		return err
	}

	d.sleepMu.Lock()
	d.preSleepBrightness = pre
	d.asleep = true
	d.sleepMu.Unlock()

	return d.SetBrightness(0)
}

// Wake restores the brightness the deck had when it fell asleep.
func (d *Device) Wake() error {
	d.sleepMu.Lock()
	if !d.asleep {
		d.sleepMu.Unlock()
		return nil
	}
	d.asleep = false
	pre := d.preSleepBrightness
	fade := d.fadeDuration
	d.sleepMu.Unlock()

	if err := d.Fade(0, pre, fade); err != nil {
		return err
	}

	d.sleepMu.Lock()
	d.lastActionTime = time.Now()
	d.sleepMu.Unlock()

	return d.SetBrightness(pre)
}

// Asleep reports whether the deck is currently sleeping.
func (d *Device) Asleep() bool { return d.isAsleep() }

// Fade ramps the brightness from start to end over the given duration.
func (d *Device) Fade(start, end int, duration time.Duration) error {
	if duration <= 0 || start == end {
		return nil
	}

	step := (float64(end) - float64(start)) / (float64(duration) / float64(fadeDelay))
	for current := float64(start); ; current += step {
		if step < 0 && current <= float64(end) {
			break
		} else if step > 0 && current >= float64(end) {
			break
		}
		if err := d.SetBrightness(int(current)); err != nil {
			return err
		}
		time.Sleep(fadeDelay)
	}
	return nil
}

// SetSleepFadeDuration sets how long Sleep and Wake take to ramp the
// brightness.
func (d *Device) SetSleepFadeDuration(t time.Duration) {
	d.sleepMu.Lock()
	d.fadeDuration = t
	d.sleepMu.Unlock()
}

// SetSleepTimeout puts the deck to sleep automatically once no input has
// arrived for the given duration. Zero disables the timer.
func (d *Device) SetSleepTimeout(timeout time.Duration) {
	d.sleepMu.Lock()
	if d.sleepCancel != nil {
		d.sleepCancel()
		d.sleepCancel = nil
	}
	d.sleepTimeout = timeout
	if timeout == 0 {
		d.sleepMu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	d.sleepCancel = cancel
	d.sleepMu.Unlock()

	go d.sleepLoop(ctx)
}

func (d *Device) sleepLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.sleepMu.Lock()
			idle := !d.asleep && d.sleepTimeout > 0 &&
				time.Since(d.lastActionTime) >= d.sleepTimeout
			d.sleepMu.Unlock()

			if idle {
				if err := d.Sleep(); err != nil {
					d.log.Debug("auto-sleep failed", zap.Error(err))
				}
			}
		}
	}
}

func (d *Device) cancelSleepTimer() {
	d.sleepMu.Lock()
	if d.sleepCancel != nil {
		d.sleepCancel()
		d.sleepCancel = nil
	}
	d.sleepMu.Unlock()
}

func (d *Device) isAsleep() bool {
	d.sleepMu.Lock()
	defer d.sleepMu.Unlock()
	return d.asleep
}

func (d *Device) markActivity() {
	d.sleepMu.Lock()
	d.lastActionTime = time.Now()
	d.sleepMu.Unlock()
}

// resetInputLocked sizes the logical input state for the model.
func (d *Device) resetInputLocked() {
	d.keyStates = make([]bool, d.model.Keys+d.model.TouchKeys)
	d.dialStates = make([]DialState, d.model.Dials)
	d.pendingTouch = nil
	d.pendingRelease = -1
}

func (d *Device) clearMomentaryLocked() {
	if d.pendingRelease >= 0 {
		if d.pendingRelease < len(d.keyStates) {
			d.keyStates[d.pendingRelease] = false
		}
		d.pendingRelease = -1
	}
	for i := range d.dialStates {
		d.dialStates[i].Delta = 0
	}
}

// snapshotLocked copies the logical state; pending touch events are
// delivered exactly once.
func (d *Device) snapshotLocked() InputState {
	st := InputState{
		Keys:  append([]bool(nil), d.keyStates...),
		Dials: append([]DialState(nil), d.dialStates...),
	}
	if len(d.pendingTouch) > 0 {
		st.Touch = d.pendingTouch
		d.pendingTouch = nil
	}
	return st
}

// decodeKeyStates applies a plain key-state report: one byte per raw key
// position starting at the model's input offset, remapped to canonical
// indices.
func (d *Device) decodeKeyStates(report []byte) {
	off := d.model.keyOffset
	for raw := 0; raw < len(d.keyStates); raw++ {
		i := off + raw
		if i >= len(report) {
			break
		}
		k := d.model.rawToKey(raw)
		if k >= 0 && k < len(d.keyStates) {
			d.keyStates[k] = report[i] != 0
		}
	}
}

// failLocked tears the connection down after a transport error. The
// handle stays closed until reopened.
func (d *Device) failLocked() {
	if d.conn == nil {
		return
	}
	_ = d.conn.Close()
	d.conn = nil
	d.log.Warn("deck handle invalidated", zap.String("path", d.info.Path))
}

// writeLocked sends one output report. Callers hold d.mu.
func (d *Device) writeLocked(p []byte) error {
	if d.conn == nil {
		return ErrNotOpen
	}
	if _, err := d.conn.Write(p); err != nil {
		d.failLocked()
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

// sendFeatureLocked sends one feature report. Callers hold d.mu.
func (d *Device) sendFeatureLocked(p []byte) error {
	if d.conn == nil {
		return ErrNotOpen
	}
	if _, err := d.conn.SendFeature(p); err != nil {
		d.failLocked()
		return fmt.Errorf("writing feature report: %w", err)
	}
	return nil
}

// getFeatureLocked reads the feature report with the given ID at the
// model's feature length. Callers hold d.mu.
func (d *Device) getFeatureLocked(id byte) ([]byte, error) {
	if d.conn == nil {
		return nil, ErrNotOpen
	}
	p := make([]byte, d.model.featureLen)
	p[0] = id
	if _, err := d.conn.GetFeature(p); err != nil {
		d.failLocked()
		return nil, fmt.Errorf("reading feature report %#02x: %w", id, err)
	}
	return p, nil
}

// featureStringLocked reads a feature report and extracts the
// NUL-terminated string starting at offset.
func (d *Device) featureStringLocked(id byte, offset int) (string, error) {
	p, err := d.getFeatureLocked(id)
	if err != nil {
		return "", err
	}
	if offset >= len(p) {
		return "", nil
	}
	s, _, _ := strings.Cut(string(p[offset:]), "\x00")
	return s, nil
}
