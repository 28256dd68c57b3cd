package transport

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DummyName is the registry name of the in-memory fixture backend.
const DummyName = "dummy"

// RecordKind distinguishes the write interfaces of a dummy device.
type RecordKind int

const (
	// RecordWrite is an output report write.
	RecordWrite RecordKind = iota
	// RecordFeature is a feature report write.
	RecordFeature
)

// Record is one logged write on a dummy device, with the exact bytes
// passed, in call order.
type Record struct {
	Kind RecordKind
	Data []byte
}

// Dummy is a deterministic in-memory transport. Fixture devices are added
// and removed by the test; every write on an open device lands in an
// ordered call log, reads are served from a queue, and faults can be
// injected one call at a time.
type Dummy struct {
	mu      sync.Mutex
	log     *zap.Logger
	devices []*DummyDevice
}

// DummyOption configures a dummy transport.
type DummyOption func(*Dummy)

// WithDummyLogger sets the transport logger.
func WithDummyLogger(l *zap.Logger) DummyOption {
	return func(t *Dummy) { t.log = l }
}

// NewDummy returns an empty dummy transport.
func NewDummy(opts ...DummyOption) *Dummy {
	t := &Dummy{log: zap.NewNop()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Add registers a fixture device and returns it for scripting.
func (t *Dummy) Add(vendorID, productID uint16, serial string) *DummyDevice {
	t.mu.Lock()
	defer t.mu.Unlock()
	d := &DummyDevice{
		log:       t.log,
		path:      fmt.Sprintf("dummy/%04x:%04x/%s", vendorID, productID, serial),
		vendorID:  vendorID,
		productID: productID,
		serial:    serial,
		features:  make(map[byte][]byte),
	}
	t.devices = append(t.devices, d)
	return d
}

// Remove drops the fixture at path; later Enumerate calls no longer see it.
func (t *Dummy) Remove(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	kept := t.devices[:0]
	for _, d := range t.devices {
		if d.path != path {
			kept = append(kept, d)
		}
	}
	t.devices = kept
}

// Device returns the fixture at path.
func (t *Dummy) Device(path string) (*DummyDevice, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, d := range t.devices {
		if d.path == path {
			return d, true
		}
	}
	return nil, false
}

// Enumerate lists the registered fixtures matching vendorID/productID; zero
// values match anything.
func (t *Dummy) Enumerate(vendorID, productID uint16) ([]DeviceInfo, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var infos []DeviceInfo
	for _, d := range t.devices {
		if vendorID != 0 && d.vendorID != vendorID {
			continue
		}
		if productID != 0 && d.productID != productID {
			continue
		}
		infos = append(infos, DeviceInfo{
			Path:         d.path,
			VendorID:     d.vendorID,
			ProductID:    d.productID,
			Serial:       d.serial,
			Manufacturer: "griddeck",
			Product:      "dummy deck",
			opener:       t.open,
		})
	}
	return infos, nil
}

func (t *Dummy) open(path string) (Conn, error) {
	d, ok := t.Device(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return d.open()
}

// DummyDevice is one scripted fixture. It implements Conn itself, so a
// test holding the fixture can inspect exactly what the core wrote to it.
type DummyDevice struct {
	log       *zap.Logger
	path      string
	vendorID  uint16
	productID uint16
	serial    string

	mu       sync.Mutex
	opened   bool
	reads    [][]byte
	features map[byte][]byte
	records  []Record
	writeErr error
	readErr  error
}

// Path returns the fixture's device path.
func (d *DummyDevice) Path() string { return d.path }

func (d *DummyDevice) open() (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.opened {
		return nil, fmt.Errorf("%w: %s", ErrBusy, d.path)
	}
	d.opened = true
	d.log.Debug("deck opened", zap.String("path", d.path))
	return d, nil
}

// Opened reports whether the fixture currently has an open connection.
func (d *DummyDevice) Opened() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opened
}

// QueueInput appends one input report to the read queue.
func (d *DummyDevice) QueueInput(report []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reads = append(d.reads, append([]byte(nil), report...))
}

// SetFeature configures the response for a feature report ID. The data is
// the full report as the device would return it, ID byte included.
func (d *DummyDevice) SetFeature(id byte, data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.features[id] = append([]byte(nil), data...)
}

// FailNextWrite makes the next Write or SendFeature fail with err.
func (d *DummyDevice) FailNextWrite(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writeErr = err
}

// FailNextRead makes the next Read fail with err.
func (d *DummyDevice) FailNextRead(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.readErr = err
}

// Records returns a copy of the ordered write log.
func (d *DummyDevice) Records() []Record {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Record, len(d.records))
	for i, r := range d.records {
		out[i] = Record{Kind: r.Kind, Data: append([]byte(nil), r.Data...)}
	}
	return out
}

// Writes returns the payloads of the logged output report writes, in order.
func (d *DummyDevice) Writes() [][]byte {
	return d.byKind(RecordWrite)
}

// FeatureWrites returns the payloads of the logged feature writes, in order.
func (d *DummyDevice) FeatureWrites() [][]byte {
	return d.byKind(RecordFeature)
}

func (d *DummyDevice) byKind(kind RecordKind) [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out [][]byte
	for _, r := range d.records {
		if r.Kind == kind {
			out = append(out, append([]byte(nil), r.Data...))
		}
	}
	return out
}

// ClearLog discards the write log.
func (d *DummyDevice) ClearLog() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.records = nil
}

// Read pops the next queued input report. It returns ErrReadTimeout
// immediately when the queue is empty; the timeout parameter is not
// simulated, keeping tests fast and deterministic.
func (d *DummyDevice) Read(p []byte, timeout time.Duration) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.readErr != nil {
		err := d.readErr
		d.readErr = nil
		return 0, err
	}
	if len(d.reads) == 0 {
		return 0, ErrReadTimeout
	}
	report := d.reads[0]
	d.reads = d.reads[1:]
	return copy(p, report), nil
}

func (d *DummyDevice) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.writeErr != nil {
		err := d.writeErr
		d.writeErr = nil
		return 0, err
	}
	d.records = append(d.records, Record{Kind: RecordWrite, Data: append([]byte(nil), p...)})
	d.log.Debug("deck report write",
		zap.String("path", d.path), zap.Int("length", len(p)))
	return len(p), nil
}

func (d *DummyDevice) SendFeature(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.writeErr != nil {
		err := d.writeErr
		d.writeErr = nil
		return 0, err
	}
	d.records = append(d.records, Record{Kind: RecordFeature, Data: append([]byte(nil), p...)})
	d.log.Debug("deck feature write",
		zap.String("path", d.path), zap.Int("length", len(p)))
	return len(p), nil
}

func (d *DummyDevice) GetFeature(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(p) == 0 {
		return 0, nil
	}
	if data, ok := d.features[p[0]]; ok {
		return copy(p, data), nil
	}
	// Unconfigured feature reports read back as zeros.
	for i := 1; i < len(p); i++ {
		p[i] = 0
	}
	return len(p), nil
}

func (d *DummyDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opened = false
	d.log.Debug("deck closed", zap.String("path", d.path))
	return nil
}
