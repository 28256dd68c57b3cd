// Package transport provides the byte-level backends used to talk to deck
// hardware. A Transport enumerates attached devices; opening a DeviceInfo
// yields a Conn carrying raw HID reports. Two backends ship with the
// package: USB for real hardware and Dummy, a deterministic in-memory
// fixture for tests.
package transport

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

var (
	// ErrReadTimeout is returned by Conn.Read when no input report arrives
	// within the given timeout.
	ErrReadTimeout = errors.New("read timed out")

	// ErrBusy is returned when opening a device that already has an open
	// connection.
	ErrBusy = errors.New("device already open")

	// ErrNotFound is returned when opening a path the transport does not
	// know about.
	ErrNotFound = errors.New("device not found")

	// ErrUnknownTransport is returned by Registry.Lookup for an
	// unregistered name.
	ErrUnknownTransport = errors.New("unknown transport")
)

// Conn is an open byte-level connection to a single device. Reports passed
// to Write and SendFeature carry the report ID in their first byte.
type Conn interface {
	// Read reads at most one input report into p, waiting up to timeout
	// for one to arrive. It fails with ErrReadTimeout when none does.
	Read(p []byte, timeout time.Duration) (int, error)
	Write(p []byte) (int, error)
	SendFeature(p []byte) (int, error)
	// GetFeature reads the feature report whose ID is in p[0] into p.
	GetFeature(p []byte) (int, error)
	Close() error
}

// DeviceInfo describes one enumerated device.
type DeviceInfo struct {
	Path         string
	VendorID     uint16
	ProductID    uint16
	Serial       string
	Manufacturer string
	Product      string

	opener func(path string) (Conn, error)
}

// Open opens a connection to the device this info describes.
func (i DeviceInfo) Open() (Conn, error) {
	if i.opener == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, i.Path)
	}
	return i.opener(i.Path)
}

// Transport enumerates attached devices. A zero vendorID or productID acts
// as a wildcard.
type Transport interface {
	Enumerate(vendorID, productID uint16) ([]DeviceInfo, error)
}

// Registry maps transport names to backends. Callers build their own
// registry (or take griddeck.DefaultRegistry) and hand it to the device
// manager; there is no process-global registry.
type Registry struct {
	mu       sync.Mutex
	backends map[string]Transport
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{backends: make(map[string]Transport)}
}

// Register adds or replaces the backend under name.
func (r *Registry) Register(name string, t Transport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[name] = t
}

// Lookup resolves a backend by name.
func (r *Registry) Lookup(name string) (Transport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.backends[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTransport, name)
	}
	return t, nil
}

// Names lists the registered backend names in sorted order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
