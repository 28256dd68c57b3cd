package griddeck

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/griddeck/griddeck/transport"
)

// Manager enumerates attached decks over one transport and builds handles
// for the models it recognizes.
type Manager struct {
	transport transport.Transport
	name      string
	log       *zap.Logger
}

type managerOptions struct {
	registry  *transport.Registry
	transport string
	log       *zap.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*managerOptions)

// WithTransport selects the transport backend by registry name.
func WithTransport(name string) ManagerOption {
	return func(o *managerOptions) { o.transport = name }
}

// WithRegistry supplies the transport registry to resolve backends from.
func WithRegistry(r *transport.Registry) ManagerOption {
	return func(o *managerOptions) {
		if r != nil {
			o.registry = r
		}
	}
}

// WithManagerLogger attaches a logger to the manager and the handles it
// builds.
func WithManagerLogger(log *zap.Logger) ManagerOption {
	return func(o *managerOptions) {
		if log != nil {
			o.log = log
		}
	}
}

// NewManager resolves the named transport from the registry. The default
// configuration pairs the "usb" backend with DefaultRegistry.
func NewManager(opts ...ManagerOption) (*Manager, error) {
	o := managerOptions{
		transport: transport.USBName,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.registry == nil {
		o.registry = DefaultRegistry()
	}

	t, err := o.registry.Lookup(o.transport)
	if err != nil {
		return nil, err
	}
	return &Manager{transport: t, name: o.transport, log: o.log}, nil
}

// Transport returns the resolved transport backend.
func (m *Manager) Transport() transport.Transport { return m.transport }

// TransportName returns the registry name of the backend in use.
func (m *Manager) TransportName() string { return m.name }

// Enumerate lists every attached deck the capability table recognizes and
// returns closed handles for them. Unknown hardware on the transport is
// skipped.
func (m *Manager) Enumerate() ([]*Device, error) {
	infos, err := m.transport.Enumerate(0, 0)
	if err != nil {
		return nil, fmt.Errorf("enumerating %s devices: %w", m.name, err)
	}

	var devices []*Device
	for _, info := range infos {
		model, ok := LookupModel(info.VendorID, info.ProductID)
		if !ok {
			m.log.Debug("skipping unknown device",
				zap.String("path", info.Path),
				zap.Uint16("vendor", info.VendorID),
				zap.Uint16("product", info.ProductID))
			continue
		}
		devices = append(devices, NewDevice(info, model, WithDeviceLogger(m.log)))
	}
	return devices, nil
}

// DefaultRegistry returns a fresh transport registry with the USB backend
// and a dummy pre-populated with one fixture device per supported model.
func DefaultRegistry() *transport.Registry {
	reg := transport.NewRegistry()
	reg.Register(transport.USBName, transport.NewUSB())

	dummy := transport.NewDummy()
	for i, m := range Models() {
		dummy.Add(m.VendorID, m.ProductID, fmt.Sprintf("DM%04d", i+1))
	}
	reg.Register(transport.DummyName, dummy)
	return reg
}
