package transport

import (
	"fmt"
	"sync"
	"time"

	hid "github.com/sstallion/go-hid"
	"go.uber.org/zap"
)

// USBName is the registry name of the HID backend.
const USBName = "usb"

// USB talks to real hardware through the platform hidapi library.
type USB struct {
	log *zap.Logger

	once    sync.Once
	initErr error
}

// USBOption configures a USB transport.
type USBOption func(*USB)

// WithUSBLogger sets the transport logger.
func WithUSBLogger(l *zap.Logger) USBOption {
	return func(u *USB) { u.log = l }
}

// NewUSB returns the HID backend. The underlying library is initialized
// lazily on first use.
func NewUSB(opts ...USBOption) *USB {
	u := &USB{log: zap.NewNop()}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *USB) init() error {
	u.once.Do(func() { u.initErr = hid.Init() })
	return u.initErr
}

// Enumerate lists attached HID devices matching vendorID/productID; zero
// values match anything.
func (u *USB) Enumerate(vendorID, productID uint16) ([]DeviceInfo, error) {
	if err := u.init(); err != nil {
		return nil, fmt.Errorf("hid init: %w", err)
	}
	var infos []DeviceInfo
	err := hid.Enumerate(vendorID, productID, func(info *hid.DeviceInfo) error {
		infos = append(infos, DeviceInfo{
			Path:         info.Path,
			VendorID:     info.VendorID,
			ProductID:    info.ProductID,
			Serial:       info.SerialNbr,
			Manufacturer: info.MfrStr,
			Product:      info.ProductStr,
			opener:       u.open,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("enumerate hid devices: %w", err)
	}
	return infos, nil
}

func (u *USB) open(path string) (Conn, error) {
	if err := u.init(); err != nil {
		return nil, fmt.Errorf("hid init: %w", err)
	}
	dev, err := hid.OpenPath(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	u.log.Debug("opened hid device", zap.String("path", path))
	return &usbConn{dev: dev, log: u.log, path: path}, nil
}

type usbConn struct {
	dev  *hid.Device
	log  *zap.Logger
	path string
}

func (c *usbConn) Read(p []byte, timeout time.Duration) (int, error) {
	n, err := c.dev.ReadWithTimeout(p, timeout)
	if err != nil {
		return n, err
	}
	// hidapi signals a timeout as a zero-length read.
	if n == 0 {
		return 0, ErrReadTimeout
	}
	return n, nil
}

func (c *usbConn) Write(p []byte) (int, error) {
	return c.dev.Write(p)
}

func (c *usbConn) SendFeature(p []byte) (int, error) {
	return c.dev.SendFeatureReport(p)
}

func (c *usbConn) GetFeature(p []byte) (int, error) {
	return c.dev.GetFeatureReport(p)
}

func (c *usbConn) Close() error {
	c.log.Debug("closed hid device", zap.String("path", c.path))
	return c.dev.Close()
}
