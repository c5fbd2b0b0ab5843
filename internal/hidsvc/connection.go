package hidsvc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/terriblefail/accesswatch/internal/config"
	"go.uber.org/zap"
)

// ErrDeviceNotFound is returned by Connect when enumeration finds no
// interface matching the configured identity.
var ErrDeviceNotFound = errors.New("device not found")

type connectionOptions struct {
	settleDelay  time.Duration
	writeRetries int
	writeBackoff time.Duration
	readTimeout  time.Duration
}

var defaultConnectionOptions = connectionOptions{
	settleDelay:  100 * time.Millisecond,
	writeRetries: 5,
	writeBackoff: 200 * time.Millisecond,
	readTimeout:  1000 * time.Millisecond,
}

type ConnectionOption func(*connectionOptions)

func WithSettleDelay(d time.Duration) ConnectionOption {
	return func(o *connectionOptions) {
		o.settleDelay = d
	}
}

func WithWriteBackoff(d time.Duration) ConnectionOption {
	return func(o *connectionOptions) {
		o.writeBackoff = d
	}
}

func WithReadTimeout(d time.Duration) ConnectionOption {
	return func(o *connectionOptions) {
		o.readTimeout = d
	}
}

// Connection owns the open device handle. At most one handle is live at a
// time; after Disconnect or a detected I/O failure the handle is invalid
// and a fresh Connect (with re-enumeration) is required.
type Connection struct {
	log      *zap.Logger
	backend  Backend
	identity config.Identity
	options  connectionOptions

	dev  Device
	info DeviceInfo
}

func NewConnection(log *zap.Logger, backend Backend, identity config.Identity, opts ...ConnectionOption) *Connection {
	options := defaultConnectionOptions
	for _, opt := range opts {
		opt(&options)
	}
	return &Connection{
		log:      log,
		backend:  backend,
		identity: identity,
		options:  options,
	}
}

// Connect enumerates all HID interfaces and opens the first one matching the
// configured {vid, pid, usage page, usage} tuple exactly.
func (c *Connection) Connect() error {
	devices, err := c.backend.Enumerate()
	if err != nil {
		return fmt.Errorf("enumeration failed: %w", err)
	}
	for _, info := range devices {
		if info.VendorID != c.identity.VendorID ||
			info.ProductID != c.identity.ProductID ||
			info.UsagePage != c.identity.UsagePage ||
			info.Usage != c.identity.Usage {
			continue
		}
		dev, err := c.backend.Open(info.Path)
		if err != nil {
			return fmt.Errorf("failed to open matched device: %w", err)
		}
		c.dev = dev
		c.info = info
		c.log.Info("Connected to device",
			zap.String("address", info.Address()),
			zap.String("name", info.Name()))
		return nil
	}
	return ErrDeviceNotFound
}

// Open reports whether a live handle is held.
func (c *Connection) Open() bool {
	return c.dev != nil
}

// Info returns the enumeration record of the currently open device.
func (c *Connection) Info() DeviceInfo {
	return c.info
}

// Disconnect closes the handle if one is open. Close errors are logged,
// never returned; the handle is always invalid afterwards.
func (c *Connection) Disconnect() {
	if c.dev == nil {
		return
	}
	if err := c.dev.Close(); err != nil {
		c.log.Error("Error closing device", zap.Error(err))
	}
	c.dev = nil
	c.log.Info("Disconnected from device")
}

// RequestCurrentState asks the firmware for the active layer. The write is
// attempted up to 5 times with a fixed backoff; exhausting the retries is
// logged but leaves the connection open, since the device may still deliver
// unsolicited events.
func (c *Connection) RequestCurrentState(ctx context.Context) {
	if !sleepCtx(ctx, c.options.settleDelay) {
		return
	}
	for attempt := 1; attempt <= c.options.writeRetries; attempt++ {
		err := c.WriteQuery()
		if err == nil {
			c.log.Info("Requested current layer from device")
			return
		}
		c.log.Error("Failed to request current layer",
			zap.Int("attempt", attempt),
			zap.Int("maxRetries", c.options.writeRetries),
			zap.Error(err))
		if !sleepCtx(ctx, c.options.writeBackoff) {
			return
		}
	}
	c.log.Error("Failed to request current layer after all retries")
}

// WriteQuery writes one layer-query report.
func (c *Connection) WriteQuery() error {
	if c.dev == nil {
		return errors.New("connection is not open")
	}
	if _, err := c.dev.Write(EncodeLayerQuery()); err != nil {
		return fmt.Errorf("query write failed: %w", err)
	}
	return nil
}

// ReadFrame blocks up to the read timeout for one report. No data within
// the timeout returns (nil, nil); this is the cooperative point where the
// read loop re-checks the termination signal.
func (c *Connection) ReadFrame() ([]byte, error) {
	if c.dev == nil {
		return nil, errors.New("connection is not open")
	}
	buf := make([]byte, FrameSize)
	n, err := c.dev.ReadWithTimeout(buf, c.options.readTimeout)
	if err != nil {
		return nil, fmt.Errorf("read failed: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	return buf[:n], nil
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
