package hidsvc

import (
	"fmt"
	"strings"
	"time"

	"github.com/sstallion/go-hid"
)

// Backend abstracts host HID access so the connection lifecycle can be
// exercised without hardware.
type Backend interface {
	// Enumerate lists every HID interface currently present on the host.
	Enumerate() ([]DeviceInfo, error)
	// Open opens the interface at the given platform path.
	Open(path string) (Device, error)
}

// Device is one open HID interface handle.
type Device interface {
	// ReadWithTimeout blocks up to timeout for an input report. A zero
	// count with a nil error means no report arrived in time.
	ReadWithTimeout(b []byte, timeout time.Duration) (int, error)
	Write(b []byte) (int, error)
	Close() error
}

// DeviceInfo describes one enumerated HID interface.
type DeviceInfo struct {
	Path         string `json:"path"`
	VendorID     uint16 `json:"vendorId"`
	ProductID    uint16 `json:"productId"`
	UsagePage    uint16 `json:"usagePage"`
	Usage        uint16 `json:"usage"`
	Manufacturer string `json:"manufacturer,omitempty"`
	Product      string `json:"product,omitempty"`
}

// Address is the stable identifier used for the seen-device registry and
// logging.
func (d DeviceInfo) Address() string {
	return fmt.Sprintf("%04x:%04x:%04x:%04x", d.VendorID, d.ProductID, d.UsagePage, d.Usage)
}

func (d DeviceInfo) Name() string {
	var parts []string
	if d.Manufacturer != "" {
		parts = append(parts, d.Manufacturer)
	}
	if d.Product != "" {
		parts = append(parts, d.Product)
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%04x:%04x", d.VendorID, d.ProductID)
	}
	return strings.Join(parts, " ")
}

// HidapiBackend implements Backend on top of the hidapi library.
type HidapiBackend struct{}

func NewHidapiBackend() *HidapiBackend {
	hid.Init()
	return &HidapiBackend{}
}

func (b *HidapiBackend) Enumerate() ([]DeviceInfo, error) {
	var devices []DeviceInfo
	err := hid.Enumerate(hid.VendorIDAny, hid.ProductIDAny, func(info *hid.DeviceInfo) error {
		devices = append(devices, DeviceInfo{
			Path:         info.Path,
			VendorID:     info.VendorID,
			ProductID:    info.ProductID,
			UsagePage:    info.UsagePage,
			Usage:        info.Usage,
			Manufacturer: info.MfrStr,
			Product:      info.ProductStr,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate HID devices: %w", err)
	}
	return devices, nil
}

func (b *HidapiBackend) Open(path string) (Device, error) {
	dev, err := hid.OpenPath(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return dev, nil
}
