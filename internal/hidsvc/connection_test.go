package hidsvc

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/terriblefail/accesswatch/internal/config"
	"go.uber.org/zap/zaptest"
)

var testIdentity = config.Identity{
	VendorID:  0x1234,
	ProductID: 0x5678,
	UsagePage: 0x1,
	Usage:     0x6,
}

func matchingInfo() DeviceInfo {
	return DeviceInfo{
		Path:      "/dev/hidraw3",
		VendorID:  0x1234,
		ProductID: 0x5678,
		UsagePage: 0x1,
		Usage:     0x6,
		Product:   "Test Keyboard",
	}
}

type fakeDevice struct {
	mu        sync.Mutex
	frames    chan []byte
	writes    [][]byte
	writeErrs []error // consumed per write; nil entry means success
	closeErr  error
	closed    bool
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{frames: make(chan []byte, 16)}
}

func (d *fakeDevice) ReadWithTimeout(b []byte, timeout time.Duration) (int, error) {
	select {
	case f, ok := <-d.frames:
		if !ok {
			return 0, errors.New("device disconnected")
		}
		return copy(b, f), nil
	case <-time.After(timeout):
		return 0, nil
	}
}

func (d *fakeDevice) Write(b []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	buf := append([]byte(nil), b...)
	d.writes = append(d.writes, buf)
	if len(d.writeErrs) > 0 {
		err := d.writeErrs[0]
		d.writeErrs = d.writeErrs[1:]
		if err != nil {
			return 0, err
		}
	}
	return len(b), nil
}

func (d *fakeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return d.closeErr
}

func (d *fakeDevice) writeCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.writes)
}

func (d *fakeDevice) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

type fakeBackend struct {
	mu         sync.Mutex
	devices    []DeviceInfo
	device     *fakeDevice
	openErr    error
	enumerates int
}

func (b *fakeBackend) Enumerate() ([]DeviceInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.enumerates++
	return append([]DeviceInfo(nil), b.devices...), nil
}

func (b *fakeBackend) Open(path string) (Device, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.openErr != nil {
		return nil, b.openErr
	}
	return b.device, nil
}

func (b *fakeBackend) enumerateCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.enumerates
}

func fastConnOptions() []ConnectionOption {
	return []ConnectionOption{
		WithSettleDelay(time.Millisecond),
		WithWriteBackoff(time.Millisecond),
		WithReadTimeout(20 * time.Millisecond),
	}
}

func TestConnectRequiresExactTupleMatch(t *testing.T) {
	almost := matchingInfo()
	almost.Usage = 0x7 // same vid/pid, wrong usage
	backend := &fakeBackend{
		devices: []DeviceInfo{almost, matchingInfo()},
		device:  newFakeDevice(),
	}
	conn := NewConnection(zaptest.NewLogger(t), backend, testIdentity)

	require.NoError(t, conn.Connect())
	assert.True(t, conn.Open())
	assert.Equal(t, "/dev/hidraw3", conn.Info().Path)
}

func TestConnectNotFound(t *testing.T) {
	almost := matchingInfo()
	almost.ProductID = 0x9999
	backend := &fakeBackend{devices: []DeviceInfo{almost}}
	conn := NewConnection(zaptest.NewLogger(t), backend, testIdentity)

	err := conn.Connect()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDeviceNotFound))
	assert.False(t, conn.Open())
}

func TestRequestCurrentStateRetriesExactlyFiveTimes(t *testing.T) {
	dev := newFakeDevice()
	dev.writeErrs = []error{
		errors.New("busy"), errors.New("busy"), errors.New("busy"),
		errors.New("busy"), errors.New("busy"), errors.New("busy"),
	}
	backend := &fakeBackend{devices: []DeviceInfo{matchingInfo()}, device: dev}
	conn := NewConnection(zaptest.NewLogger(t), backend, testIdentity, fastConnOptions()...)
	require.NoError(t, conn.Connect())

	conn.RequestCurrentState(context.Background())

	assert.Equal(t, 5, dev.writeCount(), "persistent write failure must be retried exactly 5 times")
	assert.True(t, conn.Open(), "connection stays open after retry exhaustion")
}

func TestRequestCurrentStateStopsOnSuccess(t *testing.T) {
	dev := newFakeDevice()
	dev.writeErrs = []error{errors.New("busy"), errors.New("busy"), nil}
	backend := &fakeBackend{devices: []DeviceInfo{matchingInfo()}, device: dev}
	conn := NewConnection(zaptest.NewLogger(t), backend, testIdentity, fastConnOptions()...)
	require.NoError(t, conn.Connect())

	conn.RequestCurrentState(context.Background())

	require.Equal(t, 3, dev.writeCount())
	assert.Equal(t, EncodeLayerQuery(), dev.writes[2])
}

func TestReadFrameTimeoutReturnsNoData(t *testing.T) {
	dev := newFakeDevice()
	backend := &fakeBackend{devices: []DeviceInfo{matchingInfo()}, device: dev}
	conn := NewConnection(zaptest.NewLogger(t), backend, testIdentity, fastConnOptions()...)
	require.NoError(t, conn.Connect())

	frame, err := conn.ReadFrame()
	require.NoError(t, err, "a read timeout is not an error")
	assert.Nil(t, frame)
}

func TestDisconnectSwallowsCloseErrorAndInvalidatesHandle(t *testing.T) {
	dev := newFakeDevice()
	dev.closeErr = errors.New("close failed")
	backend := &fakeBackend{devices: []DeviceInfo{matchingInfo()}, device: dev}
	conn := NewConnection(zaptest.NewLogger(t), backend, testIdentity)
	require.NoError(t, conn.Connect())

	conn.Disconnect()
	assert.True(t, dev.isClosed())
	assert.False(t, conn.Open())

	// second Disconnect is a no-op
	conn.Disconnect()
}
