// Package hidsvc supervises the connection to the keyboard's raw-HID
// interface: enumeration, the layer-query handshake, the frame read loop and
// the reconnect cycle after a disconnect.
package hidsvc

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger"
	"github.com/terriblefail/accesswatch/internal/config"
	"github.com/terriblefail/accesswatch/internal/soundsvc"
	"github.com/terriblefail/accesswatch/pkg/bus"
	"go.uber.org/zap"
)

// EventBus carries decoded input events, keyed by event kind.
type EventBus = bus.Bus[EventKind, Event]

// Sounder fires a named audio cue without blocking the caller.
type Sounder interface {
	Fire(ctx context.Context, cue soundsvc.Cue)
}

// State is the supervisor's connection lifecycle state.
type State uint32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateTerminating
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateTerminating:
		return "terminating"
	case StateStopped:
		return "stopped"
	default:
		return "invalid"
	}
}

var defaultServiceOptions = serviceOptions{
	reconnectInterval: 10 * time.Second,
	idlePollInterval:  1 * time.Second,
	readIdleSleep:     100 * time.Millisecond,
	ioErrorPause:      1 * time.Second,
}

type serviceOptions struct {
	reconnectInterval time.Duration
	idlePollInterval  time.Duration
	readIdleSleep     time.Duration
	ioErrorPause      time.Duration
	connection        []ConnectionOption
}

type Option func(*serviceOptions)

// WithReconnectInterval sets the pause between enumeration attempts while no
// matching device is present.
func WithReconnectInterval(d time.Duration) Option {
	return func(o *serviceOptions) {
		o.reconnectInterval = d
	}
}

func WithIdlePollInterval(d time.Duration) Option {
	return func(o *serviceOptions) {
		o.idlePollInterval = d
	}
}

func WithReadIdleSleep(d time.Duration) Option {
	return func(o *serviceOptions) {
		o.readIdleSleep = d
	}
}

func WithIOErrorPause(d time.Duration) Option {
	return func(o *serviceOptions) {
		o.ioErrorPause = d
	}
}

func WithConnectionOptions(opts ...ConnectionOption) Option {
	return func(o *serviceOptions) {
		o.connection = append(o.connection, opts...)
	}
}

// Service is the top-level device supervisor. It owns the Connection, runs
// the read loop while connected and re-enters enumeration after a
// disconnect. Decoded events are published on the event bus; connection
// lifecycle cues are fired directly.
type Service struct {
	log      *zap.Logger
	db       *badger.DB
	backend  Backend
	identity config.Identity
	bus      *EventBus
	sounds   Sounder
	now      func() time.Time
	options  serviceOptions

	state   atomic.Uint32
	hotplug <-chan struct{}
	ready   chan struct{}
}

func New(log *zap.Logger, db *badger.DB, backend Backend, identity config.Identity, events *EventBus, sounds Sounder, now func() time.Time, opts ...Option) *Service {
	options := defaultServiceOptions
	for _, opt := range opts {
		opt(&options)
	}
	return &Service{
		log:      log,
		db:       db,
		backend:  backend,
		identity: identity,
		bus:      events,
		sounds:   sounds,
		now:      now,
		options:  options,
		ready:    make(chan struct{}),
	}
}

func (s *Service) Ready() <-chan struct{} {
	return s.ready
}

// State returns the current lifecycle state.
func (s *Service) State() State {
	return State(s.state.Load())
}

func (s *Service) transition(to State) {
	from := State(s.state.Swap(uint32(to)))
	if from != to {
		s.log.Debug("State transition", zap.Stringer("from", from), zap.Stringer("to", to))
	}
}

// Start runs the supervisor until ctx is cancelled. It never returns an
// error from device faults; every fault re-enters the reconnect cycle.
func (s *Service) Start(ctx context.Context) error {
	s.hotplug = watchHotplug(ctx, s.log.Named("hotplug"))
	conn := NewConnection(s.log.Named("conn"), s.backend, s.identity, s.options.connection...)
	s.transition(StateDisconnected)
	close(s.ready)
	s.log.Info("Watching for device", zap.String("identity", s.identity.String()))

	for ctx.Err() == nil {
		s.transition(StateConnecting)
		err := conn.Connect()
		switch {
		case errors.Is(err, ErrDeviceNotFound):
			s.transition(StateDisconnected)
			s.log.Debug("No matching device found")
			s.waitReconnect(ctx)
			continue
		case err != nil:
			s.transition(StateDisconnected)
			s.log.Error("Failed to connect to device", zap.Error(err))
			s.sounds.Fire(ctx, soundsvc.CueError)
			s.waitReconnect(ctx)
			continue
		}

		s.recordConnect(conn.Info())
		s.sounds.Fire(ctx, soundsvc.CueKeyboardConnect)
		conn.RequestCurrentState(ctx)

		s.transition(StateConnected)
		s.runConnected(ctx, conn)

		conn.Disconnect()
		s.sounds.Fire(ctx, soundsvc.CueKeyboardDisconnect)
		s.transition(StateDisconnected)
	}

	s.transition(StateTerminating)
	if conn.Open() {
		conn.Disconnect()
		s.sounds.Fire(ctx, soundsvc.CueKeyboardDisconnect)
	}
	s.transition(StateStopped)
	s.log.Info("Device supervisor stopped")
	return nil
}

// runConnected drives the read loop while the connection is open and idles
// on the termination signal. It returns when the read loop surfaces an I/O
// failure or ctx is cancelled; the caller cleans up the connection.
func (s *Service) runConnected(ctx context.Context, conn *Connection) {
	readDone := make(chan error, 1)
	readCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		readDone <- s.readLoop(readCtx, conn)
	}()

	ticker := time.NewTicker(s.options.idlePollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			cancel()
			// The read loop holds the device handle; wait for it to
			// unwind before Disconnect closes the handle.
			<-readDone
			return
		case err := <-readDone:
			if err != nil {
				s.sounds.Fire(ctx, soundsvc.CueError)
			}
			return
		case <-ticker.C:
		}
	}
}

// readLoop reads, decodes and publishes frames until ctx is cancelled or an
// I/O failure occurs. A nil return means a clean shutdown.
func (s *Service) readLoop(ctx context.Context, conn *Connection) error {
	for ctx.Err() == nil {
		frame, err := conn.ReadFrame()
		if err != nil {
			s.log.Error("Device read failed", zap.Error(err))
			sleepCtx(ctx, s.options.ioErrorPause)
			return err
		}
		if frame == nil {
			// read timeout; back off briefly to bound CPU usage
			sleepCtx(ctx, s.options.readIdleSleep)
			continue
		}
		ev, err := DecodeFrame(frame)
		if err != nil {
			s.log.Warn("Discarding invalid frame", zap.Int("length", len(frame)), zap.Error(err))
			continue
		}
		switch ev.Kind {
		case KindUnknown:
			s.log.Warn("Unknown report tag",
				zap.Uint8("tag", ev.RawTag),
				zap.Uint8("payload", ev.Payload))
		case KindLayerQueryReply:
			s.log.Info("Current layer reported", zap.Uint8("layer", ev.Payload))
			s.bus.Publish(ctx, ev.Kind, ev)
		case KindLayerChange, KindCapsWordState:
			s.bus.Publish(ctx, ev.Kind, ev)
		}
	}
	return nil
}

// waitReconnect pauses between enumeration attempts. A hotplug notification
// wakes it early so a freshly plugged keyboard does not wait out the full
// interval.
func (s *Service) waitReconnect(ctx context.Context) {
	t := time.NewTimer(s.options.reconnectInterval)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	case <-s.hotplug:
		s.log.Debug("Hotplug event, retrying enumeration early")
	}
}
