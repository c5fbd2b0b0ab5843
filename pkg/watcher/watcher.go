// Package watcher wires the accesswatch services together and owns their
// lifecycle: configuration, logging, the device supervisor, the feedback
// handler and audio dispatch.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger"
	"github.com/terriblefail/accesswatch/internal/config"
	"github.com/terriblefail/accesswatch/internal/feedback"
	"github.com/terriblefail/accesswatch/internal/hidsvc"
	"github.com/terriblefail/accesswatch/internal/soundsvc"
	"github.com/terriblefail/accesswatch/pkg/bus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

// exitCueGrace bounds how long the program_exit cue may keep the process
// alive after the termination signal.
const exitCueGrace = 5 * time.Second

type Watcher struct {
	config config.Config
	log    *zap.Logger

	db      *badger.DB
	events  *hidsvc.EventBus
	sounds  *soundsvc.Dispatcher
	assets  *soundsvc.AssetWatcher
	handler *feedback.Handler
	hidSvc  *hidsvc.Service
}

func New(cfg config.Config) (*Watcher, error) {
	logger, err := buildLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	identity, err := cfg.DeviceIdentity()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	dbOptions := badger.DefaultOptions(filepath.Join(cfg.DataDir, "db"))
	dbOptions.Logger = &badgerLogger{l: logger.Named("badger")}
	db, err := badger.Open(dbOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	events := bus.NewBus[hidsvc.EventKind, hidsvc.Event](logger.Named("bus"))
	cues := soundsvc.CueTable(cfg)
	player := soundsvc.NewBeepPlayer(logger.Named("audio"))
	sounds := soundsvc.NewDispatcher(logger.Named("sound"), player, cues, cfg.Sounds.Volume)
	assets := soundsvc.NewAssetWatcher(logger.Named("assets"), cues)
	handler := feedback.NewHandler(logger.Named("feedback"), events, sounds)
	hidSvc := hidsvc.New(logger.Named("hid"), db, hidsvc.NewHidapiBackend(), identity, events, sounds, time.Now)

	return &Watcher{
		config:  cfg,
		log:     logger,
		db:      db,
		events:  events,
		sounds:  sounds,
		assets:  assets,
		handler: handler,
		hidSvc:  hidSvc,
	}, nil
}

// Run starts every service and blocks until the termination signal. The
// shutdown sequence lets the exit cue and in-flight playback finish on a
// short grace period instead of cutting them off.
func (w *Watcher) Run(ctx context.Context) error {
	w.log.Info("Accessibility watcher started")
	w.sounds.Fire(ctx, soundsvc.CueProgramStart)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return w.events.Start(groupCtx)
	})
	group.Go(func() error {
		return w.assets.Start(groupCtx)
	})
	group.Go(func() error {
		return w.handler.Start(groupCtx)
	})
	group.Go(func() error {
		select {
		case <-groupCtx.Done():
			return nil
		case <-w.handler.Ready():
		}
		return w.hidSvc.Start(groupCtx)
	})
	err := group.Wait()

	graceCtx, cancel := context.WithTimeout(context.Background(), exitCueGrace)
	defer cancel()
	w.sounds.Fire(graceCtx, soundsvc.CueProgramExit)
	w.sounds.Wait()
	w.log.Info("Accessibility watcher exited")

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watcher failed: %w", err)
	}
	return nil
}

func (w *Watcher) Close() error {
	return w.db.Close()
}

// SeenDevices returns the persisted connection records.
func (w *Watcher) SeenDevices() ([]hidsvc.SeenDevice, error) {
	return hidsvc.ListSeenDevices(w.db)
}

func buildLogger(cfg config.Logging) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	loggerConfig := zap.NewDevelopmentConfig()
	loggerConfig.Level = zap.NewAtomicLevelAt(level)
	loggerConfig.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000000000")
	loggerConfig.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	if cfg.File != "" {
		loggerConfig.OutputPaths = append(loggerConfig.OutputPaths, cfg.File)
	}
	return loggerConfig.Build()
}

type badgerLogger struct {
	l *zap.Logger
}

func (l badgerLogger) Errorf(msg string, args ...any) {
	l.l.Error(fmt.Sprintf(msg, args...))
}

func (l badgerLogger) Warningf(msg string, args ...any) {
	l.l.Warn(fmt.Sprintf(msg, args...))
}

func (l badgerLogger) Infof(msg string, args ...any) {
	l.l.Info(fmt.Sprintf(msg, args...))
}

func (l badgerLogger) Debugf(msg string, args ...any) {
	l.l.Debug(fmt.Sprintf(msg, args...))
}
