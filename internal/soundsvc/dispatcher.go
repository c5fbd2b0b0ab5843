package soundsvc

import (
	"context"
	"os"
	"sync"

	"go.uber.org/zap"
)

// Player is the audio output primitive: play one file to completion or to
// cancellation. Implementations must check ctx between audio chunks rather
// than cutting output mid-buffer.
type Player interface {
	Play(ctx context.Context, path string, volume float64) error
}

// Dispatcher fires cues without blocking the caller. Every Fire spawns an
// independent playback task; overlapping playback is accepted behavior and
// nothing is queued or de-duplicated.
type Dispatcher struct {
	log    *zap.Logger
	player Player
	cues   map[Cue]CueConfig
	volume float64

	wg sync.WaitGroup
}

func NewDispatcher(log *zap.Logger, player Player, cues map[Cue]CueConfig, volume float64) *Dispatcher {
	if volume < 0 {
		volume = 0
	}
	if volume > 1 {
		volume = 1
	}
	return &Dispatcher{
		log:    log,
		player: player,
		cues:   cues,
		volume: volume,
	}
}

// Fire schedules playback of the named cue and returns immediately.
// A disabled cue is a silent no-op; a missing file is logged and dropped.
func (d *Dispatcher) Fire(ctx context.Context, cue Cue) {
	cfg, ok := d.cues[cue]
	if !ok {
		d.log.Warn("Unknown cue", zap.String("cue", string(cue)))
		return
	}
	if !cfg.Enabled {
		d.log.Debug("Cue disabled", zap.String("cue", string(cue)))
		return
	}
	if _, err := os.Stat(cfg.Path); err != nil {
		d.log.Error("Sound file does not exist",
			zap.String("cue", string(cue)),
			zap.String("path", cfg.Path))
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.log.Debug("Playing cue", zap.String("cue", string(cue)), zap.String("path", cfg.Path))
		if err := d.player.Play(ctx, cfg.Path, d.volume); err != nil {
			d.log.Error("Error playing sound",
				zap.String("cue", string(cue)),
				zap.String("path", cfg.Path),
				zap.Error(err))
		}
	}()
}

// Wait blocks until every in-flight playback task has finished. Callers
// cancel the playback context first so tasks stop at the next chunk.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
