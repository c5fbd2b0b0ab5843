package soundsvc

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"
	"go.uber.org/zap"
)

// playbackSampleRate is the fixed speaker rate; decoded files are resampled
// to it. The buffer holds ~100ms, which is also the cancellation granularity.
const playbackSampleRate = beep.SampleRate(44100)

// BeepPlayer plays WAV files through the host audio output. The speaker is
// initialized lazily on the first Play so a missing audio device does not
// prevent the watcher from starting.
type BeepPlayer struct {
	log *zap.Logger

	initOnce sync.Once
	initErr  error
}

func NewBeepPlayer(log *zap.Logger) *BeepPlayer {
	return &BeepPlayer{log: log}
}

// Play streams the file to the speaker, scaled by volume (0.0-1.0), and
// blocks until playback completes or ctx is cancelled. Cancellation is
// observed between chunks; the current buffer is never cut off mid-write.
func (p *BeepPlayer) Play(ctx context.Context, path string, volume float64) error {
	p.initOnce.Do(func() {
		p.initErr = speaker.Init(playbackSampleRate, playbackSampleRate.N(100*time.Millisecond))
	})
	if p.initErr != nil {
		return fmt.Errorf("audio output unavailable: %w", p.initErr)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open sound file: %w", err)
	}
	stream, format, err := wav.Decode(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}

	var s beep.Streamer = stream
	if format.SampleRate != playbackSampleRate {
		s = beep.Resample(4, format.SampleRate, playbackSampleRate, s)
	}
	s = &effects.Gain{Streamer: s, Gain: volume - 1}
	s = &cancelableStreamer{ctx: ctx, s: s}

	done := make(chan struct{})
	speaker.Play(beep.Seq(s, beep.Callback(func() {
		close(done)
	})))
	// A cancelled ctx drains within one chunk, so done always arrives.
	<-done

	if err := stream.Close(); err != nil {
		p.log.Debug("Error closing sound stream", zap.Error(err))
	}
	f.Close()
	return nil
}

// cancelableStreamer stops producing samples once ctx is cancelled.
type cancelableStreamer struct {
	ctx context.Context
	s   beep.Streamer
}

func (c *cancelableStreamer) Stream(samples [][2]float64) (int, bool) {
	select {
	case <-c.ctx.Done():
		return 0, false
	default:
		return c.s.Stream(samples)
	}
}

func (c *cancelableStreamer) Err() error {
	return c.s.Err()
}
