package feedback

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/terriblefail/accesswatch/internal/hidsvc"
	"github.com/terriblefail/accesswatch/internal/soundsvc"
	"go.uber.org/zap/zaptest"
)

type cueRecorder struct {
	mu   sync.Mutex
	cues []soundsvc.Cue
}

func (r *cueRecorder) Fire(_ context.Context, cue soundsvc.Cue) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cues = append(r.cues, cue)
}

func (r *cueRecorder) fired() []soundsvc.Cue {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]soundsvc.Cue(nil), r.cues...)
}

func newTestHandler(t *testing.T) (*Handler, *cueRecorder) {
	rec := &cueRecorder{}
	return NewHandler(zaptest.NewLogger(t), nil, rec), rec
}

func layerEvent(payload uint8) hidsvc.Event {
	return hidsvc.Event{Kind: hidsvc.KindLayerChange, Payload: payload, RawTag: 1}
}

func capsEvent(payload uint8) hidsvc.Event {
	return hidsvc.Event{Kind: hidsvc.KindCapsWordState, Payload: payload, RawTag: 2}
}

func TestHandlerLayerUpAfterInitialObservation(t *testing.T) {
	h, rec := newTestHandler(t)
	ctx := context.Background()

	h.Handle(ctx, layerEvent(3))
	assert.Empty(t, rec.fired(), "first observation must not fire a cue")

	h.Handle(ctx, layerEvent(5))
	assert.Equal(t, []soundsvc.Cue{soundsvc.CueLayerUp}, rec.fired())
}

func TestHandlerNoCueForRepeatedLayer(t *testing.T) {
	h, rec := newTestHandler(t)
	ctx := context.Background()

	h.Handle(ctx, layerEvent(5))
	h.Handle(ctx, layerEvent(5))
	assert.Empty(t, rec.fired())
}

func TestHandlerLayerDown(t *testing.T) {
	h, rec := newTestHandler(t)
	ctx := context.Background()

	h.Handle(ctx, layerEvent(4))
	h.Handle(ctx, layerEvent(1))
	assert.Equal(t, []soundsvc.Cue{soundsvc.CueLayerDown}, rec.fired())
}

func TestHandlerCapsWord(t *testing.T) {
	h, rec := newTestHandler(t)
	ctx := context.Background()

	h.Handle(ctx, capsEvent(1))
	h.Handle(ctx, capsEvent(0))
	h.Handle(ctx, capsEvent(7)) // ignored, logged
	assert.Equal(t, []soundsvc.Cue{soundsvc.CueCapsWordOn, soundsvc.CueCapsWordOff}, rec.fired())
}

func TestHandlerQueryReplyBehavesLikeLayerChange(t *testing.T) {
	h, rec := newTestHandler(t)
	ctx := context.Background()

	h.Handle(ctx, hidsvc.Event{Kind: hidsvc.KindLayerQueryReply, Payload: 2, RawTag: 99})
	assert.Empty(t, rec.fired(), "query reply initializes the tracker without a cue")

	h.Handle(ctx, layerEvent(6))
	assert.Equal(t, []soundsvc.Cue{soundsvc.CueLayerUp}, rec.fired())
}

func TestHandlerUnknownKindFiresNothing(t *testing.T) {
	h, rec := newTestHandler(t)
	h.Handle(context.Background(), hidsvc.Event{Kind: hidsvc.KindUnknown, Payload: 9, RawTag: 42})
	assert.Empty(t, rec.fired())
}
