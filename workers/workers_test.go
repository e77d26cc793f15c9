package workers

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrsingh-rishi/meeting-transcriber/model"
	"github.com/mrsingh-rishi/meeting-transcriber/types"
)

type recordingHandler struct {
	mu    sync.Mutex
	calls []string
}

func (h *recordingHandler) add(s string) {
	h.mu.Lock()
	h.calls = append(h.calls, s)
	h.mu.Unlock()
}

func (h *recordingHandler) OnResult(ev types.RecognitionEvent) { h.add("result:" + ev.Results[0].Best()) }
func (h *recordingHandler) OnError(err error)                  { h.add("error:" + err.Error()) }
func (h *recordingHandler) OnEnd()                             { h.add("end") }

func (h *recordingHandler) snapshot() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.calls...)
}

func TestNewTranscriptionWorker_Validation(t *testing.T) {
	_, err := NewTranscriptionWorker(nil, &recordingHandler{})
	assert.Error(t, err)
	_, err = NewTranscriptionWorker(make(chan types.RecognitionEvent), nil)
	assert.Error(t, err)
}

func TestTranscriptionWorker_DispatchesInOrder(t *testing.T) {
	in := make(chan types.RecognitionEvent, 8)
	h := &recordingHandler{}
	tw, err := NewTranscriptionWorker(in, h)
	require.NoError(t, err)
	tw.Start()

	in <- types.ResultEvent("one", 0.9, false)
	in <- types.ResultEvent("two", 0.9, true)
	in <- types.ErrorEvent(errors.New("network"))
	in <- types.EndEvent()

	require.Eventually(t, func() bool { return len(h.snapshot()) == 4 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"result:one", "result:two", "error:network", "end"}, h.snapshot())
	tw.Stop()
	tw.Stop()
}

func TestTranscriptionWorker_ExitsWhenInputCloses(t *testing.T) {
	in := make(chan types.RecognitionEvent)
	tw, err := NewTranscriptionWorker(in, &recordingHandler{})
	require.NoError(t, err)
	tw.Start()
	close(in)

	stopped := make(chan struct{})
	go func() {
		tw.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
}

func TestAnalyzerWorker_MeasuresLevels(t *testing.T) {
	aw := NewAnalyzerWorker(4, 2)
	fixed := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	aw.now = func() time.Time { return fixed }
	aw.Start()
	defer aw.Stop()

	aw.Input <- model.ChunkFromSamples([]int16{0, 0})
	aw.Input <- model.ChunkFromSamples([]int16{3, -4})
	aw.Input <- model.ChunkFromSamples([]int16{100, -200, 100, -200})

	require.Eventually(t, func() bool {
		levels := aw.Recent()
		return len(levels) == 2 && levels[1].Samples == 4
	}, time.Second, 5*time.Millisecond)

	levels := aw.Recent()
	assert.Equal(t, 4, levels[0].Peak)
	assert.InDelta(t, 3.5355, levels[0].RMS, 0.001)
	assert.Equal(t, 200, levels[1].Peak)
	assert.Equal(t, fixed, levels[1].Time)
}
