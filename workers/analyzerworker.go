package workers

import (
	"context"
	"time"

	"github.com/mrsingh-rishi/meeting-transcriber/logging"
	"github.com/mrsingh-rishi/meeting-transcriber/model"
	"github.com/mrsingh-rishi/meeting-transcriber/queue"
)

// Level is the measured input level of one audio chunk.
type Level struct {
	Time    time.Time `json:"time"`
	RMS     float64   `json:"rms"`
	Peak    int       `json:"peak"`
	Samples int       `json:"samples"`
}

// AnalyzerWorker measures the levels of captured audio and keeps the most
// recent ones.
type AnalyzerWorker struct {
	Input  chan model.AudioChunk
	Levels *queue.Queue[Level]
	now    func() time.Time
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewAnalyzerWorker initializes a worker that remembers the last keep levels.
func NewAnalyzerWorker(buffer, keep int) *AnalyzerWorker {
	ctx, cancel := context.WithCancel(context.Background())
	return &AnalyzerWorker{
		Input:  make(chan model.AudioChunk, buffer),
		Levels: queue.NewBounded[Level](keep),
		now:    time.Now,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Start begins the worker's processing loop in its own goroutine.
func (aw *AnalyzerWorker) Start() {
	go aw.process()
}

func (aw *AnalyzerWorker) process() {
	defer close(aw.done)
	for {
		select {
		case <-aw.ctx.Done():
			logging.Debug(logging.CategoryCapture, "AnalyzerWorker: Shutting down")
			return
		case chunk := <-aw.Input:
			aw.Levels.Enqueue(aw.measure(chunk))
		}
	}
}

func (aw *AnalyzerWorker) measure(chunk model.AudioChunk) Level {
	samples := chunk.Samples()
	peak := 0
	for _, s := range samples {
		v := int(s)
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	return Level{Time: aw.now(), RMS: model.RMS(samples), Peak: peak, Samples: len(samples)}
}

// Recent returns the remembered levels, oldest first.
func (aw *AnalyzerWorker) Recent() []Level {
	return aw.Levels.Snapshot()
}

// Stop terminates the processing loop and waits for it to exit.
func (aw *AnalyzerWorker) Stop() {
	aw.cancel()
	<-aw.done
}
