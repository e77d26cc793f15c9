package capture

import (
	"sync"

	"github.com/mrsingh-rishi/meeting-transcriber/logging"
	"github.com/mrsingh-rishi/meeting-transcriber/model"
)

// Pipeline copies a stream to the recognizer feed and to any taps. The
// recognizer feed is buffered; when it is full (for example while a session
// restarts) chunks are dropped instead of stalling capture.
type Pipeline struct {
	stream Stream
	audio  chan model.AudioChunk
	taps   []chan<- model.AudioChunk

	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// NewPipeline starts copying stream. Taps never block the pipeline.
func NewPipeline(stream Stream, buffer int, taps ...chan<- model.AudioChunk) *Pipeline {
	p := &Pipeline{
		stream: stream,
		audio:  make(chan model.AudioChunk, buffer),
		taps:   taps,
		done:   make(chan struct{}),
	}
	p.wg.Add(1)
	go p.run()
	return p
}

// Audio is the recognizer feed. It is closed when the stream ends.
func (p *Pipeline) Audio() <-chan model.AudioChunk {
	return p.audio
}

// Format of the underlying stream.
func (p *Pipeline) Format() Format {
	return p.stream.Format()
}

func (p *Pipeline) run() {
	defer p.wg.Done()
	defer close(p.audio)
	dropped := 0
	for {
		select {
		case <-p.done:
			return
		case chunk, ok := <-p.stream.Chunks():
			if !ok {
				logging.Info(logging.CategoryCapture, "capture stream ended")
				return
			}
			select {
			case p.audio <- chunk:
			default:
				dropped++
				if dropped%50 == 1 {
					logging.Warning(logging.CategoryCapture, "recognizer feed full, dropped %d chunks", dropped)
				}
			}
			for _, tap := range p.taps {
				select {
				case tap <- chunk:
				default:
				}
			}
		}
	}
}

// Close releases the stream and stops copying. It is safe to call twice.
func (p *Pipeline) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.done)
		err = p.stream.Close()
		p.wg.Wait()
	})
	return err
}
