package workers

import (
	"context"
	"fmt"
	"sync"

	"github.com/mrsingh-rishi/meeting-transcriber/logging"
	"github.com/mrsingh-rishi/meeting-transcriber/types"
)

// RecognitionHandler receives recognizer events in arrival order.
type RecognitionHandler interface {
	OnResult(ev types.RecognitionEvent)
	OnError(err error)
	OnEnd()
}

// TranscriptionWorker is the single consumer of a recognizer's event stream.
type TranscriptionWorker struct {
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
	Input   <-chan types.RecognitionEvent
	Handler RecognitionHandler
}

func NewTranscriptionWorker(input <-chan types.RecognitionEvent, handler RecognitionHandler) (*TranscriptionWorker, error) {
	// Params Validation
	if input == nil {
		return nil, fmt.Errorf("recognition event channel is required")
	}
	if handler == nil {
		return nil, fmt.Errorf("recognition handler is required")
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &TranscriptionWorker{
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		Input:   input,
		Handler: handler,
	}, nil
}

func (tw *TranscriptionWorker) Start() {
	go func() {
		defer close(tw.done)
		for {
			select {
			case <-tw.ctx.Done():
				return
			case ev, ok := <-tw.Input:
				if !ok {
					logging.Debug(logging.CategoryRecorder, "recognition event stream closed")
					return
				}
				tw.dispatch(ev)
			}
		}
	}()
}

func (tw *TranscriptionWorker) dispatch(ev types.RecognitionEvent) {
	switch ev.Kind {
	case types.EventResult:
		for _, r := range ev.Results {
			if r.Final {
				logging.Debug(logging.CategorySTT, "Got Final Transcription: %s", r.Best())
			} else {
				logging.Debug(logging.CategorySTT, "Got Partial Transcription: %s", r.Best())
			}
		}
		tw.Handler.OnResult(ev)
	case types.EventError:
		tw.Handler.OnError(ev.Err)
	case types.EventEnd:
		tw.Handler.OnEnd()
	default:
		logging.Warning(logging.CategorySTT, "ignoring recognition event of kind %s", ev.Kind)
	}
}

// Stop ends the loop and waits for an in-flight dispatch to return. It must
// not be called from inside a handler callback.
func (tw *TranscriptionWorker) Stop() {
	tw.once.Do(tw.cancel)
	<-tw.done
}
