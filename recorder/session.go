package recorder

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/mrsingh-rishi/meeting-transcriber/capture"
	"github.com/mrsingh-rishi/meeting-transcriber/logging"
	"github.com/mrsingh-rishi/meeting-transcriber/model"
	"github.com/mrsingh-rishi/meeting-transcriber/stt"
	"github.com/mrsingh-rishi/meeting-transcriber/workers"
)

// session holds the handles acquired for one recording. They are created
// together on start and released together on stop.
type session struct {
	Pipeline   *capture.Pipeline
	Recognizer stt.Recognizer
	Worker     *workers.TranscriptionWorker
}

// openSession acquires the audio input, wires it into a new recognizer and
// starts the worker consuming recognizer events. The recognizer itself is not
// started. On error everything acquired so far is released.
func openSession(ctx context.Context, opts Options, levels chan<- model.AudioChunk, handler workers.RecognitionHandler) (*session, error) {
	if opts.Device == nil {
		return nil, errors.New("audio device is required")
	}
	if opts.Factory == nil {
		return nil, errors.New("recognizer factory is required")
	}

	s := &session{}
	logging.Info(logging.CategoryCapture, "Requesting microphone access...")
	stream, err := opts.Device.Open(ctx)
	if err != nil {
		return nil, err
	}
	s.Pipeline = capture.NewPipeline(stream, opts.FeedBuffer, levels)

	rec, err := opts.Factory(s.Pipeline.Audio(), s.Pipeline.Format(), stt.Options{
		Language:       opts.Language,
		Continuous:     true,
		InterimResults: true,
	})
	if err != nil {
		s.CleanupResources()
		return nil, tag(ErrEngine, err)
	}
	s.Recognizer = rec

	worker, err := workers.NewTranscriptionWorker(rec.Events(), handler)
	if err != nil {
		s.CleanupResources()
		return nil, err
	}
	s.Worker = worker
	s.Worker.Start()
	return s, nil
}

// CleanupResources releases every handle of the session.
func (s *session) CleanupResources() {
	if s.Recognizer != nil {
		if err := s.Recognizer.Close(); err != nil {
			logging.Warning(logging.CategorySTT, "closing recognizer: %v", err)
		}
	}

	if s.Worker != nil {
		s.Worker.Stop()
	}

	if s.Pipeline != nil {
		if err := s.Pipeline.Close(); err != nil {
			logging.Warning(logging.CategoryCapture, "closing audio input: %v", err)
		}
	}
}

func tag(sentinel, err error) error {
	return fmt.Errorf("%w: %w", sentinel, err)
}
