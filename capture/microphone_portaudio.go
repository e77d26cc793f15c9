//go:build portaudio

package capture

import (
	"context"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/pkg/errors"

	"github.com/mrsingh-rishi/meeting-transcriber/logging"
	"github.com/mrsingh-rishi/meeting-transcriber/model"
)

// Microphone captures the default input device through PortAudio.
type Microphone struct {
	Format          Format
	FramesPerBuffer int
}

// NewMicrophone returns the default input device at format.
func NewMicrophone(format Format) Device {
	return &Microphone{Format: format, FramesPerBuffer: format.SampleRate / 10}
}

// Open requests the device and starts capture.
func (m *Microphone) Open(ctx context.Context) (Stream, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, errors.Wrap(ErrNotFound, err.Error())
	}
	if _, err := portaudio.DefaultInputDevice(); err != nil {
		portaudio.Terminate()
		return nil, errors.Wrap(ErrNotFound, err.Error())
	}

	frames := m.FramesPerBuffer
	if frames <= 0 {
		frames = 1600
	}
	buf := make([]int16, frames*m.Format.Channels)
	stream, err := portaudio.OpenDefaultStream(m.Format.Channels, 0, float64(m.Format.SampleRate), frames, buf)
	if err != nil {
		portaudio.Terminate()
		return nil, classify(err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, classify(err)
	}

	s := &micStream{
		format: m.Format,
		stream: stream,
		buf:    buf,
		chunks: make(chan model.AudioChunk, 8),
		done:   make(chan struct{}),
	}
	s.wg.Add(1)
	go s.read()
	logging.Info(logging.CategoryCapture, "microphone open rate=%d channels=%d", m.Format.SampleRate, m.Format.Channels)
	return s, nil
}

func classify(err error) error {
	switch err {
	case portaudio.DeviceUnavailable:
		return errors.Wrap(ErrPermissionDenied, err.Error())
	case portaudio.InvalidDevice, portaudio.InvalidChannelCount:
		return errors.Wrap(ErrNotFound, err.Error())
	default:
		return errors.Wrap(err, "open microphone")
	}
}

type micStream struct {
	format    Format
	stream    *portaudio.Stream
	buf       []int16
	chunks    chan model.AudioChunk
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func (s *micStream) Format() Format                  { return s.format }
func (s *micStream) Chunks() <-chan model.AudioChunk { return s.chunks }

func (s *micStream) read() {
	defer s.wg.Done()
	defer close(s.chunks)
	for {
		if err := s.stream.Read(); err != nil {
			select {
			case <-s.done:
			default:
				logging.Error(logging.CategoryCapture, "microphone read error: %v", err)
			}
			return
		}
		select {
		case s.chunks <- model.ChunkFromSamples(s.buf):
		case <-s.done:
			return
		}
	}
}

func (s *micStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.stream.Stop()
		s.wg.Wait()
		if cerr := s.stream.Close(); err == nil {
			err = cerr
		}
		portaudio.Terminate()
	})
	return err
}
