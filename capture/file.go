package capture

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/pkg/errors"

	"github.com/mrsingh-rishi/meeting-transcriber/model"
)

// FileDevice replays a WAV file as if it were live input.
type FileDevice struct {
	Path string
	// Realtime paces chunks at playback speed.
	Realtime bool
	// ChunkDuration defaults to 100ms.
	ChunkDuration time.Duration
}

// Open decodes the file and starts streaming it.
func (d *FileDevice) Open(ctx context.Context) (Stream, error) {
	f, err := os.Open(d.Path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(ErrNotFound, d.Path)
	}
	if os.IsPermission(err) {
		return nil, errors.Wrap(ErrPermissionDenied, d.Path)
	}
	if err != nil {
		return nil, errors.Wrap(err, "open audio file")
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, errors.Errorf("capture: %s is not a valid wav file", d.Path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "decode wav")
	}

	format := Format{SampleRate: int(dec.SampleRate), Channels: int(dec.NumChans)}
	chunkDur := d.ChunkDuration
	if chunkDur <= 0 {
		chunkDur = 100 * time.Millisecond
	}
	samplesPerChunk := int(float64(format.SampleRate)*chunkDur.Seconds()) * format.Channels
	if samplesPerChunk <= 0 {
		return nil, errors.Errorf("capture: %s has no usable sample rate", d.Path)
	}

	s := &fileStream{
		format: format,
		chunks: make(chan model.AudioChunk),
		done:   make(chan struct{}),
	}
	s.wg.Add(1)
	go s.play(toInt16(buf), samplesPerChunk, chunkDur, d.Realtime)
	return s, nil
}

type fileStream struct {
	format    Format
	chunks    chan model.AudioChunk
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func (s *fileStream) Format() Format                  { return s.format }
func (s *fileStream) Chunks() <-chan model.AudioChunk { return s.chunks }

func (s *fileStream) play(samples []int16, perChunk int, every time.Duration, realtime bool) {
	defer s.wg.Done()
	defer close(s.chunks)

	var tick <-chan time.Time
	if realtime {
		t := time.NewTicker(every)
		defer t.Stop()
		tick = t.C
	}
	for off := 0; off < len(samples); off += perChunk {
		end := min(off+perChunk, len(samples))
		if tick != nil {
			select {
			case <-tick:
			case <-s.done:
				return
			}
		}
		select {
		case s.chunks <- model.ChunkFromSamples(samples[off:end]):
		case <-s.done:
			return
		}
	}
}

func (s *fileStream) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	s.wg.Wait()
	return nil
}

// toInt16 rescales decoded samples of any bit depth to 16 bits.
func toInt16(buf *audio.IntBuffer) []int16 {
	depth := buf.SourceBitDepth
	out := make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		switch {
		case depth > 16:
			v >>= depth - 16
		case depth == 8:
			v = (v - 128) << 8
		}
		out[i] = int16(v)
	}
	return out
}
