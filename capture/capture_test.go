package capture

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrsingh-rishi/meeting-transcriber/model"
)

func writeWAV(t *testing.T, rate int, samples []int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	enc := wav.NewEncoder(f, rate, 16, 1, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: rate},
		Data:           samples,
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
	return path
}

func TestFileDevice_StreamsAllSamples(t *testing.T) {
	samples := make([]int, 2500)
	for i := range samples {
		samples[i] = i - 1250
	}
	path := writeWAV(t, 8000, samples)

	dev := &FileDevice{Path: path, ChunkDuration: 100 * time.Millisecond}
	stream, err := dev.Open(context.Background())
	require.NoError(t, err)
	defer stream.Close()

	assert.Equal(t, Format{SampleRate: 8000, Channels: 1}, stream.Format())

	var got []int16
	chunks := 0
	for c := range stream.Chunks() {
		chunks++
		got = append(got, c.Samples()...)
	}
	// 800 samples per chunk: 800, 800, 800, 100.
	assert.Equal(t, 4, chunks)
	require.Len(t, got, len(samples))
	assert.Equal(t, int16(-1250), got[0])
	assert.Equal(t, int16(1249), got[len(got)-1])
}

func TestFileDevice_Errors(t *testing.T) {
	_, err := (&FileDevice{Path: filepath.Join(t.TempDir(), "missing.wav")}).Open(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)

	bogus := filepath.Join(t.TempDir(), "bogus.wav")
	require.NoError(t, os.WriteFile(bogus, []byte("not audio"), 0o644))
	_, err = (&FileDevice{Path: bogus}).Open(context.Background())
	assert.Error(t, err)
}

func TestFileDevice_CloseStopsRealtimePlayback(t *testing.T) {
	path := writeWAV(t, 8000, make([]int, 80000))
	stream, err := (&FileDevice{Path: path, Realtime: true}).Open(context.Background())
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		for range stream.Chunks() {
		}
		close(done)
	}()
	require.NoError(t, stream.Close())
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("chunks channel not closed after Close")
	}
}

func TestParseSource(t *testing.T) {
	dev, err := ParseSource("file:/tmp/a.wav", Format{SampleRate: 16000, Channels: 1})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/a.wav", dev.(*FileDevice).Path)

	dev, err = ParseSource("microphone", Format{SampleRate: 16000, Channels: 1})
	require.NoError(t, err)
	assert.IsType(t, &Microphone{}, dev)

	_, err = ParseSource("file:", Format{})
	assert.Error(t, err)
	_, err = ParseSource("line-in", Format{})
	assert.Error(t, err)
}

type chanStream struct {
	ch        chan model.AudioChunk
	closeOnce sync.Once
}

func (s *chanStream) Format() Format                  { return Format{SampleRate: 16000, Channels: 1} }
func (s *chanStream) Chunks() <-chan model.AudioChunk { return s.ch }
func (s *chanStream) Close() error {
	s.closeOnce.Do(func() { close(s.ch) })
	return nil
}

func TestPipeline_FansOut(t *testing.T) {
	src := &chanStream{ch: make(chan model.AudioChunk)}
	tap := make(chan model.AudioChunk, 4)
	p := NewPipeline(src, 4, tap)

	src.ch <- model.AudioChunk{1, 0}
	src.ch <- model.AudioChunk{2, 0}

	assert.Equal(t, model.AudioChunk{1, 0}, <-p.Audio())
	assert.Equal(t, model.AudioChunk{2, 0}, <-p.Audio())
	assert.Equal(t, model.AudioChunk{1, 0}, <-tap)
	assert.Equal(t, model.AudioChunk{2, 0}, <-tap)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	_, ok := <-p.Audio()
	assert.False(t, ok)
}

func TestPipeline_DropsWhenFeedFull(t *testing.T) {
	src := &chanStream{ch: make(chan model.AudioChunk)}
	p := NewPipeline(src, 1)

	src.ch <- model.AudioChunk{1, 0}
	src.ch <- model.AudioChunk{2, 0} // dropped, nobody is reading
	src.ch <- model.AudioChunk{3, 0} // handing off proves chunk 2 was processed

	assert.Equal(t, model.AudioChunk{1, 0}, <-p.Audio())
	require.NoError(t, p.Close())
	for c := range p.Audio() {
		assert.NotEqual(t, model.AudioChunk{2, 0}, c)
	}
}
