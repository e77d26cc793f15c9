package stt

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/text/language"

	"github.com/mrsingh-rishi/meeting-transcriber/capture"
	"github.com/mrsingh-rishi/meeting-transcriber/logging"
	"github.com/mrsingh-rishi/meeting-transcriber/model"
	"github.com/mrsingh-rishi/meeting-transcriber/types"
)

// OpenAIConfig configures the windowed OpenAI transcription engine.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	// Window is the amount of audio sent per request. Each window becomes one
	// final result.
	Window time.Duration
	// MinRMS skips windows quieter than this level.
	MinRMS float64
}

// OpenAIClient cuts the audio feed into windows and transcribes each through
// the OpenAI audio API. It produces final results only.
type OpenAIClient struct {
	client *openai.Client
	cfg    OpenAIConfig
	lang   string
	format capture.Format
	audio  <-chan model.AudioChunk
	events chan types.RecognitionEvent
	quit   chan struct{}

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	session     *windowSession
	audioClosed bool
	closed      bool
}

type windowSession struct {
	stop     chan struct{}
	stopOnce sync.Once
}

// NewOpenAIFactory returns a Factory producing OpenAI recognizers.
func NewOpenAIFactory(cfg OpenAIConfig) Factory {
	return func(audio <-chan model.AudioChunk, format capture.Format, opts Options) (Recognizer, error) {
		return NewOpenAIClient(cfg, audio, format, opts)
	}
}

// NewOpenAIClient builds a recognizer.
func NewOpenAIClient(cfg OpenAIConfig, audio <-chan model.AudioChunk, format capture.Format, opts Options) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("stt: openai api key is required")
	}
	if cfg.Window <= 0 {
		cfg.Window = 5 * time.Second
	}
	if cfg.Model == "" {
		cfg.Model = openai.Whisper1
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
		lang:   baseLanguage(opts.Language),
		format: format,
		audio:  audio,
		events: make(chan types.RecognitionEvent, eventBuffer),
		quit:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// baseLanguage reduces a BCP-47 tag to the ISO-639-1 code the API expects.
func baseLanguage(tag string) string {
	if strings.TrimSpace(tag) == "" {
		return ""
	}
	t, err := language.Parse(tag)
	if err != nil {
		return ""
	}
	base, conf := t.Base()
	if conf == language.No {
		return ""
	}
	return base.String()
}

// Events delivers results, errors and session ends.
func (o *OpenAIClient) Events() <-chan types.RecognitionEvent {
	return o.events
}

// Start begins a session consuming the audio feed.
func (o *OpenAIClient) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch {
	case o.closed:
		return ErrClosed
	case o.session != nil:
		return ErrRunning
	case o.audioClosed:
		return ErrAudioClosed
	}
	s := &windowSession{stop: make(chan struct{})}
	o.session = s
	go o.run(s)
	logging.Info(logging.CategorySTT, "OpenAI session started model=%s window=%s", o.cfg.Model, o.cfg.Window)
	return nil
}

// Stop transcribes the partial window and ends the session.
func (o *OpenAIClient) Stop() error {
	o.mu.Lock()
	s, closed := o.session, o.closed
	o.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if s == nil {
		o.emit(types.EndEvent())
		return nil
	}
	s.stopOnce.Do(func() { close(s.stop) })
	return nil
}

// Close abandons any session and in-flight request.
func (o *OpenAIClient) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.closed {
		o.closed = true
		close(o.quit)
		o.cancel()
	}
	return nil
}

func (o *OpenAIClient) emit(ev types.RecognitionEvent) {
	select {
	case <-o.quit:
		return
	default:
	}
	select {
	case <-o.quit:
	case o.events <- ev:
	}
}

func (o *OpenAIClient) run(s *windowSession) {
	defer func() {
		o.mu.Lock()
		if o.session == s {
			o.session = nil
		}
		o.mu.Unlock()
		o.emit(types.EndEvent())
	}()

	windowSamples := int(o.cfg.Window.Seconds()*float64(o.format.SampleRate)) * max(o.format.Channels, 1)
	var buf []int16
	for {
		select {
		case <-o.quit:
			return
		case <-s.stop:
			o.transcribe(buf)
			return
		case chunk, ok := <-o.audio:
			if !ok {
				o.mu.Lock()
				o.audioClosed = true
				o.mu.Unlock()
				o.transcribe(buf)
				return
			}
			buf = append(buf, chunk.Samples()...)
			for len(buf) >= windowSamples {
				o.transcribe(buf[:windowSamples])
				buf = append([]int16(nil), buf[windowSamples:]...)
			}
		}
	}
}

func (o *OpenAIClient) transcribe(samples []int16) {
	if len(samples) == 0 {
		return
	}
	if o.cfg.MinRMS > 0 && model.RMS(samples) < o.cfg.MinRMS {
		logging.Debug(logging.CategorySTT, "skipping quiet window (%d samples)", len(samples))
		return
	}

	path, err := writeWAV(samples, o.format)
	if err != nil {
		o.emit(types.ErrorEvent(err))
		return
	}
	defer os.Remove(path)

	resp, err := o.client.CreateTranscription(o.ctx, openai.AudioRequest{
		Model:    o.cfg.Model,
		FilePath: path,
		Language: o.lang,
	})
	if err != nil {
		if o.ctx.Err() != nil {
			return
		}
		o.emit(types.ErrorEvent(errors.Wrap(err, "openai transcription")))
		return
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return
	}
	o.emit(types.ResultEvent(text, 0, true))
}

// writeWAV stores samples in a temporary 16-bit PCM wav file.
func writeWAV(samples []int16, format capture.Format) (string, error) {
	f, err := os.CreateTemp("", "meetrec-*.wav")
	if err != nil {
		return "", errors.Wrap(err, "create wav")
	}
	channels := max(format.Channels, 1)
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s)
	}
	enc := wav.NewEncoder(f, format.SampleRate, 16, channels, 1)
	werr := enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: format.SampleRate},
		Data:           data,
		SourceBitDepth: 16,
	})
	if werr == nil {
		werr = enc.Close()
	}
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		os.Remove(f.Name())
		return "", errors.Wrap(werr, "encode wav")
	}
	return f.Name(), nil
}
