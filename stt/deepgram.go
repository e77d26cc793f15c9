package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	gws "github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/mrsingh-rishi/meeting-transcriber/capture"
	"github.com/mrsingh-rishi/meeting-transcriber/logging"
	"github.com/mrsingh-rishi/meeting-transcriber/model"
	"github.com/mrsingh-rishi/meeting-transcriber/types"
)

// DeepgramConfig configures the live transcription endpoint.
type DeepgramConfig struct {
	APIKey   string
	Model    string
	Endpoint string
	Dialer   *gws.Dialer
}

// TranscriptionMessage is a Deepgram live response frame.
type TranscriptionMessage struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
}

// closeStream asks Deepgram to flush pending results and close.
var closeStream = []byte(`{"type":"CloseStream"}`)

// DeepgramClient streams audio to Deepgram's live endpoint.
type DeepgramClient struct {
	cfg    DeepgramConfig
	opts   Options
	format capture.Format
	audio  <-chan model.AudioChunk
	events chan types.RecognitionEvent
	quit   chan struct{}

	mu          sync.Mutex
	session     *dgSession
	audioClosed bool
	closed      bool
}

type dgSession struct {
	conn     *gws.Conn
	writeMu  sync.Mutex
	done     chan struct{}
	stopping bool
}

// NewDeepgramFactory returns a Factory producing Deepgram recognizers.
func NewDeepgramFactory(cfg DeepgramConfig) Factory {
	return func(audio <-chan model.AudioChunk, format capture.Format, opts Options) (Recognizer, error) {
		return NewDeepgramClient(cfg, audio, format, opts)
	}
}

// NewDeepgramClient builds a recognizer; no connection is made until Start.
func NewDeepgramClient(cfg DeepgramConfig, audio <-chan model.AudioChunk, format capture.Format, opts Options) (*DeepgramClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("stt: deepgram api key is required")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "wss://api.deepgram.com/v1/listen"
	}
	if cfg.Dialer == nil {
		cfg.Dialer = gws.DefaultDialer
	}
	return &DeepgramClient{
		cfg:    cfg,
		opts:   opts,
		format: format,
		audio:  audio,
		events: make(chan types.RecognitionEvent, eventBuffer),
		quit:   make(chan struct{}),
	}, nil
}

// Events delivers results, errors and session ends.
func (dg *DeepgramClient) Events() <-chan types.RecognitionEvent {
	return dg.events
}

func (dg *DeepgramClient) listenURL() (string, error) {
	u, err := url.Parse(dg.cfg.Endpoint)
	if err != nil {
		return "", errors.Wrap(err, "parse deepgram endpoint")
	}
	q := u.Query()
	if dg.cfg.Model != "" {
		q.Set("model", dg.cfg.Model)
	}
	if dg.opts.Language != "" {
		q.Set("language", dg.opts.Language)
	}
	q.Set("encoding", "linear16")
	q.Set("sample_rate", strconv.Itoa(dg.format.SampleRate))
	q.Set("channels", strconv.Itoa(dg.format.Channels))
	q.Set("interim_results", strconv.FormatBool(dg.opts.InterimResults))
	q.Set("punctuate", "true")
	q.Set("smart_format", "true")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Start dials a new session.
func (dg *DeepgramClient) Start(ctx context.Context) error {
	dg.mu.Lock()
	defer dg.mu.Unlock()
	switch {
	case dg.closed:
		return ErrClosed
	case dg.session != nil:
		return ErrRunning
	case dg.audioClosed:
		return ErrAudioClosed
	}

	dgURL, err := dg.listenURL()
	if err != nil {
		return err
	}
	header := http.Header{
		"Authorization": {fmt.Sprintf("Token %s", dg.cfg.APIKey)},
	}
	conn, resp, err := dg.cfg.Dialer.DialContext(ctx, dgURL, header)
	if err != nil {
		if resp != nil {
			return errors.Wrapf(err, "deepgram dial (http %d)", resp.StatusCode)
		}
		return errors.Wrap(err, "deepgram dial")
	}

	s := &dgSession{conn: conn, done: make(chan struct{})}
	dg.session = s
	go dg.sendAudio(s)
	go dg.listenForResponses(s)
	logging.Info(logging.CategorySTT, "connected to Deepgram model=%s language=%s", dg.cfg.Model, dg.opts.Language)
	return nil
}

// Stop asks the active session to flush and close.
func (dg *DeepgramClient) Stop() error {
	dg.mu.Lock()
	s := dg.session
	closed := dg.closed
	if s != nil {
		s.stopping = true
	}
	dg.mu.Unlock()

	if closed {
		return ErrClosed
	}
	if s == nil {
		dg.emit(types.EndEvent())
		return nil
	}
	if err := s.write(gws.TextMessage, closeStream); err != nil {
		// The reader notices the dead connection and ends the session.
		s.conn.Close()
		return nil
	}
	return nil
}

// Close drops the active session without emitting further events.
func (dg *DeepgramClient) Close() error {
	dg.mu.Lock()
	if !dg.closed {
		dg.closed = true
		close(dg.quit)
	}
	s := dg.session
	dg.mu.Unlock()
	if s == nil {
		return nil
	}
	s.write(gws.CloseMessage, gws.FormatCloseMessage(gws.CloseNormalClosure, "Closing connection"))
	return s.conn.Close()
}

func (s *dgSession) write(messageType int, data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(messageType, data)
}

func (dg *DeepgramClient) emit(ev types.RecognitionEvent) {
	select {
	case <-dg.quit:
		return
	default:
	}
	select {
	case <-dg.quit:
	case dg.events <- ev:
	}
}

func (dg *DeepgramClient) sendAudio(s *dgSession) {
	for {
		select {
		case <-s.done:
			return
		case chunk, ok := <-dg.audio:
			if !ok {
				logging.Info(logging.CategorySTT, "audio feed ended, closing Deepgram stream")
				dg.mu.Lock()
				dg.audioClosed = true
				dg.mu.Unlock()
				s.write(gws.TextMessage, closeStream)
				return
			}
			if len(chunk) == 0 {
				continue
			}
			if err := s.write(gws.BinaryMessage, chunk); err != nil {
				logging.Warning(logging.CategorySTT, "Deepgram write error: %v", err)
				return
			}
		}
	}
}

// listenForResponses reads frames until the connection closes, then ends the
// session.
func (dg *DeepgramClient) listenForResponses(s *dgSession) {
	defer func() {
		close(s.done)
		s.conn.Close()
		dg.mu.Lock()
		if dg.session == s {
			dg.session = nil
		}
		dg.mu.Unlock()
		dg.emit(types.EndEvent())
	}()

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			dg.mu.Lock()
			stopping := s.stopping
			dg.mu.Unlock()
			if !stopping && !isQuietClose(err) {
				dg.emit(types.ErrorEvent(errors.Wrap(err, "deepgram read")))
			} else {
				logging.Debug(logging.CategorySTT, "Deepgram session closed: %v", err)
			}
			return
		}

		var transcription TranscriptionMessage
		if err := json.Unmarshal(message, &transcription); err != nil {
			logging.Warning(logging.CategorySTT, "Error parsing Deepgram response: %v", err)
			continue
		}
		if transcription.Type != "" && transcription.Type != "Results" {
			logging.Debug(logging.CategorySTT, "Deepgram %s frame", transcription.Type)
			continue
		}
		if len(transcription.Channel.Alternatives) == 0 {
			continue
		}
		alt := transcription.Channel.Alternatives[0]
		if strings.TrimSpace(alt.Transcript) == "" {
			continue
		}
		if !transcription.IsFinal && !dg.opts.InterimResults {
			continue
		}
		dg.emit(types.ResultEvent(alt.Transcript, alt.Confidence, transcription.IsFinal))
	}
}

// isQuietClose reports closes that end a session without being an error:
// normal closure and Deepgram's idle timeout (NET-0001).
func isQuietClose(err error) bool {
	var ce *gws.CloseError
	if errors.As(err, &ce) {
		if ce.Code == gws.CloseNormalClosure || ce.Code == gws.CloseGoingAway {
			return true
		}
		return strings.Contains(ce.Text, "NET-0001")
	}
	return false
}
