// Package recorder owns the recording lifecycle: it captures audio, keeps a
// recognition session running while recording, accumulates final results
// into a transcript that is mirrored to storage, and exports the transcript
// through the downloader when recording stops.
package recorder

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/mrsingh-rishi/meeting-transcriber/capture"
	"github.com/mrsingh-rishi/meeting-transcriber/download"
	"github.com/mrsingh-rishi/meeting-transcriber/events"
	"github.com/mrsingh-rishi/meeting-transcriber/logging"
	"github.com/mrsingh-rishi/meeting-transcriber/model"
	"github.com/mrsingh-rishi/meeting-transcriber/storage"
	"github.com/mrsingh-rishi/meeting-transcriber/stt"
	"github.com/mrsingh-rishi/meeting-transcriber/transcript"
	"github.com/mrsingh-rishi/meeting-transcriber/types"
	"github.com/mrsingh-rishi/meeting-transcriber/workers"
)

var (
	ErrPermissionDenied = capture.ErrPermissionDenied
	ErrDeviceNotFound   = capture.ErrNotFound
	ErrEngine           = errors.New("recorder: speech engine failure")
	ErrDownloadFailed   = errors.New("recorder: download failed")
	ErrStorage          = errors.New("recorder: storage failure")
	ErrClosed           = errors.New("recorder: closed")
)

// DefaultSettleDelay is how long Stop keeps accepting results after the
// recognizer reports its end.
const DefaultSettleDelay = time.Second

// Downloader saves an exported document. It reports failure in the result.
type Downloader interface {
	DownloadFile(ctx context.Context, url, filename string) download.Result
}

// Options wires a Recorder to its collaborators.
type Options struct {
	Device     capture.Device
	Factory    stt.Factory
	Store      storage.Store
	Downloader Downloader

	// Blobs must be the registry the Downloader resolves blob URLs from.
	Blobs   *download.BlobStore
	Emitter events.Emitter

	Speaker     string
	Language    string
	SettleDelay time.Duration
	Formatter   transcript.Formatter
	Now         func() time.Time

	// FeedBuffer is the number of chunks buffered for the recognizer.
	FeedBuffer int

	// LevelHistory is the number of analyzer levels kept.
	LevelHistory int
}

// Recorder is the recording state machine. Lifecycle operations are
// serialized; recognizer events are handled on a single worker goroutine.
type Recorder struct {
	opts     Options
	analyzer *workers.AnalyzerWorker

	// ctx outlives individual requests; recognizer restarts run under it.
	ctx    context.Context
	cancel context.CancelFunc

	lifecycle sync.Mutex
	persistMu sync.Mutex

	mu         sync.Mutex
	state      model.RecordingState
	transcript model.Transcript
	sess       *session
	endHook    func()
	stopping   bool
	closed     bool
}

type nopEmitter struct{}

func (nopEmitter) Emit(events.Event) {}

// New returns an idle recorder.
func New(opts Options) (*Recorder, error) {
	switch {
	case opts.Device == nil:
		return nil, errors.New("recorder: audio device is required")
	case opts.Factory == nil:
		return nil, errors.New("recorder: recognizer factory is required")
	case opts.Store == nil:
		return nil, errors.New("recorder: store is required")
	case opts.Downloader == nil:
		return nil, errors.New("recorder: downloader is required")
	}
	if opts.Blobs == nil {
		opts.Blobs = download.NewBlobStore()
	}
	if opts.Emitter == nil {
		opts.Emitter = nopEmitter{}
	}
	if opts.Speaker == "" {
		opts.Speaker = model.DefaultSpeaker
	}
	if opts.Language == "" {
		opts.Language = "en-US"
	}
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = DefaultSettleDelay
	}
	if opts.Formatter.DateLayout == "" || opts.Formatter.TimeLayout == "" {
		opts.Formatter = transcript.NewFormatter(opts.Language, nil)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.FeedBuffer <= 0 {
		opts.FeedBuffer = 64
	}
	if opts.LevelHistory <= 0 {
		opts.LevelHistory = 50
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Recorder{
		opts:     opts,
		analyzer: workers.NewAnalyzerWorker(opts.FeedBuffer, opts.LevelHistory),
		ctx:      ctx,
		cancel:   cancel,
	}
	r.analyzer.Start()
	return r, nil
}

// Status returns the current state.
func (r *Recorder) Status() model.RecordingState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Transcript returns a copy of the entries not yet exported.
func (r *Recorder) Transcript() model.Transcript {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.transcript.Clone()
}

// Levels returns the most recent input levels, oldest first.
func (r *Recorder) Levels() []workers.Level {
	return r.analyzer.Recent()
}

// Start begins recording. It is a no-op while already recording. Entries
// retained from a failed export are kept and recording appends to them.
func (r *Recorder) Start(ctx context.Context) error {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	r.mu.Lock()
	state, closed := r.state, r.closed
	r.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if state == model.Recording {
		logging.Info(logging.CategoryRecorder, "Recording already in progress")
		return nil
	}

	if err := r.start(ctx); err != nil {
		r.fail("Failed to start recording: " + err.Error())
		return errors.Wrap(err, "start recording")
	}
	logging.Success(logging.CategoryRecorder, "Recording started successfully")
	return nil
}

func (r *Recorder) start(ctx context.Context) error {
	sess, err := openSession(ctx, r.opts, r.analyzer.Input, r)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.sess = sess
	r.state = model.Recording
	r.stopping = false
	r.endHook = nil
	r.mu.Unlock()

	if err := sess.Recognizer.Start(ctx); err != nil {
		r.mu.Lock()
		r.sess = nil
		r.state = model.Idle
		r.mu.Unlock()
		sess.CleanupResources()
		return tag(ErrEngine, err)
	}
	return nil
}

// OnResult appends every final result at or after the event's result index.
// Interim results are discarded. Results arriving while idle are dropped.
func (r *Recorder) OnResult(ev types.RecognitionEvent) {
	r.mu.Lock()
	if r.state != model.Recording {
		r.mu.Unlock()
		logging.Warning(logging.CategoryRecorder, "dropping %d result(s) received after recording stopped", len(ev.Results))
		return
	}
	added := 0
	for i := max(ev.ResultIndex, 0); i < len(ev.Results); i++ {
		res := ev.Results[i]
		if !res.Final {
			continue
		}
		text := res.Best()
		if strings.TrimSpace(text) == "" {
			continue
		}
		r.transcript = append(r.transcript, model.TranscriptEntry{
			Timestamp: r.opts.Now(),
			Speaker:   r.opts.Speaker,
			Text:      text,
		})
		added++
		logging.Info(logging.CategoryRecorder, "New transcript entry: %s", text)
	}
	r.mu.Unlock()

	if added == 0 {
		return
	}
	if err := r.save(r.ctx); err != nil {
		r.fail("Failed to save transcript: " + err.Error())
	}
}

// OnError reports a recognition error. Recording continues.
func (r *Recorder) OnError(err error) {
	r.fail("Speech recognition error: " + err.Error())
}

// OnEnd runs the stop hook if one is installed, otherwise restarts the
// recognizer while recording.
func (r *Recorder) OnEnd() {
	r.mu.Lock()
	if hook := r.endHook; hook != nil {
		r.endHook = nil
		r.mu.Unlock()
		logging.Info(logging.CategorySTT, "Speech recognition ended")
		hook()
		return
	}
	if r.stopping || r.state != model.Recording || r.sess == nil {
		r.mu.Unlock()
		logging.Info(logging.CategorySTT, "Speech recognition ended (not restarting)")
		return
	}
	rec := r.sess.Recognizer
	r.mu.Unlock()

	logging.Info(logging.CategorySTT, "Restarting speech recognition...")
	err := rec.Start(r.ctx)
	switch {
	case err == nil:
	case errors.Is(err, stt.ErrAudioClosed):
		logging.Warning(logging.CategoryCapture, "audio input ended; speech recognition stays stopped until recording is stopped")
	case errors.Is(err, stt.ErrClosed), errors.Is(err, context.Canceled):
		logging.Debug(logging.CategorySTT, "restart skipped: %v", err)
	default:
		r.fail("Speech recognition error: restart failed: " + err.Error())
	}
}

// Stop ends recording and exports the transcript. It is a no-op while idle.
func (r *Recorder) Stop(ctx context.Context) error {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()
	return r.stop(ctx)
}

func (r *Recorder) stop(ctx context.Context) error {
	r.mu.Lock()
	if r.state != model.Recording {
		r.mu.Unlock()
		logging.Info(logging.CategoryRecorder, "No recording in progress")
		return nil
	}
	ended := make(chan struct{})
	r.endHook = func() { close(ended) }
	r.stopping = true
	rec := r.sess.Recognizer
	r.mu.Unlock()

	logging.Info(logging.CategoryRecorder, "Stopping recording...")
	err := rec.Stop()
	if err == nil {
		err = r.settle(ctx, ended)
	}

	r.mu.Lock()
	sess := r.sess
	r.sess = nil
	r.state = model.Idle
	r.endHook = nil
	r.stopping = false
	count := len(r.transcript)
	r.mu.Unlock()
	sess.CleanupResources()

	if err != nil {
		err = tag(ErrEngine, err)
		r.fail("Failed to stop recording: " + err.Error())
		return errors.Wrap(err, "stop recording")
	}

	logging.Info(logging.CategoryRecorder, "Final transcript length before generating file: %d", count)
	if err := r.export(ctx); err != nil {
		r.fail("Failed to stop recording: " + err.Error())
		return errors.Wrap(err, "stop recording")
	}
	return nil
}

// settle waits for the recognizer's end, then for the settle delay so
// trailing results are still accepted.
func (r *Recorder) settle(ctx context.Context, ended <-chan struct{}) error {
	select {
	case <-ended:
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "waiting for speech recognition to end")
	}
	t := time.NewTimer(r.opts.SettleDelay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Export renders the transcript and hands it to the downloader. Exported
// entries are cleared only after the download succeeds.
func (r *Recorder) Export(ctx context.Context) error {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()
	return r.export(ctx)
}

func (r *Recorder) export(ctx context.Context) error {
	r.mu.Lock()
	entries := r.transcript.Clone()
	r.mu.Unlock()
	if len(entries) == 0 {
		logging.Warning(logging.CategoryRecorder, "Transcript is empty, nothing to download.")
		return nil
	}

	logging.Info(logging.CategoryRecorder, "Generating transcript file with entries: %d", len(entries))
	now := r.opts.Now()
	doc := transcript.Render(r.opts.Formatter, now, entries)
	url := r.opts.Blobs.CreateURL([]byte(doc), transcript.ContentType)
	res := r.opts.Downloader.DownloadFile(ctx, url, transcript.Filename(now))
	r.opts.Blobs.RevokeURL(url)

	if !res.Success {
		r.fail("Failed to generate transcript: Download failed")
		return ErrDownloadFailed
	}

	logging.Info(logging.CategoryRecorder, "Download successful, clearing transcript data")
	r.mu.Lock()
	r.transcript = r.transcript[len(entries):].Clone()
	r.mu.Unlock()
	if err := r.save(ctx); err != nil {
		r.fail("Failed to generate transcript: " + err.Error())
		return err
	}
	logging.Success(logging.CategoryRecorder, "Transcript data cleared successfully")
	return nil
}

// RecoverPending exports a transcript left in the store by a process that
// exited while recording. A failed export keeps the entries in memory and in
// the store.
func (r *Recorder) RecoverPending(ctx context.Context) error {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	r.mu.Lock()
	busy := r.state == model.Recording || len(r.transcript) > 0
	r.mu.Unlock()
	if busy {
		return nil
	}

	var saved model.Transcript
	ok, err := r.opts.Store.Get(ctx, storage.TranscriptKey, &saved)
	if err != nil {
		err = tag(ErrStorage, err)
		r.fail("Failed to load saved transcript: " + err.Error())
		return err
	}
	if !ok || len(saved) == 0 {
		return nil
	}

	logging.Info(logging.CategoryRecorder, "Recovering %d transcript entries from a previous session", len(saved))
	r.mu.Lock()
	r.transcript = saved
	r.mu.Unlock()
	return r.export(ctx)
}

// Close stops any recording, exporting what was captured, and releases the
// recorder. Further Start calls fail with ErrClosed.
func (r *Recorder) Close(ctx context.Context) error {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	err := r.stop(ctx)
	r.mu.Lock()
	already := r.closed
	r.closed = true
	r.mu.Unlock()
	if !already {
		r.cancel()
		r.analyzer.Stop()
	}
	return err
}

// save mirrors the transcript into the store, removing the key when empty.
func (r *Recorder) save(ctx context.Context) error {
	r.persistMu.Lock()
	defer r.persistMu.Unlock()

	r.mu.Lock()
	snapshot := r.transcript.Clone()
	r.mu.Unlock()

	var err error
	if len(snapshot) == 0 {
		err = r.opts.Store.Remove(ctx, storage.TranscriptKey)
	} else {
		err = r.opts.Store.Set(ctx, storage.TranscriptKey, snapshot)
	}
	if err != nil {
		return tag(ErrStorage, err)
	}
	logging.Debug(logging.CategoryStorage, "Transcript saved, current length: %d", len(snapshot))
	return nil
}

func (r *Recorder) fail(message string) {
	logging.Error(logging.CategoryRecorder, "Error: %s", message)
	r.opts.Emitter.Emit(events.Event{Type: events.TypeError, Message: message})
}
