package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mrsingh-rishi/meeting-transcriber/capture"
	"github.com/mrsingh-rishi/meeting-transcriber/config"
	"github.com/mrsingh-rishi/meeting-transcriber/download"
	"github.com/mrsingh-rishi/meeting-transcriber/events"
	"github.com/mrsingh-rishi/meeting-transcriber/logging"
	"github.com/mrsingh-rishi/meeting-transcriber/popup"
	"github.com/mrsingh-rishi/meeting-transcriber/recorder"
	"github.com/mrsingh-rishi/meeting-transcriber/server"
	"github.com/mrsingh-rishi/meeting-transcriber/storage"
	"github.com/mrsingh-rishi/meeting-transcriber/stt"
	"github.com/mrsingh-rishi/meeting-transcriber/transcript"
)

const usage = `usage: meetrec <command> [flags]

commands:
  serve    run the recording daemon
  start    start recording
  stop     stop recording and save the transcript
  status   show whether a recording is in progress
`

// shutdownTimeout bounds the final stop and export on daemon exit.
const shutdownTimeout = 30 * time.Second

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cmd, args := os.Args[1], os.Args[2:]

	cfg, err := config.Load(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logging.Init(cfg.LogLevel, cfg.LogFormat)

	switch cmd {
	case "serve":
		err = serve(cfg)
	case "start", "stop", "status":
		err = control(cmd, cfg)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		logging.Fail(logging.CategoryApp, "%s: %v", cmd, err)
		os.Exit(1)
	}
}

func newFactory(cfg *config.Config) stt.Factory {
	if cfg.STTEngine == config.EngineOpenAI {
		return stt.NewOpenAIFactory(stt.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
			BaseURL: cfg.OpenAIBaseURL,
			Window:  cfg.OpenAIWindow,
		})
	}
	return stt.NewDeepgramFactory(stt.DeepgramConfig{
		APIKey:   cfg.DeepgramAPIKey,
		Model:    cfg.DeepgramModel,
		Endpoint: cfg.DeepgramURL,
	})
}

func serve(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	device, err := capture.ParseSource(cfg.AudioSource, capture.Format{SampleRate: cfg.SampleRate, Channels: cfg.Channels})
	if err != nil {
		return err
	}
	store, err := storage.Open(cfg.StoreDriver, cfg.StorePath)
	if err != nil {
		return err
	}
	defer store.Close()
	logging.Info(logging.CategoryStorage, "using %s store at %s", cfg.StoreDriver, cfg.StorePath)

	blobs := download.NewBlobStore()
	downloader := download.NewService(cfg.SaveDir, blobs)
	hub := events.NewHub(32)

	rec, err := recorder.New(recorder.Options{
		Device:      device,
		Factory:     newFactory(cfg),
		Store:       store,
		Downloader:  downloader,
		Blobs:       blobs,
		Emitter:     hub,
		Speaker:     cfg.Speaker,
		Language:    cfg.Language,
		SettleDelay: cfg.SettleDelay,
		Formatter:   transcript.NewFormatter(cfg.Locale, nil),
	})
	if err != nil {
		return err
	}
	logging.Info(logging.CategoryApp, "MeetingTranscriber initialized engine=%s source=%s", cfg.STTEngine, cfg.AudioSource)

	if cfg.RecoverOnStart {
		if err := rec.RecoverPending(context.Background()); err != nil {
			logging.Warning(logging.CategoryApp, "recovering previous transcript: %v", err)
		}
	}

	srv := server.New(rec, downloader, hub)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen(cfg.ListenAddr)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sig)

	var serveErr error
	select {
	case serveErr = <-errCh:
	case s := <-sig:
		logging.Info(logging.CategoryApp, "received %s, shutting down", s)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := rec.Close(ctx); err != nil {
		logging.Error(logging.CategoryApp, "closing recorder: %v", err)
	}
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warning(logging.CategoryServer, "server shutdown: %v", err)
	}
	return serveErr
}

func control(cmd string, cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), popup.DefaultTimeout)
	defer cancel()

	ctrl := popup.NewController(popup.NewHTTPClient(cfg.DaemonURL), popup.TerminalView{W: os.Stdout})
	ctrl.Open(ctx)
	switch cmd {
	case "start":
		return ctrl.ClickStart(ctx)
	case "stop":
		return ctrl.ClickStop(ctx)
	}
	return nil
}
