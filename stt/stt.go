// Package stt adapts speech-to-text engines to a continuous recognizer that
// behaves like a browser speech-recognition session: it streams interim and
// final results, may end on its own, and can be restarted.
package stt

import (
	"context"

	"github.com/pkg/errors"

	"github.com/mrsingh-rishi/meeting-transcriber/capture"
	"github.com/mrsingh-rishi/meeting-transcriber/model"
	"github.com/mrsingh-rishi/meeting-transcriber/types"
)

var (
	// ErrRunning is returned by Start while a session is active.
	ErrRunning = errors.New("stt: session already running")
	// ErrAudioClosed is returned by Start once the audio feed has ended.
	ErrAudioClosed = errors.New("stt: audio feed closed")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("stt: recognizer closed")
)

// Recognizer is a restartable recognition engine.
//
// Every session started with Start ends with exactly one EventEnd. Stop asks
// the active session to flush final results and end; called with no active
// session it emits an EventEnd straight away, so a caller waiting for the end
// never hangs.
type Recognizer interface {
	Start(ctx context.Context) error
	Stop() error
	Events() <-chan types.RecognitionEvent
	// Close tears down any session without further events.
	Close() error
}

// Options are the session settings shared by every engine.
type Options struct {
	Language       string
	Continuous     bool
	InterimResults bool
}

// Factory builds a recognizer reading audio in the given format.
type Factory func(audio <-chan model.AudioChunk, format capture.Format, opts Options) (Recognizer, error)

const eventBuffer = 64
