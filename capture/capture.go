// Package capture acquires audio input and fans it out to the speech
// recognizer and the level analyzer.
package capture

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/mrsingh-rishi/meeting-transcriber/model"
)

var (
	// ErrPermissionDenied means the platform refused access to the device.
	ErrPermissionDenied = errors.New("capture: permission denied")
	// ErrNotFound means no usable input device exists.
	ErrNotFound = errors.New("capture: device not found")
)

// Format describes the PCM carried by a stream.
type Format struct {
	SampleRate int
	Channels   int
}

// Device opens audio input.
type Device interface {
	Open(ctx context.Context) (Stream, error)
}

// Stream is live audio input. Chunks is closed when the stream ends.
type Stream interface {
	Format() Format
	Chunks() <-chan model.AudioChunk
	Close() error
}

// ParseSource builds the device named by an AUDIO_SOURCE value:
// "microphone" or "file:<path>".
func ParseSource(source string, format Format) (Device, error) {
	switch {
	case source == "" || source == "microphone":
		return NewMicrophone(format), nil
	case strings.HasPrefix(source, "file:"):
		path := strings.TrimPrefix(source, "file:")
		if path == "" {
			return nil, errors.New("capture: file source needs a path")
		}
		return &FileDevice{Path: path, Realtime: true}, nil
	default:
		return nil, errors.Errorf("capture: unknown audio source %q", source)
	}
}
