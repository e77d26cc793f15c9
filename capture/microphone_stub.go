//go:build !portaudio

package capture

import (
	"context"

	"github.com/pkg/errors"
)

// Microphone is unavailable in builds without the portaudio tag.
type Microphone struct {
	Format Format
}

// NewMicrophone returns a device that reports no input hardware.
func NewMicrophone(format Format) Device {
	return &Microphone{Format: format}
}

// Open always fails with ErrNotFound.
func (m *Microphone) Open(ctx context.Context) (Stream, error) {
	return nil, errors.Wrap(ErrNotFound, "built without portaudio support (rebuild with -tags portaudio)")
}
