package model

import (
	"encoding/binary"
	"math"
	"time"
)

// AudioChunk is a block of little-endian signed 16-bit PCM samples.
type AudioChunk []byte

// Samples decodes the chunk into int16 samples. A trailing odd byte is ignored.
func (c AudioChunk) Samples() []int16 {
	out := make([]int16, len(c)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(c[i*2:]))
	}
	return out
}

// ChunkFromSamples encodes int16 samples as an AudioChunk.
func ChunkFromSamples(samples []int16) AudioChunk {
	out := make(AudioChunk, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// RecordingState is the externally visible state of the recorder.
type RecordingState int

const (
	Idle RecordingState = iota
	Recording
)

func (s RecordingState) String() string {
	if s == Recording {
		return "recording"
	}
	return "idle"
}

// DefaultSpeaker is the fixed label attached to every entry.
const DefaultSpeaker = "Speaker 1"

// TranscriptEntry is one finalized utterance.
type TranscriptEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Speaker   string    `json:"speaker"`
	Text      string    `json:"text"`
}

// Transcript is the ordered list of entries of one recording session.
type Transcript []TranscriptEntry

// Clone returns a copy that does not share the backing array.
func (t Transcript) Clone() Transcript {
	if t == nil {
		return nil
	}
	out := make(Transcript, len(t))
	copy(out, t)
	return out
}

// RMS is the root-mean-square amplitude of samples, 0 for none.
func RMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}
