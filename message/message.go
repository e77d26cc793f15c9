// Package message defines the control messages exchanged between the popup
// and the daemon.
package message

import (
	"github.com/mrsingh-rishi/meeting-transcriber/download"
)

// Actions understood by the daemon.
const (
	ActionStartRecording = "startRecording"
	ActionStopRecording  = "stopRecording"
	ActionGetStatus      = "getStatus"
	ActionDownloadFile   = "downloadFile"
)

// Request is a control message. URL and Filename are only used by
// downloadFile.
type Request struct {
	Action   string `json:"action"`
	URL      string `json:"url,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// Response answers startRecording and stopRecording.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// StatusResponse answers getStatus.
type StatusResponse struct {
	IsRecording bool `json:"isRecording"`
}

// DownloadResponse answers downloadFile.
type DownloadResponse = download.Result

// ErrorResponse is returned for malformed or unknown messages.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Known reports whether action is one of the supported actions.
func Known(action string) bool {
	switch action {
	case ActionStartRecording, ActionStopRecording, ActionGetStatus, ActionDownloadFile:
		return true
	}
	return false
}
