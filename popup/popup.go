// Package popup is the user-facing control surface: it forwards start and
// stop requests to the daemon and reflects the recording state as button and
// status text.
package popup

import (
	"context"

	"github.com/pkg/errors"

	"github.com/mrsingh-rishi/meeting-transcriber/logging"
	"github.com/mrsingh-rishi/meeting-transcriber/message"
)

// Status texts shown to the user.
const (
	StatusRecording  = "Recording in progress..."
	StatusReady      = "Ready to record"
	StatusStartError = "Error: Could not start recording"
	StatusStopError  = "Error: Could not stop recording"
)

// Client delivers a message to the daemon and decodes its answer into resp.
type Client interface {
	Send(ctx context.Context, req message.Request, resp any) error
}

// State is what the popup displays.
type State struct {
	Recording    bool
	StartEnabled bool
	StopEnabled  bool
	Status       string
	// Class is "recording" or "ready".
	Class string
}

// View renders the popup state.
type View interface {
	Render(State)
}

// Controller reacts to popup events.
type Controller struct {
	client Client
	view   View
	state  State
}

// NewController returns a controller showing the ready state.
func NewController(client Client, view View) *Controller {
	return &Controller{client: client, view: view, state: stateFor(false)}
}

func stateFor(recording bool) State {
	s := State{
		Recording:    recording,
		StartEnabled: !recording,
		StopEnabled:  recording,
		Status:       StatusReady,
		Class:        "ready",
	}
	if recording {
		s.Status = StatusRecording
		s.Class = "recording"
	}
	return s
}

// State returns the displayed state.
func (c *Controller) State() State {
	return c.state
}

// Open queries the daemon's status. When the daemon cannot be reached the
// popup keeps showing the ready state.
func (c *Controller) Open(ctx context.Context) State {
	var resp message.StatusResponse
	if err := c.client.Send(ctx, message.Request{Action: message.ActionGetStatus}, &resp); err != nil {
		logging.Debug(logging.CategoryPopup, "No recording in progress: %v", err)
		c.view.Render(c.state)
		return c.state
	}
	c.update(resp.IsRecording)
	return c.state
}

// ClickStart asks the daemon to start recording.
func (c *Controller) ClickStart(ctx context.Context) error {
	if !c.state.StartEnabled {
		logging.Info(logging.CategoryPopup, "start is disabled while recording")
		return nil
	}
	if err := c.send(ctx, message.ActionStartRecording); err != nil {
		logging.Error(logging.CategoryPopup, "Error starting recording: %v", err)
		c.showError(StatusStartError)
		return err
	}
	c.update(true)
	return nil
}

// ClickStop asks the daemon to stop recording.
func (c *Controller) ClickStop(ctx context.Context) error {
	if !c.state.StopEnabled {
		logging.Info(logging.CategoryPopup, "stop is disabled while idle")
		return nil
	}
	if err := c.send(ctx, message.ActionStopRecording); err != nil {
		logging.Error(logging.CategoryPopup, "Error stopping recording: %v", err)
		c.showError(StatusStopError)
		return err
	}
	c.update(false)
	return nil
}

func (c *Controller) send(ctx context.Context, action string) error {
	var resp message.Response
	if err := c.client.Send(ctx, message.Request{Action: action}, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return errors.Errorf("%s: %s", action, resp.Error)
	}
	return nil
}

func (c *Controller) update(recording bool) {
	c.state = stateFor(recording)
	c.view.Render(c.state)
}

func (c *Controller) showError(status string) {
	c.state.Status = status
	c.view.Render(c.state)
}
