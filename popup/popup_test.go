package popup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrsingh-rishi/meeting-transcriber/message"
)

// fakeClient answers each action from a table.
type fakeClient struct {
	answers map[string]any
	errs    map[string]error
	sent    []string
}

func (f *fakeClient) Send(ctx context.Context, req message.Request, resp any) error {
	f.sent = append(f.sent, req.Action)
	if err := f.errs[req.Action]; err != nil {
		return err
	}
	data, err := json.Marshal(f.answers[req.Action])
	if err != nil {
		return err
	}
	return json.Unmarshal(data, resp)
}

type captureView struct {
	states []State
}

func (v *captureView) Render(s State) { v.states = append(v.states, s) }

func (v *captureView) last() State { return v.states[len(v.states)-1] }

func TestOpen_ReflectsDaemonState(t *testing.T) {
	client := &fakeClient{answers: map[string]any{
		message.ActionGetStatus: message.StatusResponse{IsRecording: true},
	}}
	view := &captureView{}
	c := NewController(client, view)

	st := c.Open(context.Background())
	assert.True(t, st.Recording)
	assert.False(t, st.StartEnabled)
	assert.True(t, st.StopEnabled)
	assert.Equal(t, StatusRecording, view.last().Status)
	assert.Equal(t, "recording", view.last().Class)
}

func TestOpen_UnreachableDaemonShowsReady(t *testing.T) {
	client := &fakeClient{errs: map[string]error{message.ActionGetStatus: errors.New("connection refused")}}
	view := &captureView{}
	c := NewController(client, view)

	st := c.Open(context.Background())
	assert.False(t, st.Recording)
	assert.True(t, st.StartEnabled)
	assert.False(t, st.StopEnabled)
	assert.Equal(t, StatusReady, view.last().Status)
}

func TestClickStartThenStop(t *testing.T) {
	client := &fakeClient{answers: map[string]any{
		message.ActionGetStatus:      message.StatusResponse{},
		message.ActionStartRecording: message.Response{Success: true},
		message.ActionStopRecording:  message.Response{Success: true},
	}}
	view := &captureView{}
	c := NewController(client, view)
	ctx := context.Background()

	c.Open(ctx)
	require.NoError(t, c.ClickStart(ctx))
	assert.Equal(t, StatusRecording, view.last().Status)
	assert.False(t, view.last().StartEnabled)

	// The start button is disabled while recording.
	require.NoError(t, c.ClickStart(ctx))

	require.NoError(t, c.ClickStop(ctx))
	assert.Equal(t, StatusReady, view.last().Status)
	assert.True(t, view.last().StartEnabled)
	assert.False(t, view.last().StopEnabled)

	assert.Equal(t, []string{message.ActionGetStatus, message.ActionStartRecording, message.ActionStopRecording}, client.sent)
}

func TestClickStart_Failure(t *testing.T) {
	client := &fakeClient{answers: map[string]any{
		message.ActionStartRecording: message.Response{Success: false, Error: "capture: permission denied"},
	}}
	view := &captureView{}
	c := NewController(client, view)

	err := c.ClickStart(context.Background())
	require.Error(t, err)
	assert.Equal(t, StatusStartError, view.last().Status)
	assert.False(t, c.State().Recording)
	assert.True(t, c.State().StartEnabled)
}

func TestClickStop_Failure(t *testing.T) {
	client := &fakeClient{
		answers: map[string]any{message.ActionGetStatus: message.StatusResponse{IsRecording: true}},
		errs:    map[string]error{message.ActionStopRecording: errors.New("daemon answered 500")},
	}
	view := &captureView{}
	c := NewController(client, view)
	c.Open(context.Background())

	require.Error(t, c.ClickStop(context.Background()))
	assert.Equal(t, StatusStopError, view.last().Status)
	assert.True(t, c.State().Recording)
}

func TestTerminalView(t *testing.T) {
	var buf bytes.Buffer
	TerminalView{W: &buf}.Render(stateFor(true))
	assert.Equal(t, "[Start (disabled)] [Stop] Recording in progress...\n", buf.String())
}

func TestHTTPClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/messages" {
			http.NotFound(w, r)
			return
		}
		var req message.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(message.ErrorResponse{Error: "invalid JSON"})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch req.Action {
		case message.ActionGetStatus:
			json.NewEncoder(w).Encode(message.StatusResponse{IsRecording: true})
		case message.ActionStartRecording:
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(message.Response{Success: false, Error: "capture: device not found"})
		default:
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(message.ErrorResponse{Error: "unknown action"})
		}
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL + "/")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var status message.StatusResponse
	require.NoError(t, client.Send(ctx, message.Request{Action: message.ActionGetStatus}, &status))
	assert.True(t, status.IsRecording)

	var resp message.Response
	err := client.Send(ctx, message.Request{Action: message.ActionStartRecording}, &resp)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")

	err = client.Send(ctx, message.Request{Action: "pauseRecording"}, &resp)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown action")
}

func TestHTTPClient_Unreachable(t *testing.T) {
	client := NewHTTPClient("http://127.0.0.1:1")
	client.Timeout = time.Second
	var status message.StatusResponse
	assert.Error(t, client.Send(context.Background(), message.Request{Action: message.ActionGetStatus}, &status))
}
