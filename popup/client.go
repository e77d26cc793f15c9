package popup

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"

	"github.com/mrsingh-rishi/meeting-transcriber/message"
)

// DefaultTimeout bounds a request when the context carries no deadline.
// Stopping waits for the export, so it is generous.
const DefaultTimeout = 2 * time.Minute

// HTTPClient posts messages to the daemon's /api/messages endpoint.
type HTTPClient struct {
	BaseURL string
	Timeout time.Duration
}

// NewHTTPClient returns a client for the daemon at baseURL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{BaseURL: strings.TrimRight(baseURL, "/"), Timeout: DefaultTimeout}
}

// Send posts req and decodes the JSON answer into resp.
func (c *HTTPClient) Send(ctx context.Context, req message.Request, resp any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timeout := c.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	agent := fiber.Post(c.BaseURL + "/api/messages").JSON(req).Timeout(timeout)
	code, body, errs := agent.Struct(resp)
	switch {
	case code == 0 && len(errs) > 0:
		return errors.Wrapf(errs[0], "send %s", req.Action)
	case code != fiber.StatusOK:
		var e message.ErrorResponse
		if err := json.Unmarshal(body, &e); err != nil || e.Error == "" {
			e.Error = strings.TrimSpace(string(body))
		}
		return errors.Errorf("%s: daemon answered %d: %s", req.Action, code, e.Error)
	case len(errs) > 0:
		return errors.Wrapf(errs[0], "decode %s response", req.Action)
	}
	return nil
}
