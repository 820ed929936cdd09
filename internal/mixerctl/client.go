// Package mixerctl is the default HTTP/JSON implementation of the
// control-plane capabilities the orchestrator consumes. It speaks to a mixer
// node's control endpoint with single-attempt requests and no retries; the
// orchestrator's error policy decides what a failure means.
package mixerctl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"conference-orchestrator/internal/orchestrator"
)

const defaultTimeout = 15 * time.Second

// Factory creates control-plane clients and conference handles for mixer
// nodes. It implements both orchestrator.ConferenceFactory and
// orchestrator.ControlClientFactory.
type Factory struct {
	httpc *http.Client
	log   *slog.Logger
}

// NewFactory returns a Factory using its own HTTP client with a fixed
// per-call timeout. The orchestrator imposes no deadline of its own.
func NewFactory(log *slog.Logger) *Factory {
	return &Factory{
		httpc: &http.Client{Timeout: defaultTimeout},
		log:   log,
	}
}

// Broadcaster implements orchestrator.ControlClientFactory.
func (f *Factory) Broadcaster(node *orchestrator.MixerNode) (orchestrator.BroadcastControl, error) {
	return &client{base: strings.TrimRight(node.ControlURL, "/"), httpc: f.httpc}, nil
}

// client issues JSON calls against one node's control endpoint.
type client struct {
	base  string
	httpc *http.Client
}

func (c *client) call(method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, c.base+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s %s: node returned %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

// CreateBroadcast implements orchestrator.BroadcastControl.
func (c *client) CreateBroadcast(name, tag string) (int, error) {
	var resp struct {
		SessionID int `json:"session_id"`
	}
	err := c.call(http.MethodPost, "/broadcasts", map[string]string{"name": name, "tag": tag}, &resp)
	if err != nil {
		return 0, err
	}
	return resp.SessionID, nil
}

// PublishBroadcast implements orchestrator.BroadcastControl.
func (c *client) PublishBroadcast(sessionID int, tag string) error {
	return c.call(http.MethodPost, fmt.Sprintf("/broadcasts/%d/publish", sessionID), map[string]string{"tag": tag}, nil)
}

// UnpublishBroadcast implements orchestrator.BroadcastControl.
func (c *client) UnpublishBroadcast(sessionID int) error {
	return c.call(http.MethodPost, fmt.Sprintf("/broadcasts/%d/unpublish", sessionID), nil, nil)
}

// DeleteBroadcast implements orchestrator.BroadcastControl.
func (c *client) DeleteBroadcast(sessionID int) error {
	return c.call(http.MethodDelete, fmt.Sprintf("/broadcasts/%d", sessionID), nil, nil)
}

// AddBroadcastToken implements orchestrator.BroadcastControl.
func (c *client) AddBroadcastToken(sessionID int, token string) error {
	return c.call(http.MethodPost, fmt.Sprintf("/broadcasts/%d/tokens", sessionID), map[string]string{"token": token}, nil)
}
