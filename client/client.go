// Package client talks to the relay the way an edge camera does.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"camrelay/models"

	"github.com/pkg/errors"
)

type Client struct {
	baseURL string
	camera  int
	http    *http.Client
}

func New(baseURL string, camera int, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		camera:  camera,
		http:    &http.Client{Timeout: timeout},
	}
}

// StatusError is returned when the relay answers with a non-2xx code.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("relay returned %d: %s", e.Code, e.Message)
}

func (c *Client) post(ctx context.Context, path, contentType string, body []byte) (*models.CommandResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "POST %s", path)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading response")
	}

	if resp.StatusCode/100 != 2 {
		var failure struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(raw, &failure)
		return nil, &StatusError{Code: resp.StatusCode, Message: failure.Message}
	}

	var result models.CommandResult
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &result); err != nil {
			return nil, errors.Wrap(err, "decoding response")
		}
	}
	return &result, nil
}

func (c *Client) Register(ctx context.Context, streamURL string) error {
	body, err := json.Marshal(models.Registration{StreamURL: streamURL})
	if err != nil {
		return err
	}
	_, err = c.post(ctx, fmt.Sprintf("/camera/register/%d", c.camera), "application/json", body)
	return err
}

func (c *Client) Heartbeat(ctx context.Context) error {
	_, err := c.post(ctx, fmt.Sprintf("/camera/heartbeat/%d", c.camera), "", nil)
	return err
}

func (c *Client) TriggerAlarm(ctx context.Context) (string, error) {
	res, err := c.post(ctx, fmt.Sprintf("/camera/trigger_alarm/%d", c.camera), "", nil)
	if err != nil {
		return "", err
	}
	return res.Command, nil
}

func (c *Client) ClearAlarm(ctx context.Context) (string, error) {
	res, err := c.post(ctx, fmt.Sprintf("/camera/clear_alarm/%d", c.camera), "", nil)
	if err != nil {
		return "", err
	}
	return res.Command, nil
}

func (c *Client) PushFrame(ctx context.Context, frame []byte) error {
	_, err := c.post(ctx, fmt.Sprintf("/camera/frame/%d", c.camera), "image/jpeg", frame)
	return err
}
