package simulate

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/okian/checkpoint/internal/domain/model"
)

const retryWait = 200 * time.Millisecond

// Client talks to the checkpoint HTTP API.
type Client struct {
	rest *resty.Client
}

type predictResponse struct {
	OK    bool        `json:"ok"`
	Event model.Event `json:"event"`
}

type errorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// NewClient returns a client for baseURL.
func NewClient(baseURL string, timeout time.Duration, retries int) *Client {
	r := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetRetryCount(retries).
		SetRetryWaitTime(retryWait)
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(DefaultTimeout)
	}
	return &Client{rest: r}
}

// Health checks the liveness route.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.rest.R().SetContext(ctx).Get("/api/health")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, resp.StatusCode())
	}
	return nil
}

// Status reads model readiness and the number of cached events.
func (c *Client) Status(ctx context.Context) (Status, error) {
	var st Status
	resp, err := c.rest.R().SetContext(ctx).SetResult(&st).Get("/api/checkpoints/status")
	if err != nil {
		return Status{}, fmt.Errorf("status: %w", err)
	}
	if resp.IsError() {
		return Status{}, fmt.Errorf("status: unexpected status %d", resp.StatusCode())
	}
	return st, nil
}

// Predict submits one reading and returns the recorded event.
func (c *Client) Predict(ctx context.Context, r Reading) (model.Event, error) {
	var (
		ok   predictResponse
		fail errorResponse
	)
	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(r).
		SetResult(&ok).
		SetError(&fail).
		Post("/api/checkpoints/predict")
	if err != nil {
		return model.Event{}, fmt.Errorf("predict: %w", err)
	}
	if resp.IsError() {
		return model.Event{}, fmt.Errorf("predict: status %d: %s", resp.StatusCode(), fail.Error)
	}
	return ok.Event, nil
}
