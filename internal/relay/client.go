// Package relay forwards chat messages to the prediction service and sends
// the formatted answer back. It has a small resty client for the service, a
// Telegram Bot API client, and the long-poll loop that ties them together.
package relay

import (
	"context"
	"fmt"
	"strings"
	"time"

	"housing-predictor/internal/pipeline"

	"github.com/go-resty/resty/v2"
)

// Client calls the prediction service over HTTP.
type Client struct {
	base string
	rest *resty.Client
}

func NewClient(base string, timeout time.Duration) *Client {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(10 * time.Second) // default fallback
	}
	return &Client{base: strings.TrimRight(base, "/"), rest: r}
}

type stringRequest struct {
	Input string `json:"input"`
}

type healthResp struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
}

// PredictFromString posts input to /predict-from-string. Error payloads from
// the service decode into the returned Result; err is only set when no
// Result could be read at all.
func (c *Client) PredictFromString(ctx context.Context, input string) (pipeline.Result, error) {
	var result pipeline.Result
	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(stringRequest{Input: input}).
		SetResult(&result).
		SetError(&result).
		Post(c.base + "/predict-from-string")
	if err != nil {
		return pipeline.Result{}, fmt.Errorf("request failed: %w", err)
	}

	if result.Status == "" {
		return pipeline.Result{}, fmt.Errorf("predictor error: status %d, body: %s", resp.StatusCode(), resp.String())
	}
	return result, nil
}

// ModelLoaded asks /health whether the service has its model.
func (c *Client) ModelLoaded(ctx context.Context) (bool, error) {
	var health healthResp
	_, err := c.rest.R().
		SetContext(ctx).
		SetResult(&health).
		SetError(&health).
		Get(c.base + "/health")
	if err != nil {
		return false, fmt.Errorf("request failed: %w", err)
	}
	return health.ModelLoaded, nil
}
