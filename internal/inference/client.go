// Package inference calls the trained price model.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mohammed-shakir/flight-fare-estimator/internal/core/model"
	"github.com/mohammed-shakir/flight-fare-estimator/internal/core/observability"
)

type Predictor interface {
	Predict(ctx context.Context, row model.FeatureRow) (float64, error)
}

// Client posts a single-row dataframe in "split" orientation and expects
// {"predictions": [price]} back.
type Client struct {
	logger   *slog.Logger
	client   *http.Client
	endpoint *url.URL
	startNow func() time.Time // for tests
}

var _ Predictor = (*Client)(nil)

func NewClient(logger *slog.Logger, client *http.Client, endpoint string) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse model url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("model url %q must be absolute", endpoint)
	}
	return &Client{logger: logger, client: client, endpoint: u, startNow: time.Now}, nil
}

type splitFrame struct {
	Columns []string `json:"columns"`
	Data    [][]any  `json:"data"`
}

type request struct {
	DataframeSplit splitFrame `json:"dataframe_split"`
}

type response struct {
	Predictions []float64 `json:"predictions"`
}

func encodeRow(row model.FeatureRow) ([]byte, error) {
	return json.Marshal(request{DataframeSplit: splitFrame{
		Columns: model.FeatureColumns,
		Data:    [][]any{row.Values()},
	}})
}

func (c *Client) Predict(ctx context.Context, row model.FeatureRow) (float64, error) {
	body, err := encodeRow(row)
	if err != nil {
		return 0, fmt.Errorf("encode features: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := c.startNow()
	price, err := c.do(req)
	dur := time.Since(start)
	observability.ObserveUpstream("model", err, dur.Seconds())
	if err != nil {
		return 0, err
	}
	c.logger.DebugContext(ctx, "prediction done", "price", price, "duration", dur.String())
	return price, nil
}

func (c *Client) do(req *http.Request) (float64, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		return 0, fmt.Errorf("model status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var out response
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode prediction: %w", err)
	}
	if len(out.Predictions) != 1 {
		return 0, fmt.Errorf("model returned %d predictions for 1 row", len(out.Predictions))
	}
	p := out.Predictions[0]
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0, errors.New("model returned a non-finite prediction")
	}
	return p, nil
}
