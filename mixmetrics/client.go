// Package mixmetrics reports mixnode traffic counters to the directory server.
package mixmetrics

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ozontech/seq-registry/consts"
	"github.com/ozontech/seq-registry/logger"
	"github.com/ozontech/seq-registry/metric"
	"github.com/ozontech/seq-registry/network/circuitbreaker"
	"github.com/ozontech/seq-registry/tracing"
)

var ErrUnexpectedStatus = errors.New("unexpected response status")

// MixMetric is what a mixnode saw during one reporting interval.
type MixMetric struct {
	PubKey   string `json:"pubKey"`
	Received uint64 `json:"received"`
	// Sent maps the identity key of a peer to the number of packets sent to it.
	Sent map[string]uint64 `json:"sent"`
}

type Config struct {
	BaseURL        string                `yaml:"baseURL"`
	Timeout        time.Duration         `yaml:"timeout"`
	CircuitBreaker circuitbreaker.Config `yaml:"circuitBreaker"`
}

type Client struct {
	url     string
	timeout time.Duration
	http    *http.Client
	breaker *circuitbreaker.CircuitBreaker
}

func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = consts.DefaultMetricsPostTimeout
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		url:     base + consts.MixMetricsPath,
		timeout: cfg.Timeout,
		http:    &http.Client{},
		breaker: circuitbreaker.New("mixmetrics "+base, cfg.CircuitBreaker),
	}
}

// PostMixMetrics sends m. Responses other than 2xx are errors matching
// ErrUnexpectedStatus, 4xx ones don't count as failures of the server.
func (c *Client) PostMixMetrics(ctx context.Context, m MixMetric) error {
	ctx, span := tracing.StartSpan(ctx, "mixmetrics.PostMixMetrics")
	defer span.End()

	body, err := json.Marshal(m)
	if err != nil {
		return err
	}

	err = c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.post(ctx, body)
	})
	metric.MetricsPostsTotal.WithLabelValues(postStatus(err)).Inc()
	if err != nil {
		logger.Error("can't post mix metrics", zap.String("url", c.url), zap.Error(err))
		return err
	}
	logger.Debug("mix metrics posted", zap.String("pub_key", m.PubKey), zap.Uint64("received", m.Received))
	return nil
}

func (c *Client) post(ctx context.Context, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	err = fmt.Errorf("%w: %s: %s", ErrUnexpectedStatus, resp.Status, bytes.TrimSpace(msg))
	if resp.StatusCode < 500 {
		return fmt.Errorf("%w: %w", circuitbreaker.ErrBadRequest, err)
	}
	return err
}

func postStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, circuitbreaker.ErrBadRequest):
		return "rejected"
	default:
		return "error"
	}
}

