package api

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"cycleview/internal/config"
	"cycleview/internal/metrics"
	"cycleview/internal/models"
)

type Client struct {
	config *config.Config
	http   *http.Client
	log    *slog.Logger
}

func NewClient(cfg *config.Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		config: cfg,
		http:   &http.Client{Timeout: cfg.API.Timeout},
		log:    logger,
	}
}

func (c *Client) createRequest(ctx context.Context, method, path string, query url.Values) (*http.Request, error) {
	u := c.config.API.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, err
	}

	if c.config.API.Username != "" {
		auth := base64.StdEncoding.EncodeToString([]byte(c.config.API.Username + ":" + c.config.API.Password))
		req.Header.Add("Authorization", "Basic "+auth)
	}
	req.Header.Add("Accept", "application/json")
	req.Header.Add("User-Agent", "cycleview/1.0")

	return req, nil
}

// fetch performs a single GET and returns the body of a 2xx response.
// Every failure is reported as a *TransportError.
func (c *Client) fetch(ctx context.Context, op, path string, query url.Values) ([]byte, error) {
	start := time.Now()
	status := "error"
	defer func() {
		metrics.UpstreamRequests.WithLabelValues(op, status).Inc()
		metrics.UpstreamDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	req, err := c.createRequest(ctx, http.MethodGet, path, query)
	if err != nil {
		return nil, &TransportError{Op: op, URL: path, Err: fmt.Errorf("creating request: %w", err)}
	}
	c.log.Debug("fetching", "op", op, "url", req.URL.String())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, URL: req.URL.String(), Err: fmt.Errorf("making request: %w", err)}
	}
	defer resp.Body.Close()
	status = strconv.Itoa(resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: op, URL: req.URL.String(), StatusCode: resp.StatusCode, Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{Op: op, URL: req.URL.String(), StatusCode: resp.StatusCode, Body: truncate(body, 512)}
	}

	return body, nil
}

// ListCycles fetches up to limit of the most recent cycle summaries for a
// device. limit <= 0 uses the configured default.
func (c *Client) ListCycles(ctx context.Context, imei string, limit int) (*models.CycleList, error) {
	if limit <= 0 {
		limit = c.config.API.Limit
	}
	if limit <= 0 {
		limit = config.DefaultLimit
	}

	query := url.Values{}
	query.Set("imei", imei)
	query.Set("limit", strconv.Itoa(limit))

	body, err := c.fetch(ctx, "list", "/api/snapshots", query)
	if err != nil {
		return nil, err
	}

	list, err := NormalizeList(body)
	if err != nil {
		c.log.Warn("cycle list response was malformed", "imei", imei, "err", err)
	}
	return list, nil
}

// GetCycleDetail fetches one cycle's full detail.
func (c *Client) GetCycleDetail(ctx context.Context, imei string, cycleNumber int) (*models.CycleDetail, error) {
	path := fmt.Sprintf("/api/snapshots/%s/cycles/%d", url.PathEscape(imei), cycleNumber)

	body, err := c.fetch(ctx, "detail", path, nil)
	if err != nil {
		return nil, err
	}

	detail, err := NormalizeDetail(body)
	if err != nil {
		c.log.Warn("normalizing cycle detail to empty", "imei", imei, "cycle", cycleNumber, "err", err)
	}
	return detail, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "…"
}
