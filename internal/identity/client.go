// Package identity talks to the remote admin identity service.
package identity

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

	"github.com/rs/zerolog"

	"github.com/mrlokans/adminauth/internal/config"
	"github.com/mrlokans/adminauth/internal/flow"
)

const (
	defaultTimeout     = 15 * time.Second
	defaultInitRetries = 3
	initialRetryDelay  = 1 * time.Second
	maxRetryDelay      = 30 * time.Second
	retryBackoffFactor = 2
	maxErrorBody       = 1 << 20
	userAgent          = "adminauth/1.0"
)

// Client posts auth forms and checks the identity service.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	initRetries int
	retryDelay  time.Duration
	log         zerolog.Logger
}

// NewClient creates a client for cfg.BaseURL.
func NewClient(cfg config.Identity, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	retries := cfg.InitRetries
	if retries <= 0 {
		retries = defaultInitRetries
	}
	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		initRetries: retries,
		retryDelay:  initialRetryDelay,
		log:         logger.With().Str("component", "identity").Logger(),
	}
}

type envelope[T any] struct {
	Data T `json:"data"`
}

// Post sends one auth form. Non-2xx answers are returned as
// *flow.ResponseError carrying the decoded error document; transport failures
// are returned as-is. Post never retries.
func (c *Client) Post(ctx context.Context, path string, body map[string]any) (*flow.AuthResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respErr := &flow.ResponseError{Status: resp.StatusCode, Body: map[string]any{}}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &respErr.Body); err != nil {
				c.log.Debug().Int("status", resp.StatusCode).Msg("non-JSON error body")
				respErr.Body = map[string]any{}
			}
		}
		return nil, respErr
	}

	var out envelope[flow.AuthResponse]
	if resp.StatusCode == http.StatusNoContent {
		return &out.Data, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &out.Data, nil
}

// InitInfo is the public bootstrap information of the admin panel.
type InitInfo struct {
	HasAdmin bool   `json:"hasAdmin"`
	UUID     string `json:"uuid,omitempty"`
}

// Init fetches /admin/init, retrying on rate limits and server errors.
func (c *Client) Init(ctx context.Context) (*InitInfo, error) {
	var lastErr error

	for attempt := 0; attempt < c.initRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.calculateRetryDelay(attempt)):
			}
		}

		info, err := c.doInit(ctx)
		if err == nil {
			return info, nil
		}
		lastErr = err

		// Only retry on rate limits or server errors
		if !isRetryableError(err) {
			return nil, err
		}
		c.log.Debug().Err(err).Int("attempt", attempt+1).Msg("retrying init check")
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *Client) doInit(ctx context.Context) (*InitInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/admin/init", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}
	if resp.StatusCode >= 500 {
		return nil, &ServerError{StatusCode: resp.StatusCode}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var out envelope[InitInfo]
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &out.Data, nil
}

func (c *Client) calculateRetryDelay(attempt int) time.Duration {
	delay := c.retryDelay
	for i := 0; i < attempt; i++ {
		delay *= time.Duration(retryBackoffFactor)
	}
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	return delay
}

func isRetryableError(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var serverErr *ServerError
	return errors.As(err, &serverErr)
}
