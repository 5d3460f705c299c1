package inertia

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
)

// SSRGateway talks to an external render server that executes the SSR
// bundle. The gateway starts disabled; Probe enables it once the render
// server answers its health endpoint, so a slow-starting render process
// never blocks serving (pages fall back to client-side rendering).
type SSRGateway struct {
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
	enabled atomic.Bool
}

// SSRResult is the render server's response: head fragments and the
// pre-rendered body markup.
type SSRResult struct {
	Head []string `json:"head"`
	Body string   `json:"body"`
}

// NewSSRGateway creates a gateway for the render server at baseURL.
func NewSSRGateway(baseURL string, logger zerolog.Logger) *SSRGateway {
	return &SSRGateway{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
		logger:  logger,
	}
}

// Enabled reports whether the render server has passed its health probe.
func (g *SSRGateway) Enabled() bool {
	return g.enabled.Load()
}

// Probe polls the render server's health endpoint with exponential backoff
// until it answers or the context is cancelled, then enables the gateway.
func (g *SSRGateway) Probe(ctx context.Context) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, g.health(ctx)
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(2*time.Minute),
	)
	if err != nil {
		return fmt.Errorf("render server at %s never became healthy: %w", g.baseURL, err)
	}

	g.enabled.Store(true)
	g.logger.Info().Str("url", g.baseURL).Msg("SSR render server is healthy")
	return nil
}

func (g *SSRGateway) health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("render server health returned %d", resp.StatusCode)
	}
	return nil
}

// Render posts the page object to the render server and returns the
// pre-rendered markup.
func (g *SSRGateway) Render(ctx context.Context, page Page) (*SSRResult, error) {
	body, err := json.Marshal(page)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/render", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("render server returned %d", resp.StatusCode)
	}

	var result SSRResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode render response: %w", err)
	}
	return &result, nil
}
