package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/SmartRead/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/SmartRead/pkg/resilience"
)

// maxTextBytes caps a single request; passages are a few kilobytes.
const maxTextBytes = 64 << 10

type libreRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type libreResponse struct {
	TranslatedText string `json:"translatedText"`
	Error          string `json:"error"`
}

type LibreConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Retry   resilience.RetryConfig
	Breaker resilience.CircuitBreakerConfig
}

// LibreClient talks to a LibreTranslate-compatible POST /translate endpoint.
// Requests are retried with backoff behind a circuit breaker; client errors
// are not retried.
type LibreClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	retry   resilience.RetryConfig
	breaker *resilience.CircuitBreaker
	logger  *slog.Logger
}

func NewLibreClient(cfg LibreConfig) *LibreClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &LibreClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.Timeout},
		retry:   cfg.Retry,
		breaker: resilience.NewCircuitBreaker("libretranslate", cfg.Breaker),
		logger:  slog.Default().With("component", "translator", "url", cfg.BaseURL),
	}
}

func (c *LibreClient) Translate(ctx context.Context, text, source, target string) (string, error) {
	if len(text) > maxTextBytes {
		return "", apperrors.Newf(apperrors.ErrInvalidInput, http.StatusRequestEntityTooLarge,
			"text is %d bytes, limit is %d", len(text), maxTextBytes)
	}
	body, err := json.Marshal(libreRequest{Q: text, Source: source, Target: target, Format: "text", APIKey: c.apiKey})
	if err != nil {
		return "", fmt.Errorf("encoding translate request: %w", err)
	}

	var out string
	err = resilience.Retry(ctx, "translate", c.retry, func() error {
		return c.breaker.Execute(func() error {
			var callErr error
			out, callErr = c.call(ctx, body)
			return callErr
		})
	})
	if err != nil {
		c.logger.Warn("translation failed", "source", source, "target", target, "error", err)
		if errors.Is(err, apperrors.ErrInvalidInput) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", apperrors.ErrTranslationUnavailable, err)
	}
	return out, nil
}

func (c *LibreClient) call(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/translate", bytes.NewReader(body))
	if err != nil {
		return "", resilience.Permanent(fmt.Errorf("building request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling translate service: %w", err)
	}
	defer resp.Body.Close()

	var decoded libreResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4*maxTextBytes)).Decode(&decoded); err != nil {
		decoded.Error = fmt.Sprintf("undecodable response: %v", err)
	}
	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return "", fmt.Errorf("translate service returned %d: %s", resp.StatusCode, decoded.Error)
	case resp.StatusCode >= 400:
		return "", resilience.Permanent(fmt.Errorf("%w: translate service rejected request (%d): %s",
			apperrors.ErrInvalidInput, resp.StatusCode, decoded.Error))
	case decoded.Error != "":
		return "", fmt.Errorf("translate service: %s", decoded.Error)
	}
	return decoded.TranslatedText, nil
}

// Breaker exposes the circuit breaker for health reporting.
func (c *LibreClient) Breaker() *resilience.CircuitBreaker { return c.breaker }
