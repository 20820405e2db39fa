package translate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/SmartRead/pkg/errors"
	pkgredis "github.com/Adithya-Monish-Kumar-K/SmartRead/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/SmartRead/pkg/resilience"
)

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestLibreClientTranslates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/translate", r.URL.Path)
		var req libreRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "en", req.Source)
		assert.Equal(t, "zh", req.Target)
		assert.Equal(t, "text", req.Format)
		assert.Equal(t, "secret", req.APIKey)
		_ = json.NewEncoder(w).Encode(libreResponse{TranslatedText: "火山 " + req.Q})
	}))
	defer srv.Close()

	c := NewLibreClient(LibreConfig{BaseURL: srv.URL + "/", APIKey: "secret", Retry: fastRetry()})
	out, err := c.Translate(context.Background(), "volcano", "en", "zh")

	require.NoError(t, err)
	assert.Equal(t, "火山 volcano", out)
}

func TestLibreClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			_ = json.NewEncoder(w).Encode(libreResponse{Error: "upstream"})
			return
		}
		_ = json.NewEncoder(w).Encode(libreResponse{TranslatedText: "ok"})
	}))
	defer srv.Close()

	c := NewLibreClient(LibreConfig{BaseURL: srv.URL, Retry: fastRetry()})
	out, err := c.Translate(context.Background(), "text", "en", "zh")

	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, int32(3), calls.Load())
}

func TestLibreClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(libreResponse{Error: "zz is not supported"})
	}))
	defer srv.Close()

	c := NewLibreClient(LibreConfig{BaseURL: srv.URL, Retry: fastRetry()})
	_, err := c.Translate(context.Background(), "text", "en", "zz")

	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Equal(t, http.StatusBadRequest, apperrors.HTTPStatusCode(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestLibreClientOpensCircuit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewLibreClient(LibreConfig{
		BaseURL: srv.URL,
		Retry:   resilience.RetryConfig{MaxAttempts: 1},
		Breaker: resilience.CircuitBreakerConfig{FailureThreshold: 2, ResetTimeout: time.Hour},
	})
	for range 2 {
		_, err := c.Translate(context.Background(), "text", "en", "zh")
		assert.ErrorIs(t, err, apperrors.ErrTranslationUnavailable)
	}
	_, err := c.Translate(context.Background(), "text", "en", "zh")

	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.ErrorIs(t, err, apperrors.ErrTranslationUnavailable)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, resilience.StateOpen, c.Breaker().State())
}

func TestLibreClientRejectsHugeText(t *testing.T) {
	c := NewLibreClient(LibreConfig{BaseURL: "http://127.0.0.1:1"})
	_, err := c.Translate(context.Background(), string(make([]byte, maxTextBytes+1)), "en", "zh")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestDisabled(t *testing.T) {
	_, err := Disabled{}.Translate(context.Background(), "x", "en", "zh")
	assert.ErrorIs(t, err, apperrors.ErrTranslationUnavailable)
	assert.Equal(t, http.StatusServiceUnavailable, apperrors.HTTPStatusCode(err))
}

type countingTranslator struct {
	calls atomic.Int32
	err   error
}

func (c *countingTranslator) Translate(_ context.Context, text, _, target string) (string, error) {
	c.calls.Add(1)
	if c.err != nil {
		return "", c.err
	}
	return target + ":" + text, nil
}

type mapRemote struct{ data map[string]string }

func (m *mapRemote) Get(_ context.Context, key string) (string, error) {
	v, ok := m.data[key]
	if !ok {
		return "", pkgredis.ErrNil
	}
	return v, nil
}

func (m *mapRemote) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.data[key] = value.(string)
	return nil
}

func TestCachedUsesLRU(t *testing.T) {
	next := &countingTranslator{}
	c, err := NewCached(next, 8)
	require.NoError(t, err)

	for range 3 {
		out, err := c.Translate(context.Background(), "hello", "en", "zh")
		require.NoError(t, err)
		assert.Equal(t, "zh:hello", out)
	}
	assert.Equal(t, int32(1), next.calls.Load())

	_, _ = c.Translate(context.Background(), "hello", "en", "ja")
	assert.Equal(t, int32(2), next.calls.Load())
}

func TestCachedFallsBackToRemote(t *testing.T) {
	remote := &mapRemote{data: map[string]string{}}
	first, err := NewCached(&countingTranslator{}, 8, WithRemoteCache(remote, time.Hour))
	require.NoError(t, err)
	_, err = first.Translate(context.Background(), "hello", "en", "zh")
	require.NoError(t, err)
	assert.Len(t, remote.data, 1)

	// a fresh process shares the Redis entry
	next := &countingTranslator{}
	second, err := NewCached(next, 8, WithRemoteCache(remote, time.Hour))
	require.NoError(t, err)
	out, err := second.Translate(context.Background(), "hello", "en", "zh")
	require.NoError(t, err)
	assert.Equal(t, "zh:hello", out)
	assert.Zero(t, next.calls.Load())
}

func TestCachedDoesNotCacheErrors(t *testing.T) {
	next := &countingTranslator{err: errors.New("down")}
	c, err := NewCached(next, 8)
	require.NoError(t, err)

	_, err = c.Translate(context.Background(), "hello", "en", "zh")
	assert.Error(t, err)
	_, err = c.Translate(context.Background(), "hello", "en", "zh")
	assert.Error(t, err)
	assert.Equal(t, int32(2), next.calls.Load())
}
