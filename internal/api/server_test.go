// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/popgate/internal/api"
	"github.com/taibuivan/popgate/internal/gateway"
	"github.com/taibuivan/popgate/internal/platform/config"
)

func newTestServer(t *testing.T, upstreamURL string, checks ...api.Check) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	cfg := &config.Config{ServerPort: "0", RateLimitEnabled: true}
	upstreams := config.UpstreamEnv{APIBaseURL: upstreamURL}.Resolve()

	registry := prometheus.NewRegistry()
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{Checks: checks}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	server := api.NewServer(ctx, cfg, logger, api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Metrics:   promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Proxy:     gateway.NewProxy(upstreams, nil, gateway.NewMetrics(registry)),
	})
	return server.Handler()
}

func TestServer_Health(t *testing.T) {
	handler := newTestServer(t, "http://127.0.0.1:1")

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"code":0,"data":{"status":"ok"}}`, recorder.Body.String())
	assert.NotEmpty(t, recorder.Header().Get("X-Request-ID"))
}

func TestServer_Readiness(t *testing.T) {
	healthy := api.Check{Name: "api", Probe: func(context.Context) error { return nil }}
	broken := api.Check{Name: "store", Probe: func(context.Context) error { return errors.New("refused") }}

	t.Run("ready", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		newTestServer(t, "http://127.0.0.1:1", healthy).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/ready", nil))
		assert.Equal(t, http.StatusOK, recorder.Code)
	})

	t.Run("degraded", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		newTestServer(t, "http://127.0.0.1:1", healthy, broken).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/ready", nil))
		require.Equal(t, http.StatusServiceUnavailable, recorder.Code)

		var body struct {
			Data struct {
				Status string `json:"status"`
				Checks []struct {
					Name string `json:"name"`
					OK   bool   `json:"ok"`
				} `json:"checks"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
		assert.Equal(t, "degraded", body.Data.Status)
		require.Len(t, body.Data.Checks, 2)
		assert.False(t, body.Data.Checks[1].OK)
	})
}

func TestServer_ProxiesAPI(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/users/v1/me", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"), "the request id travels upstream")
		w.WriteHeader(http.StatusAccepted)
	}))
	t.Cleanup(upstream.Close)

	handler := newTestServer(t, upstream.URL)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodPatch, "/api/users/v1/me", nil))
	assert.Equal(t, http.StatusAccepted, recorder.Code)

	metrics := httptest.NewRecorder()
	handler.ServeHTTP(metrics, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, metrics.Body.String(), `popgate_upstream_attempts_total{outcome="connected",route="api"} 1`)
}

func TestServer_PaymentsRedirect(t *testing.T) {
	handler := newTestServer(t, "http://127.0.0.1:1")

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/payments?token=t1", nil))

	assert.Equal(t, http.StatusTemporaryRedirect, recorder.Code)
	assert.Equal(t, "/auto-payment?token=t1", recorder.Header().Get("Location"))
}

func TestDialCheck(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	address := upstream.URL
	assert.NoError(t, api.DialCheck("api", address).Probe(context.Background()))

	upstream.Close()
	assert.Error(t, api.DialCheck("api", address).Probe(context.Background()))
	assert.Error(t, api.DialCheck("api", "::not a url").Probe(context.Background()))
}
