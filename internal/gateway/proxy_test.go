// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package gateway_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/popgate/internal/gateway"
	"github.com/taibuivan/popgate/internal/platform/config"
)

// recordingUpstream is an upstream service that records what reached it.
type recordingUpstream struct {
	server *httptest.Server

	mu       sync.Mutex
	requests []*http.Request
	bodies   []string
}

func newUpstream(t *testing.T, handler http.HandlerFunc) *recordingUpstream {
	t.Helper()
	upstream := &recordingUpstream{}
	upstream.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		upstream.mu.Lock()
		upstream.requests = append(upstream.requests, r)
		upstream.bodies = append(upstream.bodies, string(body))
		upstream.mu.Unlock()

		if handler != nil {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(upstream.server.Close)
	return upstream
}

func (u *recordingUpstream) count() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.requests)
}

func (u *recordingUpstream) last() *http.Request {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.requests[len(u.requests)-1]
}

func serve(proxy http.Handler, request *http.Request) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	proxy.ServeHTTP(recorder, request)
	return recorder
}

func TestProxy_Routing(t *testing.T) {
	api := newUpstream(t, nil)
	store := newUpstream(t, nil)
	orderQuery := newUpstream(t, nil)
	payment := newUpstream(t, nil)

	proxy := gateway.NewProxy(config.Upstreams{
		API:        api.server.URL,
		Store:      store.server.URL + "/api",
		OrderQuery: orderQuery.server.URL,
		Payment:    payment.server.URL + "/",
	}, nil, nil)

	tests := []struct {
		path     string
		upstream *recordingUpstream
		wantPath string
	}{
		{"/api/stores/v1/popups", store, "/api/stores/v1/popups"},
		{"/api/orderquery/v1/orders", orderQuery, "/api/orderquery/v1/orders"},
		{"/api/payments/v1/confirm", payment, "/api/payments/v1/confirm"},
		{"/api/payment/v1/confirm", payment, "/api/payment/v1/confirm"},
		{"/api/users/v1/auth/login", api, "/api/users/v1/auth/login"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, tt.path, nil)
			request.Header.Set("Authorization", "Bearer t")

			recorder := serve(proxy, request)

			assert.Equal(t, http.StatusOK, recorder.Code)
			assert.Equal(t, tt.wantPath, tt.upstream.last().URL.Path)
		})
	}
}

func TestProxy_OrderQueryRequiresBearer(t *testing.T) {
	orderQuery := newUpstream(t, nil)
	proxy := gateway.NewProxy(config.Upstreams{API: orderQuery.server.URL, OrderQuery: orderQuery.server.URL}, nil, nil)

	for _, header := range []string{"", "Bearer", "Basic abc", "Bearer a b"} {
		t.Run("header="+header, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/api/orderquery/v1/orders", nil)
			if header != "" {
				request.Header.Set("Authorization", header)
			}

			recorder := serve(proxy, request)

			assert.Equal(t, http.StatusUnauthorized, recorder.Code)
			assert.JSONEq(t, `{"code":401,"message":"orderquery API는 인증이 필요합니다."}`, recorder.Body.String())
		})
	}
	assert.Equal(t, 0, orderQuery.count())

	request := httptest.NewRequest(http.MethodGet, "/api/orderquery/v1/orders", nil)
	request.Header.Set("Authorization", "bearer token-1")
	assert.Equal(t, http.StatusOK, serve(proxy, request).Code)
	assert.Equal(t, 1, orderQuery.count())
}

func TestProxy_ForwardsRequest(t *testing.T) {
	api := newUpstream(t, nil)
	proxy := gateway.NewProxy(config.Upstreams{API: api.server.URL}, nil, nil)

	request := httptest.NewRequest(http.MethodPost, "/api/stores-legacy/v1/items?page=2&size=10", strings.NewReader(`{"name":"굿즈"}`))
	request.Header.Set("Origin", "https://manager.popup.kr")
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Authorization", "Bearer t")

	recorder := serve(proxy, request)
	require.Equal(t, http.StatusOK, recorder.Code)

	forwarded := api.last()
	assert.Equal(t, http.MethodPost, forwarded.Method)
	assert.Equal(t, "page=2&size=10", forwarded.URL.RawQuery)
	assert.Empty(t, forwarded.Header.Get("Origin"))
	assert.Equal(t, "Bearer t", forwarded.Header.Get("Authorization"))
	assert.Equal(t, "application/json", forwarded.Header.Get("Content-Type"))
	assert.Equal(t, `{"name":"굿즈"}`, api.bodies[0])
}

func TestProxy_RelaysResponse(t *testing.T) {
	api := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Expose-Headers", "X-Total")
		w.Header().Set("X-Total", "42")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"code":409,"message":"duplicate"}`))
	})
	proxy := gateway.NewProxy(config.Upstreams{API: api.server.URL}, nil, nil)

	recorder := serve(proxy, httptest.NewRequest(http.MethodGet, "/api/users/v1/me", nil))

	assert.Equal(t, http.StatusConflict, recorder.Code)
	assert.Equal(t, `{"code":409,"message":"duplicate"}`, recorder.Body.String())
	assert.Equal(t, "42", recorder.Header().Get("X-Total"))
	assert.Empty(t, recorder.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, recorder.Header().Get("Access-Control-Allow-Credentials"))
	assert.Empty(t, recorder.Header().Get("Access-Control-Expose-Headers"))
}

func TestProxy_DoesNotFollowRedirects(t *testing.T) {
	api := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "https://pay.example.com/checkout", http.StatusFound)
	})
	proxy := gateway.NewProxy(config.Upstreams{API: api.server.URL}, nil, nil)

	recorder := serve(proxy, httptest.NewRequest(http.MethodGet, "/api/payment/v1/start", nil))

	assert.Equal(t, http.StatusFound, recorder.Code)
	assert.Equal(t, "https://pay.example.com/checkout", recorder.Header().Get("Location"))
	assert.Equal(t, 1, api.count())
}

// roundTripFunc fakes connectivity per host.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(request *http.Request) (*http.Response, error) { return f(request) }

func TestProxy_LocalhostAliases(t *testing.T) {
	var (
		mu    sync.Mutex
		hosts []string
	)
	transport := roundTripFunc(func(request *http.Request) (*http.Response, error) {
		mu.Lock()
		hosts = append(hosts, request.URL.Host)
		mu.Unlock()

		if request.URL.Hostname() == "localhost" {
			return nil, errors.New("connection refused")
		}
		return &http.Response{
			StatusCode: http.StatusInternalServerError,
			Header:     http.Header{},
			Body:       io.NopCloser(strings.NewReader("boom")),
			Request:    request,
		}, nil
	})

	registry := prometheus.NewRegistry()
	metrics := gateway.NewMetrics(registry)
	proxy := gateway.NewProxy(config.Upstreams{API: "http://localhost:8080"}, transport, metrics)

	recorder := serve(proxy, httptest.NewRequest(http.MethodGet, "/api/users/v1/me", nil))

	assert.Equal(t, http.StatusInternalServerError, recorder.Code, "a connected upstream answers whatever its status")
	assert.Equal(t, "boom", recorder.Body.String())
	assert.Equal(t, []string{"localhost:8080", "127.0.0.1:8080"}, hosts)

	expected := `
# HELP popgate_upstream_attempts_total Upstream connection attempts by route family and outcome.
# TYPE popgate_upstream_attempts_total counter
popgate_upstream_attempts_total{outcome="connected",route="api"} 1
popgate_upstream_attempts_total{outcome="failed",route="api"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected), "popgate_upstream_attempts_total"))
}

func TestProxy_AllCandidatesUnreachable(t *testing.T) {
	var attempts int
	transport := roundTripFunc(func(*http.Request) (*http.Response, error) {
		attempts++
		return nil, errors.New("no route to host")
	})

	proxy := gateway.NewProxy(config.Upstreams{
		API:   "http://localhost:8080",
		Store: "http://localhost:8081",
	}, transport, nil)

	recorder := serve(proxy, httptest.NewRequest(http.MethodGet, "/api/stores/v1/popups", nil))

	assert.Equal(t, http.StatusBadGateway, recorder.Code)
	assert.JSONEq(t,
		`{"code":502,"message":"Upstream API 서버에 연결할 수 없습니다. 기본 주소=http://localhost:8080"}`,
		recorder.Body.String(),
	)
	assert.Equal(t, 3, attempts)
}

func TestRedirectPayments(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) })
	handler := gateway.RedirectPayments(next)

	tests := []struct {
		target   string
		wantCode int
		location string
	}{
		{"/payments?token=abc&orderId=7", http.StatusTemporaryRedirect, "/auto-payment?token=abc&orderId=7"},
		{"/payments/?token=abc", http.StatusTemporaryRedirect, "/auto-payment?token=abc"},
		{"/payments", http.StatusTeapot, ""},
		{"/payments/history?token=abc", http.StatusTeapot, ""},
		{"/api/payments?token=abc", http.StatusTeapot, ""},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			recorder := serve(handler, httptest.NewRequest(http.MethodGet, tt.target, nil))
			assert.Equal(t, tt.wantCode, recorder.Code)
			assert.Equal(t, tt.location, recorder.Header().Get("Location"))
		})
	}
}
