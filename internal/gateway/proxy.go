// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package gateway forwards the dashboard's same-origin /api/* calls to the
upstream services.

Routing is decided by the first path segment:

	stores              -> store service
	orderquery          -> order query service (bearer token required)
	payments | payment  -> payment service
	anything else       -> API service

Each request is tried against the resolved upstream and, for localhost
upstreams, against its loopback and Docker host aliases. The first
candidate that accepts the connection answers, whatever its status.
*/
package gateway

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/taibuivan/popgate/internal/platform/apperr"
	"github.com/taibuivan/popgate/internal/platform/config"
	"github.com/taibuivan/popgate/internal/platform/ctxutil"
	"github.com/taibuivan/popgate/internal/platform/middleware"
	"github.com/taibuivan/popgate/internal/platform/respond"
)

const (
	messageOrderQueryAuth = "orderquery API는 인증이 필요합니다."
	messageUnreachable    = "Upstream API 서버에 연결할 수 없습니다. 기본 주소=%s"
)

// Request headers that must not travel server to server.
var strippedRequestHeaders = []string{"Host", "Origin", "Connection", "Content-Length", "Transfer-Encoding"}

// Proxy is the /api/* handler. It holds no per-request state.
type Proxy struct {
	upstreams config.Upstreams
	client    *http.Client
	metrics   *Metrics

	forward    http.Handler
	orderQuery http.Handler
}

// NewProxy creates a Proxy for upstreams. A nil transport uses
// [http.DefaultTransport]; a nil metrics disables instrumentation.
func NewProxy(upstreams config.Upstreams, transport http.RoundTripper, metrics *Metrics) *Proxy {
	if transport == nil {
		transport = http.DefaultTransport
	}

	proxy := &Proxy{
		upstreams: upstreams,
		metrics:   metrics,
		client: &http.Client{
			Transport: transport,
			// Upstream redirects are relayed to the browser, never followed.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}

	proxy.forward = http.HandlerFunc(proxy.serveForward)
	proxy.orderQuery = middleware.RequireBearer(messageOrderQueryAuth)(proxy.forward)
	return proxy
}

// ServeHTTP implements [http.Handler].
func (p *Proxy) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	_, first := splitForwardPath(request.URL.EscapedPath())
	if FamilyOf(first) == FamilyOrderQuery {
		p.orderQuery.ServeHTTP(writer, request)
		return
	}
	p.forward.ServeHTTP(writer, request)
}

func (p *Proxy) serveForward(writer http.ResponseWriter, request *http.Request) {
	logger := ctxutil.GetLogger(request.Context())
	started := time.Now()

	joined, first := splitForwardPath(request.URL.EscapedPath())
	family := FamilyOf(first)
	defer func() { p.metrics.observe(family, time.Since(started)) }()

	candidates, err := Candidates(JoinAPIURL(BaseFor(p.upstreams, family), joined), request.URL.RawQuery)
	if err != nil {
		p.fail(writer, request, err)
		return
	}

	var body []byte
	if request.Method != http.MethodGet && request.Method != http.MethodHead {
		body, err = io.ReadAll(request.Body)
		if err != nil {
			p.fail(writer, request, fmt.Errorf("gateway: read request body: %w", err))
			return
		}
	}

	header := request.Header.Clone()
	for _, name := range strippedRequestHeaders {
		header.Del(name)
	}

	var lastErr error
	for attempt, candidate := range candidates {
		target := candidate.String()
		logger.Debug("upstream_attempt",
			slog.Int("attempt", attempt+1),
			slog.String("route", string(family)),
			slog.String("method", request.Method),
			slog.String("url", redactURL(candidate)),
			slog.Any("headers", redactHeaders(header)),
		)

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		upstreamRequest, err := http.NewRequestWithContext(request.Context(), request.Method, target, reader)
		if err != nil {
			lastErr = err
			break
		}
		upstreamRequest.Header = header.Clone()

		response, err := p.client.Do(upstreamRequest)
		if err != nil {
			lastErr = err
			p.metrics.attempt(family, outcomeFailed)
			logger.Warn("upstream_attempt_failed",
				slog.String("route", string(family)),
				slog.String("url", redactURL(candidate)),
				slog.Any("error", err),
			)
			continue
		}

		p.metrics.attempt(family, outcomeConnected)
		p.relay(writer, request, response, candidate.Host)
		return
	}

	p.fail(writer, request, lastErr)
}

// relay copies the upstream response minus its CORS headers.
func (p *Proxy) relay(writer http.ResponseWriter, request *http.Request, response *http.Response, host string) {
	defer response.Body.Close()

	payload, err := io.ReadAll(response.Body)
	if err != nil {
		p.fail(writer, request, fmt.Errorf("gateway: read upstream body: %w", err))
		return
	}

	for name, values := range response.Header {
		if isCORSHeader(name) || strings.EqualFold(name, "Connection") {
			continue
		}
		writer.Header()[name] = values
	}
	writer.WriteHeader(response.StatusCode)
	_, _ = writer.Write(payload)

	ctxutil.GetLogger(request.Context()).Info("upstream_forwarded",
		slog.String("upstream", host),
		slog.Int("status", response.StatusCode),
		slog.Int("bytes", len(payload)),
	)
}

func (p *Proxy) fail(writer http.ResponseWriter, request *http.Request, cause error) {
	respond.Error(writer, request, apperr.BadGateway(fmt.Sprintf(messageUnreachable, p.upstreams.API), cause))
}

func isCORSHeader(name string) bool {
	lowered := strings.ToLower(name)
	return strings.HasPrefix(lowered, "access-control-allow-") || lowered == "access-control-expose-headers"
}
