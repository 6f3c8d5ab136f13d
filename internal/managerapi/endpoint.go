// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package managerapi

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/taibuivan/popgate/internal/platform/config"
	"github.com/taibuivan/popgate/internal/platform/constants"
)

// # Runtime

// Runtime selects how request URLs are built.
type Runtime int

const (
	// RuntimeServer sends requests straight to the upstream API base URL.
	RuntimeServer Runtime = iota

	// RuntimeBrowser sends requests to the same-origin gateway, which proxies /api/*.
	RuntimeBrowser
)

// String implements [fmt.Stringer].
func (r Runtime) String() string {
	if r == RuntimeBrowser {
		return "browser"
	}
	return "server"
}

// # Endpoint

// Endpoint describes where the manager API lives for one runtime.
type Endpoint struct {
	Runtime Runtime

	// Origin is the gateway origin, e.g. "https://manager.popup.kr". Browser runtime only.
	Origin string

	// APIBaseURL is the configured upstream base. Empty means the local default.
	APIBaseURL string
}

// Query holds request query parameters. Nil and empty values are skipped.
type Query map[string]any

// BaseURL is the origin requests are resolved against, without a trailing slash.
func (e Endpoint) BaseURL() string {
	if e.Runtime == RuntimeBrowser && strings.TrimSpace(e.Origin) != "" {
		return config.Resolve(e.Origin)
	}
	return config.Resolve(e.APIBaseURL, constants.DefaultAPIBaseURL)
}

// URL builds the absolute URL for path with query applied.
func (e Endpoint) URL(path string, query Query) (string, error) {
	target, err := e.resolve(path, query)
	if err != nil {
		return "", err
	}
	return target.String(), nil
}

// Relative builds the path and query part of the URL, the form a browser
// sends to its own origin.
func (e Endpoint) Relative(path string, query Query) (string, error) {
	target, err := e.resolve(path, query)
	if err != nil {
		return "", err
	}
	return target.RequestURI(), nil
}

// PublicBaseURL is the API base a browser page may link to directly.
//
// A loopback API base is unreachable from a page served on a real host, so
// in that case, and when nothing is configured, the gateway origin is used.
func (e Endpoint) PublicBaseURL() string {
	raw := strings.TrimSpace(e.APIBaseURL)
	if e.Runtime != RuntimeBrowser {
		return strings.TrimSuffix(raw, "/")
	}

	origin := strings.TrimSuffix(strings.TrimSpace(e.Origin), "/")
	if raw == "" {
		return origin
	}

	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return origin
	}
	if isLoopback(parsed.Hostname()) && !isLoopback(hostOf(origin)) {
		return origin
	}
	return strings.TrimSuffix(raw, "/")
}

func (e Endpoint) resolve(path string, query Query) (*url.URL, error) {
	base, err := url.Parse(e.BaseURL() + "/")
	if err != nil {
		return nil, fmt.Errorf("managerapi: invalid base url: %w", err)
	}
	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("managerapi: invalid path %q: %w", path, err)
	}

	target := base.ResolveReference(ref)
	if len(query) == 0 {
		return target, nil
	}

	values := target.Query()
	keys := make([]string, 0, len(query))
	for key := range query {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := query[key]
		if value == nil {
			continue
		}
		text := fmt.Sprint(value)
		if text == "" {
			continue
		}
		values.Set(key, text)
	}
	target.RawQuery = values.Encode()
	return target, nil
}

func isLoopback(host string) bool {
	return host == "localhost" || host == constants.AliasLoopback
}

func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return parsed.Hostname()
}
