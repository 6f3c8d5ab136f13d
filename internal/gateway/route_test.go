// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package gateway

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/popgate/internal/platform/config"
)

func TestFamilyOf(t *testing.T) {
	assert.Equal(t, FamilyStore, FamilyOf("stores"))
	assert.Equal(t, FamilyOrderQuery, FamilyOf("orderquery"))
	assert.Equal(t, FamilyPayment, FamilyOf("payments"))
	assert.Equal(t, FamilyPayment, FamilyOf("payment"))
	assert.Equal(t, FamilyAPI, FamilyOf("users"))
	assert.Equal(t, FamilyAPI, FamilyOf(""))
	assert.Equal(t, FamilyAPI, FamilyOf("Stores"), "segments are case-sensitive")
}

func TestBaseFor(t *testing.T) {
	upstreams := config.Upstreams{API: "a", Store: "s", OrderQuery: "o", Payment: "p"}

	assert.Equal(t, "a", BaseFor(upstreams, FamilyAPI))
	assert.Equal(t, "s", BaseFor(upstreams, FamilyStore))
	assert.Equal(t, "o", BaseFor(upstreams, FamilyOrderQuery))
	assert.Equal(t, "p", BaseFor(upstreams, FamilyPayment))
}

func TestBaseFor_FallsBackToAPI(t *testing.T) {
	upstreams := config.Upstreams{API: "http://api:8080"}

	for _, family := range []Family{FamilyAPI, FamilyStore, FamilyOrderQuery, FamilyPayment} {
		assert.Equal(t, "http://api:8080", BaseFor(upstreams, family), family)
	}
}

func TestJoinAPIURL(t *testing.T) {
	tests := []struct {
		base   string
		joined string
		want   string
	}{
		{"http://localhost:8080", "stores/v1/popups", "http://localhost:8080/api/stores/v1/popups"},
		{"https://gw.popup.kr/api", "orderquery/v1/orders", "https://gw.popup.kr/api/orderquery/v1/orders"},
		{"https://gw.popup.kr/API", "x", "https://gw.popup.kr/API/x"},
		{"https://gw.popup.kr/v2", "x", "https://gw.popup.kr/v2/api/x"},
		{"http://localhost:8080", "", "http://localhost:8080/api/"},
		{"http://localhost:8080", "users//v1///me", "http://localhost:8080/api/users/v1/me"},
		{"http://localhost:8080/", "x", "http://localhost:8080/api/x"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, JoinAPIURL(tt.base, tt.joined))
		})
	}
}

func TestSplitForwardPath(t *testing.T) {
	joined, first := splitForwardPath("/api/stores/v1/popups")
	assert.Equal(t, "stores/v1/popups", joined)
	assert.Equal(t, "stores", first)

	joined, first = splitForwardPath("/api/")
	assert.Empty(t, joined)
	assert.Empty(t, first)
}

func TestCandidates(t *testing.T) {
	t.Run("localhost_aliases", func(t *testing.T) {
		candidates, err := Candidates("http://localhost:8080/api/x", "page=1")
		require.NoError(t, err)

		got := make([]string, 0, len(candidates))
		for _, candidate := range candidates {
			got = append(got, candidate.String())
		}
		assert.Equal(t, []string{
			"http://localhost:8080/api/x?page=1",
			"http://127.0.0.1:8080/api/x?page=1",
			"http://host.docker.internal:8080/api/x?page=1",
		}, got)
	})

	t.Run("remote_host", func(t *testing.T) {
		candidates, err := Candidates("https://api.popup.kr/api/x", "")
		require.NoError(t, err)
		require.Len(t, candidates, 1)
		assert.Equal(t, "https://api.popup.kr/api/x", candidates[0].String())
	})

	t.Run("localhost_without_port", func(t *testing.T) {
		candidates, err := Candidates("http://localhost/api/x", "")
		require.NoError(t, err)
		require.Len(t, candidates, 3)
		assert.Equal(t, "127.0.0.1", candidates[1].Host)
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := Candidates("http://[::1", "")
		assert.Error(t, err)
	})
}

func TestRedaction(t *testing.T) {
	header := http.Header{
		"Authorization":   {"Bearer abc"},
		"Cookie":          {"sid=1"},
		"X-Refresh-Token": {"r"},
		"X-Api-Key":       {"k"},
		"Accept":          {"application/json"},
	}

	flat := redactHeaders(header)
	assert.Equal(t, redacted, flat["Authorization"])
	assert.Equal(t, redacted, flat["Cookie"])
	assert.Equal(t, redacted, flat["X-Refresh-Token"])
	assert.Equal(t, redacted, flat["X-Api-Key"])
	assert.Equal(t, "application/json", flat["Accept"])

	target, err := url.Parse("http://h/api/payments?token=abc&amount=100")
	require.NoError(t, err)
	assert.Equal(t, "http://h/api/payments?amount=100&token=%5BREDACTED%5D", redactURL(target))
	assert.Equal(t, "token=abc&amount=100", target.RawQuery, "forwarded URL is untouched")
}
