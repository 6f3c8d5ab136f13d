// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package managerapi_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/popgate/internal/managerapi"
	"github.com/taibuivan/popgate/internal/platform/constants"
	"github.com/taibuivan/popgate/internal/session"
)

var epoch = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *fakeClock { return &fakeClock{now: epoch} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// tokenExpiringIn mints an access token whose exp is d after epoch.
func tokenExpiringIn(t *testing.T, d time.Duration) string {
	t.Helper()
	claims := jwt.MapClaims{
		"exp":   epoch.Add(d).Unix(),
		"email": "manager@popup.kr",
		"role":  "ROLE_MANAGER",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
	require.NoError(t, err)
	return token
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func envelope(data any) map[string]any {
	return map[string]any{"code": 0, "data": data}
}

// fakeAPI routes the refresh endpoint and everything else to separate handlers.
type fakeAPI struct {
	server       *httptest.Server
	refreshCalls atomic.Int32
	apiCalls     atomic.Int32
}

func newFakeAPI(t *testing.T, refresh, api http.HandlerFunc) *fakeAPI {
	t.Helper()
	fake := &fakeAPI{}
	fake.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == constants.PathRefresh {
			fake.refreshCalls.Add(1)
			if refresh == nil {
				http.NotFound(w, r)
				return
			}
			refresh(w, r)
			return
		}
		fake.apiCalls.Add(1)
		if api == nil {
			http.NotFound(w, r)
			return
		}
		api(w, r)
	}))
	t.Cleanup(fake.server.Close)
	return fake
}

func (f *fakeAPI) endpoint() managerapi.Endpoint {
	return managerapi.Endpoint{Runtime: managerapi.RuntimeServer, APIBaseURL: f.server.URL}
}

// newStore returns a store holding the given tokens.
func newStore(t *testing.T, access, refresh string) *session.Store {
	t.Helper()
	store := session.NewStore(session.NewMemoryKV())
	require.NoError(t, store.Save(context.Background(), session.Session{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         session.User{ID: "1", Email: "manager@popup.kr", Name: "manager", Role: "MANAGER"},
	}))
	return store
}

func bearerOf(r *http.Request) string {
	return r.Header.Get(constants.HeaderAuthorization)
}
