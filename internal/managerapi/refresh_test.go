// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package managerapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/popgate/internal/managerapi"
	"github.com/taibuivan/popgate/internal/platform/apperr"
	"github.com/taibuivan/popgate/internal/platform/constants"
	"github.com/taibuivan/popgate/internal/session"
)

func newRefresher(store *session.Store, endpoint managerapi.Endpoint, clock *fakeClock, opts ...managerapi.Option) *managerapi.Refresher {
	opts = append([]managerapi.Option{managerapi.WithClock(clock.Now)}, opts...)
	return managerapi.NewRefresher(store, endpoint, discardLogger(), opts...)
}

func TestRefresh_Success(t *testing.T) {
	ctx := context.Background()
	old := tokenExpiringIn(t, time.Minute)
	fresh := tokenExpiringIn(t, time.Hour)

	api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "R", r.Header.Get(constants.HeaderXRefreshToken))
		assert.Equal(t, "Bearer "+old, bearerOf(r))
		assert.Equal(t, constants.ContentTypeJSON, r.Header.Get(constants.HeaderAccept))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{"refreshToken": "R", "refresh_token": "R"}, body)

		writeJSON(w, http.StatusOK, envelope(map[string]any{"accessToken": fresh, "refreshToken": "R2"}))
	}, nil)

	store := newStore(t, old, "R")
	refresher := newRefresher(store, api.endpoint(), newClock())

	token, err := refresher.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, fresh, token)
	assert.EqualValues(t, 1, api.refreshCalls.Load())

	stored, _ := store.AccessToken(ctx)
	rotated, _ := store.RefreshToken(ctx)
	user, _ := store.User(ctx)
	assert.Equal(t, fresh, stored)
	assert.Equal(t, "R2", rotated)
	require.NotNil(t, user)
	assert.Equal(t, "1", user.ID, "fields missing from the claims come from the previous user")
	assert.Equal(t, "ROLE_MANAGER", user.Role)
	assert.Equal(t, managerapi.StateIdle, refresher.State())
}

func TestRefresh_AcceptsTokenField(t *testing.T) {
	api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"token": "plain"})
	}, nil)

	refresher := newRefresher(newStore(t, "A", "R"), api.endpoint(), newClock())

	token, err := refresher.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "plain", token)
}

func TestRefresh_SingleFlight(t *testing.T) {
	const callers = 8
	release := make(chan struct{})

	api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
		writeJSON(w, http.StatusOK, envelope(map[string]any{"accessToken": "shared"}))
	}, nil)

	refresher := newRefresher(newStore(t, "A", "R"), api.endpoint(), newClock())

	var ready, done sync.WaitGroup
	ready.Add(callers)
	done.Add(callers)
	tokens := make([]string, callers)
	errs := make([]error, callers)

	for i := range callers {
		go func() {
			defer done.Done()
			ready.Done()
			tokens[i], errs[i] = refresher.Refresh(context.Background())
		}()
	}

	ready.Wait()
	require.Eventually(t, func() bool { return api.refreshCalls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	done.Wait()

	assert.EqualValues(t, 1, api.refreshCalls.Load())
	for i := range callers {
		require.NoError(t, errs[i])
		assert.Equal(t, "shared", tokens[i])
	}
}

func TestRefresh_RetriesWithoutBearer(t *testing.T) {
	api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if bearerOf(r) != "" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "expired bearer"})
			return
		}
		writeJSON(w, http.StatusOK, envelope(map[string]any{"accessToken": "new"}))
	}, nil)

	refresher := newRefresher(newStore(t, "A", "R"), api.endpoint(), newClock())

	token, err := refresher.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "new", token)
	assert.EqualValues(t, 2, api.refreshCalls.Load())
}

func TestRefresh_StickyDenial(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, map[string]any{"message": "refresh token revoked"})
	}, nil)

	store := newStore(t, "A", "R")
	refresher := newRefresher(store, api.endpoint(), newClock())

	_, err := refresher.Refresh(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, managerapi.ErrRefreshDenied))
	assert.Equal(t, http.StatusForbidden, apperr.As(err).Status)
	assert.Equal(t, "refresh token revoked", err.Error())
	assert.EqualValues(t, 2, api.refreshCalls.Load(), "both strategies are tried")

	access, _ := store.AccessToken(ctx)
	refresh, _ := store.RefreshToken(ctx)
	assert.Empty(t, access)
	assert.Empty(t, refresh)
	assert.Equal(t, managerapi.StateDenied, refresher.State())

	for range 3 {
		_, err = refresher.Refresh(ctx)
		assert.True(t, errors.Is(err, managerapi.ErrRefreshDenied))
		assert.Equal(t, http.StatusUnauthorized, apperr.As(err).Status)
	}
	assert.EqualValues(t, 2, api.refreshCalls.Load())

	refresher.Reset()
	assert.Equal(t, managerapi.StateIdle, refresher.State())
}

func TestRefresh_Cooldown(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": "users-service down"})
	}, nil)

	refresher := newRefresher(newStore(t, "A", "R"), api.endpoint(), clock)

	_, err := refresher.Refresh(ctx)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, apperr.As(err).Status)
	assert.Equal(t, "users-service down", err.Error())
	assert.EqualValues(t, 2, api.refreshCalls.Load())

	clock.Advance(59 * time.Second)
	_, err = refresher.Refresh(ctx)
	assert.True(t, errors.Is(err, managerapi.ErrRefreshThrottled))
	assert.Equal(t, http.StatusServiceUnavailable, apperr.As(err).Status)
	assert.EqualValues(t, 2, api.refreshCalls.Load())
	assert.Equal(t, managerapi.StateThrottled, refresher.State())

	clock.Advance(2 * time.Second)
	_, err = refresher.Refresh(ctx)
	require.Error(t, err)
	assert.False(t, errors.Is(err, managerapi.ErrRefreshThrottled))
	assert.EqualValues(t, 4, api.refreshCalls.Load())
}

func TestRefresh_Unreachable(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	api := newFakeAPI(t, nil, nil)
	endpoint := api.endpoint()
	api.server.Close()

	refresher := newRefresher(newStore(t, "A", "R"), endpoint, clock)

	_, err := refresher.Refresh(ctx)
	require.Error(t, err)
	assert.Equal(t, apperr.StatusConnectivity, apperr.As(err).Status)
	assert.Contains(t, err.Error(), endpoint.APIBaseURL)

	_, err = refresher.Refresh(ctx)
	assert.True(t, errors.Is(err, managerapi.ErrRefreshThrottled))
}

func TestRefresh_Timeout(t *testing.T) {
	release := make(chan struct{})
	api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}, nil)
	// Runs before the server's own cleanup so Close never waits on a stuck handler.
	t.Cleanup(func() { close(release) })

	refresher := newRefresher(newStore(t, "A", "R"), api.endpoint(), newClock(),
		managerapi.WithRefreshTimeout(50*time.Millisecond))

	_, err := refresher.Refresh(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperr.StatusConnectivity, apperr.As(err).Status)
}

func TestRefresh_ResponseWithoutToken(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, envelope(map[string]any{"expiresIn": 3600}))
	}, nil)

	refresher := newRefresher(newStore(t, "A", "R"), api.endpoint(), newClock())

	_, err := refresher.Refresh(ctx)
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, apperr.As(err).Status)
	assert.Equal(t, managerapi.StateThrottled, refresher.State())
}

func TestRefresh_WithoutStoredTokens(t *testing.T) {
	api := newFakeAPI(t, nil, nil)

	for name, store := range map[string]*session.Store{
		"no_refresh_token": newStore(t, "A", ""),
		"no_access_token":  newStore(t, "", "R"),
	} {
		t.Run(name, func(t *testing.T) {
			refresher := newRefresher(store, api.endpoint(), newClock())

			_, err := refresher.Refresh(context.Background())
			require.Error(t, err)
			assert.Equal(t, http.StatusUnauthorized, apperr.As(err).Status)
			assert.Equal(t, apperr.MessageSessionExpired, err.Error())
		})
	}
	assert.EqualValues(t, 0, api.refreshCalls.Load())
}

func TestRefresh_CallerCancellation(t *testing.T) {
	release := make(chan struct{})
	api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
		writeJSON(w, http.StatusOK, envelope(map[string]any{"accessToken": "late"}))
	}, nil)

	store := newStore(t, "A", "R")
	refresher := newRefresher(store, api.endpoint(), newClock())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := refresher.Refresh(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	require.Eventually(t, func() bool {
		token, _ := store.AccessToken(context.Background())
		return token == "late"
	}, time.Second, 5*time.Millisecond, "the shared attempt completes for the other callers")
}
