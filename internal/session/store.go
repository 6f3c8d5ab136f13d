// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/taibuivan/popgate/internal/platform/constants"
	"github.com/taibuivan/popgate/internal/platform/sec"
)

// # Persistence Contract

// KV is a flat, string-valued key-value store scoped to one manager session.
type KV interface {
	// Get returns the value for key, or "" when the key is absent.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// # Typed Accessors

// Store exposes the persisted session keys on top of a [KV].
//
// Writing an empty value removes the key, so "no refresh token" and
// "refresh token deleted" are the same state.
type Store struct {
	kv KV
}

// NewStore wraps kv.
func NewStore(kv KV) *Store {
	return &Store{kv: kv}
}

// AccessToken returns the stored access token, or "".
func (s *Store) AccessToken(ctx context.Context) (string, error) {
	return s.get(ctx, constants.StorageKeyToken)
}

// SetAccessToken replaces the access token.
func (s *Store) SetAccessToken(ctx context.Context, token string) error {
	return s.set(ctx, constants.StorageKeyToken, token)
}

// RefreshToken returns the stored refresh token, or "".
func (s *Store) RefreshToken(ctx context.Context) (string, error) {
	return s.get(ctx, constants.StorageKeyRefreshToken)
}

// SetRefreshToken replaces the refresh token.
func (s *Store) SetRefreshToken(ctx context.Context, token string) error {
	return s.set(ctx, constants.StorageKeyRefreshToken, token)
}

// User returns the stored user snapshot. A missing or unreadable snapshot is nil.
func (s *Store) User(ctx context.Context) (*User, error) {
	raw, err := s.get(ctx, constants.StorageKeyUser)
	if err != nil || raw == "" {
		return nil, err
	}

	var user User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, nil
	}
	return &user, nil
}

// SetUser replaces the user snapshot.
func (s *Store) SetUser(ctx context.Context, user User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("session: encode user: %w", err)
	}
	return s.set(ctx, constants.StorageKeyUser, string(raw))
}

// Save writes a complete session, as done after login.
func (s *Store) Save(ctx context.Context, session Session) error {
	if err := s.SetAccessToken(ctx, session.AccessToken); err != nil {
		return err
	}
	if err := s.SetRefreshToken(ctx, session.RefreshToken); err != nil {
		return err
	}
	return s.SetUser(ctx, session.User)
}

// PurgeTokens removes the access and refresh tokens but keeps the user
// snapshot and selections. Used when the server rejects the refresh token.
func (s *Store) PurgeTokens(ctx context.Context) error {
	return s.deleteAll(ctx, constants.StorageKeyToken, constants.StorageKeyRefreshToken)
}

// Clear removes every session key, selections included.
func (s *Store) Clear(ctx context.Context) error {
	return s.deleteAll(ctx,
		constants.StorageKeyToken,
		constants.StorageKeyRefreshToken,
		constants.StorageKeyUser,
		constants.StorageKeySelectedStoreID,
		constants.StorageKeySelectedPopupID,
	)
}

// # Selections

// SelectedStoreID returns the store the manager last worked on.
func (s *Store) SelectedStoreID(ctx context.Context) (string, error) {
	return s.get(ctx, constants.StorageKeySelectedStoreID)
}

// SetSelectedStoreID records the store the manager works on.
func (s *Store) SetSelectedStoreID(ctx context.Context, storeID string) error {
	return s.set(ctx, constants.StorageKeySelectedStoreID, storeID)
}

// SelectedPopupID returns the popup the manager last worked on.
func (s *Store) SelectedPopupID(ctx context.Context) (string, error) {
	return s.get(ctx, constants.StorageKeySelectedPopupID)
}

// SetSelectedPopupID records the popup the manager works on.
func (s *Store) SetSelectedPopupID(ctx context.Context, popupID string) error {
	return s.set(ctx, constants.StorageKeySelectedPopupID, popupID)
}

// # Identity

// Role returns the normalized role of the session: the saved user's role,
// else the access token's role claim.
func (s *Store) Role(ctx context.Context) (sec.Role, error) {
	user, err := s.User(ctx)
	if err != nil {
		return "", err
	}
	if user != nil && user.Role != "" {
		return sec.NormalizeRole(user.Role), nil
	}

	token, err := s.AccessToken(ctx)
	if err != nil {
		return "", err
	}
	return sec.NormalizeRole(sec.StringClaim(sec.DecodeClaims(token), "role")), nil
}

// # Helpers

func (s *Store) get(ctx context.Context, key string) (string, error) {
	value, err := s.kv.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("session: get %s: %w", key, err)
	}
	return value, nil
}

func (s *Store) set(ctx context.Context, key, value string) error {
	if value == "" {
		return s.deleteAll(ctx, key)
	}
	if err := s.kv.Set(ctx, key, value); err != nil {
		return fmt.Errorf("session: set %s: %w", key, err)
	}
	return nil
}

func (s *Store) deleteAll(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if err := s.kv.Delete(ctx, key); err != nil {
			return fmt.Errorf("session: delete %s: %w", key, err)
		}
	}
	return nil
}
