// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package managerapi

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/taibuivan/popgate/internal/platform/apperr"
	"github.com/taibuivan/popgate/internal/platform/constants"
)

// StoreStatusActive is the status given to stores rebuilt from fallback data.
const StoreStatusActive = "ACTIVE"

// Store is one row of the owner's store list.
type Store struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	PublishStatus string `json:"publishStatus,omitempty"`
	CreatedAt     string `json:"createdAt,omitempty"`
}

// Popup is a public popup listing entry, kept as the upstream sent it.
type Popup map[string]any

// PopupQuery filters [Client.ListPublicPopups]. Zero values are left out.
type PopupQuery struct {
	Page     int
	Size     int
	Category string
	StoreID  string
	Keyword  string
	RegionID string
}

// # Public Popups

// ListPublicPopups lists published popups without the manager's token.
//
// Size is clamped to 1..100 (0 means 100). Some store-service versions
// reject certain pagination values with a 400; the call is then repeated
// once with page 0 and the maximum size.
func (c *Client) ListPublicPopups(ctx context.Context, query PopupQuery) ([]Popup, error) {
	size := query.Size
	if size == 0 {
		size = constants.PublicPopupsMaxSize
	}
	size = min(max(size, 1), constants.PublicPopupsMaxSize)

	page := query.Page
	if page == 0 {
		page = 1
	}
	page = max(page, 0)

	popups, err := c.publicPopups(ctx, Query{
		"page":     page,
		"size":     size,
		"category": query.Category,
		"storeId":  query.StoreID,
		"keyword":  query.Keyword,
		"regionId": query.RegionID,
	})
	if err == nil || !apperr.HasStatus(err, http.StatusBadRequest) {
		return popups, err
	}

	c.logger.Warn("public_popups_retry_default_paging", slog.Any("error", err))
	return c.publicPopups(ctx, Query{"page": 0, "size": constants.PublicPopupsMaxSize})
}

func (c *Client) publicPopups(ctx context.Context, query Query) ([]Popup, error) {
	var page struct {
		Items []Popup `json:"items"`
	}
	if err := c.Do(ctx, constants.PathPublicPopups, RequestOptions{Query: query, SkipAuth: true}, &page); err != nil {
		return nil, err
	}
	if page.Items == nil {
		return []Popup{}, nil
	}
	return page.Items, nil
}

// # Owner Stores

// ListStores lists the stores of the signed-in owner.
//
// When the store service is down (500, 503) the list falls back to the
// locally selected store, or to an empty list. When the owner endpoint is
// missing or forbidden (403, 404) stores are rebuilt from the public popup
// listing. Any other failure is returned.
func (c *Client) ListStores(ctx context.Context) ([]Store, error) {
	var stores []Store
	err := c.Do(ctx, constants.PathOwnerStores, RequestOptions{}, &stores)
	if err == nil {
		return stores, nil
	}

	switch {
	case apperr.HasStatus(err, http.StatusInternalServerError, http.StatusServiceUnavailable):
		selected, storeErr := c.store.SelectedStoreID(ctx)
		if storeErr != nil {
			return nil, storeErr
		}
		if selected != "" {
			return []Store{{ID: selected, Name: StoreLabel(selected), PublishStatus: StoreStatusActive}}, nil
		}
		c.logger.Warn("owner_stores_unavailable_no_selection", slog.Any("error", err))
		return []Store{}, nil

	case apperr.HasStatus(err, http.StatusForbidden, http.StatusNotFound):
		popups, popupErr := c.ListPublicPopups(ctx, PopupQuery{Page: 1, Size: constants.PublicPopupsMaxSize})
		if popupErr != nil {
			return nil, popupErr
		}
		return storesFromPopups(popups), nil

	default:
		return nil, err
	}
}

// storesFromPopups keeps the first popup seen for each store, in order.
func storesFromPopups(popups []Popup) []Store {
	stores := []Store{}
	seen := make(map[string]bool)

	for _, popup := range popups {
		storeID := popupString(popup, "storeId")
		if storeID == "" || seen[storeID] {
			continue
		}
		seen[storeID] = true
		stores = append(stores, Store{
			ID:            storeID,
			Name:          StoreLabel(storeID),
			PublishStatus: StoreStatusActive,
			CreatedAt:     popupString(popup, "createdAt", "eventStartAt", "reservationOpenAt"),
		})
	}
	return stores
}

// popupString returns the first non-empty field among names. Numeric IDs
// are rendered without a fraction.
func popupString(popup Popup, names ...string) string {
	for _, name := range names {
		switch value := popup[name].(type) {
		case string:
			if value != "" {
				return value
			}
		case float64:
			return strconv.FormatFloat(value, 'f', -1, 64)
		}
	}
	return ""
}

// StoreLabel is the display name used when only a store ID is known:
// "스토어 " followed by the first eight ID characters without dashes.
func StoreLabel(storeID string) string {
	short := strings.ToUpper(strings.ReplaceAll(storeID, "-", ""))
	if len(short) > 8 {
		short = short[:8]
	}
	if short == "" {
		return "스토어"
	}
	return "스토어 " + short
}
