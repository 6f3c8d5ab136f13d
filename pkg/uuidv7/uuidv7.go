// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package uuidv7 wraps google/uuid to generate time-ordered UUIDv7 values.
//
// Request IDs are UUIDv7 so that gateway logs sort by arrival time even when
// they are shipped out of order.
package uuidv7

import "github.com/google/uuid"

// New generates a new UUIDv7 string.
//
// If the random source fails, it falls back to a random UUIDv4 rather than
// failing the request that needs an ID.
func New() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
