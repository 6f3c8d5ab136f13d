// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package gateway

import (
	"regexp"
	"strings"

	"github.com/taibuivan/popgate/internal/platform/config"
	"github.com/taibuivan/popgate/internal/platform/constants"
)

// Family is the upstream service a request is routed to.
type Family string

const (
	FamilyAPI        Family = "api"
	FamilyStore      Family = "store"
	FamilyOrderQuery Family = "orderquery"
	FamilyPayment    Family = "payment"
)

// FamilyOf maps the first path segment after /api to its upstream family.
func FamilyOf(segment string) Family {
	switch segment {
	case constants.RouteStores:
		return FamilyStore
	case constants.RouteOrderQuery:
		return FamilyOrderQuery
	case constants.RoutePayments, constants.RoutePayment:
		return FamilyPayment
	default:
		return FamilyAPI
	}
}

// BaseFor returns the resolved base URL of family. A family without its
// own base uses the generic API base.
func BaseFor(upstreams config.Upstreams, family Family) string {
	var base string
	switch family {
	case FamilyStore:
		base = upstreams.Store
	case FamilyOrderQuery:
		base = upstreams.OrderQuery
	case FamilyPayment:
		base = upstreams.Payment
	}
	return config.Resolve(base, upstreams.API)
}

var (
	apiSuffix     = regexp.MustCompile(`(?i)/api$`)
	repeatedSlash = regexp.MustCompile(`([^:]/)/+`)
)

// JoinAPIURL appends the forwarded path to base. Bases that already end in
// /api get the path directly; others get an /api/ segment first.
//
//	JoinAPIURL("http://store:8080", "stores/v1/x")     == "http://store:8080/api/stores/v1/x"
//	JoinAPIURL("http://store:8080/API", "stores/v1/x") == "http://store:8080/API/stores/v1/x"
func JoinAPIURL(base, joined string) string {
	var target string
	if apiSuffix.MatchString(base) {
		target = base + "/" + joined
	} else {
		target = base + "/api/" + joined
	}
	return repeatedSlash.ReplaceAllString(target, "${1}")
}

// splitForwardPath returns the path after the /api prefix and its first segment.
func splitForwardPath(escapedPath string) (joined, first string) {
	joined = strings.TrimPrefix(escapedPath, "/api")
	joined = strings.TrimPrefix(joined, "/")
	first, _, _ = strings.Cut(joined, "/")
	return joined, first
}
