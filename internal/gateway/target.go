// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package gateway

import (
	"fmt"
	"net"
	"net/url"

	"github.com/taibuivan/popgate/internal/platform/constants"
)

// Candidates returns the URLs to try for target, in order.
//
// A localhost target is followed by the same URL on 127.0.0.1 and on
// host.docker.internal, for deployments where localhost inside the gateway
// container does not reach the sibling service.
func Candidates(target string, rawQuery string) ([]*url.URL, error) {
	primary, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("gateway: invalid upstream url %q: %w", target, err)
	}
	primary.RawQuery = rawQuery

	candidates := []*url.URL{primary}
	if primary.Hostname() == "localhost" {
		for _, alias := range []string{constants.AliasLoopback, constants.AliasDockerHost} {
			aliased := *primary
			aliased.Host = withHost(primary, alias)
			candidates = append(candidates, &aliased)
		}
	}

	seen := make(map[string]bool, len(candidates))
	unique := candidates[:0]
	for _, candidate := range candidates {
		key := candidate.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, candidate)
	}
	return unique, nil
}

func withHost(u *url.URL, host string) string {
	if port := u.Port(); port != "" {
		return net.JoinHostPort(host, port)
	}
	return host
}
