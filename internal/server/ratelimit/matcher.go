package ratelimit

import "strings"

// unlimited marks endpoints that are never limited
var unlimited = &EndpointConfig{}

// MatchEndpoint returns the configuration for a request, or nil when none applies. An exact
// path wins; otherwise the longest configured prefix ending in "/" is used. Health checks and
// CORS preflights are unlimited.
func MatchEndpoint(path string, method string, configs []EndpointConfig) *EndpointConfig {
	if method == "OPTIONS" || (method == "GET" && (path == "/health" || path == "/api/health")) {
		return unlimited
	}

	var best *EndpointConfig
	for i := range configs {
		c := &configs[i]
		if c.Method != method {
			continue
		}
		if c.Path == path {
			return c
		}
		if strings.HasSuffix(c.Path, "/") && strings.HasPrefix(path, c.Path) && (best == nil || len(c.Path) > len(best.Path)) {
			best = c
		}
	}
	return best
}
