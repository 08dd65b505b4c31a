package utils

import (
	"net/url"
	"strings"
)

// IsLocalhost reports whether serverURL points at the local machine.
func IsLocalhost(serverURL string) bool {
	u, err := url.Parse(serverURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}

// IsInsecureRemote reports whether serverURL would send the session key over
// plain HTTP to another machine.
func IsInsecureRemote(serverURL string) bool {
	u, err := url.Parse(serverURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Scheme, "http") && !IsLocalhost(serverURL)
}
