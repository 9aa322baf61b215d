package fetch

import (
	"fmt"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gocolly/colly/v2"
)

// Default proxy gateway port range. The gateway maps each port in the range
// to a different egress IP, so picking a random port per request rotates
// the visible source address.
const (
	DefaultProxyPortMin = 10001
	DefaultProxyPortMax = 10100
)

// rotatingProxyFunc returns a colly proxy selector that substitutes a
// uniformly-random port from [portMin, portMax] into the base endpoint's
// port slot on every request. Scheme, credentials and host are preserved.
func rotatingProxyFunc(base string, portMin, portMax int) (colly.ProxyFunc, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse proxy endpoint: %w", err)
	}
	if parsed.Hostname() == "" {
		return nil, fmt.Errorf("proxy endpoint %q has no host", base)
	}
	if portMin <= 0 || portMax < portMin {
		portMin = DefaultProxyPortMin
		portMax = DefaultProxyPortMax
	}
	return func(*http.Request) (*url.URL, error) {
		return deriveProxyURL(parsed, portMin+rand.IntN(portMax-portMin+1)), nil
	}, nil
}

// deriveProxyURL copies base with its port replaced.
func deriveProxyURL(base *url.URL, port int) *url.URL {
	derived := *base
	derived.Host = net.JoinHostPort(base.Hostname(), strconv.Itoa(port))
	return &derived
}
