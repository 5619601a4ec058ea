package util

import (
	"net/http"
	"net/url"
	"strings"
)

// NewProxyFunc builds the fetch client's proxy selector. Explicit proxy URLs
// win over the standard environment variables; hosts listed in noProxy
// bypass the proxy entirely.
func NewProxyFunc(httpProxy, httpsProxy, noProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}

	bypass := make(map[string]struct{})
	for _, host := range strings.Split(noProxy, ",") {
		if host = strings.TrimSpace(host); host != "" {
			bypass[host] = struct{}{}
		}
	}

	return func(req *http.Request) (*url.URL, error) {
		if _, skip := bypass[req.URL.Hostname()]; skip {
			return nil, nil
		}
		if req.URL.Scheme == "https" && httpsProxy != "" {
			return url.Parse(httpsProxy)
		}
		if httpProxy != "" {
			return url.Parse(httpProxy)
		}
		return http.ProxyFromEnvironment(req)
	}
}
