// Package util holds small helpers shared by every HTTP client in the tool.
package util

import (
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/http/httpproxy"

	"github.com/ppiankov/bookgeo/internal/model"
)

// NewHTTPClient builds the http.Client used for outbound calls, honoring
// the run's proxy settings and the given overall timeout. Zero timeout
// means no client-level deadline; callers bound requests with contexts.
func NewHTTPClient(cfg model.HTTPConfig, timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
		},
	}
}

// NewProxyFunc builds the proxy selector for an http.Transport from explicit
// proxy settings. With no explicit proxies it defers to the standard proxy
// environment variables (which honor NO_PROXY on their own).
func NewProxyFunc(httpProxy, httpsProxy, noProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}

	proxyFunc := (&httpproxy.Config{
		HTTPProxy:  httpProxy,
		HTTPSProxy: httpsProxy,
		NoProxy:    noProxy,
	}).ProxyFunc()

	return func(req *http.Request) (*url.URL, error) {
		return proxyFunc(req.URL)
	}
}
