// Package di provides dependency injection factories for creating application components.
package di

import (
	"net/http/cookiejar"
	"time"

	"golang.org/x/net/publicsuffix"

	"stock_screener/internal/platform/externalapi/yahoo"
	infrahttp "stock_screener/internal/platform/http"
	"stock_screener/internal/shared/ratelimiter"
)

// NewMarketDataClient creates a fully configured Yahoo Finance client with
// its own HTTP client, a cookie jar for the crumb session and a per-minute rate limiter.
func NewMarketDataClient(cfg yahoo.Config) *yahoo.Client {
	// cookiejar.New never returns an error.
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	httpClient := infrahttp.NewHTTPClient(infrahttp.ClientConfig{
		Timeout:   cfg.Timeout,
		UserAgent: cfg.UserAgent,
		Jar:       jar,
	})
	limiter := ratelimiter.NewRateLimiter(cfg.RateLimit, time.Minute)
	return yahoo.NewClient(cfg, httpClient, limiter)
}
