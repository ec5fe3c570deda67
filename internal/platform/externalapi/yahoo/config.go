// Package yahoo provides a market data client for the Yahoo Finance quoteSummary API.
package yahoo

import "time"

const (
	DefaultBaseURL   = "https://query2.finance.yahoo.com"
	DefaultCookieURL = "https://fc.yahoo.com"
)

// Config holds configuration for the Yahoo Finance client.
type Config struct {
	BaseURL   string        // Base URL for the API (e.g., "https://query2.finance.yahoo.com")
	CookieURL string        // Page that issues the session cookie required for a crumb
	Timeout   time.Duration // HTTP request timeout
	UserAgent string        // User-Agent sent with every request
	RateLimit int           // Calls per minute, 0 disables limiting
}
