package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"stock_screener/internal/feature/stocks/domain"
	"stock_screener/internal/feature/stocks/domain/entity"
	"stock_screener/internal/feature/stocks/usecase"
	"stock_screener/internal/platform/externalapi/yahoo/dto"
	"stock_screener/internal/shared/ratelimiter"
)

const modules = "summaryDetail,defaultKeyStatistics"

// Client はYahoo Finance quoteSummary APIから指標を取得するMarketDataClient実装です。
//
// quoteSummary はセッションCookieとcrumbを要求します。Client は初回呼び出し時に
// CookieURL と /v1/test/getcrumb からcrumbを取得してキャッシュし、401が返った場合は
// 1度だけ取り直して再試行します。Cookieを保持するため、http.Client には Jar が必要です。
type Client struct {
	cfg     Config
	client  *http.Client
	limiter ratelimiter.Limiter

	mu    sync.Mutex
	crumb string
	group singleflight.Group
}

// ClientがMarketDataClientを実装していることをコンパイル時に検証します。
var _ usecase.MarketDataClient = (*Client)(nil)

// NewClient は指定された設定とHTTPクライアントでClientを生成します。
// limiter が nil の場合はレート制限を行いません。
func NewClient(cfg Config, client *http.Client, limiter ratelimiter.Limiter) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.CookieURL == "" {
		cfg.CookieURL = DefaultCookieURL
	}
	return &Client{cfg: cfg, client: client, limiter: limiter}
}

// Fetch は1回のquoteSummaryリクエストで symbol の指標を取得します。
// 失敗はすべて *domain.FetchError として返されます。crumb失効時の取り直しを除き、リトライは行いません。
func (c *Client) Fetch(ctx context.Context, symbol string) (entity.Snapshot, error) {
	snap, err := c.fetch(ctx, symbol)
	if err != nil {
		return entity.Snapshot{}, &domain.FetchError{Symbol: symbol, Err: err}
	}
	return snap, nil
}

func (c *Client) fetch(ctx context.Context, symbol string) (entity.Snapshot, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return entity.Snapshot{}, err
		}
	}

	res, err := c.quote(ctx, symbol, false)
	if err != nil {
		return entity.Snapshot{}, err
	}
	if res.StatusCode == http.StatusUnauthorized {
		closeBody(res)
		if res, err = c.quote(ctx, symbol, true); err != nil {
			return entity.Snapshot{}, err
		}
	}
	defer closeBody(res)

	if res.StatusCode == http.StatusNotFound {
		return entity.Snapshot{}, domain.ErrSymbolUnknown
	}
	if res.StatusCode >= 400 {
		return entity.Snapshot{}, fmt.Errorf("yahoo http %d", res.StatusCode)
	}

	var body dto.QuoteSummaryResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return entity.Snapshot{}, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	if e := body.QuoteSummary.Error; e != nil {
		if strings.EqualFold(e.Code, "Not Found") {
			return entity.Snapshot{}, domain.ErrSymbolUnknown
		}
		return entity.Snapshot{}, fmt.Errorf("%w: %s: %s", domain.ErrMalformedResponse, e.Code, e.Description)
	}
	if len(body.QuoteSummary.Result) == 0 {
		return entity.Snapshot{}, domain.ErrSymbolUnknown
	}
	return toSnapshot(body.QuoteSummary.Result[0]), nil
}

// quote issues the quoteSummary request with a crumb. refresh discards the cached crumb first.
func (c *Client) quote(ctx context.Context, symbol string, refresh bool) (*http.Response, error) {
	crumb, err := c.sessionCrumb(ctx, refresh)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("modules", modules)
	q.Set("crumb", crumb)
	u := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?%s",
		strings.TrimRight(c.cfg.BaseURL, "/"), url.PathEscape(symbol), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	return c.client.Do(req)
}

// sessionCrumb returns the cached crumb, fetching a new one when none is cached or refresh is set.
// Concurrent fetches share one handshake.
func (c *Client) sessionCrumb(ctx context.Context, refresh bool) (string, error) {
	c.mu.Lock()
	cached := c.crumb
	c.mu.Unlock()
	if cached != "" && !refresh {
		return cached, nil
	}

	v, err, _ := c.group.Do("crumb", func() (interface{}, error) {
		crumb, err := c.fetchCrumb(ctx)
		if err != nil {
			return "", err
		}
		c.mu.Lock()
		c.crumb = crumb
		c.mu.Unlock()
		return crumb, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// fetchCrumb visits CookieURL so the jar receives the session cookie, then asks for a crumb.
// The cookie page answers with an error status while still setting the cookie, so its status is ignored.
func (c *Client) fetchCrumb(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.CookieURL, nil)
	if err != nil {
		return "", err
	}
	res, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("yahoo cookie: %w", err)
	}
	_, _ = io.Copy(io.Discard, res.Body)
	closeBody(res)

	u := strings.TrimRight(c.cfg.BaseURL, "/") + "/v1/test/getcrumb"
	req, err = http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	res, err = c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("yahoo crumb: %w", err)
	}
	defer closeBody(res)

	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("yahoo crumb http %d", res.StatusCode)
	}
	b, err := io.ReadAll(io.LimitReader(res.Body, 1024))
	if err != nil {
		return "", fmt.Errorf("yahoo crumb: %w", err)
	}
	crumb := strings.TrimSpace(string(b))
	if crumb == "" || strings.ContainsAny(crumb, "<{ ") {
		return "", errInvalidCrumb
	}
	return crumb, nil
}

var errInvalidCrumb = errors.New("yahoo crumb: invalid response")

func closeBody(res *http.Response) {
	if err := res.Body.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close response body")
	}
}

// toSnapshot maps the provider modules onto a Snapshot. Missing modules,
// keys and raw values all become absent fields.
func toSnapshot(r dto.QuoteSummaryResult) entity.Snapshot {
	var snap entity.Snapshot
	if sd := r.SummaryDetail; sd != nil {
		snap.PreviousClose = raw(sd.PreviousClose)
		snap.FiftyDayAverage = raw(sd.FiftyDayAverage)
		snap.TwoHundredDayAverage = raw(sd.TwoHundredDayAverage)
		snap.ForwardPE = raw(sd.ForwardPE)
		snap.DividendYield = raw(sd.DividendYield)
	}
	if ks := r.DefaultKeyStatistics; ks != nil {
		snap.ForwardEPS = raw(ks.ForwardEps)
		if snap.ForwardPE == nil {
			snap.ForwardPE = raw(ks.ForwardPE)
		}
	}
	return snap
}

func raw(v *dto.RawValue) *float64 {
	if v == nil || v.Raw == nil {
		return nil
	}
	f := *v.Raw
	return &f
}

