// Package yahoo provides a quote client for the Yahoo Finance chart API.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/domain"
)

const defaultBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"

type cachedQuote struct {
	price     float64
	asOf      time.Time
	fetchedAt time.Time
}

// Client fetches the latest market price of a symbol.
// Quotes are cached for ttl; when a fetch fails a stale quote is returned if
// one is cached.
type Client struct {
	baseURL string
	client  *http.Client
	ttl     time.Duration
	now     func() time.Time
	log     zerolog.Logger

	mu    sync.Mutex
	cache map[string]cachedQuote
}

// NewClient creates a Yahoo Finance quote client
func NewClient(ttl time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		ttl:     ttl,
		now:     time.Now,
		log:     log.With().Str("client", "yahoo").Logger(),
		cache:   make(map[string]cachedQuote),
	}
}

var _ domain.QuoteProvider = (*Client)(nil)

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				RegularMarketTime  int64   `json:"regularMarketTime"`
			} `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// GetPrice returns the regular market price of symbol and when it was quoted
func (c *Client) GetPrice(ctx context.Context, symbol string) (float64, time.Time, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return 0, time.Time{}, fmt.Errorf("symbol is required")
	}

	if q, ok := c.cached(symbol); ok && c.now().Sub(q.fetchedAt) < c.ttl {
		c.log.Debug().Str("symbol", symbol).Float64("price", q.price).Msg("Cache hit")
		return q.price, q.asOf, nil
	}

	price, asOf, err := c.fetch(ctx, symbol)
	if err != nil {
		if q, ok := c.cached(symbol); ok {
			c.log.Warn().
				Err(err).
				Str("symbol", symbol).
				Float64("price", q.price).
				Msg("Quote fetch failed, using stale cached price")
			return q.price, q.asOf, nil
		}
		return 0, time.Time{}, err
	}

	c.mu.Lock()
	c.cache[symbol] = cachedQuote{price: price, asOf: asOf, fetchedAt: c.now()}
	c.mu.Unlock()

	c.log.Debug().Str("symbol", symbol).Float64("price", price).Msg("Fetched quote")
	return price, asOf, nil
}

func (c *Client) cached(symbol string) (cachedQuote, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	q, ok := c.cache[symbol]
	return q, ok
}

func (c *Client) fetch(ctx context.Context, symbol string) (float64, time.Time, error) {
	endpoint := fmt.Sprintf("%s/%s?interval=1d&range=1d", c.baseURL, url.PathEscape(symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", "folio/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("quote request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, time.Time{}, fmt.Errorf("quote API returned status %d for %s", resp.StatusCode, symbol)
	}

	var body chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to parse quote response: %w", err)
	}
	if body.Chart.Error != nil {
		return 0, time.Time{}, fmt.Errorf("quote API error for %s: %s", symbol, body.Chart.Error.Description)
	}
	if len(body.Chart.Result) == 0 {
		return 0, time.Time{}, fmt.Errorf("no quote returned for %s", symbol)
	}

	meta := body.Chart.Result[0].Meta
	if meta.RegularMarketPrice <= 0 {
		return 0, time.Time{}, fmt.Errorf("no market price for %s", symbol)
	}
	return meta.RegularMarketPrice, time.Unix(meta.RegularMarketTime, 0).UTC(), nil
}
