package p2p

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/sig-0/p2prates/storage/types"
)

// DefaultURL is the Binance P2P order book search endpoint
const DefaultURL = "https://p2p.binance.com/bapi/c2c/v2/friendly/c2c/adv/search"

const (
	defaultTimeout = 20 * time.Second
	defaultRows    = 20

	upstreamOKCode = "000000"
)

var (
	errInvalidQuery = errors.New("invalid page query")
	errUpstream     = errors.New("upstream rejected the request")
)

// Fetcher fetches a single order book page
type Fetcher interface {
	// FetchPage returns the raw records of the given page.
	// An empty result means the book is exhausted
	FetchPage(context.Context, PageQuery) ([]RawOffer, error)
}

// Client is the Binance P2P order book client
type Client struct {
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
	url     string
}

// NewClient creates a new instance of the Binance P2P client
func NewClient(opts ...Option) *Client {
	c := &Client{
		client: &http.Client{
			Timeout: defaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 1),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		url:     DefaultURL,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// FetchPage queries a single page of the order book
func (c *Client) FetchPage(ctx context.Context, q PageQuery) ([]RawOffer, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}

	asset := q.Asset
	if asset == "" {
		asset = DefaultAsset
	}

	rows := q.Rows
	if rows <= 0 {
		rows = defaultRows
	}

	reqBody := searchRequest{
		Asset:     asset,
		Fiat:      q.Fiat,
		TradeType: q.Side.String(),
		Page:      q.Page,
		Rows:      rows,
		PayTypes:  nonNil(q.PayTypes),
		Countries: nonNil(q.Countries),
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("unable to marshal request: %w", err)
	}

	// Space out consecutive calls to avoid upstream throttling
	if err = c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("unable to wait for rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("unable to create POST request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to execute POST request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("invalid status code received: %d", resp.StatusCode)
	}

	var apiResp searchResponse
	if err = json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("unable to decode response: %w", err)
	}

	if apiResp.Code != "" && apiResp.Code != upstreamOKCode {
		return nil, fmt.Errorf("%w: code %s, %s", errUpstream, apiResp.Code, apiResp.Message)
	}

	c.logger.Debug(
		"fetched order book page",
		"fiat", q.Fiat,
		"side", q.Side,
		"page", q.Page,
		"offers", len(apiResp.Data),
	)

	if apiResp.Data == nil {
		return []RawOffer{}, nil
	}

	return apiResp.Data, nil
}

// validateQuery verifies the page query is well-formed
func validateQuery(q PageQuery) error {
	if q.Fiat == "" {
		return fmt.Errorf("%w: missing fiat", errInvalidQuery)
	}

	if q.Side != types.SideBUY && q.Side != types.SideSELL {
		return fmt.Errorf("%w: unknown side %q", errInvalidQuery, q.Side)
	}

	if q.Page < 1 {
		return fmt.Errorf("%w: page must be >= 1", errInvalidQuery)
	}

	return nil
}

// nonNil keeps empty filters encoded as [] instead of null
func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}

	return values
}
