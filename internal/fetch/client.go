// Package fetch retrieves paginated category payloads from the
// upstream SellerQI aggregation API. Categories are independent: no
// category's fetch blocks another's, and a per-key in-flight guard
// keeps at most one request outstanding per account and category.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"sellerqi-insights/internal/common/config"
	stderrors "sellerqi-insights/internal/common/errors"
	commonhttp "sellerqi-insights/internal/common/http"
	"sellerqi-insights/internal/common/logger"
	"sellerqi-insights/internal/common/metrics"
	"sellerqi-insights/internal/models"
)

// Client fetches category pages from the upstream API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *commonhttp.Client
	maxRetries int
	logger     logger.Logger

	mu       sync.Mutex
	inFlight map[string]bool
}

// PageRequest identifies one category page of one account.
type PageRequest struct {
	Account  string
	Category models.Category
	Page     int
	Limit    int
}

func (r PageRequest) key() string {
	return r.Account + ":" + string(r.Category)
}

// NewClient builds a fetch client from the upstream config.
func NewClient(cfg config.UpstreamConfig, log logger.Logger) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: commonhttp.NewClient(cfg.RequestTimeout()),
		maxRetries: cfg.MaxRetries,
		logger:     log.WithFields(map[string]interface{}{"component": "fetch"}),
		inFlight:   make(map[string]bool),
	}
}

// tryAcquire marks the account+category as in flight. It returns false
// when a fetch for the same key is already outstanding.
func (c *Client) tryAcquire(key, category string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inFlight[key] {
		return false
	}
	c.inFlight[key] = true
	metrics.FetchesInFlight.WithLabelValues(category).Inc()
	return true
}

func (c *Client) release(key, category string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.inFlight, key)
	metrics.FetchesInFlight.WithLabelValues(category).Dec()
}

// InFlight reports whether a fetch for the account+category is outstanding.
func (c *Client) InFlight(account string, category models.Category) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight[account+":"+string(category)]
}

// FetchCategory retrieves one raw category page. Duplicate concurrent
// fetches for the same account+category return ErrCodeFetchAlreadyInFlight
// so callers can treat them as a no-op. Retryable upstream failures are
// retried with exponential backoff up to the configured limit.
func (c *Client) FetchCategory(ctx context.Context, req PageRequest) (json.RawMessage, error) {
	if !req.Category.Valid() {
		return nil, stderrors.NewUnknownCategoryError(string(req.Category))
	}

	key := req.key()
	category := string(req.Category)
	if !c.tryAcquire(key, category) {
		return nil, &stderrors.StandardError{
			Code:      stderrors.ErrCodeFetchAlreadyInFlight,
			Message:   "Fetch already in flight for this category",
			Category:  category,
			Timestamp: time.Now().UTC(),
		}
	}
	defer c.release(key, category)

	metrics.CategoryFetchesTotal.WithLabelValues(category).Inc()
	start := time.Now()

	var lastErr *stderrors.StandardError
	delay := 500 * time.Millisecond
	attempts := c.maxRetries
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, stderrors.NewUpstreamTimeoutError(category)
			case <-time.After(delay):
			}
			delay *= 2
		}

		raw, stdErr := c.doFetch(ctx, req)
		if stdErr == nil {
			metrics.CategoryFetchDuration.WithLabelValues(category).Observe(time.Since(start).Seconds())
			return raw, nil
		}

		lastErr = stdErr
		if !stdErr.Retryable {
			break
		}
		c.logger.Warn("upstream fetch failed, retrying", map[string]interface{}{
			"category": category,
			"attempt":  attempt + 1,
			"error":    stdErr.Error(),
		})
	}

	metrics.CategoryFetchErrors.WithLabelValues(category, string(lastErr.Code)).Inc()
	return nil, lastErr
}

func (c *Client) doFetch(ctx context.Context, req PageRequest) (json.RawMessage, *stderrors.StandardError) {
	category := string(req.Category)

	endpoint, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, stderrors.NewUpstreamFetchFailedError(category, err)
	}
	endpoint = endpoint.JoinPath("api", "v1", "issues", category)

	q := endpoint.Query()
	q.Set("account", req.Account)
	if req.Page > 0 {
		q.Set("page", strconv.Itoa(req.Page))
	}
	if req.Limit > 0 {
		q.Set("limit", strconv.Itoa(req.Limit))
	}
	endpoint.RawQuery = q.Encode()

	httpReq, err := http.NewRequest(http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, stderrors.NewUpstreamFetchFailedError(category, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.DoWithContext(ctx, httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, stderrors.NewUpstreamTimeoutError(category)
		}
		return nil, stderrors.NewUpstreamFetchFailedError(category, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, stderrors.NewUpstreamBadStatusError(category, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, stderrors.NewUpstreamFetchFailedError(category, err)
	}
	if !json.Valid(body) {
		return nil, stderrors.NewPayloadInvalidError(category, "response body is not valid JSON")
	}

	return body, nil
}

// FetchRankingPage retrieves and decodes a ranking category page.
func (c *Client) FetchRankingPage(ctx context.Context, account string, page, limit int) (*models.RankingPage, error) {
	raw, err := c.FetchCategory(ctx, PageRequest{Account: account, Category: models.CategoryRanking, Page: page, Limit: limit})
	if err != nil {
		return nil, err
	}
	var out models.RankingPage
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, stderrors.NewPayloadInvalidError(string(models.CategoryRanking), err.Error())
	}
	return &out, nil
}

// FetchConversionPage retrieves and decodes a conversion category page.
func (c *Client) FetchConversionPage(ctx context.Context, account string, page, limit int) (*models.ConversionPage, error) {
	raw, err := c.FetchCategory(ctx, PageRequest{Account: account, Category: models.CategoryConversion, Page: page, Limit: limit})
	if err != nil {
		return nil, err
	}
	var out models.ConversionPage
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, stderrors.NewPayloadInvalidError(string(models.CategoryConversion), err.Error())
	}
	return &out, nil
}

// FetchInventoryPage retrieves and decodes an inventory category page.
func (c *Client) FetchInventoryPage(ctx context.Context, account string, page, limit int) (*models.InventoryPage, error) {
	raw, err := c.FetchCategory(ctx, PageRequest{Account: account, Category: models.CategoryInventory, Page: page, Limit: limit})
	if err != nil {
		return nil, err
	}
	var out models.InventoryPage
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, stderrors.NewPayloadInvalidError(string(models.CategoryInventory), err.Error())
	}
	return &out, nil
}

// FetchAccountPage retrieves and decodes the account category payload.
func (c *Client) FetchAccountPage(ctx context.Context, account string) (*models.AccountPage, error) {
	raw, err := c.FetchCategory(ctx, PageRequest{Account: account, Category: models.CategoryAccount})
	if err != nil {
		return nil, err
	}
	var out models.AccountPage
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, stderrors.NewPayloadInvalidError(string(models.CategoryAccount), err.Error())
	}
	return &out, nil
}

// FetchRaw retrieves a pre-aggregated view (keyword, reimbursement)
// that is cached and passed through without normalization.
func (c *Client) FetchRaw(ctx context.Context, account string, category models.Category, page, limit int) (json.RawMessage, error) {
	return c.FetchCategory(ctx, PageRequest{Account: account, Category: category, Page: page, Limit: limit})
}

// String implements fmt.Stringer for debug logging.
func (c *Client) String() string {
	return fmt.Sprintf("fetch.Client(base=%s)", c.baseURL)
}
