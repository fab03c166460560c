// test/e2e/e2e_test.go
//
// End-to-end tests running the whole stack in-process: a stub upstream
// API (httptest), a real Redis protocol server (miniredis), the
// service, and the HTTP surface. No external infrastructure needed.
package e2e

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"sellerqi-insights/internal/cache"
	"sellerqi-insights/internal/common/config"
	"sellerqi-insights/internal/common/logger"
	"sellerqi-insights/internal/fetch"
	"sellerqi-insights/internal/models"
	"sellerqi-insights/internal/server"
	"sellerqi-insights/internal/service"
)

// upstream is a scripted stand-in for the SellerQI aggregation API.
type upstream struct {
	calls atomic.Int64
	pages map[string]string
}

func (u *upstream) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.calls.Add(1)
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		category := parts[len(parts)-1]
		page := r.URL.Query().Get("page")
		if page == "" {
			page = "1"
		}

		body, ok := u.pages[category+":"+page]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	})
}

func rankingPage(page, total int, asins ...string) string {
	products := make([]map[string]interface{}, 0, len(asins))
	for _, asin := range asins {
		products = append(products, map[string]interface{}{
			"asin":  asin,
			"Title": "Product " + asin,
			"data": map[string]interface{}{
				"TitleResult": map[string]interface{}{
					"RestictedWords": map[string]interface{}{
						"status":     "Error",
						"Message":    "The words Used are prohibited terms",
						"HowTOSolve": "Remove the flagged words",
					},
				},
			},
		})
	}
	raw, _ := json.Marshal(map[string]interface{}{
		"page": page, "limit": 2, "total": total, "products": products,
	})
	return string(raw)
}

func emptyPage() string {
	return `{"page":1,"limit":2,"total":0,"products":[]}`
}

func createStack(t *testing.T, up *upstream) http.Handler {
	t.Helper()

	upstreamSrv := httptest.NewServer(up.handler())
	t.Cleanup(upstreamSrv.Close)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &config.Config{}
	cfg.App.Name = "insights-server"
	cfg.Upstream.BaseURL = upstreamSrv.URL
	cfg.Upstream.PageLimit = 2
	cfg.Upstream.Timeout = 2000
	cfg.Upstream.MaxRetries = 2

	log := logger.NewZapAdapter(zaptest.NewLogger(t))
	categoryCache := cache.New(rdb, 24*time.Hour, log)
	fetcher := fetch.NewClient(cfg.Upstream, log)
	svc := service.New(cfg, fetcher, categoryCache, nil, nil, nil, log)
	return server.New(cfg, svc, log).Routes()
}

func doJSON(t *testing.T, routes http.Handler, method, path string, out interface{}) int {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	routes.ServeHTTP(rec, req)
	if out != nil && rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec.Code
}

func TestE2E_LoadThenLoadMoreJourney(t *testing.T) {
	up := &upstream{pages: map[string]string{
		"ranking:1": rankingPage(1, 4, "B001", "B002"),
		"ranking:2": rankingPage(2, 4, "B003", "B004"),
	}}
	routes := createStack(t, up)

	var first service.CategoryResult
	code := doJSON(t, routes, http.MethodGet, "/api/v1/accounts/acct-1/issues/ranking", &first)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, first.Rows, 2)
	assert.Equal(t, "Title | Restricted Words", first.Rows[0].IssueHeading)
	assert.True(t, first.Pagination.HasMore)
	assert.NotEmpty(t, first.Rows[0].Message)

	var second service.CategoryResult
	code = doJSON(t, routes, http.MethodPost, "/api/v1/accounts/acct-1/issues/ranking/load-more", &second)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, second.Rows, 4)
	assert.Equal(t, "B001", second.Rows[0].Asin)
	assert.Equal(t, "B003", second.Rows[2].Asin)
	assert.False(t, second.Pagination.HasMore)

	// Exhausted: another load-more stays a no-op.
	var third service.CategoryResult
	code = doJSON(t, routes, http.MethodPost, "/api/v1/accounts/acct-1/issues/ranking/load-more", &third)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, third.Rows, 4)
}

func TestE2E_CacheServesRepeatLoads(t *testing.T) {
	up := &upstream{pages: map[string]string{
		"ranking:1": rankingPage(1, 1, "B001"),
	}}
	routes := createStack(t, up)

	code := doJSON(t, routes, http.MethodGet, "/api/v1/accounts/acct-1/issues/ranking", nil)
	require.Equal(t, http.StatusOK, code)
	calls := up.calls.Load()

	code = doJSON(t, routes, http.MethodGet, "/api/v1/accounts/acct-1/issues/ranking", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, calls, up.calls.Load(), "reload served without another upstream call")

	// Refresh bypasses the cache and goes back upstream.
	var refreshed service.CategoryResult
	code = doJSON(t, routes, http.MethodPost, "/api/v1/accounts/acct-1/issues/ranking/refresh", &refreshed)
	require.Equal(t, http.StatusOK, code)
	assert.Greater(t, up.calls.Load(), calls)
	assert.Len(t, refreshed.Rows, 1)
}

func TestE2E_SummaryAcrossCategories(t *testing.T) {
	up := &upstream{pages: map[string]string{
		"ranking:1":    rankingPage(1, 2, "B001", "B002"),
		"conversion:1": emptyPage(),
		"inventory:1":  emptyPage(),
		"account:1":    `{"data":{"checks":{"health":{"status":"Error","Message":"At risk","HowToSolve":"Fix policy issues"}}}}`,
	}}
	routes := createStack(t, up)

	var summary service.SummaryResult
	code := doJSON(t, routes, http.MethodGet, "/api/v1/accounts/acct-1/summary", &summary)
	require.Equal(t, http.StatusOK, code)

	assert.Equal(t, 2, summary.Counts.Ranking)
	assert.Equal(t, 1, summary.Counts.Account)
	assert.Equal(t, 3, summary.GrandTotal)
	require.Len(t, summary.Products, 2)
	assert.Equal(t, models.PriorityHigh, summary.Products[0].Priority)
}

func TestE2E_CategoryFailureIsIsolated(t *testing.T) {
	up := &upstream{pages: map[string]string{
		// ranking deliberately missing: upstream answers 404
		"inventory:1": emptyPage(),
	}}
	routes := createStack(t, up)

	code := doJSON(t, routes, http.MethodGet, "/api/v1/accounts/acct-1/issues/ranking", nil)
	assert.Equal(t, http.StatusBadGateway, code)

	var inventory service.CategoryResult
	code = doJSON(t, routes, http.MethodGet, "/api/v1/accounts/acct-1/issues/inventory", &inventory)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, inventory.Rows)
}

func TestE2E_ExportDownload(t *testing.T) {
	up := &upstream{pages: map[string]string{
		"ranking:1": rankingPage(1, 2, "B001", "B002"),
	}}
	routes := createStack(t, up)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts/acct-1/issues/ranking/export?format=csv", nil)
	rec := httptest.NewRecorder()
	routes.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))

	records, err := csv.NewReader(strings.NewReader(rec.Body.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3, "header plus one row per product")
	assert.Equal(t, "B001", records[1][0])
	assert.Equal(t, fmt.Sprintf("Product %s", "B002"), records[2][2])
}
