// Package service orchestrates the issue pipeline: cache lookup,
// upstream fetch, payload validation, normalization, and pagination
// state. Each account+category pair moves through the pipeline
// independently, so a failure in one category never blanks another.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"sellerqi-insights/internal/cache"
	"sellerqi-insights/internal/common/config"
	stderrors "sellerqi-insights/internal/common/errors"
	"sellerqi-insights/internal/common/logger"
	"sellerqi-insights/internal/common/metrics"
	"sellerqi-insights/internal/common/validation"
	"sellerqi-insights/internal/export"
	"sellerqi-insights/internal/fetch"
	"sellerqi-insights/internal/issues/account"
	"sellerqi-insights/internal/issues/aggregate"
	"sellerqi-insights/internal/issues/conversion"
	"sellerqi-insights/internal/issues/inventory"
	"sellerqi-insights/internal/issues/pagination"
	"sellerqi-insights/internal/issues/ranking"
	"sellerqi-insights/internal/models"
	"sellerqi-insights/internal/notify"
	"sellerqi-insights/internal/reports"
	"sellerqi-insights/internal/search"
)

// Fetcher is the upstream surface the service needs.
type Fetcher interface {
	FetchCategory(ctx context.Context, req fetch.PageRequest) (json.RawMessage, error)
	InFlight(account string, category models.Category) bool
}

// Service ties the pipeline stages together.
type Service struct {
	cfg      *config.Config
	fetcher  Fetcher
	cache    *cache.CategoryCache
	indexer  *search.Indexer
	notifier *notify.Notifier
	reports  *reports.Store
	logger   logger.Logger

	mu          sync.Mutex
	trackers    map[string]*pagination.Tracker
	generations map[string]uint64
}

// New builds the service. The indexer, notifier, and report store are
// optional; nil disables search indexing, threshold alerts, and export
// history respectively.
func New(cfg *config.Config, fetcher Fetcher, categoryCache *cache.CategoryCache, indexer *search.Indexer, notifier *notify.Notifier, reportStore *reports.Store, log logger.Logger) *Service {
	return &Service{
		cfg:         cfg,
		fetcher:     fetcher,
		cache:       categoryCache,
		indexer:     indexer,
		notifier:    notifier,
		reports:     reportStore,
		logger:      log.WithFields(map[string]interface{}{"component": "service"}),
		trackers:    make(map[string]*pagination.Tracker),
		generations: make(map[string]uint64),
	}
}

// CategoryResult is one category's rows plus their pagination state.
type CategoryResult struct {
	Category   models.Category        `json:"category"`
	Rows       []models.IssueRow      `json:"rows"`
	Pagination models.PaginationState `json:"pagination"`
	FromCache  bool                   `json:"fromCache"`
	Stale      bool                   `json:"stale"`
}

// SummaryResult is the overview-screen aggregate of one account.
type SummaryResult struct {
	Counts     aggregate.CategoryCounts    `json:"counts"`
	GrandTotal int                         `json:"grandTotal"`
	Products   []models.PrioritizedProduct `json:"products"`
	AlertSent  bool                        `json:"alertSent"`
}

func trackerKey(accountID string, category models.Category) string {
	return accountID + ":" + string(category)
}

func (s *Service) tracker(accountID string, category models.Category) *pagination.Tracker {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := trackerKey(accountID, category)
	tr, ok := s.trackers[key]
	if !ok {
		tr = pagination.NewTracker(s.cfg.Upstream.PageLimit)
		s.trackers[key] = tr
	}
	return tr
}

func (s *Service) generation(key string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[key]
}

func (s *Service) bumpGeneration(key string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generations[key]++
	return s.generations[key]
}

// decodeAndNormalize turns a raw category payload into renderable rows.
// Validation failures reject the whole payload so a malformed upstream
// response never renders half a category.
func decodeAndNormalize(category models.Category, raw json.RawMessage) ([]models.IssueRow, models.PageMeta, error) {
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, models.PageMeta{}, stderrors.NewPayloadInvalidError(string(category), err.Error())
	}

	result, err := validation.ValidateCategoryPayload(string(category), doc)
	if err != nil {
		return nil, models.PageMeta{}, stderrors.NewPayloadInvalidError(string(category), err.Error())
	}
	if !result.Valid {
		return nil, models.PageMeta{}, stderrors.NewPayloadInvalidError(string(category), strings.Join(result.Errors, "; "))
	}

	var rows []models.IssueRow
	var meta models.PageMeta

	switch category {
	case models.CategoryRanking:
		var page models.RankingPage
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, models.PageMeta{}, stderrors.NewPayloadInvalidError(string(category), err.Error())
		}
		rows, meta = ranking.NormalizePage(page), page.PageMeta
	case models.CategoryConversion:
		var page models.ConversionPage
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, models.PageMeta{}, stderrors.NewPayloadInvalidError(string(category), err.Error())
		}
		rows, meta = conversion.NormalizePage(page), page.PageMeta
	case models.CategoryInventory:
		var page models.InventoryPage
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, models.PageMeta{}, stderrors.NewPayloadInvalidError(string(category), err.Error())
		}
		rows, meta = inventory.NormalizePage(page), page.PageMeta
	case models.CategoryAccount:
		var page models.AccountPage
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, models.PageMeta{}, stderrors.NewPayloadInvalidError(string(category), err.Error())
		}
		rows, meta = account.NormalizePage(page), page.PageMeta
	default:
		return nil, models.PageMeta{}, stderrors.NewUnknownCategoryError(string(category))
	}

	metrics.RowsNormalizedTotal.WithLabelValues(string(category)).Add(float64(len(rows)))

	// The upstream total counts source products; the row total shown to
	// the client can never be smaller than what is already loaded.
	if meta.Total < len(rows) {
		meta.Total = len(rows)
	}
	return rows, meta, nil
}

// fetchAndCache retrieves one page live and, for first pages, replaces
// the cache entry.
func (s *Service) fetchAndCache(ctx context.Context, accountID string, category models.Category, page int) (json.RawMessage, error) {
	raw, err := s.fetcher.FetchCategory(ctx, fetch.PageRequest{
		Account:  accountID,
		Category: category,
		Page:     page,
		Limit:    s.cfg.Upstream.PageLimit,
	})
	if err != nil {
		return nil, err
	}

	if page <= 1 {
		s.bumpGeneration(trackerKey(accountID, category))
		if err := s.cache.Put(ctx, accountID, category, raw); err != nil {
			// Serving fresh data beats caching it; log and move on.
			s.logger.Warn("cache write failed", map[string]interface{}{
				"account":  accountID,
				"category": string(category),
				"error":    err.Error(),
			})
		}
	}
	return raw, nil
}

// categoryPayload returns the first-page payload for the category,
// serving fresh cache directly and stale cache with a background
// revalidation. ttl selects the freshness window.
func (s *Service) categoryPayload(ctx context.Context, accountID string, category models.Category, ttl time.Duration) (json.RawMessage, bool, bool, error) {
	lookup, err := s.cache.Get(ctx, accountID, category, ttl)
	if err != nil {
		// Cache down: fall through to a live fetch.
		s.logger.Warn("cache read failed", map[string]interface{}{
			"account":  accountID,
			"category": string(category),
			"error":    err.Error(),
		})
	}

	if lookup.Entry != nil {
		if lookup.Fresh {
			return lookup.Entry.Data, true, false, nil
		}
		s.revalidate(accountID, category)
		return lookup.Entry.Data, true, true, nil
	}

	raw, err := s.fetchAndCache(ctx, accountID, category, 1)
	if err != nil {
		return nil, false, false, err
	}
	return raw, false, false, nil
}

// revalidate refreshes a stale cache entry in the background. The
// in-flight guard inside the fetcher collapses duplicate triggers, and
// the generation check drops a refetch that lost the race to a newer
// one.
func (s *Service) revalidate(accountID string, category models.Category) {
	key := trackerKey(accountID, category)
	gen := s.generation(key)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Upstream.RequestTimeout())
		defer cancel()

		raw, err := s.fetcher.FetchCategory(ctx, fetch.PageRequest{
			Account:  accountID,
			Category: category,
			Page:     1,
			Limit:    s.cfg.Upstream.PageLimit,
		})
		if err != nil {
			var stdErr *stderrors.StandardError
			if errors.As(err, &stdErr) && stdErr.Code == stderrors.ErrCodeFetchAlreadyInFlight {
				return
			}
			s.logger.Warn("background revalidation failed", map[string]interface{}{
				"account":  accountID,
				"category": string(category),
				"error":    err.Error(),
			})
			return
		}

		if s.generation(key) != gen {
			// A newer fetch already replaced the entry.
			return
		}

		s.bumpGeneration(key)
		if err := s.cache.Put(ctx, accountID, category, raw); err != nil {
			s.logger.Warn("cache write failed", map[string]interface{}{
				"account":  accountID,
				"category": string(category),
				"error":    err.Error(),
			})
			return
		}
		s.index(ctx, accountID, category, raw)
	}()
}

// index rebuilds the search index for one category when search is wired.
func (s *Service) index(ctx context.Context, accountID string, category models.Category, raw json.RawMessage) {
	if s.indexer == nil {
		return
	}
	rows, _, err := decodeAndNormalize(category, raw)
	if err != nil {
		return
	}
	if err := s.indexer.DeleteCategory(ctx, accountID, category); err != nil {
		s.logger.Warn("search reindex failed", map[string]interface{}{
			"account":  accountID,
			"category": string(category),
			"error":    err.Error(),
		})
		return
	}
	if err := s.indexer.IndexRows(ctx, accountID, category, rows); err != nil {
		s.logger.Warn("search reindex failed", map[string]interface{}{
			"account":  accountID,
			"category": string(category),
			"error":    err.Error(),
		})
	}
}

// Load serves a category's first page, transitioning its paginator
// Idle -> Loading -> Loaded. When the category is already loaded, the
// current snapshot is returned unchanged; a load already in flight is
// a no-op that reports the in-flight state.
func (s *Service) Load(ctx context.Context, accountID string, category models.Category) (*CategoryResult, error) {
	if !category.IsIssueCategory() {
		return nil, stderrors.NewUnknownCategoryError(string(category))
	}

	tr := s.tracker(accountID, category)
	if !tr.BeginLoad() {
		return s.snapshot(tr, category), nil
	}

	raw, fromCache, stale, err := s.categoryPayload(ctx, accountID, category, s.cfg.Cache.PageFreshness())
	if err != nil {
		tr.Fail(err)
		return nil, err
	}

	rows, meta, err := decodeAndNormalize(category, raw)
	if err != nil {
		tr.Fail(err)
		return nil, err
	}

	tr.CompleteLoad(rows, 1, meta.Total)
	result := s.snapshot(tr, category)
	result.FromCache = fromCache
	result.Stale = stale
	return result, nil
}

// LoadMore appends the next page to an already-loaded category. It is
// a no-op returning the current snapshot when the category has nothing
// more to load or a request is already in flight.
func (s *Service) LoadMore(ctx context.Context, accountID string, category models.Category) (*CategoryResult, error) {
	if !category.IsIssueCategory() {
		return nil, stderrors.NewUnknownCategoryError(string(category))
	}

	tr := s.tracker(accountID, category)
	if !tr.BeginLoadMore() {
		return s.snapshot(tr, category), nil
	}

	page := tr.NextPage()
	raw, err := s.fetcher.FetchCategory(ctx, fetch.PageRequest{
		Account:  accountID,
		Category: category,
		Page:     page,
		Limit:    s.cfg.Upstream.PageLimit,
	})
	if err != nil {
		tr.Fail(err)
		return nil, err
	}

	rows, meta, err := decodeAndNormalize(category, raw)
	if err != nil {
		tr.Fail(err)
		return nil, err
	}

	tr.CompleteLoadMore(rows, page, meta.Total)
	return s.snapshot(tr, category), nil
}

// Refresh drops the category's paginator and cache entry and loads
// page one live.
func (s *Service) Refresh(ctx context.Context, accountID string, category models.Category) (*CategoryResult, error) {
	if !category.IsIssueCategory() {
		return nil, stderrors.NewUnknownCategoryError(string(category))
	}

	if err := s.cache.Invalidate(ctx, accountID, category); err != nil {
		s.logger.Warn("cache invalidation failed", map[string]interface{}{
			"account":  accountID,
			"category": string(category),
			"error":    err.Error(),
		})
	}
	s.tracker(accountID, category).Reset()
	return s.Load(ctx, accountID, category)
}

func (s *Service) snapshot(tr *pagination.Tracker, category models.Category) *CategoryResult {
	return &CategoryResult{
		Category:   category,
		Rows:       tr.Rows(),
		Pagination: tr.State(),
	}
}

// RawView serves a pass-through view (keyword, reimbursement) straight
// from cache or upstream without normalization.
func (s *Service) RawView(ctx context.Context, accountID string, category models.Category) (json.RawMessage, error) {
	if !category.Valid() || category.IsIssueCategory() {
		return nil, stderrors.NewUnknownCategoryError(string(category))
	}
	raw, _, _, err := s.categoryPayload(ctx, accountID, category, s.cfg.Cache.PageFreshness())
	return raw, err
}

// Summary computes the overview counts and the prioritized product
// list. Categories are fetched concurrently and independently; a
// category that fails contributes zero rows but fails the whole
// summary only if every category fails.
func (s *Service) Summary(ctx context.Context, accountID string, metric models.RankMetric, contact notify.Contact) (*SummaryResult, error) {
	type outcome struct {
		category models.Category
		rows     []models.IssueRow
		products []models.ProductSummary
		err      error
	}

	categories := []models.Category{
		models.CategoryRanking,
		models.CategoryConversion,
		models.CategoryInventory,
		models.CategoryAccount,
	}

	results := make([]outcome, len(categories))
	var wg sync.WaitGroup
	for i, category := range categories {
		wg.Add(1)
		go func(i int, category models.Category) {
			defer wg.Done()
			out := outcome{category: category}
			raw, _, _, err := s.categoryPayload(ctx, accountID, category, s.cfg.Cache.DashboardFreshness())
			if err != nil {
				out.err = err
				results[i] = out
				return
			}
			out.rows, _, out.err = decodeAndNormalize(category, raw)
			if out.err == nil {
				out.products = productSummaries(category, raw, out.rows)
			}
			results[i] = out
		}(i, category)
	}
	wg.Wait()

	var counts aggregate.CategoryCounts
	failures := 0
	merged := make(map[string]*models.ProductSummary)
	order := make([]string, 0)

	for _, out := range results {
		if out.err != nil {
			failures++
			s.logger.Warn("summary category failed", map[string]interface{}{
				"account":  accountID,
				"category": string(out.category),
				"error":    out.err.Error(),
			})
			continue
		}
		switch out.category {
		case models.CategoryRanking:
			counts.Ranking = len(out.rows)
		case models.CategoryConversion:
			counts.Conversion = len(out.rows)
		case models.CategoryInventory:
			counts.Inventory = len(out.rows)
		case models.CategoryAccount:
			counts.Account = len(out.rows)
		}
		for _, p := range out.products {
			existing, ok := merged[p.Asin]
			if !ok {
				cp := p
				merged[p.Asin] = &cp
				order = append(order, p.Asin)
				continue
			}
			existing.IssueCount += p.IssueCount
			if existing.Title == "" {
				existing.Title = p.Title
			}
		}
	}

	if failures == len(categories) {
		return nil, results[0].err
	}

	summaries := make([]models.ProductSummary, 0, len(order))
	for _, asin := range order {
		summaries = append(summaries, *merged[asin])
	}

	result := &SummaryResult{
		Counts:     counts,
		GrandTotal: counts.GrandTotal(),
		Products:   aggregate.Prioritize(summaries, metric),
	}

	if s.notifier != nil {
		sent, err := s.notifier.Evaluate(ctx, accountID, counts, contact)
		if err != nil {
			s.logger.Warn("alert delivery failed", map[string]interface{}{
				"account": accountID,
				"error":   err.Error(),
			})
		}
		result.AlertSent = sent
	}
	return result, nil
}

// Export streams one category's full first-page row set to w in the
// requested format ("csv" or "ndjson") and records the run in the
// export history when a report store is wired. It returns the number
// of rows written.
func (s *Service) Export(ctx context.Context, accountID string, category models.Category, format string, w io.Writer) (int, error) {
	if !category.IsIssueCategory() {
		return 0, stderrors.NewUnknownCategoryError(string(category))
	}

	raw, _, _, err := s.categoryPayload(ctx, accountID, category, s.cfg.Cache.PageFreshness())
	if err != nil {
		return 0, err
	}
	rows, _, err := decodeAndNormalize(category, raw)
	if err != nil {
		return 0, err
	}

	switch format {
	case "ndjson":
		err = export.WriteNDJSON(w, rows)
	default:
		format = "csv"
		err = export.WriteCSV(w, rows)
	}
	if err != nil {
		return 0, err
	}

	if s.reports != nil {
		if _, err := s.reports.Record(ctx, accountID, category, format, len(rows)); err != nil {
			// The export already reached the client; history is best effort.
			s.logger.Warn("export history write failed", map[string]interface{}{
				"account":  accountID,
				"category": string(category),
				"error":    err.Error(),
			})
		}
	}
	return len(rows), nil
}

// ExportHistory lists the account's recent export runs.
func (s *Service) ExportHistory(ctx context.Context, accountID string, limit int) ([]reports.Report, error) {
	if s.reports == nil {
		return nil, nil
	}
	return s.reports.List(ctx, accountID, limit)
}

// Search runs a full-text query over the account's indexed rows.
func (s *Service) Search(ctx context.Context, accountID, query string, category models.Category, size int) (*search.Result, error) {
	if s.indexer == nil {
		return nil, stderrors.NewSearchQueryFailedError(errors.New("search is not configured"))
	}
	return s.indexer.Search(ctx, accountID, query, category, size)
}

// productSummaries derives per-product issue counts from one
// category's rows, keeping the upstream product order.
func productSummaries(category models.Category, raw json.RawMessage, rows []models.IssueRow) []models.ProductSummary {
	titles := make(map[string]string)
	order := make([]string, 0)

	appendProduct := func(asin, title string) {
		if asin == "" {
			return
		}
		if _, ok := titles[asin]; !ok {
			titles[asin] = title
			order = append(order, asin)
		}
	}

	switch category {
	case models.CategoryRanking:
		var page models.RankingPage
		if err := json.Unmarshal(raw, &page); err == nil {
			for _, p := range page.Products {
				appendProduct(p.Asin, p.Title)
			}
		}
	case models.CategoryConversion:
		var page models.ConversionPage
		if err := json.Unmarshal(raw, &page); err == nil {
			for _, p := range page.Products {
				appendProduct(p.Asin, p.Title)
			}
		}
	case models.CategoryInventory:
		var page models.InventoryPage
		if err := json.Unmarshal(raw, &page); err == nil {
			for _, p := range page.Products {
				appendProduct(p.Asin, p.Title)
			}
		}
	default:
		return nil
	}

	counts := make(map[string]int)
	for _, row := range rows {
		if row.Asin != "" {
			counts[row.Asin]++
		}
	}

	summaries := make([]models.ProductSummary, 0, len(order))
	for _, asin := range order {
		summaries = append(summaries, models.ProductSummary{
			Asin:       asin,
			Title:      titles[asin],
			IssueCount: counts[asin],
		})
	}
	return summaries
}
