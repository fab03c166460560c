// Package search maintains a full-text index of normalized issue rows
// in Elasticsearch so the dashboard can search across categories
// without refetching upstream payloads.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/google/uuid"

	stderrors "sellerqi-insights/internal/common/errors"
	"sellerqi-insights/internal/common/logger"
	"sellerqi-insights/internal/models"
)

// Document is the indexed form of one issue row.
type Document struct {
	Account      string    `json:"account"`
	Category     string    `json:"category"`
	Asin         string    `json:"asin,omitempty"`
	SKU          string    `json:"sku,omitempty"`
	Title        string    `json:"title"`
	IssueHeading string    `json:"issueHeading"`
	Message      string    `json:"message"`
	Solution     string    `json:"solution"`
	IndexedAt    time.Time `json:"indexedAt"`
}

// Hit is one search result with its relevance score.
type Hit struct {
	Document Document `json:"document"`
	Score    float64  `json:"score"`
}

// Result is a search response page.
type Result struct {
	Hits      []Hit `json:"hits"`
	TotalHits int   `json:"totalHits"`
	Took      int   `json:"took"`
}

// Indexer reads and writes the issue index.
type Indexer struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
	now    func() time.Time
}

// NewIndexer builds an Indexer over an existing client.
func NewIndexer(client *elasticsearch.Client, index string, log logger.Logger) *Indexer {
	return &Indexer{
		client: client,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "search"}),
		now:    time.Now,
	}
}

func documentFrom(account string, category models.Category, row models.IssueRow, now time.Time) Document {
	sku := ""
	if row.SKU != nil {
		sku = *row.SKU
	}
	return Document{
		Account:      account,
		Category:     string(category),
		Asin:         row.Asin,
		SKU:          sku,
		Title:        row.DisplayTitle(),
		IssueHeading: row.IssueHeading,
		Message:      row.Message,
		Solution:     row.Solution,
		IndexedAt:    now.UTC(),
	}
}

// IndexRows bulk-indexes the rows of one account+category. Each call
// writes fresh documents; stale ones age out through DeleteCategory
// before reindex.
func (ix *Indexer) IndexRows(ctx context.Context, account string, category models.Category, rows []models.IssueRow) error {
	if len(rows) == 0 {
		return nil
	}

	var body bytes.Buffer
	now := ix.now()
	for _, row := range rows {
		action := map[string]interface{}{
			"index": map[string]interface{}{
				"_index": ix.index,
				"_id":    uuid.NewString(),
			},
		}
		if err := json.NewEncoder(&body).Encode(action); err != nil {
			return stderrors.NewSearchIndexFailedError(err)
		}
		if err := json.NewEncoder(&body).Encode(documentFrom(account, category, row, now)); err != nil {
			return stderrors.NewSearchIndexFailedError(err)
		}
	}

	res, err := ix.client.Bulk(bytes.NewReader(body.Bytes()), ix.client.Bulk.WithContext(ctx))
	if err != nil {
		return stderrors.NewSearchIndexFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return stderrors.NewSearchIndexFailedError(fmt.Errorf("bulk index returned %s", res.Status()))
	}

	var bulkResp struct {
		Errors bool `json:"errors"`
	}
	if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
		return stderrors.NewSearchIndexFailedError(err)
	}
	if bulkResp.Errors {
		return stderrors.NewSearchIndexFailedError(fmt.Errorf("bulk index reported item failures"))
	}

	ix.logger.Debug("indexed issue rows", map[string]interface{}{
		"account":  account,
		"category": string(category),
		"count":    len(rows),
	})
	return nil
}

// DeleteCategory removes the indexed rows of one account+category,
// typically just before a reindex of fresh data.
func (ix *Indexer) DeleteCategory(ctx context.Context, account string, category models.Category) error {
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []map[string]interface{}{
					{"term": map[string]interface{}{"account": account}},
					{"term": map[string]interface{}{"category": string(category)}},
				},
			},
		},
	}

	body, err := json.Marshal(query)
	if err != nil {
		return stderrors.NewSearchIndexFailedError(err)
	}

	res, err := ix.client.DeleteByQuery(
		[]string{ix.index},
		bytes.NewReader(body),
		ix.client.DeleteByQuery.WithContext(ctx),
	)
	if err != nil {
		return stderrors.NewSearchIndexFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return stderrors.NewSearchIndexFailedError(fmt.Errorf("delete by query returned %s", res.Status()))
	}
	return nil
}

// Search runs a full-text query over one account's indexed rows.
// An empty category searches all categories.
func (ix *Indexer) Search(ctx context.Context, account, query string, category models.Category, size int) (*Result, error) {
	if size <= 0 {
		size = 25
	}

	filters := []map[string]interface{}{
		{"term": map[string]interface{}{"account": account}},
	}
	if category != "" {
		filters = append(filters, map[string]interface{}{
			"term": map[string]interface{}{"category": string(category)},
		})
	}

	esQuery := map[string]interface{}{
		"size": size,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": filters,
				"must": map[string]interface{}{
					"multi_match": map[string]interface{}{
						"query":  query,
						"fields": []string{"title^2", "issueHeading^2", "message", "solution"},
					},
				},
			},
		},
	}

	body, err := json.Marshal(esQuery)
	if err != nil {
		return nil, stderrors.NewSearchQueryFailedError(err)
	}

	res, err := ix.client.Search(
		ix.client.Search.WithContext(ctx),
		ix.client.Search.WithIndex(ix.index),
		ix.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, stderrors.NewSearchQueryFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, stderrors.NewSearchQueryFailedError(fmt.Errorf("search returned %s", res.Status()))
	}

	var esResp struct {
		Took int `json:"took"`
		Hits struct {
			Total struct {
				Value int `json:"value"`
			} `json:"total"`
			Hits []struct {
				Score  float64  `json:"_score"`
				Source Document `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&esResp); err != nil {
		return nil, stderrors.NewSearchQueryFailedError(err)
	}

	result := &Result{
		Hits:      make([]Hit, 0, len(esResp.Hits.Hits)),
		TotalHits: esResp.Hits.Total.Value,
		Took:      esResp.Took,
	}
	for _, hit := range esResp.Hits.Hits {
		result.Hits = append(result.Hits, Hit{Document: hit.Source, Score: hit.Score})
	}
	return result, nil
}
