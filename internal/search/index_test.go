package search

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stderrors "sellerqi-insights/internal/common/errors"
	"sellerqi-insights/internal/common/logger"
	"sellerqi-insights/internal/models"
)

// stubTransport records requests and replays canned responses.
type stubTransport struct {
	requests  []*http.Request
	bodies    []string
	responses []stubResponse
}

type stubResponse struct {
	status int
	body   string
}

func (st *stubTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	body := ""
	if req.Body != nil {
		raw, _ := io.ReadAll(req.Body)
		body = string(raw)
	}
	st.requests = append(st.requests, req)
	st.bodies = append(st.bodies, body)

	resp := stubResponse{status: http.StatusOK, body: `{}`}
	if len(st.responses) > 0 {
		resp = st.responses[0]
		st.responses = st.responses[1:]
	}

	header := http.Header{}
	header.Set("X-Elastic-Product", "Elasticsearch")
	header.Set("Content-Type", "application/json")
	return &http.Response{
		StatusCode: resp.status,
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(resp.body)),
		Request:    req,
	}, nil
}

func createIndexer(t *testing.T, responses ...stubResponse) (*Indexer, *stubTransport) {
	t.Helper()
	st := &stubTransport{responses: responses}
	client, err := elasticsearch.NewClient(elasticsearch.Config{Transport: st, DisableRetry: true})
	require.NoError(t, err)
	return NewIndexer(client, "sellerqi-issues", logger.NewNoOpLogger()), st
}

func strPtr(s string) *string {
	return &s
}

func createRow(asin string) models.IssueRow {
	return models.IssueRow{
		Asin:         asin,
		SKU:          strPtr("SKU-" + asin),
		Title:        "Product " + asin,
		IssueHeading: "Title | Restricted Words",
		Message:      "Restricted words found",
		Solution:     "Remove them",
	}
}

func TestIndexRows_BulkBodyShape(t *testing.T) {
	ix, st := createIndexer(t, stubResponse{status: http.StatusOK, body: `{"errors":false}`})

	rows := []models.IssueRow{createRow("B001"), createRow("B002")}
	require.NoError(t, ix.IndexRows(context.Background(), "acct-1", models.CategoryRanking, rows))

	require.Len(t, st.requests, 1)
	assert.Equal(t, "/_bulk", st.requests[0].URL.Path)

	// Action and document lines alternate, two per row.
	scanner := bufio.NewScanner(strings.NewReader(st.bodies[0]))
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.Len(t, lines, 4)

	var action struct {
		Index struct {
			Index string `json:"_index"`
			ID    string `json:"_id"`
		} `json:"index"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &action))
	assert.Equal(t, "sellerqi-issues", action.Index.Index)
	assert.NotEmpty(t, action.Index.ID)

	var doc Document
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &doc))
	assert.Equal(t, "acct-1", doc.Account)
	assert.Equal(t, "ranking", doc.Category)
	assert.Equal(t, "B001", doc.Asin)
	assert.Equal(t, "Title | Restricted Words", doc.IssueHeading)
}

func TestIndexRows_EmptyInputSkipsRequest(t *testing.T) {
	ix, st := createIndexer(t)
	require.NoError(t, ix.IndexRows(context.Background(), "acct-1", models.CategoryRanking, nil))
	assert.Empty(t, st.requests)
}

func TestIndexRows_ItemFailuresSurface(t *testing.T) {
	ix, _ := createIndexer(t, stubResponse{status: http.StatusOK, body: `{"errors":true}`})

	err := ix.IndexRows(context.Background(), "acct-1", models.CategoryRanking, []models.IssueRow{createRow("B001")})
	require.Error(t, err)

	var stdErr *stderrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, stderrors.ErrCodeSearchIndexFailed, stdErr.Code)
}

func TestDeleteCategory_ScopedQuery(t *testing.T) {
	ix, st := createIndexer(t, stubResponse{status: http.StatusOK, body: `{"deleted":3}`})

	require.NoError(t, ix.DeleteCategory(context.Background(), "acct-1", models.CategoryInventory))

	require.Len(t, st.bodies, 1)
	assert.Contains(t, st.bodies[0], `"account":"acct-1"`)
	assert.Contains(t, st.bodies[0], `"category":"inventory"`)
}

func TestSearch_ParsesHits(t *testing.T) {
	body := `{
		"took": 7,
		"hits": {
			"total": {"value": 2},
			"hits": [
				{"_score": 3.1, "_source": {"account":"acct-1","category":"ranking","asin":"B001","title":"Product B001","issueHeading":"Title | Restricted Words","message":"Restricted words found","solution":"Remove them"}},
				{"_score": 1.4, "_source": {"account":"acct-1","category":"conversion","asin":"B002","title":"Product B002","issueHeading":"Images | Issue","message":"Too few images","solution":"Add images"}}
			]
		}
	}`
	ix, st := createIndexer(t, stubResponse{status: http.StatusOK, body: body})

	result, err := ix.Search(context.Background(), "acct-1", "restricted", "", 25)
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalHits)
	assert.Equal(t, 7, result.Took)
	require.Len(t, result.Hits, 2)
	assert.Equal(t, "B001", result.Hits[0].Document.Asin)
	assert.InDelta(t, 3.1, result.Hits[0].Score, 0.001)

	// Request body carries the account filter and the query text.
	require.Len(t, st.bodies, 1)
	assert.Contains(t, st.bodies[0], `"account":"acct-1"`)
	assert.Contains(t, st.bodies[0], `"query":"restricted"`)
}

func TestSearch_CategoryFilter(t *testing.T) {
	ix, st := createIndexer(t, stubResponse{status: http.StatusOK, body: `{"took":1,"hits":{"total":{"value":0},"hits":[]}}`})

	_, err := ix.Search(context.Background(), "acct-1", "stranded", models.CategoryInventory, 10)
	require.NoError(t, err)
	assert.Contains(t, st.bodies[0], `"category":"inventory"`)
}

func TestSearch_ErrorStatus(t *testing.T) {
	ix, _ := createIndexer(t, stubResponse{status: http.StatusServiceUnavailable, body: `{"error":"unavailable"}`})

	_, err := ix.Search(context.Background(), "acct-1", "anything", "", 10)
	require.Error(t, err)

	var stdErr *stderrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, stderrors.ErrCodeSearchQueryFailed, stdErr.Code)
}
