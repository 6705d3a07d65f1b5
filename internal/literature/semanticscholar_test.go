package literature

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSemanticScholarSearch(t *testing.T) {
	var gotPath, gotQuery, gotAPIKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("query")
		gotAPIKey = r.Header.Get("x-api-key")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"data": [
				{"paperId": "abc123", "title": "Sleep and anxiety", "abstract": "...", "year": 2021, "citationCount": 500, "url": "https://example.org/abc123"},
				{"paperId": "def456", "title": "", "year": null, "citationCount": 0},
				{"paperId": "", "title": "orphan row"}
			]
		}`))
	}))
	defer server.Close()

	client := NewSemanticScholarClient(server.URL, "test-key")
	results, err := client.Search(context.Background(), "sleep anxiety", 10)
	require.NoError(t, err)
	require.Len(t, results, 2, "rows without a paperId are dropped")

	assert.Equal(t, "/paper/search", gotPath)
	assert.Equal(t, "sleep anxiety", gotQuery)
	assert.Equal(t, "test-key", gotAPIKey)

	first := results[0]
	assert.Equal(t, "abc123", first.ID)
	assert.Equal(t, "Sleep and anxiety", first.Title)
	assert.Equal(t, "semantic_scholar", first.Source)
	assert.Equal(t, 1.0, first.SimilarityScore, "first ranked result gets full similarity")
	require.NotNil(t, first.Year)
	assert.Equal(t, 2021, *first.Year)
	require.NotNil(t, first.Consensus)
	assert.Greater(t, *first.Consensus, 0.3, "500 citations should beat the consensus floor")

	second := results[1]
	assert.Equal(t, "Untitled", second.Title)
	assert.Equal(t, "https://www.semanticscholar.org/paper/def456", second.URL)
	require.NotNil(t, second.Consensus)
	assert.Equal(t, 0.3, *second.Consensus, "zero citations get the floor")
}

func TestSemanticScholarEmptyData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"total": 0}`))
	}))
	defer server.Close()

	client := NewSemanticScholarClient(server.URL, "")
	results, err := client.Search(context.Background(), "nonsense query", 10)
	require.NoError(t, err, "missing data field is a valid zero-result response")
	assert.Empty(t, results)
}

func TestSemanticScholarServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewSemanticScholarClient(server.URL, "")
	_, err := client.Search(context.Background(), "sleep", 10)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestSemanticScholarMalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": [`))
	}))
	defer server.Close()

	client := NewSemanticScholarClient(server.URL, "")
	_, err := client.Search(context.Background(), "sleep", 10)
	assert.Error(t, err)
}

func TestSemanticScholarEmptyQueryShortCircuits(t *testing.T) {
	client := NewSemanticScholarClient("http://127.0.0.1:0", "")
	results, err := client.Search(context.Background(), "", 10)
	assert.NoError(t, err)
	assert.Empty(t, results)
}

func TestConsensusFromCitations(t *testing.T) {
	assert.Equal(t, 0.3, ConsensusFromCitations(0))
	assert.Equal(t, 0.3, ConsensusFromCitations(-5))
	assert.Equal(t, 0.95, ConsensusFromCitations(100000), "very high counts cap at 0.95")

	low := ConsensusFromCitations(10)
	high := ConsensusFromCitations(1000)
	assert.Less(t, low, high, "consensus grows with citations")
}
