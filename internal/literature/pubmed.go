package literature

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/nomoreanxious/calibra/internal/domain"
)

const DefaultPubMedBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

// PubMedClient talks to the NCBI E-utilities API. The protocol is two-step:
// esearch returns an ID list, esummary resolves the IDs to paper metadata.
// Both steps share the caller's context deadline.
type PubMedClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewPubMedClient(baseURL string) *PubMedClient {
	if baseURL == "" {
		baseURL = DefaultPubMedBase
	}
	return &PubMedClient{
		baseURL:    baseURL,
		httpClient: &http.Client{},
	}
}

func (c *PubMedClient) Name() string { return "pubmed" }

type pubmedSearchResponse struct {
	ESearchResult struct {
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

type pubmedSummaryResponse struct {
	Result map[string]json.RawMessage `json:"result"`
}

type pubmedSummaryEntry struct {
	Title       string `json:"title"`
	PubDate     string `json:"pubdate"`
	ELocationID string `json:"elocationid"`
}

func (c *PubMedClient) Search(ctx context.Context, query string, limit int) ([]domain.LiteratureResult, error) {
	if query == "" {
		return nil, nil
	}

	// OR-join the terms to improve recall on narrow medical phrasing.
	terms := make([]string, 0, 5)
	for _, w := range strings.Fields(query) {
		if len(w) > 2 {
			terms = append(terms, w)
		}
		if len(terms) == 5 {
			break
		}
	}
	term := query
	if len(terms) > 0 {
		term = strings.Join(terms, " OR ")
	}

	ids, err := c.esearch(ctx, term, limit)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	entries, err := c.esummary(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]domain.LiteratureResult, 0, len(ids))
	rank := 0
	for _, id := range ids {
		entry, ok := entries[id]
		if !ok || entry.Title == "" {
			continue
		}
		var year *int
		if fields := strings.Fields(entry.PubDate); len(fields) > 0 {
			if y, err := strconv.Atoi(fields[0]); err == nil {
				year = &y
			}
		}
		// esummary carries no citation counts, so PubMed results have no
		// consensus signal: the hybrid score treats nil as zero.
		out = append(out, domain.LiteratureResult{
			ID:              "pubmed_" + id,
			Title:           entry.Title,
			Year:            year,
			SimilarityScore: rankSimilarity(rank, limit),
			URL:             "https://pubmed.ncbi.nlm.nih.gov/" + id + "/",
			Source:          c.Name(),
		})
		rank++
	}
	return out, nil
}

func (c *PubMedClient) esearch(ctx context.Context, term string, limit int) ([]string, error) {
	reqURL := fmt.Sprintf("%s/esearch.fcgi?db=pubmed&term=%s&retmax=%d&retmode=json&sort=relevance",
		c.baseURL, url.QueryEscape(term), limit)

	body, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, fmt.Errorf("esearch: %w", err)
	}

	var result pubmedSearchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("unmarshal esearch response: %w", err)
	}
	return result.ESearchResult.IDList, nil
}

func (c *PubMedClient) esummary(ctx context.Context, ids []string) (map[string]pubmedSummaryEntry, error) {
	reqURL := fmt.Sprintf("%s/esummary.fcgi?db=pubmed&id=%s&retmode=json",
		c.baseURL, strings.Join(ids, ","))

	body, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, fmt.Errorf("esummary: %w", err)
	}

	var result pubmedSummaryResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("unmarshal esummary response: %w", err)
	}

	entries := make(map[string]pubmedSummaryEntry, len(ids))
	for id, raw := range result.Result {
		if id == "uids" {
			continue
		}
		var entry pubmedSummaryEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			continue
		}
		entries[id] = entry
	}
	return entries, nil
}

func (c *PubMedClient) get(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pubmed returned status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
