package literature

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/nomoreanxious/calibra/internal/domain"
)

const (
	DefaultSemanticScholarBase = "https://api.semanticscholar.org/graph/v1"

	semanticScholarFields = "paperId,title,abstract,year,citationCount,url"
)

// SemanticScholarClient talks to the Semantic Scholar Graph API
// (single-step search protocol).
type SemanticScholarClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewSemanticScholarClient(baseURL, apiKey string) *SemanticScholarClient {
	if baseURL == "" {
		baseURL = DefaultSemanticScholarBase
	}
	return &SemanticScholarClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{},
	}
}

func (c *SemanticScholarClient) Name() string { return "semantic_scholar" }

type semanticScholarResponse struct {
	Data []struct {
		PaperID       string `json:"paperId"`
		Title         string `json:"title"`
		Abstract      string `json:"abstract"`
		Year          *int   `json:"year"`
		CitationCount int    `json:"citationCount"`
		URL           string `json:"url"`
	} `json:"data"`
}

func (c *SemanticScholarClient) Search(ctx context.Context, query string, limit int) ([]domain.LiteratureResult, error) {
	if query == "" {
		return nil, nil
	}

	reqURL := fmt.Sprintf("%s/paper/search?query=%s&limit=%d&fields=%s",
		c.baseURL, url.QueryEscape(query), limit, semanticScholarFields)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("semantic scholar returned status %d: %s", resp.StatusCode, string(body))
	}

	var result semanticScholarResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("unmarshal search response: %w", err)
	}

	// Missing or empty data is a valid zero-result response.
	out := make([]domain.LiteratureResult, 0, len(result.Data))
	for i, p := range result.Data {
		if p.PaperID == "" {
			continue
		}
		title := p.Title
		if title == "" {
			title = "Untitled"
		}
		resultURL := p.URL
		if resultURL == "" {
			resultURL = "https://www.semanticscholar.org/paper/" + p.PaperID
		}
		consensus := ConsensusFromCitations(p.CitationCount)
		out = append(out, domain.LiteratureResult{
			ID:              p.PaperID,
			Title:           title,
			Abstract:        p.Abstract,
			Year:            p.Year,
			CitationCount:   p.CitationCount,
			SimilarityScore: rankSimilarity(i, limit),
			Consensus:       &consensus,
			URL:             resultURL,
			Source:          c.Name(),
		})
	}
	return out, nil
}
