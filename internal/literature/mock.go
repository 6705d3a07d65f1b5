package literature

import (
	"context"
	"time"

	"github.com/nomoreanxious/calibra/internal/domain"
)

// MockProvider is a configurable literature provider for testing and local
// development. Set the fields to control behavior per call.
type MockProvider struct {
	ProviderName string
	Results      []domain.LiteratureResult
	Err          error
	Delay        time.Duration

	// Call tracking for assertions
	SearchCalls []string
}

func NewMockProvider(name string) *MockProvider {
	return &MockProvider{ProviderName: name}
}

func (p *MockProvider) Name() string {
	if p.ProviderName == "" {
		return "mock"
	}
	return p.ProviderName
}

func (p *MockProvider) Search(ctx context.Context, query string, limit int) ([]domain.LiteratureResult, error) {
	p.SearchCalls = append(p.SearchCalls, query)

	if p.Delay > 0 {
		select {
		case <-time.After(p.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if p.Err != nil {
		return nil, p.Err
	}

	results := p.Results
	if limit >= 0 && len(results) > limit {
		results = results[:limit]
	}
	out := make([]domain.LiteratureResult, len(results))
	copy(out, results)
	return out, nil
}
