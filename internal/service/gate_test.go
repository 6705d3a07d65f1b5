package service

import (
	"strings"
	"testing"
)

func TestClassifyHealthQueryPasses(t *testing.T) {
	gate := NewRelevanceGate()

	queries := []string{
		"我最近睡眠不好怎么办",
		"为什么我一紧张就心跳很快",
		"How can I reduce my anxiety before sleep?",
		"心悸是不是心脏出问题了",
	}

	for _, q := range queries {
		cls := gate.Classify(q)
		if !cls.IsHealthRelated {
			t.Errorf("expected %q to be health-related, got blocked as %q", q, cls.BlockedReason)
		}
	}
}

func TestClassifyBlockedCategories(t *testing.T) {
	gate := NewRelevanceGate()

	tests := []struct {
		query  string
		reason string
	}{
		{"股票今天怎么样", "sales"},
		{"帮我分析一下这次选举", "politics"},
		{"那个明星又有绯闻了", "gossip"},
		{"彩票中奖概率是多少", "gambling"},
		{"Should I put money in the stock market?", "sales"},
	}

	for _, tt := range tests {
		cls := gate.Classify(tt.query)
		if cls.IsHealthRelated {
			t.Errorf("expected %q to be blocked", tt.query)
			continue
		}
		if cls.BlockedReason != tt.reason {
			t.Errorf("query %q: expected reason %q, got %q", tt.query, tt.reason, cls.BlockedReason)
		}
		if cls.SuggestedResponse == "" {
			t.Errorf("query %q: expected a suggested response", tt.query)
		}
		if !strings.Contains(cls.SuggestedResponse, "健康") {
			t.Errorf("query %q: decline should redirect to health topics, got %q", tt.query, cls.SuggestedResponse)
		}
		if len(cls.MatchedKeywords) == 0 {
			t.Errorf("query %q: expected matched keywords", tt.query)
		}
	}
}

func TestClassifyEmptyQueryPasses(t *testing.T) {
	gate := NewRelevanceGate()

	for _, q := range []string{"", "   ", "\t\n"} {
		cls := gate.Classify(q)
		if !cls.IsHealthRelated {
			t.Errorf("expected empty query %q to pass through", q)
		}
		if cls.BlockedReason != "" {
			t.Errorf("empty query should carry no blocked reason, got %q", cls.BlockedReason)
		}
	}
}

func TestClassifyCaseInsensitive(t *testing.T) {
	gate := NewRelevanceGate()

	cls := gate.Classify("CELEBRITY news today")
	if cls.IsHealthRelated {
		t.Fatal("expected uppercase keyword to still match")
	}
	if cls.BlockedReason != "gossip" {
		t.Errorf("expected reason gossip, got %q", cls.BlockedReason)
	}
}

func TestClassifyFirstCategoryWins(t *testing.T) {
	gate := NewRelevanceGate()

	// Both a politics and a sales keyword; politics is listed first.
	cls := gate.Classify("政府要调整股票政策吗")
	if cls.IsHealthRelated {
		t.Fatal("expected query to be blocked")
	}
	if cls.BlockedReason != "politics" {
		t.Errorf("expected first matching category to win, got %q", cls.BlockedReason)
	}
	if len(cls.MatchedKeywords) < 2 {
		t.Errorf("expected keywords from both categories to be collected, got %v", cls.MatchedKeywords)
	}
}

func TestContainsForbiddenTopic(t *testing.T) {
	gate := NewRelevanceGate()

	forbidden := []string{
		"你觉得我这是确诊了吗",
		"What dosage should I take?",
		"能帮我开药吗",
	}
	for _, text := range forbidden {
		if !gate.ContainsForbiddenTopic(text) {
			t.Errorf("expected %q to be forbidden", text)
		}
	}

	allowed := []string{
		"昨晚睡了多久?",
		"今天压力大吗?",
		"Did you get any exercise today?",
	}
	for _, text := range allowed {
		if gate.ContainsForbiddenTopic(text) {
			t.Errorf("expected %q to be allowed", text)
		}
	}
}
