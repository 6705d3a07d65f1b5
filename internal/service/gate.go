package service

import (
	"strings"

	"github.com/nomoreanxious/calibra/internal/domain"
)

// RelevanceGate classifies an incoming user query as in-domain (health) or
// out-of-domain before any evidence work begins. It is a pure function over
// the query string and a static keyword table: no I/O, no failure mode.
type RelevanceGate struct {
	categories []domain.BlockedCategory
	declines   map[string]string
	forbidden  []string
}

// defaultBlockedCategories is the versioned keyword table. Order matters: the
// first category with a match determines the blocked reason.
func defaultBlockedCategories() []domain.BlockedCategory {
	return []domain.BlockedCategory{
		{
			Name: "politics",
			Keywords: []string{
				"政治", "选举", "政府", "总统", "议会",
				"politics", "election", "president", "government policy",
			},
		},
		{
			Name: "gossip",
			Keywords: []string{
				"八卦", "明星", "绯闻", "娱乐圈",
				"celebrity", "gossip", "paparazzi",
			},
		},
		{
			Name: "sales",
			Keywords: []string{
				"股票", "炒股", "基金", "理财产品", "促销", "打折", "优惠券",
				"stock market", "crypto", "investment advice", "buy now", "discount code",
			},
		},
		{
			Name: "gambling",
			Keywords: []string{
				"赌博", "彩票", "博彩",
				"gambling", "lottery", "casino",
			},
		},
	}
}

// defaultDeclines returns the per-category decline message. Every message
// steers the user back to health topics.
func defaultDeclines() map[string]string {
	return map[string]string{
		"politics": "这个话题超出了我的范围。我专注于你的健康与焦虑管理，有什么身体或情绪上的困扰想聊聊吗？(I focus on your health; is there anything about how you're feeling we can look at?)",
		"gossip":   "八卦不是我的强项。我更关心你的健康状况，最近睡眠、压力怎么样？(Let's talk about your health instead, how have you been sleeping?)",
		"sales":    "我不提供投资或消费建议。我能帮你的是健康与情绪方面的问题，有什么想了解的吗？(I can't help with that, but I'm here for your health questions.)",
		"gambling": "这类话题我帮不上忙。关于健康和焦虑，我随时都在。(I can't help there, but I'm always here for your health.)",
		"default":  "这个话题和健康无关，我帮不上忙。关于身体或情绪健康的问题，我很乐意解答。(That's outside my scope, but I am happy to help with health questions.)",
	}
}

// forbiddenInquiryTopics are terms a synthesized follow-up question must never
// contain: diagnosis, dosage, and prescription territory.
var forbiddenInquiryTopics = []string{
	"诊断", "确诊", "diagnose", "diagnosis",
	"用药剂量", "药物剂量", "吃多少药", "dosage", "medication dose",
	"处方", "开药", "prescription", "prescribe",
	"应该吃什么药", "推荐什么药", "what medication", "which drug",
}

func NewRelevanceGate() *RelevanceGate {
	return &RelevanceGate{
		categories: defaultBlockedCategories(),
		declines:   defaultDeclines(),
		forbidden:  forbiddenInquiryTopics,
	}
}

// NewRelevanceGateWithCategories builds a gate over a custom keyword table.
func NewRelevanceGateWithCategories(categories []domain.BlockedCategory) *RelevanceGate {
	return &RelevanceGate{
		categories: categories,
		declines:   defaultDeclines(),
		forbidden:  forbiddenInquiryTopics,
	}
}

// Classify rejects a query containing any blocked keyword as a substring,
// case-insensitively. Empty or whitespace-only queries pass through as
// health-related; downstream logic decides what to do with them.
func (g *RelevanceGate) Classify(query string) domain.Classification {
	if strings.TrimSpace(query) == "" {
		return domain.Classification{IsHealthRelated: true}
	}

	lq := strings.ToLower(query)

	var reason string
	var matched []string
	for _, cat := range g.categories {
		for _, kw := range cat.Keywords {
			if strings.Contains(lq, strings.ToLower(kw)) {
				if reason == "" {
					reason = cat.Name
				}
				matched = append(matched, kw)
			}
		}
	}

	if reason == "" {
		return domain.Classification{IsHealthRelated: true}
	}

	decline, ok := g.declines[reason]
	if !ok || decline == "" {
		decline = g.declines["default"]
	}

	return domain.Classification{
		IsHealthRelated:   false,
		BlockedReason:     reason,
		MatchedKeywords:   matched,
		SuggestedResponse: decline,
	}
}

// ContainsForbiddenTopic reports whether generated inquiry text strays into
// diagnosis/dosage/prescription territory.
func (g *RelevanceGate) ContainsForbiddenTopic(text string) bool {
	lt := strings.ToLower(text)
	for _, topic := range g.forbidden {
		if strings.Contains(lt, strings.ToLower(topic)) {
			return true
		}
	}
	return false
}
