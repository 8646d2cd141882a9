package classifier

import (
	"fmt"
	"math"
	"strings"

	"github.com/LJTian/NewsDesk/internal/model"
)

const promptSummaryRunes = 300

// rawScore 模型返回的单条结果，relevant 和 reason 可能缺失
type rawScore struct {
	ID       uint    `json:"id"`
	Score    float64 `json:"score"`
	Relevant *bool   `json:"relevant"`
	Reason   string  `json:"reason"`
}

// normalize 分数夹到 [0,1]；relevant 缺失时按 score >= 0.5 推断
func (r rawScore) normalize() model.Relevance {
	score := math.Max(0, math.Min(1, r.Score))
	relevant := score >= 0.5
	if r.Relevant != nil {
		relevant = *r.Relevant
	}
	reason := strings.TrimSpace(r.Reason)
	if reason == "" {
		reason = defaultReason
	}
	return model.Relevance{Score: score, Reason: reason, Relevant: relevant}
}

// BuildFilterPrompt 拼接评判标准和文章列表
func BuildFilterPrompt(articles []model.Article, criteria []model.Criterion) string {
	crit := make([]string, 0, len(criteria))
	for _, c := range criteria {
		crit = append(crit, fmt.Sprintf("### %s\n%s", c.Name, c.Description))
	}

	lines := make([]string, 0, len(articles))
	for _, a := range articles {
		var b strings.Builder
		fmt.Fprintf(&b, "- ID: %d | Title: %s", a.ID, a.Title)
		if a.Summary != nil && *a.Summary != "" {
			rs := []rune(*a.Summary)
			if len(rs) > promptSummaryRunes {
				rs = rs[:promptSummaryRunes]
			}
			fmt.Fprintf(&b, " | Summary: %s", string(rs))
		}
		if a.URL != "" {
			fmt.Fprintf(&b, " | URL: %s", a.URL)
		}
		lines = append(lines, b.String())
	}

	return fmt.Sprintf(`You are a news article relevance filter. Evaluate each article against the criteria below and return a JSON array.

## Criteria
%s

## Articles
%s

## Instructions
For each article, evaluate its relevance to the criteria above. Return a JSON array with one object per article:
- "id": the article ID (number)
- "score": relevance score from 0.0 to 1.0 (0 = not relevant, 1 = highly relevant)
- "relevant": boolean, true if score >= 0.5
- "reason": brief explanation (1-2 sentences) of why the article is or isn't relevant

Return ONLY the JSON array, no other text. Example:
[{"id": 1, "score": 0.8, "relevant": true, "reason": "Article covers React 19 release with new features."}]`,
		strings.Join(crit, "\n\n"), strings.Join(lines, "\n"))
}
