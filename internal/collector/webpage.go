package collector

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/LJTian/NewsDesk/internal/llm"
	"github.com/LJTian/NewsDesk/internal/model"
)

const (
	minLinkTextLen    = 5
	maxContextRunes   = 500
	promptContextRune = 300
)

// WebpageFetcher 抓取没有订阅源的普通网页：先用 colly 收集页面上的链接，
// 再交给大模型挑出真正的文章链接
type WebpageFetcher struct {
	Client *http.Client
	Model  llm.Model
	Logger *slog.Logger
}

var _ Fetcher = (*WebpageFetcher)(nil)

func NewWebpageFetcher(client *http.Client, m llm.Model, logger *slog.Logger) *WebpageFetcher {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WebpageFetcher{Client: client, Model: m, Logger: logger}
}

func (w *WebpageFetcher) Kind() model.Kind {
	return model.KindPage
}

type pageLink struct {
	URL     string
	Text    string
	Context string
}

type extractedItem struct {
	Index       int     `json:"index"`
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Summary     *string `json:"summary"`
	PublishedAt *string `json:"published_at"`
}

// Fetch 页面下载失败或模型调用失败才报错；模型返回内容解析不了时返回空列表
func (w *WebpageFetcher) Fetch(ctx context.Context, src model.Source) ([]model.RawArticle, error) {
	cfg, err := configAs[model.PageConfig](src)
	if err != nil {
		return nil, err
	}
	if cfg.PageURL == "" {
		return nil, fmt.Errorf("source %d: pageUrl is empty", src.ID)
	}

	links, err := w.collectLinks(ctx, cfg.PageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	if len(links) == 0 {
		return []model.RawArticle{}, nil
	}
	if w.Model == nil {
		return nil, llm.ErrNoCredential
	}

	reply, err := w.Model.Complete(ctx, buildExtractPrompt(cfg.PageURL, links))
	if err != nil {
		return nil, err
	}

	var items []extractedItem
	if err := llm.DecodeJSONArray(reply, &items); err != nil {
		w.Logger.Warn("page extraction reply unusable", "source_id", src.ID, "error", err)
		return []model.RawArticle{}, nil
	}

	out := make([]model.RawArticle, 0, len(items))
	for _, it := range items {
		title := strings.TrimSpace(it.Title)
		link := strings.TrimSpace(it.URL)
		if title == "" || link == "" {
			continue
		}
		raw := model.RawArticle{
			ExternalID:  link,
			Title:       title,
			URL:         link,
			PublishedAt: parseLooseDate(it.PublishedAt),
		}
		if it.Summary != nil {
			raw.Summary = truncateRunes(strings.TrimSpace(*it.Summary), maxSummaryRunes)
		}
		out = append(out, raw)
	}
	return out, nil
}

// collectLinks 收集页面上所有可能是文章的链接，按绝对地址去重并保持页面顺序
func (w *WebpageFetcher) collectLinks(ctx context.Context, pageURL string) ([]pageLink, error) {
	c := colly.NewCollector(
		colly.UserAgent(browserUserAgent),
		colly.MaxBodySize(maxBodyBytes),
	)
	client := *w.Client
	if client.Transport == nil {
		client.Transport = http.DefaultTransport
	}
	client.Transport = ctxTransport{ctx: ctx, base: client.Transport}
	c.SetClient(&client)

	seen := make(map[string]struct{})
	links := make([]pageLink, 0, 64)

	c.OnHTML("a[href]", func(e *colly.HTMLElement) {
		href := strings.TrimSpace(e.Attr("href"))
		if skipHref(href) {
			return
		}
		text := strings.Join(strings.Fields(e.Text), " ")
		if len([]rune(text)) < minLinkTextLen {
			return
		}
		abs := e.Request.AbsoluteURL(href)
		if !strings.HasPrefix(abs, "http://") && !strings.HasPrefix(abs, "https://") {
			return
		}
		if _, ok := seen[abs]; ok {
			return
		}
		seen[abs] = struct{}{}

		linkContext := text
		if parent := e.DOM.Closest("article, li, div, section"); parent.Length() > 0 {
			linkContext = truncateRunes(strings.Join(strings.Fields(parent.Text()), " "), maxContextRunes)
		}
		links = append(links, pageLink{URL: abs, Text: text, Context: linkContext})
	})

	if err := c.Visit(pageURL); err != nil {
		return nil, err
	}
	return links, nil
}

func skipHref(href string) bool {
	if href == "" || href == "#" {
		return true
	}
	lower := strings.ToLower(href)
	for _, p := range []string{"mailto:", "javascript:", "tel:"} {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

func buildExtractPrompt(pageURL string, links []pageLink) string {
	var list strings.Builder
	for i, l := range links {
		if i > 0 {
			list.WriteString("\n\n")
		}
		fmt.Fprintf(&list, "[%d] URL: %s\n    Link text: %s\n    Context: %s",
			i, l.URL, l.Text, truncateRunes(l.Context, promptContextRune))
	}

	return fmt.Sprintf(`Below is a list of links extracted from %s. Identify which ones are links to actual articles, blog posts, or news items (not navigation, category pages, author pages, social media, etc.).

For each article link, return a JSON object with:
- "index": the link index number
- "title": the article title (clean it up from the link text)
- "url": the URL exactly as shown
- "summary": extract a summary from the context if available, or null
- "published_at": extract the date in ISO 8601 format if visible in the context, or null

Return ONLY a JSON array. If no articles are found, return [].

Links:
%s`, pageURL, list.String())
}

var looseDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"January 2, 2006",
	"Jan 2, 2006",
}

// parseLooseDate 模型给出的日期格式不稳定，解析不了就当没有
func parseLooseDate(s *string) *time.Time {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	for _, layout := range looseDateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// ctxTransport 让 colly 的请求跟随调用方的 context 取消
type ctxTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t ctxTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.base.RoundTrip(req.WithContext(t.ctx))
}
