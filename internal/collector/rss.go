package collector

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/LJTian/NewsDesk/internal/model"
)

// RSSFetcher 解析 RSS 2.0 / Atom / RDF(RSS 1.0) 订阅源
type RSSFetcher struct {
	Client *http.Client
	Logger *slog.Logger
}

var _ Fetcher = (*RSSFetcher)(nil)

// NewRSSFetcher client 为空时使用默认超时的客户端
func NewRSSFetcher(client *http.Client, logger *slog.Logger) *RSSFetcher {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RSSFetcher{Client: client, Logger: logger}
}

func (f *RSSFetcher) Kind() model.Kind {
	return model.KindFeed
}

// Fetch 只有下载失败才报错；格式无法识别或解析失败返回空列表
func (f *RSSFetcher) Fetch(ctx context.Context, src model.Source) ([]model.RawArticle, error) {
	cfg, err := configAs[model.FeedConfig](src)
	if err != nil {
		return nil, err
	}
	if cfg.FeedURL == "" {
		return nil, fmt.Errorf("source %d: feedUrl is empty", src.ID)
	}

	body, err := getBody(ctx, f.Client, cfg.FeedURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch RSS feed: %w", err)
	}

	return f.parse(body, cfg.FeedURL), nil
}

func (f *RSSFetcher) parse(body []byte, feedURL string) []model.RawArticle {
	if gofeed.DetectFeedType(bytes.NewReader(body)) == gofeed.FeedTypeUnknown {
		f.Logger.Warn("unrecognized feed document", "url", feedURL)
		return []model.RawArticle{}
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		f.Logger.Warn("parse feed failed", "url", feedURL, "error", err)
		return []model.RawArticle{}
	}

	out := make([]model.RawArticle, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		out = append(out, feedItemToRaw(item, feedURL))
	}
	return out
}

func feedItemToRaw(item *gofeed.Item, feedURL string) model.RawArticle {
	link := strings.TrimSpace(item.Link)
	if link == "" {
		link = strings.TrimSpace(item.GUID)
	}
	resolved := resolveURL(link, feedURL)

	rawTitle := cleanText(item.Title)
	title := rawTitle
	if title == "" {
		title = "Untitled"
	}

	externalID := strings.TrimSpace(item.GUID)
	if externalID == "" {
		externalID = resolved
	}
	if externalID == "" {
		externalID = rawTitle
	}

	summary := item.Description
	if strings.TrimSpace(summary) == "" {
		summary = item.Content
	}

	return model.RawArticle{
		ExternalID:  externalID,
		Title:       title,
		URL:         resolved,
		Summary:     truncateRunes(cleanText(summary), maxSummaryRunes),
		Author:      truncateRunes(itemAuthor(item), maxAuthorRunes),
		PublishedAt: itemPublished(item),
	}
}

func itemAuthor(item *gofeed.Item) string {
	for _, p := range item.Authors {
		if p != nil && strings.TrimSpace(p.Name) != "" {
			return strings.TrimSpace(p.Name)
		}
	}
	if item.Author != nil {
		return strings.TrimSpace(item.Author.Name)
	}
	if item.DublinCoreExt != nil && len(item.DublinCoreExt.Creator) > 0 {
		return strings.TrimSpace(item.DublinCoreExt.Creator[0])
	}
	return ""
}

// itemPublished 优先发布时间，其次更新时间；都解析不了就留空
func itemPublished(item *gofeed.Item) *time.Time {
	switch {
	case item.PublishedParsed != nil:
		t := item.PublishedParsed.UTC()
		return &t
	case item.UpdatedParsed != nil:
		t := item.UpdatedParsed.UTC()
		return &t
	}
	return nil
}
