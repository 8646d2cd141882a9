package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/LJTian/NewsDesk/internal/model"
)

const (
	hnBaseURL           = "https://hacker-news.firebaseio.com/v0"
	hnItemPageURL       = "https://news.ycombinator.com/item?id=%d"
	hnDefaultMaxItems   = 30
	hnBatchSize         = 10
	hnMaxResponseBytes  = 1 << 20 // 1MB
	hnClientTimeout     = 10 * time.Second
	hnItemClientTimeout = 5 * time.Second
)

// HackerNewsFetcher 通过官方 Firebase API 抓取 top / new / best 榜单
type HackerNewsFetcher struct {
	BaseURL    string
	Client     *http.Client
	ItemClient *http.Client
	Logger     *slog.Logger
}

var _ Fetcher = (*HackerNewsFetcher)(nil)

// NewHackerNewsFetcher baseURL 为空时使用官方地址
func NewHackerNewsFetcher(baseURL string, logger *slog.Logger) *HackerNewsFetcher {
	if baseURL == "" {
		baseURL = hnBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HackerNewsFetcher{
		BaseURL:    baseURL,
		Client:     &http.Client{Timeout: hnClientTimeout},
		ItemClient: &http.Client{Timeout: hnItemClientTimeout},
		Logger:     logger,
	}
}

func (h *HackerNewsFetcher) Kind() model.Kind {
	return model.KindBoard
}

type hnItem struct {
	ID      int    `json:"id"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	Text    string `json:"text"`
	By      string `json:"by"`
	Time    int64  `json:"time"`
	Type    string `json:"type"`
	Dead    bool   `json:"dead"`
	Deleted bool   `json:"deleted"`
}

func listEndpoint(feedType string) string {
	switch feedType {
	case "new":
		return "newstories"
	case "best":
		return "beststories"
	default:
		return "topstories"
	}
}

// Fetch 列表请求失败即整体失败；单条 item 失败直接跳过。
// item 最多 10 个并发请求，结果保持榜单顺序。
func (h *HackerNewsFetcher) Fetch(ctx context.Context, src model.Source) ([]model.RawArticle, error) {
	cfg, err := configAs[model.BoardConfig](src)
	if err != nil {
		return nil, err
	}
	maxItems := cfg.MaxItems
	if maxItems <= 0 {
		maxItems = hnDefaultMaxItems
	}

	ids, err := h.fetchIDs(ctx, listEndpoint(cfg.FeedType))
	if err != nil {
		return nil, err
	}
	if len(ids) > maxItems {
		ids = ids[:maxItems]
	}

	// 同时最多 hnBatchSize 个请求；单条失败只跳过，所以 goroutine 一律返回 nil
	items := make([]*hnItem, len(ids))
	var g errgroup.Group
	g.SetLimit(hnBatchSize)
	for i, id := range ids {
		g.Go(func() error {
			it, err := h.fetchItem(ctx, id)
			if err != nil {
				h.Logger.Debug("hackernews: skip item", "id", id, "error", err)
				return nil
			}
			items[i] = it
			return nil
		})
	}
	g.Wait()

	articles := make([]model.RawArticle, 0, len(ids))
	for _, it := range items {
		if it == nil || it.Dead || it.Deleted || it.Type != "story" {
			continue
		}
		articles = append(articles, hnToRaw(it))
	}

	return articles, nil
}

func hnToRaw(it *hnItem) model.RawArticle {
	itemURL := it.URL
	if itemURL == "" {
		itemURL = fmt.Sprintf(hnItemPageURL, it.ID)
	}
	title := it.Title
	if title == "" {
		title = "Untitled"
	}

	raw := model.RawArticle{
		ExternalID: strconv.Itoa(it.ID),
		Title:      title,
		URL:        itemURL,
		Summary:    truncateRunes(it.Text, maxSummaryRunes),
		Author:     truncateRunes(it.By, maxAuthorRunes),
	}
	if it.Time > 0 {
		t := time.Unix(it.Time, 0).UTC()
		raw.PublishedAt = &t
	}
	return raw
}

func (h *HackerNewsFetcher) fetchIDs(ctx context.Context, endpoint string) ([]int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.BaseURL+"/"+endpoint+".json", nil)
	if err != nil {
		return nil, fmt.Errorf("hackernews: build request: %w", err)
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("hackernews: fetch %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HN API error: %d", resp.StatusCode)
	}

	var ids []int
	if err := json.NewDecoder(io.LimitReader(resp.Body, hnMaxResponseBytes)).Decode(&ids); err != nil {
		return nil, fmt.Errorf("hackernews: unmarshal %s: %w", endpoint, err)
	}
	return ids, nil
}

func (h *HackerNewsFetcher) fetchItem(ctx context.Context, id int) (*hnItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/item/%d.json", h.BaseURL, id), nil)
	if err != nil {
		return nil, err
	}

	resp, err := h.ItemClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	// 已删除的 item 会返回 null
	var it *hnItem
	if err := json.NewDecoder(io.LimitReader(resp.Body, hnMaxResponseBytes)).Decode(&it); err != nil {
		return nil, err
	}
	return it, nil
}
