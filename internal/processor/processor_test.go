package processor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LJTian/NewsDesk/internal/model"
	"github.com/LJTian/NewsDesk/internal/storage/memstore"
)

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newEngine(t *testing.T) (*Engine, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	store.SetClock(func() time.Time { return fixedNow })
	return NewEngine(store, nil, WithClock(func() time.Time { return fixedNow })), store
}

func daysAgo(n int) *time.Time {
	t := fixedNow.Add(-time.Duration(n) * 24 * time.Hour)
	return &t
}

func raw(url string, published *time.Time) model.RawArticle {
	return model.RawArticle{ExternalID: url, Title: "t " + url, URL: url, PublishedAt: published}
}

func TestInsertArticlesEmptyInput(t *testing.T) {
	e, store := newEngine(t)
	n, err := e.InsertArticles(context.Background(), 1, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, store.Articles())
}

func TestInsertArticlesDropsOldKeepsUndated(t *testing.T) {
	e, store := newEngine(t)

	n, err := e.InsertArticles(context.Background(), 1, []model.RawArticle{
		raw("https://a.example/old", daysAgo(21)),
		raw("https://a.example/new", daysAgo(1)),
		raw("https://a.example/undated", nil),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	urls := make([]string, 0)
	for _, a := range store.Articles() {
		urls = append(urls, a.URL)
	}
	assert.Equal(t, []string{"https://a.example/new", "https://a.example/undated"}, urls)
}

func TestInsertArticlesThreeWeeksVersusYesterday(t *testing.T) {
	e, store := newEngine(t)

	n, err := e.InsertArticles(context.Background(), 7, []model.RawArticle{
		raw("https://feed.example/3w", daysAgo(21)),
		raw("https://feed.example/1d", daysAgo(1)),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	for _, a := range store.Articles() {
		assert.NotEqual(t, "https://feed.example/3w", a.URL)
	}
}

func TestInsertArticlesDedupIsGlobal(t *testing.T) {
	e, store := newEngine(t)
	ctx := context.Background()

	n, err := e.InsertArticles(ctx, 1, []model.RawArticle{
		raw("https://x.example/1", nil),
		raw("https://x.example/1", nil),
		raw("", nil),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// 换一个数据源再来一次
	n, err = e.InsertArticles(ctx, 2, []model.RawArticle{raw("https://x.example/1", nil)})
	require.NoError(t, err)
	assert.Zero(t, n)

	articles := store.Articles()
	require.Len(t, articles, 1)
	assert.Equal(t, uint(1), articles[0].SourceID)
}

func TestInsertArticlesIdempotent(t *testing.T) {
	e, store := newEngine(t)
	ctx := context.Background()
	batch := []model.RawArticle{
		raw("https://y.example/1", daysAgo(2)),
		raw("https://y.example/2", nil),
	}

	n, err := e.InsertArticles(ctx, 1, batch)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for i := 0; i < 3; i++ {
		n, err = e.InsertArticles(ctx, 1, batch)
		require.NoError(t, err)
		assert.Zero(t, n)
	}
	assert.Len(t, store.Articles(), 2)
}

func TestInsertArticlesKeepsOptionalFieldsEmpty(t *testing.T) {
	e, store := newEngine(t)
	_, err := e.InsertArticles(context.Background(), 1, []model.RawArticle{
		{ExternalID: "1", Title: "t", URL: "https://z.example/1", Summary: "s"},
	})
	require.NoError(t, err)

	a := store.Articles()[0]
	require.NotNil(t, a.Summary)
	assert.Equal(t, "s", *a.Summary)
	assert.Nil(t, a.Author)
	assert.Nil(t, a.RelevanceScore)
	assert.Nil(t, a.FilteredAt)
	assert.False(t, a.IsSaved)
}

func TestDeleteOldArticlesSkipsPinned(t *testing.T) {
	e, store := newEngine(t)
	ctx := context.Background()
	_, err := e.InsertArticles(ctx, 1, []model.RawArticle{
		raw("https://p.example/1", daysAgo(1)),
		raw("https://p.example/2", daysAgo(1)),
		raw("https://p.example/3", daysAgo(1)),
		raw("https://p.example/4", nil),
	})
	require.NoError(t, err)

	// 时间推进三周
	later := fixedNow.Add(21 * 24 * time.Hour)
	e.now = func() time.Time { return later }
	episode := uint(9)
	store.UpdateArticle(2, func(a *model.Article) { a.IsSaved = true })
	store.UpdateArticle(3, func(a *model.Article) { a.EpisodeID = &episode })

	deleted, err := e.DeleteOldArticles(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
	assert.Len(t, store.Articles(), 3)
}

type failingStore struct{ *memstore.Store }

func (failingStore) ExistingURLs(context.Context, []string) (map[string]struct{}, error) {
	return nil, errors.New("db down")
}

func TestInsertArticlesStoreError(t *testing.T) {
	e := NewEngine(failingStore{Store: memstore.New()}, nil)
	_, err := e.InsertArticles(context.Background(), 1, []model.RawArticle{raw("https://e.example", nil)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}
