package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/LJTian/NewsDesk/internal/model"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:dc="http://purl.org/dc/elements/1.1/">
<channel>
  <title>Example</title>
  <link>https://example.com/</link>
  <item>
    <title><![CDATA[First &amp; <b>best</b>]]></title>
    <link>/posts/1</link>
    <guid>post-1</guid>
    <description><![CDATA[<p>Hello <b>world</b></p>]]></description>
    <dc:creator>Alice</dc:creator>
    <pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate>
  </item>
  <item>
    <link>https://example.com/posts/2</link>
  </item>
</channel>
</rss>`

const sampleAtom = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Atom Example</title>
  <entry>
    <title>Atom entry</title>
    <link href="https://example.org/a"/>
    <id>urn:uuid:1</id>
    <updated>2024-05-01T10:00:00Z</updated>
    <author><name>Bob</name></author>
    <summary>Short summary</summary>
  </entry>
</feed>`

func feedSource(url string) model.Source {
	return model.Source{ID: 1, Kind: model.KindFeed, Config: datatypes.JSON(`{"feedUrl":"` + url + `"}`)}
}

func serve(t *testing.T, contentType, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRSSFetcherParsesRSS2(t *testing.T) {
	srv := serve(t, "application/rss+xml", sampleRSS)

	got, err := NewRSSFetcher(nil, nil).Fetch(context.Background(), feedSource(srv.URL+"/feed.xml"))
	require.NoError(t, err)
	require.Len(t, got, 2)

	first := got[0]
	assert.Equal(t, "post-1", first.ExternalID)
	assert.Equal(t, "First & best", first.Title)
	assert.Equal(t, srv.URL+"/posts/1", first.URL)
	assert.Equal(t, "Hello world", first.Summary)
	assert.Equal(t, "Alice", first.Author)
	require.NotNil(t, first.PublishedAt)
	assert.True(t, first.PublishedAt.Equal(time.Date(2006, 1, 2, 15, 4, 5, 0, time.UTC)))

	second := got[1]
	assert.Equal(t, "Untitled", second.Title)
	assert.Equal(t, "https://example.com/posts/2", second.ExternalID)
	assert.Nil(t, second.PublishedAt)
}

func TestRSSFetcherParsesAtom(t *testing.T) {
	srv := serve(t, "application/atom+xml", sampleAtom)

	got, err := NewRSSFetcher(nil, nil).Fetch(context.Background(), feedSource(srv.URL))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "urn:uuid:1", got[0].ExternalID)
	assert.Equal(t, "https://example.org/a", got[0].URL)
	assert.Equal(t, "Bob", got[0].Author)
	assert.Equal(t, "Short summary", got[0].Summary)
	require.NotNil(t, got[0].PublishedAt)
}

func TestRSSFetcherUnknownDocumentIsEmpty(t *testing.T) {
	srv := serve(t, "text/html", "<html><body>not a feed</body></html>")

	got, err := NewRSSFetcher(nil, nil).Fetch(context.Background(), feedSource(srv.URL))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRSSFetcherHTTPErrorFails(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := NewRSSFetcher(nil, nil).Fetch(context.Background(), feedSource(srv.URL))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch RSS feed")
}

func TestRSSFetcherRejectsWrongConfig(t *testing.T) {
	src := model.Source{ID: 9, Kind: model.KindBoard, Config: datatypes.JSON(`{"feedType":"top"}`)}
	_, err := NewRSSFetcher(nil, nil).Fetch(context.Background(), src)
	assert.Error(t, err)
}

func TestCleanTextAndTruncate(t *testing.T) {
	assert.Equal(t, "a b c", cleanText("<![CDATA[<div>a\n\n b</div>   c]]>"))
	assert.Equal(t, "Tom & Jerry", cleanText("Tom &amp; Jerry"))
	assert.Equal(t, "你好", truncateRunes("你好世界", 2))
	assert.Equal(t, "abc", truncateRunes("abc", 10))
}

func TestRSSFetcherCapsLongAuthorList(t *testing.T) {
	names := make([]string, 0, 40)
	for i := 0; i < 40; i++ {
		names = append(names, fmt.Sprintf("Researcher Number%02d", i))
	}
	feed := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:dc="http://purl.org/dc/elements/1.1/">
<channel>
  <title>arXiv cs.CL</title>
  <item>
    <title>A very collaborative paper</title>
    <link>https://arxiv.org/abs/2601.00001</link>
    <dc:creator>` + strings.Join(names, ", ") + `</dc:creator>
  </item>
</channel>
</rss>`
	srv := serve(t, "application/rss+xml", feed)

	got, err := NewRSSFetcher(srv.Client(), nil).Fetch(context.Background(), feedSource(srv.URL))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Len(t, []rune(got[0].Author), maxAuthorRunes)
	assert.True(t, strings.HasPrefix(got[0].Author, "Researcher Number00, Researcher Number01"))
}
