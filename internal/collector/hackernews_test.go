package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/LJTian/NewsDesk/internal/model"
)

func boardSource(cfg string) model.Source {
	return model.Source{ID: 2, Kind: model.KindBoard, Config: datatypes.JSON(cfg)}
}

// fakeHN 模拟 Firebase API；items 中缺失的 id 返回 500
type fakeHN struct {
	lists     map[string]string
	items     map[int]string
	listFails bool
	itemCalls int32
}

func (f *fakeHN) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	path := strings.TrimPrefix(r.URL.Path, "/")
	if strings.HasPrefix(path, "item/") {
		atomic.AddInt32(&f.itemCalls, 1)
		var id int
		_, _ = fmt.Sscanf(path, "item/%d.json", &id)
		body, ok := f.items[id]
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(body))
		return
	}
	if f.listFails {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	body, ok := f.lists[strings.TrimSuffix(path, ".json")]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	_, _ = w.Write([]byte(body))
}

func story(id int) string {
	return fmt.Sprintf(`{"id":%d,"type":"story","title":"Story %d","url":"https://example.com/%d","by":"pg","time":1700000000}`, id, id, id)
}

func TestHackerNewsTopTruncatesInOrder(t *testing.T) {
	hn := &fakeHN{
		lists: map[string]string{"topstories": "[5,4,3,2,1]"},
		items: map[int]string{1: story(1), 2: story(2), 3: story(3), 4: story(4), 5: story(5)},
	}
	srv := httptest.NewServer(hn)
	defer srv.Close()

	got, err := NewHackerNewsFetcher(srv.URL, nil).Fetch(context.Background(), boardSource(`{"feedType":"top","maxItems":3}`))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"5", "4", "3"}, []string{got[0].ExternalID, got[1].ExternalID, got[2].ExternalID})
	assert.Equal(t, "https://example.com/5", got[0].URL)
	assert.Equal(t, "pg", got[0].Author)
	require.NotNil(t, got[0].PublishedAt)
	assert.Equal(t, int64(1700000000), got[0].PublishedAt.Unix())
	assert.Equal(t, int32(3), atomic.LoadInt32(&hn.itemCalls))
}

func TestHackerNewsFiltersAndSkips(t *testing.T) {
	hn := &fakeHN{
		lists: map[string]string{"newstories": "[1,2,3,4,5,6]"},
		items: map[int]string{
			1: story(1),
			2: `{"id":2,"type":"story","title":"gone","dead":true}`,
			3: `{"id":3,"type":"story","deleted":true}`,
			4: `{"id":4,"type":"comment","text":"hi"}`,
			// 5 返回 500
			6: `{"id":6,"type":"story","title":"Ask HN: anything","text":"body text"}`,
		},
	}
	srv := httptest.NewServer(hn)
	defer srv.Close()

	got, err := NewHackerNewsFetcher(srv.URL, nil).Fetch(context.Background(), boardSource(`{"feedType":"new"}`))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ExternalID)
	assert.Equal(t, "6", got[1].ExternalID)
	assert.Equal(t, "https://news.ycombinator.com/item?id=6", got[1].URL)
	assert.Equal(t, "body text", got[1].Summary)
	assert.Nil(t, got[1].PublishedAt)
}

func TestHackerNewsNullItemSkipped(t *testing.T) {
	hn := &fakeHN{
		lists: map[string]string{"beststories": "[7,8]"},
		items: map[int]string{7: "null", 8: story(8)},
	}
	srv := httptest.NewServer(hn)
	defer srv.Close()

	got, err := NewHackerNewsFetcher(srv.URL, nil).Fetch(context.Background(), boardSource(`{"feedType":"best"}`))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "8", got[0].ExternalID)
}

func TestHackerNewsListFailureIsFatal(t *testing.T) {
	srv := httptest.NewServer(&fakeHN{listFails: true})
	defer srv.Close()

	_, err := NewHackerNewsFetcher(srv.URL, nil).Fetch(context.Background(), boardSource(`{"feedType":"top"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HN API error: 503")
}

func TestHackerNewsDefaultMaxItems(t *testing.T) {
	ids := make([]string, 0, 45)
	items := make(map[int]string, 45)
	for i := 1; i <= 45; i++ {
		ids = append(ids, fmt.Sprint(i))
		items[i] = story(i)
	}
	hn := &fakeHN{lists: map[string]string{"topstories": "[" + strings.Join(ids, ",") + "]"}, items: items}
	srv := httptest.NewServer(hn)
	defer srv.Close()

	got, err := NewHackerNewsFetcher(srv.URL, nil).Fetch(context.Background(), boardSource(`{}`))
	require.NoError(t, err)
	assert.Len(t, got, hnDefaultMaxItems)
	assert.Equal(t, "30", got[29].ExternalID)
}

func TestListEndpoint(t *testing.T) {
	assert.Equal(t, "topstories", listEndpoint("top"))
	assert.Equal(t, "newstories", listEndpoint("new"))
	assert.Equal(t, "beststories", listEndpoint("best"))
	assert.Equal(t, "topstories", listEndpoint(""))
}

// peakHandler 记录 item 请求的并发峰值
type peakHandler struct {
	next     http.Handler
	inFlight int32
	peak     int32
}

func (p *peakHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/item/") {
		n := atomic.AddInt32(&p.inFlight, 1)
		defer atomic.AddInt32(&p.inFlight, -1)
		for {
			old := atomic.LoadInt32(&p.peak)
			if n <= old || atomic.CompareAndSwapInt32(&p.peak, old, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	p.next.ServeHTTP(w, r)
}

func TestHackerNewsBoundedConcurrencyKeepsOrder(t *testing.T) {
	hn := &fakeHN{lists: map[string]string{}, items: map[int]string{}}
	ids := make([]string, 0, 25)
	for id := 25; id >= 1; id-- {
		ids = append(ids, fmt.Sprint(id))
		hn.items[id] = story(id)
	}
	longBy := strings.Repeat("x", 400)
	hn.items[7] = fmt.Sprintf(`{"id":7,"type":"story","title":"Story 7","url":"https://example.com/7","by":%q,"time":1700000000}`, longBy)
	hn.lists["newstories"] = "[" + strings.Join(ids, ",") + "]"

	peak := &peakHandler{next: hn}
	srv := httptest.NewServer(peak)
	defer srv.Close()

	got, err := NewHackerNewsFetcher(srv.URL, nil).Fetch(context.Background(), boardSource(`{"feedType":"new","maxItems":25}`))
	require.NoError(t, err)
	require.Len(t, got, 25)
	for i, a := range got {
		assert.Equal(t, fmt.Sprintf("https://example.com/%d", 25-i), a.URL)
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&peak.peak), int32(hnBatchSize))
	assert.Len(t, got[18].Author, maxAuthorRunes)
}
