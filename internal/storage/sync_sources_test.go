package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LJTian/NewsDesk/internal/model"
)

const sourcesYAML = `
- key: hn-top
  name: Hacker News
  kind: board
  config:
    feedType: top
    maxItems: 20
- key: go-blog
  name: Go Blog
  type: rss
  config:
    feedUrl: https://go.dev/blog/feed.atom
  enabled: false
- key: broken
  name: Missing kind
`

const sourcesJSON = `[
  {"key": "lobsters", "name": "Lobsters", "type": "webpage", "config": {"pageUrl": "https://lobste.rs"}}
]`

func TestParseSourceFileYAML(t *testing.T) {
	entries, err := ParseSourceFile([]byte(sourcesYAML))
	require.NoError(t, err)
	require.Len(t, entries, 3)

	kind, ok := entries[0].ResolveKind()
	require.True(t, ok)
	assert.Equal(t, model.KindBoard, kind)

	row, err := entries[0].toSource(kind)
	require.NoError(t, err)
	assert.True(t, row.Enabled)
	require.NotNil(t, row.ConfigKey)
	assert.Equal(t, "hn-top", *row.ConfigKey)
	cfg, err := row.DecodeConfig()
	require.NoError(t, err)
	assert.Equal(t, model.BoardConfig{FeedType: "top", MaxItems: 20}, cfg)

	kind, ok = entries[1].ResolveKind()
	require.True(t, ok)
	assert.Equal(t, model.KindFeed, kind)
	row, err = entries[1].toSource(kind)
	require.NoError(t, err)
	assert.False(t, row.Enabled)

	_, ok = entries[2].ResolveKind()
	assert.False(t, ok)
}

func TestParseSourceFileJSON(t *testing.T) {
	entries, err := ParseSourceFile([]byte(sourcesJSON))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	kind, ok := entries[0].ResolveKind()
	require.True(t, ok)
	assert.Equal(t, model.KindPage, kind)

	row, err := entries[0].toSource(kind)
	require.NoError(t, err)
	cfg, err := row.DecodeConfig()
	require.NoError(t, err)
	assert.Equal(t, model.PageConfig{PageURL: "https://lobste.rs"}, cfg)
}

func TestParseSourceFileRejectsObject(t *testing.T) {
	_, err := ParseSourceFile([]byte(`{"key": "x"}`))
	assert.Error(t, err)
}

func TestToSourceRejectsBadConfig(t *testing.T) {
	e := SourceEntry{Key: "k", Name: "n", Kind: "board", Config: map[string]any{"maxItems": "lots"}}
	kind, ok := e.ResolveKind()
	require.True(t, ok)
	_, err := e.toSource(kind)
	assert.Error(t, err)
}
