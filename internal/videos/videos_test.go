package videos

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/leetmentor/internal/domain"
)

const searchFixture = `{"items":[
 {"id":{"kind":"youtube#video","videoId":"abc123"},"snippet":{"title":"Two Sum - Leetcode 1","channelTitle":"NeetCode","publishedAt":"2021-01-02T03:04:05Z","thumbnails":{"default":{"url":"d.jpg"},"medium":{"url":"m.jpg"}}}},
 {"id":{"kind":"youtube#channel","channelId":"chan"},"snippet":{"title":"A channel"}},
 {"id":{"kind":"youtube#video","videoId":"def456"},"snippet":{"title":"Hash map trick","channelTitle":"Algo","thumbnails":{"default":{"url":"d2.jpg"}}}}
]}`

func TestQueryFor(t *testing.T) {
	info := domain.ProblemInfo{Title: "1. Two Sum", Difficulty: domain.DifficultyEasy}
	assert.Equal(t, "1. Two Sum leetcode easy solution explained", QueryFor(info))

	assert.Equal(t, "Unknown Problem leetcode solution explained", QueryFor(domain.ProblemInfo{}))
}

func TestParseSearch(t *testing.T) {
	videos := ParseSearch([]byte(searchFixture))
	require.Len(t, videos, 2)

	assert.Equal(t, "abc123", videos[0].ID)
	assert.Equal(t, "Two Sum - Leetcode 1", videos[0].Title)
	assert.Equal(t, "NeetCode", videos[0].Channel)
	assert.Equal(t, "https://www.youtube.com/watch?v=abc123", videos[0].URL)
	assert.Equal(t, "m.jpg", videos[0].Thumbnail)
	assert.Equal(t, 2021, videos[0].PublishedAt.Year())

	assert.Equal(t, "d2.jpg", videos[1].Thumbnail)
	assert.True(t, videos[1].PublishedAt.IsZero())
}

func TestParseSearchEmpty(t *testing.T) {
	videos := ParseSearch([]byte(`{}`))
	assert.NotNil(t, videos)
	assert.Empty(t, videos)
}

func TestSearchMissingKey(t *testing.T) {
	_, err := NewClient("").Search(context.Background(), "two sum", 3)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestSearchEmptyQuery(t *testing.T) {
	_, err := NewClient("key").Search(context.Background(), "   ", 3)
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestSearchSendsQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "two sum", q.Get("q"))
		assert.Equal(t, "secret", q.Get("key"))
		assert.Equal(t, "3", q.Get("maxResults"))
		assert.Equal(t, "video", q.Get("type"))
		_, _ = io.WriteString(w, searchFixture)
	}))
	defer srv.Close()

	videos, err := NewClient("secret", WithEndpoint(srv.URL)).Search(context.Background(), "two sum", 3)
	require.NoError(t, err)
	assert.Len(t, videos, 2)
}

func TestSearchSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"error":{"message":"quota exceeded"}}`)
	}))
	defer srv.Close()

	_, err := NewClient("secret", WithEndpoint(srv.URL)).Search(context.Background(), "two sum", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}
