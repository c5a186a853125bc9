package ytvideodata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractID(t *testing.T) {
	for _, raw := range []string{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		"https://www.youtube.com/watch?list=x&v=dQw4w9WgXcQ",
		"https://youtu.be/dQw4w9WgXcQ",
		"https://www.youtube.com/embed/dQw4w9WgXcQ",
		"https://www.youtube.com/shorts/dQw4w9WgXcQ",
		"  dQw4w9WgXcQ ",
	} {
		id, ok := ExtractID(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, "dQw4w9WgXcQ", id, raw)
	}

	_, ok := ExtractID("https://example.com/movie.mp4")
	assert.False(t, ok)
	_, ok = ExtractID("short")
	assert.False(t, ok)
}

func TestIsDirectURL(t *testing.T) {
	assert.True(t, IsDirectURL("https://cdn.example.com/movie.mp4"))
	assert.False(t, IsDirectURL("https://youtu.be/dQw4w9WgXcQ"))
	assert.False(t, IsDirectURL("ftp://example.com/movie.mp4"))
	assert.False(t, IsDirectURL("not a url"))
}

func TestGetWithEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"title":"Song","author_name":"Artist","thumbnail_url":"thumb"}`))
	}))
	defer srv.Close()

	c := &Client{HTTPClient: srv.Client(), OEmbedURL: srv.URL + "/oembed?id=%s", PageURL: srv.URL + "/page/%s"}
	data, err := c.Get(context.Background(), "dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "Song", data.Title)
	assert.Equal(t, "Artist", data.AuthorName)
	assert.Equal(t, "thumb", data.ThumbnailUrl)
}

func TestGetFallsBackToPage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oembed", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.HandleFunc("/page/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>Hidden - YouTube</title></head>
			<body><span><link itemprop="name" content="Channel"></span></body></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := &Client{HTTPClient: srv.Client(), OEmbedURL: srv.URL + "/oembed?id=%s", PageURL: srv.URL + "/page/%s"}
	data, err := c.Get(context.Background(), "dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "Hidden", data.Title)
	assert.Equal(t, "Channel", data.AuthorName)
	assert.Equal(t, ThumbnailURL("dQw4w9WgXcQ"), data.ThumbnailUrl)
}

func TestGetNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := &Client{HTTPClient: srv.Client(), OEmbedURL: srv.URL + "/oembed?id=%s", PageURL: srv.URL + "/page/%s"}
	_, err := c.Get(context.Background(), "dQw4w9WgXcQ")
	assert.ErrorIs(t, err, ErrVideoNotFound)
}
