package ytvideodata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

type VideoData struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ThumbnailUrl string `json:"thumbnail_url"`
}

type Client struct {
	HTTPClient *http.Client

	// OEmbedURL and PageURL are format strings taking the video id.
	OEmbedURL string
	PageURL   string
}

var DefaultClient = &Client{
	HTTPClient: &http.Client{Timeout: 5 * time.Second},
	OEmbedURL:  "https://www.youtube.com/oembed?url=https://www.youtube.com/watch?v=%s&format=json",
	PageURL:    "https://youtu.be/%s",
}

func Get(ctx context.Context, videoId string) (*VideoData, error) {
	return DefaultClient.Get(ctx, videoId)
}

// Get resolves metadata with oEmbed, falling back to scraping the watch page
// when the video does not allow embedding.
func (c *Client) Get(ctx context.Context, videoId string) (*VideoData, error) {
	videoData, err := c.getVideoWithEmbed(ctx, videoId)
	if err != nil {
		if !errors.Is(err, ErrVideoNotEmbeddable) {
			return nil, fmt.Errorf("failed to get video data with embed: %w", err)
		}

		videoData, err = c.getFromPage(ctx, videoId)
		if err != nil {
			return nil, fmt.Errorf("failed to get video data from page: %w", err)
		}
	}

	if videoData.ThumbnailUrl == "" {
		videoData.ThumbnailUrl = ThumbnailURL(videoId)
	}

	return videoData, nil
}

func ThumbnailURL(videoId string) string {
	return fmt.Sprintf("https://i.ytimg.com/vi/%s/hqdefault.jpg", videoId)
}
