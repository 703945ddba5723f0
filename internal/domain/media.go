package domain

import "time"

// NewsItem is a headline shown by the AI-news widget.
type NewsItem struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	Points      int       `json:"points"`
	PublishedAt time.Time `json:"published_at"`
}

// NewsCache is the last successful fetch of a news feed.
type NewsCache struct {
	Feed      string     `json:"feed"`
	Items     []NewsItem `json:"items"`
	FetchedAt time.Time  `json:"fetched_at"`
}

// Video is a search result from the video-search endpoint.
type Video struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Channel     string    `json:"channel"`
	URL         string    `json:"url"`
	Thumbnail   string    `json:"thumbnail"`
	PublishedAt time.Time `json:"published_at"`
}
