package pexels

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/foxseedlab/kiosko/internal/provider"
)

const (
	defaultBaseURL = "https://api.pexels.com"
	imagesPerQuery = 15
	videosPerQuery = 1
	maxErrorBody   = 512
)

type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 20 * time.Second},
	}
}

type photoSearchResponse struct {
	Photos []struct {
		Src struct {
			Large string `json:"large"`
		} `json:"src"`
	} `json:"photos"`
}

type videoSearchResponse struct {
	Videos []struct {
		ID         int64  `json:"id"`
		URL        string `json:"url"`
		Duration   int    `json:"duration"`
		VideoFiles []struct {
			Link    string `json:"link"`
			Width   int    `json:"width"`
			Height  int    `json:"height"`
			Quality string `json:"quality"`
		} `json:"video_files"`
	} `json:"videos"`
}

func (c *Client) SearchImages(ctx context.Context, query string) ([]string, error) {
	var res photoSearchResponse
	if err := c.get(ctx, "/v1/search", query, imagesPerQuery, &res); err != nil {
		return nil, err
	}
	urls := make([]string, 0, len(res.Photos))
	for _, p := range res.Photos {
		if p.Src.Large != "" {
			urls = append(urls, p.Src.Large)
		}
	}
	return urls, nil
}

func (c *Client) SearchVideos(ctx context.Context, query string) ([]provider.Video, error) {
	var res videoSearchResponse
	if err := c.get(ctx, "/videos/search", query, videosPerQuery, &res); err != nil {
		return nil, err
	}
	videos := make([]provider.Video, 0, len(res.Videos))
	for _, v := range res.Videos {
		video := provider.Video{ID: v.ID, URL: v.URL, Duration: v.Duration}
		for _, f := range v.VideoFiles {
			video.Files = append(video.Files, provider.VideoFile{Link: f.Link, Width: f.Width, Height: f.Height, Quality: f.Quality})
		}
		videos = append(videos, video)
	}
	return videos, nil
}

func (c *Client) get(ctx context.Context, path, query string, perPage int, out any) error {
	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", strconv.Itoa(perPage))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("pexels %s: %w: %w", path, provider.ErrUnavailable, err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		return fmt.Errorf("pexels %s returned %d: %s: %w", path, res.StatusCode, body, provider.ErrUnavailable)
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode pexels response: %w", err)
	}
	return nil
}
