package linkpreview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/foxseedlab/kiosko/internal/provider"
)

const (
	defaultAPIURL = "https://api.linkpreview.net/"
	maxPageBytes  = 1 << 20
)

// Client asks linkpreview.net for a summary and falls back to reading the
// page's Open Graph tags when the API has nothing.
type Client struct {
	apiKey     string
	apiURL     string
	httpClient *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:     apiKey,
		apiURL:     defaultAPIURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type apiResponse struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

func (c *Client) Preview(ctx context.Context, target string) (provider.Preview, error) {
	p, apiErr := c.fromAPI(ctx, target)
	if apiErr == nil && p.Title != "" {
		return p, nil
	}
	if apiErr != nil {
		slog.Debug("link preview api failed, reading page", "url", target, "error", apiErr)
	}
	p, pageErr := c.fromPage(ctx, target)
	if pageErr != nil {
		return provider.Preview{}, fmt.Errorf("preview %s: %w", target, errors.Join(provider.ErrUnavailable, apiErr, pageErr))
	}
	return p, nil
}

func (c *Client) fromAPI(ctx context.Context, target string) (provider.Preview, error) {
	if c.apiKey == "" {
		return provider.Preview{}, errors.New("no api key")
	}
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("q", target)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return provider.Preview{}, err
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		return provider.Preview{}, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return provider.Preview{}, fmt.Errorf("linkpreview returned %d", res.StatusCode)
	}
	var body apiResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return provider.Preview{}, fmt.Errorf("failed to decode linkpreview response: %w", err)
	}
	return provider.Preview{Title: body.Title, Description: body.Description, Image: body.Image}, nil
}

func (c *Client) fromPage(ctx context.Context, target string) (provider.Preview, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return provider.Preview{}, err
	}
	req.Header.Set("Accept", "text/html")
	res, err := c.httpClient.Do(req)
	if err != nil {
		return provider.Preview{}, err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return provider.Preview{}, fmt.Errorf("page returned %d", res.StatusCode)
	}
	return parseHead(io.LimitReader(res.Body, maxPageBytes))
}

// parseHead reads og: meta tags, falling back to <title> and the description meta.
func parseHead(r io.Reader) (provider.Preview, error) {
	z := html.NewTokenizer(r)
	var (
		p       provider.Preview
		title   string
		desc    string
		inTitle bool
	)
	done := func() provider.Preview {
		if p.Title == "" {
			p.Title = strings.TrimSpace(title)
		}
		if p.Description == "" {
			p.Description = desc
		}
		return p
	}
	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); err != nil && !errors.Is(err, io.EOF) {
				return provider.Preview{}, err
			}
			return done(), nil
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			switch tok.Data {
			case "title":
				inTitle = true
			case "meta":
				key, content := metaAttrs(tok)
				switch key {
				case "og:title":
					p.Title = content
				case "og:description":
					p.Description = content
				case "og:image":
					p.Image = content
				case "description":
					desc = content
				}
			case "body":
				// everything we read lives in <head>
				return done(), nil
			}
		case html.TextToken:
			if inTitle {
				title += string(z.Text())
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); string(name) == "title" {
				inTitle = false
			}
		}
	}
}

func metaAttrs(tok html.Token) (key, content string) {
	for _, a := range tok.Attr {
		switch a.Key {
		case "property", "name":
			key = strings.ToLower(a.Val)
		case "content":
			content = strings.TrimSpace(a.Val)
		}
	}
	return key, content
}
