package googlesearch

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"

	"github.com/foxseedlab/kiosko/internal/provider"
)

const resultsPerQuery = 10

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
	".gif":  true,
}

// ImageSearcher queries a Programmable Search Engine in image mode.
type ImageSearcher struct {
	svc *customsearch.Service
	cx  string
}

func NewImageSearcher(ctx context.Context, apiKey, cx string, opts ...option.ClientOption) (*ImageSearcher, error) {
	if apiKey == "" || cx == "" {
		return nil, fmt.Errorf("google api key and search engine id are required")
	}
	svc, err := customsearch.NewService(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create custom search service: %w", err)
	}
	return &ImageSearcher{svc: svc, cx: cx}, nil
}

// SearchImages returns direct image links, skipping results that are not plain image files.
func (s *ImageSearcher) SearchImages(ctx context.Context, query string) ([]string, error) {
	res, err := s.svc.Cse.List().
		Q(query).
		Cx(s.cx).
		SearchType("image").
		Num(resultsPerQuery).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("custom search %q: %w: %w", query, provider.ErrUnavailable, err)
	}
	links := make([]string, 0, len(res.Items))
	for _, item := range res.Items {
		if item == nil || !isImageLink(item.Link) {
			continue
		}
		links = append(links, item.Link)
	}
	return links, nil
}

func isImageLink(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	return imageExtensions[strings.ToLower(path.Ext(u.Path))]
}
