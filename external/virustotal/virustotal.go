package virustotal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/foxseedlab/kiosko/internal/provider"
)

const (
	defaultBaseURL = "https://www.virustotal.com/api/v3"
	statusComplete = "completed"
	maxErrorBody   = 512
)

// Client talks to the VirusTotal v3 API. The public tier allows four requests per minute.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(15*time.Second), 4),
	}
}

type submitResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

type analysisResponse struct {
	Data struct {
		Attributes struct {
			Status string `json:"status"`
			Stats  struct {
				Malicious  int `json:"malicious"`
				Suspicious int `json:"suspicious"`
				Harmless   int `json:"harmless"`
				Undetected int `json:"undetected"`
			} `json:"stats"`
		} `json:"attributes"`
	} `json:"data"`
}

// Submit queues target for scanning and returns the analysis id.
func (c *Client) Submit(ctx context.Context, target string) (string, error) {
	form := url.Values{}
	form.Set("url", target)
	var res submitResponse
	if err := c.do(ctx, http.MethodPost, "/urls", strings.NewReader(form.Encode()), &res); err != nil {
		return "", err
	}
	if res.Data.ID == "" {
		return "", fmt.Errorf("virustotal returned no analysis id: %w", provider.ErrUnavailable)
	}
	return res.Data.ID, nil
}

// Fetch returns provider.ErrNotReady while the analysis is queued or running.
func (c *Client) Fetch(ctx context.Context, id string) (provider.Verdict, error) {
	var res analysisResponse
	if err := c.do(ctx, http.MethodGet, "/analyses/"+url.PathEscape(id), nil, &res); err != nil {
		return provider.Verdict{}, err
	}
	attrs := res.Data.Attributes
	if attrs.Status != statusComplete {
		return provider.Verdict{}, fmt.Errorf("analysis %s is %s: %w", id, attrs.Status, provider.ErrNotReady)
	}
	return provider.Verdict{
		Malicious:  attrs.Stats.Malicious,
		Suspicious: attrs.Stats.Suspicious,
		Harmless:   attrs.Stats.Harmless,
		Undetected: attrs.Stats.Undetected,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("virustotal rate limit wait: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("x-apikey", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("virustotal %s %s: %w: %w", method, path, provider.ErrUnavailable, err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		return fmt.Errorf("virustotal %s %s returned %d: %s: %w", method, path, res.StatusCode, msg, provider.ErrUnavailable)
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode virustotal response: %w", err)
	}
	return nil
}
