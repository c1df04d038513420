package openlibrary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// ErrNotFound is returned when Open Library has no edition for an ISBN.
var ErrNotFound = errors.New("openlibrary: isbn not found")

type Client struct {
	httpClient *http.Client
	userAgent  string
	baseURL    string
	limiter    *rate.Limiter
}

// NewClient builds a client limited to rps requests per second (minimum 1).
func NewClient(userAgent string, rps int) *Client {
	if rps < 1 {
		rps = 1
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		userAgent: userAgent,
		baseURL:   "https://openlibrary.org",
		limiter:   rate.NewLimiter(rate.Every(time.Second/time.Duration(rps)), 1),
	}
}

// WithBaseURL points the client at another host; used by tests.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

type Publisher struct {
	Name string `json:"name"`
}

// BookDetails matches api/books?jscmd=data
type BookDetails struct {
	Title       string      `json:"title"`
	Subtitle    string      `json:"subtitle"`
	Publishers  []Publisher `json:"publishers"`
	PublishDate string      `json:"publish_date"`
	Cover       struct {
		Large  string `json:"large"`
		Medium string `json:"medium"`
	} `json:"cover"`
	Authors []struct {
		URL  string `json:"url"`
		Name string `json:"name"`
	} `json:"authors"`
	Subjects []struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	} `json:"subjects"`
	NumberOfPages int    `json:"number_of_pages"`
	Notes         string `json:"notes"`
}

// GetBookByISBN fetches edition data for one ISBN.
func (c *Client) GetBookByISBN(ctx context.Context, isbn string) (*BookDetails, error) {
	bibkey := "ISBN:" + isbn
	u := fmt.Sprintf("%s/api/books?bibkeys=%s&jscmd=data&format=json", c.baseURL, url.QueryEscape(bibkey))

	var res map[string]BookDetails
	if err := c.get(ctx, u, &res); err != nil {
		return nil, err
	}
	details, ok := res[bibkey]
	if !ok {
		return nil, ErrNotFound
	}
	return &details, nil
}

func (c *Client) get(ctx context.Context, url string, target any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("openlibrary: unexpected status code: %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(target)
}
