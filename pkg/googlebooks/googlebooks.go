// Package googlebooks looks up book metadata by ISBN through the public
// Google Books volumes API. Used to pre-fill the add-book form; callers are
// expected to fall back to manual entry on any error.
package googlebooks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/virtuallib/catalog-service/pkg/breaker"
)

const defaultBaseURL = "https://www.googleapis.com/books/v1"

var ErrNotFound = errors.New("no book found for isbn")

// Draft holds the fields a lookup can pre-fill on a new book.
type Draft struct {
	Title       string
	Author      string
	Genre       string
	Year        string
	Description string
	Cover       string
}

type Client struct {
	baseURL string
	client  *http.Client
	cb      *breaker.Breaker
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
		cb:      breaker.New(10, 30*time.Second, 0.5, 3),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type volumesResponse struct {
	TotalItems int `json:"totalItems"`
	Items      []struct {
		VolumeInfo struct {
			Title         string   `json:"title"`
			Authors       []string `json:"authors"`
			Categories    []string `json:"categories"`
			PublishedDate string   `json:"publishedDate"`
			Description   string   `json:"description"`
			ImageLinks    struct {
				Large          string `json:"large"`
				Medium         string `json:"medium"`
				Thumbnail      string `json:"thumbnail"`
				SmallThumbnail string `json:"smallThumbnail"`
			} `json:"imageLinks"`
		} `json:"volumeInfo"`
	} `json:"items"`
}

// CleanISBN strips hyphens and whitespace.
func CleanISBN(isbn string) string {
	return strings.Map(func(r rune) rune {
		if r == '-' || r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, isbn)
}

// Lookup fetches the first volume matching the ISBN.
func (c *Client) Lookup(ctx context.Context, isbn string) (Draft, error) {
	isbn = CleanISBN(isbn)
	if isbn == "" {
		return Draft{}, errors.New("empty isbn")
	}

	u := fmt.Sprintf("%s/volumes?q=%s", c.baseURL, url.QueryEscape("isbn:"+isbn))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return Draft{}, err
	}
	var resp *http.Response
	if err := c.cb.Do(func() error {
		var doErr error
		resp, doErr = c.client.Do(req)
		return doErr
	}); err != nil {
		return Draft{}, errors.Wrap(err, "googlebooks lookup")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Draft{}, errors.Errorf("googlebooks lookup: status %d", resp.StatusCode)
	}

	var vr volumesResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return Draft{}, errors.Wrap(err, "googlebooks decode")
	}
	if vr.TotalItems == 0 || len(vr.Items) == 0 {
		return Draft{}, ErrNotFound
	}

	info := vr.Items[0].VolumeInfo
	d := Draft{
		Title:       info.Title,
		Author:      strings.Join(info.Authors, ", "),
		Description: info.Description,
	}
	if len(info.Categories) > 0 {
		d.Genre = info.Categories[0]
	}
	if info.PublishedDate != "" {
		d.Year = strings.SplitN(info.PublishedDate, "-", 2)[0]
	}
	// best quality first
	for _, link := range []string{
		info.ImageLinks.Large,
		info.ImageLinks.Medium,
		info.ImageLinks.Thumbnail,
		info.ImageLinks.SmallThumbnail,
	} {
		if link != "" {
			d.Cover = link
			break
		}
	}
	return d, nil
}
