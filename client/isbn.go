package client

import (
	"context"

	"github.com/pkg/errors"

	"github.com/virtuallib/catalog-service/internal/model"
	"github.com/virtuallib/catalog-service/pkg/googlebooks"
)

// PrefillFromISBN looks the ISBN up in Google Books and returns a partially
// filled create request. Any lookup failure degrades to manual entry: the
// caller gets a request holding only the ISBN, plus the error to display.
func (c *Client) PrefillFromISBN(ctx context.Context, books *googlebooks.Client, isbn string) (model.CreateBookRequest, error) {
	req := model.CreateBookRequest{ISBN: googlebooks.CleanISBN(isbn)}

	draft, err := books.Lookup(ctx, isbn)
	if err != nil {
		return req, err
	}

	req.Title = draft.Title
	req.Author = draft.Author
	req.Genre = draft.Genre
	req.Description = draft.Description
	req.Cover = draft.Cover
	if draft.Year != "" {
		if year, err := parseYear(draft.Year); err == nil {
			req.Year = year
		}
	}
	return req, nil
}

func parseYear(s string) (int, error) {
	year := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, errInvalidYear
		}
		year = year*10 + int(r-'0')
	}
	if year == 0 {
		return 0, errInvalidYear
	}
	return year, nil
}

var errInvalidYear = errors.New("invalid year")
