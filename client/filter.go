package client

import (
	"strings"

	"github.com/virtuallib/catalog-service/internal/model"
)

// FilterBooks returns the subset whose title or author contains search
// case-insensitively and whose genre matches exactly (empty genre matches
// all). Pure function, recomputed from the full fetched set on every use.
func FilterBooks(books []model.Book, search, genre string) []model.Book {
	search = strings.ToLower(strings.TrimSpace(search))

	out := make([]model.Book, 0, len(books))
	for _, b := range books {
		if genre != "" && b.Genre != genre {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(b.Title), search) &&
			!strings.Contains(strings.ToLower(b.Author), search) {
			continue
		}
		out = append(out, b)
	}
	return out
}
