package client_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/virtuallib/catalog-service/client"
	"github.com/virtuallib/catalog-service/internal/model"
)

func TestFilterBooks(t *testing.T) {
	t.Parallel()
	books := []model.Book{
		{ID: 1, Title: "Dune", Author: "Frank Herbert", Genre: "fantasy"},
		{ID: 2, Title: "Dune Messiah", Author: "Frank Herbert", Genre: "fantasy"},
		{ID: 3, Title: "The Pragmatic Programmer", Author: "Hunt, Thomas", Genre: "programming"},
		{ID: 4, Title: "Neuromancer", Author: "William Gibson", Genre: "sci-fi"},
	}

	tests := []struct {
		name    string
		search  string
		genre   string
		wantIDs []int
	}{
		{name: "no filters returns all", wantIDs: []int{1, 2, 3, 4}},
		{name: "title match is case-insensitive", search: "dune", wantIDs: []int{1, 2}},
		{name: "author match", search: "gibson", wantIDs: []int{4}},
		{name: "search is trimmed", search: "  dune  ", wantIDs: []int{1, 2}},
		{name: "genre is exact", genre: "fantasy", wantIDs: []int{1, 2}},
		{name: "genre and search combine", search: "messiah", genre: "fantasy", wantIDs: []int{2}},
		{name: "no match yields empty, not nil", search: "tolkien", wantIDs: []int{}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := client.FilterBooks(books, tt.search, tt.genre)
			require.NotNil(t, got)
			ids := make([]int, 0, len(got))
			for _, b := range got {
				ids = append(ids, b.ID)
			}
			require.Equal(t, tt.wantIDs, ids)
		})
	}
}
