package client_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/virtuallib/catalog-service/client"
	"github.com/virtuallib/catalog-service/pkg/googlebooks"
)

func TestClient_PrefillFromISBN(t *testing.T) {
	t.Parallel()

	t.Run("lookup fills the draft", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"totalItems": 1,
				"items": [{
					"volumeInfo": {
						"title": "Dune",
						"authors": ["Frank Herbert"],
						"categories": ["Fiction"],
						"publishedDate": "1965",
						"description": "Desert planet epic"
					}
				}]
			}`))
		}))
		t.Cleanup(srv.Close)

		books := googlebooks.NewClient(googlebooks.WithBaseURL(srv.URL))
		c := client.New("http://unused.invalid")

		req, err := c.PrefillFromISBN(context.Background(), books, "978-0-441-17271-9")
		require.NoError(t, err)
		require.Equal(t, "9780441172719", req.ISBN)
		require.Equal(t, "Dune", req.Title)
		require.Equal(t, "Frank Herbert", req.Author)
		require.Equal(t, 1965, req.Year)
	})

	t.Run("lookup failure degrades to manual entry", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"totalItems": 0}`))
		}))
		t.Cleanup(srv.Close)

		books := googlebooks.NewClient(googlebooks.WithBaseURL(srv.URL))
		c := client.New("http://unused.invalid")

		req, err := c.PrefillFromISBN(context.Background(), books, "978-0-441-17271-9")
		require.ErrorIs(t, err, googlebooks.ErrNotFound)
		require.Equal(t, "9780441172719", req.ISBN)
		require.Empty(t, req.Title)
	})
}
