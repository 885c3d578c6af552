package client_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/virtuallib/catalog-service/client"
	"github.com/virtuallib/catalog-service/internal/model"
	"github.com/virtuallib/catalog-service/pkg/auth"
)

func openStore(t *testing.T) *client.SessionStore {
	t.Helper()
	store, err := client.OpenSessionStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, store.Close()) })
	return store
}

func TestSessionStore_RoundTrip(t *testing.T) {
	t.Parallel()
	store := openStore(t)

	_, err := store.Load()
	require.ErrorIs(t, err, client.ErrNoSession)

	saved := client.Session{
		Token: "tok-123",
		User:  model.User{ID: 42, Username: "ana", Role: auth.RoleStudent},
	}
	require.NoError(t, store.Save(saved))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, saved, loaded)

	require.NoError(t, store.Clear())
	_, err = store.Load()
	require.ErrorIs(t, err, client.ErrNoSession)
}

func TestClient_RestoreSession(t *testing.T) {
	t.Parallel()

	t.Run("valid token restores and refreshes the snapshot", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/api/auth/me", r.URL.Path)
			require.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
			writeJSON(t, w, http.StatusOK, model.User{ID: 42, Username: "ana", Role: auth.RoleStudent, FullName: "Ana Ivanova"})
		}))
		t.Cleanup(srv.Close)

		store := openStore(t)
		require.NoError(t, store.Save(client.Session{
			Token: "tok-123",
			User:  model.User{ID: 42, Username: "ana"},
		}))

		c := client.New(srv.URL)
		ok, err := c.RestoreSession(context.Background(), store)
		require.NoError(t, err)
		require.True(t, ok)
		require.True(t, c.LoggedIn())

		// the stored snapshot now carries the server's view
		session, err := store.Load()
		require.NoError(t, err)
		require.Equal(t, "Ana Ivanova", session.User.FullName)
	})

	t.Run("stale token clears the store", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
		}))
		t.Cleanup(srv.Close)

		store := openStore(t)
		require.NoError(t, store.Save(client.Session{Token: "expired", User: model.User{ID: 42}}))

		c := client.New(srv.URL)
		ok, err := c.RestoreSession(context.Background(), store)
		require.NoError(t, err)
		require.False(t, ok)
		require.False(t, c.LoggedIn())

		_, err = store.Load()
		require.ErrorIs(t, err, client.ErrNoSession)
	})

	t.Run("no stored session is not an error", func(t *testing.T) {
		t.Parallel()
		store := openStore(t)
		c := client.New("http://unused.invalid")

		ok, err := c.RestoreSession(context.Background(), store)
		require.NoError(t, err)
		require.False(t, ok)
	})
}

func TestClient_SaveSession(t *testing.T) {
	t.Parallel()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, model.AuthResponse{
			AccessToken: "tok-456",
			User:        model.User{ID: 7, Username: "petrova", Role: auth.RoleTeacher},
		})
	})
	mux.HandleFunc("/api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	store := openStore(t)
	c := client.New(srv.URL)

	_, err := c.Login(context.Background(), "petrova", "correct-horse")
	require.NoError(t, err)
	require.NoError(t, c.SaveSession(store))

	session, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, "tok-456", session.Token)

	// logging out and saving again wipes the stored session
	c.Logout(context.Background())
	require.NoError(t, c.SaveSession(store))
	_, err = store.Load()
	require.ErrorIs(t, err, client.ErrNoSession)
}
