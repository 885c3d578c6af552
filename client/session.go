package client

import (
	"context"
	"encoding/json"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"

	"github.com/virtuallib/catalog-service/internal/model"
)

var ErrNoSession = errors.New("no stored session")

const (
	tokenKey = "token"
	userKey  = "user"
)

// Session is the durable authentication snapshot: the access token plus the
// user as of the last verification.
type Session struct {
	Token string
	User  model.User
}

// SessionStore persists the session in an embedded badger database. It is
// injected explicitly; there is no ambient global session.
type SessionStore struct {
	db *badger.DB
}

func OpenSessionStore(path string) (*SessionStore, error) {
	db, err := badger.Open(badger.DefaultOptions(path).WithLogger(nil))
	if err != nil {
		return nil, errors.Wrap(err, "open session store")
	}
	return &SessionStore{db: db}, nil
}

func (s *SessionStore) Save(session Session) error {
	userData, err := json.Marshal(session.User)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(tokenKey), []byte(session.Token)); err != nil {
			return err
		}
		return txn.Set([]byte(userKey), userData)
	})
}

func (s *SessionStore) Load() (Session, error) {
	var session Session
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(tokenKey))
		if err != nil {
			return err
		}
		if err := item.Value(func(val []byte) error {
			session.Token = string(val)
			return nil
		}); err != nil {
			return err
		}

		item, err = txn.Get([]byte(userKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &session.User)
		})
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return Session{}, ErrNoSession
		}
		return Session{}, err
	}
	return session, nil
}

func (s *SessionStore) Clear() error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(tokenKey)); err != nil {
			return err
		}
		return txn.Delete([]byte(userKey))
	})
}

func (s *SessionStore) Close() error {
	return s.db.Close()
}

// RestoreSession loads a stored session and verifies the token against
// /auth/me. An invalid or expired token clears the store and leaves the
// client unauthenticated.
func (c *Client) RestoreSession(ctx context.Context, store *SessionStore) (bool, error) {
	session, err := store.Load()
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			return false, nil
		}
		return false, err
	}

	c.token = session.Token
	user, err := c.Me(ctx)
	if err != nil {
		c.token = ""
		c.user = nil
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			// stale token; fall back to unauthenticated
			return false, store.Clear()
		}
		return false, err
	}

	c.user = &user
	// refresh the stored snapshot with what the server returned
	return true, store.Save(Session{Token: session.Token, User: user})
}

// SaveSession persists the client's current authentication state.
func (c *Client) SaveSession(store *SessionStore) error {
	if !c.LoggedIn() {
		return store.Clear()
	}
	return store.Save(Session{Token: c.token, User: *c.user})
}
