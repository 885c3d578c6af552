// Package client is a Go client for the catalog service. It mirrors the
// behavior the browser front end relied on: every mutation is confirmed by
// the server before any local state changes, and collections are re-fetched
// after writes rather than patched incrementally.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/virtuallib/catalog-service/internal/model"
	"github.com/virtuallib/catalog-service/pkg/auth"
)

// APIError is a non-2xx response decoded from the server's {"error": ...} body.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}

type Client struct {
	baseURL string
	client  *http.Client
	token   string
	user    *model.User
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns the current access token, empty when unauthenticated.
func (c *Client) Token() string { return c.token }

// User returns the cached user snapshot from login/session restore.
func (c *Client) User() *model.User { return c.user }

// LoggedIn reports whether a session is held.
func (c *Client) LoggedIn() bool { return c.token != "" && c.user != nil }

// CanReserve is the client-side reservation guard; the server re-checks.
func (c *Client) CanReserve() bool { return c.LoggedIn() }

// IsTeacher is the client-side admin guard; the server re-checks.
func (c *Client) IsTeacher() bool {
	return c.LoggedIn() && c.user.Role == auth.RoleTeacher
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var errBody struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errBody); err == nil {
			apiErr.Message = errBody.Error
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Login authenticates and caches the token and user snapshot.
func (c *Client) Login(ctx context.Context, username, password string) (model.User, error) {
	var resp model.AuthResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/login",
		model.LoginRequest{Username: username, Password: password}, &resp)
	if err != nil {
		return model.User{}, err
	}
	c.token = resp.AccessToken
	c.user = &resp.User
	return resp.User, nil
}

// Register validates the form locally (no network call on failure), signs up
// and caches the session.
func (c *Client) Register(ctx context.Context, form SignupForm) (model.User, error) {
	if err := form.Validate(); err != nil {
		return model.User{}, err
	}
	var resp model.AuthResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/register", model.RegisterRequest{
		Username: form.Username,
		Email:    form.Email,
		Password: form.Password,
		FullName: form.FullName,
	}, &resp)
	if err != nil {
		return model.User{}, err
	}
	c.token = resp.AccessToken
	c.user = &resp.User
	return resp.User, nil
}

// Me fetches the current user with the held token.
func (c *Client) Me(ctx context.Context) (model.User, error) {
	var user model.User
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &user); err != nil {
		return model.User{}, err
	}
	return user, nil
}

// Logout drops the local session; the server call is a courtesy ack.
func (c *Client) Logout(ctx context.Context) {
	_ = c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
	c.token = ""
	c.user = nil
}

type BookQuery struct {
	Genre         string
	Search        string
	AvailableOnly bool
}

func (c *Client) ListBooks(ctx context.Context, q BookQuery) ([]model.Book, error) {
	params := url.Values{}
	if q.Genre != "" {
		params.Set("genre", q.Genre)
	}
	if q.Search != "" {
		params.Set("search", q.Search)
	}
	if q.AvailableOnly {
		params.Set("available", "true")
	}
	path := "/api/books"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var books []model.Book
	if err := c.do(ctx, http.MethodGet, path, nil, &books); err != nil {
		return nil, err
	}
	return books, nil
}

func (c *Client) GetBook(ctx context.Context, id int) (model.Book, error) {
	var book model.Book
	if err := c.do(ctx, http.MethodGet, "/api/books/"+strconv.Itoa(id), nil, &book); err != nil {
		return model.Book{}, err
	}
	return book, nil
}

func (c *Client) CreateBook(ctx context.Context, req model.CreateBookRequest) (model.Book, error) {
	var book model.Book
	if err := c.do(ctx, http.MethodPost, "/api/books", req, &book); err != nil {
		return model.Book{}, err
	}
	return book, nil
}

func (c *Client) UpdateBook(ctx context.Context, id int, req model.UpdateBookRequest) (model.Book, error) {
	var book model.Book
	if err := c.do(ctx, http.MethodPut, "/api/books/"+strconv.Itoa(id), req, &book); err != nil {
		return model.Book{}, err
	}
	return book, nil
}

func (c *Client) DeleteBook(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, "/api/books/"+strconv.Itoa(id), nil, nil)
}

func (c *Client) ListGenres(ctx context.Context) ([]string, error) {
	var genres []string
	if err := c.do(ctx, http.MethodGet, "/api/genres", nil, &genres); err != nil {
		return nil, err
	}
	return genres, nil
}

type ReservationQuery struct {
	Status    model.Status
	BookID    int
	UserEmail string
}

func (c *Client) ListReservations(ctx context.Context, q ReservationQuery) ([]model.Reservation, error) {
	params := url.Values{}
	if q.Status != "" {
		params.Set("status", string(q.Status))
	}
	if q.BookID != 0 {
		params.Set("book_id", strconv.Itoa(q.BookID))
	}
	if q.UserEmail != "" {
		params.Set("user_email", q.UserEmail)
	}
	path := "/api/reservations"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var items []model.Reservation
	if err := c.do(ctx, http.MethodGet, path, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) CreateReservation(ctx context.Context, req model.CreateReservationRequest) (model.Reservation, error) {
	var res model.Reservation
	if err := c.do(ctx, http.MethodPost, "/api/reservations", req, &res); err != nil {
		return model.Reservation{}, err
	}
	return res, nil
}

func (c *Client) UpdateReservation(ctx context.Context, id int, req model.UpdateReservationRequest) (model.Reservation, error) {
	var res model.Reservation
	if err := c.do(ctx, http.MethodPut, "/api/reservations/"+strconv.Itoa(id), req, &res); err != nil {
		return model.Reservation{}, err
	}
	return res, nil
}

// CancelReservation is the student action on their own pending reservation.
func (c *Client) CancelReservation(ctx context.Context, id int) (model.Reservation, error) {
	status := model.StatusCancelled
	return c.UpdateReservation(ctx, id, model.UpdateReservationRequest{Status: &status})
}

// MarkPickedUp is the teacher action resolving a pending reservation.
func (c *Client) MarkPickedUp(ctx context.Context, id int) (model.Reservation, error) {
	status := model.StatusPickedUp
	return c.UpdateReservation(ctx, id, model.UpdateReservationRequest{Status: &status})
}

func (c *Client) DeleteReservation(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, "/api/reservations/"+strconv.Itoa(id), nil, nil)
}
