package model

import (
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusPickedUp  Status = "picked_up"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// Terminal reports whether no further transitions are permitted.
func (s Status) Terminal() bool {
	switch s {
	case StatusPickedUp, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// FreesBook reports whether entering this status makes the book available
// again. Picked-up books stay checked out.
func (s Status) FreesBook() bool {
	return s == StatusCancelled || s == StatusExpired
}

type Book struct {
	ID          int       `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Author      string    `json:"author" db:"author"`
	Genre       string    `json:"genre" db:"genre"`
	Year        int       `json:"year" db:"year"`
	ISBN        string    `json:"isbn" db:"isbn"`
	Description string    `json:"description" db:"description"`
	Cover       string    `json:"cover" db:"cover"`
	RoomNumber  string    `json:"room_number" db:"room_number"`
	Available   bool      `json:"available" db:"available"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

type User struct {
	ID           int       `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         string    `json:"role" db:"role"`
	FullName     string    `json:"full_name" db:"full_name"`
	Active       bool      `json:"active" db:"active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

type Reservation struct {
	ID              int        `json:"id" db:"id"`
	BookID          int        `json:"book_id" db:"book_id"`
	Book            *Book      `json:"book,omitempty" db:"-"`
	UserID          int        `json:"user_id" db:"user_id"`
	UserName        string     `json:"user_name" db:"user_name"`
	UserEmail       string     `json:"user_email" db:"user_email"`
	UserPhone       string     `json:"user_phone" db:"user_phone"`
	ReservationDate time.Time  `json:"reservation_date" db:"reservation_date"`
	PickupDate      *time.Time `json:"pickup_date" db:"pickup_date"`
	Status          Status     `json:"status" db:"status"`
	Notes           string     `json:"notes" db:"notes"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name" validate:"required"`
	Role     string `json:"role" validate:"omitempty,oneof=student teacher"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	AccessToken string `json:"access_token"`
	User        User   `json:"user"`
}

type SetupAdminRequest struct {
	SetupKey string `json:"setup_key" validate:"required"`
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name" validate:"required"`
}

type CreateBookRequest struct {
	Title       string `json:"title" validate:"required"`
	Author      string `json:"author" validate:"required"`
	Genre       string `json:"genre" validate:"required"`
	Year        int    `json:"year" validate:"required"`
	ISBN        string `json:"isbn" validate:"required"`
	Description string `json:"description" validate:"required"`
	Cover       string `json:"cover"`
	RoomNumber  string `json:"room_number"`
	Available   *bool  `json:"available"`
}

// UpdateBookRequest carries a partial update; nil fields are untouched.
type UpdateBookRequest struct {
	Title       *string `json:"title"`
	Author      *string `json:"author"`
	Genre       *string `json:"genre"`
	Year        *int    `json:"year"`
	Description *string `json:"description"`
	Cover       *string `json:"cover"`
	RoomNumber  *string `json:"room_number"`
	Available   *bool   `json:"available"`
}

type BookFilter struct {
	Genre         string
	Search        string
	AvailableOnly bool
}

type CreateReservationRequest struct {
	BookID     int        `json:"book_id" validate:"required"`
	UserPhone  string     `json:"user_phone"`
	PickupDate *time.Time `json:"pickup_date"`
	Notes      string     `json:"notes"`
}

type UpdateReservationRequest struct {
	Status     *Status    `json:"status" validate:"omitempty,oneof=pending picked_up cancelled expired"`
	PickupDate *time.Time `json:"pickup_date"`
	Notes      *string    `json:"notes"`
}

type ReservationFilter struct {
	Status    Status
	BookID    int
	UserEmail string
	// UserID restricts results to the owner; set for student callers.
	UserID int
}

// ReservationEvent is the lifecycle message published to Kafka on every
// reservation transition.
type ReservationEvent struct {
	EventID       string    `json:"event_id"`
	Type          string    `json:"type"`
	ReservationID int       `json:"reservation_id"`
	BookID        int       `json:"book_id"`
	UserID        int       `json:"user_id"`
	Status        Status    `json:"status"`
	OccurredAt    time.Time `json:"occurred_at"`
}

const (
	EventReservationCreated   = "reservation.created"
	EventReservationPickedUp  = "reservation.picked_up"
	EventReservationCancelled = "reservation.cancelled"
	EventReservationExpired   = "reservation.expired"
)
