package repository

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/virtuallib/catalog-service/internal/model"
)

type Repository interface {
	ListBooks(ctx context.Context, filter model.BookFilter) ([]model.Book, error)
	GetBook(ctx context.Context, id int) (model.Book, error)
	CreateBook(ctx context.Context, book model.Book) (model.Book, error)
	UpdateBook(ctx context.Context, id int, req model.UpdateBookRequest) (model.Book, error)
	DeleteBook(ctx context.Context, id int) error
	ListGenres(ctx context.Context) ([]string, error)

	CreateUser(ctx context.Context, user model.User) (model.User, error)
	GetUserByUsername(ctx context.Context, username string) (model.User, error)
	GetUserByID(ctx context.Context, id int) (model.User, error)
	HasTeacher(ctx context.Context) (bool, error)

	ListReservations(ctx context.Context, filter model.ReservationFilter) ([]model.Reservation, error)
	GetReservation(ctx context.Context, id int) (model.Reservation, error)
	CreateReservation(ctx context.Context, req model.CreateReservationRequest, user model.User) (model.Reservation, error)
	TransitionReservation(ctx context.Context, id int, to model.Status) (model.Reservation, error)
	UpdateReservationDetails(ctx context.Context, id int, pickupDate *time.Time, notes *string) (model.Reservation, error)
	DeleteReservation(ctx context.Context, id int) error
	ExpireOverdue(ctx context.Context, cutoff time.Time) ([]model.Reservation, error)

	InsertReservationEvent(ctx context.Context, ev model.ReservationEvent) error
}

type repository struct {
	db  *sqlx.DB
	log *zap.Logger
}

func NewRepository(db *sqlx.DB, log *zap.Logger) (*repository, error) {
	return &repository{
		db:  db,
		log: log.Named("repo"),
	}, nil
}

const (
	booksTableName             = `books`
	usersTableName             = `users`
	reservationTableName       = `reservations`
	reservationEventsTableName = `reservation_events`
)

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
