package handler

import (
	"context"

	"github.com/virtuallib/catalog-service/internal/model"
	"github.com/virtuallib/catalog-service/pkg/auth"
)

//go:generate mockgen -source=service.go -destination=mocks/mock.go

type CatalogService interface {
	ListBooks(ctx context.Context, filter model.BookFilter) ([]model.Book, error)
	GetBook(ctx context.Context, id int) (model.Book, error)
	CreateBook(ctx context.Context, req model.CreateBookRequest) (model.Book, error)
	UpdateBook(ctx context.Context, id int, req model.UpdateBookRequest) (model.Book, error)
	DeleteBook(ctx context.Context, id int) error
	ListGenres(ctx context.Context) ([]string, error)
}

type AuthService interface {
	Register(ctx context.Context, req model.RegisterRequest, actor *auth.Identity) (model.User, error)
	Login(ctx context.Context, req model.LoginRequest) (model.User, error)
	CurrentUser(ctx context.Context, userID int) (model.User, error)
	SetupAdmin(ctx context.Context, req model.SetupAdminRequest) (model.User, error)
}

type ReservationService interface {
	ListReservations(ctx context.Context, filter model.ReservationFilter, actor auth.Identity) ([]model.Reservation, error)
	GetReservation(ctx context.Context, id int, actor auth.Identity) (model.Reservation, error)
	CreateReservation(ctx context.Context, req model.CreateReservationRequest, actor auth.Identity) (model.Reservation, error)
	UpdateReservation(ctx context.Context, id int, req model.UpdateReservationRequest, actor auth.Identity) (model.Reservation, error)
	DeleteReservation(ctx context.Context, id int, actor auth.Identity) error
}
