package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/virtuallib/catalog-service/internal/errs"
	"github.com/virtuallib/catalog-service/internal/model"
	"github.com/virtuallib/catalog-service/internal/service"
	"github.com/virtuallib/catalog-service/pkg/auth"
)

// fakeRepo implements repository.Repository with overridable funcs so each
// test stubs only the calls it expects.
type fakeRepo struct {
	listBooks                func(ctx context.Context, filter model.BookFilter) ([]model.Book, error)
	getBook                  func(ctx context.Context, id int) (model.Book, error)
	createBook               func(ctx context.Context, book model.Book) (model.Book, error)
	updateBook               func(ctx context.Context, id int, req model.UpdateBookRequest) (model.Book, error)
	deleteBook               func(ctx context.Context, id int) error
	listGenres               func(ctx context.Context) ([]string, error)
	createUser               func(ctx context.Context, user model.User) (model.User, error)
	getUserByUsername        func(ctx context.Context, username string) (model.User, error)
	getUserByID              func(ctx context.Context, id int) (model.User, error)
	hasTeacher               func(ctx context.Context) (bool, error)
	listReservations         func(ctx context.Context, filter model.ReservationFilter) ([]model.Reservation, error)
	getReservation           func(ctx context.Context, id int) (model.Reservation, error)
	createReservation        func(ctx context.Context, req model.CreateReservationRequest, user model.User) (model.Reservation, error)
	transitionReservation    func(ctx context.Context, id int, to model.Status) (model.Reservation, error)
	updateReservationDetails func(ctx context.Context, id int, pickupDate *time.Time, notes *string) (model.Reservation, error)
	deleteReservation        func(ctx context.Context, id int) error
	expireOverdue            func(ctx context.Context, cutoff time.Time) ([]model.Reservation, error)
	insertReservationEvent   func(ctx context.Context, ev model.ReservationEvent) error
}

var errUnexpectedCall = errors.New("unexpected repository call")

func (f *fakeRepo) ListBooks(ctx context.Context, filter model.BookFilter) ([]model.Book, error) {
	if f.listBooks == nil {
		return nil, errUnexpectedCall
	}
	return f.listBooks(ctx, filter)
}

func (f *fakeRepo) GetBook(ctx context.Context, id int) (model.Book, error) {
	if f.getBook == nil {
		return model.Book{}, errUnexpectedCall
	}
	return f.getBook(ctx, id)
}

func (f *fakeRepo) CreateBook(ctx context.Context, book model.Book) (model.Book, error) {
	if f.createBook == nil {
		return model.Book{}, errUnexpectedCall
	}
	return f.createBook(ctx, book)
}

func (f *fakeRepo) UpdateBook(ctx context.Context, id int, req model.UpdateBookRequest) (model.Book, error) {
	if f.updateBook == nil {
		return model.Book{}, errUnexpectedCall
	}
	return f.updateBook(ctx, id, req)
}

func (f *fakeRepo) DeleteBook(ctx context.Context, id int) error {
	if f.deleteBook == nil {
		return errUnexpectedCall
	}
	return f.deleteBook(ctx, id)
}

func (f *fakeRepo) ListGenres(ctx context.Context) ([]string, error) {
	if f.listGenres == nil {
		return nil, errUnexpectedCall
	}
	return f.listGenres(ctx)
}

func (f *fakeRepo) CreateUser(ctx context.Context, user model.User) (model.User, error) {
	if f.createUser == nil {
		return model.User{}, errUnexpectedCall
	}
	return f.createUser(ctx, user)
}

func (f *fakeRepo) GetUserByUsername(ctx context.Context, username string) (model.User, error) {
	if f.getUserByUsername == nil {
		return model.User{}, errUnexpectedCall
	}
	return f.getUserByUsername(ctx, username)
}

func (f *fakeRepo) GetUserByID(ctx context.Context, id int) (model.User, error) {
	if f.getUserByID == nil {
		return model.User{}, errUnexpectedCall
	}
	return f.getUserByID(ctx, id)
}

func (f *fakeRepo) HasTeacher(ctx context.Context) (bool, error) {
	if f.hasTeacher == nil {
		return false, errUnexpectedCall
	}
	return f.hasTeacher(ctx)
}

func (f *fakeRepo) ListReservations(ctx context.Context, filter model.ReservationFilter) ([]model.Reservation, error) {
	if f.listReservations == nil {
		return nil, errUnexpectedCall
	}
	return f.listReservations(ctx, filter)
}

func (f *fakeRepo) GetReservation(ctx context.Context, id int) (model.Reservation, error) {
	if f.getReservation == nil {
		return model.Reservation{}, errUnexpectedCall
	}
	return f.getReservation(ctx, id)
}

func (f *fakeRepo) CreateReservation(ctx context.Context, req model.CreateReservationRequest, user model.User) (model.Reservation, error) {
	if f.createReservation == nil {
		return model.Reservation{}, errUnexpectedCall
	}
	return f.createReservation(ctx, req, user)
}

func (f *fakeRepo) TransitionReservation(ctx context.Context, id int, to model.Status) (model.Reservation, error) {
	if f.transitionReservation == nil {
		return model.Reservation{}, errUnexpectedCall
	}
	return f.transitionReservation(ctx, id, to)
}

func (f *fakeRepo) UpdateReservationDetails(ctx context.Context, id int, pickupDate *time.Time, notes *string) (model.Reservation, error) {
	if f.updateReservationDetails == nil {
		return model.Reservation{}, errUnexpectedCall
	}
	return f.updateReservationDetails(ctx, id, pickupDate, notes)
}

func (f *fakeRepo) DeleteReservation(ctx context.Context, id int) error {
	if f.deleteReservation == nil {
		return errUnexpectedCall
	}
	return f.deleteReservation(ctx, id)
}

func (f *fakeRepo) ExpireOverdue(ctx context.Context, cutoff time.Time) ([]model.Reservation, error) {
	if f.expireOverdue == nil {
		return nil, errUnexpectedCall
	}
	return f.expireOverdue(ctx, cutoff)
}

func (f *fakeRepo) InsertReservationEvent(ctx context.Context, ev model.ReservationEvent) error {
	if f.insertReservationEvent == nil {
		return errUnexpectedCall
	}
	return f.insertReservationEvent(ctx, ev)
}

func newService(repo *fakeRepo, cfg service.Config) *service.Service {
	return service.NewService(repo, nil, cfg, zap.NewNop())
}

var (
	studentActor = auth.Identity{UserID: 42, Username: "ana", Role: auth.RoleStudent, Email: "ana@school.edu"}
	teacherActor = auth.Identity{UserID: 7, Username: "petrova", Role: auth.RoleTeacher, Email: "petrova@school.edu"}
)

func TestService_Register(t *testing.T) {
	t.Parallel()
	req := model.RegisterRequest{
		Username: "ana",
		Email:    "ana@school.edu",
		Password: "correct-horse",
		FullName: "Ana Ivanova",
	}

	t.Run("defaults to student and hashes the password", func(t *testing.T) {
		t.Parallel()
		var created model.User
		repo := &fakeRepo{
			createUser: func(_ context.Context, user model.User) (model.User, error) {
				created = user
				user.ID = 42
				return user, nil
			},
		}
		svc := newService(repo, service.Config{})

		user, err := svc.Register(context.Background(), req, nil)
		require.NoError(t, err)
		require.Equal(t, 42, user.ID)
		require.Equal(t, auth.RoleStudent, created.Role)
		require.NotEqual(t, req.Password, created.PasswordHash)
		require.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte(req.Password)))
	})

	t.Run("teacher role without caller is forbidden", func(t *testing.T) {
		t.Parallel()
		svc := newService(&fakeRepo{}, service.Config{})

		teacherReq := req
		teacherReq.Role = auth.RoleTeacher
		_, err := svc.Register(context.Background(), teacherReq, nil)
		require.ErrorIs(t, err, errs.ErrForbidden)
	})

	t.Run("teacher role with student caller is forbidden", func(t *testing.T) {
		t.Parallel()
		svc := newService(&fakeRepo{}, service.Config{})

		teacherReq := req
		teacherReq.Role = auth.RoleTeacher
		_, err := svc.Register(context.Background(), teacherReq, &studentActor)
		require.ErrorIs(t, err, errs.ErrForbidden)
	})

	t.Run("teacher caller may create teacher accounts", func(t *testing.T) {
		t.Parallel()
		repo := &fakeRepo{
			createUser: func(_ context.Context, user model.User) (model.User, error) {
				require.Equal(t, auth.RoleTeacher, user.Role)
				user.ID = 8
				return user, nil
			},
		}
		svc := newService(repo, service.Config{})

		teacherReq := req
		teacherReq.Role = auth.RoleTeacher
		user, err := svc.Register(context.Background(), teacherReq, &teacherActor)
		require.NoError(t, err)
		require.Equal(t, 8, user.ID)
	})
}

func TestService_Login(t *testing.T) {
	t.Parallel()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	stored := model.User{ID: 42, Username: "ana", PasswordHash: string(hash), Role: auth.RoleStudent, Active: true}

	tests := []struct {
		name    string
		user    model.User
		userErr error
		req     model.LoginRequest
		wantErr error
	}{
		{
			name: "ok",
			user: stored,
			req:  model.LoginRequest{Username: "ana", Password: "correct-horse"},
		},
		{
			name:    "unknown username",
			userErr: errs.ErrNotFound,
			req:     model.LoginRequest{Username: "ghost", Password: "correct-horse"},
			wantErr: errs.ErrInvalidCredentials,
		},
		{
			name:    "wrong password",
			user:    stored,
			req:     model.LoginRequest{Username: "ana", Password: "wrong"},
			wantErr: errs.ErrInvalidCredentials,
		},
		{
			name: "inactive account",
			user: model.User{ID: 42, Username: "ana", PasswordHash: string(hash), Active: false},
			req:  model.LoginRequest{Username: "ana", Password: "correct-horse"},
			wantErr: errs.ErrInvalidCredentials,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			repo := &fakeRepo{
				getUserByUsername: func(_ context.Context, username string) (model.User, error) {
					if tt.userErr != nil {
						return model.User{}, tt.userErr
					}
					return tt.user, nil
				},
			}
			svc := newService(repo, service.Config{})

			user, err := svc.Login(context.Background(), tt.req)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, 42, user.ID)
		})
	}
}

func TestService_SetupAdmin(t *testing.T) {
	t.Parallel()
	req := model.SetupAdminRequest{
		SetupKey: "school-2024",
		Username: "petrova",
		Email:    "petrova@school.edu",
		Password: "correct-horse",
		FullName: "E. Petrova",
	}

	t.Run("ok", func(t *testing.T) {
		t.Parallel()
		repo := &fakeRepo{
			hasTeacher: func(context.Context) (bool, error) { return false, nil },
			createUser: func(_ context.Context, user model.User) (model.User, error) {
				require.Equal(t, auth.RoleTeacher, user.Role)
				user.ID = 1
				return user, nil
			},
		}
		svc := newService(repo, service.Config{SetupKey: "school-2024"})

		user, err := svc.SetupAdmin(context.Background(), req)
		require.NoError(t, err)
		require.Equal(t, 1, user.ID)
	})

	t.Run("wrong key", func(t *testing.T) {
		t.Parallel()
		svc := newService(&fakeRepo{}, service.Config{SetupKey: "school-2024"})

		bad := req
		bad.SetupKey = "guess"
		_, err := svc.SetupAdmin(context.Background(), bad)
		require.ErrorIs(t, err, errs.ErrForbidden)
	})

	t.Run("disabled when no key configured", func(t *testing.T) {
		t.Parallel()
		svc := newService(&fakeRepo{}, service.Config{})

		empty := req
		empty.SetupKey = ""
		_, err := svc.SetupAdmin(context.Background(), empty)
		require.ErrorIs(t, err, errs.ErrForbidden)
	})

	t.Run("teacher already exists", func(t *testing.T) {
		t.Parallel()
		repo := &fakeRepo{
			hasTeacher: func(context.Context) (bool, error) { return true, nil },
		}
		svc := newService(repo, service.Config{SetupKey: "school-2024"})

		_, err := svc.SetupAdmin(context.Background(), req)
		require.ErrorIs(t, err, errs.ErrDuplicate)
	})
}

func TestService_CreateBook(t *testing.T) {
	t.Parallel()
	req := model.CreateBookRequest{
		Title:       "Dune",
		Author:      "Frank Herbert",
		Genre:       "fantasy",
		Year:        1965,
		ISBN:        "9780441172719",
		Description: "Desert planet epic",
	}

	t.Run("available defaults to true", func(t *testing.T) {
		t.Parallel()
		repo := &fakeRepo{
			createBook: func(_ context.Context, book model.Book) (model.Book, error) {
				require.True(t, book.Available)
				book.ID = 1
				return book, nil
			},
		}
		svc := newService(repo, service.Config{})

		book, err := svc.CreateBook(context.Background(), req)
		require.NoError(t, err)
		require.Equal(t, 1, book.ID)
	})

	t.Run("explicit availability wins", func(t *testing.T) {
		t.Parallel()
		repo := &fakeRepo{
			createBook: func(_ context.Context, book model.Book) (model.Book, error) {
				require.False(t, book.Available)
				return book, nil
			},
		}
		svc := newService(repo, service.Config{})

		unavailable := false
		withFlag := req
		withFlag.Available = &unavailable
		_, err := svc.CreateBook(context.Background(), withFlag)
		require.NoError(t, err)
	})
}

func TestService_UpdateReservation_Transitions(t *testing.T) {
	t.Parallel()
	status := func(s model.Status) *model.Status { return &s }

	tests := []struct {
		name    string
		current model.Reservation
		to      *model.Status
		actor   auth.Identity
		frees   bool
		wantErr error
	}{
		{
			name:    "teacher marks pending picked up",
			current: model.Reservation{ID: 10, UserID: 42, Status: model.StatusPending},
			to:      status(model.StatusPickedUp),
			actor:   teacherActor,
			frees:   false,
		},
		{
			name:    "student cannot mark picked up",
			current: model.Reservation{ID: 10, UserID: 42, Status: model.StatusPending},
			to:      status(model.StatusPickedUp),
			actor:   studentActor,
			wantErr: errs.ErrForbidden,
		},
		{
			name:    "owner cancels own pending",
			current: model.Reservation{ID: 10, UserID: 42, Status: model.StatusPending},
			to:      status(model.StatusCancelled),
			actor:   studentActor,
			frees:   true,
		},
		{
			name:    "teacher cannot cancel someone else's",
			current: model.Reservation{ID: 10, UserID: 42, Status: model.StatusPending},
			to:      status(model.StatusCancelled),
			actor:   teacherActor,
			wantErr: errs.ErrForbidden,
		},
		{
			name:    "picked up is terminal",
			current: model.Reservation{ID: 10, UserID: 42, Status: model.StatusPickedUp},
			to:      status(model.StatusCancelled),
			actor:   studentActor,
			wantErr: errs.ErrTerminalState,
		},
		{
			name:    "cancelled is terminal",
			current: model.Reservation{ID: 10, UserID: 42, Status: model.StatusCancelled},
			to:      status(model.StatusPickedUp),
			actor:   teacherActor,
			wantErr: errs.ErrTerminalState,
		},
		{
			name:    "expired is terminal",
			current: model.Reservation{ID: 10, UserID: 42, Status: model.StatusExpired},
			to:      status(model.StatusPickedUp),
			actor:   teacherActor,
			wantErr: errs.ErrTerminalState,
		},
		{
			name:    "nobody may set expired by hand",
			current: model.Reservation{ID: 10, UserID: 42, Status: model.StatusPending},
			to:      status(model.StatusExpired),
			actor:   teacherActor,
			wantErr: errs.ErrForbidden,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var gotTo model.Status
			repo := &fakeRepo{
				getReservation: func(_ context.Context, id int) (model.Reservation, error) {
					return tt.current, nil
				},
				transitionReservation: func(_ context.Context, id int, to model.Status) (model.Reservation, error) {
					gotTo = to
					res := tt.current
					res.Status = to
					return res, nil
				},
			}
			svc := newService(repo, service.Config{ReservationTTL: 72 * time.Hour})

			req := model.UpdateReservationRequest{Status: tt.to}
			res, err := svc.UpdateReservation(context.Background(), 10, req, tt.actor)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				require.Empty(t, gotTo, "rejected transition must not reach the repository")
				return
			}
			require.NoError(t, err)
			require.Equal(t, *tt.to, res.Status)
			require.Equal(t, *tt.to, gotTo)
			// cancelling frees the book, pickup keeps it checked out
			require.Equal(t, tt.frees, gotTo.FreesBook())
		})
	}
}

func TestService_UpdateReservation_Details(t *testing.T) {
	t.Parallel()
	notes := "will pick up Friday"

	t.Run("owner updates notes", func(t *testing.T) {
		t.Parallel()
		repo := &fakeRepo{
			getReservation: func(_ context.Context, id int) (model.Reservation, error) {
				return model.Reservation{ID: 10, UserID: 42, Status: model.StatusPending}, nil
			},
			updateReservationDetails: func(_ context.Context, id int, pickupDate *time.Time, got *string) (model.Reservation, error) {
				require.Nil(t, pickupDate)
				require.Equal(t, notes, *got)
				return model.Reservation{ID: 10, UserID: 42, Status: model.StatusPending, Notes: *got}, nil
			},
		}
		svc := newService(repo, service.Config{})

		res, err := svc.UpdateReservation(context.Background(), 10, model.UpdateReservationRequest{Notes: &notes}, studentActor)
		require.NoError(t, err)
		require.Equal(t, notes, res.Notes)
	})

	t.Run("stranger cannot touch details", func(t *testing.T) {
		t.Parallel()
		repo := &fakeRepo{
			getReservation: func(_ context.Context, id int) (model.Reservation, error) {
				return model.Reservation{ID: 10, UserID: 99, Status: model.StatusPending}, nil
			},
		}
		svc := newService(repo, service.Config{})

		_, err := svc.UpdateReservation(context.Background(), 10, model.UpdateReservationRequest{Notes: &notes}, studentActor)
		require.ErrorIs(t, err, errs.ErrForbidden)
	})
}

func TestService_ListReservations(t *testing.T) {
	t.Parallel()

	t.Run("student is pinned to own reservations after the sweep", func(t *testing.T) {
		t.Parallel()
		swept := false
		repo := &fakeRepo{
			expireOverdue: func(_ context.Context, cutoff time.Time) ([]model.Reservation, error) {
				swept = true
				require.WithinDuration(t, time.Now().UTC().Add(-72*time.Hour), cutoff, time.Minute)
				return nil, nil
			},
			listReservations: func(_ context.Context, filter model.ReservationFilter) ([]model.Reservation, error) {
				require.True(t, swept)
				require.Equal(t, studentActor.UserID, filter.UserID)
				return []model.Reservation{{ID: 10, UserID: studentActor.UserID}}, nil
			},
		}
		svc := newService(repo, service.Config{ReservationTTL: 72 * time.Hour})

		items, err := svc.ListReservations(context.Background(), model.ReservationFilter{}, studentActor)
		require.NoError(t, err)
		require.Len(t, items, 1)
	})

	t.Run("teacher filter passes through untouched", func(t *testing.T) {
		t.Parallel()
		repo := &fakeRepo{
			expireOverdue: func(_ context.Context, cutoff time.Time) ([]model.Reservation, error) {
				return nil, nil
			},
			listReservations: func(_ context.Context, filter model.ReservationFilter) ([]model.Reservation, error) {
				require.Zero(t, filter.UserID)
				require.Equal(t, model.StatusPending, filter.Status)
				return nil, nil
			},
		}
		svc := newService(repo, service.Config{ReservationTTL: 72 * time.Hour})

		_, err := svc.ListReservations(context.Background(), model.ReservationFilter{Status: model.StatusPending}, teacherActor)
		require.NoError(t, err)
	})
}

func TestService_GetReservation(t *testing.T) {
	t.Parallel()
	repo := &fakeRepo{
		getReservation: func(_ context.Context, id int) (model.Reservation, error) {
			return model.Reservation{ID: 10, UserID: 99}, nil
		},
	}
	svc := newService(repo, service.Config{})

	_, err := svc.GetReservation(context.Background(), 10, studentActor)
	require.ErrorIs(t, err, errs.ErrForbidden)

	res, err := svc.GetReservation(context.Background(), 10, teacherActor)
	require.NoError(t, err)
	require.Equal(t, 10, res.ID)
}

func TestService_DeleteReservation(t *testing.T) {
	t.Parallel()
	deleted := 0
	repo := &fakeRepo{
		getReservation: func(_ context.Context, id int) (model.Reservation, error) {
			return model.Reservation{ID: 10, UserID: 42}, nil
		},
		deleteReservation: func(_ context.Context, id int) error {
			deleted++
			return nil
		},
	}
	svc := newService(repo, service.Config{})

	require.NoError(t, svc.DeleteReservation(context.Background(), 10, studentActor))
	require.Equal(t, 1, deleted)

	stranger := auth.Identity{UserID: 77, Role: auth.RoleStudent}
	err := svc.DeleteReservation(context.Background(), 10, stranger)
	require.ErrorIs(t, err, errs.ErrForbidden)
}

func TestService_ExpireOverdue(t *testing.T) {
	t.Parallel()
	repo := &fakeRepo{
		expireOverdue: func(_ context.Context, cutoff time.Time) ([]model.Reservation, error) {
			return []model.Reservation{
				{ID: 1, Status: model.StatusExpired},
				{ID: 2, Status: model.StatusExpired},
			}, nil
		},
	}
	svc := newService(repo, service.Config{ReservationTTL: 72 * time.Hour})

	n, err := svc.ExpireOverdue(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, n)
}
