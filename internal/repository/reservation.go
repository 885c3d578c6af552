package repository

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/virtuallib/catalog-service/internal/errs"
	"github.com/virtuallib/catalog-service/internal/model"
)

var reservationColumns = []string{"id", "book_id", "user_id", "user_name", "user_email", "user_phone", "reservation_date", "pickup_date", "status", "notes", "created_at"}

func (r *repository) ListReservations(ctx context.Context, filter model.ReservationFilter) ([]model.Reservation, error) {
	q := qb.Select(reservationColumns...).
		From(reservationTableName).
		OrderBy("reservation_date desc")

	if filter.Status != "" {
		q = q.Where(sq.Eq{"status": filter.Status})
	}
	if filter.BookID != 0 {
		q = q.Where(sq.Eq{"book_id": filter.BookID})
	}
	if filter.UserEmail != "" {
		q = q.Where(sq.Eq{"user_email": filter.UserEmail})
	}
	if filter.UserID != 0 {
		q = q.Where(sq.Eq{"user_id": filter.UserID})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	r.log.Debug("ListReservations", zap.String("query", query), zap.Any("args", args))

	items := make([]model.Reservation, 0)
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, err
	}
	if err := r.attachBooks(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) GetReservation(ctx context.Context, id int) (model.Reservation, error) {
	query, args, err := qb.Select(reservationColumns...).
		From(reservationTableName).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.Reservation{}, err
	}

	var res model.Reservation
	if err := r.db.GetContext(ctx, &res, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Reservation{}, errs.ErrNotFound
		}
		return model.Reservation{}, err
	}
	if book, err := r.GetBook(ctx, res.BookID); err == nil {
		res.Book = &book
	}
	return res, nil
}

// CreateReservation atomically checks the entry guards (book available, no
// pending reservation held by the requester), inserts the reservation and
// flips the book to unavailable.
func (r *repository) CreateReservation(ctx context.Context, req model.CreateReservationRequest, user model.User) (model.Reservation, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.Reservation{}, err
	}
	defer tx.Rollback() //nolint:errcheck

	var book model.Book
	if err := tx.GetContext(ctx, &book,
		`select * from books where id = $1 for update`, req.BookID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Reservation{}, errs.ErrNotFound
		}
		return model.Reservation{}, err
	}
	if !book.Available {
		return model.Reservation{}, errs.ErrBookUnavailable
	}

	var active struct {
		ID    int    `db:"id"`
		Title string `db:"title"`
	}
	err = tx.GetContext(ctx, &active, `
	select r.id, b.title from reservations r
	join books b on b.id = r.book_id
	where r.user_id = $1 and r.status = $2
	limit 1`, user.ID, model.StatusPending)
	switch {
	case err == nil:
		return model.Reservation{}, &errs.ActiveReservationError{ReservationID: active.ID, BookTitle: active.Title}
	case !errors.Is(err, sql.ErrNoRows):
		return model.Reservation{}, err
	}

	query, args, err := qb.Insert(reservationTableName).
		Columns("book_id", "user_id", "user_name", "user_email", "user_phone", "pickup_date", "notes", "status", "reservation_date").
		Values(req.BookID, user.ID, user.FullName, user.Email, req.UserPhone, req.PickupDate, req.Notes, model.StatusPending, time.Now().UTC()).
		Suffix("returning *").
		ToSql()
	if err != nil {
		return model.Reservation{}, err
	}

	var res model.Reservation
	if err := tx.GetContext(ctx, &res, query, args...); err != nil {
		if isUniqueViolation(err) {
			// uniq_pending_reservation_per_user tripped by a concurrent create
			return model.Reservation{}, &errs.ActiveReservationError{}
		}
		r.log.Error("CreateReservation", zap.String("q", query), zap.Any("args", args))
		return model.Reservation{}, err
	}

	if _, err := tx.ExecContext(ctx,
		`update books set available = false where id = $1`, req.BookID); err != nil {
		return model.Reservation{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Reservation{}, err
	}

	book.Available = false
	res.Book = &book
	return res, nil
}

// TransitionReservation moves a pending reservation to a terminal status and
// frees the book when the status calls for it. Leaving a terminal state is
// refused at the row level.
func (r *repository) TransitionReservation(ctx context.Context, id int, to model.Status) (model.Reservation, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.Reservation{}, err
	}
	defer tx.Rollback() //nolint:errcheck

	var res model.Reservation
	if err := tx.GetContext(ctx, &res,
		`select * from reservations where id = $1 for update`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Reservation{}, errs.ErrNotFound
		}
		return model.Reservation{}, err
	}
	if res.Status.Terminal() {
		return model.Reservation{}, errs.ErrTerminalState
	}

	if err := tx.GetContext(ctx, &res, `
	update reservations set status = $2 where id = $1
	returning *`, id, to); err != nil {
		return model.Reservation{}, err
	}

	if to.FreesBook() {
		if _, err := tx.ExecContext(ctx,
			`update books set available = true where id = $1`, res.BookID); err != nil {
			return model.Reservation{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return model.Reservation{}, err
	}

	if book, err := r.GetBook(ctx, res.BookID); err == nil {
		res.Book = &book
	}
	return res, nil
}

func (r *repository) UpdateReservationDetails(ctx context.Context, id int, pickupDate *time.Time, notes *string) (model.Reservation, error) {
	q := qb.Update(reservationTableName).
		Where(sq.Eq{"id": id}).
		Suffix("returning *")

	set := 0
	if pickupDate != nil {
		q = q.Set("pickup_date", *pickupDate)
		set++
	}
	if notes != nil {
		q = q.Set("notes", *notes)
		set++
	}
	if set == 0 {
		return r.GetReservation(ctx, id)
	}

	query, args, err := q.ToSql()
	if err != nil {
		return model.Reservation{}, err
	}

	var res model.Reservation
	if err := r.db.GetContext(ctx, &res, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Reservation{}, errs.ErrNotFound
		}
		return model.Reservation{}, err
	}
	if book, err := r.GetBook(ctx, res.BookID); err == nil {
		res.Book = &book
	}
	return res, nil
}

func (r *repository) DeleteReservation(ctx context.Context, id int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	var deleted struct {
		BookID int          `db:"book_id"`
		Status model.Status `db:"status"`
	}
	if err := tx.GetContext(ctx, &deleted,
		`delete from reservations where id = $1 returning book_id, status`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errs.ErrNotFound
		}
		return err
	}

	// only a reservation that still held the book frees it
	if !deleted.Status.FreesBook() {
		if _, err := tx.ExecContext(ctx,
			`update books set available = true where id = $1`, deleted.BookID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ExpireOverdue flips pending reservations created before cutoff to expired
// and frees their books. Returns the expired rows for event publishing.
func (r *repository) ExpireOverdue(ctx context.Context, cutoff time.Time) ([]model.Reservation, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() //nolint:errcheck

	expired := make([]model.Reservation, 0)
	if err := tx.SelectContext(ctx, &expired, `
	update reservations set status = $1
	where status = $2 and reservation_date < $3
	returning *`, model.StatusExpired, model.StatusPending, cutoff); err != nil {
		return nil, err
	}
	if len(expired) == 0 {
		return nil, tx.Rollback()
	}

	bookIDs := make([]int, 0, len(expired))
	for _, res := range expired {
		bookIDs = append(bookIDs, res.BookID)
	}
	query, args, err := sqlx.In(`update books set available = true where id in (?)`, bookIDs)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return expired, nil
}

func (r *repository) InsertReservationEvent(ctx context.Context, ev model.ReservationEvent) error {
	query, args, err := qb.Insert(reservationEventsTableName).
		Columns("event_id", "event_type", "reservation_id", "book_id", "user_id", "status", "occurred_at").
		Values(ev.EventID, ev.Type, ev.ReservationID, ev.BookID, ev.UserID, ev.Status, ev.OccurredAt).
		Suffix("on conflict (event_id) do nothing").
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}

// attachBooks resolves the book snapshots referenced by a reservation list.
func (r *repository) attachBooks(ctx context.Context, items []model.Reservation) error {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[int]struct{}, len(items))
	ids := make([]int, 0, len(items))
	for _, res := range items {
		if _, ok := seen[res.BookID]; !ok {
			seen[res.BookID] = struct{}{}
			ids = append(ids, res.BookID)
		}
	}

	query, args, err := qb.Select(bookColumns...).
		From(booksTableName).
		Where(sq.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return err
	}
	var books []model.Book
	if err := r.db.SelectContext(ctx, &books, query, args...); err != nil {
		return err
	}

	byID := make(map[int]model.Book, len(books))
	for _, b := range books {
		byID[b.ID] = b
	}
	for i := range items {
		if b, ok := byID[items[i].BookID]; ok {
			book := b
			items[i].Book = &book
		}
	}
	return nil
}
