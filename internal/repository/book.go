package repository

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/virtuallib/catalog-service/internal/errs"
	"github.com/virtuallib/catalog-service/internal/model"
)

var bookColumns = []string{"id", "title", "author", "genre", "year", "isbn", "description", "cover", "room_number", "available", "created_at"}

func (r *repository) ListBooks(ctx context.Context, filter model.BookFilter) ([]model.Book, error) {
	q := qb.Select(bookColumns...).
		From(booksTableName).
		OrderBy("id")

	if filter.Genre != "" {
		q = q.Where(sq.Eq{"genre": filter.Genre})
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where(sq.Or{
			sq.ILike{"title": pattern},
			sq.ILike{"author": pattern},
		})
	}
	if filter.AvailableOnly {
		q = q.Where(sq.Eq{"available": true})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	r.log.Debug("ListBooks", zap.String("query", query), zap.Any("args", args))

	books := make([]model.Book, 0)
	if err := r.db.SelectContext(ctx, &books, query, args...); err != nil {
		return nil, err
	}
	return books, nil
}

func (r *repository) GetBook(ctx context.Context, id int) (model.Book, error) {
	query, args, err := qb.Select(bookColumns...).
		From(booksTableName).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.Book{}, err
	}

	var book model.Book
	if err := r.db.GetContext(ctx, &book, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Book{}, errs.ErrNotFound
		}
		return model.Book{}, err
	}
	return book, nil
}

func (r *repository) CreateBook(ctx context.Context, book model.Book) (model.Book, error) {
	query, args, err := qb.Insert(booksTableName).
		Columns("title", "author", "genre", "year", "isbn", "description", "cover", "room_number", "available").
		Values(book.Title, book.Author, book.Genre, book.Year, book.ISBN, book.Description, book.Cover, book.RoomNumber, book.Available).
		Suffix("returning *").
		ToSql()
	if err != nil {
		return model.Book{}, err
	}

	var created model.Book
	if err := r.db.GetContext(ctx, &created, query, args...); err != nil {
		if isUniqueViolation(err) {
			return model.Book{}, errors.Wrap(errs.ErrDuplicate, "book with this ISBN")
		}
		r.log.Error("CreateBook", zap.String("q", query), zap.Any("args", args))
		return model.Book{}, err
	}
	return created, nil
}

func (r *repository) UpdateBook(ctx context.Context, id int, req model.UpdateBookRequest) (model.Book, error) {
	q := qb.Update(booksTableName).
		Where(sq.Eq{"id": id}).
		Suffix("returning *")

	set := 0
	apply := func(column string, v interface{}) {
		q = q.Set(column, v)
		set++
	}
	if req.Title != nil {
		apply("title", *req.Title)
	}
	if req.Author != nil {
		apply("author", *req.Author)
	}
	if req.Genre != nil {
		apply("genre", *req.Genre)
	}
	if req.Year != nil {
		apply("year", *req.Year)
	}
	if req.Description != nil {
		apply("description", *req.Description)
	}
	if req.Cover != nil {
		apply("cover", *req.Cover)
	}
	if req.RoomNumber != nil {
		apply("room_number", *req.RoomNumber)
	}
	if req.Available != nil {
		apply("available", *req.Available)
	}
	if set == 0 {
		return r.GetBook(ctx, id)
	}

	query, args, err := q.ToSql()
	if err != nil {
		return model.Book{}, err
	}

	var book model.Book
	if err := r.db.GetContext(ctx, &book, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Book{}, errs.ErrNotFound
		}
		return model.Book{}, err
	}
	return book, nil
}

func (r *repository) DeleteBook(ctx context.Context, id int) error {
	query, args, err := qb.Delete(booksTableName).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *repository) ListGenres(ctx context.Context) ([]string, error) {
	q := `select distinct genre from books order by genre`

	genres := make([]string, 0)
	if err := r.db.SelectContext(ctx, &genres, q); err != nil {
		return nil, err
	}
	return genres, nil
}
