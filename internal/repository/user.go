package repository

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/virtuallib/catalog-service/internal/errs"
	"github.com/virtuallib/catalog-service/internal/model"
	"github.com/virtuallib/catalog-service/pkg/auth"
)

var userColumns = []string{"id", "username", "email", "password_hash", "role", "full_name", "active", "created_at"}

func (r *repository) CreateUser(ctx context.Context, user model.User) (model.User, error) {
	query, args, err := qb.Insert(usersTableName).
		Columns("username", "email", "password_hash", "role", "full_name").
		Values(user.Username, user.Email, user.PasswordHash, user.Role, user.FullName).
		Suffix("returning *").
		ToSql()
	if err != nil {
		return model.User{}, err
	}

	var created model.User
	if err := r.db.GetContext(ctx, &created, query, args...); err != nil {
		if isUniqueViolation(err) {
			return model.User{}, errors.Wrap(errs.ErrDuplicate, "username or email")
		}
		r.log.Error("CreateUser", zap.String("q", query))
		return model.User{}, err
	}
	return created, nil
}

func (r *repository) GetUserByUsername(ctx context.Context, username string) (model.User, error) {
	query, args, err := qb.Select(userColumns...).
		From(usersTableName).
		Where(sq.Eq{"username": username}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.User{}, err
	}

	var user model.User
	if err := r.db.GetContext(ctx, &user, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, errs.ErrNotFound
		}
		return model.User{}, err
	}
	return user, nil
}

func (r *repository) GetUserByID(ctx context.Context, id int) (model.User, error) {
	query, args, err := qb.Select(userColumns...).
		From(usersTableName).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.User{}, err
	}

	var user model.User
	if err := r.db.GetContext(ctx, &user, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, errs.ErrNotFound
		}
		return model.User{}, err
	}
	return user, nil
}

func (r *repository) HasTeacher(ctx context.Context) (bool, error) {
	q := `select exists(select 1 from users where role = $1)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, q, auth.RoleTeacher).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
