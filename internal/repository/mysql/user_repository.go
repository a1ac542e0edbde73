package mysql

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"planty-of-food/internal/entity"
	"planty-of-food/internal/repository"
)

const userColumns = `id, name, surname, email, created_at, updated_at`

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*entity.User, error) {
	user := &entity.User{}
	err := row.Scan(&user.ID, &user.Name, &user.Surname, &user.Email, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return user, err
}

func (r *UserRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*entity.User, error) {
	users := make(map[string]*entity.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE id IN (` + placeholders(len(ids)) + `)`
	rows, err := r.db.QueryContext(ctx, query, stringArgs(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users[user.ID] = user
	}
	return users, rows.Err()
}

func (r *UserRepository) List(ctx context.Context, filter repository.UserFilter) ([]entity.User, error) {
	var (
		where []string
		args  []any
	)
	if filter.Name != "" {
		where = append(where, `LOWER(name) LIKE ?`)
		args = append(args, "%"+strings.ToLower(filter.Name)+"%")
	}
	if filter.Email != "" {
		where = append(where, `LOWER(email) LIKE ?`)
		args = append(args, "%"+strings.ToLower(filter.Email)+"%")
	}

	query := `SELECT ` + userColumns + ` FROM users`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []entity.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = now()
	user.UpdatedAt = user.CreatedAt

	query := `INSERT INTO users (` + userColumns + `) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, user.ID, user.Name, user.Surname, user.Email, user.CreatedAt, user.UpdatedAt)
	if isDuplicateKey(err) {
		return repository.ErrConflict
	}
	return err
}

func (r *UserRepository) Update(ctx context.Context, id string, patch repository.UserPatch) (*entity.User, error) {
	if _, err := r.FindByID(ctx, id); err != nil {
		return nil, err
	}

	set := []string{`updated_at = ?`}
	args := []any{now()}
	if patch.Name != nil {
		set = append(set, `name = ?`)
		args = append(args, *patch.Name)
	}
	if patch.Surname != nil {
		set = append(set, `surname = ?`)
		args = append(args, *patch.Surname)
	}
	if patch.Email != nil {
		set = append(set, `email = ?`)
		args = append(args, *patch.Email)
	}
	args = append(args, id)

	query := `UPDATE users SET ` + strings.Join(set, `, `) + ` WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isDuplicateKey(err) {
			return nil, repository.ErrConflict
		}
		return nil, err
	}
	return r.FindByID(ctx, id)
}

func (r *UserRepository) Delete(ctx context.Context, id string) (*entity.User, error) {
	user, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	query := `DELETE FROM users WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return nil, err
	}
	return user, nil
}
