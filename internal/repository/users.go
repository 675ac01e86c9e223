package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/renubu/renubu/internal/model"
)

type UsersRepository interface {
	GetByAPIKey(ctx context.Context, apiKey string) (*model.User, error)
	Get(ctx context.Context, id string) (*model.User, error)
	Insert(ctx context.Context, tx *sqlx.Tx, u model.User) error
}

type UsersRepositoryImpl struct {
	db *sqlx.DB
}

func NewUsersRepository(db *sqlx.DB) *UsersRepositoryImpl {
	return &UsersRepositoryImpl{db: db}
}

var _ UsersRepository = (*UsersRepositoryImpl)(nil)

const userColumns = `id, name, email, api_key, status, rate_limit_rps, created_at, updated_at`

// GetByAPIKey returns (nil, nil) when no user owns the key.
func (r *UsersRepositoryImpl) GetByAPIKey(ctx context.Context, apiKey string) (*model.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE api_key = ? LIMIT 1`, apiKey)
}

func (r *UsersRepositoryImpl) Get(ctx context.Context, id string) (*model.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r *UsersRepositoryImpl) getOne(ctx context.Context, q string, arg any) (*model.User, error) {
	var u model.User
	err := r.db.GetContext(ctx, &u, r.db.Rebind(q), arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UsersRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, u model.User) error {
	const q = `
		INSERT INTO users (id, name, email, api_key, status, rate_limit_rps, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	return withTx(ctx, r.db, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, tx.Rebind(q),
			u.ID, u.Name, u.Email, u.APIKey, u.Status, u.RateLimitRPS,
			model.Timestamp(u.CreatedAt), model.Timestamp(u.UpdatedAt),
		)
		return err
	})
}
