package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pribylovaa/go-auth-service/internal/models"
	"github.com/pribylovaa/go-auth-service/internal/storage"
)

// SaveUser создаёт нового пользователя и возвращает запись с присвоенным ID.
func (s *Storage) SaveUser(ctx context.Context, user *models.User) (*models.User, error) {
	const op = "storage.postgres.SaveUser"

	query := `
		INSERT INTO users(email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := s.db.QueryRow(ctx, query,
		user.Email,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// UserByEmail находит пользователя по email.
func (s *Storage) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.postgres.UserByEmail"

	query := `
		SELECT id, email, password_hash, refresh_token_hash, created_at, updated_at
		FROM users
		WHERE email = $1
	`

	var user models.User
	err := s.db.QueryRow(ctx, query, email).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.RefreshTokenHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &user, nil
}

// UserByID находит пользователя по ID.
func (s *Storage) UserByID(ctx context.Context, id int64) (*models.User, error) {
	const op = "storage.postgres.UserByID"

	query := `
		SELECT id, email, password_hash, refresh_token_hash, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	var user models.User
	err := s.db.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.RefreshTokenHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &user, nil
}

// RotateRefreshHash безусловно перезаписывает refresh-слот пользователя.
// Эта запись — точка, в которой все ранее выданные refresh-токены
// пользователя становятся недействительными.
func (s *Storage) RotateRefreshHash(ctx context.Context, id int64, hash string) error {
	const op = "storage.postgres.RotateRefreshHash"

	query := `
		UPDATE users
		SET refresh_token_hash = $2, updated_at = now()
		WHERE id = $1
	`

	cmdTag, err := s.db.Exec(ctx, query, id, hash)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// SwapRefreshHash перезаписывает refresh-слот, только если он всё ещё равен old.
// Условие в WHERE делает compare-then-write атомарным на стороне БД:
// из двух конкурентных refresh с одним и тем же токеном строку обновит
// ровно один, второй получит ErrStaleRefreshHash.
func (s *Storage) SwapRefreshHash(ctx context.Context, id int64, old, new string) error {
	const op = "storage.postgres.SwapRefreshHash"

	query := `
		UPDATE users
		SET refresh_token_hash = $3, updated_at = now()
		WHERE id = $1 AND refresh_token_hash = $2
	`

	cmdTag, err := s.db.Exec(ctx, query, id, old, new)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrStaleRefreshHash)
	}

	return nil
}

// ClearRefreshHash очищает refresh-слот, если он занят.
// Идемпотентна: повторный вызов (слот уже пуст) и отсутствие пользователя —
// не ошибка, 0 обновлённых строк допустимо.
func (s *Storage) ClearRefreshHash(ctx context.Context, id int64) error {
	const op = "storage.postgres.ClearRefreshHash"

	query := `
		UPDATE users
		SET refresh_token_hash = NULL, updated_at = now()
		WHERE id = $1 AND refresh_token_hash IS NOT NULL
	`

	if _, err := s.db.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
