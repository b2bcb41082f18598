package storage

import (
	"context"
	"errors"

	"github.com/pribylovaa/go-auth-service/internal/models"
)

var (
	// ErrNotFound — запись не найдена (пользователь).
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (email).
	ErrAlreadyExists = errors.New("already exists")
	// ErrStaleRefreshHash — условное обновление refresh-слота не прошло:
	// хранимый хэш уже не равен прочитанному (конкурентная ротация или logout).
	ErrStaleRefreshHash = errors.New("stale refresh hash")
)

// UserStorage выполняет операции над пользователями.
//
// Refresh-слот (refresh_token_hash) обновляется тремя операциями с разной
// семантикой атомарности:
//   - RotateRefreshHash — безусловная перезапись (вход/регистрация:
//     новая сессия намеренно убивает предыдущую);
//   - SwapRefreshHash — compare-and-swap: успех только если слот всё ещё
//     содержит прочитанное значение (критическая секция refresh);
//   - ClearRefreshHash — очистка, только если слот занят (идемпотентный logout).
type UserStorage interface {
	// SaveUser создаёт нового пользователя и возвращает запись с присвоенным ID.
	SaveUser(ctx context.Context, user *models.User) (*models.User, error)
	// UserByEmail находит пользователя по email.
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	// UserByID находит пользователя по ID.
	UserByID(ctx context.Context, id int64) (*models.User, error)
	// RotateRefreshHash безусловно перезаписывает refresh-слот пользователя.
	RotateRefreshHash(ctx context.Context, id int64, hash string) error
	// SwapRefreshHash перезаписывает refresh-слот, только если он всё ещё равен old.
	// Возвращает ErrStaleRefreshHash, если слот изменился после чтения.
	SwapRefreshHash(ctx context.Context, id int64, old, new string) error
	// ClearRefreshHash очищает refresh-слот, если он занят. Повторный вызов — no-op.
	ClearRefreshHash(ctx context.Context, id int64) error
}

// Storage задаёт контракт работы с БД.
type Storage interface {
	UserStorage
	Close()
}
