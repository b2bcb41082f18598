// memory — потокобезопасная in-memory реализация storage.Storage.
// Используется в тестах сервисного и транспортного слоёв вместо PostgreSQL;
// семантика операций над refresh-слотом (включая compare-and-swap) совпадает
// с postgres-реализацией.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pribylovaa/go-auth-service/internal/models"
	"github.com/pribylovaa/go-auth-service/internal/storage"
)

type Storage struct {
	mu      sync.Mutex
	nextID  int64
	byID    map[int64]*models.User
	byEmail map[string]int64
}

func New() *Storage {
	return &Storage{
		nextID:  1,
		byID:    make(map[int64]*models.User),
		byEmail: make(map[string]int64),
	}
}

// Close реализует storage.Storage; для in-memory хранилища это no-op.
func (s *Storage) Close() {}

var _ storage.Storage = (*Storage)(nil)

// SaveUser создаёт нового пользователя и возвращает запись с присвоенным ID.
func (s *Storage) SaveUser(_ context.Context, user *models.User) (*models.User, error) {
	const op = "storage.memory.SaveUser"

	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(user.Email)
	if _, ok := s.byEmail[key]; ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	}

	stored := cloneUser(user)
	stored.ID = s.nextID
	s.nextID++

	s.byID[stored.ID] = stored
	s.byEmail[key] = stored.ID

	return cloneUser(stored), nil
}

// UserByEmail находит пользователя по email.
func (s *Storage) UserByEmail(_ context.Context, email string) (*models.User, error) {
	const op = "storage.memory.UserByEmail"

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return cloneUser(s.byID[id]), nil
}

// UserByID находит пользователя по ID.
func (s *Storage) UserByID(_ context.Context, id int64) (*models.User, error) {
	const op = "storage.memory.UserByID"

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return cloneUser(user), nil
}

// RotateRefreshHash безусловно перезаписывает refresh-слот пользователя.
func (s *Storage) RotateRefreshHash(_ context.Context, id int64, hash string) error {
	const op = "storage.memory.RotateRefreshHash"

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	h := hash
	user.RefreshTokenHash = &h
	user.UpdatedAt = time.Now().UTC()

	return nil
}

// SwapRefreshHash перезаписывает refresh-слот, только если он всё ещё равен old.
func (s *Storage) SwapRefreshHash(_ context.Context, id int64, old, new string) error {
	const op = "storage.memory.SwapRefreshHash"

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrStaleRefreshHash)
	}

	if user.RefreshTokenHash == nil || *user.RefreshTokenHash != old {
		return fmt.Errorf("%s: %w", op, storage.ErrStaleRefreshHash)
	}

	h := new
	user.RefreshTokenHash = &h
	user.UpdatedAt = time.Now().UTC()

	return nil
}

// ClearRefreshHash очищает refresh-слот, если он занят. Идемпотентна.
func (s *Storage) ClearRefreshHash(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user, ok := s.byID[id]; ok {
		user.RefreshTokenHash = nil
		user.UpdatedAt = time.Now().UTC()
	}

	return nil
}

func cloneUser(u *models.User) *models.User {
	c := *u
	if u.RefreshTokenHash != nil {
		h := *u.RefreshTokenHash
		c.RefreshTokenHash = &h
	}
	return &c
}
