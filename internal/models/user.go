package models

import "time"

// User — учётная запись пользователя.
//
// RefreshTokenHash — единственный «слот» активной сессии: хэш последнего
// выданного refresh-токена. nil означает, что активной сессии нет
// (до первого входа или после logout). Поле перезаписывается при каждом
// успешном входе/обновлении (ротация) и именно эта запись делает все ранее
// выданные refresh-токены недействительными.
type User struct {
	ID               int64
	Email            string
	PasswordHash     string
	RefreshTokenHash *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
