// service содержит бизнес-логику сервиса сессий: регистрацию/аутентификацию
// пользователей, выпуск/проверку токенов двух классов и протокол ротации
// refresh-токена через интерфейсы из пакета storage.
//
// Основные аспекты:
//   - Service не хранит состояние запроса и не кэширует записи пользователей
//     между вызовами; перед каждой проверкой запись перечитывается из
//     хранилища. Экземпляр безопасен для конкурентного использования при
//     условии, что переданное хранилище потокобезопасно.
//   - У каждого пользователя в каждый момент времени действителен не более
//     чем один refresh-токен: его хэш хранится в refresh-слоте записи
//     пользователя и перезаписывается при каждой успешной ротации.
//   - Ошибки возвращаются и далее маппятся транспортом на HTTP-статусы
//     (см. комментарии к переменным ошибок ниже).
package service

import (
	"errors"

	"github.com/pribylovaa/go-auth-service/internal/cache"
	"github.com/pribylovaa/go-auth-service/internal/config"
	"github.com/pribylovaa/go-auth-service/internal/storage"
)

var (
	// ErrInvalidCredentials — пара логин/пароль неверна, пользователь не найден
	// или предъявленный refresh-токен не совпадает с хранимым хэшем.
	// Неизвестный email и неверный пароль намеренно неразличимы для вызывающего.
	// Транспорт: HTTP 403.
	ErrInvalidCredentials = errors.New("access denied")

	// ErrInvalidToken — токен (access/refresh) некорректен по формату/подписи.
	// Транспорт: HTTP 401.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired — срок действия токена истёк.
	// Транспорт: HTTP 401.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenRevoked — refresh-токен уже использован или отозван
	// (конкурентная ротация/logout) и недействителен независимо от срока.
	// Транспорт: HTTP 403.
	ErrTokenRevoked = errors.New("token revoked")

	// ErrEmailTaken — e-mail уже занят другим пользователем.
	// Транспорт: HTTP 409.
	ErrEmailTaken = errors.New("email already taken")

	// ErrInvalidEmail — e-mail имеет некорректный формат.
	// Транспорт: HTTP 400.
	ErrInvalidEmail = errors.New("invalid email format")

	// ErrWeakPassword — пароль не удовлетворяет политикам сложности.
	// Транспорт: HTTP 400.
	ErrWeakPassword = errors.New("password is too weak")

	// ErrEmptyPassword — пароль пустой.
	// Транспорт: HTTP 400.
	ErrEmptyPassword = errors.New("password is empty")
)

// Service описывает бизнес-логику сервиса сессий.
type Service struct {
	storage storage.Storage
	cfg     config.AuthConfig
	rcache  cache.RevokedCache // может быть nil, если кэш не сконфигурирован
}

// New создаёт новый экземпляр Service.
func New(storage storage.Storage, cfg config.AuthConfig) *Service {
	return &Service{
		storage: storage,
		cfg:     cfg,
	}
}

// SetRevokedCache устанавливает кэш отозванных refresh-токенов (опционально).
func (s *Service) SetRevokedCache(c cache.RevokedCache) {
	s.rcache = c
}
