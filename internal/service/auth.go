package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"github.com/pribylovaa/go-auth-service/internal/models"
	"github.com/pribylovaa/go-auth-service/internal/pkg/log"
	"github.com/pribylovaa/go-auth-service/internal/pkg/redact"
	"github.com/pribylovaa/go-auth-service/internal/storage"
)

// RegisterUser регистрирует нового пользователя и сразу открывает сессию:
// выпускает пару токенов и записывает хэш refresh-токена в слот пользователя
// тем же шагом ротации, что и вход.
func (s *Service) RegisterUser(ctx context.Context, email, password string) (*models.TokenPair, int64, error) {
	const op = "service.auth.RegisterUser"

	normEmail, err := validateEmail(email)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	if err := validatePassword(password); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	_, err = s.storage.UserByEmail(ctx, normEmail)
	if err == nil {
		return nil, 0, fmt.Errorf("%s: %w", op, ErrEmailTaken)
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	hashedPassword, err := hashPassword(password)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now().UTC()
	user := &models.User{
		Email:        normEmail,
		PasswordHash: hashedPassword,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	user, err = s.storage.SaveUser(ctx, user)
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, 0, fmt.Errorf("%s: %w", op, ErrEmailTaken)
		}

		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("user_registered",
		slog.Int64("user_id", user.ID),
		slog.String("email", redact.Email(user.Email)),
	)

	pair, err := s.rotate(ctx, user)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	return pair, user.ID, nil
}

// LoginUser выполняет вход по email+пароль.
// Неизвестный email и неверный пароль дают один и тот же ErrInvalidCredentials,
// чтобы по ответу нельзя было понять, зарегистрирован ли адрес.
func (s *Service) LoginUser(ctx context.Context, email, password string) (*models.TokenPair, int64, error) {
	const op = "service.auth.LoginUser"

	normEmail, err := validateEmail(email)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	if len(password) == 0 {
		return nil, 0, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	user, err := s.storage.UserByEmail(ctx, normEmail)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, 0, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	if !checkPassword(user.PasswordHash, password) {
		return nil, 0, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	pair, err := s.rotate(ctx, user)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	return pair, user.ID, nil
}

// RefreshTokens обменивает действующий refresh-токен на новую пару.
//
// Токен одноразовый: compare-then-write выполняется условным обновлением
// refresh-слота (SwapRefreshHash), так что из двух конкурентных refresh
// с одним и тем же токеном ровно один получит новую пару, второй —
// ErrTokenRevoked. Предъявленный токен умирает до возврата новой пары.
func (s *Service) RefreshTokens(ctx context.Context, userID int64, refreshToken string) (*models.TokenPair, error) {
	const op = "service.auth.RefreshTokens"

	lg := log.From(ctx)
	fp := refreshFingerprint(refreshToken)

	// Быстрый отрицательный путь: отпечатки уже использованных токенов
	// кэшируются при ротации. Кэш может только отклонить запрос раньше,
	// источником истины остаётся условное обновление в БД.
	if s.rcache != nil {
		revoked, err := s.rcache.IsRevoked(ctx, fp)
		if err != nil {
			lg.Warn("revoked_cache_lookup_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
		} else if revoked {
			lg.Warn("refresh_reuse_detected",
				slog.String("op", op),
				slog.Int64("user_id", userID),
			)
			return nil, fmt.Errorf("%s: %w", op, ErrTokenRevoked)
		}
	}

	user, err := s.storage.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if user.RefreshTokenHash == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	if !checkRefreshToken(*user.RefreshTokenHash, refreshToken) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	pair, newHash, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.storage.SwapRefreshHash(ctx, user.ID, *user.RefreshTokenHash, newHash); err != nil {
		if errors.Is(err, storage.ErrStaleRefreshHash) {
			lg.Warn("refresh_rotation_lost_race",
				slog.String("op", op),
				slog.Int64("user_id", userID),
			)
			return nil, fmt.Errorf("%s: %w", op, ErrTokenRevoked)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.markRevoked(ctx, fp)

	return pair, nil
}

// Logout закрывает сессию пользователя: очищает refresh-слот, если он занят.
// Идемпотентна — повторный вызов не ошибка.
func (s *Service) Logout(ctx context.Context, userID int64) error {
	const op = "service.auth.Logout"

	if err := s.storage.ClearRefreshHash(ctx, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("user_logged_out",
		slog.Int64("user_id", userID),
	)

	return nil
}

// rotate выпускает новую пару и безусловно перезаписывает refresh-слот.
// Используется регистрацией и входом: новая сессия намеренно делает
// недействительным любой ранее выданный refresh-токен пользователя.
func (s *Service) rotate(ctx context.Context, user *models.User) (*models.TokenPair, error) {
	const op = "service.auth.rotate"

	pair, newHash, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.storage.RotateRefreshHash(ctx, user.ID, newHash); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return pair, nil
}

// issuePair подписывает оба токена и строит хэш нового refresh-токена.
// Запись в хранилище остаётся на вызывающем (rotate/RefreshTokens).
func (s *Service) issuePair(ctx context.Context, user *models.User) (*models.TokenPair, string, error) {
	const op = "service.auth.issuePair"

	now := time.Now().UTC()

	accessToken, err := s.generateAccessToken(ctx, user.ID, user.Email, now)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}

	refreshToken, err := s.generateRefreshToken(ctx, user.ID, user.Email, now)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}

	newHash, err := hashRefreshToken(refreshToken)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}

	return &models.TokenPair{
		AccessToken:     accessToken,
		RefreshToken:    refreshToken,
		AccessExpiresAt: now.Add(s.cfg.AccessTokenTTL),
	}, newHash, nil
}

// markRevoked помечает отпечаток использованного refresh-токена в кэше.
// Ошибка кэша не фатальна: условное обновление в БД уже сделало токен мёртвым.
func (s *Service) markRevoked(ctx context.Context, fingerprint string) {
	if s.rcache == nil {
		return
	}

	if err := s.rcache.MarkRevoked(ctx, fingerprint, s.cfg.RefreshTokenTTL); err != nil {
		log.From(ctx).Warn("revoked_cache_mark_failed",
			slog.String("err", err.Error()),
		)
	}
}

// validateEmail проверяет базовый формат email и обрезает пробелы снаружи.
func validateEmail(raw string) (string, error) {
	const op = "service.auth.validateEmail"

	email := strings.TrimSpace(raw)
	if email == "" {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	if _, err := mail.ParseAddress(email); err != nil {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	return strings.ToLower(email), nil
}

// validatePassword проверяет минимальные требования к паролю.
// Политика по умолчанию: длина >= 8, хотя бы одна строчная, заглавная, цифра и спецсимвол.
func validatePassword(pw string) error {
	const op = "service.auth.validatePassword"

	if len(pw) == 0 {
		return fmt.Errorf("%s: %w", op, ErrEmptyPassword)
	}

	if len([]rune(pw)) < 8 {
		return fmt.Errorf("%s: %w", op, ErrWeakPassword)
	}

	var hasLower, hasUpper, hasDigit, hasSpecial bool
	for _, r := range pw {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}

	if !(hasLower && hasUpper && hasDigit && hasSpecial) {
		return fmt.Errorf("%s: %w", op, ErrWeakPassword)
	}

	return nil
}
