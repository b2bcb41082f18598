package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pribylovaa/go-auth-service/internal/pkg/log"
)

// tokenClaims — общая форма claims обоих классов токенов.
// Классы различаются секретом подписи и TTL, а не формой claims:
// access-токен не пройдёт проверку refresh-секретом и наоборот.
type tokenClaims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// generateAccessToken генерирует access-токен (короткоживущий, access-секрет).
func (s *Service) generateAccessToken(ctx context.Context, userID int64, email string, now time.Time) (string, error) {
	const op = "service.token.generateAccessToken"

	signed, err := s.signToken(userID, email, now, s.cfg.AccessSecret, s.cfg.AccessTokenTTL)
	if err != nil {
		log.From(ctx).Error("access_token_sign_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

// generateRefreshToken генерирует refresh-токен (долгоживущий, refresh-секрет).
func (s *Service) generateRefreshToken(ctx context.Context, userID int64, email string, now time.Time) (string, error) {
	const op = "service.token.generateRefreshToken"

	signed, err := s.signToken(userID, email, now, s.cfg.RefreshSecret, s.cfg.RefreshTokenTTL)
	if err != nil {
		log.From(ctx).Error("refresh_token_sign_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

func (s *Service) signToken(userID int64, email string, now time.Time, secret string, ttl time.Duration) (string, error) {
	sub := strconv.FormatInt(userID, 10)

	claims := tokenClaims{
		UserID: sub,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.cfg.Issuer,
			Subject:   sub,
			Audience:  jwt.ClaimStrings(s.cfg.Audience),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString([]byte(secret))
}

// VerifyAccessToken проверяет access-токен и возвращает идентичность владельца.
func (s *Service) VerifyAccessToken(tokenStr string) (int64, string, error) {
	const op = "service.token.VerifyAccessToken"

	uid, email, err := s.parseToken(tokenStr, s.cfg.AccessSecret)
	if err != nil {
		return 0, "", fmt.Errorf("%s: %w", op, err)
	}

	return uid, email, nil
}

// VerifyRefreshToken проверяет подпись/срок refresh-токена и возвращает
// идентичность владельца. Сверка с хранимым хэшем (то, что токен всё ещё
// активен) выполняется отдельно в RefreshTokens, а не здесь.
func (s *Service) VerifyRefreshToken(tokenStr string) (int64, string, error) {
	const op = "service.token.VerifyRefreshToken"

	uid, email, err := s.parseToken(tokenStr, s.cfg.RefreshSecret)
	if err != nil {
		return 0, "", fmt.Errorf("%s: %w", op, err)
	}

	return uid, email, nil
}

// parseToken валидирует токен выбранным секретом.
// Неверная подпись, чужой секрет и битый формат неразличимы для вызывающего
// (единый ErrInvalidToken); истёкший срок отдаётся как ErrTokenExpired.
func (s *Service) parseToken(tokenStr, secret string) (int64, string, error) {
	const op = "service.token.parseToken"

	token, err := jwt.ParseWithClaims(tokenStr, &tokenClaims{},
		func(t *jwt.Token) (interface{}, error) {
			if t.Method != jwt.SigningMethodHS256 {
				return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
			}

			return []byte(secret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(5*time.Second),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithAudience(s.cfg.Audience...),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, "", fmt.Errorf("%s: %w", op, ErrTokenExpired)
		}

		return 0, "", fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	claims, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid {
		return 0, "", fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	uid, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return uid, claims.Email, nil
}
