package service

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Хэширование секретов. Для паролей и refresh-токенов используется один и тот
// же примитив — bcrypt (солёный, параметризованный по стоимости, сравнение за
// константное время). Плейнтекст никогда не сравнивается с хранимым значением
// напрямую.

// hashPassword хэширует пароль с помощью bcrypt.
func hashPassword(password string) (string, error) {
	const op = "service.hash.hashPassword"

	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return string(bytes), nil
}

// checkPassword сравнивает пароль с хэшем.
func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// refreshFingerprint возвращает детерминированный отпечаток refresh-токена:
// base64(sha256(plain)). Подписанный JWT длиннее 72 байт — лимита входа
// bcrypt, поэтому bcrypt применяется к отпечатку, а не к самому токену.
// Отпечаток также служит ключом кэша отозванных токенов.
func refreshFingerprint(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// hashRefreshToken хэширует refresh-токен: bcrypt поверх отпечатка.
func hashRefreshToken(plain string) (string, error) {
	const op = "service.hash.hashRefreshToken"

	bytes, err := bcrypt.GenerateFromPassword([]byte(refreshFingerprint(plain)), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return string(bytes), nil
}

// checkRefreshToken сравнивает refresh-токен с хранимым хэшем.
func checkRefreshToken(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(refreshFingerprint(plain))) == nil
}
