// Входные/выходные модели REST-эндпоинтов.
package handlers

import "github.com/pribylovaa/go-auth-service/internal/models"

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	UserID          int64  `json:"user_id"`
	AccessToken     string `json:"access_token"`
	RefreshToken    string `json:"refresh_token"`
	AccessExpiresAt int64  `json:"access_expires_at"` // Unix UTC
}

type LogoutResponse struct {
	Ok bool `json:"ok"`
}

func authResponse(pair *models.TokenPair, userID int64) AuthResponse {
	return AuthResponse{
		UserID:          userID,
		AccessToken:     pair.AccessToken,
		RefreshToken:    pair.RefreshToken,
		AccessExpiresAt: pair.AccessExpiresAt.Unix(),
	}
}
