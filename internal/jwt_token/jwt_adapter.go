package jwttoken

import (
	"analysthub/internal/platform/middleware"
)

// JWTServiceAdapter bridges JWTService to the middleware.JWTValidator
// interface so the HTTP layer does not import jwt internals.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*middleware.JWTClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &middleware.JWTClaims{
		UserID:   claims.UserID,
		UserType: claims.UserType,
	}, nil
}
