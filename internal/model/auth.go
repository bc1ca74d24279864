package model

import (
	"github.com/golang-jwt/jwt/v5"
)

// AuthRequest types
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,notblank"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type GoogleLoginRequest struct {
	Credential string `json:"credential" binding:"required"`
}

type FacebookLoginRequest struct {
	AccessToken string `json:"accessToken" binding:"required"`
}

// AuthResponse is returned by every successful register or login.
type AuthResponse struct {
	User  *PublicUser `json:"user"`
	Token string      `json:"token,omitempty"`
}

// OAuthProfile holds the verified fields returned by an identity provider.
type OAuthProfile struct {
	Provider string
	Subject  string
	Email    string
	Name     string
}

// TokenClaims represents JWT claims
type TokenClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Name  string `json:"name"`
}
