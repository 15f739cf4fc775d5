package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims carries the identity encoded in a service access token.
type JWTClaims struct {
	Subject string `json:"sub_name"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}
