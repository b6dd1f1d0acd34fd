package auth

import (
	"github.com/angelmondragon/pharmalink-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	AccountID   string
	Username    string
	Role        enums.Role
	IsMainAdmin bool
	JTI         string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	AccountID   string     `json:"account_id"`
	Username    string     `json:"username,omitempty"`
	Role        enums.Role `json:"role"`
	IsMainAdmin bool       `json:"is_main_admin,omitempty"`
	jwt.RegisteredClaims
}
