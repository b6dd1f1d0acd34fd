package auth

import "github.com/angelmondragon/pharmalink-backend/pkg/enums"

// LoginRequest captures the credentials sent to every password login endpoint.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// GoogleLoginRequest carries the Google Sign-In ID token.
type GoogleLoginRequest struct {
	Credential string `json:"credential"`
}

// LoginResponse contains the tokens produced by a successful pharmacy or wholesaler login.
type LoginResponse struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	AccountID    string     `json:"account_id"`
	Role         enums.Role `json:"role"`
	Name         string     `json:"name"`
}

// GoogleLoginResponse either carries a session or, for a first sign-in, only
// a message asking the pharmacy to wait for approval.
type GoogleLoginResponse struct {
	Message string `json:"message,omitempty"`
	*LoginResponse
}

// AdminLoginResponse mirrors LoginResponse for the admin table.
type AdminLoginResponse struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	AdminID      string     `json:"admin_id"`
	Role         enums.Role `json:"role"`
	IsMainAdmin  bool       `json:"isMainAdmin"`
}
