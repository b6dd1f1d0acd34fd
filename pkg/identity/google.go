package identity

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	pkgerrors "github.com/angelmondragon/pharmalink-backend/pkg/errors"
	"google.golang.org/api/idtoken"
	"google.golang.org/api/option"
)

// Identity is the verified subset of a Google ID token.
type Identity struct {
	Subject string
	Email   string
	Name    string
}

// Verifier validates third-party identity credentials.
type Verifier interface {
	Verify(ctx context.Context, credential string) (Identity, error)
}

type tokenValidator interface {
	Validate(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)
}

// GoogleVerifier validates Google Sign-In credentials against a client id.
type GoogleVerifier struct {
	clientID  string
	validator tokenValidator
}

// NewGoogleVerifier builds a verifier using Google's public signing keys.
func NewGoogleVerifier(ctx context.Context, clientID string, httpClient *http.Client) (*GoogleVerifier, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return nil, fmt.Errorf("google client id is required")
	}
	opts := []option.ClientOption{}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	validator, err := idtoken.NewValidator(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create google id token validator: %w", err)
	}
	return &GoogleVerifier{clientID: clientID, validator: validator}, nil
}

// Verify checks the credential signature and audience and extracts the email and name claims.
func (v *GoogleVerifier) Verify(ctx context.Context, credential string) (Identity, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return Identity{}, pkgerrors.New(pkgerrors.CodeValidation, "google credential is required")
	}

	payload, err := v.validator.Validate(ctx, credential, v.clientID)
	if err != nil {
		return Identity{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid google credential")
	}
	return identityFromClaims(payload)
}

func identityFromClaims(payload *idtoken.Payload) (Identity, error) {
	if payload == nil {
		return Identity{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid google credential")
	}
	email, _ := payload.Claims["email"].(string)
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return Identity{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "google credential has no email")
	}
	if verified, ok := payload.Claims["email_verified"].(bool); ok && !verified {
		return Identity{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "google email is not verified")
	}
	name, _ := payload.Claims["name"].(string)
	return Identity{
		Subject: payload.Subject,
		Email:   email,
		Name:    strings.TrimSpace(name),
	}, nil
}
