package identity

import (
	"context"
	"errors"
	"testing"

	pkgerrors "github.com/angelmondragon/pharmalink-backend/pkg/errors"
	"google.golang.org/api/idtoken"
)

type stubValidator struct {
	payload  *idtoken.Payload
	err      error
	audience string
}

func (s *stubValidator) Validate(ctx context.Context, idToken, audience string) (*idtoken.Payload, error) {
	s.audience = audience
	return s.payload, s.err
}

func TestGoogleVerifierVerify(t *testing.T) {
	stub := &stubValidator{payload: &idtoken.Payload{
		Subject: "1234",
		Claims: map[string]interface{}{
			"email":          "Owner@Example.com",
			"email_verified": true,
			"name":           "Corner Pharmacy",
		},
	}}
	v := &GoogleVerifier{clientID: "client-id", validator: stub}

	got, err := v.Verify(context.Background(), "token")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if stub.audience != "client-id" {
		t.Fatalf("expected audience client-id, got %q", stub.audience)
	}
	if got.Email != "owner@example.com" || got.Name != "Corner Pharmacy" || got.Subject != "1234" {
		t.Fatalf("unexpected identity %+v", got)
	}
}

func TestGoogleVerifierRejects(t *testing.T) {
	cases := map[string]*stubValidator{
		"validator error": {err: errors.New("bad signature")},
		"missing email":   {payload: &idtoken.Payload{Claims: map[string]interface{}{}}},
		"unverified":      {payload: &idtoken.Payload{Claims: map[string]interface{}{"email": "a@b.c", "email_verified": false}}},
	}
	for name, stub := range cases {
		v := &GoogleVerifier{clientID: "client-id", validator: stub}
		_, err := v.Verify(context.Background(), "token")
		if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
			t.Fatalf("%s: expected unauthorized, got %v", name, err)
		}
	}
}

func TestGoogleVerifierEmptyCredential(t *testing.T) {
	v := &GoogleVerifier{clientID: "client-id", validator: &stubValidator{}}
	if _, err := v.Verify(context.Background(), " "); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestNewGoogleVerifierRequiresClientID(t *testing.T) {
	if _, err := NewGoogleVerifier(context.Background(), "", nil); err == nil {
		t.Fatal("expected error")
	}
}
