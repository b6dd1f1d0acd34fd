package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/angelmondragon/pharmalink-backend/internal/auth"
	"github.com/angelmondragon/pharmalink-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pharmalink-backend/pkg/errors"
)

type stubAuthService struct {
	login       *auth.LoginResponse
	google      *auth.GoogleLoginResponse
	admin       *auth.AdminLoginResponse
	err         error
	lastRequest auth.LoginRequest
}

func (s *stubAuthService) PharmacyLogin(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	s.lastRequest = req
	return s.login, s.err
}

func (s *stubAuthService) PharmacyGoogleLogin(ctx context.Context, req auth.GoogleLoginRequest) (*auth.GoogleLoginResponse, error) {
	return s.google, s.err
}

func (s *stubAuthService) WholesalerLogin(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	s.lastRequest = req
	return s.login, s.err
}

func (s *stubAuthService) AdminLogin(ctx context.Context, req auth.LoginRequest) (*auth.AdminLoginResponse, error) {
	s.lastRequest = req
	return s.admin, s.err
}

func TestPharmacyLoginSetsAccessHeader(t *testing.T) {
	svc := &stubAuthService{login: &auth.LoginResponse{
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		AccountID:    "PHA-2026-00001",
		Role:         enums.RolePharmacy,
		Name:         "Corner Pharmacy",
	}}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/pharmacies/login", bytes.NewReader([]byte(`{"username":"corner","password":"Secret#1"}`)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	PharmacyLogin(svc, testLogger()).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if got := resp.Header().Get(accessTokenHeader); got != "access-token" {
		t.Fatalf("expected access token header got %q", got)
	}
	if svc.lastRequest.Username != "corner" {
		t.Fatalf("expected username forwarded got %q", svc.lastRequest.Username)
	}

	var envelope struct {
		Data auth.LoginResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.AccountID != "PHA-2026-00001" || envelope.Data.RefreshToken != "refresh-token" {
		t.Fatalf("unexpected body %+v", envelope.Data)
	}
}

func TestWholesalerLoginPropagatesServiceError(t *testing.T) {
	svc := &stubAuthService{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "Invalid credentials")}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/wholesalers/login", bytes.NewReader([]byte(`{"username":"north","password":"wrong"}`)))
	resp := httptest.NewRecorder()

	WholesalerLogin(svc, testLogger()).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
	if resp.Header().Get(accessTokenHeader) != "" {
		t.Fatalf("expected no access header on failure")
	}
}

func TestLoginRejectsUnknownFields(t *testing.T) {
	svc := &stubAuthService{}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/pharmacies/login", bytes.NewReader([]byte(`{"email":"x@example.com"}`)))
	resp := httptest.NewRecorder()

	PharmacyLogin(svc, testLogger()).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestPharmacyGoogleLoginFirstSignInIsAccepted(t *testing.T) {
	svc := &stubAuthService{google: &auth.GoogleLoginResponse{Message: "Registration received. Wait for admin approval."}}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/pharmacies/google-login", bytes.NewReader([]byte(`{"credential":"id-token"}`)))
	resp := httptest.NewRecorder()

	PharmacyGoogleLogin(svc, testLogger()).ServeHTTP(resp, req)

	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202 got %d", resp.Code)
	}
	if resp.Header().Get(accessTokenHeader) != "" {
		t.Fatalf("expected no access header before approval")
	}
}

func TestPharmacyGoogleLoginReturnsSession(t *testing.T) {
	svc := &stubAuthService{google: &auth.GoogleLoginResponse{LoginResponse: &auth.LoginResponse{
		AccessToken: "google-access",
		AccountID:   "PHA-2026-00002",
		Role:        enums.RolePharmacy,
	}}}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/pharmacies/google-login", bytes.NewReader([]byte(`{"credential":"id-token"}`)))
	resp := httptest.NewRecorder()

	PharmacyGoogleLogin(svc, testLogger()).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if got := resp.Header().Get(accessTokenHeader); got != "google-access" {
		t.Fatalf("expected access header got %q", got)
	}
}

func TestAdminLoginReturnsMainAdminFlag(t *testing.T) {
	svc := &stubAuthService{admin: &auth.AdminLoginResponse{
		AccessToken: "admin-access",
		AdminID:     "ADM-2026-00001",
		Role:        enums.RoleSuperAdmin,
		IsMainAdmin: true,
	}}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/login", bytes.NewReader([]byte(`{"username":"root","password":"Secret#1"}`)))
	resp := httptest.NewRecorder()

	AdminLogin(svc, testLogger()).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data auth.AdminLoginResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !envelope.Data.IsMainAdmin || envelope.Data.AdminID != "ADM-2026-00001" {
		t.Fatalf("unexpected body %+v", envelope.Data)
	}
}

func TestLoginWithoutService(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/login", bytes.NewReader([]byte(`{}`)))
	resp := httptest.NewRecorder()

	AdminLogin(nil, testLogger()).ServeHTTP(resp, req)

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
}
