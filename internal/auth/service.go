package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pharmalink-backend/internal/accounts"
	pkgAuth "github.com/angelmondragon/pharmalink-backend/pkg/auth"
	"github.com/angelmondragon/pharmalink-backend/pkg/auth/session"
	"github.com/angelmondragon/pharmalink-backend/pkg/config"
	"github.com/angelmondragon/pharmalink-backend/pkg/db"
	"github.com/angelmondragon/pharmalink-backend/pkg/db/models"
	"github.com/angelmondragon/pharmalink-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pharmalink-backend/pkg/errors"
	"github.com/angelmondragon/pharmalink-backend/pkg/identity"
	"github.com/angelmondragon/pharmalink-backend/pkg/idgen"
	"github.com/angelmondragon/pharmalink-backend/pkg/logger"
	"github.com/angelmondragon/pharmalink-backend/pkg/security"
)

const (
	invalidCredentialsMessage     = "Invalid credentials"
	invalidAdminCredentials       = "Invalid admin credentials"
	invalidSuperadminCredentials  = "Invalid superadmin credentials"
	credentialsRequiredMessage    = "Username and password are required"
	pharmacyDeactivatedMessage    = "Your account has been deactivated. Please contact support."
	pharmacyPendingMessage        = "Account pending approval by admin"
	googlePendingMessage          = "Your account is still pending approval by the administrator. Please wait until it is approved."
	googleRequestSentMessage      = "Your request has been sent to the administrator. Please wait for approval before signing in."
	wholesalerInactiveMessage     = "Your account is currently inactive. Please contact support for assistance."
	wholesalerRejectedMessage     = "Your wholesaler account has been rejected. Please contact support."
	googlePlaceholder             = "N/A"
	googleGeneratedPasswordLength = 24
	mainAdminName                 = "Main Admin"
)

// Service issues sessions for every account table.
type Service interface {
	PharmacyLogin(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	PharmacyGoogleLogin(ctx context.Context, req GoogleLoginRequest) (*GoogleLoginResponse, error)
	WholesalerLogin(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	AdminLogin(ctx context.Context, req LoginRequest) (*AdminLoginResponse, error)
}

type pharmacyAccounts interface {
	FindByUsername(ctx context.Context, username string) (*models.Pharmacy, error)
	Exists(ctx context.Context, id string) (bool, error)
	Create(ctx context.Context, pharmacy *models.Pharmacy) error
}

type wholesalerAccounts interface {
	FindByUsername(ctx context.Context, username string) (*models.Wholesaler, error)
}

type adminAccounts interface {
	FindByUsername(ctx context.Context, username string) (*models.Admin, error)
	FindMain(ctx context.Context) (*models.Admin, error)
	Create(ctx context.Context, admin *models.Admin) error
}

type sessionManager interface {
	Generate(ctx context.Context, accessID string, owner session.Owner) (string, error)
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	Pharmacies     pharmacyAccounts
	Wholesalers    wholesalerAccounts
	Admins         adminAccounts
	SessionManager sessionManager
	Identity       identity.Verifier
	IDs            *idgen.Generator
	JWTConfig      config.JWTConfig
	Password       config.PasswordConfig
	Bootstrap      config.BootstrapConfig
	Logger         *logger.Logger
}

type service struct {
	pharmacies  pharmacyAccounts
	wholesalers wholesalerAccounts
	admins      adminAccounts
	session     sessionManager
	identity    identity.Verifier
	ids         *idgen.Generator
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
	bootstrap   config.BootstrapConfig
	logg        *logger.Logger
	now         func() time.Time
}

// NewService constructs a login service with the provided dependencies.
// Identity may be nil when federated sign-in is not configured.
func NewService(params ServiceParams) (Service, error) {
	if params.Pharmacies == nil {
		return nil, fmt.Errorf("pharmacy repository is required")
	}
	if params.Wholesalers == nil {
		return nil, fmt.Errorf("wholesaler repository is required")
	}
	if params.Admins == nil {
		return nil, fmt.Errorf("admin repository is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if params.IDs == nil {
		return nil, fmt.Errorf("id generator is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{
		pharmacies:  params.Pharmacies,
		wholesalers: params.Wholesalers,
		admins:      params.Admins,
		session:     params.SessionManager,
		identity:    params.Identity,
		ids:         params.IDs,
		jwtCfg:      params.JWTConfig,
		passwordCfg: params.Password,
		bootstrap:   params.Bootstrap,
		logg:        params.Logger,
		now:         time.Now,
	}, nil
}

func (s *service) PharmacyLogin(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	username, err := requireCredentials(req)
	if err != nil {
		return nil, err
	}
	pharmacy, err := s.pharmacies.FindByUsername(ctx, username)
	if err != nil {
		return nil, notFoundAsUnauthorized(err, invalidCredentialsMessage, "lookup pharmacy")
	}
	if err := verify(req.Password, pharmacy.PasswordHash, invalidCredentialsMessage); err != nil {
		return nil, err
	}
	if err := pharmacyGate(pharmacy, pharmacyPendingMessage); err != nil {
		return nil, err
	}
	return s.issue(ctx, pharmacy.ID, pharmacy.Username, pharmacy.Name, enums.RolePharmacy)
}

// PharmacyGoogleLogin signs in an approved pharmacy by its Google account
// email. An unknown email becomes a pending pharmacy and no session is issued.
func (s *service) PharmacyGoogleLogin(ctx context.Context, req GoogleLoginRequest) (*GoogleLoginResponse, error) {
	credential := strings.TrimSpace(req.Credential)
	if credential == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Google credential is required")
	}
	if s.identity == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "Google sign-in is not configured")
	}
	verified, err := s.identity.Verify(ctx, credential)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "Google login failed")
	}

	pharmacy, err := s.pharmacies.FindByUsername(ctx, verified.Email)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := s.createPendingGooglePharmacy(ctx, verified); err != nil {
			return nil, err
		}
		return &GoogleLoginResponse{Message: googleRequestSentMessage}, nil
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup pharmacy")
	}

	if err := pharmacyGate(pharmacy, googlePendingMessage); err != nil {
		return nil, err
	}
	issued, err := s.issue(ctx, pharmacy.ID, pharmacy.Username, pharmacy.Name, enums.RolePharmacy)
	if err != nil {
		return nil, err
	}
	return &GoogleLoginResponse{LoginResponse: issued}, nil
}

func (s *service) createPendingGooglePharmacy(ctx context.Context, verified identity.Identity) error {
	throwaway, err := security.GenerateTempPassword(googleGeneratedPasswordLength)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate placeholder password")
	}
	hash, err := security.HashPassword(throwaway, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	id, err := s.ids.Unique(ctx, idgen.KindPharmacy, s.pharmacies.Exists)
	if err != nil {
		return err
	}
	name := strings.TrimSpace(verified.Name)
	if name == "" {
		name = googlePlaceholder
	}
	email := verified.Email
	pharmacy := &models.Pharmacy{
		ID:           id,
		Name:         name,
		Address:      googlePlaceholder,
		PhoneNo:      googlePlaceholder,
		Email:        &email,
		Username:     verified.Email,
		PasswordHash: hash,
		Status:       enums.AccountStatusPending,
		IsActive:     true,
	}
	if err := s.pharmacies.Create(ctx, pharmacy); err != nil {
		if db.IsUniqueViolation(err, "ux_pharmacies_username") {
			// a concurrent first sign-in already created it
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert pharmacy")
	}
	s.logg.Info(s.logg.WithField(ctx, "pharmacy_id", id), "pending pharmacy created from google sign-in")
	return nil
}

func (s *service) WholesalerLogin(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	username, err := requireCredentials(req)
	if err != nil {
		return nil, err
	}
	wholesaler, err := s.wholesalers.FindByUsername(ctx, username)
	if err != nil {
		return nil, notFoundAsUnauthorized(err, invalidCredentialsMessage, "lookup wholesaler")
	}
	if err := verify(req.Password, wholesaler.PasswordHash, invalidCredentialsMessage); err != nil {
		return nil, err
	}
	if !wholesaler.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, wholesalerInactiveMessage)
	}
	if wholesaler.Status == enums.AccountStatusRejected {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, wholesalerRejectedMessage)
	}
	return s.issue(ctx, wholesaler.ID, wholesaler.Username, wholesaler.Name, enums.RoleWholesaler)
}

func (s *service) AdminLogin(ctx context.Context, req LoginRequest) (*AdminLoginResponse, error) {
	username, err := requireCredentials(req)
	if err != nil {
		return nil, err
	}

	main, err := s.admins.FindMain(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup main admin")
	}
	switch {
	case main != nil && username == main.Username:
		if err := verify(req.Password, main.PasswordHash, invalidSuperadminCredentials); err != nil {
			return nil, err
		}
		return s.issueAdmin(ctx, main)
	case main == nil && username == s.bootstrap.MainAdminUsername:
		provisioned, err := s.provisionMainAdmin(ctx, req.Password)
		if err != nil {
			return nil, err
		}
		return s.issueAdmin(ctx, provisioned)
	}

	admin, err := s.admins.FindByUsername(ctx, username)
	if err != nil {
		return nil, notFoundAsUnauthorized(err, invalidAdminCredentials, "lookup admin")
	}
	if admin.Status != enums.AdminStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidAdminCredentials)
	}
	if err := verify(req.Password, admin.PasswordHash, invalidAdminCredentials); err != nil {
		return nil, err
	}
	return s.issueAdmin(ctx, admin)
}

// provisionMainAdmin accepts the configured seed password exactly once and
// persists it as the main admin row. Later logins only see the row.
func (s *service) provisionMainAdmin(ctx context.Context, password string) (*models.Admin, error) {
	if s.bootstrap.MainAdminPassword == "" || password != s.bootstrap.MainAdminPassword {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidSuperadminCredentials)
	}
	hash, err := security.HashPassword(password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	admin := &models.Admin{
		ID:           uuid.New(),
		Name:         mainAdminName,
		Username:     s.bootstrap.MainAdminUsername,
		PasswordHash: hash,
		Status:       enums.AdminStatusActive,
		IsMainAdmin:  true,
	}
	if err := s.admins.Create(ctx, admin); err != nil {
		if !db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: provision main admin")
		}
		existing, findErr := s.admins.FindMain(ctx)
		if findErr != nil || existing == nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: provision main admin")
		}
		if err := verify(password, existing.PasswordHash, invalidSuperadminCredentials); err != nil {
			return nil, err
		}
		return existing, nil
	}
	s.logg.Warn(s.logg.WithField(ctx, "admin_id", admin.ID.String()), "main admin provisioned from bootstrap credentials")
	return admin, nil
}

func (s *service) issue(ctx context.Context, accountID, username, name string, role enums.Role) (*LoginResponse, error) {
	accessToken, refreshToken, err := s.mint(ctx, pkgAuth.AccessTokenPayload{
		AccountID: accountID,
		Username:  username,
		Role:      role,
	})
	if err != nil {
		return nil, err
	}
	return &LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		AccountID:    accountID,
		Role:         role,
		Name:         name,
	}, nil
}

func (s *service) issueAdmin(ctx context.Context, admin *models.Admin) (*AdminLoginResponse, error) {
	role := enums.RoleAdmin
	if admin.IsMainAdmin {
		role = enums.RoleSuperAdmin
	}
	accessToken, refreshToken, err := s.mint(ctx, pkgAuth.AccessTokenPayload{
		AccountID:   admin.ID.String(),
		Username:    admin.Username,
		Role:        role,
		IsMainAdmin: admin.IsMainAdmin,
	})
	if err != nil {
		return nil, err
	}
	return &AdminLoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		AdminID:      admin.ID.String(),
		Role:         role,
		IsMainAdmin:  admin.IsMainAdmin,
	}, nil
}

func (s *service) mint(ctx context.Context, payload pkgAuth.AccessTokenPayload) (string, string, error) {
	payload.JTI = session.NewAccessID()
	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, s.now().UTC(), payload)
	if err != nil {
		return "", "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	refreshToken, err := s.session.Generate(ctx, payload.JTI, session.Owner{AccountID: payload.AccountID, Role: payload.Role})
	if err != nil {
		return "", "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store refresh token")
	}
	return accessToken, refreshToken, nil
}

// pharmacyGate applies the onboarding gate: the kill switch first, then approval.
func pharmacyGate(pharmacy *models.Pharmacy, pendingMessage string) error {
	if !pharmacy.IsActive {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, pharmacyDeactivatedMessage)
	}
	if pharmacy.Status != enums.AccountStatusApproved {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, pendingMessage)
	}
	return nil
}

func requireCredentials(req LoginRequest) (string, error) {
	username := accounts.NormalizeUsername(req.Username)
	if username == "" || req.Password == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, credentialsRequiredMessage)
	}
	return username, nil
}

func verify(password, hash, failure string) error {
	valid, err := security.VerifyPassword(password, hash)
	if err != nil {
		if errors.Is(err, security.ErrInvalidHash) {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, failure)
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, failure)
	}
	return nil
}

func notFoundAsUnauthorized(err error, message, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, message)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}
