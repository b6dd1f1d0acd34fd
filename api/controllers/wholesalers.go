package controllers

import (
	"net/http"

	"github.com/angelmondragon/pharmalink-backend/api/responses"
	"github.com/angelmondragon/pharmalink-backend/api/validators"
	"github.com/angelmondragon/pharmalink-backend/internal/wholesalers"
	"github.com/angelmondragon/pharmalink-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pharmalink-backend/pkg/errors"
	"github.com/angelmondragon/pharmalink-backend/pkg/logger"
)

type wholesalerRegisterRequest struct {
	Name     string `json:"name" validate:"max=255"`
	Address  string `json:"address"`
	Username string `json:"username" validate:"max=255"`
	Password string `json:"password"`
	Status   string `json:"status"`
}

func (b wholesalerRegisterRequest) input() wholesalers.RegisterInput {
	return wholesalers.RegisterInput{
		Name:     validators.SanitizeString(b.Name, 255),
		Address:  b.Address,
		Username: b.Username,
		Password: b.Password,
		Status:   b.Status,
	}
}

type wholesalerProfileRequest struct {
	Name     string `json:"name" validate:"max=255"`
	Address  string `json:"address"`
	Username string `json:"username" validate:"max=255"`
}

// WholesalerRegister is the public sign-up route.
func WholesalerRegister(svc wholesalers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wholesaler service unavailable"))
			return
		}

		var body wholesalerRegisterRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Register(r.Context(), body.input(), "")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// AdminRegisterWholesaler registers a wholesaler on behalf of the calling
// admin, who is notified once the row exists.
func AdminRegisterWholesaler(svc wholesalers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wholesaler service unavailable"))
			return
		}
		adminID, err := accountID(r, enums.RoleAdmin)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body wholesalerRegisterRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Register(r.Context(), body.input(), adminID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func WholesalerProfile(svc wholesalers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wholesaler service unavailable"))
			return
		}
		wholesalerID, err := accountID(r, enums.RoleWholesaler)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		profile, err := svc.Profile(r.Context(), wholesalerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}

func WholesalerUpdateProfile(svc wholesalers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wholesaler service unavailable"))
			return
		}
		wholesalerID, err := accountID(r, enums.RoleWholesaler)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body wholesalerProfileRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		profile, err := svc.UpdateProfile(r.Context(), wholesalerID, wholesalers.ProfileInput{
			Name:     validators.SanitizeString(body.Name, 255),
			Address:  body.Address,
			Username: body.Username,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}

func WholesalerChangePassword(svc wholesalers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wholesaler service unavailable"))
			return
		}
		wholesalerID, err := accountID(r, enums.RoleWholesaler)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body changePasswordRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.ChangePassword(r.Context(), wholesalerID, body.CurrentPassword, body.NewPassword); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, messageResponse{Message: "Password updated successfully"})
	}
}
