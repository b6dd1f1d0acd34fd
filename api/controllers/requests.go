package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/pharmalink-backend/api/responses"
	"github.com/angelmondragon/pharmalink-backend/api/validators"
	"github.com/angelmondragon/pharmalink-backend/internal/requests"
	"github.com/angelmondragon/pharmalink-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pharmalink-backend/pkg/errors"
	"github.com/angelmondragon/pharmalink-backend/pkg/logger"
)

type createRequestBody struct {
	ProductName  string `json:"product_name" validate:"max=255"`
	Quantity     int    `json:"quantity" validate:"gte=0,lte=1000000"`
	WholesalerID string `json:"wholesaler_id"`
}

type transitionFunc func(ctx context.Context, wholesalerID, requestID string) (*requests.TransitionResult, error)

type transitionResponse struct {
	Message string `json:"message"`
	*requests.TransitionResult
}

// RequestCreate places a purchase request from the calling pharmacy.
func RequestCreate(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "request service unavailable"))
			return
		}
		pharmacyID, err := accountID(r, enums.RolePharmacy)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createRequestBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Create(r.Context(), pharmacyID, requests.CreateInput{
			ProductName:  validators.SanitizeString(body.ProductName, 255),
			Quantity:     body.Quantity,
			WholesalerID: validators.SanitizeString(body.WholesalerID, 32),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func RequestListForPharmacy(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "request service unavailable"))
			return
		}
		pharmacyID, err := accountID(r, enums.RolePharmacy)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.ListForPharmacy(r.Context(), pharmacyID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func RequestListForWholesaler(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "request service unavailable"))
			return
		}
		wholesalerID, err := accountID(r, enums.RoleWholesaler)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.ListForWholesaler(r.Context(), wholesalerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func RequestApprove(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable("request service unavailable", logg)
	}
	return requestTransition(svc.Approve, "Request approved successfully", logg)
}

func RequestReject(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable("request service unavailable", logg)
	}
	return requestTransition(svc.Reject, "Request rejected successfully", logg)
}

func RequestCancel(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable("request service unavailable", logg)
	}
	return requestTransition(svc.Cancel, "Request cancelled successfully", logg)
}

func requestTransition(transition transitionFunc, message string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wholesalerID, err := accountID(r, enums.RoleWholesaler)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		requestID, err := pathParam(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := transition(r.Context(), wholesalerID, requestID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, transitionResponse{Message: message, TransitionResult: result})
	}
}
