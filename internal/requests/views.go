package requests

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pharmalink-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pharmalink-backend/pkg/errors"
)

func (s *service) ListForPharmacy(ctx context.Context, pharmacyID string) ([]PharmacyRequestDTO, error) {
	rows, err := s.repo.ListForPharmacy(ctx, pharmacyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pharmacy requests")
	}
	out := make([]PharmacyRequestDTO, 0, len(rows))
	for _, r := range rows {
		out = append(out, newPharmacyRequestDTO(r))
	}
	return out, nil
}

func (s *service) ListForWholesaler(ctx context.Context, wholesalerID string) ([]IncomingRequestDTO, error) {
	rows, err := s.repo.ListForWholesaler(ctx, wholesalerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list incoming requests")
	}
	out := make([]IncomingRequestDTO, 0, len(rows))
	for _, r := range rows {
		out = append(out, newIncomingRequestDTO(r))
	}
	return out, nil
}

func (s *service) Notifications(ctx context.Context, pharmacyID string) ([]RequestNotificationDTO, error) {
	rows, err := s.repo.RequestNotifications(ctx, pharmacyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list request notifications")
	}
	out := make([]RequestNotificationDTO, 0, len(rows))
	for _, r := range rows {
		out = append(out, newRequestNotificationDTO(r))
	}
	return out, nil
}

func (s *service) MarkNotificationRead(ctx context.Context, pharmacyID, requestID string) error {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "request id is required")
	}
	found, err := s.repo.MarkNotificationSent(ctx, pharmacyID, requestID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark request notification read")
	}
	if !found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "Notification not found")
	}
	return nil
}

func (s *service) Orders(ctx context.Context, pharmacyID string) ([]OrderDTO, error) {
	rows, err := s.repo.Orders(ctx, pharmacyID, 0)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return ordersToDTO(rows), nil
}

// Dashboard sums the totals captured at request time, not current prices.
func (s *service) Dashboard(ctx context.Context, pharmacyID string) (*DashboardDTO, error) {
	totalOrders, err := s.repo.CountByStatus(ctx, pharmacyID, enums.RequestStatusApproved)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count orders")
	}
	pending, err := s.repo.CountByStatus(ctx, pharmacyID, enums.RequestStatusPending)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count pending requests")
	}
	totals, err := s.repo.ApprovedTotals(ctx, pharmacyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum approved totals")
	}
	spent := decimal.Zero
	for _, t := range totals {
		spent = spent.Add(t)
	}
	recent, err := s.repo.Orders(ctx, pharmacyID, recentOrdersLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list recent orders")
	}
	return &DashboardDTO{
		TotalOrders:     totalOrders,
		PendingRequests: pending,
		TotalSpent:      spent.StringFixed(2),
		RecentOrders:    ordersToDTO(recent),
	}, nil
}

func ordersToDTO(rows []OrderRow) []OrderDTO {
	out := make([]OrderDTO, 0, len(rows))
	for _, r := range rows {
		out = append(out, newOrderDTO(r))
	}
	return out
}
