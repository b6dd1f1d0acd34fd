package requests

import (
	"time"

	"github.com/angelmondragon/pharmalink-backend/pkg/db/models"
	"github.com/angelmondragon/pharmalink-backend/pkg/enums"
)

// CreateResult echoes the stored request back to the pharmacy.
type CreateResult struct {
	RequestID    string `json:"requestId"`
	PharmacyID   string `json:"pharmacyId"`
	WholesalerID string `json:"wholesalerId"`
	ProductName  string `json:"productName"`
	Quantity     int    `json:"quantity"`
	UnitPrice    string `json:"unit_price"`
	TotalAmount  string `json:"total_amount"`
}

func newCreateResult(r models.Request) *CreateResult {
	return &CreateResult{
		RequestID:    r.ID,
		PharmacyID:   r.PharmacyID,
		WholesalerID: r.WholesalerID,
		ProductName:  r.ProductName,
		Quantity:     r.Quantity,
		UnitPrice:    r.UnitPrice.StringFixed(2),
		TotalAmount:  r.TotalAmount.StringFixed(2),
	}
}

// TransitionResult reports the state a wholesaler decision left the request in.
type TransitionResult struct {
	RequestID   string              `json:"requestId"`
	Status      enums.RequestStatus `json:"status"`
	OrderID     *string             `json:"orderId,omitempty"`
	TotalAmount string              `json:"total_amount"`
}

// PharmacyRequestDTO is a request as its pharmacy sees it.
type PharmacyRequestDTO struct {
	ID               string              `json:"id"`
	ProductName      string              `json:"product_name"`
	Quantity         int                 `json:"quantity"`
	UnitPrice        string              `json:"unit_price"`
	TotalAmount      string              `json:"total_amount"`
	OrderDate        string              `json:"order_date"`
	RequestDatetime  time.Time           `json:"request_datetime"`
	ApprovedDatetime *time.Time          `json:"approved_datetime"`
	Status           enums.RequestStatus `json:"status"`
	WholesalerID     string              `json:"wholesaler_id"`
	OrderID          *string             `json:"order_id"`
}

func newPharmacyRequestDTO(r models.Request) PharmacyRequestDTO {
	return PharmacyRequestDTO{
		ID:               r.ID,
		ProductName:      r.ProductName,
		Quantity:         r.Quantity,
		UnitPrice:        r.UnitPrice.StringFixed(2),
		TotalAmount:      r.TotalAmount.StringFixed(2),
		OrderDate:        r.OrderDate.Format(time.DateOnly),
		RequestDatetime:  r.RequestDatetime,
		ApprovedDatetime: r.ApprovedDatetime,
		Status:           r.Status,
		WholesalerID:     r.WholesalerID,
		OrderID:          r.OrderID,
	}
}

// IncomingRequestDTO is a request as the receiving wholesaler sees it.
type IncomingRequestDTO struct {
	ID           string              `json:"id"`
	ProductName  string              `json:"product_name"`
	Quantity     int                 `json:"quantity"`
	TotalAmount  string              `json:"total_amount"`
	OrderDate    string              `json:"order_date"`
	Status       enums.RequestStatus `json:"status"`
	OrderID      *string             `json:"order_id"`
	PharmacyID   string              `json:"pharmacy_id"`
	PharmacyName string              `json:"pharmacy_name"`
}

func newIncomingRequestDTO(r IncomingRow) IncomingRequestDTO {
	return IncomingRequestDTO{
		ID:           r.ID,
		ProductName:  r.ProductName,
		Quantity:     r.Quantity,
		TotalAmount:  r.TotalAmount.StringFixed(2),
		OrderDate:    r.OrderDate.Format(time.DateOnly),
		Status:       r.Status,
		OrderID:      r.OrderID,
		PharmacyID:   r.PharmacyID,
		PharmacyName: r.PharmacyName,
	}
}

// RequestNotificationDTO is the request-scoped message channel shown to pharmacies.
type RequestNotificationDTO struct {
	NotificationID string    `json:"notification_id"`
	Type           string    `json:"type"`
	Title          string    `json:"title"`
	Message        *string   `json:"message"`
	CreatedAt      time.Time `json:"created_at"`
	IsRead         bool      `json:"is_read"`
}

func newRequestNotificationDTO(r models.Request) RequestNotificationDTO {
	return RequestNotificationDTO{
		NotificationID: r.ID,
		Type:           "request_update",
		Title:          notificationTitle(r.Status),
		Message:        r.NotificationMessage,
		CreatedAt:      r.RequestDatetime,
		IsRead:         r.NotificationSent,
	}
}

func notificationTitle(status enums.RequestStatus) string {
	switch status {
	case enums.RequestStatusApproved:
		return "Request Approved"
	case enums.RequestStatusRejected:
		return "Request Rejected"
	case enums.RequestStatusNotification:
		return "System Notification"
	default:
		return "Request Updated"
	}
}

// OrderDTO is an approved request presented as an order.
type OrderDTO struct {
	OrderID           string     `json:"order_id"`
	RequestID         string     `json:"request_id"`
	ProductName       string     `json:"product_name"`
	Quantity          int        `json:"quantity"`
	TotalAmount       string     `json:"total_amount"`
	OrderDate         string     `json:"order_date"`
	ApprovedDatetime  *time.Time `json:"approved_datetime,omitempty"`
	Status            string     `json:"status"`
	WholesalerName    string     `json:"wholesaler_name"`
	WholesalerAddress string     `json:"wholesaler_address"`
}

func newOrderDTO(r OrderRow) OrderDTO {
	return OrderDTO{
		OrderID:           r.OrderID,
		RequestID:         r.RequestID,
		ProductName:       r.ProductName,
		Quantity:          r.Quantity,
		TotalAmount:       r.TotalAmount.StringFixed(2),
		OrderDate:         r.OrderDate.Format(time.DateOnly),
		ApprovedDatetime:  r.ApprovedDatetime,
		Status:            r.Status,
		WholesalerName:    r.WholesalerName,
		WholesalerAddress: r.WholesalerAddress,
	}
}

// DashboardDTO summarizes a pharmacy's activity.
type DashboardDTO struct {
	TotalOrders     int64      `json:"totalOrders"`
	PendingRequests int64      `json:"pendingRequests"`
	TotalSpent      string     `json:"totalSpent"`
	RecentOrders    []OrderDTO `json:"recentOrders"`
}
