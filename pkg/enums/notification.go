package enums

import "fmt"

// NotificationType tags what caused a notification.
type NotificationType string

const (
	NotificationTypeRequest                   NotificationType = "request"
	NotificationTypeRequestApproved           NotificationType = "requestApproved"
	NotificationTypeRequestRejected           NotificationType = "requestRejected"
	NotificationTypeProduct                   NotificationType = "product"
	NotificationTypeAddPharmacy               NotificationType = "add_pharmacy"
	NotificationTypeRegisterWholesaler        NotificationType = "register_wholesaler"
	NotificationTypeApprovePharmacyRequest    NotificationType = "approve_pharmacy_request"
	NotificationTypeDisapprovePharmacyRequest NotificationType = "disapprove_pharmacy_request"
	NotificationTypeActivatePharmacy          NotificationType = "activate_pharmacy"
	NotificationTypeDeactivatePharmacy        NotificationType = "deactivate_pharmacy"
	NotificationTypeActivateWholesaler        NotificationType = "activate_wholesaler"
	NotificationTypeDeactivateWholesaler      NotificationType = "deactivate_wholesaler"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeRequest,
	NotificationTypeRequestApproved,
	NotificationTypeRequestRejected,
	NotificationTypeProduct,
	NotificationTypeAddPharmacy,
	NotificationTypeRegisterWholesaler,
	NotificationTypeApprovePharmacyRequest,
	NotificationTypeDisapprovePharmacyRequest,
	NotificationTypeActivatePharmacy,
	NotificationTypeDeactivatePharmacy,
	NotificationTypeActivateWholesaler,
	NotificationTypeDeactivateWholesaler,
}

// String implements fmt.Stringer.
func (n NotificationType) String() string {
	return string(n)
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}

// ActivationNotificationType picks the activate/deactivate tag for a role.
func ActivationNotificationType(role Role, active bool) NotificationType {
	switch {
	case role == RoleWholesaler && active:
		return NotificationTypeActivateWholesaler
	case role == RoleWholesaler:
		return NotificationTypeDeactivateWholesaler
	case active:
		return NotificationTypeActivatePharmacy
	default:
		return NotificationTypeDeactivatePharmacy
	}
}
