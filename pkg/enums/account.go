package enums

import "fmt"

// AccountStatus is the onboarding approval state shared by pharmacies and wholesalers.
type AccountStatus string

const (
	AccountStatusPending  AccountStatus = "pending"
	AccountStatusApproved AccountStatus = "approved"
	AccountStatusRejected AccountStatus = "rejected"
)

var validAccountStatuses = []AccountStatus{
	AccountStatusPending,
	AccountStatusApproved,
	AccountStatusRejected,
}

// String implements fmt.Stringer.
func (s AccountStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known AccountStatus.
func (s AccountStatus) IsValid() bool {
	for _, candidate := range validAccountStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseAccountStatus converts raw input into an AccountStatus.
func ParseAccountStatus(value string) (AccountStatus, error) {
	for _, candidate := range validAccountStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid account status %q", value)
}

// AdminStatus gates regular administrator logins.
type AdminStatus string

const (
	AdminStatusActive   AdminStatus = "active"
	AdminStatusInactive AdminStatus = "inactive"
)

var validAdminStatuses = []AdminStatus{
	AdminStatusActive,
	AdminStatusInactive,
}

func (s AdminStatus) String() string {
	return string(s)
}

func (s AdminStatus) IsValid() bool {
	for _, candidate := range validAdminStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseAdminStatus converts raw input into an AdminStatus.
func ParseAdminStatus(value string) (AdminStatus, error) {
	for _, candidate := range validAdminStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid admin status %q", value)
}
