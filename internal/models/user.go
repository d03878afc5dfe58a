package models

import "time"

type UserRole string

const (
	UserRoleUser          UserRole = "user"
	UserRoleFacilityOwner UserRole = "facility_owner"
	UserRoleAdmin         UserRole = "admin"
)

// ValidRole reports whether role is one of the roles a signup may request.
func ValidRole(role UserRole) bool {
	switch role {
	case UserRoleUser, UserRoleFacilityOwner, UserRoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID                  int64
	Email               string
	PasswordHash        string
	FullName            string
	Role                UserRole
	Phone               *string
	IsVerified          bool
	IsActive            bool
	FailedLoginAttempts int
	LockedUntil         *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Locked reports whether the account lockout window is still in effect.
func (u User) Locked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

// PublicProfile is the caller-visible slice of a user record. Password
// hashes and lockout bookkeeping never leave the service layer.
type PublicProfile struct {
	ID         int64    `json:"id"`
	Email      string   `json:"email"`
	FullName   string   `json:"fullName"`
	Role       UserRole `json:"role"`
	Phone      *string  `json:"phone,omitempty"`
	IsVerified bool     `json:"isVerified"`
}

func (u User) Public() PublicProfile {
	return PublicProfile{
		ID:         u.ID,
		Email:      u.Email,
		FullName:   u.FullName,
		Role:       u.Role,
		Phone:      u.Phone,
		IsVerified: u.IsVerified,
	}
}
