package models

import "time"

// Role is the account role assigned at signup.
type Role string

const (
	RoleClient     Role = "client"
	RoleFreelancer Role = "freelancer"
	RoleAdmin      Role = "admin"
)

// SellerStatus tracks seller onboarding. It is changed by moderation only.
type SellerStatus string

const (
	SellerStatusNone     SellerStatus = "none"
	SellerStatusPending  SellerStatus = "pending"
	SellerStatusApproved SellerStatus = "approved"
	SellerStatusRejected SellerStatus = "rejected"
)

// User is the persisted credential record.
//
// RefreshToken holds the single redeemable refresh token. ResetPasswordToken
// and ResetPasswordExpire are either both set or both empty.
type User struct {
	ID                  string
	Name                string
	Email               string
	PasswordHash        string `json:"-"`
	Role                Role
	IsSeller            bool
	SellerStatus        SellerStatus
	RejectionReason     string
	RefreshToken        string
	ResetPasswordToken  string
	ResetPasswordExpire *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// PublicUser is the client-facing projection of a User.
type PublicUser struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	Email           string       `json:"email"`
	Role            Role         `json:"role"`
	IsSeller        bool         `json:"isSeller"`
	SellerStatus    SellerStatus `json:"sellerStatus"`
	RejectionReason string       `json:"rejectionReason,omitempty"`
}

// Public returns the projection without moderation details.
func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		Role:         u.Role,
		IsSeller:     u.IsSeller,
		SellerStatus: u.SellerStatus,
	}
}

// Profile returns the projection including the rejection reason.
func (u *User) Profile() *PublicUser {
	p := u.Public()
	p.RejectionReason = u.RejectionReason
	return p
}

// ProfilePatch is a partial profile update. Nil fields are left untouched.
type ProfilePatch struct {
	Name  *string
	Email *string
}

// Empty reports whether the patch changes nothing.
func (p ProfilePatch) Empty() bool {
	return p.Name == nil && p.Email == nil
}
