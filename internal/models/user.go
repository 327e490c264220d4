package models

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	PasswordHash    string    `json:"-"`
	Name            string    `json:"name"`
	Role            string    `json:"role"`
	StrapiID        string    `json:"strapiId,omitempty"`
	MembershipTier  string    `json:"membershipTier"`
	MembershipStart string    `json:"membershipStart,omitempty"`
	MembershipEnd   string    `json:"membershipEnd,omitempty"`
	IsTrial         bool      `json:"isTrial"`
	CreatedAt       time.Time `json:"createdAt"`
}

type UserResponse struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	Name            string    `json:"name"`
	Role            string    `json:"role"`
	MembershipTier  string    `json:"membershipTier"`
	MembershipStart string    `json:"membershipStart,omitempty"`
	MembershipEnd   string    `json:"membershipEnd,omitempty"`
	IsTrial         bool      `json:"isTrial"`
	CreatedAt       time.Time `json:"createdAt"`
}

func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:              u.ID,
		Email:           u.Email,
		Name:            u.Name,
		Role:            u.Role,
		MembershipTier:  u.MembershipTier,
		MembershipStart: u.MembershipStart,
		MembershipEnd:   u.MembershipEnd,
		IsTrial:         u.IsTrial,
		CreatedAt:       u.CreatedAt,
	}
}
