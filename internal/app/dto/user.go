package dto

import (
	"time"

	domainuser "motomarket/internal/domain/user"
)

// UserDetails is the public projection of a user.
type UserDetails struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

type UserProfile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	AvatarURL string    `json:"avatarUrl,omitempty"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"createdAt"`
}

type AuthResponse struct {
	User      UserProfile `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

func MapUserDetails(details domainuser.Details) UserDetails {
	return UserDetails{ID: string(details.ID), Name: details.Name, AvatarURL: details.AvatarURL}
}

// MapUserDetailsPtr returns nil for a nil input.
func MapUserDetailsPtr(details *domainuser.Details) *UserDetails {
	if details == nil {
		return nil
	}
	out := MapUserDetails(*details)
	return &out
}

func MapUserProfile(user *domainuser.User) UserProfile {
	if user == nil {
		return UserProfile{}
	}
	roles := make([]string, 0, len(user.Roles))
	for _, role := range user.Roles {
		roles = append(roles, string(role))
	}
	return UserProfile{
		ID:        string(user.ID),
		Email:     user.Email,
		Name:      user.Name,
		AvatarURL: user.AvatarURL,
		Roles:     roles,
		CreatedAt: user.CreatedAt,
	}
}

func NewAuthResponse(user *domainuser.User, token string, expiresAt time.Time) AuthResponse {
	return AuthResponse{User: MapUserProfile(user), Token: token, ExpiresAt: expiresAt}
}
