package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Account is a user document in the users collection.
type Account struct {
	ID           primitive.ObjectID   `json:"_id"          bson:"_id,omitempty"`
	Username     string               `json:"username"     bson:"username"`
	Email        string               `json:"email"        bson:"email"`
	FullName     string               `json:"fullName"     bson:"fullName"`
	Avatar       string               `json:"avatar"       bson:"avatar"`
	CoverImage   string               `json:"coverImage"   bson:"coverImage"`
	WatchHistory []primitive.ObjectID `json:"watchHistory" bson:"watchHistory"`
	Password     string               `json:"-"            bson:"password,omitempty"`     // never serialize
	RefreshToken string               `json:"-"            bson:"refreshToken,omitempty"` // never serialize
	CreatedAt    time.Time            `json:"createdAt"    bson:"createdAt"`
	UpdatedAt    time.Time            `json:"updatedAt"    bson:"updatedAt"`
}

// Sanitized returns a copy without the password hash and refresh token.
func (a Account) Sanitized() *Account {
	a.Password = ""
	a.RefreshToken = ""
	if a.WatchHistory == nil {
		a.WatchHistory = []primitive.ObjectID{}
	}
	return &a
}

// RegisterRequest carries the text fields of POST /users/register.
type RegisterRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginRequest is the body for POST /users/login. Either identifier may be set.
type LoginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest is the body for POST /users/refresh-token.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// ChangePasswordRequest is the body for POST /users/change-password.
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// UpdateAccountRequest is the body for PATCH /users/update-account.
type UpdateAccountRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

// SessionTokens is the access/refresh pair issued on login and refresh.
type SessionTokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// LoginResponse is the data payload of a successful login.
type LoginResponse struct {
	User         *Account `json:"user"`
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
}
