package models

import (
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role is the privilege level of an admin account.
type Role string

const (
	RoleAdmin      Role = "Admin"
	RoleSuperAdmin Role = "SuperAdmin"
)

// PhonePattern is what the phone10 binding tag accepts.
var PhonePattern = regexp.MustCompile(`^\d{10}$`)

// DefaultProfileImage is used until an admin uploads an avatar.
const DefaultProfileImage = "https://res.cloudinary.com/demo/image/upload/default-avatar.jpg"

// Admin defines the structure for a back office user.
// Secrets never leave the process: they are excluded from JSON.
type Admin struct {
	ID                       primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Name                     string             `json:"name" bson:"name"`
	Email                    string             `json:"email" bson:"email"`
	Password                 string             `json:"-" bson:"password"`
	Role                     Role               `json:"role" bson:"role"`
	Phone                    string             `json:"phone" bson:"phone"`
	ProfileImage             string             `json:"profile_image" bson:"profile_image"`
	IsVerified               bool               `json:"is_verified" bson:"is_verified"`
	EmailVerificationToken   string             `json:"-" bson:"email_verification_token,omitempty"`
	EmailVerificationExpires *time.Time         `json:"-" bson:"email_verification_expires,omitempty"`
	PasswordResetToken       string             `json:"-" bson:"password_reset_token,omitempty"`
	PasswordResetExpires     *time.Time         `json:"-" bson:"password_reset_expires,omitempty"`
	CreatedAt                time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt                time.Time          `json:"updated_at" bson:"updated_at"`
}

// LoginRequest defines the body of a login request.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest defines the body of a registration request.
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Phone    string `json:"phone" binding:"required,phone10"`
}

// ProfileUpdateRequest is bound from JSON or multipart form. Empty fields
// keep their current value.
type ProfileUpdateRequest struct {
	Name  string `json:"name" form:"name"`
	Phone string `json:"phone" form:"phone" binding:"omitempty,phone10"`
}

// ProfileUpdate names the profile fields to change; nil leaves a field alone.
type ProfileUpdate struct {
	Name         *string
	Phone        *string
	ProfileImage *string
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=6"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordRequest struct {
	NewPassword string `json:"new_password" binding:"required,min=6"`
}
