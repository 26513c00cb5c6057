package models

import "time"

// User is the model for the 'users' table.
// Nullable columns use pointers for clean JSON serialization.
type User struct {
	ID           int64      `json:"id" db:"id"`
	Name         string     `json:"name" db:"name"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password"`
	Phone        *string    `json:"phone,omitempty" db:"phone"`
	Gender       *string    `json:"gender,omitempty" db:"gender"`
	DateOfBirth  *time.Time `json:"dateOfBirth,omitempty" db:"date_of_birth"`
	ProfileImage *string    `json:"profileImage,omitempty" db:"profile_image"`
	IsDarkMode   bool       `json:"isDarkMode" db:"is_dark_mode"`
	Language     string     `json:"language" db:"language"`
	IsAdmin      bool       `json:"isAdmin" db:"is_admin"`

	// Social login linkage
	SocialProvider   *string `json:"socialProvider,omitempty" db:"social_provider"`
	SocialProviderID *string `json:"-" db:"social_provider_id"`

	// Password reset OTP, never serialized
	OTPCode      *string    `json:"-" db:"otp_code"`
	OTPExpiresAt *time.Time `json:"-" db:"otp_expires_at"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
