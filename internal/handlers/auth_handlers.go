package handlers

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lustra-app/lustra-golang/internal/auth"
	"github.com/lustra-app/lustra-golang/internal/models"
)

//
// --- Auth Handlers ---
//

const userColumns = `id, name, email, password, phone, gender, date_of_birth, profile_image,
	is_dark_mode, language, is_admin, social_provider, social_provider_id,
	otp_code, otp_expires_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Phone, &u.Gender, &u.DateOfBirth,
		&u.ProfileImage, &u.IsDarkMode, &u.Language, &u.IsAdmin,
		&u.SocialProvider, &u.SocialProviderID,
		&u.OTPCode, &u.OTPExpiresAt, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (h *Handlers) userByID(id int64) (*models.User, error) {
	row := h.DB.QueryRow("SELECT "+userColumns+" FROM users WHERE id = ?", id)
	return scanUser(row)
}

func (h *Handlers) userByEmail(email string) (*models.User, error) {
	row := h.DB.QueryRow("SELECT "+userColumns+" FROM users WHERE email = ?", email)
	return scanUser(row)
}

// RegisterInput defines the JSON body for POST /api/register
type RegisterInput struct {
	Name                 string  `json:"name" binding:"required,max=255"`
	Email                string  `json:"email" binding:"required,email"`
	Password             string  `json:"password" binding:"required,min=6"`
	PasswordConfirmation string  `json:"password_confirmation" binding:"required,eqfield=Password"`
	Phone                *string `json:"phone" binding:"omitempty,max=20"`
	Gender               *string `json:"gender" binding:"omitempty,max=10"`
	DateOfBirth          *string `json:"date_of_birth"`
	ProfileImage         *string `json:"profile_image" binding:"omitempty,max=255"`
	Language             *string `json:"language" binding:"omitempty,max=10"`
	IsDarkMode           *bool   `json:"is_dark_mode"`
}

// Register is the handler for POST /api/register
func (h *Handlers) Register(c *gin.Context) {
	var input RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid input: " + err.Error()})
		return
	}

	var dob *time.Time
	if input.DateOfBirth != nil {
		parsed, err := time.Parse("2006-01-02", *input.DateOfBirth)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "date_of_birth must be formatted YYYY-MM-DD"})
			return
		}
		dob = &parsed
	}

	var password auth.Password
	if err := password.Set(input.Password); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to hash password"})
		return
	}

	language := "en"
	if input.Language != nil {
		language = *input.Language
	}
	isDarkMode := input.IsDarkMode != nil && *input.IsDarkMode

	now := time.Now()
	result, err := h.DB.Exec(`
		INSERT INTO users (name, email, password, phone, gender, date_of_birth, profile_image, is_dark_mode, language, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		input.Name, input.Email, password.Hash, input.Phone, input.Gender, dob,
		input.ProfileImage, isDarkMode, language, now, now,
	)
	if err != nil {
		if isDuplicateEntry(err) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "The email has already been taken."})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to create user"})
		return
	}

	userID, err := result.LastInsertId()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to create user"})
		return
	}

	token, err := auth.GenerateToken(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to issue token"})
		return
	}

	user, err := h.userByID(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to load user"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"user":    user,
		"token":   token,
	})
}

// LoginInput defines the JSON body for POST /api/login
type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login is the handler for POST /api/login
func (h *Handlers) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid input: " + err.Error()})
		return
	}

	user, err := h.userByEmail(input.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to load user"})
		return
	}

	password := auth.Password{Hash: user.PasswordHash}
	ok, err := password.Matches(input.Password)
	if err != nil || !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials"})
		return
	}

	token, err := auth.GenerateToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"user":    user,
		"token":   token,
	})
}

// LoginHint is the handler for GET /api/login, for clients poking the API
// with the wrong verb.
func (h *Handlers) LoginHint(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Use POST /api/login with email and password."})
}

// Me is the handler for GET /api/me
func (h *Handlers) Me(c *gin.Context) {
	user, err := h.userByID(principal(c).ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to load user"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// VerifyPasswordInput defines the JSON body for POST /api/verify-password
type VerifyPasswordInput struct {
	Password string `json:"password" binding:"required"`
}

// VerifyPassword is the handler for POST /api/verify-password
func (h *Handlers) VerifyPassword(c *gin.Context) {
	var input VerifyPasswordInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid input: " + err.Error()})
		return
	}

	user, err := h.userByID(principal(c).ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to load user"})
		return
	}

	password := auth.Password{Hash: user.PasswordHash}
	if ok, err := password.Matches(input.Password); err != nil || !ok {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Incorrect password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password verified"})
}

// UpdateProfileInput defines the JSON body for POST /api/profile/update
type UpdateProfileInput struct {
	Name                    string  `json:"name" binding:"required,max=255"`
	CurrentPassword         string  `json:"current_password" binding:"required"`
	NewPassword             *string `json:"new_password" binding:"omitempty,min=6"`
	NewPasswordConfirmation *string `json:"new_password_confirmation" binding:"omitempty,eqfield=NewPassword"`
}

// UpdateProfile is the handler for POST /api/profile/update
func (h *Handlers) UpdateProfile(c *gin.Context) {
	var input UpdateProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid input: " + err.Error()})
		return
	}

	user, err := h.userByID(principal(c).ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to load user"})
		return
	}

	password := auth.Password{Hash: user.PasswordHash}
	if ok, err := password.Matches(input.CurrentPassword); err != nil || !ok {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Current password is incorrect"})
		return
	}

	newHash := user.PasswordHash
	if input.NewPassword != nil && *input.NewPassword != "" {
		var next auth.Password
		if err := next.Set(*input.NewPassword); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to hash password"})
			return
		}
		newHash = next.Hash
	}

	_, err = h.DB.Exec("UPDATE users SET name = ?, password = ?, updated_at = ? WHERE id = ?",
		input.Name, newHash, time.Now(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to update profile"})
		return
	}

	fresh, err := h.userByID(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to load user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Profile updated successfully",
		"user":    fresh,
	})
}

//
// --- Password Reset (OTP) Handlers ---
//

// SendResetOtpInput defines the JSON body for POST /api/forgot-password/send-otp
type SendResetOtpInput struct {
	Email string `json:"email" binding:"required,email"`
}

// generateOtp returns a 6-digit one-time code.
func generateOtp() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// SendResetOtp is the handler for POST /api/forgot-password/send-otp
func (h *Handlers) SendResetOtp(c *gin.Context) {
	var input SendResetOtpInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid input: " + err.Error()})
		return
	}

	user, err := h.userByEmail(input.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"message": "No account found with this email"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to load user"})
		return
	}

	otp, err := generateOtp()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to generate OTP"})
		return
	}
	expiresAt := time.Now().Add(10 * time.Minute)

	_, err = h.DB.Exec("UPDATE users SET otp_code = ?, otp_expires_at = ?, updated_at = ? WHERE id = ?",
		otp, expiresAt, time.Now(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to store OTP"})
		return
	}

	// Without SMTP credentials the code cannot leave the server; in debug
	// deployments it is returned to the caller for local testing instead.
	if !h.Mailer.Configured() {
		if h.Debug {
			c.JSON(http.StatusOK, gin.H{
				"message":    "SMTP is not configured. OTP generated for local testing.",
				"otp_code":   otp,
				"expires_at": expiresAt,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"message": "Email delivery is not configured. Please configure MAIL_USERNAME and MAIL_PASSWORD.",
		})
		return
	}

	if err := h.Mailer.SendResetOtp(user.Email, otp); err != nil {
		log.Printf("Failed to send reset OTP email to %s: %v", user.Email, err)
		if h.Debug {
			c.JSON(http.StatusOK, gin.H{
				"message":    "Failed to send OTP email. OTP generated for local testing.",
				"otp_code":   otp,
				"expires_at": expiresAt,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to send OTP email. Please check SMTP settings."})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "OTP code sent to your email"})
}

// checkOtp validates the stored OTP for a user; it returns a client-facing
// message when the code is unusable.
func checkOtp(user *models.User, otp string) string {
	if user.OTPCode == nil || user.OTPExpiresAt == nil {
		return "OTP code is not available. Please request a new code."
	}
	if *user.OTPCode != otp {
		return "Invalid OTP code"
	}
	if time.Now().After(*user.OTPExpiresAt) {
		return "OTP code has expired. Please request a new code."
	}
	return ""
}

// VerifyResetOtpInput defines the JSON body for POST /api/forgot-password/verify-otp
type VerifyResetOtpInput struct {
	Email   string `json:"email" binding:"required,email"`
	OTPCode string `json:"otp_code" binding:"required,len=6"`
}

// VerifyResetOtp is the handler for POST /api/forgot-password/verify-otp
func (h *Handlers) VerifyResetOtp(c *gin.Context) {
	var input VerifyResetOtpInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid input: " + err.Error()})
		return
	}

	user, err := h.userByEmail(input.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"message": "No account found with this email"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to load user"})
		return
	}

	if msg := checkOtp(user, input.OTPCode); msg != "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": msg})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "OTP verified"})
}

// ResetPasswordInput defines the JSON body for POST /api/forgot-password/reset
type ResetPasswordInput struct {
	Email                string `json:"email" binding:"required,email"`
	OTPCode              string `json:"otp_code" binding:"required,len=6"`
	Password             string `json:"password" binding:"required,min=6"`
	PasswordConfirmation string `json:"password_confirmation" binding:"required,eqfield=Password"`
}

// ResetPassword is the handler for POST /api/forgot-password/reset
func (h *Handlers) ResetPassword(c *gin.Context) {
	var input ResetPasswordInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid input: " + err.Error()})
		return
	}

	user, err := h.userByEmail(input.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"message": "No account found with this email"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to load user"})
		return
	}

	if msg := checkOtp(user, input.OTPCode); msg != "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": msg})
		return
	}

	var password auth.Password
	if err := password.Set(input.Password); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to hash password"})
		return
	}

	_, err = h.DB.Exec(
		"UPDATE users SET password = ?, otp_code = NULL, otp_expires_at = NULL, updated_at = ? WHERE id = ?",
		password.Hash, time.Now(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to reset password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password reset successfully"})
}

//
// --- Social Login ---
//

// SocialLoginInput defines the JSON body for POST /api/social-login
type SocialLoginInput struct {
	Provider    string `json:"provider" binding:"required,oneof=google facebook"`
	AccessToken string `json:"access_token" binding:"required"`
}

// randomPassword returns a random plaintext for accounts created via social
// login; the user never sees it and can reset it via OTP later.
func randomPassword() string {
	buf := make([]byte, 24)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

// SocialLogin is the handler for POST /api/social-login
func (h *Handlers) SocialLogin(c *gin.Context) {
	var input SocialLoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid input: " + err.Error()})
		return
	}

	profile, err := h.Social.Fetch(c.Request.Context(), input.Provider, input.AccessToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": err.Error()})
		return
	}

	if profile.Email == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Unable to retrieve email from social account"})
		return
	}

	user, err := h.userByEmail(profile.Email)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to load user"})
		return
	}

	// Fall back to the provider linkage for accounts whose email changed.
	if user == nil && profile.ProviderID != "" {
		row := h.DB.QueryRow("SELECT "+userColumns+" FROM users WHERE social_provider = ? AND social_provider_id = ?",
			input.Provider, profile.ProviderID)
		user, err = scanUser(row)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to load user"})
			return
		}
		if errors.Is(err, sql.ErrNoRows) {
			user = nil
		}
	}

	now := time.Now()
	if user == nil {
		name := profile.Name
		if name == "" {
			name = "Social User"
		}
		var password auth.Password
		if err := password.Set(randomPassword()); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to create user"})
			return
		}

		var avatar *string
		if profile.Avatar != "" {
			avatar = &profile.Avatar
		}
		var providerID *string
		if profile.ProviderID != "" {
			providerID = &profile.ProviderID
		}

		result, err := h.DB.Exec(`
			INSERT INTO users (name, email, password, profile_image, social_provider, social_provider_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			name, profile.Email, password.Hash, avatar, input.Provider, providerID, now, now,
		)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to create user"})
			return
		}
		userID, err := result.LastInsertId()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to create user"})
			return
		}
		user, err = h.userByID(userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to load user"})
			return
		}
	} else {
		name := user.Name
		if profile.Name != "" {
			name = profile.Name
		}
		avatar := user.ProfileImage
		if profile.Avatar != "" {
			avatar = &profile.Avatar
		}
		providerID := user.SocialProviderID
		if profile.ProviderID != "" {
			providerID = &profile.ProviderID
		}

		_, err = h.DB.Exec(`
			UPDATE users SET name = ?, profile_image = ?, social_provider = ?, social_provider_id = ?, updated_at = ?
			WHERE id = ?`,
			name, avatar, input.Provider, providerID, now, user.ID,
		)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to update user"})
			return
		}
		user, err = h.userByID(user.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to load user"})
			return
		}
	}

	token, err := auth.GenerateToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Social login successful",
		"user":    user,
		"token":   token,
	})
}
