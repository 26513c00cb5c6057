package handlers

import (
	"errors"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lustra-app/lustra-golang/internal/models"
)

func TestParsePaidAt(t *testing.T) {
	cases := []struct {
		raw  string
		ok   bool
		want time.Time
	}{
		{"2026-03-14T09:30:00Z", true, time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)},
		{"2026-03-14 09:30:00", true, time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)},
		{"2026-03-14", true, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)},
		{"14/03/2026", false, time.Time{}},
		{"", false, time.Time{}},
	}
	for _, tc := range cases {
		got, err := parsePaidAt(tc.raw)
		if !tc.ok {
			assert.Error(t, err, tc.raw)
			continue
		}
		require.NoError(t, err, tc.raw)
		assert.True(t, got.Equal(tc.want), "%s parsed to %v", tc.raw, got)
	}
}

func TestCheckOtp(t *testing.T) {
	code := "123456"
	future := time.Now().Add(10 * time.Minute)
	past := time.Now().Add(-1 * time.Minute)

	t.Run("no code requested", func(t *testing.T) {
		msg := checkOtp(&models.User{}, code)
		assert.Equal(t, "OTP code is not available. Please request a new code.", msg)
	})

	t.Run("wrong code", func(t *testing.T) {
		msg := checkOtp(&models.User{OTPCode: &code, OTPExpiresAt: &future}, "654321")
		assert.Equal(t, "Invalid OTP code", msg)
	})

	t.Run("expired code", func(t *testing.T) {
		msg := checkOtp(&models.User{OTPCode: &code, OTPExpiresAt: &past}, code)
		assert.Equal(t, "OTP code has expired. Please request a new code.", msg)
	})

	t.Run("valid code", func(t *testing.T) {
		msg := checkOtp(&models.User{OTPCode: &code, OTPExpiresAt: &future}, code)
		assert.Empty(t, msg)
	})
}

func TestGenerateOtp(t *testing.T) {
	for i := 0; i < 20; i++ {
		otp, err := generateOtp()
		require.NoError(t, err)
		require.Len(t, otp, 6)
		for _, r := range otp {
			assert.True(t, r >= '0' && r <= '9', "otp %q contains non-digit", otp)
		}
	}
}

func TestIsDuplicateEntry(t *testing.T) {
	assert.True(t, isDuplicateEntry(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}))
	assert.False(t, isDuplicateEntry(&mysql.MySQLError{Number: 1213, Message: "Deadlock found"}))
	assert.False(t, isDuplicateEntry(errors.New("duplicate entry")))
	assert.False(t, isDuplicateEntry(nil))
}
