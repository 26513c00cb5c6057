package handlers

import (
	"database/sql"
	"errors"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-sql-driver/mysql"

	"github.com/lustra-app/lustra-golang/internal/auth"
	"github.com/lustra-app/lustra-golang/internal/cache"
	"github.com/lustra-app/lustra-golang/internal/checkout"
	"github.com/lustra-app/lustra-golang/internal/mailer"
	"github.com/lustra-app/lustra-golang/internal/middleware"
	"github.com/lustra-app/lustra-golang/internal/notify"
	"github.com/lustra-app/lustra-golang/internal/social"
)

// Handlers holds all dependencies for the HTTP handlers.
type Handlers struct {
	DB     *sql.DB
	Cache  cache.Cache
	Engine *checkout.Engine
	Notify *notify.Emitter
	Mailer *mailer.Mailer
	Social *social.Client
	Debug  bool
}

// principal returns the authenticated principal set by the auth middleware.
func principal(c *gin.Context) auth.Principal {
	raw, _ := c.Get(middleware.PrincipalKey)
	return raw.(auth.Principal)
}

// isDuplicateEntry reports a MySQL unique-constraint violation (1062).
func isDuplicateEntry(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

// SweepExpiredOtps clears password-reset codes that are past their expiry.
// Called periodically from the background worker.
func (h *Handlers) SweepExpiredOtps() {
	result, err := h.DB.Exec(
		"UPDATE users SET otp_code = NULL, otp_expires_at = NULL WHERE otp_expires_at IS NOT NULL AND otp_expires_at < NOW()")
	if err != nil {
		log.Printf("OTP sweep failed: %v", err)
		return
	}
	if n, err := result.RowsAffected(); err == nil && n > 0 {
		log.Printf("OTP sweep cleared %d expired code(s)", n)
	}
}
