package routes

import (
	"database/sql"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/lustra-app/lustra-golang/internal/handlers"
	"github.com/lustra-app/lustra-golang/internal/middleware"
)

// corsMiddleware allows the frontend origin to talk to the API.
func corsMiddleware() gin.HandlerFunc {
	origin := os.Getenv("CORS_ALLOWED_ORIGIN")
	if origin == "" {
		origin = "*"
	}
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-Id")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// SetupRouter configures all the API routes
func SetupRouter(h *handlers.Handlers, db *sql.DB) *gin.Engine {
	router := gin.Default()

	router.Use(corsMiddleware())
	router.Use(middleware.RequestID())

	api := router.Group("/api")
	{
		// --- Public Routes ---
		api.POST("/register", h.Register)
		api.POST("/login", h.Login)
		api.GET("/login", h.LoginHint)
		api.POST("/social-login", h.SocialLogin)
		api.POST("/forgot-password/send-otp", h.SendResetOtp)
		api.POST("/forgot-password/verify-otp", h.VerifyResetOtp)
		api.POST("/forgot-password/reset", h.ResetPassword)

		api.GET("/products", h.ListProducts)
		api.GET("/products/:id", h.GetProduct)
		api.GET("/categories", h.ListCategories)
		api.GET("/categories/:id", h.GetCategory)

		// --- Authenticated Routes ---
		authed := api.Group("")
		authed.Use(middleware.AuthMiddleware(db))
		{
			authed.GET("/me", h.Me)
			authed.POST("/verify-password", h.VerifyPassword)
			authed.POST("/profile/update", h.UpdateProfile)

			authed.GET("/favorites", h.ListFavorites)
			authed.GET("/favorites/user/:userId", h.ListFavorites)
			authed.POST("/favorites", h.AddFavorite)
			authed.POST("/favorites/toggle", h.ToggleFavorite)
			authed.DELETE("/favorites/:id", h.DeleteFavorite)
			// legacy alias kept for older mobile clients
			authed.POST("/favorite", h.ToggleFavorite)

			authed.GET("/carts/user/:userId", h.GetCart)
			authed.POST("/carts", h.AddToCart)
			authed.PUT("/carts/:id", h.UpdateCartItem)
			authed.DELETE("/carts/:id", h.DeleteCartItem)
			authed.DELETE("/carts/user/:userId/clear", h.ClearCart)

			authed.GET("/orders", h.ListOrders)
			authed.GET("/orders/:id", h.GetOrder)
			authed.POST("/orders", h.PlaceOrder)
			authed.PATCH("/orders/:id/status", h.UpdateOrderStatus)

			authed.GET("/payments", h.ListPayments)
			authed.GET("/payments/:id", h.GetPayment)
			authed.POST("/payments", h.CreatePayment)
			authed.PUT("/payments/:id", h.UpdatePayment)
			authed.DELETE("/payments/:id", h.DeletePayment)

			authed.GET("/notifications/user/:userId", h.ListNotifications)
			authed.POST("/notifications", h.CreateNotification)
			authed.PATCH("/notifications/:id/read", h.MarkAsRead)
			authed.DELETE("/notifications/:id", h.DeleteNotification)

			// --- Admin Routes ---
			admin := authed.Group("")
			admin.Use(middleware.AdminMiddleware())
			{
				admin.POST("/products", h.CreateProduct)
				admin.PUT("/products/:id", h.UpdateProduct)
				admin.DELETE("/products/:id", h.DeleteProduct)

				admin.POST("/categories", h.CreateCategory)
				admin.PUT("/categories/:id", h.UpdateCategory)
				admin.DELETE("/categories/:id", h.DeleteCategory)
			}
		}
	}

	return router
}
