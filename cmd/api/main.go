package main

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/lustra-app/lustra-golang/internal/cache"
	"github.com/lustra-app/lustra-golang/internal/checkout"
	"github.com/lustra-app/lustra-golang/internal/database"
	"github.com/lustra-app/lustra-golang/internal/handlers"
	"github.com/lustra-app/lustra-golang/internal/mailer"
	"github.com/lustra-app/lustra-golang/internal/notify"
	"github.com/lustra-app/lustra-golang/internal/routes"
	"github.com/lustra-app/lustra-golang/internal/social"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	// 1. Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: No .env file found, reading config from environment")
	}

	// 2. Connect to the database and run migrations
	db, err := database.OpenDB(os.Getenv("DB_DSN"))
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db, envOr("MIGRATIONS_DIR", "migrations")); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// 3. Wire up the application services
	productCache := cache.NewRedisCache(envOr("REDIS_ADDR", "127.0.0.1:6379"), "lustra")

	mail := mailer.New(
		envOr("MAIL_HOST", "smtp.gmail.com"),
		envOr("MAIL_PORT", "587"),
		os.Getenv("MAIL_USERNAME"),
		os.Getenv("MAIL_PASSWORD"),
		envOr("MAIL_FROM", os.Getenv("MAIL_USERNAME")),
	)

	emitter := notify.NewEmitter(db, os.Getenv("NOTIFY_LEGACY_SCHEMA") == "true")
	engine := checkout.NewEngine(checkout.NewSQLStore(db), emitter)

	app := &handlers.Handlers{
		DB:     db,
		Cache:  productCache,
		Engine: engine,
		Notify: emitter,
		Mailer: mail,
		Social: social.NewClient(),
		Debug:  os.Getenv("APP_DEBUG") == "true",
	}

	// 4. Start the OTP cleanup worker
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			app.SweepExpiredOtps()
		}
	}()

	// 5. Start the server
	router := routes.SetupRouter(app, db)

	port := envOr("PORT", "8080")
	log.Printf("Starting server on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
