package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/crewdeck/internal/blob"
	"github.com/dukerupert/crewdeck/internal/database"
	"github.com/dukerupert/crewdeck/internal/email"
	"github.com/dukerupert/crewdeck/internal/logging"
	"github.com/dukerupert/crewdeck/internal/server"
)

func main() {
	logger := logging.Setup(os.Getenv("CREWDECK_LOG_LEVEL"))

	port := os.Getenv("CREWDECK_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("CREWDECK_DB_PATH")
	if dbPath == "" {
		dbPath = "crewdeck.db"
	}

	secret := os.Getenv("CREWDECK_JWT_SECRET")
	if secret == "" {
		log.Fatal("CREWDECK_JWT_SECRET is required")
	}

	tokenTTL := 7 * 24 * time.Hour
	if raw := os.Getenv("CREWDECK_TOKEN_TTL"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			log.Fatalf("invalid CREWDECK_TOKEN_TTL: %v", err)
		}
		tokenTTL = d
	}

	db, err := database.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	baseURL := os.Getenv("CREWDECK_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:" + port
	}
	mailer := email.NewClient(os.Getenv("CREWDECK_POSTMARK_TOKEN"), os.Getenv("CREWDECK_POSTMARK_FROM"), baseURL)

	blobs, err := buildBlobStore()
	if err != nil {
		log.Fatalf("failed to set up file storage: %v", err)
	}

	srv := server.New(db, server.Config{JWTSecret: secret, TokenTTL: tokenTTL}, mailer, blobs, logger)

	stop := make(chan struct{})
	go runSweepers(srv, logger, stop)

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		fmt.Printf("Crewdeck running at http://localhost:%s\n", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down...")
	close(stop)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}

func buildBlobStore() (blob.Store, error) {
	s3cfg := blob.S3Config{
		Endpoint:  os.Getenv("CREWDECK_S3_ENDPOINT"),
		Bucket:    os.Getenv("CREWDECK_S3_BUCKET"),
		Region:    os.Getenv("CREWDECK_S3_REGION"),
		AccessKey: os.Getenv("CREWDECK_S3_ACCESS_KEY"),
		SecretKey: os.Getenv("CREWDECK_S3_SECRET_KEY"),
	}
	if s3cfg.Enabled() {
		return blob.NewS3Store(s3cfg), nil
	}

	dir := os.Getenv("CREWDECK_UPLOAD_DIR")
	if dir == "" {
		dir = "uploads"
	}
	return blob.NewLocalStore(dir)
}

// runSweepers clears expired revocation entries, stale read
// notifications and idle rate-limit buckets on an hourly tick.
func runSweepers(srv *server.Server, logger *slog.Logger, stop <-chan struct{}) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if n, err := srv.RevokedTokenStore().DeleteExpired(); err != nil {
				logger.Error("sweep revoked tokens", "error", err)
			} else if n > 0 {
				logger.Info("swept revoked tokens", "count", n)
			}
			if n, err := srv.NotificationStore().DeleteExpiredRead(); err != nil {
				logger.Error("sweep notifications", "error", err)
			} else if n > 0 {
				logger.Info("swept read notifications", "count", n)
			}
			srv.RateLimiter().Cleanup()
		}
	}
}
