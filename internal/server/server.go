package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dukerupert/crewdeck/internal/auth"
	"github.com/dukerupert/crewdeck/internal/blob"
	"github.com/dukerupert/crewdeck/internal/email"
	"github.com/dukerupert/crewdeck/internal/handler"
	"github.com/dukerupert/crewdeck/internal/metrics"
	"github.com/dukerupert/crewdeck/internal/middleware"
	"github.com/dukerupert/crewdeck/internal/relay"
	"github.com/dukerupert/crewdeck/internal/store"
	ws "github.com/dukerupert/crewdeck/internal/websocket"
)

type Config struct {
	JWTSecret string
	TokenTTL  time.Duration
}

type Server struct {
	db            *sql.DB
	hub           *ws.Hub
	authenticator *auth.Authenticator
	collector     *metrics.Collector
	registry      *prometheus.Registry
	authH         *handler.AuthHandler
	userH         *handler.UserHandler
	projectH      *handler.ProjectHandler
	taskH         *handler.TaskHandler
	commentH      *handler.CommentHandler
	teamH         *handler.TeamHandler
	notificationH *handler.NotificationHandler
	activityH     *handler.ActivityHandler
	attachmentH   *handler.AttachmentHandler
	revokedTokens *store.RevokedTokenStore
	notifications *store.NotificationStore
	rateLimiter   *middleware.RateLimiter
	logger        *slog.Logger
}

func New(db *sql.DB, cfg Config, mailer *email.Client, blobs blob.Store, logger *slog.Logger) *Server {
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	hub := ws.NewHub(logger.With("component", "websocket"), collector)
	rl := relay.New(hub)

	userStore := store.NewUserStore(db)
	revokedStore := store.NewRevokedTokenStore(db)
	projectStore := store.NewProjectStore(db)
	taskStore := store.NewTaskStore(db)
	commentStore := store.NewCommentStore(db)
	teamStore := store.NewTeamStore(db)
	notificationStore := store.NewNotificationStore(db)
	activityStore := store.NewActivityStore(db)
	attachmentStore := store.NewAttachmentStore(db)

	authenticator := auth.NewAuthenticator(userStore, revokedStore, cfg.JWTSecret, cfg.TokenTTL, logger.With("component", "auth"))

	return &Server{
		db:            db,
		hub:           hub,
		authenticator: authenticator,
		collector:     collector,
		registry:      registry,
		authH:         handler.NewAuthHandler(userStore, authenticator, mailer, logger),
		userH:         handler.NewUserHandler(userStore, logger),
		projectH:      handler.NewProjectHandler(projectStore, activityStore, notificationStore, rl, logger),
		taskH:         handler.NewTaskHandler(taskStore, projectStore, activityStore, notificationStore, rl, logger),
		commentH:      handler.NewCommentHandler(commentStore, taskStore, projectStore, activityStore, notificationStore, rl, logger),
		teamH:         handler.NewTeamHandler(teamStore, logger),
		notificationH: handler.NewNotificationHandler(notificationStore, logger),
		activityH:     handler.NewActivityHandler(activityStore, taskStore, projectStore, logger),
		attachmentH:   handler.NewAttachmentHandler(attachmentStore, taskStore, projectStore, activityStore, blobs, logger),
		revokedTokens: revokedStore,
		notifications: notificationStore,
		rateLimiter:   middleware.NewRateLimiter(),
		logger:        logger,
	}
}

// RevokedTokenStore returns the revocation ledger for cleanup tasks.
func (s *Server) RevokedTokenStore() *store.RevokedTokenStore {
	return s.revokedTokens
}

// NotificationStore returns the notification store for cleanup tasks.
func (s *Server) NotificationStore() *store.NotificationStore {
	return s.notifications
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// Hub returns the real-time hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /api/auth/register", s.rateLimitedHandler(s.authH.Register))
	outerMux.HandleFunc("POST /api/auth/login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("POST /api/auth/logout", s.authH.Logout)
	outerMux.HandleFunc("GET /api/auth/verify", s.authH.Verify)
	outerMux.HandleFunc("POST /api/auth/resend-verification", s.rateLimitedHandler(s.authH.ResendVerification))
	outerMux.HandleFunc("GET /health", s.healthHandler)
	outerMux.Handle("GET /metrics", metrics.Handler(s.registry))

	// The websocket handshake authenticates itself: browsers cannot set
	// headers on websocket upgrades, so the token may arrive in the query.
	outerMux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.authenticator, s.logger))

	// Protected routes
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.authenticator, s.collector)
	outerMux.Handle("/api/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"), s.collector)(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	admin := func(h http.HandlerFunc) http.Handler {
		return middleware.RequireAdmin(h)
	}

	mux.HandleFunc("GET /api/auth/me", s.authH.Me)

	// User routes. Listing and reading are open to any signed-in user;
	// creation and deletion are admin operations.
	mux.HandleFunc("GET /api/users", s.userH.List)
	mux.HandleFunc("GET /api/users/{id}", s.userH.Get)
	mux.Handle("POST /api/users", admin(s.userH.Create))
	mux.HandleFunc("PUT /api/users/{id}", s.userH.Update)
	mux.Handle("DELETE /api/users/{id}", admin(s.userH.Delete))

	// Project routes
	mux.HandleFunc("GET /api/projects", s.projectH.List)
	mux.HandleFunc("POST /api/projects", s.projectH.Create)
	mux.HandleFunc("GET /api/projects/{projectID}", s.projectH.Get)
	mux.HandleFunc("PUT /api/projects/{projectID}", s.projectH.Update)
	mux.HandleFunc("DELETE /api/projects/{projectID}", s.projectH.Delete)
	mux.HandleFunc("GET /api/projects/{projectID}/members", s.projectH.ListMembers)
	mux.HandleFunc("POST /api/projects/{projectID}/members", s.projectH.AddMember)
	mux.HandleFunc("DELETE /api/projects/{projectID}/members/{userID}", s.projectH.RemoveMember)

	// Task routes
	mux.HandleFunc("GET /api/projects/{projectID}/tasks", s.taskH.List)
	mux.HandleFunc("POST /api/projects/{projectID}/tasks", s.taskH.Create)
	mux.HandleFunc("GET /api/tasks/{taskID}", s.taskH.Get)
	mux.HandleFunc("PUT /api/tasks/{taskID}", s.taskH.Update)
	mux.HandleFunc("DELETE /api/tasks/{taskID}", s.taskH.Delete)
	mux.HandleFunc("POST /api/tasks/{taskID}/subtasks", s.taskH.AddSubtask)
	mux.HandleFunc("POST /api/tasks/{taskID}/subtasks/{index}/toggle", s.taskH.ToggleSubtask)
	mux.HandleFunc("POST /api/tasks/{taskID}/tags", s.taskH.AddTag)
	mux.HandleFunc("DELETE /api/tasks/{taskID}/tags/{tag}", s.taskH.RemoveTag)

	// Comment routes
	mux.HandleFunc("GET /api/tasks/{taskID}/comments", s.commentH.List)
	mux.HandleFunc("POST /api/tasks/{taskID}/comments", s.commentH.Create)
	mux.HandleFunc("PUT /api/tasks/{taskID}/comments/{commentID}", s.commentH.Update)
	mux.HandleFunc("DELETE /api/tasks/{taskID}/comments/{commentID}", s.commentH.Delete)
	mux.HandleFunc("POST /api/tasks/{taskID}/comments/{commentID}/reactions", s.commentH.AddReaction)
	mux.HandleFunc("DELETE /api/tasks/{taskID}/comments/{commentID}/reactions/{emoji}", s.commentH.RemoveReaction)

	// Attachment routes
	mux.HandleFunc("GET /api/tasks/{taskID}/attachments", s.attachmentH.List)
	mux.HandleFunc("POST /api/tasks/{taskID}/attachments", s.attachmentH.Upload)
	mux.HandleFunc("GET /api/tasks/{taskID}/attachments/{attachmentID}", s.attachmentH.Get)
	mux.HandleFunc("GET /api/tasks/{taskID}/attachments/{attachmentID}/download", s.attachmentH.Download)
	mux.HandleFunc("DELETE /api/tasks/{taskID}/attachments/{attachmentID}", s.attachmentH.Delete)

	// Team routes
	mux.HandleFunc("GET /api/teams", s.teamH.ListMine)
	mux.HandleFunc("GET /api/teams/public", s.teamH.ListPublic)
	mux.HandleFunc("POST /api/teams", s.teamH.Create)
	mux.HandleFunc("GET /api/teams/{teamID}", s.teamH.Get)
	mux.HandleFunc("PUT /api/teams/{teamID}", s.teamH.Update)
	mux.HandleFunc("DELETE /api/teams/{teamID}", s.teamH.Delete)
	mux.HandleFunc("POST /api/teams/{teamID}/members", s.teamH.AddMember)
	mux.HandleFunc("DELETE /api/teams/{teamID}/members/{userID}", s.teamH.RemoveMember)
	mux.HandleFunc("POST /api/teams/{teamID}/invite", s.teamH.GenerateInvite)
	mux.HandleFunc("POST /api/teams/join", s.teamH.Join)

	// Notification routes
	mux.HandleFunc("GET /api/notifications", s.notificationH.List)
	mux.HandleFunc("GET /api/notifications/unread-count", s.notificationH.UnreadCount)
	mux.HandleFunc("POST /api/notifications/{notificationID}/read", s.notificationH.MarkRead)
	mux.HandleFunc("POST /api/notifications/read-all", s.notificationH.MarkAllRead)
	mux.HandleFunc("DELETE /api/notifications/{notificationID}", s.notificationH.Delete)

	// Activity routes
	mux.HandleFunc("GET /api/projects/{projectID}/activity", s.activityH.ByProject)
	mux.HandleFunc("GET /api/projects/{projectID}/activity/stats", s.activityH.Stats)
	mux.HandleFunc("GET /api/tasks/{taskID}/activity", s.activityH.ByTask)
	mux.HandleFunc("GET /api/activity/mine", s.activityH.Mine)
}
