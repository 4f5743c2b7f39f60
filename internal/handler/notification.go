package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/crewdeck/internal/auth"
	"github.com/dukerupert/crewdeck/internal/store"
)

type NotificationHandler struct {
	notifications *store.NotificationStore
	logger        *slog.Logger
}

func NewNotificationHandler(ns *store.NotificationStore, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{notifications: ns, logger: logger.With("component", "notifications")}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePage(r, 20, 100)
	userID := auth.UserID(r.Context())

	notifications, total, err := h.notifications.ListByUser(userID, limit, offset)
	if err != nil {
		h.logger.Error("list notifications", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list notifications")
		return
	}
	writeSuccess(w, http.StatusOK, "ok", map[string]any{
		"notifications": notifications,
		"total":         total,
		"limit":         limit,
		"offset":        offset,
	})
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	count, err := h.notifications.UnreadCount(userID)
	if err != nil {
		h.logger.Error("unread count", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to count notifications")
		return
	}
	writeSuccess(w, http.StatusOK, "ok", map[string]any{"count": count})
}

// owns loads a notification and checks it belongs to the caller.
func (h *NotificationHandler) owns(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := parseIDParam(r, "notificationID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid notification id")
		return 0, false
	}
	n, err := h.notifications.GetByID(id)
	if err != nil {
		h.logger.Error("get notification", "notification_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load notification")
		return 0, false
	}
	if n == nil || n.UserID != auth.UserID(r.Context()) {
		writeError(w, http.StatusNotFound, "notification not found")
		return 0, false
	}
	return id, true
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := h.owns(w, r)
	if !ok {
		return
	}
	n, err := h.notifications.MarkRead(id)
	if err != nil {
		h.logger.Error("mark read", "notification_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update notification")
		return
	}
	writeSuccess(w, http.StatusOK, "notification read", n)
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if err := h.notifications.MarkAllRead(userID); err != nil {
		h.logger.Error("mark all read", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update notifications")
		return
	}
	writeSuccess(w, http.StatusOK, "all notifications read", nil)
}

func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.owns(w, r)
	if !ok {
		return
	}
	if err := h.notifications.Delete(id); err != nil {
		h.logger.Error("delete notification", "notification_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete notification")
		return
	}
	writeSuccess(w, http.StatusOK, "notification deleted", nil)
}
