package transport

import (
	"net/http"

	"storefront/pkg/domain/model"
	"storefront/pkg/domain/service"
	"storefront/pkg/infrastructure/auth"
)

type broadcastRequest struct {
	Role    string `json:"role" validate:"omitempty,oneof=customer vendor admin"`
	Type    string `json:"type" validate:"omitempty,oneof=order payment account review system"`
	Title   string `json:"title" validate:"required,max=255"`
	Message string `json:"message" validate:"required"`
	Link    string `json:"link" validate:"omitempty,max=512"`
}

type notificationList struct {
	Notifications []model.Notification `json:"notifications"`
	UnreadCount   int                  `json:"unread_count"`
}

func (h *handler) listNotifications(w http.ResponseWriter, r *http.Request, identity auth.Identity) {
	unreadOnly := r.URL.Query().Get("unread") == "1" || r.URL.Query().Get("unread") == "true"
	notifications, err := h.Notifications.ListForUser(r.Context(), identity.UserID, unreadOnly, queryInt(r, "limit", 0))
	if err != nil {
		respondError(w, r, err)
		return
	}
	unread, err := h.Notifications.UnreadCount(r.Context(), identity.UserID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if notifications == nil {
		notifications = []model.Notification{}
	}
	respondOK(w, "", notificationList{Notifications: notifications, UnreadCount: unread})
}

func (h *handler) unreadCount(w http.ResponseWriter, r *http.Request, identity auth.Identity) {
	unread, err := h.Notifications.UnreadCount(r.Context(), identity.UserID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, "", map[string]int{"unread_count": unread})
}

func (h *handler) markRead(w http.ResponseWriter, r *http.Request, identity auth.Identity) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.Notifications.MarkRead(r.Context(), identity.UserID, id); err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, "notification marked as read", nil)
}

func (h *handler) markAllRead(w http.ResponseWriter, r *http.Request, identity auth.Identity) {
	n, err := h.Notifications.MarkAllRead(r.Context(), identity.UserID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, "all notifications marked as read", map[string]int64{"updated": n})
}

func (h *handler) broadcast(w http.ResponseWriter, r *http.Request, identity auth.Identity) {
	var req broadcastRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	kind := model.NotificationType(req.Type)
	if kind == "" {
		kind = model.NotificationSystem
	}

	sent, err := h.Notifications.Broadcast(r.Context(), model.Role(req.Role), service.NotificationMessage{
		Type:    kind,
		Title:   req.Title,
		Message: req.Message,
		Link:    req.Link,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	h.SystemLogs.Record(r.Context(), model.LevelInfo, "notification.broadcast", &identity.UserID,
		"broadcast sent", map[string]interface{}{"role": req.Role, "recipients": sent})
	respondOK(w, "notification sent", map[string]int{"recipients": sent})
}
