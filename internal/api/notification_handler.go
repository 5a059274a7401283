package api

import (
	"net/http"

	"github.com/qaforge/qaforge/internal/api/middleware"
	"github.com/qaforge/qaforge/internal/api/shared"
	"github.com/qaforge/qaforge/internal/service/auth"
	"github.com/qaforge/qaforge/internal/store"
)

// NotificationHandler handles the caller's notification inbox. Every
// operation is scoped to the authenticated user; a notification owned by
// someone else is indistinguishable from a missing one.
type NotificationHandler struct {
	notifications store.NotificationStore
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(notifications store.NotificationStore) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// List handles GET /notifications.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		RespondMappedError(w, r, auth.ErrMissingToken)
		return
	}

	filter := store.NotificationFilter{
		UnreadOnly: r.URL.Query().Get("unreadOnly") == "true",
		Type:       r.URL.Query().Get("type"),
	}

	params := shared.ParsePageParams(r)
	notifications, total, err := h.notifications.ListByUser(r.Context(), userID, filter, params.Request())
	if err != nil {
		RespondMappedError(w, r, err)
		return
	}

	shared.RespondList(w, r, notifications, params.Pagination(total), "")
}

// MarkRead handles PATCH /notifications/{id}/read.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		RespondMappedError(w, r, auth.ErrMissingToken)
		return
	}

	notificationID, err := parseIDParam(r, "id")
	if err != nil {
		RespondMappedError(w, r, err)
		return
	}

	if err := h.notifications.MarkRead(r.Context(), notificationID, userID); err != nil {
		RespondMappedError(w, r, err)
		return
	}

	shared.RespondOK(w, r, nil, "通知已标记为已读")
}

// MarkAllRead handles POST /notifications/read-all. The response data carries
// the number of notifications that changed state.
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		RespondMappedError(w, r, auth.ErrMissingToken)
		return
	}

	updated, err := h.notifications.MarkAllRead(r.Context(), userID)
	if err != nil {
		RespondMappedError(w, r, err)
		return
	}

	shared.RespondOK(w, r, map[string]int{"updated": updated}, "全部通知已标记为已读")
}

// Delete handles DELETE /notifications/{id}.
func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		RespondMappedError(w, r, auth.ErrMissingToken)
		return
	}

	notificationID, err := parseIDParam(r, "id")
	if err != nil {
		RespondMappedError(w, r, err)
		return
	}

	if err := h.notifications.Delete(r.Context(), notificationID, userID); err != nil {
		RespondMappedError(w, r, err)
		return
	}

	shared.RespondOK(w, r, nil, "通知已删除")
}
