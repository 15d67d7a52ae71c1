package main

import (
	"net/http"

	"campus-maintenance-system/pkg/response"
	"campus-maintenance-system/pkg/validation"
	"campus-maintenance-system/services/report-service/maintenance"
)

func (a *api) listNotifications(w http.ResponseWriter, r *http.Request) {
	list, err := a.svc.Notifications.ListForUser(r.Context(), principal(r))
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.List(w, "Notifications fetched", list, len(list))
}

func (a *api) unreadNotifications(w http.ResponseWriter, r *http.Request) {
	list, err := a.svc.Notifications.ListUnread(r.Context(), principal(r))
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.List(w, "Unread notifications fetched", list, len(list))
}

func (a *api) unreadCount(w http.ResponseWriter, r *http.Request) {
	n, err := a.svc.Notifications.UnreadCount(r.Context(), principal(r))
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.Success(w, http.StatusOK, "Unread count fetched", map[string]int64{"count": n})
}

func (a *api) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	n, err := a.svc.Notifications.MarkAsRead(r.Context(), principal(r), r.PathValue("id"))
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.Success(w, http.StatusOK, "Notification marked as read", n)
}

func (a *api) markAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	n, err := a.svc.Notifications.MarkAllAsRead(r.Context(), principal(r))
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.Success(w, http.StatusOK, "All notifications marked as read", map[string]int64{"updated": n})
}

func (a *api) listAnnouncements(w http.ResponseWriter, r *http.Request) {
	list, err := a.svc.Announcements.ListActive(r.Context())
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.List(w, "Announcements fetched", list, len(list))
}

func (a *api) createAnnouncement(w http.ResponseWriter, r *http.Request) {
	var input maintenance.AnnouncementInput
	if err := validation.DecodeJSON(r.Body, &input); err != nil {
		response.Fail(w, err)
		return
	}

	ann, err := a.svc.Announcements.Create(r.Context(), principal(r), input)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.Success(w, http.StatusCreated, "Announcement created", ann)
}

func (a *api) deactivateAnnouncement(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.Announcements.Deactivate(r.Context(), principal(r), r.PathValue("id")); err != nil {
		response.Fail(w, err)
		return
	}
	response.Success(w, http.StatusOK, "Announcement deactivated", nil)
}

func (a *api) deleteAnnouncement(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.Announcements.Delete(r.Context(), principal(r), r.PathValue("id")); err != nil {
		response.Fail(w, err)
		return
	}
	response.Success(w, http.StatusOK, "Announcement deleted", nil)
}

func (a *api) sendMessage(w http.ResponseWriter, r *http.Request) {
	var input maintenance.SendMessageInput
	if err := validation.DecodeJSON(r.Body, &input); err != nil {
		response.Fail(w, err)
		return
	}

	msg, err := a.svc.Messages.Send(r.Context(), principal(r), input)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.Success(w, http.StatusCreated, "Message sent", msg)
}

func (a *api) conversation(w http.ResponseWriter, r *http.Request) {
	list, err := a.svc.Messages.Conversation(r.Context(), principal(r), r.PathValue("userId"))
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.List(w, "Conversation fetched", list, len(list))
}

func (a *api) markMessageRead(w http.ResponseWriter, r *http.Request) {
	msg, err := a.svc.Messages.MarkRead(r.Context(), principal(r), r.PathValue("id"))
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.Success(w, http.StatusOK, "Message marked as read", msg)
}
