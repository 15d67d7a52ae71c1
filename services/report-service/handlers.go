package main

import (
	"context"
	"net/http"
	"time"

	"campus-maintenance-system/pkg/auth"
	"campus-maintenance-system/pkg/middleware"
	"campus-maintenance-system/pkg/response"
	"campus-maintenance-system/pkg/storage"
	"campus-maintenance-system/services/report-service/maintenance"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// api serves the report, task, notification, announcement and message
// endpoints. Every authenticated handler reads the principal once and hands
// it to the maintenance services.
type api struct {
	svc     *maintenance.Services
	photos  storage.PhotoStore
	tokens  middleware.TokenVerifier
	limiter middleware.Limiter
	origins []string
	db      pinger
}

func (a *api) routes() http.Handler {
	mux := http.NewServeMux()
	authn := middleware.Authenticate(a.tokens)
	user := func(fn http.HandlerFunc) http.Handler {
		return authn(fn)
	}
	admin := func(fn http.HandlerFunc) http.Handler {
		return authn(middleware.RequireRole(auth.RoleAdmin)(fn))
	}

	mux.Handle("POST /api/reports", user(a.createReport))
	mux.Handle("GET /api/reports", admin(a.listReports))
	mux.Handle("GET /api/reports/user/me", user(a.myReports))
	mux.Handle("GET /api/reports/analytics", admin(a.analytics))
	mux.Handle("GET /api/reports/{id}", user(a.getReport))
	mux.Handle("PUT /api/reports/{id}/status", admin(a.updateReportStatus))
	mux.Handle("PUT /api/reports/{id}/priority", admin(a.updateReportPriority))
	mux.Handle("POST /api/reports/{id}/comments", user(a.addComment))
	mux.Handle("DELETE /api/reports/{id}", user(a.deleteReport))

	mux.Handle("POST /api/admin-tasks", admin(a.createTask))
	mux.Handle("GET /api/admin-tasks", admin(a.listTasks))
	mux.Handle("GET /api/admin-tasks/overdue", admin(a.overdueTasks))
	mux.Handle("GET /api/admin-tasks/status/{status}", admin(a.tasksByStatus))
	mux.Handle("GET /api/admin-tasks/user/{userId}", admin(a.tasksByAssignee))
	mux.Handle("GET /api/admin-tasks/report/{reportId}", admin(a.tasksByReport))
	mux.Handle("GET /api/admin-tasks/{id}", admin(a.getTask))
	mux.Handle("PATCH /api/admin-tasks/{id}/status", admin(a.updateTaskStatus))
	mux.Handle("POST /api/admin-tasks/{id}/notes", admin(a.addTaskNote))
	mux.Handle("DELETE /api/admin-tasks/{id}", admin(a.deleteTask))

	mux.Handle("GET /api/notifications", user(a.listNotifications))
	mux.Handle("GET /api/notifications/unread", user(a.unreadNotifications))
	mux.Handle("GET /api/notifications/unread-count", user(a.unreadCount))
	mux.Handle("PATCH /api/notifications/read-all", user(a.markAllNotificationsRead))
	mux.Handle("PATCH /api/notifications/{id}/read", user(a.markNotificationRead))

	mux.Handle("GET /api/announcements", user(a.listAnnouncements))
	mux.Handle("POST /api/announcements", admin(a.createAnnouncement))
	mux.Handle("PATCH /api/announcements/{id}/deactivate", admin(a.deactivateAnnouncement))
	mux.Handle("DELETE /api/announcements/{id}", admin(a.deleteAnnouncement))

	mux.Handle("POST /api/messages", user(a.sendMessage))
	mux.Handle("GET /api/messages/{userId}", user(a.conversation))
	mux.Handle("PATCH /api/messages/{id}/read", user(a.markMessageRead))

	mux.HandleFunc("GET /health", a.health)
	mux.Handle("GET /metrics", middleware.GetMetricsHandler())

	mws := []func(http.Handler) http.Handler{
		middleware.TraceMiddleware,
		middleware.MetricsMiddleware,
		middleware.LoggerMiddleware,
		middleware.CORS(a.origins),
	}
	if a.limiter != nil {
		mws = append(mws, middleware.RateLimit(a.limiter))
	}
	return middleware.Chain(mux, mws...)
}

func principal(r *http.Request) auth.Principal {
	p, _ := middleware.PrincipalFrom(r.Context())
	return p
}

func (a *api) health(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":  "UP",
		"service": "report-service",
	}

	status := http.StatusOK
	if a.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.db.Ping(ctx); err != nil {
			health["status"] = "DOWN"
			health["database"] = "disconnected"
			status = http.StatusServiceUnavailable
		} else {
			health["database"] = "connected"
		}
	}

	response.JSON(w, status, health)
}
