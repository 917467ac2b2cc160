package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ict-helpdesk/servicedesk/internal/api/http/handlers"
	"github.com/ict-helpdesk/servicedesk/internal/auth"
	"github.com/ict-helpdesk/servicedesk/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Tasks          *handlers.TasksHandler
	Notifications  *handlers.NotificationsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Get("/me", cfg.AuthMiddleware.Handle, cfg.Auth.Me)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListMyTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Put("/:id", cfg.Tickets.SelfEditTicket)
	tickets.Get("/:id/log", cfg.Tickets.ListLog)
	tickets.Post("/:id/feedback", cfg.Tickets.AddFeedback)
	tickets.Post("/:id/attachments", cfg.Tickets.UploadAttachment)
	tickets.Get("/:id/attachments", cfg.Tickets.ListAttachments)
	tickets.Patch("/:id/status", auth.RequireStaff(), cfg.Tickets.ChangeStatus)
	tickets.Post("/:id/notes", auth.RequireStaff(), cfg.Tickets.AddWorkNote)
	tickets.Post("/:id/assign", auth.RequireRole(domain.RoleAdmin), cfg.Tickets.AssignTicket)

	staff := app.Group("/staff", cfg.AuthMiddleware.Handle, auth.RequireStaff())
	staff.Get("/tickets", cfg.Tickets.ListAllTickets)
	staff.Get("/tickets/code/:code", cfg.Tickets.GetTicketByCode)
	staff.Patch("/users/:id/role", auth.RequireRole(domain.RoleAdmin), cfg.Auth.SetUserRole)
	staff.Patch("/users/:id/active", auth.RequireRole(domain.RoleAdmin), cfg.Auth.SetUserActive)

	tasks := app.Group("/tasks", cfg.AuthMiddleware.Handle, auth.RequireStaff())
	tasks.Post("/", auth.RequireRole(domain.RoleAdmin), cfg.Tasks.CreateTask)
	tasks.Get("/", cfg.Tasks.ListTasks)
	tasks.Put("/progress/:entryID/comment", auth.RequireRole(domain.RoleAdmin), cfg.Tasks.AnnotateProgress)
	tasks.Get("/:id", cfg.Tasks.GetTask)
	tasks.Put("/:id", auth.RequireRole(domain.RoleAdmin), cfg.Tasks.UpdateTask)
	tasks.Patch("/:id/progress", cfg.Tasks.ReportProgress)
	tasks.Get("/:id/progress", cfg.Tasks.ListProgress)
	tasks.Post("/:id/rating", auth.RequireRole(domain.RoleAdmin), cfg.Tasks.RateTask)

	notifications := app.Group("/notifications", cfg.AuthMiddleware.Handle)
	notifications.Get("/", cfg.Notifications.ListNotifications)
	notifications.Get("/unread-count", cfg.Notifications.UnreadCount)
	notifications.Post("/read-all", cfg.Notifications.MarkAllRead)
	notifications.Patch("/:id/read", cfg.Notifications.MarkRead)
}
