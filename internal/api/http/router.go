package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/collabkit/ticketdesk/internal/api/http/handlers"
	"github.com/collabkit/ticketdesk/internal/auth"
	"github.com/collabkit/ticketdesk/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Messages       *handlers.MessagesHandler
	Notifications  *handlers.NotificationsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. Everything past the sign-in flow sits
// behind authentication and the approval gate; admin-only routes add a role
// check on top.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/otp/request", cfg.Auth.RequestOTP)
	authGroup.Post("/otp/verify", cfg.Auth.VerifyOTP)

	protected := app.Group("", cfg.AuthMiddleware.Handle, auth.RequireApproved())

	users := protected.Group("/users")
	users.Get("/me", cfg.Users.Me)
	users.Patch("/me", cfg.Users.UpdateProfile)
	users.Get("/me/preferences", cfg.Users.GetPreference)
	users.Put("/me/preferences", cfg.Users.UpdatePreference)

	adminUsers := users.Group("", auth.RequireRole(domain.RoleAdmin))
	adminUsers.Get("/", cfg.Users.List)
	adminUsers.Post("/:id/review", cfg.Users.Review)
	adminUsers.Put("/:id/role", cfg.Users.SetRole)

	tickets := protected.Group("/tickets")
	tickets.Post("/", cfg.Tickets.Create)
	tickets.Get("/", cfg.Tickets.List)
	tickets.Get("/:id", cfg.Tickets.Get)
	tickets.Put("/:id/status", cfg.Tickets.ChangeStatus)
	tickets.Put("/:id/priority", cfg.Tickets.ChangePriority)
	tickets.Put("/:id/points", cfg.Tickets.UpdatePoints)
	tickets.Put("/:id/star", cfg.Tickets.Star)
	tickets.Delete("/:id", cfg.Tickets.Delete)
	tickets.Post("/:id/files", cfg.Tickets.UploadFile)

	tickets.Get("/:id/members", cfg.Tickets.ListMembers)
	tickets.Post("/:id/members", cfg.Tickets.AddMembers)
	tickets.Delete("/:id/members/:userId", cfg.Tickets.RemoveMember)
	tickets.Put("/:id/members/:userId/client-access", cfg.Tickets.SetClientAccess)

	tickets.Post("/:id/messages", cfg.Messages.Send)
	tickets.Get("/:id/messages", cfg.Messages.List)

	messages := protected.Group("/messages")
	messages.Put("/:id", cfg.Messages.Edit)
	messages.Delete("/:id", cfg.Messages.Delete)
	messages.Post("/:id/forward", cfg.Messages.Forward)
	messages.Post("/:id/seen", cfg.Messages.MarkSeen)

	notifications := protected.Group("/notifications")
	notifications.Get("/", cfg.Notifications.List)
	notifications.Get("/unread-count", cfg.Notifications.UnreadCount)
	notifications.Post("/read-all", cfg.Notifications.MarkAllRead)
	notifications.Post("/:id/read", cfg.Notifications.MarkRead)
}
