package apiv1

import (
	"github.com/gofiber/fiber/v2"

	"github.com/sanghsetu/memberdesk/internal/pkg/middleware"
)

// Pong is the response body of the ping endpoint.
type Pong struct {
	Ping string `json:"ping"`
}

// RegisterHandlers attaches the v1 routes to the given router group.
func RegisterHandlers(router fiber.Router, si *APIServer) {
	router.Get("/ping", si.GetPing)

	// Member profile
	router.Get("/profile", middleware.RequireAuth, si.GetProfile)
	router.Put("/profile", middleware.RequireAuth, si.PutProfile)

	// Application lifecycle
	router.Get("/applications/my-application", middleware.RequireAuth, si.GetMyApplication)
	router.Get("/applications/my-application/stages", middleware.RequireAuth, si.GetMyApplicationStages)
	router.Post("/applications", middleware.RequireAuth, si.PostApplication)

	// Feature gating
	router.Get("/gate", middleware.RequireAuth, si.GetGate)

	// Membership fee payment
	router.Post("/payments", middleware.RequireAuth, si.PostPayment)
	router.Post("/payments/confirm", middleware.RequireAuth, si.PostPaymentConfirm)

	// Notifications
	router.Get("/notifications", middleware.RequireAuth, si.GetNotifications)
	router.Post("/notifications/:id/read", middleware.RequireAuth, si.PostNotificationRead)

	// Review queues and statistics
	admin := router.Group("/admin", middleware.RequireApprover)
	admin.Get("/applications", si.GetAdminApplications)
	admin.Post("/applications/:id/decide", si.PostAdminDecide)
	admin.Get("/stats", middleware.RequireAdmin, si.GetAdminStats)
}
