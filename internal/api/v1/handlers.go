package apiv1

import (
	"github.com/gofiber/fiber/v2"

	// Delegate to existing controllers to keep behavior consistent
	"github.com/sanghsetu/memberdesk/app/controllers"
)

// APIServer implements the v1 JSON API surface
type APIServer struct{}

// NewAPIServer creates a new API server instance
func NewAPIServer() *APIServer {
	return &APIServer{}
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	response := Pong{
		Ping: "pong",
	}

	return c.Status(fiber.StatusOK).JSON(response)
}

// GetProfile returns the session member's profile with completion data.
func (s *APIServer) GetProfile(c *fiber.Ctx) error {
	return controllers.HandleProfileGet(c)
}

// PutProfile applies a partial profile update.
func (s *APIServer) PutProfile(c *fiber.Ctx) error {
	return controllers.HandleProfileUpdate(c)
}

// GetMyApplication returns the member's active application or 404.
func (s *APIServer) GetMyApplication(c *fiber.Ctx) error {
	return controllers.HandleGetMyApplication(c)
}

// PostApplication submits a new membership application.
func (s *APIServer) PostApplication(c *fiber.Ctx) error {
	return controllers.HandleSubmitApplication(c)
}

// GetMyApplicationStages returns the stage progress view.
func (s *APIServer) GetMyApplicationStages(c *fiber.Ctx) error {
	return controllers.HandleGetStages(c)
}

// GetGate returns the feature gate snapshot for the session member.
func (s *APIServer) GetGate(c *fiber.Ctx) error {
	return controllers.HandleGetGate(c)
}

// PostPayment initiates the membership fee payment.
func (s *APIServer) PostPayment(c *fiber.Ctx) error {
	return controllers.HandleInitiatePayment(c)
}

// PostPaymentConfirm completes the two-phase payment.
func (s *APIServer) PostPaymentConfirm(c *fiber.Ctx) error {
	return controllers.HandleConfirmPayment(c)
}

// GetNotifications returns the member's notification feed.
func (s *APIServer) GetNotifications(c *fiber.Ctx) error {
	return controllers.HandleListNotifications(c)
}

// PostNotificationRead marks a notification as read.
func (s *APIServer) PostNotificationRead(c *fiber.Ctx) error {
	return controllers.HandleMarkNotificationRead(c)
}

// GetAdminApplications lists the pending queue for the admin's stage.
func (s *APIServer) GetAdminApplications(c *fiber.Ctx) error {
	return controllers.HandleAdminQueue(c)
}

// PostAdminDecide applies a stage decision to an application.
func (s *APIServer) PostAdminDecide(c *fiber.Ctx) error {
	return controllers.HandleAdminDecide(c)
}

// GetAdminStats returns the dashboard statistics.
func (s *APIServer) GetAdminStats(c *fiber.Ctx) error {
	return controllers.HandleAdminStats(c)
}
