package controllers

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/sanghsetu/memberdesk/app/repository"
	"github.com/sanghsetu/memberdesk/internal/pkg/appstore"
	"github.com/sanghsetu/memberdesk/internal/pkg/env"
	"github.com/sanghsetu/memberdesk/internal/pkg/jobqueue"
	"github.com/sanghsetu/memberdesk/internal/pkg/lifecycle"
	"github.com/sanghsetu/memberdesk/internal/pkg/security"
)

// initiatePaymentRequest is the JSON body for POST /api/v1/payments.
type initiatePaymentRequest struct {
	Plan        string `json:"plan"`
	TotalAmount int64  `json:"total_amount"`
}

// confirmPaymentRequest is the JSON body for POST /api/v1/payments/confirm,
// sent by the payment gateway callback.
type confirmPaymentRequest struct {
	Token  string     `json:"token"`
	PaidAt *time.Time `json:"paid_at"`
}

func paymentSecret() string {
	return env.GetEnv("PAYMENT_CALLBACK_SECRET", "memberdesk-dev-secret")
}

// HandleInitiatePayment opens the membership fee payment for an approved
// application. The application moves to payment_pending until the gateway
// confirms.
func HandleInitiatePayment(c *fiber.Ctx) error {
	member, err := currentMember(c)
	if err != nil {
		return apiError(c, fiber.StatusUnauthorized, "login required")
	}

	var req initiatePaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid request body")
	}

	store, _ := wiring()
	res, err := store.Get(c.Context(), member.ID)
	if err != nil {
		if errors.Is(err, appstore.ErrNotFound) {
			return apiError(c, fiber.StatusNotFound, "no active application")
		}
		return lifecycleError(c, err)
	}
	if res.Stale {
		// Payments never run against a stale snapshot
		return apiError(c, fiber.StatusServiceUnavailable, "backend unavailable, please retry")
	}

	app := res.Application
	reference := uuid.New().String()
	if err := lifecycle.InitiatePayment(app, req.Plan, req.TotalAmount, reference); err != nil {
		return lifecycleError(c, err)
	}

	saved, err := store.Save(c.Context(), app)
	if err != nil {
		return lifecycleError(c, err)
	}

	// The gateway echoes this token back on the confirm callback
	token, err := security.GeneratePaymentToken(member.ID, app.ID, reference, req.TotalAmount, 24*time.Hour, paymentSecret())
	if err != nil {
		log.Errorf("[Payment] Token generation failed for member %d: %v", member.ID, err)
		return apiError(c, fiber.StatusInternalServerError, "could not initiate payment")
	}

	return apiSuccess(c, fiber.Map{
		"application":    saved.Application,
		"payment":        saved.Application.Payment,
		"callback_token": token,
		"stale":          saved.Stale,
	})
}

// HandleConfirmPayment completes the two-phase payment on the gateway
// callback: payment_pending -> active, member payment status -> completed.
func HandleConfirmPayment(c *fiber.Ctx) error {
	member, err := currentMember(c)
	if err != nil {
		return apiError(c, fiber.StatusUnauthorized, "login required")
	}

	var req confirmPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid request body")
	}

	store, _ := wiring()
	res, err := store.Get(c.Context(), member.ID)
	if err != nil {
		if errors.Is(err, appstore.ErrNotFound) {
			return apiError(c, fiber.StatusNotFound, "no active application")
		}
		return lifecycleError(c, err)
	}
	if res.Stale {
		return apiError(c, fiber.StatusServiceUnavailable, "backend unavailable, please retry")
	}

	claims, err := security.VerifyPaymentToken(req.Token, paymentSecret())
	if err != nil {
		return apiError(c, fiber.StatusUnprocessableEntity, "invalid payment token")
	}

	app := res.Application
	if claims.MemberID != member.ID || claims.ApplicationID != app.ID {
		return apiError(c, fiber.StatusUnprocessableEntity, "payment token does not match this application")
	}
	if app.Payment == nil || app.Payment.Reference != claims.Reference {
		return apiError(c, fiber.StatusUnprocessableEntity, "unknown payment reference")
	}

	paidAt := time.Now()
	if req.PaidAt != nil {
		paidAt = *req.PaidAt
	}
	if err := lifecycle.ConfirmPayment(app, member, paidAt); err != nil {
		return lifecycleError(c, err)
	}

	saved, err := store.Save(c.Context(), app)
	if err != nil {
		return lifecycleError(c, err)
	}
	if err := repository.GetGlobalRepositories().Member.Update(member); err != nil {
		log.Errorf("[Payment] Member %d payment status update failed: %v", member.ID, err)
	}

	notifyErr := jobqueue.GetManager().EnqueueNotification(jobqueue.JobTypeNotifyPayment, jobqueue.NotifyJobPayload{
		MemberID:      member.ID,
		ApplicationID: app.ID,
		Type:          "payment",
		Content:       fmt.Sprintf("Payment for application %s received. Your membership is now active.", app.ApplicationID),
		Email:         member.Email,
		Subject:       "Membership payment confirmed",
	})
	if notifyErr != nil {
		log.Warnf("[Payment] Could not enqueue payment notification for member %d: %v", member.ID, notifyErr)
	}

	return apiSuccess(c, fiber.Map{
		"application": saved.Application,
		"stale":       saved.Stale,
	})
}
