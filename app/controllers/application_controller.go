package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/sanghsetu/memberdesk/internal/pkg/appstore"
	"github.com/sanghsetu/memberdesk/internal/pkg/lifecycle"
	metrics "github.com/sanghsetu/memberdesk/internal/pkg/metrics/counter"
	"github.com/sanghsetu/memberdesk/internal/pkg/syncreconciler"
	"github.com/sanghsetu/memberdesk/internal/pkg/usercontext"
)

// submitApplicationRequest is the JSON body for POST /api/v1/applications.
// Details is free-form and stored as the application's details document.
type submitApplicationRequest struct {
	Details map[string]interface{} `json:"details"`
}

// HandleGetMyApplication returns the session member's active application.
// Served from the backend when reachable, from the cached snapshot (tagged
// stale) during an outage.
func HandleGetMyApplication(c *fiber.Ctx) error {
	store, _ := wiring()
	memberID := usercontext.GetUserID(c)

	res, err := store.Get(c.Context(), memberID)
	if err != nil {
		if errors.Is(err, appstore.ErrNotFound) {
			return apiError(c, fiber.StatusNotFound, "no active application")
		}
		return lifecycleError(c, err)
	}

	// Status views are counted in Redis and flushed in batches
	if err := metrics.AddStatusView(res.Application.ID); err != nil {
		log.Warnf("[Application] Status view count failed for application %d: %v", res.Application.ID, err)
	}

	return apiSuccess(c, fiber.Map{
		"application":    res.Application,
		"stale":          res.Stale,
		"last_synced_at": res.LastSyncedAt,
		"next_action":    lifecycle.NextAction(res.Application),
	})
}

// HandleSubmitApplication submits a new membership application. Idempotent:
// if the member already has an active application that one is returned.
func HandleSubmitApplication(c *fiber.Ctx) error {
	member, err := currentMember(c)
	if err != nil {
		return apiError(c, fiber.StatusUnauthorized, "login required")
	}

	var req submitApplicationRequest
	if err := c.BodyParser(&req); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid request body")
	}

	store, _ := wiring()
	res, err := store.Create(c.Context(), member, req.Details)
	if err != nil {
		return lifecycleError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"application":    res.Application,
			"stale":          res.Stale,
			"last_synced_at": res.LastSyncedAt,
			"next_action":    lifecycle.NextAction(res.Application),
		},
	})
}

// HandleGetStages returns the four-row stage progress view for the member's
// application, refreshed through the reconciler.
func HandleGetStages(c *fiber.Ctx) error {
	_, rec := wiring()
	memberID := usercontext.GetUserID(c)

	res, err := rec.Refresh(c.Context(), memberID, syncreconciler.TriggerRouteEnter)
	if err != nil {
		return lifecycleError(c, err)
	}

	return apiSuccess(c, fiber.Map{
		"stages":  res.Stages,
		"stale":   res.Stale,
		"offline": res.Offline,
	})
}

// HandleGetGate returns the feature gate snapshot that drives the frontend's
// navigation and dashboard variant.
func HandleGetGate(c *fiber.Ctx) error {
	_, rec := wiring()
	memberID := usercontext.GetUserID(c)

	res, err := rec.Refresh(c.Context(), memberID, syncreconciler.TriggerRouteEnter)
	if err != nil {
		return lifecycleError(c, err)
	}

	return apiSuccess(c, fiber.Map{
		"gate":    res.Gate,
		"stale":   res.Stale,
		"offline": res.Offline,
		"changed": res.Changed,
	})
}
