package controllers

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/sanghsetu/memberdesk/app/models"
	"github.com/sanghsetu/memberdesk/app/repository"
	"github.com/sanghsetu/memberdesk/internal/pkg/jobqueue"
	"github.com/sanghsetu/memberdesk/internal/pkg/lifecycle"
	"github.com/sanghsetu/memberdesk/internal/pkg/statistics"
)

// decideRequest is the JSON body for POST /api/v1/admin/applications/:id/decide.
type decideRequest struct {
	Stage    string `json:"stage"`
	Decision string `json:"decision"`
	Remarks  string `json:"remarks"`
}

// stageForRole maps a review role onto the stage it decides. Portal admins
// have no fixed stage and must name one explicitly.
func stageForRole(role string) string {
	switch role {
	case models.ROLE_BLOCK_ADMIN:
		return models.StageBlock
	case models.ROLE_DISTRICT_ADMIN:
		return models.StageDistrict
	case models.ROLE_STATE_ADMIN:
		return models.StageState
	}
	return ""
}

// regionScope returns the region keys the queue is narrowed to. Portal admins
// see everything; stage admins only their own region.
func regionScope(admin *models.Member) (state, district, block string) {
	if admin.Role == models.ROLE_ADMIN {
		return "", "", ""
	}
	return admin.State, admin.District, admin.Block
}

// HandleAdminQueue lists the applications waiting at the admin's stage,
// oldest submission first.
func HandleAdminQueue(c *fiber.Ctx) error {
	admin, err := currentMember(c)
	if err != nil {
		return apiError(c, fiber.StatusUnauthorized, "login required")
	}

	stage := c.Query("stage", stageForRole(admin.Role))
	if stage == "" {
		return apiError(c, fiber.StatusBadRequest, "stage parameter required")
	}
	if !admin.IsApprover(stage) {
		return apiError(c, fiber.StatusForbidden, fmt.Sprintf("not an approver for the %s stage", stage))
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.Query("limit", "25"))
	if limit < 1 || limit > 100 {
		limit = 25
	}
	offset := (page - 1) * limit

	state, district, block := regionScope(admin)
	repos := repository.GetGlobalRepositories()
	apps, err := repos.Application.ListPendingForStage(stage, state, district, block, offset, limit)
	if err != nil {
		return apiError(c, fiber.StatusInternalServerError, "could not load queue")
	}
	total, err := repos.Application.CountPendingForStage(stage, state, district, block)
	if err != nil {
		return apiError(c, fiber.StatusInternalServerError, "could not load queue")
	}

	return apiSuccess(c, fiber.Map{
		"stage":        stage,
		"applications": apps,
		"total":        total,
		"page":         page,
		"limit":        limit,
	})
}

// HandleAdminDecide applies an approve/reject decision to an application. The
// decision only lands when the named stage is the application's active stage
// and the admin is an approver for it within their region.
func HandleAdminDecide(c *fiber.Ctx) error {
	admin, err := currentMember(c)
	if err != nil {
		return apiError(c, fiber.StatusUnauthorized, "login required")
	}

	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid application id")
	}

	var req decideRequest
	if err := c.BodyParser(&req); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid request body")
	}

	repos := repository.GetGlobalRepositories()
	app, err := repos.Application.GetByID(uint(id))
	if err != nil {
		return apiError(c, fiber.StatusNotFound, "application not found")
	}

	stage := req.Stage
	if stage == "" {
		stage = stageForRole(admin.Role)
	}
	if stage == "" {
		stage = app.ActiveStage()
	}
	if !admin.IsApprover(stage) {
		return apiError(c, fiber.StatusForbidden, fmt.Sprintf("not an approver for the %s stage", stage))
	}
	if !regionMatches(admin, app, stage) {
		return apiError(c, fiber.StatusForbidden, "application belongs to another region")
	}

	if err := lifecycle.Decide(app, stage, req.Decision, admin.ID, admin.Name, req.Remarks); err != nil {
		return lifecycleError(c, err)
	}

	store, _ := wiring()
	saved, err := store.Save(c.Context(), app)
	if err != nil {
		return lifecycleError(c, err)
	}

	notifyDecision(app, stage, req.Decision, req.Remarks)
	statistics.ResetCacheUpdateTimer()

	return apiSuccess(c, fiber.Map{
		"application": saved.Application,
		"stale":       saved.Stale,
	})
}

// regionMatches checks that a stage admin only decides applications routed to
// their own region. Portal admins pass unconditionally.
func regionMatches(admin *models.Member, app *models.Application, stage string) bool {
	if admin.Role == models.ROLE_ADMIN {
		return true
	}
	if admin.State != app.State {
		return false
	}
	switch stage {
	case models.StageBlock:
		return admin.District == app.District && admin.Block == app.Block
	case models.StageDistrict:
		return admin.District == app.District
	}
	return true
}

// notifyDecision queues the member-facing notification and email for a stage
// decision. Best effort: a full queue never blocks the decision itself.
func notifyDecision(app *models.Application, stage, decision, remarks string) {
	member, err := repository.GetGlobalRepositories().Member.GetByID(app.MemberID)
	if err != nil {
		log.Warnf("[Admin] Member %d lookup for decision notification failed: %v", app.MemberID, err)
		return
	}

	content := fmt.Sprintf("Your application %s was %s at the %s stage.", app.ApplicationID, decision, stage)
	if decision == models.DecisionRejected && remarks != "" {
		content = fmt.Sprintf("%s Remarks: %s", content, remarks)
	} else if decision == models.DecisionApproved && app.Status == models.AppStatusApproved {
		content = fmt.Sprintf("Your application %s is fully approved. Please pay the membership fee.", app.ApplicationID)
	}

	err = jobqueue.GetManager().EnqueueNotification(jobqueue.JobTypeNotifyDecision, jobqueue.NotifyJobPayload{
		MemberID:      member.ID,
		ApplicationID: app.ID,
		Type:          "decision",
		Content:       content,
		Email:         member.Email,
		Subject:       fmt.Sprintf("Application %s: %s stage %s", app.ApplicationID, stage, decision),
	})
	if err != nil {
		log.Warnf("[Admin] Could not enqueue decision notification for member %d: %v", member.ID, err)
	}
}

// HandleAdminStats returns the dashboard statistics: totals, counts by
// status, pending per stage and the 30-day submission series.
func HandleAdminStats(c *fiber.Ctx) error {
	data := statistics.GetStatisticsData()

	end := time.Now()
	start := end.AddDate(0, 0, -30)
	daily, err := repository.GetGlobalRepositories().Application.GetDailyStats(start, end)
	if err != nil {
		log.Warnf("[Admin] Daily stats query failed: %v", err)
		daily = nil
	}

	return apiSuccess(c, fiber.Map{
		"totals":            data,
		"daily_submissions": daily,
	})
}
