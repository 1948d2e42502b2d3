package controllers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/sanghsetu/memberdesk/app/repository"
	"github.com/sanghsetu/memberdesk/internal/pkg/usercontext"
)

// HandleListNotifications returns the member's notification feed, newest
// first, with the unread count.
func HandleListNotifications(c *fiber.Ctx) error {
	memberID := usercontext.GetUserID(c)

	page, _ := strconv.Atoi(c.Query("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	repos := repository.GetGlobalRepositories()
	notifications, err := repos.Notification.ListByMemberID(memberID, offset, limit)
	if err != nil {
		return apiError(c, fiber.StatusInternalServerError, "could not load notifications")
	}
	unread, err := repos.Notification.CountUnread(memberID)
	if err != nil {
		return apiError(c, fiber.StatusInternalServerError, "could not load notifications")
	}

	return apiSuccess(c, fiber.Map{
		"notifications": notifications,
		"unread_count":  unread,
		"page":          page,
		"limit":         limit,
	})
}

// HandleMarkNotificationRead marks one of the member's notifications as read.
func HandleMarkNotificationRead(c *fiber.Ctx) error {
	memberID := usercontext.GetUserID(c)

	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid notification id")
	}

	if err := repository.GetGlobalRepositories().Notification.MarkRead(memberID, uint(id)); err != nil {
		return apiError(c, fiber.StatusInternalServerError, "could not update notification")
	}

	return apiSuccess(c, fiber.Map{"marked_read": id})
}
