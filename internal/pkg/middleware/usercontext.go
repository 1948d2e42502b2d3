package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/sanghsetu/memberdesk/app/models"
	"github.com/sanghsetu/memberdesk/internal/pkg/database"
	"github.com/sanghsetu/memberdesk/internal/pkg/session"
	"github.com/sanghsetu/memberdesk/internal/pkg/usercontext"
)

// UserContextMiddleware sets up the complete member context for every request
// This centralizes session handling and eliminates code duplication
func UserContextMiddleware(c *fiber.Ctx) error {
	// Get session with error handling
	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		// On error: treat as anonymous
		c.Locals("USER_CONTEXT", usercontext.UserContext{
			IsLoggedIn: false,
			IsAdmin:    false,
		})
		c.Locals(usercontext.KeyFromProtected, false)
		c.Locals(usercontext.KeyIsAdmin, false)
		return c.Next()
	}

	// Get member ID from session
	userID := sess.Get(usercontext.KeyUserID)
	if userID == nil {
		// Anonymous - no session data
		c.Locals("USER_CONTEXT", usercontext.UserContext{
			IsLoggedIn: false,
			IsAdmin:    false,
		})
		c.Locals(usercontext.KeyFromProtected, false)
		c.Locals(usercontext.KeyIsAdmin, false)
		return c.Next()
	}

	username := session.GetSessionValue(c, usercontext.KeyUsername)

	// Determine role with session-first strategy
	role := session.GetSessionValue(c, usercontext.KeyRole)
	if role == "" {
		role = models.ROLE_MEMBER
		if db := database.GetDB(); db != nil {
			if member, err := models.FindMemberByID(db, userID.(uint)); err == nil && member != nil && member.Role != "" {
				role = member.Role
			}
		}
		// cache in session for subsequent requests
		_ = session.SetSessionValue(c, usercontext.KeyRole, role)
	}

	userCtx := usercontext.UserContext{
		UserID:     userID.(uint),
		Username:   username,
		Role:       role,
		IsLoggedIn: true,
		IsAdmin:    role == models.ROLE_ADMIN,
	}
	c.Locals("USER_CONTEXT", userCtx)

	// Legacy compatibility locals still read by a few handlers
	c.Locals(usercontext.KeyFromProtected, true)
	c.Locals(usercontext.KeyUsername, username)
	c.Locals(usercontext.KeyUserID, userID.(uint))
	c.Locals(usercontext.KeyIsAdmin, userCtx.IsAdmin)

	return c.Next()
}
