package controllers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"

	"github.com/sanghsetu/memberdesk/app/models"
	"github.com/sanghsetu/memberdesk/app/repository"
	"github.com/sanghsetu/memberdesk/internal/pkg/database"
	"github.com/sanghsetu/memberdesk/internal/pkg/session"
	"github.com/sanghsetu/memberdesk/internal/pkg/statistics"
)

// HandleAuthRegister creates a portal account from the registration form.
func HandleAuthRegister(c *fiber.Ctx) error {
	fm := fiber.Map{
		"type": "error",
	}

	member, err := models.CreateMember(c.FormValue("name"), c.FormValue("email"), c.FormValue("password"))
	if err != nil {
		fm["message"] = fmt.Sprintf("something went wrong: %s", err)

		return flash.WithError(c, fm).Redirect("/register")
	}

	if err := repository.GetGlobalRepositories().Member.Create(member); err != nil {
		fm["message"] = fmt.Sprintf("something went wrong: %s", err)

		return flash.WithError(c, fm).Redirect("/register")
	}

	// Update statistics after registration
	go statistics.UpdateStatisticsCache()

	fm = fiber.Map{
		"type":    "success",
		"message": "Registration successful, you can log in now.",
	}

	return flash.WithSuccess(c, fm).Redirect("/login")
}

// HandleAuthLogin verifies credentials and opens a session.
func HandleAuthLogin(c *fiber.Ctx) error {
	fm := fiber.Map{
		"type": "error",
	}

	// notice: in production you should not inform the user
	// with detailed messages about login failures
	member, err := repository.GetGlobalRepositories().Member.GetByEmail(c.FormValue("email"))
	if err != nil {
		fm["message"] = "There is a problem with the login process"

		return flash.WithError(c, fm).Redirect("/login")
	}

	if !member.CheckPassword(c.FormValue("password")) {
		fm["message"] = "There is a problem with the login process"

		return flash.WithError(c, fm).Redirect("/login")
	}

	if !member.IsActive() {
		fm["message"] = "This account is disabled"

		return flash.WithError(c, fm).Redirect("/login")
	}

	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		fm["message"] = fmt.Sprintf("something went wrong: %s", err)

		return flash.WithError(c, fm).Redirect("/login")
	}

	sess.Set(AUTH_KEY, true)
	sess.Set(USER_ID, member.ID)
	sess.Set(USER_NAME, member.Name)
	sess.Set(USER_ROLE, member.Role)
	sess.Set(USER_IS_ADMIN, member.Role == models.ROLE_ADMIN)

	if err := sess.Save(); err != nil {
		fm["message"] = fmt.Sprintf("something went wrong: %s", err)

		return flash.WithError(c, fm).Redirect("/login")
	}

	database.GetDB().Model(member).Update("last_login_at", time.Now())

	fm = fiber.Map{
		"type":    "success",
		"message": "Welcome back!",
	}

	return flash.WithSuccess(c, fm).Redirect("/")
}

// HandleAuthLogout destroys the session.
func HandleAuthLogout(c *fiber.Ctx) error {
	fm := fiber.Map{
		"type": "error",
	}

	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		fm["message"] = "logged out (no sess)"

		return flash.WithError(c, fm).Redirect("/login")
	}

	if err := sess.Destroy(); err != nil {
		fm["message"] = fmt.Sprintf("something went wrong: %s", err)

		return flash.WithError(c, fm).Redirect("/login")
	}

	fm = fiber.Map{
		"type":    "success",
		"message": "See you soon!",
	}

	c.Locals(FROM_PROTECTED, false)

	return flash.WithSuccess(c, fm).Redirect("/login")
}
