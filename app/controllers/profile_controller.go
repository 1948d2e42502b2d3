package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/sanghsetu/memberdesk/app/repository"
	"github.com/sanghsetu/memberdesk/internal/pkg/session"
	"github.com/sanghsetu/memberdesk/internal/pkg/usercontext"
)

// profileUpdateRequest is the JSON body for PUT /api/v1/profile. Only the
// fields that count towards profile completion plus organization are writable.
type profileUpdateRequest struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Organization string `json:"organization"`
	Occupation   string `json:"occupation"`
	Address      string `json:"address"`
	State        string `json:"state"`
	District     string `json:"district"`
	Block        string `json:"block"`
}

// HandleProfileGet returns the session member's profile with its completion
// percentage.
func HandleProfileGet(c *fiber.Ctx) error {
	member, err := currentMember(c)
	if err != nil {
		return apiError(c, fiber.StatusUnauthorized, "login required")
	}

	return apiSuccess(c, fiber.Map{
		"member":             member,
		"profile_completion": member.ProfileCompletion(),
		"profile_complete":   member.IsProfileComplete(),
	})
}

// HandleProfileUpdate applies a partial profile update. Submission of an
// application requires the profile to be 100% complete, so the response
// always reports the new completion percentage.
func HandleProfileUpdate(c *fiber.Ctx) error {
	member, err := currentMember(c)
	if err != nil {
		return apiError(c, fiber.StatusUnauthorized, "login required")
	}

	var req profileUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if req.Name != "" {
		member.Name = req.Name
	}
	if req.Phone != "" {
		member.Phone = req.Phone
	}
	if req.Organization != "" {
		member.Organization = req.Organization
	}
	if req.Occupation != "" {
		member.Occupation = req.Occupation
	}
	if req.Address != "" {
		member.Address = req.Address
	}
	if req.State != "" {
		member.State = req.State
	}
	if req.District != "" {
		member.District = req.District
	}
	if req.Block != "" {
		member.Block = req.Block
	}

	if err := member.Validate(); err != nil {
		return apiError(c, fiber.StatusUnprocessableEntity, err.Error())
	}

	if err := repository.GetGlobalRepositories().Member.Update(member); err != nil {
		return apiError(c, fiber.StatusInternalServerError, "could not save profile")
	}

	// Keep the cached session name in step with the profile
	_ = session.SetSessionValue(c, usercontext.KeyUsername, member.Name)

	return apiSuccess(c, fiber.Map{
		"member":             member,
		"profile_completion": member.ProfileCompletion(),
		"profile_complete":   member.IsProfileComplete(),
	})
}
