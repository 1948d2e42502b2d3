package controllers

import (
	"errors"
	"sync"

	"github.com/gofiber/fiber/v2"

	"github.com/sanghsetu/memberdesk/app/models"
	"github.com/sanghsetu/memberdesk/app/repository"
	"github.com/sanghsetu/memberdesk/internal/pkg/appcache"
	"github.com/sanghsetu/memberdesk/internal/pkg/appstore"
	"github.com/sanghsetu/memberdesk/internal/pkg/jobqueue"
	"github.com/sanghsetu/memberdesk/internal/pkg/lifecycle"
	"github.com/sanghsetu/memberdesk/internal/pkg/syncreconciler"
	"github.com/sanghsetu/memberdesk/internal/pkg/usercontext"
)

// Session keys, re-exported so controllers and middleware agree on them.
const (
	AUTH_KEY       string = usercontext.AuthKey
	USER_ID        string = usercontext.KeyUserID
	USER_NAME      string = usercontext.KeyUsername
	USER_ROLE      string = usercontext.KeyRole
	USER_IS_ADMIN  string = usercontext.KeyIsAdmin
	FROM_PROTECTED string = usercontext.KeyFromProtected
)

var (
	wireOnce   sync.Once
	appStore   *appstore.Store
	reconciler *syncreconciler.Reconciler
)

// wiring builds the shared store and reconciler on first use, after the
// database and job queue are up.
func wiring() (*appstore.Store, *syncreconciler.Reconciler) {
	wireOnce.Do(func() {
		repos := repository.GetGlobalRepositories()
		appStore = appstore.NewStore(repos.Application, appcache.NewStore(), jobqueue.GetManager())
		reconciler = syncreconciler.New(appStore, repos.Member)
	})
	return appStore, reconciler
}

// SetWiring replaces the shared store and reconciler. Test hook.
func SetWiring(s *appstore.Store, r *syncreconciler.Reconciler) {
	wireOnce.Do(func() {})
	appStore = s
	reconciler = r
}

func isLoggedIn(c *fiber.Ctx) bool {
	return usercontext.IsLoggedIn(c)
}

// currentMember loads the session member from the database.
func currentMember(c *fiber.Ctx) (*models.Member, error) {
	id := usercontext.GetUserID(c)
	if id == 0 {
		return nil, errors.New("no session member")
	}
	return repository.GetGlobalRepositories().Member.GetByID(id)
}

// apiSuccess renders the standard success envelope.
func apiSuccess(c *fiber.Ctx, data interface{}) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

// apiError renders the standard error envelope with the given HTTP status.
func apiError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

// lifecycleError maps the typed state machine errors onto HTTP statuses:
// validation problems are 422, illegal transitions 409, backend outages 503.
func lifecycleError(c *fiber.Ctx, err error) error {
	var ve *lifecycle.ValidationError
	if errors.As(err, &ve) {
		return apiError(c, fiber.StatusUnprocessableEntity, ve.Error())
	}
	var te *lifecycle.InvalidTransitionError
	if errors.As(err, &te) {
		return apiError(c, fiber.StatusConflict, te.Error())
	}
	var se *lifecycle.IllegalStateError
	if errors.As(err, &se) {
		return apiError(c, fiber.StatusConflict, se.Error())
	}
	var ne *lifecycle.NetworkError
	if errors.As(err, &ne) {
		return apiError(c, fiber.StatusServiceUnavailable, "backend unavailable, please retry")
	}
	return apiError(c, fiber.StatusInternalServerError, err.Error())
}
