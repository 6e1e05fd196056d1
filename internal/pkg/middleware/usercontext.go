package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/soundhaven/soundhaven/app/models"
	"github.com/soundhaven/soundhaven/internal/pkg/database"
	"github.com/soundhaven/soundhaven/internal/pkg/session"
	"github.com/soundhaven/soundhaven/internal/pkg/usercontext"
)

// planRefreshInterval bounds how long a session keeps serving a cached plan
// before re-reading the user record.
const planRefreshInterval = time.Minute

// planCacheStale reports whether the session's plan copy must be refreshed
// from the user record. checkedAt is the unix timestamp string written at the
// last refresh.
func planCacheStale(plan, checkedAt string, now time.Time) bool {
	if plan == "" {
		return true
	}
	ts, err := strconv.ParseInt(checkedAt, 10, 64)
	if err != nil {
		return true
	}
	return now.Sub(time.Unix(ts, 0)) > planRefreshInterval
}

// UserContextMiddleware sets up the complete user context for every request.
// This centralizes user session handling and eliminates code duplication.
func UserContextMiddleware(c *fiber.Ctx) error {
	// Avoid interfering with Goth/Fiber session handling on OAuth routes.
	// Goth uses its own fiber session store and relies on per-request locals.
	// We skip our app session on /auth/* to prevent cross-store collisions.
	if strings.HasPrefix(c.Path(), "/auth/") {
		return c.Next()
	}
	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		c.Locals("USER_CONTEXT", usercontext.UserContext{
			IsLoggedIn: false,
			IsAdmin:    false,
		})
		c.Locals(usercontext.KeyFromProtected, false)
		c.Locals(usercontext.KeyIsAdmin, false)
		return c.Next()
	}

	userID := sess.Get(usercontext.KeyUserID)
	if userID == nil {
		// Anonymous user - no session data
		c.Locals("USER_CONTEXT", usercontext.UserContext{
			IsLoggedIn: false,
			IsAdmin:    false,
		})
		c.Locals(usercontext.KeyFromProtected, false)
		c.Locals(usercontext.KeyIsAdmin, false)
		return c.Next()
	}

	username := session.GetSessionValue(c, usercontext.KeyUsername)
	isAdmin := sess.Get(usercontext.KeyIsAdmin)

	// The user record is authoritative for the plan (billing webhooks write
	// it directly); the session copy is a shortcut that expires so plan
	// changes show up without a re-login.
	plan, _ := sess.Get(usercontext.KeyUserPlan).(string)
	checkedAt, _ := sess.Get(usercontext.KeyUserPlanCheckedAt).(string)
	if planCacheStale(plan, checkedAt, time.Now()) {
		refreshed := "free"
		if db := database.GetDB(); db != nil {
			var user models.User
			if err := db.First(&user, userID.(uint)).Error; err == nil && user.Plan != "" {
				refreshed = user.Plan
			} else if err != nil && plan != "" {
				// Keep the last known plan when the read fails
				refreshed = plan
			}
		} else if plan != "" {
			refreshed = plan
		}
		plan = refreshed
		sess.Set(usercontext.KeyUserPlan, plan)
		sess.Set(usercontext.KeyUserPlanCheckedAt, strconv.FormatInt(time.Now().Unix(), 10))
		_ = sess.Save()
	}

	userCtx := usercontext.UserContext{
		UserID:     userID.(uint),
		Username:   username,
		IsLoggedIn: true,
		IsAdmin:    isAdmin != nil && isAdmin.(bool),
		Plan:       plan,
	}
	c.Locals("USER_CONTEXT", userCtx)

	c.Locals(usercontext.KeyFromProtected, true)
	c.Locals(usercontext.KeyUsername, username)
	c.Locals(usercontext.KeyUserID, userID.(uint))
	c.Locals(usercontext.KeyIsAdmin, userCtx.IsAdmin)

	return c.Next()
}
