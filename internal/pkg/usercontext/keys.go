package usercontext

// Shared Locals/session keys used across controllers and middlewares
const (
	AuthKey          = "authenticated"
	KeyUserID        = "user_id"
	KeyUsername      = "username"
	KeyIsAdmin       = "isAdmin"
	KeyFromProtected = "from_protected"
	KeyUserPlan      = "user_plan"
	// KeyUserPlanCheckedAt holds the unix timestamp (string) of the last
	// plan refresh from the user record.
	KeyUserPlanCheckedAt = "user_plan_checked_at"
)
