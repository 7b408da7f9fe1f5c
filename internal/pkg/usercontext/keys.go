package usercontext

// Shared Locals/session keys used across controllers and middlewares
const (
	AuthKey          = "authenticated"
	KeyUserID        = "user_id"
	KeyUsername      = "username"
	KeyOrgID         = "organization_id"
	KeyOrgRole       = "organization_role"
	KeyFromProtected = "from_protected"
)
