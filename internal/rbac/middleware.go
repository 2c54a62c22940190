package rbac

import (
	"context"

	"classboard/internal/auth"
	"classboard/internal/svcerr"

	"github.com/gin-gonic/gin"
)

// ClassIDParam is the path parameter holding the target class.
const ClassIDParam = "class_id"

const ctxRoleKey = "class_role"

// RoleResolver looks up the caller's role in a class. A malformed class id
// must fail before any storage access.
type RoleResolver interface {
	Resolve(ctx context.Context, claims auth.Claims, rawClassID string) (MemberRole, error)
}

// ResolveClassRole stores the caller's role for the class in the gin context.
// A caller without a membership gets 404. Mount after auth.RequireAccessToken.
func ResolveClassRole(resolver RoleResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, err := resolve(c, resolver)
		if err != nil {
			svcerr.Abort(c, err)
			return
		}
		c.Set(ctxRoleKey, role)
		c.Next()
	}
}

// RequireClassRole admits callers whose role satisfies allow. A missing
// membership is reported as 403, same as an insufficient role.
func RequireClassRole(resolver RoleResolver, allow func(MemberRole) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, err := resolve(c, resolver)
		if svcerr.Is(err, svcerr.KindNotFound) {
			err = svcerr.Forbidden()
		}
		if err == nil && !allow(role) {
			err = svcerr.Forbidden()
		}
		if err != nil {
			svcerr.Abort(c, err)
			return
		}
		c.Set(ctxRoleKey, role)
		c.Next()
	}
}

func resolve(c *gin.Context, resolver RoleResolver) (MemberRole, error) {
	claims, err := auth.ClaimsFrom(c.Request.Context())
	if err != nil {
		return 0, svcerr.Unauthorized(svcerr.ReasonNoBearerToken)
	}
	return resolver.Resolve(c.Request.Context(), claims, c.Param(ClassIDParam))
}

// RoleFrom returns the role stored by ResolveClassRole or RequireClassRole.
func RoleFrom(c *gin.Context) (MemberRole, bool) {
	v, ok := c.Get(ctxRoleKey)
	if !ok {
		return 0, false
	}
	r, ok := v.(MemberRole)
	return r, ok
}
