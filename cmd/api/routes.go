package main

import (
	"classboard/internal/auth"
	"classboard/internal/httpapi"
	"classboard/internal/rbac"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, authn *auth.Authenticator, resolver rbac.RoleResolver) {
	// public
	r.GET("/healthz", h.Health)
	r.POST("/users", h.Register)
	r.POST("/login", h.Login)

	// token renewal accepts refresh tokens only
	r.POST("/token", auth.RequireRefreshToken(authn), h.Token)

	// everything below requires an access token
	authed := r.Group("")
	authed.Use(auth.RequireAccessToken(authn))
	{
		me := authed.Group("/users/me")
		me.GET("", h.Me)
		me.PUT("", h.UpdateMe)
		me.PATCH("/password", h.ChangePassword)
		me.DELETE("", h.DeleteMe)

		authed.POST("/classes", h.CreateClass)

		class := authed.Group("/classes/:" + rbac.ClassIDParam)
		class.GET("", h.GetClass)
		class.GET("/role", rbac.ResolveClassRole(resolver), h.MyRole)
		class.GET("/members", h.ListMembers)
		class.POST("/join", h.Join)
		class.DELETE("/members/me", h.Leave)

		// Membership management. The gate rejects non-elevated callers early;
		// each operation re-checks against stored state when it runs.
		admin := class.Group("")
		admin.Use(rbac.RequireClassRole(resolver, rbac.MemberRole.HasElevatedRights))
		{
			admin.GET("/requests", h.ListPending)
			admin.POST("/requests/:user_id", h.DecideRequest)
			admin.GET("/banned", h.ListBanned)
			admin.POST("/members", h.AddMember)
			admin.DELETE("/members/:user_id", h.RemoveMember)
			admin.POST("/members/:user_id/promote", h.Promote)
			admin.POST("/members/:user_id/demote", h.Demote)
			admin.POST("/members/:user_id/ban", h.Ban)
		}
	}
}
