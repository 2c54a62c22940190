package httpapi

import (
	"context"
	"net/http"

	"classboard/internal/classes"
	"classboard/internal/rbac"
	"classboard/internal/svcerr"
	"classboard/internal/users"
	"classboard/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Users   *users.Service
	Classes *classes.Service

	// Ready reports whether storage is reachable. Nil means always ready.
	Ready func(ctx context.Context) error
}

func (h Handlers) Health(c *gin.Context) {
	if h.Ready != nil {
		if err := h.Ready(c.Request.Context()); err != nil {
			logger.FromGin(c).Warn("readiness check failed", "err", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// --- Users ---

func (h Handlers) Register(c *gin.Context) {
	var req users.RegisterRequest
	if !bind(c, &req) {
		return
	}
	logger.FromGin(c).Debug("register", "req", req)

	u, creds, err := h.Users.Register(c.Request.Context(), req)
	if err != nil {
		svcerr.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": u, "credentials": creds})
}

func (h Handlers) Login(c *gin.Context) {
	var req users.LoginRequest
	if !bind(c, &req) {
		return
	}
	logger.FromGin(c).Debug("login", "req", req)

	creds, err := h.Users.Login(c.Request.Context(), req)
	if err != nil {
		svcerr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, creds)
}

// Token renews the access token. Mounted behind auth.RequireRefreshToken.
func (h Handlers) Token(c *gin.Context) {
	claims, ok := claimsOf(c)
	if !ok {
		return
	}
	creds, err := h.Users.Refresh(c.Request.Context(), claims)
	if err != nil {
		svcerr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, creds)
}

type profile struct {
	users.User
	Classes []classes.Class `json:"classes"`
}

// Me returns the caller with the classes they participate in.
func (h Handlers) Me(c *gin.Context) {
	claims, ok := claimsOf(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	u, err := h.Users.Me(ctx, claims)
	if err != nil {
		svcerr.Abort(c, err)
		return
	}
	mine, err := h.Classes.ListMine(ctx, claims)
	if err != nil {
		svcerr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, profile{User: u, Classes: mine})
}

func (h Handlers) UpdateMe(c *gin.Context) {
	claims, ok := claimsOf(c)
	if !ok {
		return
	}
	var req users.UpdateProfileRequest
	if !bind(c, &req) {
		return
	}
	u, err := h.Users.UpdateMe(c.Request.Context(), claims, req)
	if err != nil {
		svcerr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h Handlers) ChangePassword(c *gin.Context) {
	claims, ok := claimsOf(c)
	if !ok {
		return
	}
	var req users.ChangePasswordRequest
	if !bind(c, &req) {
		return
	}
	logger.FromGin(c).Debug("change password", "req", req)

	if err := h.Users.ChangePassword(c.Request.Context(), claims, req); err != nil {
		svcerr.Abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h Handlers) DeleteMe(c *gin.Context) {
	claims, ok := claimsOf(c)
	if !ok {
		return
	}
	if err := h.Users.DeleteMe(c.Request.Context(), claims); err != nil {
		svcerr.Abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Classes ---

func (h Handlers) CreateClass(c *gin.Context) {
	claims, ok := claimsOf(c)
	if !ok {
		return
	}
	var req classes.NewClass
	if !bind(c, &req) {
		return
	}
	cl, err := h.Classes.CreateClass(c.Request.Context(), claims, req)
	if err != nil {
		svcerr.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, cl)
}

func (h Handlers) GetClass(c *gin.Context) {
	claims, classID, ok := classRequest(c)
	if !ok {
		return
	}
	details, err := h.Classes.GetClass(c.Request.Context(), claims, classID)
	if err != nil {
		svcerr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

// MyRole reports the role resolved by rbac.ResolveClassRole.
func (h Handlers) MyRole(c *gin.Context) {
	role, ok := rbac.RoleFrom(c)
	if !ok {
		svcerr.Abort(c, svcerr.Internalf("class role not resolved"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"role": role})
}

type displayNameRequest struct {
	DisplayName string `json:"display_name"`
}

func (h Handlers) Join(c *gin.Context) {
	claims, classID, ok := classRequest(c)
	if !ok {
		return
	}
	var req displayNameRequest
	if !bind(c, &req) {
		return
	}
	m, err := h.Classes.Join(c.Request.Context(), claims, classID, req.DisplayName)
	if err != nil {
		svcerr.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (h Handlers) Leave(c *gin.Context) {
	claims, classID, ok := classRequest(c)
	if !ok {
		return
	}
	if err := h.Classes.Leave(c.Request.Context(), claims, classID); err != nil {
		svcerr.Abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h Handlers) ListMembers(c *gin.Context) {
	h.list(c, h.Classes.ListMembers)
}

func (h Handlers) ListPending(c *gin.Context) {
	h.list(c, h.Classes.ListPending)
}

func (h Handlers) ListBanned(c *gin.Context) {
	h.list(c, h.Classes.ListBanned)
}

type decisionRequest struct {
	Accept *bool `json:"accept"`
}

// DecideRequest accepts or rejects a pending join request.
func (h Handlers) DecideRequest(c *gin.Context) {
	claims, classID, userID, ok := memberRequest(c)
	if !ok {
		return
	}
	var req decisionRequest
	if !bind(c, &req) {
		return
	}
	if req.Accept == nil {
		svcerr.Abort(c, svcerr.BadRequest(svcerr.ReasonInvalidBody))
		return
	}

	ctx := c.Request.Context()
	if !*req.Accept {
		if err := h.Classes.Reject(ctx, claims, classID, userID); err != nil {
			svcerr.Abort(c, err)
			return
		}
		c.Status(http.StatusNoContent)
		return
	}
	m, err := h.Classes.Accept(ctx, claims, classID, userID)
	if err != nil {
		svcerr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

type addMemberRequest struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
}

func (h Handlers) AddMember(c *gin.Context) {
	claims, classID, ok := classRequest(c)
	if !ok {
		return
	}
	var req addMemberRequest
	if !bind(c, &req) {
		return
	}
	userID, err := classes.ParseID(req.UserID)
	if err != nil {
		svcerr.Abort(c, err)
		return
	}
	m, err := h.Classes.AddMember(c.Request.Context(), claims, classID, userID, req.DisplayName)
	if err != nil {
		svcerr.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (h Handlers) RemoveMember(c *gin.Context) {
	claims, classID, userID, ok := memberRequest(c)
	if !ok {
		return
	}
	if err := h.Classes.Remove(c.Request.Context(), claims, classID, userID); err != nil {
		svcerr.Abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h Handlers) Promote(c *gin.Context) { h.transition(c, h.Classes.Promote) }

func (h Handlers) Demote(c *gin.Context) { h.transition(c, h.Classes.Demote) }

func (h Handlers) Ban(c *gin.Context) { h.transition(c, h.Classes.Ban) }
