package httpapi

import (
	"context"
	"net/http"

	"classboard/internal/auth"
	"classboard/internal/classes"
	"classboard/internal/rbac"
	"classboard/internal/svcerr"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const userIDParam = "user_id"

func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		svcerr.Abort(c, svcerr.BadRequest(svcerr.ReasonInvalidBody))
		return false
	}
	return true
}

func claimsOf(c *gin.Context) (auth.Claims, bool) {
	claims, err := auth.ClaimsFrom(c.Request.Context())
	if err != nil {
		svcerr.Abort(c, svcerr.Unauthorized(svcerr.ReasonNoBearerToken))
		return auth.Claims{}, false
	}
	return claims, true
}

func classRequest(c *gin.Context) (auth.Claims, uuid.UUID, bool) {
	claims, ok := claimsOf(c)
	if !ok {
		return auth.Claims{}, uuid.Nil, false
	}
	classID, err := classes.ParseID(c.Param(rbac.ClassIDParam))
	if err != nil {
		svcerr.Abort(c, err)
		return auth.Claims{}, uuid.Nil, false
	}
	return claims, classID, true
}

func memberRequest(c *gin.Context) (auth.Claims, uuid.UUID, uuid.UUID, bool) {
	claims, classID, ok := classRequest(c)
	if !ok {
		return auth.Claims{}, uuid.Nil, uuid.Nil, false
	}
	userID, err := classes.ParseID(c.Param(userIDParam))
	if err != nil {
		svcerr.Abort(c, err)
		return auth.Claims{}, uuid.Nil, uuid.Nil, false
	}
	return claims, classID, userID, true
}

type listFunc func(ctx context.Context, claims auth.Claims, classID uuid.UUID) ([]classes.Membership, error)

func (h Handlers) list(c *gin.Context, fn listFunc) {
	claims, classID, ok := classRequest(c)
	if !ok {
		return
	}
	members, err := fn(c.Request.Context(), claims, classID)
	if err != nil {
		svcerr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
}

type transitionFunc func(ctx context.Context, claims auth.Claims, classID, userID uuid.UUID) (classes.Membership, error)

func (h Handlers) transition(c *gin.Context, fn transitionFunc) {
	claims, classID, userID, ok := memberRequest(c)
	if !ok {
		return
	}
	m, err := fn(c.Request.Context(), claims, classID, userID)
	if err != nil {
		svcerr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}
