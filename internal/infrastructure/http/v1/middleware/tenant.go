package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	"distledger/internal/core/apperror"
	appctx "distledger/internal/core/context"
	"distledger/internal/core/id"
	"distledger/internal/core/tenant"
	"distledger/pkg/logger"
)

const (
	// TenantHeader is the HTTP header for tenant identification.
	TenantHeader = "X-Tenant-ID"

	tenantKey = "tenant_id"
)

// Tenant middleware resolves the distribution from X-Tenant-ID and rejects
// unknown or suspended ones. Handlers read the id with TenantID and pass it
// to services explicitly.
func Tenant(directory tenant.Getter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		raw := c.GetHeader(TenantHeader)
		if raw == "" {
			_ = c.Error(apperror.NewValidation("tenant is required").WithDetail("header", TenantHeader))
			c.Abort()
			return
		}
		tenantID, err := id.Parse(raw)
		if err != nil {
			_ = c.Error(
				apperror.NewValidation("invalid tenant id").
					WithDetail("header", TenantHeader).
					WithDetail("value", raw),
			)
			c.Abort()
			return
		}

		if _, err := tenant.Resolve(ctx, directory, tenantID); err != nil {
			logger.Warn(ctx, "tenant rejected", "tenant_id", tenantID, "error", err)
			switch {
			case errors.Is(err, tenant.ErrTenantNotFound):
				_ = c.Error(apperror.NewNotFound("tenant", tenantID.String()))
			case errors.Is(err, tenant.ErrTenantNotActive):
				_ = c.Error(apperror.NewForbidden("tenant is not active").WithDetail("tenant_id", tenantID.String()))
			default:
				_ = c.Error(apperror.NewInternal(err).WithDetail("tenant_id", tenantID.String()))
			}
			c.Abort()
			return
		}

		c.Set(tenantKey, tenantID)
		c.Next()
	}
}

// TenantID returns the distribution resolved by Tenant.
func TenantID(c *gin.Context) (tenant.ID, bool) {
	v, ok := c.Get(tenantKey)
	if !ok {
		return id.Nil(), false
	}
	tid, ok := v.(tenant.ID)
	return tid, ok
}

// HeaderActorID names the caller for attribution.
const HeaderActorID = "X-Actor-ID"

// Actor middleware puts the X-Actor-ID caller into the request context, where
// audit and posting read it. It must run after Tenant.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := &appctx.Actor{ID: c.GetHeader(HeaderActorID)}
		if tid, ok := TenantID(c); ok {
			actor.TenantID = tid.String()
		}
		if actor.ID != "" || actor.TenantID != "" {
			c.Request = c.Request.WithContext(appctx.WithActor(c.Request.Context(), actor))
		}
		c.Next()
	}
}
