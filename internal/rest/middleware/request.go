package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/tirelane/tirelane/internal/types"
)

// RequestIDMiddleware assigns every request an id and echoes it back.
func RequestIDMiddleware(c *gin.Context) {
	requestID := c.GetHeader(types.HeaderRequestID)
	if requestID == "" {
		requestID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_REQUEST)
	}

	ctx := types.SetRequestID(c.Request.Context(), requestID)
	c.Request = c.Request.WithContext(ctx)
	c.Header(types.HeaderRequestID, requestID)
	c.Next()
}

// OwnerContextMiddleware propagates the authenticated owner identity into
// the request context. Authentication itself happens upstream (API gateway);
// this service trusts the forwarded header.
func OwnerContextMiddleware(c *gin.Context) {
	if ownerID := c.GetHeader(types.HeaderOwnerID); ownerID != "" {
		ctx := types.SetUserID(c.Request.Context(), ownerID)
		c.Request = c.Request.WithContext(ctx)
	}
	c.Next()
}
