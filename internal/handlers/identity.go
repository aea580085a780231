package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Caller identity is supplied by an external authenticator in front of this
// API. Guest sessions get a generated id; note there is no later
// reconciliation between a guest id and an authenticated one.
const (
	headerUserID    = "X-User-Id"
	headerSessionID = "X-Session-Id"
	headerUserEmail = "X-User-Email"
)

func callerID(c *gin.Context) string {
	if id := c.GetHeader(headerUserID); id != "" {
		return id
	}
	if id := c.GetHeader(headerSessionID); id != "" {
		return id
	}
	return "guest-" + uuid.NewString()
}

func callerEmail(c *gin.Context) string {
	return c.GetHeader(headerUserEmail)
}
