package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	appctx "stockbook/internal/core/context"
)

const (
	HeaderActorID   = "X-Actor-ID"
	HeaderActorName = "X-Actor-Name"
)

// DefaultActorID labels requests that name no actor.
const DefaultActorID = "api"

// Actor puts the calling workflow's actor label into the request context.
// The label is recorded in audit entries and idempotency keys; it is not authenticated.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID := strings.TrimSpace(c.GetHeader(HeaderActorID))
		if actorID == "" {
			actorID = DefaultActorID
		}
		actorName := strings.TrimSpace(c.GetHeader(HeaderActorName))
		if actorName == "" {
			actorName = actorID
		}

		ctx := appctx.WithActor(c.Request.Context(), &appctx.Actor{ID: actorID, Name: actorName})
		c.Request = c.Request.WithContext(ctx)
		c.Set("actor_id", actorID)

		c.Next()
	}
}
