package oauthagent

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/wfxronald/token-handler-go/pkg/oauthagent/models"
)

// OriginVerifier rejects browser requests from untrusted origins. Requests
// without an Origin header pass, those come from non-browser callers like
// agentctl and the test suite.
func (o *OauthAgent) OriginVerifier() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			c.Next()
			return
		}
		for _, trusted := range o.trustedOrigins {
			if origin == trusted {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
			ErrorCode: "untrusted_origin",
		})
	}
}

func (o *OauthAgent) CorsMiddleware() gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowCredentials = true
	corsConfig.AllowOrigins = o.trustedOrigins
	return cors.New(corsConfig)
}
