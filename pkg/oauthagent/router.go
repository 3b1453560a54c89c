package oauthagent

import (
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
)

func NewRouter(o *OauthAgent) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	logger := o.logger.Desugar()
	r.Use(ginzap.GinzapWithConfig(logger, &ginzap.Config{
		TimeFormat: time.RFC3339,
		UTC:        true,
	}))
	r.Use(ginzap.RecoveryWithZap(logger, true))
	r.Use(o.OriginVerifier())
	r.Use(o.CorsMiddleware())

	r.POST("/login/start", o.LoginStart)
	r.POST("/login/end", o.LoginEnd)
	r.GET("/session", o.Session)
	r.POST("/refresh", o.Refresh)
	r.POST("/logout", o.Logout)
	return r
}
