package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter wires the sync API routes.
func NewRouter(cfg Config, h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger())
	r.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders: []string{"Authorization", "Content-Type"},
	}))

	v1 := r.Group("/api/sync/v1")
	v1.GET("/healthz", h.Healthz)
	v1.POST("/auth/token", h.Token)

	authed := v1.Group("")
	authed.Use(AuthMiddleware([]byte(cfg.JWTSecret)))
	{
		authed.POST("/users/ensure", h.EnsureUser)
		authed.PUT("/records/:collection/:id", h.Upsert)
		authed.GET("/records/:collection/:id", h.GetRecord)
		authed.GET("/records/:collection", h.ListChanged)
		authed.GET("/tags/by-name", h.TagByName)
	}
	return r
}
