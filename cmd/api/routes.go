package main

import (
	"choiceview-connect/internal/httpapi"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers delegate to the router.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, limitMW, authMW gin.HandlerFunc) {
	// public
	r.GET("/healthz", h.Health)

	// invoke API group
	v1 := r.Group("/v1")
	v1.Use(limitMW)
	if authMW != nil {
		v1.Use(authMW)
	}
	{
		v1.POST("/invoke", h.Invoke)
	}
}
