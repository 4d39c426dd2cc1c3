// Package httptransport wires the Mutation API boundary: every route
// here validates a request, calls into internal/mutation or
// internal/catalogue, and never touches the Scheduling Store directly.
package httptransport

import (
	"log/slog"

	"github.com/afonsoingles/helper-scheduler/internal/transport/http/handler"
	"github.com/afonsoingles/helper-scheduler/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"

	sloggin "github.com/samber/slog-gin"
)

func NewRouter(logger *slog.Logger, helperHandler *handler.HelperHandler, jwtKey []byte) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security())
	r.Use(sloggin.New(logger))
	r.Use(middleware.Metrics())

	authMW := middleware.Auth(jwtKey)

	helpers := r.Group("/v2/helpers", authMW)
	helpers.GET("", helperHandler.List)
	helpers.POST("", helperHandler.Register)
	helpers.PUT("/:id", helperHandler.Update)
	helpers.DELETE("/:id", helperHandler.Unregister)

	adminHelpers := r.Group("/v2/admin/helpers", authMW, middleware.RequireAdmin())
	adminHelpers.PATCH("/:id", helperHandler.SetEnabled)

	return r
}
