// Package router maps HTTP routes to handlers and applies the
// authentication and authorization middleware per route group.
package router

import (
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/friendlyi/reservation-backend/internal/config"
	"github.com/friendlyi/reservation-backend/internal/handler"
	"github.com/friendlyi/reservation-backend/internal/middleware"
)

// Handlers bundles every handler the router wires up.
type Handlers struct {
	Auth         *handler.AuthHandler
	Members      *handler.MemberHandler
	Locations    *handler.LocationHandler
	Reservations *handler.ReservationHandler
	Applications *handler.ApplicationHandler
	ActivityLogs *handler.ActivityLogHandler
	Files        *handler.FileHandler
}

// Register sets up global middleware and all route groups. Routes not
// under /api/auth require a valid access token; admin-only groups add
// the ROOSTER grade check on top.
func Register(e *echo.Echo, cfg config.Config, rdb *redis.Client, h Handlers) {
	e.Use(echomw.Recover())
	e.Use(echomw.Secure())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{cfg.WebOrigin},
		AllowMethods:     []string{echo.GET, echo.POST, echo.PUT, echo.DELETE, echo.OPTIONS},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))
	e.Use(middleware.RateLimit(rdb, cfg.RateLimit, time.Duration(cfg.RateWindowSecs)*time.Second))

	e.GET("/healthz", handler.Health)

	// Unauthenticated: registration, login, token rotation.
	pub := e.Group("/api/auth")
	pub.POST("/register", h.Auth.Register)
	pub.POST("/login", h.Auth.Login)
	pub.POST("/refresh", h.Auth.Refresh)
	pub.POST("/logout", h.Auth.Logout)
	e.POST("/api/members", h.Auth.Register)

	// Public profile images.
	e.GET("/api/files/profile-images/:name", h.Files.ServeProfileImage)

	api := e.Group("/api")
	api.Use(middleware.JWTAuth(cfg.JWTSecret))

	api.GET("/auth/me", h.Auth.Me)
	api.GET("/auth/validate", h.Auth.Validate)

	// Members: self-service plus admin management.
	api.GET("/members/:id", h.Members.Get)
	api.GET("/members/:id/stats", h.Members.Stats)
	api.PUT("/members/:id", h.Members.Update)
	api.POST("/files/profile-image", h.Files.UploadProfileImage)

	admin := api.Group("", middleware.RequireAdmin())
	admin.GET("/members", h.Members.ListAll)
	admin.GET("/members/paged", h.Members.List)
	admin.GET("/members/search", h.Members.Search)
	admin.GET("/members/grade/:grade", h.Members.ByGrade)
	admin.GET("/members/login/:loginId", h.Members.GetByLoginID)
	admin.PUT("/members/:id/grade", h.Members.UpdateGrade)
	admin.DELETE("/members/:id", h.Members.Delete)

	// Locations: reads for members, writes for admins.
	api.GET("/locations", h.Locations.List)
	api.GET("/locations/active", h.Locations.Active)
	api.GET("/locations/search", h.Locations.Search)
	api.GET("/locations/in-use", h.Locations.InUse)
	api.GET("/locations/:id", h.Locations.Get)
	admin.POST("/locations", h.Locations.Create)
	admin.PUT("/locations/:id", h.Locations.Update)
	admin.PUT("/locations/:id/activate", h.Locations.Activate)
	admin.PUT("/locations/:id/deactivate", h.Locations.Deactivate)

	// Reservations.
	api.POST("/reservations", h.Reservations.Create)
	api.GET("/reservations", h.Reservations.List)
	api.GET("/reservations/future", h.Reservations.Future)
	api.GET("/reservations/available", h.Reservations.Available)
	api.GET("/reservations/date/:date", h.Reservations.ByDate)
	api.GET("/reservations/:id", h.Reservations.Get)
	api.GET("/reservations/:id/applicants", h.Reservations.Applicants)
	api.PUT("/reservations/:id", h.Reservations.Update)
	api.DELETE("/reservations/:id", h.Reservations.Delete)

	// Applications.
	api.POST("/reservation-applications", h.Applications.Apply)
	api.DELETE("/reservation-applications/:id", h.Applications.Cancel)
	api.GET("/reservation-applications/member/:id", h.Applications.ByMember)
	api.GET("/reservation-applications/reservation/:id", h.Applications.ByReservation)
	admin.PUT("/reservation-applications/:id/status", h.Applications.SetStatus)

	// Activity logs: admin only.
	admin.GET("/activity-logs/recent", h.ActivityLogs.Recent)
	admin.GET("/activity-logs/member/:id", h.ActivityLogs.ByMember)
	admin.GET("/activity-logs/type/:type", h.ActivityLogs.ByType)
}
