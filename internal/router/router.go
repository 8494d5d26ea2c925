// Package router builds the Echo instance and registers every route.
package router

import (
	"database/sql"
	"strconv"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/pamfree/internal/config"
	"github.com/iliyamo/pamfree/internal/handler"
	"github.com/iliyamo/pamfree/internal/middleware"
	"github.com/iliyamo/pamfree/internal/service"
	"github.com/iliyamo/pamfree/internal/validation"
)

// Deps are what the routes need.  Redis may be nil, in which case the
// cache and the rate limiter pass requests through.
type Deps struct {
	Config    config.Config
	DB        *sql.DB
	Services  *service.Services
	Redis     *redis.Client
	Cache     config.CacheConfig
	RateLimit config.RateLimitConfig
}

// multipartOverhead is allowed on top of MaxUploadBytes for the
// multipart envelope.
const multipartOverhead = 64 << 10

// New returns a configured Echo instance.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = jsonSerializer{}
	e.Validator = validation.Validator{}
	e.HTTPErrorHandler = handler.HTTPErrorHandler

	e.Use(echomw.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.Metrics())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Authenticate(d.Config.JWTSecret))

	e.GET("/healthz", handler.Health(d.DB))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	limit := middleware.NewTokenBucket(d.RateLimit, d.Redis)
	api := e.Group("/api")

	RegisterAuth(api, handler.NewAuthHandler(d.Services.Auth, d.Services.Users, d.Config.CookieSecure), limit)
	RegisterAdmin(api, handler.NewAdminHandler(d.Services.Users))
	RegisterMaps(api, handler.NewMapHandler(d.Services, d.Config.MaxUploadBytes), d.Config.MaxUploadBytes)
	RegisterPublic(api, handler.NewPublicHandler(d.Services), limit, middleware.NewRedisCache(d.Cache, d.Redis))
	return e
}

// RegisterAuth registers session and profile routes.  Session creation
// is rate limited.
func RegisterAuth(api *echo.Group, h *handler.AuthHandler, limit echo.MiddlewareFunc) {
	g := api.Group("/auth")
	g.POST("/register", h.Register, limit)
	g.POST("/login", h.Login, limit)
	g.POST("/refresh", h.Refresh, limit)
	g.POST("/logout", h.Logout)

	me := api.Group("/me", middleware.RequireUser)
	me.GET("", h.Me)
	me.PATCH("", h.UpdateMe)
	me.PUT("/password", h.ChangePassword)
}

// RegisterAdmin registers user management routes for admins.
func RegisterAdmin(api *echo.Group, h *handler.AdminHandler) {
	g := api.Group("/admin", middleware.RequireAdmin)
	g.GET("/users", h.ListUsers)
	g.PATCH("/users/:userId/role", h.SetRole)
	g.DELETE("/users/:userId", h.DeleteUser)
}

// RegisterMaps registers the owner-facing map, floor and pin routes.
func RegisterMaps(api *echo.Group, h *handler.MapHandler, maxUpload int64) {
	g := api.Group("/maps", middleware.RequireUser)
	g.POST("", h.CreateMap)
	g.GET("", h.ListMaps)
	g.GET("/:mapId", h.GetMap)
	g.PATCH("/:mapId", h.UpdateMap)
	g.DELETE("/:mapId", h.DeleteMap)

	g.GET("/:mapId/floors", h.ListFloors)
	g.POST("/:mapId/floors", h.CreateFloor)
	g.PATCH("/:mapId/floors/:floorId", h.UpdateFloor)
	g.DELETE("/:mapId/floors/:floorId", h.DeleteFloor)
	g.POST("/:mapId/floors/:floorId/image", h.UploadFloorImage,
		echomw.BodyLimit(strconv.FormatInt(maxUpload+multipartOverhead, 10)))
	g.DELETE("/:mapId/floors/:floorId/image", h.DeleteFloorImage)

	g.GET("/:mapId/floors/:floorId/pins", h.ListPins)
	g.POST("/:mapId/floors/:floorId/pins", h.CreatePin)
	g.PATCH("/:mapId/floors/:floorId/pins/:pinId", h.UpdatePin)
	g.DELETE("/:mapId/floors/:floorId/pins/:pinId", h.DeletePin)
}

// RegisterPublic registers the unauthenticated viewer and public editor
// routes.  The viewer is served from the response cache; writes are
// rate limited.
func RegisterPublic(api *echo.Group, h *handler.PublicHandler, limit, cache echo.MiddlewareFunc) {
	g := api.Group("/public")
	g.GET("/maps/:mapId", h.ViewMap, cache)
	g.POST("/maps/:mapId/editors", h.RegisterEditor, limit)
	g.POST("/editors/verify", h.VerifyEditor, limit)
	g.POST("/maps/:mapId/floors/:floorId/pins", h.CreatePin, limit)
	g.PATCH("/maps/:mapId/floors/:floorId/pins/:pinId", h.UpdatePin, limit)
	g.DELETE("/maps/:mapId/floors/:floorId/pins/:pinId", h.DeletePin, limit)
}
