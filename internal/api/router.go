package api

import (
	"net/http"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	_ "github.com/darziflow/console/docs"
	"github.com/darziflow/console/internal/api/handler"
	"github.com/darziflow/console/internal/api/middleware"
	"github.com/darziflow/console/internal/core/domain"
	"github.com/darziflow/console/internal/core/guard"
	"github.com/darziflow/console/internal/core/service"
	"github.com/darziflow/console/internal/infrastructure/http/handlers"
	"github.com/darziflow/console/internal/infrastructure/sessions"
)

var (
	staff     = []domain.Role{domain.RoleAdmin, domain.RoleModerator}
	adminOnly = []domain.Role{domain.RoleAdmin}
)

// Guarded views and the roles allowed on each.
var (
	RouteDashboard   = guard.Route{Path: "/dashboard", AllowedRoles: staff}
	RouteOrders      = guard.Route{Path: "/orders", AllowedRoles: staff}
	RouteOperations  = guard.Route{Path: "/operations", AllowedRoles: staff}
	RouteQC          = guard.Route{Path: "/qc", AllowedRoles: staff}
	RouteProfile     = guard.Route{Path: guard.ProfilePath, AllowedRoles: staff}
	RouteDepartments = guard.Route{Path: "/departments", AllowedRoles: adminOnly}
	RouteUsers       = guard.Route{Path: "/users", AllowedRoles: adminOnly}
)

// Deps is everything the router wires into handlers.
type Deps struct {
	Registry   *sessions.Registry
	Cookie     *middleware.SessionCookie
	Renderer   echo.Renderer
	Audit      *service.AuditService // nil when the audit trail is off
	Mongo      *mongo.Database       // nil without MONGO_URI
	Redis      redis.UniversalClient // nil unless redis is in use
	BackendURL string
	HTTPClient *http.Client
	Log        zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = d.Renderer
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// HTTP metrics live in a per-router registry; /metrics merges it with
	// the default one.
	httpMetrics := prometheus.NewRegistry()

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "darziflow_console",
		Registerer: httpMetrics,
	}))

	// --- Operational endpoints (no console session) ---
	healthHandler := handlers.NewHealthHandler()
	healthDepsHandler := handlers.NewHealthDependenciesHandler(d.Mongo, d.Redis, d.BackendURL, d.HTTPClient)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
		Gatherer: prometheus.Gatherers{prometheus.DefaultGatherer, httpMetrics},
	}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Console ---
	interstitial := service.NewInterstitial()
	auth := handler.NewAuthHandler(interstitial, d.Audit, RouteDashboard, d.Log)
	views := handler.NewProductionHandler(interstitial, d.Log)
	guarded := func(r guard.Route) echo.MiddlewareFunc { return middleware.Guard(r, d.Log) }

	console := e.Group("", middleware.ConsoleSession(d.Cookie, d.Registry, d.Log))

	console.GET(guard.EntryPath, auth.LoginPage)
	console.POST("/login", auth.Login)
	console.POST("/logout", auth.Logout)
	console.POST("/interstitial/ack", auth.Acknowledge, guarded(RouteProfile))

	console.GET("/api/session", auth.Session)
	console.POST("/api/login", auth.APILogin)
	console.POST("/api/logout", auth.APILogout)
	console.GET("/api/session/events", auth.Events)

	console.GET(RouteDashboard.Path, views.Dashboard, guarded(RouteDashboard))

	console.GET(RouteDepartments.Path, views.Departments, guarded(RouteDepartments))
	console.POST(RouteDepartments.Path, views.CreateDepartment, guarded(RouteDepartments))
	console.POST(RouteDepartments.Path+"/:id/delete", views.DeleteDepartment, guarded(RouteDepartments))

	console.GET(RouteOperations.Path, views.Operations, guarded(RouteOperations))
	console.POST(RouteOperations.Path, views.CreateOperation, guarded(RouteOperations))

	console.GET(RouteQC.Path, views.Checkpoints, guarded(RouteQC))
	console.POST(RouteQC.Path, views.CreateCheckpoint, guarded(RouteQC))

	console.GET(RouteOrders.Path, views.Orders, guarded(RouteOrders))
	console.POST(RouteOrders.Path, views.CreateOrder, guarded(RouteOrders))
	console.GET(RouteOrders.Path+"/:id", views.Order, guarded(RouteOrders))
	console.POST(RouteOrders.Path+"/:id/status", views.UpdateOrderStatus, guarded(RouteOrders))

	console.GET(RouteUsers.Path, views.Users, guarded(RouteUsers))
	console.POST(RouteUsers.Path, views.CreateUser, guarded(RouteUsers))
	console.POST(RouteUsers.Path+"/:id/delete", views.DeleteUser, guarded(RouteUsers))

	console.GET(RouteProfile.Path, views.Profile, guarded(RouteProfile))
	console.POST(RouteProfile.Path+"/password", views.ChangePassword, guarded(RouteProfile))

	return e
}

// requestLogger writes one zerolog line per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	})
}
