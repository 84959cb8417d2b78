package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/darziflow/console/internal/infrastructure/apiclient"
)

const readinessTimeout = 3 * time.Second

// HealthHandler handles GET /health, the liveness probe.
// Returns 200 immediately; confirms the process is alive.
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

func (h *HealthHandler) Liveness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// HealthDependenciesHandler handles GET /health/ready, the readiness probe.
// It checks the DarziFlow backend and, when configured, MongoDB and Redis.
type HealthDependenciesHandler struct {
	mongo      *mongo.Database
	redis      redis.UniversalClient
	backendURL string
	httpClient *http.Client
}

// NewHealthDependenciesHandler builds the readiness probe. db and rdb may be
// nil when the console runs without them.
func NewHealthDependenciesHandler(db *mongo.Database, rdb redis.UniversalClient, backendURL string, hc *http.Client) *HealthDependenciesHandler {
	return &HealthDependenciesHandler{
		mongo:      db,
		redis:      rdb,
		backendURL: backendURL,
		httpClient: hc,
	}
}

type dependencyStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type readinessResponse struct {
	Status       string                      `json:"status"`
	Dependencies map[string]dependencyStatus `json:"dependencies"`
}

// Readiness reports per-dependency status.
//
// @Summary      Readiness probe
// @Tags         health
// @Produce      json
// @Success      200  {object}  readinessResponse
// @Failure      503  {object}  readinessResponse
// @Router       /health/ready [get]
func (h *HealthDependenciesHandler) Readiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readinessTimeout)
	defer cancel()

	deps := make(map[string]dependencyStatus)
	healthy := true
	check := func(name string, err error) {
		if err != nil {
			deps[name] = dependencyStatus{Status: "unhealthy", Error: err.Error()}
			healthy = false
			return
		}
		deps[name] = dependencyStatus{Status: "ok"}
	}

	// --- DarziFlow backend ---
	check("backend", apiclient.Probe(ctx, h.backendURL, h.httpClient))

	// --- MongoDB ping ---
	if h.mongo != nil {
		err := h.mongo.Client().Ping(ctx, nil)
		if err == nil {
			err = h.mongo.RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err()
		}
		check("mongodb", err)
	}

	// --- Redis ping ---
	if h.redis != nil {
		check("redis", h.redis.Ping(ctx).Err())
	}

	status := "ok"
	httpStatus := http.StatusOK
	if !healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	return c.JSON(httpStatus, readinessResponse{
		Status:       status,
		Dependencies: deps,
	})
}
