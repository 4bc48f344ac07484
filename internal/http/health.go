package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mrlokans/kobosync/internal/database"
)

const probeTimeout = 2 * time.Second

// HealthResponse reports service liveness and the state of its dependencies.
type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
}

// HealthProbe is one named dependency check. A nil error means "ok".
type HealthProbe struct {
	Name  string
	Check func(ctx context.Context) error
}

type HealthController struct {
	probes  []HealthProbe
	version string
}

// NewHealthController always probes the link store; extra probes are
// reported next to it.
func NewHealthController(db *database.Database, version string, extra ...HealthProbe) *HealthController {
	probes := append([]HealthProbe{databaseProbe(db)}, extra...)
	return &HealthController{probes: probes, version: version}
}

// errNotConfigured marks a probe whose dependency is absent. It does not
// make the service unhealthy.
type errNotConfigured struct{}

func (errNotConfigured) Error() string { return "not configured" }

func databaseProbe(db *database.Database) HealthProbe {
	return HealthProbe{
		Name: "database",
		Check: func(ctx context.Context) error {
			if db == nil {
				return errNotConfigured{}
			}
			sqlDB, err := db.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
}

// Status runs every probe.
// GET /health
func (h *HealthController) Status(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), probeTimeout)
	defer cancel()

	checks := make(map[string]string, len(h.probes))
	healthy := true
	for _, probe := range h.probes {
		err := probe.Check(ctx)
		switch err.(type) {
		case nil:
			checks[probe.Name] = "ok"
		case errNotConfigured:
			checks[probe.Name] = err.Error()
		default:
			checks[probe.Name] = "error: " + err.Error()
			healthy = false
		}
	}

	health := HealthResponse{
		Status:  "healthy",
		Time:    time.Now().Format(time.RFC3339),
		Version: h.version,
		Checks:  checks,
	}

	statusCode := http.StatusOK
	if !healthy {
		health.Status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}

	c.IndentedJSON(statusCode, health)
}
