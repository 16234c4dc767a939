package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/adminauth/internal/settingsstore"
)

// Pinger checks a backing store.
type Pinger interface {
	Ping() error
}

type HealthResponse struct {
	Status  string                     `json:"status"`
	Time    string                     `json:"time"`
	Version string                     `json:"version,omitempty"`
	Checks  map[string]string          `json:"checks"`
	Admin   *settingsstore.AdminStatus `json:"admin,omitempty"`
}

type HealthController struct {
	db       Pinger
	identity IdentityChecker
	admin    AdminStatusReader
	version  string
	timeout  time.Duration
}

func NewHealthController(db Pinger, identity IdentityChecker, admin AdminStatusReader, version string) *HealthController {
	return &HealthController{
		db:       db,
		identity: identity,
		admin:    admin,
		version:  version,
		timeout:  3 * time.Second,
	}
}

// Status reports database and identity service reachability. Only the
// database decides overall health; an unreachable identity service degrades
// the auth pages but the server keeps serving.
func (h *HealthController) Status(c *gin.Context) {
	checks := make(map[string]string)
	status := "healthy"

	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			checks["database"] = "error: " + err.Error()
			status = "unhealthy"
		} else {
			checks["database"] = "ok"
		}
	} else {
		checks["database"] = "not configured"
	}

	if h.identity != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
		defer cancel()
		if _, err := h.identity.Init(ctx); err != nil {
			checks["identity"] = "error: " + err.Error()
			if status == "healthy" {
				status = "degraded"
			}
		} else {
			checks["identity"] = "ok"
		}
	} else {
		checks["identity"] = "not configured"
	}

	health := HealthResponse{
		Status:  status,
		Time:    time.Now().Format(time.RFC3339),
		Version: h.version,
		Checks:  checks,
	}
	if h.admin != nil {
		adminStatus := h.admin.Status()
		health.Admin = &adminStatus
	}

	statusCode := http.StatusOK
	if status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.IndentedJSON(statusCode, health)
}
