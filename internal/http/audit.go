package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/mrlokans/adminauth/internal/audit"
	dbaudit "github.com/mrlokans/adminauth/internal/database/audit"
	"github.com/mrlokans/adminauth/internal/entities"
	"github.com/mrlokans/adminauth/internal/session"
)

type AttemptsController struct {
	auditService *audit.Service
	sessions     *session.Manager
	log          zerolog.Logger
}

func NewAttemptsController(auditService *audit.Service, sessions *session.Manager, logger zerolog.Logger) *AttemptsController {
	return &AttemptsController{
		auditService: auditService,
		sessions:     sessions,
		log:          logger,
	}
}

// AttemptsResponse is a page of auth attempts plus outcome totals.
type AttemptsResponse struct {
	PaginatedResponse
	Summary []dbaudit.OutcomeCount `json:"summary"`
	Window  string                 `json:"window"`
}

// GetAttempts returns recorded auth attempts for signed-in admins.
// GET /api/auth/attempts?mode=&status=&type=&page=&limit=&window=
func (ac *AttemptsController) GetAttempts(c *gin.Context) {
	if _, ok := ac.sessions.For(c.Request.Context()).Token(); !ok {
		respondUnauthorized(c)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "25"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 25
	}
	offset := (page - 1) * limit

	window, err := time.ParseDuration(c.DefaultQuery("window", "24h"))
	if err != nil || window <= 0 {
		respondBadRequest(c, "invalid window")
		return
	}

	filter := dbaudit.Filter{
		EventType: entities.AuditEventType(c.DefaultQuery("type", string(entities.AuditEventAuthSubmit))),
		Mode:      c.Query("mode"),
		Status:    entities.AuditStatus(c.Query("status")),
	}

	events, total, err := ac.auditService.GetEvents(filter, limit, offset)
	if err != nil {
		respondInternalError(c, ac.log, err, "load auth attempts")
		return
	}
	summary, err := ac.auditService.Summary(window)
	if err != nil {
		respondInternalError(c, ac.log, err, "summarize auth attempts")
		return
	}

	totalPages := (int(total) + limit - 1) / limit
	if totalPages < 1 {
		totalPages = 1
	}

	c.JSON(http.StatusOK, AttemptsResponse{
		PaginatedResponse: PaginatedResponse{
			Data:       events,
			Total:      total,
			Limit:      limit,
			Offset:     offset,
			HasMore:    int64(offset+len(events)) < total,
			TotalPages: totalPages,
		},
		Summary: summary,
		Window:  window.String(),
	})
}
