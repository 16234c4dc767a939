package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`    // machine-readable error code
	Details any    `json:"details,omitempty"` // additional context
}

// PaginatedResponse wraps paginated data with metadata.
type PaginatedResponse struct {
	Data       any   `json:"data"`
	Total      int64 `json:"total"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
	HasMore    bool  `json:"has_more"`
	TotalPages int   `json:"total_pages,omitempty"`
}

// respondBadRequest sends a 400 Bad Request response.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

// respondUnauthorized sends a 401 Unauthorized response.
func respondUnauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
}

// respondInternalError logs the error and sends a 500 Internal Server Error
// response. The actual error is not exposed to the client.
func respondInternalError(c *gin.Context, log zerolog.Logger, err error, context string) {
	log.Error().Err(err).Str("context", context).Msg("internal error")
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}
