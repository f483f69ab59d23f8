package api

import (
	"errors"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"

	"github.com/kurihiro0119/github-portfolio/internal/aggregator"
	apperrors "github.com/kurihiro0119/github-portfolio/internal/errors"
)

// GitHub logins: alphanumerics and single hyphens, at most 39 characters
var loginPattern = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9]|-[A-Za-z0-9]){0,38}$`)

// Handler handles API requests
type Handler struct {
	aggregator aggregator.Aggregator
}

// NewHandler creates a new API handler
func NewHandler(agg aggregator.Aggregator) *Handler {
	return &Handler{
		aggregator: agg,
	}
}

// GetProjects returns the stored projects partitioned by the selected technologies
// GET /api/v1/users/:user/projects?tech=Go&tech=Vue
func (h *Handler) GetProjects(c *gin.Context) {
	user, ok := userParam(c)
	if !ok {
		return
	}

	view, err := h.aggregator.GetView(c.Request.Context(), user, c.QueryArray("tech"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": view,
	})
}

// GetTechnologies returns every technology with its project count
// GET /api/v1/users/:user/technologies
func (h *Handler) GetTechnologies(c *gin.Context) {
	user, ok := userParam(c)
	if !ok {
		return
	}

	techs, err := h.aggregator.GetTechnologies(c.Request.Context(), user)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": techs,
	})
}

// GetLatestBuild returns the most recent build record
// GET /api/v1/users/:user/builds/latest
func (h *Handler) GetLatestBuild(c *gin.Context) {
	user, ok := userParam(c)
	if !ok {
		return
	}

	build, err := h.aggregator.GetLatestBuild(c.Request.Context(), user)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": build,
	})
}

// HealthCheck returns the health status of the API
// GET /health
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

func userParam(c *gin.Context) (string, bool) {
	user := c.Param("user")
	if !loginPattern.MatchString(user) {
		respondError(c, apperrors.NewBadRequestError("invalid GitHub user: "+user))
		return "", false
	}
	return user, true
}

// respondError sends an error response
func respondError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.Code.HTTPStatus(), gin.H{
			"error": gin.H{
				"code":    appErr.Code,
				"message": appErr.Message,
			},
		})
		return
	}

	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, internalErrorBody)
}

var internalErrorBody = gin.H{
	"error": gin.H{
		"code":    apperrors.ErrCodeInternal,
		"message": "internal server error",
	},
}
