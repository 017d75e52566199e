package symptomcheck

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/medconnect/medconnect/internal/platform/middleware"
	"github.com/medconnect/medconnect/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// AssessRequest is the body of POST /assessments.
type AssessRequest struct {
	Symptoms []string `json:"symptoms"`
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// The knowledge base never changes while the process runs, so catalog
	// reads are safe to revalidate by ETag.
	catalog := api.Group("", middleware.ETag(middleware.ETagConfig{MaxAge: 300}))
	catalog.GET("/symptoms", h.SearchSymptoms)
	catalog.GET("/conditions", h.ListConditions)
	catalog.GET("/conditions/:name", h.GetCondition)

	api.POST("/assessments", h.Assess)
}

func (h *Handler) SearchSymptoms(c echo.Context) error {
	p := pagination.FromContext(c)
	labels := h.svc.SearchSymptoms(c.QueryParam("q"))
	return c.JSON(http.StatusOK, pagination.Page(labels, p))
}

func (h *Handler) ListConditions(c echo.Context) error {
	p := pagination.FromContext(c)
	return c.JSON(http.StatusOK, pagination.Page(h.svc.ListConditions(), p))
}

func (h *Handler) GetCondition(c echo.Context) error {
	name := c.Param("name")
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	cond, err := h.svc.GetCondition(name)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "condition not found")
	}
	return c.JSON(http.StatusOK, cond)
}

func (h *Handler) Assess(c echo.Context) error {
	var req AssessRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	assessment, err := h.svc.Assess(c.Request().Context(), req.Symptoms)
	if err != nil {
		var unknown *UnknownSymptomsError
		switch {
		case errors.Is(err, ErrNoSelectedSymptoms):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.As(err, &unknown):
			return echo.NewHTTPError(http.StatusUnprocessableEntity, map[string]interface{}{
				"message": "unknown symptoms",
				"unknown": unknown.Labels,
			})
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusOK, assessment)
}
