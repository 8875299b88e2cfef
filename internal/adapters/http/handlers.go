package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gabay/core/internal/application/services"
	"github.com/gabay/core/internal/domain/entities"
	"github.com/gabay/core/internal/infrastructure/logger"
	"github.com/gabay/core/internal/ports"
)

// Response types

type MessageResponse struct {
	Message string `json:"message"`
}

type ValidationErrorResponse struct {
	Message string `json:"message"`
	Field   string `json:"field"`
}

type ListResponse[T any] struct {
	Data  []T `json:"data"`
	Total int `json:"total"`
}

type SocialIssuesResponse struct {
	Issues   []entities.SocialIssue `json:"issues"`
	Stances  []entities.Stance      `json:"stances"`
	Fallback entities.Stance        `json:"fallback"`
}

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	authService ports.AuthService
	logger      *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService ports.AuthService, logger *logger.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// Login handles admin login
func (h *AuthHandler) Login(c echo.Context) error {
	var req ports.LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	response, err := h.authService.Login(c.Request().Context(), req)
	if err != nil {
		h.logger.LogSecurityEvent("login_failed", req.Username, c.RealIP(), map[string]interface{}{
			"error": err.Error(),
		})
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
	}

	return c.JSON(http.StatusOK, response)
}

// CatalogHandler serves the fixed social issue catalog
type CatalogHandler struct{}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler() *CatalogHandler {
	return &CatalogHandler{}
}

// ListSocialIssues returns the issues and stance labels in display order
func (h *CatalogHandler) ListSocialIssues(c echo.Context) error {
	return c.JSON(http.StatusOK, SocialIssuesResponse{
		Issues:   entities.SocialIssues,
		Stances:  entities.Stances,
		Fallback: entities.StanceNoData,
	})
}

// errorToHTTP maps domain and service errors onto HTTP errors
func errorToHTTP(err error) error {
	var verr *entities.ValidationError
	switch {
	case errors.As(err, &verr):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, ValidationErrorResponse{
			Message: verr.Message,
			Field:   verr.Field,
		})
	case errors.Is(err, entities.ErrCandidateNotFound), errors.Is(err, entities.ErrIndexOutOfRange):
		return echo.NewHTTPError(http.StatusNotFound, "Candidate not found")
	case errors.Is(err, entities.ErrDuplicateID):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrSearchQueryTooShort):
		return echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("Search query must be at least %d characters", services.MinSearchQueryLength))
	case errors.Is(err, services.ErrTooFewToCompare):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error").SetInternal(err)
	}
}
