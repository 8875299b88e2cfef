package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/gabay/core/internal/domain/entities"
	"github.com/gabay/core/internal/infrastructure/logger"
	"github.com/gabay/core/internal/ports"
)

// maxImportBytes caps the body of a legacy import upload
const maxImportBytes = 8 << 20

// CandidateHandler handles candidate-related requests
type CandidateHandler struct {
	candidateService ports.CandidateService
	logger           *logger.Logger
}

// NewCandidateHandler creates a new candidate handler
func NewCandidateHandler(candidateService ports.CandidateService, logger *logger.Logger) *CandidateHandler {
	return &CandidateHandler{
		candidateService: candidateService,
		logger:           logger,
	}
}

// ListCandidates handles listing candidates with optional filters
func (h *CandidateHandler) ListCandidates(c echo.Context) error {
	filter := ports.CandidateFilter{
		Position: c.QueryParam("position"),
		Party:    c.QueryParam("party"),
		Region:   c.QueryParam("region"),
	}

	candidates, err := h.candidateService.ListCandidates(c.Request().Context(), filter)
	if err != nil {
		h.logger.Errorw("List candidates failed", "error", err)
		return errorToHTTP(err)
	}

	return c.JSON(http.StatusOK, ListResponse[*entities.Candidate]{Data: candidates, Total: len(candidates)})
}

// SearchCandidates handles free-text search
func (h *CandidateHandler) SearchCandidates(c echo.Context) error {
	candidates, err := h.candidateService.SearchCandidates(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return errorToHTTP(err)
	}

	return c.JSON(http.StatusOK, ListResponse[*entities.Candidate]{Data: candidates, Total: len(candidates)})
}

// GetCandidate handles getting a candidate by ID
func (h *CandidateHandler) GetCandidate(c echo.Context) error {
	id, err := parseCandidateID(c)
	if err != nil {
		return err
	}

	candidate, err := h.candidateService.GetCandidate(c.Request().Context(), id)
	if err != nil {
		return errorToHTTP(err)
	}

	return c.JSON(http.StatusOK, candidate)
}

// CompareCandidates handles comparing two or more candidates
func (h *CandidateHandler) CompareCandidates(c echo.Context) error {
	raw := c.QueryParams()["id"]
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid candidate ID")
		}
		ids = append(ids, id)
	}

	comparison, err := h.candidateService.CompareCandidates(c.Request().Context(), ids...)
	if err != nil {
		return errorToHTTP(err)
	}

	return c.JSON(http.StatusOK, comparison)
}

// CreateCandidate handles candidate creation
func (h *CandidateHandler) CreateCandidate(c echo.Context) error {
	var req ports.CandidateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	candidate, err := h.candidateService.CreateCandidate(c.Request().Context(), req)
	if err != nil {
		h.logger.Warnw("Create candidate failed", "error", err)
		return errorToHTTP(err)
	}

	return c.JSON(http.StatusCreated, candidate)
}

// UpdateCandidate handles replacing a candidate profile
func (h *CandidateHandler) UpdateCandidate(c echo.Context) error {
	id, err := parseCandidateID(c)
	if err != nil {
		return err
	}

	var req ports.CandidateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	candidate, err := h.candidateService.UpdateCandidate(c.Request().Context(), id, req)
	if err != nil {
		h.logger.Warnw("Update candidate failed", "error", err, "candidate_id", id)
		return errorToHTTP(err)
	}

	return c.JSON(http.StatusOK, candidate)
}

// DeleteCandidate handles candidate deletion
func (h *CandidateHandler) DeleteCandidate(c echo.Context) error {
	id, err := parseCandidateID(c)
	if err != nil {
		return err
	}

	if err := h.candidateService.DeleteCandidate(c.Request().Context(), id); err != nil {
		h.logger.Warnw("Delete candidate failed", "error", err, "candidate_id", id)
		return errorToHTTP(err)
	}

	return c.NoContent(http.StatusNoContent)
}

// ReloadCandidates re-reads the data file
func (h *CandidateHandler) ReloadCandidates(c echo.Context) error {
	stats, err := h.candidateService.Reload(c.Request().Context())
	if err != nil {
		h.logger.Errorw("Reload candidates failed", "error", err)
		return errorToHTTP(err)
	}

	return c.JSON(http.StatusOK, stats)
}

// ImportCandidates adds the records of a delimited export sent as the request body
func (h *CandidateHandler) ImportCandidates(c echo.Context) error {
	data, err := io.ReadAll(http.MaxBytesReader(c.Response(), c.Request().Body, maxImportBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return echo.NewHTTPError(http.StatusRequestEntityTooLarge,
				fmt.Sprintf("Import body exceeds %d bytes", maxImportBytes))
		}
		return echo.NewHTTPError(http.StatusBadRequest, "Failed to read request body")
	}

	report, err := h.candidateService.ImportLegacy(c.Request().Context(), data)
	if err != nil {
		h.logger.Errorw("Import candidates failed", "error", err)
		return errorToHTTP(err)
	}

	return c.JSON(http.StatusOK, report)
}

// ExportCandidates returns the collection in the delimited grammar
func (h *CandidateHandler) ExportCandidates(c echo.Context) error {
	data, err := h.candidateService.ExportLegacy(c.Request().Context())
	if err != nil {
		h.logger.Errorw("Export candidates failed", "error", err)
		return errorToHTTP(err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="candidates.txt"`)
	return c.Blob(http.StatusOK, echo.MIMETextPlainCharsetUTF8, data)
}

func parseCandidateID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid candidate ID")
	}
	return id, nil
}
