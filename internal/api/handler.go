package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/guttosm/eftpulse/internal/domain/dto"
	"github.com/guttosm/eftpulse/internal/domain/models"
	"github.com/guttosm/eftpulse/internal/middleware"
	"github.com/guttosm/eftpulse/internal/service"
)

// Handler provides HTTP handlers for the daily summary endpoints.
//
// Responsibilities:
//   - Validate path and query parameters
//   - Call the summary service with the request context
//   - Translate results into response DTOs
type Handler struct {
	svc service.SummaryService
}

// NewHandler constructs a new Handler instance.
func NewHandler(svc service.SummaryService) *Handler {
	return &Handler{svc: svc}
}

// GetSummaries handles GET /api/v1/summaries/:entity requests.
//
// Path Parameters:
//   - entity (string, required): "bank" or "customer".
//
// Query Parameters:
//   - date (string, optional): Summary date in YYYY-MM-DD format. Defaults to yesterday (UTC).
//
// GetSummaries godoc
// @Summary      List daily summaries
// @Description  Returns the loaded daily totals of one entity stream for a date
// @Tags         summaries
// @Produce      json
// @Param        entity  path      string  true   "Entity stream" Enums(bank, customer)
// @Param        date    query     string  false  "Date in YYYY-MM-DD" example(2025-01-01)
// @Success      200     {object}  dto.SummaryResponse  "Success"
// @Failure      400     {object}  dto.ErrorResponse    "Bad Request"
// @Failure      500     {object}  dto.ErrorResponse    "Internal Error"
// @Router       /api/v1/summaries/{entity} [get]
func (h *Handler) GetSummaries(c *gin.Context) {
	// ─── Validate "entity" param ──────────────────────────────
	entity, err := models.ParseEntity(c.Param("entity"))
	if err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, "entity must be bank or customer", err)
		return
	}

	// ─── Parse optional "date" param ──────────────────────────
	date := strings.TrimSpace(c.Query("date"))
	if date == "" {
		date = time.Now().UTC().AddDate(0, 0, -1).Format(models.DateLayout)
	}

	// ─── Query service (with request context) ─────────────────
	rows, err := h.svc.ListSummaries(c.Request.Context(), entity, date)
	if err != nil {
		if errors.Is(err, service.ErrInvalidDate) {
			middleware.AbortWithError(c, http.StatusBadRequest, "invalid date format, expected YYYY-MM-DD", err)
			return
		}
		middleware.AbortWithError(c, http.StatusInternalServerError, "failed to fetch summaries", err)
		return
	}

	c.JSON(http.StatusOK, dto.NewSummaryResponse(entity, date, rows))
}

// GetLatestRun handles GET /api/v1/runs/latest requests.
//
// GetLatestRun godoc
// @Summary      Latest run report
// @Description  Returns the outcome of the most recent pipeline run
// @Tags         runs
// @Produce      json
// @Success      200  {object}  dto.RunResponse    "Success"
// @Failure      404  {object}  dto.ErrorResponse  "Not Found"
// @Failure      500  {object}  dto.ErrorResponse  "Internal Error"
// @Router       /api/v1/runs/latest [get]
func (h *Handler) GetLatestRun(c *gin.Context) {
	report, err := h.svc.LatestRun(c.Request.Context())
	if err != nil {
		middleware.AbortWithError(c, http.StatusInternalServerError, "failed to fetch run report", err)
		return
	}
	if report == nil {
		middleware.AbortWithError(c, http.StatusNotFound, "no run recorded", nil)
		return
	}
	c.JSON(http.StatusOK, dto.NewRunResponse(*report))
}
