// Package handlers provides HTTP handler implementations for the ops API.
//
// Handlers are transport-thin: they validate path and query input, call the
// roster services, and translate results into HTTP responses (including
// conditional responses).
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-tgstats/internal/domain"
	"github.com/tbourn/go-tgstats/internal/schema"
	"github.com/tbourn/go-tgstats/internal/services"
	"github.com/tbourn/go-tgstats/internal/utils"
)

//
// Service contracts (context-aware)
//

// ParticipantService reads channel rosters.
type ParticipantService interface {
	// ListPage returns a page of a roster and the total count.
	ListPage(ctx context.Context, channelID int64, state domain.ParticipantState, page, pageSize int) ([]domain.Participant, int64, error)
	// Get returns one roster row.
	Get(ctx context.Context, channelID, userID int64) (*domain.Participant, error)
	// Stats returns the row count and latest updated_at, for ETags.
	Stats(ctx context.Context, channelID int64, state domain.ParticipantState) (int64, *time.Time, error)
}

// RunService reads harvest run records.
type RunService interface {
	ListPage(ctx context.Context, channelID int64, page, pageSize int) ([]domain.HarvestRun, int64, error)
	Get(ctx context.Context, id string) (*services.RunDetail, error)
}

// Harvester runs one harvest for a channel.
type Harvester interface {
	Run(ctx context.Context, channelID int64, source string) (*domain.HarvestRun, error)
}

// SchemaChecker diffs the live schema against the expected one.
type SchemaChecker interface {
	Check(ctx context.Context) (schema.Report, error)
}

//
// Handler wiring
//

// Handlers groups the ops API endpoints.
type Handlers struct {
	participants ParticipantService
	runs         RunService
	harvester    Harvester
	schema       SchemaChecker
}

// New constructs and returns a Handlers instance bound to the given services.
func New(p ParticipantService, r RunService, h Harvester, sc SchemaChecker) *Handlers {
	return &Handlers{participants: p, runs: r, harvester: h, schema: sc}
}

//
// DTOs
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

func newPagination(page, pageSize int, total int64) Pagination {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 50
		maxPageSize     = 500
	)
	page = max(utils.AtoiDefault(c.Query("page"), defaultPage), 1)
	pageSize = utils.Clamp(utils.AtoiDefault(c.Query("page_size"), defaultPageSize), 1, maxPageSize)
	return
}

// channelParam parses the :channel_id path parameter. Channel ids may be
// negative.
func channelParam(c *gin.Context) (int64, bool) {
	id, okID := utils.ParseID(c.Param("channel_id"), true)
	if !okID {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "channel_id must be a non-zero integer")
		return 0, false
	}
	return id, true
}

// failService maps service sentinel errors to responses. Anything else is a
// 500 with fallbackCode.
func failService(c *gin.Context, err error, fallbackCode string) {
	switch {
	case errors.Is(err, services.ErrUnknownChannel):
		fail(c, http.StatusNotFound, ErrCodeUnknownChannel, "channel is not configured")
	case errors.Is(err, services.ErrParticipantNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "participant not found")
	case errors.Is(err, services.ErrRunNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "harvest run not found")
	case errors.Is(err, services.ErrHarvestInProgress):
		fail(c, http.StatusConflict, ErrCodeHarvestInProgress, "a harvest is already running for this channel")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		fail(c, http.StatusServiceUnavailable, ErrCodeUnavailable, "request canceled")
	default:
		fail(c, http.StatusInternalServerError, fallbackCode, err.Error())
	}
}
