// Harvest HTTP handlers.
//
//   - GET  /channels/{channel_id}/runs     (list, paginated)
//   - GET  /runs/{id}                      (one run with its probe report)
//   - POST /channels/{channel_id}/harvest  (run now, synchronously)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-tgstats/internal/domain"
	"github.com/tbourn/go-tgstats/internal/services"
)

// ListRunsResponse wraps a page of runs and pagination information.
type ListRunsResponse struct {
	Runs       []domain.HarvestRun `json:"runs"`
	Pagination Pagination          `json:"pagination"`
}

// ListRuns godoc
// @ID          listRuns
// @Summary     List harvest runs of a channel (paginated, most recent first)
// @Tags        Harvest
// @Produce     json
//
// @Param       channel_id  path   int  true   "Channel ID"
// @Param       page        query  int  false  "Page number"     minimum(1) default(1)
// @Param       page_size   query  int  false  "Items per page"  minimum(1) maximum(500) default(50)
//
// @Success     200  {object} handlers.ListRunsResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Channel not configured"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /channels/{channel_id}/runs [get]
func (h *Handlers) ListRuns(c *gin.Context) {
	channelID, okID := channelParam(c)
	if !okID {
		return
	}
	page, pageSize := clampPagination(c)

	items, total, err := h.runs.ListPage(c.Request.Context(), channelID, page, pageSize)
	if err != nil {
		failService(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, ListRunsResponse{Runs: items, Pagination: newPagination(page, pageSize, total)})
}

// GetRun godoc
// @ID          getRun
// @Summary     Get a harvest run with its per-key probe report
// @Tags        Harvest
// @Produce     json
//
// @Param       id  path  string  true  "Run ID (UUID)"  format(uuid)
//
// @Success     200  {object} services.RunDetail
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Run not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /runs/{id} [get]
func (h *Handlers) GetRun(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "run id must be a UUID")
		return
	}
	d, err := h.runs.Get(c.Request.Context(), id)
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, d)
}

// TriggerHarvest godoc
// @ID          triggerHarvest
// @Summary     Harvest a channel now
// @Description Runs a crawl and departure sweep synchronously and returns the run record. A run that finished with status failed is still a 200.
// @Tags        Harvest
// @Produce     json
//
// @Param       channel_id  path  int  true  "Channel ID"
//
// @Success     200  {object} domain.HarvestRun
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Channel not configured"
// @Failure     409  {object} handlers.ErrorResponse "Harvest already in progress"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /channels/{channel_id}/harvest [post]
func (h *Handlers) TriggerHarvest(c *gin.Context) {
	channelID, okID := channelParam(c)
	if !okID {
		return
	}
	run, err := h.harvester.Run(c.Request.Context(), channelID, services.SourceAPI)
	if err != nil {
		failService(c, err, ErrCodeHarvestFailed)
		return
	}
	ok(c, http.StatusOK, run)
}
