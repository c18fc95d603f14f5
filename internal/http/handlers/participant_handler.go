// Participant HTTP handlers.
//
//   - GET /channels/{channel_id}/participants            (list, paginated, ETag support)
//   - GET /channels/{channel_id}/participants/{user_id}  (one row)
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-tgstats/internal/domain"
	"github.com/tbourn/go-tgstats/internal/utils"
)

// ListParticipantsResponse wraps a page of roster rows and pagination information.
type ListParticipantsResponse struct {
	Participants []domain.Participant `json:"participants"`
	Pagination   Pagination           `json:"pagination"`
}

// ListParticipants godoc
// @ID          listParticipants
// @Summary     List a channel roster (paginated)
// @Description Returns a page of the channel roster ordered by user id. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Participants
// @Produce     json
//
// @Param       channel_id     path    int     true  "Channel ID"                   example(-1001234567890)
// @Param       state          query   string  false "Filter by state"              Enums(active, departed)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"               minimum(1) maximum(500) default(50)
//
// @Success     200  {object} handlers.ListParticipantsResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Channel not configured"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /channels/{channel_id}/participants [get]
func (h *Handlers) ListParticipants(c *gin.Context) {
	ctx := c.Request.Context()
	channelID, okID := channelParam(c)
	if !okID {
		return
	}
	state := domain.ParticipantState(c.Query("state"))
	switch state {
	case "", domain.StateActive, domain.StateDeparted:
	default:
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "state must be active or departed")
		return
	}
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	count, maxTS, err := h.participants.Stats(ctx, channelID, state)
	if err == nil {
		var ts int64
		if maxTS != nil {
			ts = maxTS.UnixNano()
		}
		etag := fmt.Sprintf(`W/"participants:%d:%s:%d:%d:%d:%d"`, channelID, state, page, pageSize, count, ts)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	items, total, err := h.participants.ListPage(ctx, channelID, state, page, pageSize)
	if err != nil {
		failService(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, ListParticipantsResponse{
		Participants: items,
		Pagination:   newPagination(page, pageSize, total),
	})
}

// GetParticipant godoc
// @ID          getParticipant
// @Summary     Get one roster row
// @Tags        Participants
// @Produce     json
//
// @Param       channel_id  path  int  true  "Channel ID"
// @Param       user_id     path  int  true  "User ID"
//
// @Success     200  {object} domain.Participant
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Participant not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /channels/{channel_id}/participants/{user_id} [get]
func (h *Handlers) GetParticipant(c *gin.Context) {
	channelID, okID := channelParam(c)
	if !okID {
		return
	}
	userID, okUser := utils.ParseID(c.Param("user_id"), false)
	if !okUser {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "user_id must be a positive integer")
		return
	}

	p, err := h.participants.Get(c.Request.Context(), channelID, userID)
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, p)
}
