package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CheckSchema godoc
// @ID          checkSchema
// @Summary     Compare the live database schema with the expected one
// @Description Read-only. 200 when compatible, 409 with the same report when tables or columns are missing.
// @Tags        Schema
// @Produce     json
//
// @Success     200  {object} schema.Report
// @Failure     409  {object} schema.Report "Schema is missing tables or columns"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Failure     503  {object} handlers.ErrorResponse "No schema checker wired"
// @Router      /schema [get]
func (h *Handlers) CheckSchema(c *gin.Context) {
	if h.schema == nil {
		fail(c, http.StatusServiceUnavailable, ErrCodeUnavailable, "schema check not configured")
		return
	}
	rep, err := h.schema.Check(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeSchemaCheckFailed, err.Error())
		return
	}
	if !rep.Compatible() {
		ok(c, http.StatusConflict, rep)
		return
	}
	ok(c, http.StatusOK, rep)
}
