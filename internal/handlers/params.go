package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/taskflow/backend/pkg/response"
)

// parseID reads a positive numeric path parameter, answering 400 when it is malformed.
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		response.BadRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// parseDate reads an optional YYYY-MM-DD value. Empty input yields nil.
func parseDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation("2006-01-02", value, time.Local)
	if err != nil {
		return nil, response.NewBadRequest("invalid date, expected YYYY-MM-DD: " + value)
	}
	return &t, nil
}
