package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestAttendanceSubmitWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAttendanceHandler(nil, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/attendance", strings.NewReader(`{}`))

	handler.Submit(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionReportRejectsBadDate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAttendanceHandler(nil, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/attendance/sessions/sched-1?date=03-03-2025", nil)
	c.Params = gin.Params{{Key: "id", Value: "sched-1"}}

	handler.SessionReport(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "YYYY-MM-DD")
}

func TestTeacherSessionStatusWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewTeacherHandler(nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/teachers/me/session", nil)

	handler.SessionStatus(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
