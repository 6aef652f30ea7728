package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edutrack/attendance-api/internal/models"
	"github.com/edutrack/attendance-api/internal/service"
	appErrors "github.com/edutrack/attendance-api/pkg/errors"
	"github.com/edutrack/attendance-api/pkg/response"
)

// AttendanceHandler exposes check-in and marking endpoints.
type AttendanceHandler struct {
	attendance *service.AttendanceService
	users      *service.UserService
	metrics    *service.MetricsService
}

// NewAttendanceHandler constructs AttendanceHandler.
func NewAttendanceHandler(attendance *service.AttendanceService, users *service.UserService, metrics *service.MetricsService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance, users: users, metrics: metrics}
}

// CheckIn godoc
// @Summary Student self check-in
// @Description Records the calling student as present for the session behind the code
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.CheckInRequest true "Check-in payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /attendance/check-in [post]
func (h *AttendanceHandler) CheckIn(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid check-in payload"))
		return
	}

	meta := models.CheckinMetadata{
		IPAddress:  c.ClientIP(),
		DeviceInfo: c.GetHeader("User-Agent"),
	}

	attendance, err := h.attendance.CheckIn(c.Request.Context(), claims.UserID, req, meta)
	if err != nil {
		switch appErrors.FromError(err).Code {
		case appErrors.ErrAlreadyRecorded.Code:
			h.metrics.RecordCheckin("duplicate")
		default:
			h.metrics.RecordCheckin("rejected")
		}
		response.Error(c, err)
		return
	}

	h.metrics.RecordCheckin("recorded")
	response.Created(c, attendance)
}

// BulkMark godoc
// @Summary Bulk mark attendance
// @Description Overwrites attendance for roster students in one transaction, non-roster entries are skipped and reported
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body []models.BulkMarkEntry true "Entries"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/attendance [put]
func (h *AttendanceHandler) BulkMark(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload struct {
		Entries []models.BulkMarkEntry `json:"entries" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid bulk mark payload"))
		return
	}

	facultyID, err := facultyIDFor(c, h.users, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.attendance.BulkMark(c.Request.Context(), *claims, facultyID, c.Param("id"), payload.Entries)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// SessionRoster godoc
// @Summary Session roster with statuses
// @Description Full roster for the session's course, defaulting to absent where no record exists
// @Tags Attendance
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/attendance [get]
func (h *AttendanceHandler) SessionRoster(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	facultyID, err := facultyIDFor(c, h.users, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	roster, err := h.attendance.SessionRoster(c.Request.Context(), *claims, facultyID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roster, nil)
}

// MyCourseRecords godoc
// @Summary My attendance records for a course
// @Description Per-session history for the calling student, absent where no record exists
// @Tags Attendance
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /students/me/courses/{id}/attendance [get]
func (h *AttendanceHandler) MyCourseRecords(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	records, err := h.attendance.StudentCourseRecords(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}
