package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edutrack/attendance-api/internal/models"
	"github.com/edutrack/attendance-api/internal/service"
	appErrors "github.com/edutrack/attendance-api/pkg/errors"
	"github.com/edutrack/attendance-api/pkg/response"
)

// StatsHandler exposes attendance statistics endpoints.
type StatsHandler struct {
	stats       *service.StatsService
	users       *service.UserService
	enrollments *service.EnrollmentService
}

// NewStatsHandler constructs StatsHandler.
func NewStatsHandler(stats *service.StatsService, users *service.UserService, enrollments *service.EnrollmentService) *StatsHandler {
	return &StatsHandler{stats: stats, users: users, enrollments: enrollments}
}

// SessionCounts godoc
// @Summary Present and absent counts for a session
// @Tags Statistics
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /stats/sessions/{id} [get]
func (h *StatsHandler) SessionCounts(c *gin.Context) {
	counts, err := h.stats.SessionCounts(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, counts, nil)
}

// CourseStats godoc
// @Summary Per-student percentages and course average
// @Description Course average is the mean of per-student percentages
// @Tags Statistics
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /stats/courses/{id} [get]
func (h *StatsHandler) CourseStats(c *gin.Context) {
	stats, err := h.stats.CourseStats(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// StudentPercentage godoc
// @Summary Attendance percentage for a student
// @Description Students may only query their own percentage
// @Tags Statistics
// @Produce json
// @Param id path string true "Student ID"
// @Param courseId query string false "Scope to a course"
// @Success 200 {object} response.Envelope
// @Router /stats/students/{id} [get]
func (h *StatsHandler) StudentPercentage(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	studentID := c.Param("id")
	if claims.Role == models.RoleStudent {
		self, err := h.users.GetStudentByUser(c.Request.Context(), claims.UserID)
		if err != nil {
			response.Error(c, err)
			return
		}
		if studentID == "me" {
			studentID = self.ID
		} else if studentID != self.ID {
			response.Error(c, appErrors.ErrForbidden)
			return
		}
	}

	result, err := h.stats.StudentPercentage(c.Request.Context(), studentID, c.Query("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// MyAttendance godoc
// @Summary My attendance grouped per course
// @Description Percentage per enrolled course for the calling student
// @Tags Statistics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /students/me/attendance [get]
func (h *StatsHandler) MyAttendance(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	student, err := h.users.GetStudentByUser(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	courses, err := h.enrollments.StudentCourses(c.Request.Context(), student.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	summaries := make([]gin.H, 0, len(courses))
	for _, enrollment := range courses {
		pct, err := h.stats.StudentPercentage(c.Request.Context(), student.ID, enrollment.CourseID)
		if err != nil {
			response.Error(c, err)
			return
		}
		summaries = append(summaries, gin.H{
			"course_id":    enrollment.CourseID,
			"course_code":  enrollment.CourseCode,
			"course_title": enrollment.CourseTitle,
			"attendance":   pct,
		})
	}
	response.JSON(c, http.StatusOK, summaries, nil)
}

// DepartmentRates godoc
// @Summary Attendance rates grouped by department
// @Tags Statistics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /stats/departments [get]
func (h *StatsHandler) DepartmentRates(c *gin.Context) {
	rates, err := h.stats.DepartmentRates(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rates, nil)
}

// Overview godoc
// @Summary System-wide attendance overview
// @Tags Statistics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /stats/overview [get]
func (h *StatsHandler) Overview(c *gin.Context) {
	overview, err := h.stats.Overview(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, overview, nil)
}
