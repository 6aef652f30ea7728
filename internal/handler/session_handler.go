package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edutrack/attendance-api/internal/models"
	"github.com/edutrack/attendance-api/internal/service"
	appErrors "github.com/edutrack/attendance-api/pkg/errors"
	"github.com/edutrack/attendance-api/pkg/response"
)

// SessionHandler exposes attendance session lifecycle endpoints.
type SessionHandler struct {
	sessions *service.SessionService
	users    *service.UserService
	metrics  *service.MetricsService
}

// NewSessionHandler constructs SessionHandler.
func NewSessionHandler(sessions *service.SessionService, users *service.UserService, metrics *service.MetricsService) *SessionHandler {
	return &SessionHandler{sessions: sessions, users: users, metrics: metrics}
}

// Create godoc
// @Summary Open attendance session
// @Description Opens a session with a freshly generated unguessable code
// @Tags Sessions
// @Accept json
// @Produce json
// @Param payload body service.CreateSessionRequest true "Session payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /sessions [post]
func (h *SessionHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid session payload"))
		return
	}

	facultyID, err := facultyIDFor(c, h.users, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	session, err := h.sessions.Create(c.Request.Context(), *claims, facultyID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordSessionOpened()
	// qr_payload mirrors the code; rendering stays client-side.
	response.JSON(c, http.StatusCreated, session, nil, map[string]interface{}{
		"qr_payload": session.SessionCode,
	})
}

// Get godoc
// @Summary Get session
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id} [get]
func (h *SessionHandler) Get(c *gin.Context) {
	session, err := h.sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// List godoc
// @Summary List sessions
// @Tags Sessions
// @Produce json
// @Param courseId query string false "Filter by course"
// @Param facultyId query string false "Filter by faculty"
// @Param active query bool false "Filter by active flag"
// @Param from query string false "Date from (YYYY-MM-DD)"
// @Param to query string false "Date to (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /sessions [get]
func (h *SessionHandler) List(c *gin.Context) {
	var filter models.SessionFilter
	filter.CourseID = c.Query("courseId")
	filter.FacultyID = c.Query("facultyId")
	if active := c.Query("active"); active != "" {
		v := active == "true"
		filter.Active = &v
	}
	if from, err := time.Parse("2006-01-02", c.Query("from")); err == nil {
		filter.DateFrom = &from
	}
	if to, err := time.Parse("2006-01-02", c.Query("to")); err == nil {
		filter.DateTo = &to
	}
	filter.Page, filter.PageSize = parsePageQuery(c)
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	sessions, pagination, err := h.sessions.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, pagination)
}

// Close godoc
// @Summary Close session
// @Description Stops the session from accepting student check-ins
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/close [put]
func (h *SessionHandler) Close(c *gin.Context) {
	h.setActive(c, false)
}

// Reopen godoc
// @Summary Reopen session
// @Description Resumes accepting student check-ins
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/reopen [put]
func (h *SessionHandler) Reopen(c *gin.Context) {
	h.setActive(c, true)
}

func (h *SessionHandler) setActive(c *gin.Context, active bool) {
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

	var session *models.AttendanceSession
	if active {
		session, err = h.sessions.Reopen(c.Request.Context(), *claims, facultyID, c.Param("id"))
	} else {
		session, err = h.sessions.Close(c.Request.Context(), *claims, facultyID, c.Param("id"))
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// RotateCode godoc
// @Summary Rotate session code
// @Description Replaces the session code, invalidating the old one immediately
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/code [put]
func (h *SessionHandler) RotateCode(c *gin.Context) {
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

	session, err := h.sessions.RotateCode(c.Request.Context(), *claims, facultyID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}
