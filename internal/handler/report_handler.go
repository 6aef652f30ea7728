package handler

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/edutrack/attendance-api/internal/models"
	"github.com/edutrack/attendance-api/internal/service"
	appErrors "github.com/edutrack/attendance-api/pkg/errors"
	"github.com/edutrack/attendance-api/pkg/response"
)

// ReportHandler exposes asynchronous report generation endpoints.
type ReportHandler struct {
	reports *service.ReportService
	users   *service.UserService
}

// NewReportHandler constructs ReportHandler.
func NewReportHandler(reports *service.ReportService, users *service.UserService) *ReportHandler {
	return &ReportHandler{reports: reports, users: users}
}

// Generate godoc
// @Summary Queue a course attendance report
// @Description Renders asynchronously, poll the returned job for a download token
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body map[string]string true "Course ID and format (csv or pdf)"
// @Success 202 {object} response.Envelope
// @Router /reports [post]
func (h *ReportHandler) Generate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload struct {
		CourseID string              `json:"course_id" binding:"required"`
		Format   models.ReportFormat `json:"format" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "course_id and format required"))
		return
	}

	facultyID, err := facultyIDFor(c, h.users, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	job, err := h.reports.Generate(c.Request.Context(), *claims, facultyID, payload.CourseID, payload.Format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, job)
}

// Status godoc
// @Summary Report job status
// @Description Includes a short-lived download token once the job is done
// @Tags Reports
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /reports/{id} [get]
func (h *ReportHandler) Status(c *gin.Context) {
	job, token, err := h.reports.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	meta := map[string]interface{}{}
	if token != "" {
		meta["download_token"] = token
	}
	response.JSON(c, http.StatusOK, job, nil, meta)
}

// Download godoc
// @Summary Download a finished report
// @Tags Reports
// @Produce octet-stream
// @Param id path string true "Job ID"
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /reports/{id}/download [get]
func (h *ReportHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "download token required"))
		return
	}

	download, err := h.reports.Download(c.Request.Context(), c.Param("id"), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	info, err := download.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to stat report file"))
		return
	}

	contentType := "text/csv"
	if download.Format == models.ReportFormatPDF {
		contentType = "application/pdf"
	}

	filename := filepath.Base(download.Filename)
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.DataFromReader(http.StatusOK, info.Size(), contentType, download.File, nil)
}
