package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edutrack/attendance-api/internal/service"
	appErrors "github.com/edutrack/attendance-api/pkg/errors"
	"github.com/edutrack/attendance-api/pkg/response"
)

// ImportHandler accepts bulk student CSV uploads.
type ImportHandler struct {
	imports *service.ImportService
}

// NewImportHandler constructs ImportHandler.
func NewImportHandler(imports *service.ImportService) *ImportHandler {
	return &ImportHandler{imports: imports}
}

// ImportStudents godoc
// @Summary Bulk import students from CSV
// @Description Rows fail independently, the result lists per-row errors
// @Tags Users
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "CSV file"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /students/import [post]
func (h *ImportHandler) ImportStudents(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "csv file required"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "failed to open uploaded file"))
		return
	}
	defer file.Close()

	result, err := h.imports.ImportStudents(c.Request.Context(), file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
