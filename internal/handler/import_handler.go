package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campus-hq/registrar-api/internal/models"
	appErrors "github.com/campus-hq/registrar-api/pkg/errors"
	"github.com/campus-hq/registrar-api/pkg/response"
)

type importService interface {
	ImportStudents(ctx context.Context, r io.Reader) (*models.ImportSummary, error)
	ImportCourses(ctx context.Context, r io.Reader) (*models.ImportSummary, error)
}

// ImportHandler exposes CSV bulk-import endpoints.
type ImportHandler struct {
	imports  importService
	maxBytes int64
}

// NewImportHandler constructs ImportHandler. maxBytes caps the upload size;
// zero means unlimited.
func NewImportHandler(imports importService, maxBytes int64) *ImportHandler {
	return &ImportHandler{imports: imports, maxBytes: maxBytes}
}

// Students godoc
// @Summary Import students from CSV
// @Tags Imports
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "CSV file"
// @Success 200 {object} response.Envelope
// @Router /imports/students [post]
func (h *ImportHandler) Students(c *gin.Context) {
	h.runImport(c, h.imports.ImportStudents)
}

// Courses godoc
// @Summary Import courses from CSV
// @Tags Imports
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "CSV file"
// @Success 200 {object} response.Envelope
// @Router /imports/courses [post]
func (h *ImportHandler) Courses(c *gin.Context) {
	h.runImport(c, h.imports.ImportCourses)
}

func (h *ImportHandler) runImport(c *gin.Context, apply func(ctx context.Context, r io.Reader) (*models.ImportSummary, error)) {
	if h.imports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "import service not configured"))
		return
	}
	if h.maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes)
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file exceeds the size limit"))
			return
		}
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file"))
		return
	}
	defer src.Close()

	summary, err := apply(c.Request.Context(), src)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
