package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campus-hq/registrar-api/internal/service"
	appErrors "github.com/campus-hq/registrar-api/pkg/errors"
	"github.com/campus-hq/registrar-api/pkg/response"
)

// BackupHandler exposes backup and restore endpoints.
type BackupHandler struct {
	backups *service.BackupService
}

// NewBackupHandler constructs BackupHandler.
func NewBackupHandler(backups *service.BackupService) *BackupHandler {
	return &BackupHandler{backups: backups}
}

// Create godoc
// @Summary Create a full data backup
// @Tags Backups
// @Produce json
// @Success 201 {object} response.Envelope
// @Router /backups [post]
func (h *BackupHandler) Create(c *gin.Context) {
	if h.backups == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "backup service not configured"))
		return
	}
	info, err := h.backups.CreateBackup(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, info)
}

// List godoc
// @Summary List backups, newest first
// @Tags Backups
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /backups [get]
func (h *BackupHandler) List(c *gin.Context) {
	if h.backups == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "backup service not configured"))
		return
	}
	backups, err := h.backups.ListBackups(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, backups, nil)
}

// Size godoc
// @Summary Total size of a backup directory
// @Tags Backups
// @Produce json
// @Param name path string true "Backup name"
// @Success 200 {object} response.Envelope
// @Router /backups/{name}/size [get]
func (h *BackupHandler) Size(c *gin.Context) {
	if h.backups == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "backup service not configured"))
		return
	}
	size, err := h.backups.Size(c.Request.Context(), c.Param("name"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"name": c.Param("name"), "size_bytes": size}, nil)
}

// Restore godoc
// @Summary Restore state from a backup
// @Tags Backups
// @Produce json
// @Param name path string true "Backup name"
// @Success 200 {object} response.Envelope
// @Router /backups/{name}/restore [post]
func (h *BackupHandler) Restore(c *gin.Context) {
	if h.backups == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "backup service not configured"))
		return
	}
	info, err := h.backups.Restore(c.Request.Context(), c.Param("name"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, info, nil)
}

// Delete godoc
// @Summary Delete a backup
// @Tags Backups
// @Produce json
// @Param name path string true "Backup name"
// @Success 204
// @Router /backups/{name} [delete]
func (h *BackupHandler) Delete(c *gin.Context) {
	if h.backups == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "backup service not configured"))
		return
	}
	if err := h.backups.Delete(c.Request.Context(), c.Param("name")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
