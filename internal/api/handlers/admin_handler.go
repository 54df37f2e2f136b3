package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/catalog-s3/internal/domain"
	"github.com/andresuchdata/catalog-s3/internal/service"
)

type AdminHandler struct {
	settings *service.SettingsService
	backup   *service.BackupService
}

func NewAdminHandler(settings *service.SettingsService, backup *service.BackupService) *AdminHandler {
	return &AdminHandler{settings: settings, backup: backup}
}

type updateSettingsRequest struct {
	BucketName   string `json:"bucket_name" form:"bucket_name"`
	BackupBucket string `json:"backup_bucket" form:"backup_bucket"`
}

func (h *AdminHandler) GetSettings(c *gin.Context) {
	settings, err := h.settings.Get(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, settings)
}

// UpdateSettings accepts JSON or form-encoded bucket names.
func (h *AdminHandler) UpdateSettings(c *gin.Context) {
	var req updateSettingsRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	settings, err := h.settings.Update(c.Request.Context(), req.BucketName, req.BackupBucket)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, settings)
}

// RunBackup replicates the primary bucket into the backup bucket and waits
// for the run to finish. The backup result is always part of the response.
func (h *AdminHandler) RunBackup(c *gin.Context) {
	result, err := h.backup.Run(c.Request.Context())
	if err != nil {
		c.JSON(statusFor(err), backupResponse(result, err))
		return
	}

	c.JSON(http.StatusOK, backupResponse(result, nil))
}

// CheckBuckets reports whether the configured buckets are reachable.
func (h *AdminHandler) CheckBuckets(c *gin.Context) {
	checks, err := h.backup.CheckBuckets(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"buckets": checks})
}

func backupResponse(result *domain.BackupResult, err error) gin.H {
	body := gin.H{
		"status":  result.Status,
		"message": result.Message,
		"source":  result.Source,
		"target":  result.Target,
		"results": result.Results,
	}
	if err != nil {
		body["error"] = err.Error()
	}
	return body
}
