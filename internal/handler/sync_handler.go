package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eduops/cohort-sync-api/internal/service"
	appErrors "github.com/eduops/cohort-sync-api/pkg/errors"
	"github.com/eduops/cohort-sync-api/pkg/response"
)

// SyncHandler exposes the program sync invocation surface.
type SyncHandler struct {
	sync *service.ProgramSyncService
}

// NewSyncHandler constructs SyncHandler.
func NewSyncHandler(sync *service.ProgramSyncService) *SyncHandler {
	return &SyncHandler{sync: sync}
}

// Trigger godoc
// @Summary Sync a program's participants
// @Tags Sync
// @Produce json
// @Param id path string true "Program ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /sync/programs/{id} [post]
func (h *SyncHandler) Trigger(c *gin.Context) {
	result, err := h.sync.SyncProgram(c.Request.Context(), c.Param("id"))
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) && appErr.Code == appErrors.ErrPartialSync.Code {
			// Partial failure still returns the full result so operators
			// can see which participants need attention.
			response.JSON(c, http.StatusOK, result, map[string]interface{}{
				"partial": true,
				"reason":  appErr.Message,
			})
			return
		}
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}
