package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/leathercraft-class-submissions/internal/config"
	"github.com/leathercraft-class-submissions/internal/service"
	"github.com/leathercraft-class-submissions/internal/validation"
)

// ImportHandler handles operator CSV imports
type ImportHandler struct {
	services *service.Services
	cfg      *config.Config
	log      zerolog.Logger
}

// NewImportHandler creates a new ImportHandler
func NewImportHandler(services *service.Services, cfg *config.Config, log zerolog.Logger) *ImportHandler {
	return &ImportHandler{
		services: services,
		cfg:      cfg,
		log:      log.With().Str("handler", "import").Logger(),
	}
}

// ImportCSV handles POST /admin/v1/imports
// Accepts a multipart upload in the csv_file field. Rows are imported as one
// batch and, unless sync=false, pushed as draft metaobjects afterwards.
func (h *ImportHandler) ImportCSV(c *gin.Context) {
	ctx := c.Request.Context()

	file, header, err := c.Request.FormFile("csv_file")
	if err != nil {
		c.JSON(http.StatusBadRequest, importFailure("Please choose a CSV file to upload."))
		return
	}
	defer file.Close()

	if header.Size > h.cfg.Intake.MaxUploadSize {
		c.JSON(http.StatusBadRequest, importFailure(
			fmt.Sprintf("File too large, max size is %d KB.", h.cfg.Intake.MaxUploadSize/1024),
		))
		return
	}

	req := &service.CSVImportRequest{
		File: file,
		Submitter: service.Submitter{
			Name:  strings.TrimSpace(c.PostForm("submitted_by_name")),
			Email: strings.TrimSpace(c.PostForm("submitted_by_email")),
		},
		Sync: c.DefaultPostForm("sync", c.DefaultQuery("sync", "true")) != "false",
	}

	res, err := h.services.Intake.ImportCSV(ctx, req)
	switch {
	case errors.Is(err, service.ErrInvalidCSV),
		errors.Is(err, validation.ErrBatchEmpty),
		errors.Is(err, validation.ErrBatchTooLarge):
		c.JSON(http.StatusBadRequest, importFailure(err.Error()))
		return
	case err != nil:
		h.log.Error().Err(err).Str("file", header.Filename).Msg("CSV import failed")
		c.JSON(http.StatusInternalServerError, importFailure(err.Error()))
		return
	}

	h.log.Info().
		Str("file", header.Filename).
		Int64("size_bytes", header.Size).
		Int("imported", res.Imported).
		Int("synced", res.Synced).
		Int("errors", len(res.Errors)).
		Msg("CSV import finished")

	if !res.OK {
		c.JSON(http.StatusBadRequest, res)
		return
	}
	c.JSON(http.StatusOK, res)
}

func importFailure(msg string) *service.CSVImportResult {
	return &service.CSVImportResult{OK: false, Errors: []string{msg}}
}
