package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/leathercraft-class-submissions/internal/botfilter"
	"github.com/leathercraft-class-submissions/internal/config"
	"github.com/leathercraft-class-submissions/internal/normalize"
	"github.com/leathercraft-class-submissions/internal/service"
	"github.com/leathercraft-class-submissions/internal/validation"
)

// HoneypotField is the decoy input the public form keeps hidden
const HoneypotField = "website"

// Field names the Turnstile token may arrive under
var turnstileTokenKeys = []string{"turnstileToken", "turnstile", "cf-turnstile-response", "cfTurnstileResponse"}

var errUnsupportedContentType = errors.New("unsupported content type")

// SubmissionHandler handles the public submission endpoints
type SubmissionHandler struct {
	services *service.Services
	cfg      *config.Config
	log      zerolog.Logger
}

// NewSubmissionHandler creates a new SubmissionHandler
func NewSubmissionHandler(services *service.Services, cfg *config.Config, log zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		services: services,
		cfg:      cfg,
		log:      log.With().Str("handler", "submission").Logger(),
	}
}

// Ping answers GET on a POST endpoint so the form can check reachability
func (h *SubmissionHandler) Ping(route string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "route": route})
	}
}

// FormConfig handles GET /v1/class-submissions/config
func (h *SubmissionHandler) FormConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"turnstileSiteKey": h.cfg.Turnstile.SiteKey,
		"apiBaseUrl":       h.cfg.App.PublicBaseURL,
	})
}

// Single handles POST /v1/class-submissions/single (JSON or form-encoded)
func (h *SubmissionHandler) Single(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.Intake.MaxUploadSize)

	rec, err := h.readRecord(c)
	if err != nil {
		h.badBody(c, err)
		return
	}

	res, err := h.services.Intake.SubmitSingle(c.Request.Context(), &service.SingleRequest{
		Record:    rec,
		Challenge: challenge(c, rec),
	})
	if err != nil {
		h.intakeError(c, err)
		return
	}
	if res.Discarded {
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "id": res.ID, "createdAt": res.CreatedAt})
}

// bulkBody is the JSON shape of a bulk submission. Attribution may be a
// submitter block or top-level fields.
type bulkBody struct {
	Submitter        *service.Submitter       `json:"submitter"`
	SubmittedByName  string                   `json:"submittedByName"`
	SubmittedByEmail string                   `json:"submittedByEmail"`
	Rows             []map[string]interface{} `json:"rows"`
}

// Bulk handles POST /v1/class-submissions/bulk
func (h *SubmissionHandler) Bulk(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.Intake.MaxUploadSize)

	if !isJSON(c) {
		h.badBody(c, errUnsupportedContentType)
		return
	}

	var raw map[string]interface{}
	dec := json.NewDecoder(c.Request.Body)
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		h.badBody(c, err)
		return
	}

	// Re-decode the generic map into the typed body; the generic copy keeps the
	// Turnstile and honeypot fields whatever their names.
	var body bulkBody
	encoded, _ := json.Marshal(raw)
	if err := json.Unmarshal(encoded, &body); err != nil {
		h.badBody(c, err)
		return
	}

	submitter := service.Submitter{Name: body.SubmittedByName, Email: body.SubmittedByEmail}
	if body.Submitter != nil {
		if body.Submitter.Name != "" {
			submitter.Name = body.Submitter.Name
		}
		if body.Submitter.Email != "" {
			submitter.Email = body.Submitter.Email
		}
	}

	rows := make([]normalize.Record, 0, len(body.Rows))
	for _, r := range body.Rows {
		rows = append(rows, toRecord(r))
	}

	res, err := h.services.Intake.SubmitBatch(c.Request.Context(), &service.BatchRequest{
		Submitter: submitter,
		Rows:      rows,
		Challenge: challenge(c, toRecord(raw)),
	})
	if err != nil {
		h.intakeError(c, err)
		return
	}
	if res.Discarded {
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "batchId": res.BatchID, "count": res.Count})
}

// readRecord flattens a JSON object or form body into a Record
func (h *SubmissionHandler) readRecord(c *gin.Context) (normalize.Record, error) {
	if isJSON(c) {
		var raw map[string]interface{}
		dec := json.NewDecoder(c.Request.Body)
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		return toRecord(raw), nil
	}

	mediaType, _, _ := mime.ParseMediaType(c.GetHeader("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded":
		if err := c.Request.ParseForm(); err != nil {
			return nil, err
		}
	case "multipart/form-data":
		if err := c.Request.ParseMultipartForm(h.cfg.Intake.MaxUploadSize); err != nil {
			return nil, err
		}
	default:
		return nil, errUnsupportedContentType
	}

	rec := make(normalize.Record, len(c.Request.PostForm))
	for k, v := range c.Request.PostForm {
		if len(v) > 0 {
			rec[k] = v[0]
		}
	}
	return rec, nil
}

func (h *SubmissionHandler) badBody(c *gin.Context, err error) {
	h.log.Debug().Err(err).Msg("Unreadable submission body")

	msg := "Invalid JSON body"
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, errUnsupportedContentType):
		msg = "Content-Type must be application/json or a form encoding"
	case errors.As(err, &tooLarge):
		msg = fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit)
	}
	c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": msg})
}

// intakeError maps intake failures to responses. Unexpected errors are logged
// and answered generically since this path is public.
func (h *SubmissionHandler) intakeError(c *gin.Context, err error) {
	var (
		rejection *botfilter.Rejection
		fieldErrs validation.Errors
		batchErrs *service.BatchValidationError
	)

	switch {
	case errors.As(err, &rejection):
		resp := gin.H{"ok": false, "error": rejection.Reason}
		if rejection.Details != nil {
			resp["details"] = rejection.Details
		}
		c.JSON(http.StatusBadRequest, resp)
	case errors.As(err, &fieldErrs):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "errors": fieldErrs.Map()})
	case errors.As(err, &batchErrs):
		c.JSON(http.StatusBadRequest, gin.H{
			"ok":        false,
			"error":     "Some rows failed validation; nothing was saved.",
			"rowErrors": batchErrs.RowErrors,
		})
	case errors.Is(err, validation.ErrBatchEmpty), errors.Is(err, validation.ErrBatchTooLarge):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
	default:
		h.log.Error().Err(err).Msg("Failed to create submission")
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Failed to create submission"})
	}
}

func isJSON(c *gin.Context) bool {
	mediaType, _, _ := mime.ParseMediaType(c.GetHeader("Content-Type"))
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// challenge pulls the bot-check fields out of a flattened body
func challenge(c *gin.Context, rec normalize.Record) botfilter.Challenge {
	return botfilter.Challenge{
		Honeypot: rec[HoneypotField],
		Token:    rec.Get(turnstileTokenKeys...),
		RemoteIP: c.ClientIP(),
	}
}

// toRecord stringifies scalar JSON values; nested objects and arrays are dropped
func toRecord(raw map[string]interface{}) normalize.Record {
	rec := make(normalize.Record, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			rec[k] = val
		case json.Number:
			rec[k] = val.String()
		case float64:
			rec[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			rec[k] = strconv.FormatBool(val)
		}
	}
	return rec
}
