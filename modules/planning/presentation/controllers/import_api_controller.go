package controllers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/planventa/planventa/modules/planning/importing"
	"github.com/planventa/planventa/modules/planning/infrastructure/persistence"
	"github.com/planventa/planventa/modules/planning/services"
	"github.com/planventa/planventa/pkg/application"
	"github.com/planventa/planventa/pkg/composables"
	"github.com/planventa/planventa/pkg/configuration"
	"github.com/planventa/planventa/pkg/middleware"
)

type ImportAPIController struct {
	app       application.Application
	imports   *services.ImportService
	templates *services.TemplateService
	basePath  string
}

func NewImportAPIController(app application.Application) application.Controller {
	return &ImportAPIController{
		app:       app,
		imports:   app.Service(services.ImportService{}).(*services.ImportService),
		templates: app.Service(services.TemplateService{}).(*services.TemplateService),
		basePath:  "/planning/import",
	}
}

func (c *ImportAPIController) Key() string {
	return c.basePath
}

// Register mounts the import surface. The upload route gets its own
// subrouter so the rate limit covers uploads only, and no route here runs
// under the transaction middleware: the pipeline owns its transactions.
func (c *ImportAPIController) Register(r *mux.Router) {
	conf := configuration.Use()

	uploadRouter := r.PathPrefix(c.basePath).Subrouter()
	if conf.RateLimit.Enabled && conf.RateLimit.UploadRPM > 0 {
		uploadRouter.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerPeriod: conf.RateLimit.UploadRPM,
			Period:            time.Minute,
		}))
	}
	uploadRouter.HandleFunc("", c.Upload).Methods(http.MethodPost)

	router := r.PathPrefix(c.basePath).Subrouter()
	router.HandleFunc("/status/{job_id}", c.Status).Methods(http.MethodGet)
	router.HandleFunc("/jobs/{job_id}/result", c.Result).Methods(http.MethodGet)
	router.HandleFunc("/jobs/{job_id}/report", c.Report).Methods(http.MethodGet)
	router.HandleFunc("/jobs/{job_id}/cancel", c.Cancel).Methods(http.MethodPost)
	router.HandleFunc("/template/{entity_type}", c.Template).Methods(http.MethodGet)
}

type importQueuedResponse struct {
	JobID                string `json:"job_id"`
	Status               string `json:"status"`
	TrackingURL          string `json:"tracking_url"`
	EstimatedTimeSeconds int    `json:"estimated_time_seconds"`
}

type importProgress struct {
	TotalRows     int     `json:"total_rows"`
	ProcessedRows int     `json:"processed_rows"`
	SuccessRows   int     `json:"success_rows"`
	ErrorRows     int     `json:"error_rows"`
	SkippedRows   int     `json:"skipped_rows"`
	Percentage    float64 `json:"percentage"`
}

type importStatusResponse struct {
	JobID                         string         `json:"job_id"`
	Status                        string         `json:"status"`
	Progress                      importProgress `json:"progress"`
	EstimatedTimeRemainingSeconds int            `json:"estimated_time_remaining_seconds"`
}

func (c *ImportAPIController) Upload(w http.ResponseWriter, r *http.Request) {
	conf := configuration.Use()

	r.Body = http.MaxBytesReader(w, r.Body, conf.Import.MaxFileSize+conf.MaxUploadMemory)
	if err := r.ParseMultipartForm(conf.MaxUploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_MULTIPART", "could not parse multipart form", nil)
		return
	}
	dto, err := composables.UseForm(&uploadDTO{}, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_MULTIPART", "could not parse multipart form", nil)
		return
	}
	if fields, ok := dto.Ok(); !ok {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid import request", fields)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "FILE_REQUIRED", "missing file part", nil)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "could not read file", nil)
		return
	}

	outcome, err := c.imports.Upload(r.Context(), services.UploadCommand{
		EntityType:     dto.EntityType,
		FileName:       header.Filename,
		Data:           data,
		UpdateExisting: dto.UpdateExisting,
	})
	if err != nil {
		c.writeUploadFailure(w, outcome, err)
		return
	}

	ip, _ := composables.UseIP(r.Context())
	agent, _ := composables.UseUserAgent(r.Context())
	composables.TryUseLogger(r.Context()).WithFields(logrus.Fields{
		"entity_type": dto.EntityType,
		"file_name":   header.Filename,
		"size_bytes":  len(data),
		"mode":        outcome.Mode,
		"ip":          ip,
		"user_agent":  agent,
	}).Info("import file accepted")

	if outcome.Mode == services.ModeAsync {
		writeJSON(w, http.StatusAccepted, importQueuedResponse{
			JobID:                outcome.Job.ID().String(),
			Status:               "queued",
			TrackingURL:          c.basePath + "/status/" + outcome.Job.ID().String(),
			EstimatedTimeSeconds: outcome.EstimatedTimeSeconds,
		})
		return
	}
	writeJSON(w, http.StatusOK, outcome.Result)
}

func (c *ImportAPIController) Status(w http.ResponseWriter, r *http.Request) {
	jobID, ok := c.jobID(w, r)
	if !ok {
		return
	}
	job, err := c.imports.Status(r.Context(), jobID)
	if err != nil {
		c.writeJobError(w, err)
		return
	}

	remaining := 0
	if !job.Status().IsTerminal() {
		pending := job.TotalRows() - job.ProcessedRows()
		if pending > 0 {
			rps := configuration.Use().Import.RowsPerSecond
			remaining = (pending + rps - 1) / rps
		}
	}
	writeJSON(w, http.StatusOK, importStatusResponse{
		JobID:  job.ID().String(),
		Status: string(job.Status()),
		Progress: importProgress{
			TotalRows:     job.TotalRows(),
			ProcessedRows: job.ProcessedRows(),
			SuccessRows:   job.SuccessRows(),
			ErrorRows:     job.ErrorRows(),
			SkippedRows:   job.SkippedRows(),
			Percentage:    job.Percentage(),
		},
		EstimatedTimeRemainingSeconds: remaining,
	})
}

func (c *ImportAPIController) Result(w http.ResponseWriter, r *http.Request) {
	jobID, ok := c.jobID(w, r)
	if !ok {
		return
	}
	result, err := c.imports.Result(r.Context(), jobID)
	if err != nil {
		c.writeJobError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (c *ImportAPIController) Report(w http.ResponseWriter, r *http.Request) {
	jobID, ok := c.jobID(w, r)
	if !ok {
		return
	}
	payload, contentType, fileName, err := c.imports.Report(r.Context(), jobID, r.URL.Query().Get("format"))
	if err != nil {
		c.writeJobError(w, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+fileName+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func (c *ImportAPIController) Cancel(w http.ResponseWriter, r *http.Request) {
	jobID, ok := c.jobID(w, r)
	if !ok {
		return
	}
	job, err := c.imports.Cancel(r.Context(), jobID)
	if err != nil {
		c.writeJobError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":           job.ID().String(),
		"status":           string(job.Status()),
		"cancel_requested": job.CancelRequested(),
	})
}

func (c *ImportAPIController) Template(w http.ResponseWriter, r *http.Request) {
	entityType := mux.Vars(r)["entity_type"]
	payload, contentType, fileName, err := c.templates.Template(r.Context(), entityType, r.URL.Query().Get("format"))
	if err != nil {
		crit, ok := importing.AsCritical(err)
		if !ok {
			writeError(w, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "could not render template", nil)
			return
		}
		meta := map[string]string{"value": entityType}
		if suggestion := importing.SuggestEntityType(entityType); suggestion != "" {
			meta["suggestion"] = suggestion
		}
		writeError(w, http.StatusNotFound, crit.Code, "unknown entity type", meta)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+fileName+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func (c *ImportAPIController) jobID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := mux.Vars(r)["job_id"]
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JOB_ID", "invalid job id", map[string]string{"value": raw})
		return uuid.Nil, false
	}
	return id, true
}

func (c *ImportAPIController) writeJobError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, persistence.ErrImportJobNotFound):
		writeError(w, http.StatusNotFound, importing.CodeJobNotFound, "import job not found", nil)
	case errors.Is(err, services.ErrJobNotFinished):
		writeError(w, http.StatusConflict, "JOB_NOT_FINISHED", "import job has not finished", nil)
	case errors.Is(err, persistence.ErrJobTerminal):
		writeError(w, http.StatusConflict, "JOB_ALREADY_FINISHED", "import job already settled", nil)
	default:
		writeError(w, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "internal error", nil)
	}
}

// writeUploadFailure renders a rejected upload. Failures after a job exists
// carry the job id so the caller can fetch the persisted result.
func (c *ImportAPIController) writeUploadFailure(w http.ResponseWriter, outcome *services.UploadOutcome, err error) {
	crit, ok := importing.AsCritical(err)
	if !ok {
		writeError(w, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "import failed", nil)
		return
	}
	meta := map[string]string{}
	for k, v := range crit.Params {
		meta[k] = v
	}
	if crit.Code == importing.CodeUnknownEntityType {
		if suggestion := importing.SuggestEntityType(meta["value"]); suggestion != "" {
			meta["suggestion"] = suggestion
		}
	}
	if outcome != nil && outcome.Job != nil {
		meta["job_id"] = outcome.Job.ID().String()
	}
	if len(meta) == 0 {
		meta = nil
	}
	writeError(w, uploadStatusFor(crit.Code), crit.Code, uploadMessageFor(crit.Code), meta)
}

func uploadStatusFor(code string) int {
	switch code {
	case importing.CodeUnknownEntityType:
		return http.StatusBadRequest
	case importing.CodeFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case importing.CodeMissingTenant:
		return http.StatusUnauthorized
	default:
		return http.StatusUnprocessableEntity
	}
}

func uploadMessageFor(code string) string {
	switch code {
	case importing.CodeUnsupportedFormat:
		return "unsupported file format"
	case importing.CodeInvalidEncoding:
		return "file is not valid UTF-8"
	case importing.CodeMissingSheet:
		return "workbook has no matching sheet"
	case importing.CodeMissingHeader:
		return "required header is missing"
	case importing.CodeEmptyFile:
		return "file has no data rows"
	case importing.CodeFileTooLarge:
		return "file exceeds the size limit"
	case importing.CodeRowLimitExceeded:
		return "file exceeds the row limit"
	case importing.CodeMissingTenant:
		return "tenant context required"
	case importing.CodeUnknownEntityType:
		return "unknown entity type"
	default:
		return "import rejected"
	}
}
