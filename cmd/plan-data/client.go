package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/planventa/planventa/modules/planning/importing"
	"github.com/planventa/planventa/pkg/configuration"
	"github.com/planventa/planventa/pkg/middleware"
)

type apiError struct {
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Meta    map[string]string `json:"meta,omitempty"`
}

type queuedJob struct {
	JobID                string `json:"job_id"`
	Status               string `json:"status"`
	TrackingURL          string `json:"tracking_url"`
	EstimatedTimeSeconds int    `json:"estimated_time_seconds"`
}

type jobProgress struct {
	TotalRows     int     `json:"total_rows"`
	ProcessedRows int     `json:"processed_rows"`
	SuccessRows   int     `json:"success_rows"`
	ErrorRows     int     `json:"error_rows"`
	SkippedRows   int     `json:"skipped_rows"`
	Percentage    float64 `json:"percentage"`
}

type jobStatus struct {
	JobID                         string      `json:"job_id"`
	Status                        string      `json:"status"`
	Progress                      jobProgress `json:"progress"`
	EstimatedTimeRemainingSeconds int         `json:"estimated_time_remaining_seconds"`
}

// uploadOutcome distinguishes the two success shapes of the upload route:
// small files come back with the full result, large ones with a queued job.
type uploadOutcome struct {
	Queued *queuedJob
	Result *importing.Result
}

type uploadRequest struct {
	EntityType     string
	FileName       string
	Data           []byte
	UpdateExisting bool
}

type planAPIClient struct {
	baseURL         *url.URL
	tenantID        string
	actorID         string
	httpClient      *http.Client
	requestIDHeader string
}

func newPlanAPIClient(baseURL, tenantID, actorID string) (*planAPIClient, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = configuration.Use().Origin
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, withCode(exitUsage, fmt.Errorf("invalid --api-url: %q", baseURL))
	}
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, withCode(exitUsage, fmt.Errorf("--tenant is required (flag or %s)", configFileName))
	}
	if _, err := uuid.Parse(tenantID); err != nil {
		return nil, withCode(exitUsage, fmt.Errorf("invalid --tenant: %q", tenantID))
	}
	actorID = strings.TrimSpace(actorID)
	if actorID != "" {
		if _, err := uuid.Parse(actorID); err != nil {
			return nil, withCode(exitUsage, fmt.Errorf("invalid --actor: %q", actorID))
		}
	}
	return &planAPIClient{
		baseURL:         u,
		tenantID:        tenantID,
		actorID:         actorID,
		httpClient:      &http.Client{Timeout: 60 * time.Second},
		requestIDHeader: configuration.Use().RequestIDHeader,
	}, nil
}

func (c *planAPIClient) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, withCode(exitAPI, fmt.Errorf("http request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(middleware.TenantHeader, c.tenantID)
	if c.actorID != "" {
		req.Header.Set(middleware.ActorHeader, c.actorID)
	}
	if c.requestIDHeader != "" {
		req.Header.Set(c.requestIDHeader, uuid.NewString())
	}
	return req, nil
}

func (c *planAPIClient) do(req *http.Request) (int, []byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, withCode(exitAPI, fmt.Errorf("http do: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, withCode(exitAPI, fmt.Errorf("http read: %w", err))
	}
	return resp.StatusCode, body, nil
}

// decodeFailure maps a non-2xx body to the server's error envelope, or to a
// transport error when the body is not an envelope.
func decodeFailure(status int, body []byte) (*apiError, error) {
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil && strings.TrimSpace(apiErr.Code) != "" {
		return &apiErr, nil
	}
	return nil, withCode(exitAPI, fmt.Errorf("http status=%d body=%s", status, strings.TrimSpace(string(body))))
}

func (c *planAPIClient) getJSON(ctx context.Context, path string, out any) (*apiError, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	status, body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return decodeFailure(status, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return nil, withCode(exitAPI, fmt.Errorf("json unmarshal response: %w", err))
	}
	return nil, nil
}

func (c *planAPIClient) upload(ctx context.Context, upload uploadRequest) (*uploadOutcome, *apiError, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", upload.FileName)
	if err != nil {
		return nil, nil, withCode(exitAPI, fmt.Errorf("multipart file: %w", err))
	}
	if _, err := part.Write(upload.Data); err != nil {
		return nil, nil, withCode(exitAPI, fmt.Errorf("multipart write: %w", err))
	}
	if err := form.WriteField("entity_type", upload.EntityType); err != nil {
		return nil, nil, withCode(exitAPI, fmt.Errorf("multipart field: %w", err))
	}
	if upload.UpdateExisting {
		if err := form.WriteField("update_existing", "true"); err != nil {
			return nil, nil, withCode(exitAPI, fmt.Errorf("multipart field: %w", err))
		}
	}
	if err := form.Close(); err != nil {
		return nil, nil, withCode(exitAPI, fmt.Errorf("multipart close: %w", err))
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/planning/import", &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	status, body, err := c.do(req)
	if err != nil {
		return nil, nil, err
	}
	switch status {
	case http.StatusAccepted:
		var queued queuedJob
		if err := json.Unmarshal(body, &queued); err != nil {
			return nil, nil, withCode(exitAPI, fmt.Errorf("json unmarshal response: %w", err))
		}
		return &uploadOutcome{Queued: &queued}, nil, nil
	case http.StatusOK:
		var result importing.Result
		if err := json.Unmarshal(body, &result); err != nil {
			return nil, nil, withCode(exitAPI, fmt.Errorf("json unmarshal response: %w", err))
		}
		return &uploadOutcome{Result: &result}, nil, nil
	default:
		apiErr, err := decodeFailure(status, body)
		return nil, apiErr, err
	}
}

func (c *planAPIClient) getStatus(ctx context.Context, jobID uuid.UUID) (*jobStatus, *apiError, error) {
	var status jobStatus
	apiErr, err := c.getJSON(ctx, "/planning/import/status/"+jobID.String(), &status)
	if err != nil || apiErr != nil {
		return nil, apiErr, err
	}
	return &status, nil, nil
}

func (c *planAPIClient) getResult(ctx context.Context, jobID uuid.UUID) (*importing.Result, *apiError, error) {
	var result importing.Result
	apiErr, err := c.getJSON(ctx, "/planning/import/jobs/"+jobID.String()+"/result", &result)
	if err != nil || apiErr != nil {
		return nil, apiErr, err
	}
	return &result, nil, nil
}
