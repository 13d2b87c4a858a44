// Package riskclient is the HTTP client for the academic-risk prediction
// service. It validates requests before any network I/O and responses after,
// retries transport failures once with a fixed delay, and never retries
// validation failures (those indicate a contract break, not a transient
// fault).
package riskclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/VoidEngineers/EduMind-sub000/internal/apierr"
	"github.com/VoidEngineers/EduMind-sub000/internal/metrics"
	"github.com/VoidEngineers/EduMind-sub000/internal/retry"
	"github.com/VoidEngineers/EduMind-sub000/internal/risk"
	"github.com/VoidEngineers/EduMind-sub000/internal/traces"
)

// Client calls the academic-risk prediction service.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	// Transport retry policy. MaxAttempts includes the first attempt,
	// so the default of 2 means one retry.
	MaxAttempts int
	RetryDelay  time.Duration

	Logger *slog.Logger
}

// New creates a prediction client with default timeouts and retry policy.
func New(baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		BaseURL:     baseURL,
		HTTPClient:  &http.Client{Timeout: 30 * time.Second},
		MaxAttempts: 2,
		RetryDelay:  time.Second,
		Logger:      logger,
	}
}

// Predict validates the request locally, sends it, and returns the validated
// prediction. No caching happens at this layer.
func (c *Client) Predict(ctx context.Context, req *risk.StudentRiskRequest) (*risk.RiskPredictionResponse, error) {
	if err := risk.ValidateRequest(req); err != nil {
		metrics.PredictionsTotal.WithLabelValues("validation_error").Inc()
		return nil, apierr.Validation(err)
	}

	ctx, span := traces.StartSpan(ctx, "riskclient.Predict", traces.StudentID(req.StudentID))
	defer span.End()

	start := time.Now()
	var resp risk.RiskPredictionResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/v1/academic-risk/predict", req, &resp)
	metrics.PredictionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.PredictionsTotal.WithLabelValues(outcomeLabel(err)).Inc()
		return nil, err
	}

	if err := risk.ValidateResponse(&resp); err != nil {
		// Server contract violation: distinct from a transport failure
		// and never retried.
		metrics.PredictionsTotal.WithLabelValues("validation_error").Inc()
		return nil, apierr.Validation(fmt.Errorf("invalid prediction response: %w", err))
	}

	span.SetAttributes(traces.RiskLevel(resp.RiskLevel))
	metrics.PredictionsTotal.WithLabelValues("success").Inc()
	c.Logger.Debug("prediction received",
		"student_id", resp.StudentID,
		"risk_level", resp.RiskLevel,
		"risk_score", resp.RiskScore,
	)
	return &resp, nil
}

// BatchPredict validates every request before sending a single batched call.
// An invalid element anywhere fails the whole batch before any network I/O.
func (c *Client) BatchPredict(ctx context.Context, reqs []risk.StudentRiskRequest) ([]risk.RiskPredictionResponse, error) {
	var all risk.ValidationErrors
	for i := range reqs {
		if err := risk.ValidateRequest(&reqs[i]); err != nil {
			var verrs risk.ValidationErrors
			if ok := asValidationErrors(err, &verrs); ok {
				all = append(all, verrs.Prefixed(fmt.Sprintf("students[%d].", i))...)
			}
		}
	}
	if len(all) > 0 {
		return nil, apierr.Validation(all)
	}

	ctx, span := traces.StartSpan(ctx, "riskclient.BatchPredict", traces.BatchSize(len(reqs)))
	defer span.End()

	body := struct {
		Students []risk.StudentRiskRequest `json:"students"`
	}{Students: reqs}

	var resps []risk.RiskPredictionResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/academic-risk/batch-predict", body, &resps); err != nil {
		return nil, err
	}

	for i := range resps {
		if err := risk.ValidateResponse(&resps[i]); err != nil {
			var verrs risk.ValidationErrors
			if ok := asValidationErrors(err, &verrs); ok {
				err = verrs.Prefixed(fmt.Sprintf("[%d].", i))
			}
			return nil, apierr.Validation(fmt.Errorf("invalid batch response: %w", err))
		}
	}
	return resps, nil
}

// Health reports whether the service is up and its model is loaded. Used to
// gate whether predictions may be attempted at all.
func (c *Client) Health(ctx context.Context) (*risk.HealthResponse, error) {
	var resp risk.HealthResponse
	if err := c.doJSON(ctx, http.MethodGet, "/health", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Status == "" {
		return nil, apierr.Validation(fmt.Errorf("health response missing status"))
	}
	return &resp, nil
}

// ModelInfo returns implementation-defined model metadata.
func (c *Client) ModelInfo(ctx context.Context) (map[string]any, error) {
	var info map[string]any
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/model/info", nil, &info); err != nil {
		return nil, err
	}
	return info, nil
}

// doJSON issues one logical request with the client's transport retry policy.
// Service errors (non-2xx) and malformed bodies are permanent; only
// request-level failures are retried.
func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return apierr.Validation(fmt.Errorf("encode request: %w", err))
		}
	}

	attempt := 0
	err := retry.Do(ctx, c.MaxAttempts, c.RetryDelay, func() error {
		attempt++
		if attempt > 1 {
			metrics.TransportRetriesTotal.Inc()
			c.Logger.Debug("retrying request", "method", method, "path", path, "attempt", attempt)
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
		if err != nil {
			return retry.Permanent(apierr.Transport(err))
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			// Transient: eligible for the fixed-delay retry.
			return apierr.Transport(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return retry.Permanent(apierr.FromStatus(resp.StatusCode, extractDetail(resp)))
		}

		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return retry.Permanent(apierr.Validation(fmt.Errorf("decode response: %w", err)))
		}
		return nil
	})
	return err
}

// extractDetail pulls the server-provided {detail} message from an error
// body, falling back to the HTTP status text.
func extractDetail(resp *http.Response) string {
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&payload); err == nil && payload.Detail != "" {
		return payload.Detail
	}
	return http.StatusText(resp.StatusCode)
}

func asValidationErrors(err error, target *risk.ValidationErrors) bool {
	verrs, ok := err.(risk.ValidationErrors)
	if ok {
		*target = verrs
	}
	return ok
}

func outcomeLabel(err error) string {
	switch apierr.KindOf(err) {
	case apierr.KindTransport:
		return "transport_error"
	case apierr.KindService:
		return "service_error"
	case apierr.KindValidation:
		return "validation_error"
	default:
		return "error"
	}
}
