package riskclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VoidEngineers/EduMind-sub000/internal/apierr"
	"github.com/VoidEngineers/EduMind-sub000/internal/risk"
)

func testRequest() risk.StudentRiskRequest {
	return risk.StudentRiskRequest{
		StudentID:                "S1",
		AvgGrade:                 45,
		GradeConsistency:         50,
		GradeRange:               40,
		NumAssessments:           5,
		AssessmentCompletionRate: 0.4,
		StudiedCredits:           60,
		NumOfPrevAttempts:        1,
		LowPerformance:           1,
		LowEngagement:            1,
		HasPreviousAttempts:      1,
	}
}

func predictionPayload(studentID string) map[string]any {
	return map[string]any{
		"student_id": studentID,
		"risk_level": "At-Risk",
		"risk_score": 0.82,
		"confidence": 91.0,
		"probabilities": map[string]float64{
			"Safe":    0.08,
			"At-Risk": 0.82,
		},
		"recommendations":  []string{"Schedule weekly tutoring sessions"},
		"top_risk_factors": []map[string]any{{"feature": "avg_grade", "value": 0.7, "impact": "critical"}},
		"prediction_id":    "pred_abc",
		"timestamp":        time.Now().UTC().Format(time.RFC3339),
	}
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New(srv.URL, nil)
	c.RetryDelay = time.Millisecond
	return c, srv
}

func TestPredict_Success(t *testing.T) {
	var gotPath string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		var req risk.StudentRiskRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "S1", req.StudentID)
		json.NewEncoder(w).Encode(predictionPayload(req.StudentID))
	}))

	req := testRequest()
	resp, err := c.Predict(context.Background(), &req)
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/academic-risk/predict", gotPath)
	assert.Equal(t, "At-Risk", resp.RiskLevel)
	assert.InDelta(t, 0.82, resp.RiskScore, 1e-9)
}

// An out-of-bounds field is rejected locally: zero network calls are made.
func TestPredict_InvalidRequestNoNetworkIO(t *testing.T) {
	var calls int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))

	req := testRequest()
	req.AssessmentCompletionRate = 1.5

	_, err := c.Predict(context.Background(), &req)
	require.Error(t, err)
	assert.Equal(t, apierr.KindValidation, apierr.KindOf(err))
	assert.Contains(t, err.Error(), "assessment_completion_rate")
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestPredict_ServiceErrorUsesDetail(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"detail": "feature vector mismatch"})
	}))

	req := testRequest()
	_, err := c.Predict(context.Background(), &req)
	require.Error(t, err)

	var e *apierr.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, apierr.KindService, e.Kind)
	assert.Equal(t, http.StatusBadRequest, e.StatusCode)
	assert.Equal(t, "feature vector mismatch", e.Message)
}

func TestPredict_ServiceErrorFallsBackToStatusText(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	req := testRequest()
	_, err := c.Predict(context.Background(), &req)

	var e *apierr.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, http.StatusText(http.StatusServiceUnavailable), e.Message)
}

// Service errors are permanent: no second request is issued.
func TestPredict_ServiceErrorNotRetried(t *testing.T) {
	var calls int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))

	req := testRequest()
	_, err := c.Predict(context.Background(), &req)
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

// A transport failure is retried once; the retry can succeed.
func TestPredict_TransportRetrySucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			// Kill the connection to force a request-level error.
			hj, ok := w.(http.Hijacker)
			require.True(t, ok)
			conn, _, err := hj.Hijack()
			require.NoError(t, err)
			conn.Close()
			return
		}
		json.NewEncoder(w).Encode(predictionPayload("S1"))
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	c.RetryDelay = time.Millisecond

	req := testRequest()
	resp, err := c.Predict(context.Background(), &req)
	require.NoError(t, err)
	assert.Equal(t, "S1", resp.StudentID)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestPredict_TransportExhaustedSurfacesTransportError(t *testing.T) {
	c := New("http://127.0.0.1:1", nil) // nothing listens here
	c.RetryDelay = time.Millisecond

	req := testRequest()
	_, err := c.Predict(context.Background(), &req)
	require.Error(t, err)
	assert.Equal(t, apierr.KindTransport, apierr.KindOf(err))
}

// A 2xx body that fails schema validation is a contract break, not a
// transport failure: classified as validation, not retried.
func TestPredict_InvalidResponseBody(t *testing.T) {
	var calls int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		payload := predictionPayload("S1")
		payload["risk_score"] = 3.5
		json.NewEncoder(w).Encode(payload)
	}))

	req := testRequest()
	_, err := c.Predict(context.Background(), &req)
	require.Error(t, err)
	assert.Equal(t, apierr.KindValidation, apierr.KindOf(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestPredict_FiltersInvalidFactors(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := predictionPayload("S1")
		payload["top_risk_factors"] = []map[string]any{
			{"feature": "", "value": "not-a-number", "impact": "neutral"},
			{"feature": "low_engagement", "value": 0, "impact": "neutral"},
		}
		json.NewEncoder(w).Encode(payload)
	}))

	req := testRequest()
	resp, err := c.Predict(context.Background(), &req)
	require.NoError(t, err)
	require.Len(t, resp.TopRiskFactors, 1)
	assert.Equal(t, "low_engagement", resp.TopRiskFactors[0].Feature)
}

func TestBatchPredict_FailFastBeforeNetwork(t *testing.T) {
	var calls int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))

	good := testRequest()
	bad := testRequest()
	bad.AvgGrade = 250

	_, err := c.BatchPredict(context.Background(), []risk.StudentRiskRequest{good, bad, good})
	require.Error(t, err)
	assert.Equal(t, apierr.KindValidation, apierr.KindOf(err))
	assert.Contains(t, err.Error(), "students[1].avg_grade")
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestBatchPredict_Success(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/academic-risk/batch-predict", r.URL.Path)
		var body struct {
			Students []risk.StudentRiskRequest `json:"students"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		out := make([]map[string]any, len(body.Students))
		for i, s := range body.Students {
			out[i] = predictionPayload(s.StudentID)
		}
		json.NewEncoder(w).Encode(out)
	}))

	a := testRequest()
	b := testRequest()
	b.StudentID = "S2"

	resps, err := c.BatchPredict(context.Background(), []risk.StudentRiskRequest{a, b})
	require.NoError(t, err)
	require.Len(t, resps, 2)
	assert.Equal(t, "S2", resps[1].StudentID)
}

func TestHealth(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"status":       "healthy",
			"service":      "xai-risk",
			"version":      "1.4.0",
			"model_loaded": true,
		})
	}))

	h, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.True(t, h.ModelLoaded)
	assert.Equal(t, "healthy", h.Status)
}

func TestModelInfo(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/model/info", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{"model": "xgboost", "features": 11})
	}))

	info, err := c.ModelInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "xgboost", info["model"])
}
