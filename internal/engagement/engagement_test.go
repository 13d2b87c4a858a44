package engagement

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VoidEngineers/EduMind-sub000/internal/apierr"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, nil)
}

func TestStats(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/stats", r.URL.Path)
		json.NewEncoder(w).Encode(SystemStats{
			TotalStudents:         1250,
			HighRiskStudents:      87,
			LowEngagementStudents: 203,
			AvgEngagementScore:    64.2,
		})
	})

	stats, err := client.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1250, stats.TotalStudents)
	assert.Equal(t, 87, stats.HighRiskStudents)
	assert.InDelta(t, 64.2, stats.AvgEngagementScore, 1e-9)
}

func TestStudentsLimit(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/students/list", r.URL.Path)
		assert.Equal(t, "25", r.URL.Query().Get("limit"))
		json.NewEncoder(w).Encode(StudentList{
			Total: 1,
			Limit: 25,
			Students: []StudentListItem{
				{StudentID: "S-1", EngagementScore: 71.5, EngagementLevel: "medium", AtRisk: false},
			},
		})
	})

	list, err := client.Students(context.Background(), 25)
	require.NoError(t, err)
	require.Len(t, list.Students, 1)
	assert.Equal(t, "S-1", list.Students[0].StudentID)
}

func TestStudentsDefaultLimit(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "200", r.URL.Query().Get("limit"))
		json.NewEncoder(w).Encode(StudentList{})
	})

	_, err := client.Students(context.Background(), 0)
	require.NoError(t, err)
}

func TestStudentDashboard(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/students/S-42/dashboard", r.URL.Path)
		json.NewEncoder(w).Encode(StudentDashboard{
			StudentID: "S-42",
			CurrentStatus: CurrentStatus{
				EngagementScore: 38.5,
				EngagementLevel: "low",
				AtRisk:          true,
				RiskLevel:       "high",
			},
			RecentTrend: RecentTrend{Direction: "declining", Change: -12.3, DaysAnalyzed: 14},
			Alerts: []Alert{
				{Severity: "high", Message: "Engagement dropped sharply", Action: "Contact student"},
			},
		})
	})

	dash, err := client.StudentDashboard(context.Background(), "S-42")
	require.NoError(t, err)
	assert.True(t, dash.CurrentStatus.AtRisk)
	assert.Equal(t, "declining", dash.RecentTrend.Direction)
	require.Len(t, dash.Alerts, 1)
	assert.Equal(t, "Contact student", dash.Alerts[0].Action)
}

func TestEngagementHistoryDays(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/engagement/students/S-7/history", r.URL.Path)
		assert.Equal(t, "14", r.URL.Query().Get("days"))
		json.NewEncoder(w).Encode([]HistoryItem{
			{Date: "2026-08-27", EngagementScore: 55, EngagementLevel: "medium", EngagementTrend: "stable"},
			{Date: "2026-08-28", EngagementScore: 58, EngagementLevel: "medium", EngagementTrend: "improving"},
		})
	})

	history, err := client.EngagementHistory(context.Background(), "S-7", 14)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "improving", history[1].EngagementTrend)
}

func TestDailyMetricsDefaultWindow(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "7", r.URL.Query().Get("days"))
		json.NewEncoder(w).Encode([]DailyMetric{
			{Date: "2026-08-28", LoginCount: 3, QuizAttempts: 2, AssignmentsSubmitted: 1},
		})
	})

	metrics, err := client.DailyMetrics(context.Background(), "S-7", 0)
	require.NoError(t, err)
	require.Len(t, metrics, 1)
	assert.Equal(t, 3, metrics[0].LoginCount)
}

func TestLatestPrediction(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/predictions/students/S-9/latest", r.URL.Path)
		json.NewEncoder(w).Encode(LatestPrediction{RiskProbability: 0.81, RiskLevel: "high"})
	})

	pred, err := client.LatestPrediction(context.Background(), "S-9")
	require.NoError(t, err)
	assert.InDelta(t, 0.81, pred.RiskProbability, 1e-9)
	assert.Equal(t, "high", pred.RiskLevel)
}

func TestGenerateSchedule(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/schedules/students/S-5/generate", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		json.NewEncoder(w).Encode(Schedule{
			SessionLengthMinutes:    25,
			SessionsPerDay:          4,
			TotalStudyMinutesPerDay: 100,
			LoadReductionFactor:     0.8,
			DailySchedules: []DaySchedule{
				{DayName: "Monday", TotalMinutes: 100, IsLightDay: false},
				{DayName: "Sunday", TotalMinutes: 40, IsLightDay: true},
			},
		})
	})

	schedule, err := client.GenerateSchedule(context.Background(), "S-5")
	require.NoError(t, err)
	assert.Equal(t, 25, schedule.SessionLengthMinutes)
	require.Len(t, schedule.DailySchedules, 2)
	assert.True(t, schedule.DailySchedules[1].IsLightDay)
}

func TestScheduleSummary(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/schedules/students/S-5/summary", r.URL.Path)
		json.NewEncoder(w).Encode(ScheduleSummary{
			Reasoning: map[string]string{"load": "reduced for low engagement"},
		})
	})

	summary, err := client.ScheduleSummary(context.Background(), "S-5")
	require.NoError(t, err)
	assert.Equal(t, "reduced for low engagement", summary.Reasoning["load"])
}

func TestEmptyStudentIDRejectedLocally(t *testing.T) {
	called := false
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := client.StudentDashboard(context.Background(), "")
	require.Error(t, err)
	assert.True(t, apierr.Is(err, apierr.KindState))

	_, err = client.EngagementSummary(context.Background(), "   ")
	require.Error(t, err)
	assert.True(t, apierr.Is(err, apierr.KindState))

	_, err = client.GenerateSchedule(context.Background(), "")
	require.Error(t, err)

	assert.False(t, called, "no request should reach the server")
}

func TestServiceErrorDetail(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"detail": "student not found"})
	})

	_, err := client.StudentDashboard(context.Background(), "S-missing")
	require.Error(t, err)
	assert.True(t, apierr.Is(err, apierr.KindService))

	var e *apierr.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, http.StatusNotFound, e.StatusCode)
	assert.Equal(t, "student not found", e.Message)
}

func TestTransportError(t *testing.T) {
	client := New("http://127.0.0.1:1", nil)

	_, err := client.Stats(context.Background())
	require.Error(t, err)
	assert.True(t, apierr.Is(err, apierr.KindTransport))
}
