// Package engagement is the read-mostly HTTP client for the engagement
// tracker service: system stats, per-student dashboards, engagement history
// and study-schedule generation. Unlike the prediction client it carries no
// retry policy; dashboard reads are cheap to reissue from the caller.
package engagement

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/VoidEngineers/EduMind-sub000/internal/apierr"
)

// Client calls the engagement tracker service.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// New creates an engagement client with a default timeout.
func New(baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Logger:     logger,
	}
}

// HealthResponse is the service liveness report.
type HealthResponse struct {
	Status string `json:"status"`
}

// SystemStats aggregates engagement across the whole cohort.
type SystemStats struct {
	TotalStudents         int     `json:"total_students"`
	HighRiskStudents      int     `json:"high_risk_students"`
	LowEngagementStudents int     `json:"low_engagement_students"`
	AvgEngagementScore    float64 `json:"avg_engagement_score"`
}

// StudentListItem is one row of the cohort listing.
type StudentListItem struct {
	StudentID       string   `json:"student_id"`
	EngagementScore float64  `json:"engagement_score"`
	EngagementLevel string   `json:"engagement_level"`
	EngagementTrend string   `json:"engagement_trend"`
	AtRisk          bool     `json:"at_risk"`
	RiskLevel       string   `json:"risk_level"`
	RiskProbability *float64 `json:"risk_probability"`
	LastUpdated     string   `json:"last_updated"`
}

// StudentList is a paged cohort listing.
type StudentList struct {
	Total    int               `json:"total"`
	Offset   int               `json:"offset"`
	Limit    int               `json:"limit"`
	Students []StudentListItem `json:"students"`
}

// CurrentStatus is a student's present engagement standing.
type CurrentStatus struct {
	EngagementScore float64  `json:"engagement_score"`
	EngagementLevel string   `json:"engagement_level"`
	AtRisk          bool     `json:"at_risk"`
	RiskLevel       string   `json:"risk_level"`
	RiskProbability *float64 `json:"risk_probability"`
}

// RecentTrend summarizes the engagement direction over the analyzed window.
type RecentTrend struct {
	Direction    string  `json:"direction"`
	Change       float64 `json:"change"`
	DaysAnalyzed int     `json:"days_analyzed"`
}

// ComponentScores breaks the engagement score down by activity type.
type ComponentScores struct {
	Login       float64 `json:"login"`
	Session     float64 `json:"session"`
	Interaction float64 `json:"interaction"`
	Forum       float64 `json:"forum"`
	Assignment  float64 `json:"assignment"`
}

// Alert is an actionable warning attached to a student dashboard.
type Alert struct {
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Action   string `json:"action"`
}

// StudentDashboard is the full per-student engagement view.
type StudentDashboard struct {
	StudentID       string          `json:"student_id"`
	CurrentStatus   CurrentStatus   `json:"current_status"`
	RecentTrend     RecentTrend     `json:"recent_trend"`
	ComponentScores ComponentScores `json:"component_scores"`
	Alerts          []Alert         `json:"alerts"`
	LastUpdated     string          `json:"last_updated"`
}

// HistoryItem is one day of engagement scoring.
type HistoryItem struct {
	Date            string  `json:"date"`
	EngagementScore float64 `json:"engagement_score"`
	EngagementLevel string  `json:"engagement_level"`
	EngagementTrend string  `json:"engagement_trend"`
}

// Summary condenses a student's tracked engagement.
type Summary struct {
	StudentID              string  `json:"student_id"`
	DaysTracked            int     `json:"days_tracked"`
	AvgEngagementScore     float64 `json:"avg_engagement_score"`
	CurrentEngagementLevel string  `json:"current_engagement_level"`
	Trend                  *string `json:"trend"`
	LastUpdated            string  `json:"last_updated"`
}

// DailyMetric is one day of raw activity counts.
type DailyMetric struct {
	Date                        string `json:"date"`
	LoginCount                  int    `json:"login_count"`
	TotalSessionDurationMinutes int    `json:"total_session_duration_minutes"`
	PageViews                   int    `json:"page_views"`
	ContentInteractions         int    `json:"content_interactions"`
	ForumPosts                  int    `json:"forum_posts"`
	ForumReplies                int    `json:"forum_replies"`
	QuizAttempts                int    `json:"quiz_attempts"`
	AssignmentsSubmitted        int    `json:"assignments_submitted"`
}

// LatestPrediction is the tracker's most recent risk estimate for a student.
type LatestPrediction struct {
	RiskProbability     float64        `json:"risk_probability"`
	RiskLevel           string         `json:"risk_level"`
	ContributingFactors map[string]any `json:"contributing_factors,omitempty"`
}

// TaskBreakdown splits a study day into task minutes.
type TaskBreakdown struct {
	AssignmentPrepMinutes  int `json:"assignment_prep_minutes,omitempty"`
	QuizInteractionMinutes int `json:"quiz_interaction_minutes,omitempty"`
	ForumEngagementMinutes int `json:"forum_engagement_minutes,omitempty"`
	GeneralStudyMinutes    int `json:"general_study_minutes,omitempty"`
}

// DaySchedule is one day of a generated study schedule.
type DaySchedule struct {
	DayName       string            `json:"day_name"`
	TotalMinutes  int               `json:"total_minutes"`
	Sessions      []json.RawMessage `json:"sessions"`
	IsLightDay    bool              `json:"is_light_day"`
	TaskBreakdown *TaskBreakdown    `json:"task_breakdown,omitempty"`
}

// Schedule is a generated weekly study schedule.
type Schedule struct {
	SessionLengthMinutes    int           `json:"session_length_minutes"`
	SessionsPerDay          int           `json:"sessions_per_day"`
	TotalStudyMinutesPerDay int           `json:"total_study_minutes_per_day"`
	LoadReductionFactor     float64       `json:"load_reduction_factor"`
	DailySchedules          []DaySchedule `json:"daily_schedules"`
}

// ScheduleSummary carries the reasoning behind a generated schedule.
type ScheduleSummary struct {
	Reasoning map[string]string `json:"reasoning,omitempty"`
}

// Health reports service liveness.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.get(ctx, "/health", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stats returns cohort-wide engagement aggregates.
func (c *Client) Stats(ctx context.Context) (*SystemStats, error) {
	var resp SystemStats
	if err := c.get(ctx, "/api/v1/stats", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Students lists the cohort, capped at limit rows.
func (c *Client) Students(ctx context.Context, limit int) (*StudentList, error) {
	if limit <= 0 {
		limit = 200
	}
	var resp StudentList
	if err := c.get(ctx, fmt.Sprintf("/api/v1/students/list?limit=%d", limit), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StudentDashboard returns the full engagement view for one student.
func (c *Client) StudentDashboard(ctx context.Context, studentID string) (*StudentDashboard, error) {
	if err := requireStudentID(studentID); err != nil {
		return nil, err
	}
	var resp StudentDashboard
	path := fmt.Sprintf("/api/v1/students/%s/dashboard", url.PathEscape(studentID))
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// EngagementHistory returns daily engagement scores over the last days.
func (c *Client) EngagementHistory(ctx context.Context, studentID string, days int) ([]HistoryItem, error) {
	if err := requireStudentID(studentID); err != nil {
		return nil, err
	}
	if days <= 0 {
		days = 30
	}
	var resp []HistoryItem
	path := fmt.Sprintf("/api/v1/engagement/students/%s/history?days=%d", url.PathEscape(studentID), days)
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// DailyMetrics returns raw activity counts over the last days.
func (c *Client) DailyMetrics(ctx context.Context, studentID string, days int) ([]DailyMetric, error) {
	if err := requireStudentID(studentID); err != nil {
		return nil, err
	}
	if days <= 0 {
		days = 7
	}
	var resp []DailyMetric
	path := fmt.Sprintf("/api/v1/engagement/students/%s/metrics?days=%d", url.PathEscape(studentID), days)
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// EngagementSummary condenses a student's tracked engagement.
func (c *Client) EngagementSummary(ctx context.Context, studentID string) (*Summary, error) {
	if err := requireStudentID(studentID); err != nil {
		return nil, err
	}
	var resp Summary
	path := fmt.Sprintf("/api/v1/engagement/students/%s/summary", url.PathEscape(studentID))
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LatestPrediction returns the tracker's most recent risk estimate.
func (c *Client) LatestPrediction(ctx context.Context, studentID string) (*LatestPrediction, error) {
	if err := requireStudentID(studentID); err != nil {
		return nil, err
	}
	var resp LatestPrediction
	path := fmt.Sprintf("/api/v1/predictions/students/%s/latest", url.PathEscape(studentID))
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GenerateSchedule asks the service to build a study schedule for a student.
func (c *Client) GenerateSchedule(ctx context.Context, studentID string) (*Schedule, error) {
	if err := requireStudentID(studentID); err != nil {
		return nil, err
	}
	var resp Schedule
	path := fmt.Sprintf("/api/v1/schedules/students/%s/generate", url.PathEscape(studentID))
	if err := c.do(ctx, http.MethodPost, path, struct{}{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ScheduleSummary returns the reasoning for the latest generated schedule.
func (c *Client) ScheduleSummary(ctx context.Context, studentID string) (*ScheduleSummary, error) {
	if err := requireStudentID(studentID); err != nil {
		return nil, err
	}
	var resp ScheduleSummary
	path := fmt.Sprintf("/api/v1/schedules/students/%s/summary", url.PathEscape(studentID))
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func requireStudentID(studentID string) error {
	if strings.TrimSpace(studentID) == "" {
		return apierr.State("no student selected")
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var reader io.Reader
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return apierr.Validation(fmt.Errorf("encode request: %w", err))
		}
		reader = strings.NewReader(string(body))
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return apierr.Transport(err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return apierr.Transport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apierr.FromStatus(resp.StatusCode, extractDetail(resp))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apierr.Validation(fmt.Errorf("decode response: %w", err))
	}
	return nil
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
