package actionplan

import (
	"math"
	"strings"
)

// BaselinePlan returns the fixed plan for a risk level, used when a
// prediction carries no recommendations or factors to derive from.
func BaselinePlan(riskLevel string) []ActionItem {
	switch riskLevel {
	case "Safe":
		return []ActionItem{
			{ID: "1", Title: "Maintain Excellence", Description: "Continue your current study habits and maintain consistent performance across all modules", Priority: PriorityStandard, Category: CategoryAcademic},
			{ID: "2", Title: "Peer Mentoring", Description: "Share your success strategies with struggling peers through study groups or tutoring", Priority: PriorityMedium, Category: CategoryEngagement},
			{ID: "3", Title: "Advanced Challenges", Description: "Explore additional learning materials, research papers, and advanced topics in your field", Priority: PriorityStandard, Category: CategoryAcademic},
			{ID: "4", Title: "Leadership Opportunities", Description: "Take on leadership roles in group projects, class presentations, and student organizations", Priority: PriorityMedium, Category: CategoryEngagement},
			{ID: "5", Title: "Aim for Distinction", Description: "Set goals to achieve distinction-level grades (80%+) in all remaining modules", Priority: PriorityHigh, Category: CategoryAcademic},
			{ID: "6", Title: "Build Your Portfolio", Description: "Work on side projects, research, or internships to enhance your academic portfolio", Priority: PriorityMedium, Category: CategoryEngagement},
		}
	case "Medium Risk":
		return []ActionItem{
			{ID: "1", Title: "Weekly Academic Check-ins", Description: "Schedule weekly meetings with your tutor to review progress and address concerns immediately", Priority: PriorityHigh, Category: CategorySupport},
			{ID: "2", Title: "Structured Study Schedule", Description: "Create and follow a daily study timetable with specific goals for each 2-hour session", Priority: PriorityHigh, Category: CategoryTimeManagement},
			{ID: "3", Title: "Join Study Groups", Description: "Participate in peer study groups 2-3 times per week for collaborative learning and support", Priority: PriorityMedium, Category: CategoryEngagement},
			{ID: "4", Title: "Complete All Assessments", Description: "Prioritize completing all assignments on time, even if perfection isn't possible initially", Priority: PriorityCritical, Category: CategoryAcademic},
			{ID: "5", Title: "Improve Weak Areas", Description: "Identify subjects where you scored below 60% and dedicate 3+ hours weekly to improvement", Priority: PriorityHigh, Category: CategoryAcademic},
			{ID: "6", Title: "Use Learning Resources", Description: "Access library resources, online tutorials, academic workshops, and supplementary materials", Priority: PriorityMedium, Category: CategoryAcademic},
			{ID: "7", Title: "Active Class Participation", Description: "Attend all classes, ask questions, and engage actively with course materials and discussions", Priority: PriorityHigh, Category: CategoryEngagement},
		}
	default:
		return []ActionItem{
			{ID: "1", Title: "URGENT: Emergency Academic Advisor Meeting", Description: "Schedule immediate meeting with academic advisor to create a comprehensive intervention plan", Priority: PriorityCritical, Category: CategorySupport},
			{ID: "2", Title: "Intensive Tutoring Sessions", Description: "Attend mandatory tutoring sessions 3-4 times per week for all struggling subjects", Priority: PriorityCritical, Category: CategorySupport},
			{ID: "3", Title: "Daily Study Commitment", Description: "Dedicate minimum 3-4 hours daily to focused study with regular 10-minute breaks", Priority: PriorityCritical, Category: CategoryTimeManagement},
			{ID: "4", Title: "Complete Overdue Work", Description: "Immediately prioritize and complete all missing or late assignments - negotiate extensions if needed", Priority: PriorityCritical, Category: CategoryAcademic},
			{ID: "5", Title: "Attend All Classes", Description: "Ensure 100% attendance in all lectures, labs, tutorials, and mandatory sessions", Priority: PriorityCritical, Category: CategoryEngagement},
			{ID: "6", Title: "Academic Skills Workshop", Description: "Enroll in academic skills workshops for time management, study techniques, exam preparation", Priority: PriorityHigh, Category: CategorySupport},
			{ID: "7", Title: "Weekly Progress Reports", Description: "Submit weekly progress reports to your academic advisor showing all completed work and improvements", Priority: PriorityHigh, Category: CategoryAcademic},
			{ID: "8", Title: "Seek Counseling Support", Description: "If personal issues are affecting studies, schedule counseling sessions immediately", Priority: PriorityMedium, Category: CategorySupport},
			{ID: "9", Title: "Create Recovery Plan", Description: "Work with advisor to create detailed recovery plan with specific grades needed to pass", Priority: PriorityCritical, Category: CategoryAcademic},
		}
	}
}

// Filter applies free-text search over title+description plus category,
// priority and completion predicates. All predicates are ANDed; an empty
// category or priority list means no restriction on that dimension.
func Filter(items []ActionItem, query string, categories []Category, priorities []Priority, showCompleted bool) []ActionItem {
	lowerQuery := strings.ToLower(query)

	var out []ActionItem
	for _, item := range items {
		if !showCompleted && item.IsCompleted {
			continue
		}
		if len(categories) > 0 && !containsCategory(categories, item.Category) {
			continue
		}
		if len(priorities) > 0 && !containsPriority(priorities, item.Priority) {
			continue
		}
		if lowerQuery != "" &&
			!strings.Contains(strings.ToLower(item.Title), lowerQuery) &&
			!strings.Contains(strings.ToLower(item.Description), lowerQuery) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func containsCategory(list []Category, c Category) bool {
	for _, v := range list {
		if v == c {
			return true
		}
	}
	return false
}

func containsPriority(list []Priority, p Priority) bool {
	for _, v := range list {
		if v == p {
			return true
		}
	}
	return false
}

// Progress returns the completed percentage of a plan, rounded.
func Progress(items []ActionItem) int {
	if len(items) == 0 {
		return 0
	}
	completed := 0
	for _, item := range items {
		if item.IsCompleted {
			completed++
		}
	}
	return int(math.Round(float64(completed) / float64(len(items)) * 100))
}

// RiskSubtitle returns the plan header message for a risk level.
func RiskSubtitle(riskLevel string) string {
	switch riskLevel {
	case "Safe":
		return "Maintain your excellent performance with these enhancement strategies"
	case "Medium Risk":
		return "Follow these steps to improve your academic standing"
	default:
		return "URGENT: Immediate action required to prevent academic failure"
	}
}
