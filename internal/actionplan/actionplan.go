// Package actionplan derives a prioritized, deduplicated list of action items
// from a risk prediction. Generation is a pure function: the same prediction
// and existing plan always produce the same output, with completion state
// carried over by title so checkboxes survive regeneration.
package actionplan

import (
	"fmt"
	"strings"

	"github.com/VoidEngineers/EduMind-sub000/internal/risk"
)

// Priority of an action item.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityStandard Priority = "standard"
)

// Category of an action item.
type Category string

const (
	CategoryAcademic       Category = "academic"
	CategoryEngagement     Category = "engagement"
	CategoryTimeManagement Category = "time-management"
	CategorySupport        Category = "support"
)

// ActionItem is one entry in a student's action plan. IsCompleted is the only
// field mutated after creation.
type ActionItem struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    Priority `json:"priority"`
	Category    Category `json:"category"`
	IsCompleted bool     `json:"isCompleted"`
	IsCustom    bool     `json:"isCustom,omitempty"`
}

// Generate builds the plan for a prediction: server recommendations first (in
// server order), then interventions for the top risk factors. Items are
// deduplicated by exact title, recommendations taking precedence.
func Generate(pred *risk.RiskPredictionResponse, existing []ActionItem) []ActionItem {
	var out []ActionItem
	seen := make(map[string]bool)
	idCounter := 1

	add := func(title, description string, priority Priority, category Category) {
		if seen[title] {
			return
		}
		seen[title] = true
		out = append(out, ActionItem{
			ID:          fmt.Sprintf("action-%d", idCounter),
			Title:       title,
			Description: description,
			Priority:    priority,
			Category:    category,
			IsCompleted: completionFor(existing, title),
		})
		idCounter++
	}

	for i, rec := range pred.Recommendations {
		add(rec,
			"Recommendation based on your risk profile",
			recommendationPriority(i, pred.RiskLevel),
			categorize(rec),
		)
	}

	factors := pred.TopRiskFactors
	if len(factors) > 3 {
		factors = factors[:3]
	}
	for _, factor := range factors {
		if item, ok := factorIntervention(factor.Feature, float64(factor.Value)); ok {
			add(item.Title, item.Description, item.Priority, item.Category)
		}
	}

	return out
}

// completionFor looks up a same-titled item in the previous plan.
func completionFor(existing []ActionItem, title string) bool {
	for _, item := range existing {
		if item.Title == title {
			return item.IsCompleted
		}
	}
	return false
}

// recommendationPriority assigns priority by position and risk level.
func recommendationPriority(index int, riskLevel string) Priority {
	switch riskLevel {
	case risk.LevelSafe:
		if index == 0 {
			return PriorityMedium
		}
		return PriorityStandard
	case risk.LevelMedium:
		switch index {
		case 0:
			return PriorityHigh
		case 1:
			return PriorityMedium
		default:
			return PriorityStandard
		}
	default: // At-Risk
		switch index {
		case 0:
			return PriorityCritical
		case 1:
			return PriorityHigh
		default:
			return PriorityMedium
		}
	}
}

// categorize maps a recommendation string to a category by keyword.
func categorize(recommendation string) Category {
	lower := strings.ToLower(recommendation)

	switch {
	case containsAny(lower, "tutor", "advisor", "counseling", "support"):
		return CategorySupport
	case containsAny(lower, "attend", "participate", "engage", "study group"):
		return CategoryEngagement
	case containsAny(lower, "schedule", "time", "deadline", "plan"):
		return CategoryTimeManagement
	default:
		return CategoryAcademic
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// intervention is a factor-derived action before dedup/completion.
type intervention struct {
	Title       string
	Description string
	Priority    Priority
	Category    Category
}

// factorRule maps feature-name substrings to an intervention. Rules are
// evaluated in order; the first match wins. bumped is the priority applied
// when the factor's value exceeds 0.5 (high impact).
type factorRule struct {
	keywords []string
	title    string
	describe func(feature string) string
	bumped   Priority
	base     Priority
	category Category
}

var factorRules = []factorRule{
	{
		keywords: []string{"grade"},
		title:    "Improve Grade Performance",
		describe: func(feature string) string {
			return fmt.Sprintf("Your %s is a significant risk factor. Schedule weekly tutoring sessions and focus on core concepts.", feature)
		},
		bumped:   PriorityCritical,
		base:     PriorityHigh,
		category: CategoryAcademic,
	},
	{
		keywords: []string{"consistency"},
		title:    "Build Grade Consistency",
		describe: func(string) string {
			return "Create a structured study schedule and review materials regularly to avoid performance fluctuations."
		},
		bumped:   PriorityHigh,
		base:     PriorityMedium,
		category: CategoryTimeManagement,
	},
	{
		keywords: []string{"assessment", "completion"},
		title:    "Complete All Assessments",
		describe: func(string) string {
			return "Prioritize completing all assignments on time. Use a task tracker to avoid missing deadlines."
		},
		bumped:   PriorityCritical,
		base:     PriorityCritical,
		category: CategoryAcademic,
	},
	{
		keywords: []string{"engagement"},
		title:    "Increase Class Engagement",
		describe: func(string) string {
			return "Attend all classes, participate actively in discussions, and join study groups to improve engagement."
		},
		bumped:   PriorityCritical,
		base:     PriorityHigh,
		category: CategoryEngagement,
	},
	{
		keywords: []string{"low_performance"},
		title:    "Address Performance Issues",
		describe: func(string) string {
			return "Meet with your academic advisor immediately to create a recovery plan and access support resources."
		},
		bumped:   PriorityCritical,
		base:     PriorityCritical,
		category: CategorySupport,
	},
	{
		keywords: []string{"prev_attempts", "previous_attempts"},
		title:    "Learn from Past Attempts",
		describe: func(string) string {
			return "Review what went wrong previously and implement new study strategies. Consider changing your approach."
		},
		bumped:   PriorityHigh,
		base:     PriorityHigh,
		category: CategoryAcademic,
	},
	{
		keywords: []string{"credit"},
		title:    "Manage Course Load",
		describe: func(string) string {
			return "Review your course load with an advisor. Consider reducing credits if overwhelmed or adding support courses."
		},
		bumped:   PriorityMedium,
		base:     PriorityMedium,
		category: CategorySupport,
	},
}

// factorIntervention maps a risk-factor feature name to an intervention.
// Unmatched feature names produce no item.
func factorIntervention(feature string, value float64) (intervention, bool) {
	lower := strings.ToLower(feature)
	highImpact := value > 0.5

	for _, rule := range factorRules {
		if !containsAny(lower, rule.keywords...) {
			continue
		}
		priority := rule.base
		if highImpact {
			priority = rule.bumped
		}
		return intervention{
			Title:       rule.title,
			Description: rule.describe(feature),
			Priority:    priority,
			Category:    rule.category,
		}, true
	}
	return intervention{}, false
}
