package entitlements

import "strings"

type Plan string

const (
	PlanFree     Plan = "free"
	PlanTrial    Plan = "trial"
	PlanStandard Plan = "standard"
	PlanPremium  Plan = "premium"
	PlanStudio   Plan = "studio"
)

// Normalize maps arbitrary plan strings to a known Plan, defaulting to free.
func Normalize(plan string) Plan {
	switch strings.ToLower(strings.TrimSpace(plan)) {
	case string(PlanTrial):
		return PlanTrial
	case string(PlanStandard):
		return PlanStandard
	case string(PlanPremium):
		return PlanPremium
	case string(PlanStudio):
		return PlanStudio
	default:
		return PlanFree
	}
}

// Rank orders plans for comparisons; higher is better.
func Rank(plan Plan) int {
	switch plan {
	case PlanStudio:
		return 4
	case PlanPremium:
		return 3
	case PlanStandard:
		return 2
	case PlanTrial:
		return 1
	default:
		return 0
	}
}

// AllowedQualities returns which stream qualities a plan may request.
func AllowedQualities(plan Plan) (standard, high, lossless bool) {
	switch plan {
	case PlanStudio:
		return true, true, true
	case PlanStandard, PlanPremium, PlanTrial:
		return true, true, false
	default:
		return true, false, false
	}
}

// MaxConcurrentStreams returns the stream cap per plan.
func MaxConcurrentStreams(plan Plan) int {
	switch plan {
	case PlanStudio:
		return 5
	case PlanPremium:
		return 3
	case PlanStandard, PlanTrial:
		return 2
	default:
		return 1
	}
}
