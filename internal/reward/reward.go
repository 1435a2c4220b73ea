// Package reward implements the Reward Function (spec.md §4.6): a pure map
// from (context, outcome) to a scalar reward plus a component breakdown,
// consumed by the Experience Buffer.
package reward

import "math"

// CostTier mirrors adapter.CostTier without importing internal/adapter,
// matching internal/state's policy of keeping the data-model/analysis
// layer free of execution-layer imports.
type CostTier string

const (
	TierCheap     CostTier = "cheap"
	TierMedium    CostTier = "medium"
	TierExpensive CostTier = "expensive"
)

// Context is the subset of session/task facts the reward function reads.
type Context struct {
	PhaseCompleted       bool
	EstimatedMinutes     float64
	ActualMinutes        float64
	ResourcesUsed        int
	MinimumResources     int
	ErrorCount           int
	PostGenModifications int
	SafetyViolations     bool
	TestsPassed          bool
	TotalCostUsd         float64
	AdapterTiers         []CostTier // one entry per successful Attempt, in order
	FallbackRotations    int
}

// Outcome is preserved for symmetry with spec.md's {context, outcome}
// input shape; this implementation folds both into Context since every
// referenced quantity is already an outcome fact.
type Outcome = Context

// Breakdown names every component's individual contribution, preserved
// verbatim in the Experience for later analysis.
type Breakdown map[string]float64

// Evaluate computes the scalar reward and its breakdown for ctx. Pure: no
// I/O, no randomness, same input always yields the same output.
func Evaluate(ctx Context) (float64, Breakdown) {
	b := Breakdown{}

	if ctx.PhaseCompleted {
		b["success"] = 100
	} else {
		b["success"] = -100
	}

	b["timeEfficiency"] = timeEfficiency(ctx)
	b["resourceEfficiency"] = resourceEfficiency(ctx)
	b["quality"] = quality(ctx)
	b["userSatisfaction"] = userSatisfaction(ctx)
	b["safety"] = safety(ctx)
	b["tests"] = testsComponent(ctx)
	b["costEfficiency"] = costEfficiency(ctx)
	b["cheapAdapterSuccesses"] = cheapAdapterSuccesses(ctx)
	b["expensiveAdapterOveruse"] = expensiveAdapterOveruse(ctx)
	b["fallbackRotations"] = float64(-10 * ctx.FallbackRotations)

	total := 0.0
	for _, v := range b {
		total += v
	}
	return total, b
}

func timeEfficiency(ctx Context) float64 {
	if !ctx.PhaseCompleted {
		return 0
	}
	actual := math.Max(ctx.ActualMinutes, 1)
	ratio := math.Min(ctx.EstimatedMinutes/actual, 2.0)
	return ratio * 20
}

func resourceEfficiency(ctx Context) float64 {
	if ctx.ResourcesUsed <= ctx.MinimumResources {
		return 10
	}
	return -5 * float64(ctx.ResourcesUsed-ctx.MinimumResources)
}

func quality(ctx Context) float64 {
	if ctx.ErrorCount == 0 {
		return 15
	}
	return -10 * float64(ctx.ErrorCount)
}

func userSatisfaction(ctx Context) float64 {
	if ctx.PostGenModifications == 0 {
		return 10
	}
	return -5 * float64(ctx.PostGenModifications)
}

func safety(ctx Context) float64 {
	if ctx.SafetyViolations {
		return -50
	}
	return 10
}

func testsComponent(ctx Context) float64 {
	if ctx.TestsPassed {
		return 5
	}
	return 0
}

func costEfficiency(ctx Context) float64 {
	switch {
	case ctx.TotalCostUsd < 0.10:
		return 50
	case ctx.TotalCostUsd >= 0.50:
		return -20
	default:
		return 0
	}
}

func cheapAdapterSuccesses(ctx Context) float64 {
	count := 0
	for _, t := range ctx.AdapterTiers {
		if t == TierCheap {
			count++
		}
	}
	return float64(10 * count)
}

func expensiveAdapterOveruse(ctx Context) float64 {
	count := 0
	for _, t := range ctx.AdapterTiers {
		if t == TierExpensive {
			count++
		}
	}
	over := count - 3
	if over < 0 {
		over = 0
	}
	return float64(-5 * over)
}
