package domain

import "fmt"

// Thresholds is the one global classification config record. It is passed
// into the engine by value at call time; callers snapshot it before a run.
type Thresholds struct {
    TopPerformerZ           float64 `json:"top_performer_z"`
    LowPerformerZ           float64 `json:"low_performer_z"`
    HighBugRate             float64 `json:"high_bug_rate"`
    HighReviseRate          float64 `json:"high_revise_rate"`
    OverloadedMultiplier    float64 `json:"overloaded_multiplier"`
    UnderutilizedMultiplier float64 `json:"underutilized_multiplier"`
    StoryPointsWeight       float64 `json:"story_points_weight"`
    TicketCountWeight       float64 `json:"ticket_count_weight"`
    ProjectVarietyWeight    float64 `json:"project_variety_weight"`
    ReviseRatePenalty       float64 `json:"revise_rate_penalty"`
    BugRatePenalty          float64 `json:"bug_rate_penalty"`
    UnderutilizedThreshold  float64 `json:"underutilized_threshold"`
    ActiveWeeksThreshold    float64 `json:"active_weeks_threshold"`
}

var defaultThresholds = Thresholds{
    TopPerformerZ:           1.0,
    LowPerformerZ:           -1.0,
    HighBugRate:             0.25,
    HighReviseRate:          0.25,
    OverloadedMultiplier:    1.5,
    UnderutilizedMultiplier: 0.5,
    StoryPointsWeight:       0.5,
    TicketCountWeight:       0.3,
    ProjectVarietyWeight:    0.2,
    ReviseRatePenalty:       0.5,
    BugRatePenalty:          0.5,
    UnderutilizedThreshold:  0.5,
    ActiveWeeksThreshold:    0.5,
}

// DefaultThresholds returns the documented defaults.
func DefaultThresholds() Thresholds { return defaultThresholds }

// Validate rejects configs the engine would misbehave on. The weight triple
// is not required to sum to 1; the score is a relative scale.
func (t Thresholds) Validate() error {
    if t.StoryPointsWeight < 0 || t.TicketCountWeight < 0 || t.ProjectVarietyWeight < 0 {
        return fmt.Errorf("thresholds: score weights must be non-negative")
    }
    rates := map[string]float64{
        "high_bug_rate":           t.HighBugRate,
        "high_revise_rate":        t.HighReviseRate,
        "underutilized_threshold": t.UnderutilizedThreshold,
        "active_weeks_threshold":  t.ActiveWeeksThreshold,
    }
    for name, v := range rates {
        if v < 0 || v > 1 { return fmt.Errorf("thresholds: %s must be within [0,1], got %v", name, v) }
    }
    if t.OverloadedMultiplier <= 0 || t.UnderutilizedMultiplier < 0 {
        return fmt.Errorf("thresholds: workload multipliers out of range")
    }
    return nil
}

// ThresholdsPatch is the wire/storage shape of a thresholds record. Fields
// absent from the stored or submitted JSON stay nil and fail closed to the
// documented defaults on Apply.
type ThresholdsPatch struct {
    TopPerformerZ           *float64 `json:"top_performer_z,omitempty"`
    LowPerformerZ           *float64 `json:"low_performer_z,omitempty"`
    HighBugRate             *float64 `json:"high_bug_rate,omitempty"`
    HighReviseRate          *float64 `json:"high_revise_rate,omitempty"`
    OverloadedMultiplier    *float64 `json:"overloaded_multiplier,omitempty"`
    UnderutilizedMultiplier *float64 `json:"underutilized_multiplier,omitempty"`
    StoryPointsWeight       *float64 `json:"story_points_weight,omitempty"`
    TicketCountWeight       *float64 `json:"ticket_count_weight,omitempty"`
    ProjectVarietyWeight    *float64 `json:"project_variety_weight,omitempty"`
    ReviseRatePenalty       *float64 `json:"revise_rate_penalty,omitempty"`
    BugRatePenalty          *float64 `json:"bug_rate_penalty,omitempty"`
    UnderutilizedThreshold  *float64 `json:"underutilized_threshold,omitempty"`
    ActiveWeeksThreshold    *float64 `json:"active_weeks_threshold,omitempty"`
}

// Apply overlays the patch on base and returns the result.
func (p ThresholdsPatch) Apply(base Thresholds) Thresholds {
    out := base
    set := func(dst *float64, v *float64) { if v != nil { *dst = *v } }
    set(&out.TopPerformerZ, p.TopPerformerZ)
    set(&out.LowPerformerZ, p.LowPerformerZ)
    set(&out.HighBugRate, p.HighBugRate)
    set(&out.HighReviseRate, p.HighReviseRate)
    set(&out.OverloadedMultiplier, p.OverloadedMultiplier)
    set(&out.UnderutilizedMultiplier, p.UnderutilizedMultiplier)
    set(&out.StoryPointsWeight, p.StoryPointsWeight)
    set(&out.TicketCountWeight, p.TicketCountWeight)
    set(&out.ProjectVarietyWeight, p.ProjectVarietyWeight)
    set(&out.ReviseRatePenalty, p.ReviseRatePenalty)
    set(&out.BugRatePenalty, p.BugRatePenalty)
    set(&out.UnderutilizedThreshold, p.UnderutilizedThreshold)
    set(&out.ActiveWeeksThreshold, p.ActiveWeeksThreshold)
    return out
}
