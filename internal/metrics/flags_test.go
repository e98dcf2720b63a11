package metrics

import (
    "testing"

    "github.com/teamlens/teamlens/internal/domain"
)

func TestFlagAssignees_ZScoreCutPoints(t *testing.T) {
    th := domain.DefaultThresholds()
    ms := []domain.AssigneeMetrics{
        {Assignee: "A", EffectiveStoryPoints: 100, ActiveWeeks: 4},
        {Assignee: "B", EffectiveStoryPoints: 20, ActiveWeeks: 4},
    }
    // mean 60, population deviation 40: z = +1.0 / -1.0, exactly on the
    // default cut points, and the boundaries are inclusive.
    flagAssignees(ms, th)
    if ms[0].ZScore != 1 || ms[1].ZScore != -1 { t.Fatalf("zs = %v / %v", ms[0].ZScore, ms[1].ZScore) }
    if !ms[0].HasFlag(domain.FlagTopPerformer) { t.Fatalf("A flags = %v, want top_performer", ms[0].Flags) }
    if ms[0].HasFlag(domain.FlagLowPerformer) { t.Fatalf("A must not be low_performer") }
    if !ms[1].HasFlag(domain.FlagLowPerformer) { t.Fatalf("B flags = %v, want low_performer", ms[1].Flags) }
    // B also sits below half the typical load, so both flags coexist
    if !ms[1].HasFlag(domain.FlagUnderutilized) { t.Fatalf("B flags = %v, want underutilized too", ms[1].Flags) }
}

func TestFlagAssignees_RateBoundariesInclusive(t *testing.T) {
    th := domain.DefaultThresholds()
    ms := []domain.AssigneeMetrics{
        {Assignee: "A", EffectiveStoryPoints: 40, ActiveWeeks: 3, BugRate: 0.25, ReviseRate: 0.2499},
        {Assignee: "B", EffectiveStoryPoints: 40, ActiveWeeks: 3, BugRate: 0.2499, ReviseRate: 0.25},
    }
    flagAssignees(ms, th)
    if !ms[0].HasFlag(domain.FlagHighBugRate) { t.Fatalf("bug rate exactly at the threshold must flag: %v", ms[0].Flags) }
    if ms[0].HasFlag(domain.FlagHighReviseRate) { t.Fatalf("revise rate below the threshold must not flag: %v", ms[0].Flags) }
    if ms[1].HasFlag(domain.FlagHighBugRate) { t.Fatalf("bug rate below the threshold must not flag: %v", ms[1].Flags) }
    if !ms[1].HasFlag(domain.FlagHighReviseRate) { t.Fatalf("revise rate exactly at the threshold must flag: %v", ms[1].Flags) }
}

func TestFlagAssignees_ZeroVarianceNoPerformanceFlags(t *testing.T) {
    th := domain.DefaultThresholds()
    ms := []domain.AssigneeMetrics{
        {Assignee: "A", EffectiveStoryPoints: 30, ActiveWeeks: 2},
        {Assignee: "B", EffectiveStoryPoints: 30, ActiveWeeks: 2},
        {Assignee: "C", EffectiveStoryPoints: 30, ActiveWeeks: 2},
    }
    flagAssignees(ms, th)
    for _, m := range ms {
        if m.ZScore != 0 { t.Fatalf("%s z = %v, want 0 on a flat cohort", m.Assignee, m.ZScore) }
        if m.HasFlag(domain.FlagTopPerformer) || m.HasFlag(domain.FlagLowPerformer) {
            t.Fatalf("%s flags = %v, flat cohort has no outliers", m.Assignee, m.Flags)
        }
    }
}

func TestFlagAssignees_UnderutilizedByInactivity(t *testing.T) {
    th := domain.DefaultThresholds()
    ms := []domain.AssigneeMetrics{
        {Assignee: "A", EffectiveStoryPoints: 30, ActiveWeeks: 6},
        {Assignee: "B", EffectiveStoryPoints: 30, ActiveWeeks: 2},
    }
    // equal load, but B was active in a third of the weeks A was
    flagAssignees(ms, th)
    if ms[0].HasFlag(domain.FlagUnderutilized) { t.Fatalf("A flags = %v", ms[0].Flags) }
    if !ms[1].HasFlag(domain.FlagUnderutilized) { t.Fatalf("B flags = %v, want underutilized", ms[1].Flags) }
}

func TestFlagAssignees_FlagsAreSortedSets(t *testing.T) {
    th := domain.DefaultThresholds()
    ms := []domain.AssigneeMetrics{
        {Assignee: "A", EffectiveStoryPoints: 100, ActiveWeeks: 4, BugRate: 0.5, ReviseRate: 0.5},
        {Assignee: "B", EffectiveStoryPoints: 20, ActiveWeeks: 4},
    }
    flagAssignees(ms, th)
    for _, m := range ms {
        for i := 1; i < len(m.Flags); i++ {
            if m.Flags[i-1] >= m.Flags[i] { t.Fatalf("%s flags not a sorted set: %v", m.Assignee, m.Flags) }
        }
    }
    // quality flags stack on top of the performance flag
    if !ms[0].HasFlag(domain.FlagTopPerformer) || !ms[0].HasFlag(domain.FlagHighBugRate) || !ms[0].HasFlag(domain.FlagHighReviseRate) {
        t.Fatalf("A flags = %v", ms[0].Flags)
    }
}

func TestFlagFunctions_AgainstMedianLoad(t *testing.T) {
    th := domain.DefaultThresholds()
    fs := []domain.FunctionMetrics{
        {Function: "Backend", TotalStoryPoints: 80, MemberCount: 2},  // avg 40
        {Function: "Frontend", TotalStoryPoints: 30, MemberCount: 3}, // avg 10
        {Function: "QA", TotalStoryPoints: 20, MemberCount: 2},       // avg 10
        {Function: "Docs", TotalStoryPoints: 2, MemberCount: 1},      // avg 2
    }
    // median of {40, 10, 10, 2} is 10: overloaded above 15, underutilized below 5
    flagFunctions(fs, th)
    if !fs[0].HasFlag(domain.FlagOverloaded) { t.Fatalf("Backend flags = %v", fs[0].Flags) }
    if len(fs[1].Flags) != 0 || len(fs[2].Flags) != 0 { t.Fatalf("mid-load functions must be unflagged: %v / %v", fs[1].Flags, fs[2].Flags) }
    if !fs[3].HasFlag(domain.FlagUnderutilized) { t.Fatalf("Docs flags = %v", fs[3].Flags) }
}

func TestFlagFunctions_ZeroMedianFlagsNothing(t *testing.T) {
    th := domain.DefaultThresholds()
    fs := []domain.FunctionMetrics{
        {Function: "Backend", TotalStoryPoints: 0, MemberCount: 2},
        {Function: "Frontend", TotalStoryPoints: 0, MemberCount: 1},
    }
    flagFunctions(fs, th)
    for _, f := range fs {
        if len(f.Flags) != 0 { t.Fatalf("%s flags = %v, want none when the median is 0", f.Function, f.Flags) }
    }
}
