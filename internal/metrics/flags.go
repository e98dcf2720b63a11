package metrics

import (
    "sort"

    "github.com/teamlens/teamlens/internal/domain"
)

// flagAssignees assigns z-scores over effective story points and applies the
// threshold rules. All comparisons on the documented cut points are
// inclusive. Flags are independent; an assignee can be top_performer and
// high_bug_rate in the same run.
func flagAssignees(ms []domain.AssigneeMetrics, th domain.Thresholds) {
    if len(ms) == 0 { return }
    eff := make([]float64, len(ms))
    var maxWeeks float64
    for i, m := range ms {
        eff[i] = m.EffectiveStoryPoints
        if float64(m.ActiveWeeks) > maxWeeks { maxWeeks = float64(m.ActiveWeeks) }
    }
    zs := zScores(eff)
    typicalLoad := mean(eff)

    for i := range ms {
        ms[i].ZScore = zs[i]
        var flags []string
        if zs[i] >= th.TopPerformerZ { flags = append(flags, domain.FlagTopPerformer) }
        if zs[i] <= th.LowPerformerZ { flags = append(flags, domain.FlagLowPerformer) }
        if ms[i].BugRate >= th.HighBugRate { flags = append(flags, domain.FlagHighBugRate) }
        if ms[i].ReviseRate >= th.HighReviseRate { flags = append(flags, domain.FlagHighReviseRate) }
        if underutilizedAssignee(ms[i], typicalLoad, maxWeeks, th) {
            flags = append(flags, domain.FlagUnderutilized)
        }
        sort.Strings(flags)
        ms[i].Flags = flags
    }
}

// underutilizedAssignee: effective load below the configured fraction of the
// cohort's typical (mean) load, or active weeks below the configured share
// of the cohort maximum.
func underutilizedAssignee(m domain.AssigneeMetrics, typicalLoad, maxWeeks float64, th domain.Thresholds) bool {
    if typicalLoad > 0 && m.EffectiveStoryPoints < th.UnderutilizedThreshold*typicalLoad { return true }
    if maxWeeks > 0 && float64(m.ActiveWeeks)/maxWeeks < th.ActiveWeeksThreshold { return true }
    return false
}

// flagFunctions compares each function's average story points per member to
// the median of those averages across all functions.
func flagFunctions(fs []domain.FunctionMetrics, th domain.Thresholds) {
    if len(fs) == 0 { return }
    avgs := make([]float64, len(fs))
    for i, f := range fs {
        if f.MemberCount > 0 { avgs[i] = float64(f.TotalStoryPoints) / float64(f.MemberCount) }
    }
    med := median(avgs)
    if med == 0 { return }
    for i := range fs {
        var flags []string
        if avgs[i] > th.OverloadedMultiplier*med { flags = append(flags, domain.FlagOverloaded) }
        if avgs[i] < th.UnderutilizedMultiplier*med { flags = append(flags, domain.FlagUnderutilized) }
        fs[i].Flags = flags
    }
}
