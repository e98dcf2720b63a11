package metrics

import (
    "sort"

    "github.com/teamlens/teamlens/internal/domain"
)

type functionAcc struct {
    members   map[string]struct{}
    count     int
    totalSP   int
    bugSP     int
    reviseSP  int
    cycleSum  int
    cycleN    int
}

// AggregateFunctions folds the same closed-ticket set by function/team.
// Rates are story-point weighted, the same formula family as the assignee
// aggregator; cycle time averages only tickets with a non-null day delta.
func AggregateFunctions(tickets []domain.Ticket) []domain.FunctionMetrics {
    accs := map[string]*functionAcc{}
    for _, t := range tickets {
        if !t.Closed() || t.Function == "" { continue }
        f := accs[t.Function]
        if f == nil {
            f = &functionAcc{members: map[string]struct{}{}}
            accs[t.Function] = f
        }
        f.count++
        f.totalSP += t.StoryPoints
        switch {
        case t.IsRevise:
            f.reviseSP += t.StoryPoints
        case t.IsBug:
            f.bugSP += t.StoryPoints
        }
        if ValidAssignee(t.Assignee) { f.members[t.Assignee] = struct{}{} }
        if t.CycleDays != nil {
            f.cycleSum += *t.CycleDays
            f.cycleN++
        }
    }

    names := make([]string, 0, len(accs))
    for n := range accs { names = append(names, n) }
    sort.Strings(names)

    out := make([]domain.FunctionMetrics, 0, len(names))
    for _, n := range names {
        f := accs[n]
        m := domain.FunctionMetrics{
            Function:         n,
            MemberCount:      len(f.members),
            TicketCount:      f.count,
            TotalStoryPoints: f.totalSP,
        }
        if f.totalSP > 0 {
            m.BugRateClosed = float64(f.bugSP) / float64(f.totalSP)
            m.ReviseRateClosed = float64(f.reviseSP) / float64(f.totalSP)
        }
        if f.cycleN > 0 { m.AvgCycleTimeDays = float64(f.cycleSum) / float64(f.cycleN) }
        out = append(out, m)
    }
    return out
}
