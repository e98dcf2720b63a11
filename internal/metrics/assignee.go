/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package metrics

import (
    "sort"
    "strings"

    "github.com/teamlens/teamlens/internal/domain"
)

// ValidAssignee reports whether the name denotes a real individual
// contributor. Team names, placeholders, and deleted-user markers are not
// people and never receive per-person metrics.
func ValidAssignee(name string) bool {
    s := strings.TrimSpace(name)
    if s == "" { return false }
    switch strings.ToLower(s) {
    case "unassigned", "n/a", "na", "-", "none":
        return false
    }
    ls := strings.ToLower(s)
    if strings.HasSuffix(ls, "team") { return false }
    if strings.HasPrefix(ls, "deleted") || strings.Contains(ls, "deactivated") { return false }
    return true
}

type assigneeAcc struct {
    function    string
    count       int
    totalSP     int
    userStorySP int
    bugSP       int
    reviseSP    int
    projects    map[string]struct{}
    weeks       map[string]struct{}
}

// AggregateAssignees folds closed tickets with valid assignees into
// per-person metrics. Each ticket lands in exactly one of the three story
// point buckets; revise takes precedence over bug. Output order is by
// assignee name only so runs are reproducible; consumers sort for display.
func AggregateAssignees(tickets []domain.Ticket, th domain.Thresholds) []domain.AssigneeMetrics {
    accs := map[string]*assigneeAcc{}
    for _, t := range tickets {
        if !t.Closed() || !ValidAssignee(t.Assignee) { continue }
        a := accs[t.Assignee]
        if a == nil {
            a = &assigneeAcc{projects: map[string]struct{}{}, weeks: map[string]struct{}{}}
            accs[t.Assignee] = a
        }
        if a.function == "" { a.function = t.Function }
        a.count++
        a.totalSP += t.StoryPoints
        switch {
        case t.IsRevise:
            a.reviseSP += t.StoryPoints
        case t.IsBug:
            a.bugSP += t.StoryPoints
        default:
            a.userStorySP += t.StoryPoints
        }
        if t.Project != "" { a.projects[t.Project] = struct{}{} }
        if t.SprintClosed != "" { a.weeks[t.SprintClosed] = struct{}{} }
    }

    names := make([]string, 0, len(accs))
    for n := range accs { names = append(names, n) }
    sort.Strings(names)

    out := make([]domain.AssigneeMetrics, 0, len(names))
    for _, n := range names {
        a := accs[n]
        m := domain.AssigneeMetrics{
            Assignee:          n,
            Function:          a.function,
            TicketCount:       a.count,
            TotalStoryPoints:  a.totalSP,
            UserStoryPoints:   a.userStorySP,
            BugStoryPoints:    a.bugSP,
            ReviseStoryPoints: a.reviseSP,
            ProjectsWorkedOn:  len(a.projects),
            ActiveWeeks:       len(a.weeks),
        }
        if a.totalSP > 0 {
            m.BugRate = float64(a.bugSP) / float64(a.totalSP)
            m.ReviseRate = float64(a.reviseSP) / float64(a.totalSP)
        }
        m.EffectiveStoryPoints = effectivePoints(float64(a.totalSP), m.ReviseRate, m.BugRate, th)
        out = append(out, m)
    }
    scorePerformance(out, th)
    return out
}

// effectivePoints discounts raw volume by rework rates, floored at 0.
func effectivePoints(total, reviseRate, bugRate float64, th domain.Thresholds) float64 {
    eff := total * (1 - th.ReviseRatePenalty*reviseRate) * (1 - th.BugRatePenalty*bugRate)
    if eff < 0 { return 0 }
    return eff
}

// scorePerformance combines three max-normalized sub-scores. The basis
// (cohort maximum) is applied uniformly so scores compare within one run.
func scorePerformance(ms []domain.AssigneeMetrics, th domain.Thresholds) {
    var maxEff, maxCount, maxProj float64
    for _, m := range ms {
        if m.EffectiveStoryPoints > maxEff { maxEff = m.EffectiveStoryPoints }
        if float64(m.TicketCount) > maxCount { maxCount = float64(m.TicketCount) }
        if float64(m.ProjectsWorkedOn) > maxProj { maxProj = float64(m.ProjectsWorkedOn) }
    }
    ratio := func(v, max float64) float64 { if max == 0 { return 0 }; return v / max }
    for i := range ms {
        ms[i].PerformanceScore = th.StoryPointsWeight*ratio(ms[i].EffectiveStoryPoints, maxEff) +
            th.TicketCountWeight*ratio(float64(ms[i].TicketCount), maxCount) +
            th.ProjectVarietyWeight*ratio(float64(ms[i].ProjectsWorkedOn), maxProj)
    }
}
