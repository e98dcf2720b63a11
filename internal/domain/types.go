package domain

import "time"

// TicketType is the canonical category derived from the raw tracker type label.
type TicketType string

const (
    TypeFeature     TicketType = "Feature"
    TypeBug         TicketType = "Bug"
    TypeRegression  TicketType = "Regression"
    TypeImprovement TicketType = "Improvement"
    TypeRelease     TicketType = "Release"
    TypeTask        TicketType = "Task"
    TypeOther       TicketType = "Other"
)

// StatusClosed is the only status counted toward closed-ticket aggregates.
const StatusClosed = "Closed"

// Unassigned is the assignee recorded when the export carries none.
const Unassigned = "Unassigned"

type Ticket struct {
    ID             string
    Subject        string
    Assignee       string
    Function       string
    Status         string
    StoryPoints    int
    Type           string
    NormalizedType TicketType
    IsBug          bool
    IsRevise       bool
    Project        string
    SprintCreated  string
    SprintClosed   string
    CreatedDate    time.Time
    ClosedDate     *time.Time
    CycleDays      *int
    ParentID       string
}

func (t Ticket) Closed() bool { return t.Status == StatusClosed }

// Flag names attached to assignees and functions. Flags are independent
// booleans; several may co-exist on the same entity.
const (
    FlagTopPerformer   = "top_performer"
    FlagLowPerformer   = "low_performer"
    FlagHighBugRate    = "high_bug_rate"
    FlagHighReviseRate = "high_revise_rate"
    FlagUnderutilized  = "underutilized"
    FlagOverloaded     = "overloaded"
)

type AssigneeMetrics struct {
    Assignee             string   `json:"assignee"`
    Function             string   `json:"function"`
    TicketCount          int      `json:"ticket_count"`
    TotalStoryPoints     int      `json:"total_story_points"`
    UserStoryPoints      int      `json:"user_story_points"`
    BugStoryPoints       int      `json:"bug_story_points"`
    ReviseStoryPoints    int      `json:"revise_story_points"`
    EffectiveStoryPoints float64  `json:"effective_story_points"`
    BugRate              float64  `json:"bug_rate"`
    ReviseRate           float64  `json:"revise_rate"`
    PerformanceScore     float64  `json:"performance_score"`
    ZScore               float64  `json:"z_score"`
    ProjectsWorkedOn     int      `json:"projects_worked_on"`
    ActiveWeeks          int      `json:"active_weeks"`
    Flags                []string `json:"flags"`
}

func (m AssigneeMetrics) HasFlag(name string) bool {
    for _, f := range m.Flags { if f == name { return true } }
    return false
}

type FunctionMetrics struct {
    Function         string   `json:"function"`
    MemberCount      int      `json:"member_count"`
    TicketCount      int      `json:"ticket_count"`
    TotalStoryPoints int      `json:"total_story_points"`
    AvgCycleTimeDays float64  `json:"avg_cycle_time_days"`
    BugRateClosed    float64  `json:"bug_rate_closed"`
    ReviseRateClosed float64  `json:"revise_rate_closed"`
    Flags            []string `json:"flags"`
}

func (m FunctionMetrics) HasFlag(name string) bool {
    for _, f := range m.Flags { if f == name { return true } }
    return false
}
