// Package metrics is the pure metrics and flagging engine: a stateless,
// single-pass batch transform from one snapshot of normalized tickets to
// per-assignee and per-function performance indicators. It holds no shared
// mutable state and is safe to invoke concurrently over independent batches;
// callers snapshot the thresholds before a run.
package metrics

import "github.com/teamlens/teamlens/internal/domain"

// BuildReport runs the whole engine: assignee aggregation, function
// aggregation, statistical normalization, and flagging. Cost is linear in
// ticket count plus linear in assignee count.
func BuildReport(tickets []domain.Ticket, th domain.Thresholds) ([]domain.AssigneeMetrics, []domain.FunctionMetrics) {
    assignees := AggregateAssignees(tickets, th)
    flagAssignees(assignees, th)
    functions := AggregateFunctions(tickets)
    flagFunctions(functions, th)
    return assignees, functions
}
