package metrics

import (
    "reflect"
    "testing"

    "github.com/teamlens/teamlens/internal/domain"
)

func TestBuildReport_Deterministic(t *testing.T) {
    th := domain.DefaultThresholds()
    tickets := []domain.Ticket{
        closedTicket("Omid", "Ship search facets", "Feature", 8, "Atlas", "2025-W23"),
        closedTicket("Dana", "Fix login crash", "Bug", 3, "Atlas", "2025-W23"),
        closedTicket("Dana", "Add export button", "Feature", 5, "Beacon", "2025-W24"),
        closedTicket("Sara", "Revise onboarding copy", "Task", 2, "Atlas", "2025-W24"),
    }
    a1, f1 := BuildReport(tickets, th)
    a2, f2 := BuildReport(tickets, th)
    if !reflect.DeepEqual(a1, a2) || !reflect.DeepEqual(f1, f2) {
        t.Fatalf("same snapshot and thresholds must yield identical reports")
    }
    // stable, name-ordered output
    if a1[0].Assignee != "Dana" || a1[1].Assignee != "Omid" || a1[2].Assignee != "Sara" {
        t.Fatalf("assignee order: %v %v %v", a1[0].Assignee, a1[1].Assignee, a1[2].Assignee)
    }
}

func TestBuildReport_EmptySnapshot(t *testing.T) {
    a, f := BuildReport(nil, domain.DefaultThresholds())
    if len(a) != 0 || len(f) != 0 { t.Fatalf("empty input must yield empty reports") }
}
