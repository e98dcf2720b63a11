/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package ingest

import (
    "fmt"
    "strconv"
    "strings"
    "time"

    "github.com/google/uuid"
    "github.com/teamlens/teamlens/internal/domain"
)

// Row is one header-keyed record from a tracker export. Unknown columns are
// simply never looked up.
type Row map[string]string

// Column names of the fixed export header.
const (
    colID            = "ID"
    colSubject       = "Subject"
    colType          = "Type"
    colAssignee      = "Assignee"
    colFunction      = "Function"
    colStatus        = "Status"
    colProject       = "Project"
    colParent        = "Parent"
    colStoryPoints   = "Story Points"
    colCreatedAt     = "Created At"
    colClosedAt      = "Closed At"
    colSprintCreated = "Sprint Created"
    colSprintClosed  = "Sprint Closed"
)

// Namespace for synthesized ticket ids. Fixed so the same row at the same
// position always derives the same id.
var idNamespace = uuid.MustParse("3a1d8fa8-23a6-4f6e-9f6d-5f1f6c1f0a42")

var dateLayouts = []string{
    "2006-01-02",
    time.RFC3339,
    time.RFC3339Nano,
    "2006-01-02 15:04:05",
    "2006-01-02T15:04:05.000-0700",
    "01/02/2006",
}

// parseDate returns the zero time for an empty value and an error for a
// non-empty value no layout accepts. Callers treat the zero time as an
// invalid-date marker, never as a real timestamp.
func parseDate(v string) (time.Time, error) {
    v = strings.TrimSpace(v)
    if v == "" { return time.Time{}, nil }
    for _, l := range dateLayouts {
        if t, err := time.Parse(l, v); err == nil { return t.UTC(), nil }
    }
    return time.Time{}, fmt.Errorf("unparseable date %q", v)
}

// parsePoints is fail-open: missing, non-numeric, and negative values all
// collapse to 0 rather than dropping the row.
func parsePoints(v string) int {
    n, err := strconv.Atoi(strings.TrimSpace(v))
    if err != nil || n < 0 { return 0 }
    return n
}

// synthesizeID derives a stable id from row content and position so repeated
// runs over the same export are byte-reproducible.
func synthesizeID(row Row, pos int) string {
    var b strings.Builder
    fmt.Fprintf(&b, "%d|", pos)
    for _, c := range []string{colSubject, colAssignee, colProject, colCreatedAt, colType} {
        b.WriteString(row[c])
        b.WriteByte('|')
    }
    return uuid.NewSHA1(idNamespace, []byte(b.String())).String()
}

// NormalizeRow turns one export row into a typed ticket. An error means the
// row is unusable and must be dropped entirely; no partial ticket is ever
// returned alongside a non-nil error.
func NormalizeRow(row Row, pos int) (domain.Ticket, error) {
    created, err := parseDate(row[colCreatedAt])
    if err != nil { return domain.Ticket{}, fmt.Errorf("row %d: created: %w", pos, err) }
    closedAt, err := parseDate(row[colClosedAt])
    if err != nil { return domain.Ticket{}, fmt.Errorf("row %d: closed: %w", pos, err) }

    id := strings.TrimSpace(row[colID])
    if id == "" { id = synthesizeID(row, pos) }
    assignee := strings.TrimSpace(row[colAssignee])
    if assignee == "" { assignee = domain.Unassigned }

    t := domain.Ticket{
        ID:            id,
        Subject:       strings.TrimSpace(row[colSubject]),
        Assignee:      assignee,
        Function:      strings.TrimSpace(row[colFunction]),
        Status:        strings.TrimSpace(row[colStatus]),
        StoryPoints:   parsePoints(row[colStoryPoints]),
        Type:          strings.TrimSpace(row[colType]),
        Project:       strings.TrimSpace(row[colProject]),
        SprintCreated: strings.TrimSpace(row[colSprintCreated]),
        SprintClosed:  strings.TrimSpace(row[colSprintClosed]),
        CreatedDate:   created,
        ParentID:      strings.TrimSpace(row[colParent]),
    }
    t.NormalizedType = NormalizeType(t.Type)
    t.IsBug = IsBugType(t.Type, t.NormalizedType)
    t.IsRevise = IsReviseSubject(t.Subject)

    if !closedAt.IsZero() {
        c := closedAt
        t.ClosedDate = &c
        // Cycle time needs both ends; a zero created date is an invalid
        // marker and yields no sample. Negative deltas are kept as-is.
        if !created.IsZero() {
            days := int(c.Sub(created).Hours() / 24)
            t.CycleDays = &days
        }
    }
    return t, nil
}
