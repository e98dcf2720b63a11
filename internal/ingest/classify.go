package ingest

import (
    "strings"

    "github.com/teamlens/teamlens/internal/domain"
)

// NormalizeType maps a raw tracker type label to a canonical category.
// Matching is case-insensitive substring with enumerated rules; any label
// containing "bug" maps to Bug regardless of other matches.
func NormalizeType(raw string) domain.TicketType {
    s := strings.ToLower(strings.TrimSpace(raw))
    if s == "" { return domain.TypeOther }
    switch {
    case strings.Contains(s, "bug"):
        return domain.TypeBug
    case strings.Contains(s, "regression"):
        return domain.TypeRegression
    case strings.Contains(s, "feature") || strings.Contains(s, "story"):
        return domain.TypeFeature
    case strings.Contains(s, "improvement") || strings.Contains(s, "enhancement"):
        return domain.TypeImprovement
    case strings.Contains(s, "release"):
        return domain.TypeRelease
    case strings.Contains(s, "task"):
        return domain.TypeTask
    default:
        return domain.TypeOther
    }
}

// IsBugType reports whether a ticket counts as a bug: canonical Bug, or the
// raw label mentions "bug" in any casing.
func IsBugType(raw string, normalized domain.TicketType) bool {
    if normalized == domain.TypeBug { return true }
    return strings.Contains(strings.ToLower(raw), "bug")
}

// IsReviseSubject reports whether the subject marks rework ("revise ...",
// "Revise: ...", or the word anywhere in the title).
func IsReviseSubject(subject string) bool {
    return strings.Contains(strings.ToLower(subject), "revise")
}
