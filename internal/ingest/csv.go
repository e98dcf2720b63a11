package ingest

import (
    "encoding/csv"
    "fmt"
    "io"

    "github.com/rs/zerolog"
    "github.com/teamlens/teamlens/internal/domain"
)

type Stats struct {
    Rows    int `json:"rows"`
    Tickets int `json:"tickets"`
    Dropped int `json:"dropped"`
}

// ReadCSV decodes an exported tracker snapshot. The first record is the
// header; extra columns are ignored. Bad rows are dropped and logged, never
// fatal: exported tracker data is routinely inconsistent and one bad row
// must not abort the batch. Ticket order follows input order minus drops.
func ReadCSV(r io.Reader, log zerolog.Logger) ([]domain.Ticket, Stats, error) {
    cr := csv.NewReader(r)
    cr.FieldsPerRecord = -1
    cr.TrimLeadingSpace = true

    header, err := cr.Read()
    if err != nil { return nil, Stats{}, fmt.Errorf("csv: read header: %w", err) }

    var tickets []domain.Ticket
    stats := Stats{}
    for pos := 0; ; pos++ {
        rec, err := cr.Read()
        if err == io.EOF { break }
        if err != nil {
            // malformed quoting etc: drop the row, keep the batch
            stats.Rows++
            stats.Dropped++
            log.Warn().Err(err).Int("row", pos).Msg("ingest: unreadable row dropped")
            continue
        }
        stats.Rows++
        row := Row{}
        for i, name := range header {
            if i < len(rec) { row[name] = rec[i] }
        }
        t, err := NormalizeRow(row, pos)
        if err != nil {
            stats.Dropped++
            log.Warn().Err(err).Int("row", pos).Msg("ingest: row dropped")
            continue
        }
        tickets = append(tickets, t)
        stats.Tickets++
    }
    return tickets, stats, nil
}
