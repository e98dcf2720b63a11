/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
    "context"
    "fmt"
    "io"
    "strings"
    "time"

    "github.com/rs/zerolog"
    "github.com/teamlens/teamlens/internal/config"
    "github.com/teamlens/teamlens/internal/domain"
    "github.com/teamlens/teamlens/internal/ingest"
    "github.com/teamlens/teamlens/internal/metrics"
    "github.com/teamlens/teamlens/internal/repo"
)

type LLM interface {
    Summarize(ctx context.Context, assignees []domain.AssigneeMetrics, functions []domain.FunctionMetrics) (string, error)
}

type Notifier interface {
    SendMessage(ctx context.Context, chatID int64, text string) error
    SendMessagePlain(ctx context.Context, chatID int64, text string) error
    SendMarkdownV2(ctx context.Context, chatID int64, text string) error
}

type Service struct {
    cfg  config.Config
    log  zerolog.Logger
    repo *repo.Repository
    llm  LLM
    tg   Notifier
}

func New(cfg config.Config, log zerolog.Logger, r *repo.Repository, llm LLM, tg Notifier) *Service {
    return &Service{cfg: cfg, log: log, repo: r, llm: llm, tg: tg}
}

// IngestCSV normalizes one exported snapshot and persists the tickets.
// Bad rows are dropped inside the reader; the batch never fails on them.
func (s *Service) IngestCSV(ctx context.Context, r io.Reader) (ingest.Stats, error) {
    tickets, stats, err := ingest.ReadCSV(r, s.log)
    if err != nil { return stats, err }
    if err := s.repo.UpsertTickets(ctx, tickets); err != nil { return stats, err }
    s.log.Info().Int("rows", stats.Rows).Int("tickets", stats.Tickets).Int("dropped", stats.Dropped).Msg("ingest: done")
    return stats, nil
}

// BuildReport snapshots the thresholds, loads the ticket set, and runs the
// engine. The engine itself is pure; all I/O stays here.
func (s *Service) BuildReport(ctx context.Context) ([]domain.AssigneeMetrics, []domain.FunctionMetrics, error) {
    th, err := s.repo.GetThresholds(ctx, s.cfg.Thresholds)
    if err != nil { return nil, nil, fmt.Errorf("load thresholds: %w", err) }
    tickets, err := s.repo.ListTickets(ctx)
    if err != nil { return nil, nil, fmt.Errorf("load tickets: %w", err) }
    assignees, functions := metrics.BuildReport(tickets, th)
    return assignees, functions, nil
}

func (s *Service) ListTickets(ctx context.Context) ([]domain.Ticket, error) {
    return s.repo.ListTickets(ctx)
}

func (s *Service) GetThresholds(ctx context.Context) (domain.Thresholds, error) {
    return s.repo.GetThresholds(ctx, s.cfg.Thresholds)
}

// UpdateThresholds validates at the configuration boundary; the engine
// assumes validated numeric thresholds.
func (s *Service) UpdateThresholds(ctx context.Context, patch domain.ThresholdsPatch) (domain.Thresholds, error) {
    cur, err := s.repo.GetThresholds(ctx, s.cfg.Thresholds)
    if err != nil { return cur, err }
    next := patch.Apply(cur)
    if err := next.Validate(); err != nil { return cur, err }
    if err := s.repo.SaveThresholds(ctx, next); err != nil { return cur, err }
    return next, nil
}

func (s *Service) GetLastRun(ctx context.Context) (any, error) {
    return s.repo.GetLastRun(ctx)
}

// RunWeeklyReport recomputes the report, persists the metric snapshots, and
// delivers the digest with classification alerts.
func (s *Service) RunWeeklyReport(ctx context.Context) error {
    runID, err := s.repo.StartJobRun(ctx, "weekly_report")
    if err != nil { s.log.Error().Err(err).Msg("start job run failed") }
    s.log.Info().Msg("WeeklyReport: start")
    ws := weekStart(time.Now())
    var nTickets, nAssignees, nFunctions int
    var runErr error
    defer func(){
        if runID != 0 {
            errMsg := ""
            if runErr != nil { errMsg = runErr.Error() }
            _ = s.repo.FinishJobRun(ctx, runID, nTickets, nAssignees, nFunctions, runErr == nil, errMsg)
        }
    }()

    tickets, err := s.repo.ListTickets(ctx)
    if err != nil { runErr = err; return err }
    nTickets = len(tickets)
    th, err := s.repo.GetThresholds(ctx, s.cfg.Thresholds)
    if err != nil { runErr = err; return err }
    assignees, functions := metrics.BuildReport(tickets, th)
    nAssignees, nFunctions = len(assignees), len(functions)

    if err := s.repo.SaveAssigneeMetrics(ctx, ws, assignees); err != nil { s.log.Error().Err(err).Msg("persist assignee metrics failed") }
    if err := s.repo.SaveFunctionMetrics(ctx, ws, functions); err != nil { s.log.Error().Err(err).Msg("persist function metrics failed") }

    digest := s.renderReport(assignees, functions)
    if s.llm != nil && strings.TrimSpace(s.cfg.OpenAIKey) != "" {
        if narrative, err := s.llm.Summarize(ctx, assignees, functions); err == nil && narrative != "" {
            digest += "\n" + escapeMarkdownV2(narrative)
        } else if err != nil {
            s.log.Error().Err(err).Msg("llm summarize failed")
        }
    }
    for _, chat := range s.deliveryChats(ctx) {
        for _, part := range chunkText(digest, 3800) {
            if err := s.tg.SendMarkdownV2(ctx, chat, part); err != nil {
                s.log.Error().Err(err).Int64("chat", chat).Msg("telegram send failed")
            }
        }
    }
    s.log.Info().Time("weekStart", ws).Int("assignees", nAssignees).Int("functions", nFunctions).Msg("WeeklyReport: done")
    return nil
}

// deliveryChats returns the configured chat ids, resolving usernames through
// the notifier when only usernames were configured.
func (s *Service) deliveryChats(ctx context.Context) []int64 {
    if len(s.cfg.TelegramChatIDs) > 0 || len(s.cfg.TelegramChatUsernames) == 0 {
        return s.cfg.TelegramChatIDs
    }
    type usernameResolver interface{ ResolveUsername(ctx context.Context, username string) (int64, error) }
    r, ok := s.tg.(usernameResolver)
    if !ok { return nil }
    var ids []int64
    for _, u := range s.cfg.TelegramChatUsernames {
        id, err := r.ResolveUsername(ctx, u)
        if err != nil { s.log.Error().Err(err).Str("username", u).Msg("resolve username failed"); continue }
        ids = append(ids, id)
    }
    return ids
}

// RunOnDemandReport computes a fresh report and sends it to the requester chat.
func (s *Service) RunOnDemandReport(ctx context.Context, chatID int64) error {
    if chatID == 0 { return nil }
    assignees, functions, err := s.BuildReport(ctx)
    if err != nil { return err }
    digest := s.renderReport(assignees, functions)
    for _, part := range chunkText(digest, 3800) {
        if err := s.tg.SendMarkdownV2(ctx, chatID, part); err != nil { return err }
    }
    return nil
}

// SendHelp replies with bot capabilities and commands.
func (s *Service) SendHelp(ctx context.Context, chatID int64) error {
    if chatID == 0 { return nil }
    help := escapeMarkdownV2("TeamLens Bot") + "\n" +
        escapeMarkdownV2("Performance metrics and flags from tracker exports.") + "\n\n" +
        escapeMarkdownV2("Commands:") + "\n" +
        escapeMarkdownV2("- /report — On-demand report over the current ticket snapshot") + "\n" +
        escapeMarkdownV2("Setup: Admin uploads CSV exports and configures thresholds and schedule.")
    return s.tg.SendMarkdownV2(ctx, chatID, help)
}

func escapeMarkdownV2(s string) string {
    repl := []string{"_","\\_","*","\\*","[","\\[","]","\\]","(","\\(",")","\\)","~","\\~","`","\\`",">","\\>","#","\\#","+","\\+","-","\\-","=","\\=","|","\\|","{","\\{","}","\\}",".","\\.","!","\\!"}
    for i := 0; i < len(repl); i += 2 { s = strings.ReplaceAll(s, repl[i], repl[i+1]) }
    return s
}

// renderReport builds the MarkdownV2 digest: cohort totals, flagged people,
// and per-function rollups.
func (s *Service) renderReport(assignees []domain.AssigneeMetrics, functions []domain.FunctionMetrics) string {
    b := &strings.Builder{}
    fmt.Fprintf(b, "*TeamLens*\n")
    fmt.Fprintf(b, "Performance report\n\n")
    fmt.Fprintf(b, "*People:* %d\n", len(assignees))
    fmt.Fprintf(b, "*Functions:* %d\n\n", len(functions))

    section := func(title, flag string) {
        var names []string
        for _, m := range assignees {
            if m.HasFlag(flag) { names = append(names, m.Assignee) }
        }
        if len(names) == 0 { return }
        fmt.Fprintf(b, "*%s:* %s\n", title, escapeMarkdownV2(strings.Join(names, ", ")))
    }
    section("Top performers", domain.FlagTopPerformer)
    section("Low performers", domain.FlagLowPerformer)
    section("High bug rate", domain.FlagHighBugRate)
    section("High revise rate", domain.FlagHighReviseRate)
    section("Underutilized", domain.FlagUnderutilized)

    if len(functions) > 0 {
        fmt.Fprintf(b, "\n*Functions:*\n")
        for _, f := range functions {
            line := fmt.Sprintf("%s: %d members, %d sp, cycle %.1fd", f.Function, f.MemberCount, f.TotalStoryPoints, f.AvgCycleTimeDays)
            if len(f.Flags) > 0 { line += " [" + strings.Join(f.Flags, ", ") + "]" }
            fmt.Fprintf(b, "%s\n", escapeMarkdownV2(line))
        }
    }
    return b.String()
}

// chunkText splits text into chunks of up to max runes, attempting to break on line boundaries.
func chunkText(s string, max int) []string {
    if max <= 0 { return []string{s} }
    var chunks []string
    lines := strings.Split(s, "\n")
    cur := ""
    curlen := 0
    for _, ln := range lines {
        rl := len([]rune(ln))
        // If a single line exceeds max, hard-split the line
        if rl > max {
            if curlen > 0 { chunks = append(chunks, cur); cur = ""; curlen = 0 }
            r := []rune(ln)
            for i := 0; i < rl; i += max {
                j := i + max
                if j > rl { j = rl }
                chunks = append(chunks, string(r[i:j]))
            }
            continue
        }
        extra := rl
        if curlen > 0 { extra += 1 }
        if curlen+extra > max {
            chunks = append(chunks, cur)
            cur = ln
            curlen = rl
        } else {
            if curlen == 0 { cur = ln; curlen = rl } else { cur += "\n" + ln; curlen += extra }
        }
    }
    if curlen > 0 { chunks = append(chunks, cur) }
    if len(chunks) == 0 { chunks = []string{""} }
    return chunks
}

func weekStart(t time.Time) time.Time {
    weekday := int(t.Weekday())
    if weekday == 0 { weekday = 7 }
    delta := time.Duration(weekday-1) * 24 * time.Hour
    day := t.Add(-delta)
    return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
}
