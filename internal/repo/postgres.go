package repo

import (
    "context"
    "encoding/json"
    "errors"
    "time"

    "github.com/jackc/pgx/v5"
    "github.com/jackc/pgx/v5/pgxpool"
    "github.com/rs/zerolog"
    "github.com/teamlens/teamlens/internal/config"
    "github.com/teamlens/teamlens/internal/domain"
)

type DB struct {
    Pool *pgxpool.Pool
    log  zerolog.Logger
}

func MustOpen(ctx context.Context, cfg config.Config, log zerolog.Logger) *DB {
    pool, err := pgxpool.New(ctx, cfg.DBDSN)
    if err != nil { log.Fatal().Err(err).Msg("db connect failed") }
    ctx2, cancel := context.WithTimeout(ctx, 10*time.Second); defer cancel()
    if err := pool.Ping(ctx2); err != nil { log.Fatal().Err(err).Msg("db ping failed") }
    return &DB{Pool: pool, log: log}
}

func (d *DB) Close() { d.Pool.Close() }

type Repository struct {
    db  *DB
    log zerolog.Logger
}

func NewRepository(d *DB, log zerolog.Logger) *Repository { return &Repository{db: d, log: log} }

func (r *Repository) TryAdvisoryLock(ctx context.Context, key int64) (bool, error) {
    var ok bool
    err := r.db.Pool.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", key).Scan(&ok)
    return ok, err
}

func (r *Repository) AdvisoryUnlock(ctx context.Context, key int64) error {
    var ok bool
    err := r.db.Pool.QueryRow(ctx, "SELECT pg_advisory_unlock($1)", key).Scan(&ok)
    if !ok && err == nil { return errors.New("advisory unlock returned false") }
    return err
}

// UpsertTickets writes one normalized snapshot batch; re-ingesting the same
// export is idempotent on ticket id.
func (r *Repository) UpsertTickets(ctx context.Context, ts []domain.Ticket) error {
    if len(ts) == 0 { return nil }
    batch := &pgx.Batch{}
    const q = `
        INSERT INTO tickets(id, subject, assignee, function, status, story_points,
            type, normalized_type, is_bug, is_revise, project, sprint_created,
            sprint_closed, created_date, closed_date, cycle_days, parent_id)
        VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
        ON CONFLICT(id) DO UPDATE SET
            subject=EXCLUDED.subject,
            assignee=EXCLUDED.assignee,
            function=EXCLUDED.function,
            status=EXCLUDED.status,
            story_points=EXCLUDED.story_points,
            type=EXCLUDED.type,
            normalized_type=EXCLUDED.normalized_type,
            is_bug=EXCLUDED.is_bug,
            is_revise=EXCLUDED.is_revise,
            project=EXCLUDED.project,
            sprint_created=EXCLUDED.sprint_created,
            sprint_closed=EXCLUDED.sprint_closed,
            created_date=EXCLUDED.created_date,
            closed_date=EXCLUDED.closed_date,
            cycle_days=EXCLUDED.cycle_days,
            parent_id=EXCLUDED.parent_id`
    for _, t := range ts {
        var created *time.Time
        if !t.CreatedDate.IsZero() { c := t.CreatedDate; created = &c }
        batch.Queue(q, t.ID, t.Subject, t.Assignee, t.Function, t.Status, t.StoryPoints,
            t.Type, string(t.NormalizedType), t.IsBug, t.IsRevise, t.Project, t.SprintCreated,
            t.SprintClosed, created, t.ClosedDate, t.CycleDays, t.ParentID)
    }
    br := r.db.Pool.SendBatch(ctx, batch)
    defer br.Close()
    for range ts { if _, err := br.Exec(); err != nil { return err } }
    return nil
}

func (r *Repository) ListTickets(ctx context.Context) ([]domain.Ticket, error) {
    rows, err := r.db.Pool.Query(ctx, `SELECT id, COALESCE(subject,''), COALESCE(assignee,''),
        COALESCE(function,''), COALESCE(status,''), COALESCE(story_points,0),
        COALESCE(type,''), COALESCE(normalized_type,''), COALESCE(is_bug,false), COALESCE(is_revise,false),
        COALESCE(project,''), COALESCE(sprint_created,''), COALESCE(sprint_closed,''),
        created_date, closed_date, cycle_days, COALESCE(parent_id,'')
        FROM tickets ORDER BY ingested_at, id`)
    if err != nil { return nil, err }
    defer rows.Close()
    var out []domain.Ticket
    for rows.Next() {
        var t domain.Ticket
        var nt string
        var created *time.Time
        if err := rows.Scan(&t.ID, &t.Subject, &t.Assignee, &t.Function, &t.Status, &t.StoryPoints,
            &t.Type, &nt, &t.IsBug, &t.IsRevise, &t.Project, &t.SprintCreated, &t.SprintClosed,
            &created, &t.ClosedDate, &t.CycleDays, &t.ParentID); err != nil { return nil, err }
        t.NormalizedType = domain.TicketType(nt)
        if created != nil { t.CreatedDate = *created }
        out = append(out, t)
    }
    return out, nil
}

// Per-run metric snapshots; a rerun for the same week overwrites.
func (r *Repository) SaveAssigneeMetrics(ctx context.Context, weekStart time.Time, ms []domain.AssigneeMetrics) error {
    if len(ms) == 0 { return nil }
    batch := &pgx.Batch{}
    const q = `INSERT INTO assignee_metrics(week_start, assignee, function, ticket_count,
            total_story_points, user_story_points, bug_story_points, revise_story_points,
            effective_story_points, bug_rate, revise_rate, performance_score, z_score,
            projects_worked_on, active_weeks, flags)
        VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
        ON CONFLICT (week_start, assignee) DO UPDATE SET
            function=EXCLUDED.function,
            ticket_count=EXCLUDED.ticket_count,
            total_story_points=EXCLUDED.total_story_points,
            user_story_points=EXCLUDED.user_story_points,
            bug_story_points=EXCLUDED.bug_story_points,
            revise_story_points=EXCLUDED.revise_story_points,
            effective_story_points=EXCLUDED.effective_story_points,
            bug_rate=EXCLUDED.bug_rate,
            revise_rate=EXCLUDED.revise_rate,
            performance_score=EXCLUDED.performance_score,
            z_score=EXCLUDED.z_score,
            projects_worked_on=EXCLUDED.projects_worked_on,
            active_weeks=EXCLUDED.active_weeks,
            flags=EXCLUDED.flags`
    for _, m := range ms {
        batch.Queue(q, weekStart, m.Assignee, m.Function, m.TicketCount,
            m.TotalStoryPoints, m.UserStoryPoints, m.BugStoryPoints, m.ReviseStoryPoints,
            m.EffectiveStoryPoints, m.BugRate, m.ReviseRate, m.PerformanceScore, m.ZScore,
            m.ProjectsWorkedOn, m.ActiveWeeks, m.Flags)
    }
    br := r.db.Pool.SendBatch(ctx, batch)
    defer br.Close()
    for range ms { if _, err := br.Exec(); err != nil { return err } }
    return nil
}

func (r *Repository) SaveFunctionMetrics(ctx context.Context, weekStart time.Time, fs []domain.FunctionMetrics) error {
    if len(fs) == 0 { return nil }
    batch := &pgx.Batch{}
    const q = `INSERT INTO function_metrics(week_start, function, member_count, ticket_count,
            total_story_points, avg_cycle_time_days, bug_rate_closed, revise_rate_closed, flags)
        VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9)
        ON CONFLICT (week_start, function) DO UPDATE SET
            member_count=EXCLUDED.member_count,
            ticket_count=EXCLUDED.ticket_count,
            total_story_points=EXCLUDED.total_story_points,
            avg_cycle_time_days=EXCLUDED.avg_cycle_time_days,
            bug_rate_closed=EXCLUDED.bug_rate_closed,
            revise_rate_closed=EXCLUDED.revise_rate_closed,
            flags=EXCLUDED.flags`
    for _, f := range fs {
        batch.Queue(q, weekStart, f.Function, f.MemberCount, f.TicketCount,
            f.TotalStoryPoints, f.AvgCycleTimeDays, f.BugRateClosed, f.ReviseRateClosed, f.Flags)
    }
    br := r.db.Pool.SendBatch(ctx, batch)
    defer br.Close()
    for range fs { if _, err := br.Exec(); err != nil { return err } }
    return nil
}

// settingsKeyThresholds is the fixed identifier the thresholds record is
// persisted under.
const settingsKeyThresholds = "thresholds"

// GetThresholds loads the stored record, filling any missing field from the
// provided defaults. No stored record at all also yields the defaults.
func (r *Repository) GetThresholds(ctx context.Context, defaults domain.Thresholds) (domain.Thresholds, error) {
    var raw []byte
    err := r.db.Pool.QueryRow(ctx, `SELECT value FROM settings WHERE key=$1`, settingsKeyThresholds).Scan(&raw)
    if err != nil {
        if errors.Is(err, pgx.ErrNoRows) { return defaults, nil }
        return defaults, err
    }
    var patch domain.ThresholdsPatch
    if err := json.Unmarshal(raw, &patch); err != nil { return defaults, err }
    return patch.Apply(defaults), nil
}

func (r *Repository) SaveThresholds(ctx context.Context, t domain.Thresholds) error {
    raw, err := json.Marshal(t)
    if err != nil { return err }
    _, err = r.db.Pool.Exec(ctx, `INSERT INTO settings(key, value) VALUES($1,$2)
        ON CONFLICT (key) DO UPDATE SET value=EXCLUDED.value`, settingsKeyThresholds, raw)
    return err
}

// Job runs
func (r *Repository) StartJobRun(ctx context.Context, kind string) (int64, error) {
    const q = `INSERT INTO job_runs(started_at, kind, success) VALUES(now(), $1, false) RETURNING id`
    var id int64
    if err := r.db.Pool.QueryRow(ctx, q, kind).Scan(&id); err != nil { return 0, err }
    return id, nil
}

func (r *Repository) FinishJobRun(ctx context.Context, id int64, tickets, assignees, functions int, success bool, errStr string) error {
    const q = `UPDATE job_runs SET finished_at=now(), tickets=$2, assignees=$3, functions=$4, success=$5, error=$6 WHERE id=$1`
    _, err := r.db.Pool.Exec(ctx, q, id, tickets, assignees, functions, success, errStr)
    return err
}

type LastRun struct {
    StartedAt  time.Time  `json:"started_at"`
    FinishedAt *time.Time `json:"finished_at"`
    Kind       string     `json:"kind"`
    Tickets    int        `json:"tickets"`
    Assignees  int        `json:"assignees"`
    Functions  int        `json:"functions"`
    Success    bool       `json:"success"`
    Error      string     `json:"error"`
}

func (r *Repository) GetLastRun(ctx context.Context) (*LastRun, error) {
    const q = `SELECT started_at, finished_at, coalesce(kind,''),
        coalesce(tickets,0), coalesce(assignees,0), coalesce(functions,0),
        coalesce(success,false), coalesce(error,'')
        FROM job_runs ORDER BY id DESC LIMIT 1`
    row := r.db.Pool.QueryRow(ctx, q)
    lr := &LastRun{}
    if err := row.Scan(&lr.StartedAt, &lr.FinishedAt, &lr.Kind, &lr.Tickets, &lr.Assignees, &lr.Functions, &lr.Success, &lr.Error); err != nil {
        if errors.Is(err, pgx.ErrNoRows) { return nil, nil }
        return nil, err
    }
    return lr, nil
}
