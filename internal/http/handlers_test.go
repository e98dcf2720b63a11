package http

import (
    "context"
    "encoding/json"
    "errors"
    "io"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"

    "github.com/gin-gonic/gin"
    "github.com/rs/zerolog"
    "github.com/teamlens/teamlens/internal/config"
    "github.com/teamlens/teamlens/internal/domain"
    "github.com/teamlens/teamlens/internal/ingest"
)

type fakeService struct {
    ingested   string
    thresholds domain.Thresholds
    updateErr  error
    reportCh   chan int64
}

func (f *fakeService) IngestCSV(ctx context.Context, r io.Reader) (ingest.Stats, error) {
    b, _ := io.ReadAll(r)
    f.ingested = string(b)
    return ingest.Stats{Rows: 2, Tickets: 2}, nil
}
func (f *fakeService) BuildReport(ctx context.Context) ([]domain.AssigneeMetrics, []domain.FunctionMetrics, error) {
    return []domain.AssigneeMetrics{{Assignee: "Dana"}}, []domain.FunctionMetrics{{Function: "Backend"}}, nil
}
func (f *fakeService) RunWeeklyReport(ctx context.Context) error { return nil }
func (f *fakeService) RunOnDemandReport(ctx context.Context, chatID int64) error {
    if f.reportCh != nil { f.reportCh <- chatID }
    return nil
}
func (f *fakeService) SendHelp(ctx context.Context, chatID int64) error { return nil }
func (f *fakeService) ListTickets(ctx context.Context) ([]domain.Ticket, error) { return nil, nil }
func (f *fakeService) GetThresholds(ctx context.Context) (domain.Thresholds, error) {
    return f.thresholds, nil
}
func (f *fakeService) UpdateThresholds(ctx context.Context, patch domain.ThresholdsPatch) (domain.Thresholds, error) {
    if f.updateErr != nil { return f.thresholds, f.updateErr }
    return patch.Apply(f.thresholds), nil
}
func (f *fakeService) GetLastRun(ctx context.Context) (any, error) { return nil, nil }

func testRouter(svc *fakeService, cfg config.Config) *gin.Engine {
    gin.SetMode(gin.TestMode)
    if cfg.IngestMaxBytes == 0 { cfg.IngestMaxBytes = 1 << 20 }
    return NewRouter(cfg, zerolog.Nop(), svc)
}

func TestHealthz(t *testing.T) {
    r := testRouter(&fakeService{}, config.Config{})
    w := httptest.NewRecorder()
    r.ServeHTTP(w, httptest.NewRequest("GET", "/healthz", nil))
    if w.Code != http.StatusOK { t.Fatalf("status = %d", w.Code) }
}

func TestIngest_RawBody(t *testing.T) {
    svc := &fakeService{}
    r := testRouter(svc, config.Config{})
    body := "ID,Subject\nT-1,hello\n"
    w := httptest.NewRecorder()
    req := httptest.NewRequest("POST", "/ingest", strings.NewReader(body))
    req.Header.Set("Content-Type", "text/csv")
    r.ServeHTTP(w, req)
    if w.Code != http.StatusOK { t.Fatalf("status = %d body = %s", w.Code, w.Body.String()) }
    if svc.ingested != body { t.Fatalf("service saw %q", svc.ingested) }
}

func TestGetThresholds(t *testing.T) {
    svc := &fakeService{thresholds: domain.DefaultThresholds()}
    r := testRouter(svc, config.Config{})
    w := httptest.NewRecorder()
    r.ServeHTTP(w, httptest.NewRequest("GET", "/admin/thresholds", nil))
    if w.Code != http.StatusOK { t.Fatalf("status = %d", w.Code) }
    var th domain.Thresholds
    if err := json.Unmarshal(w.Body.Bytes(), &th); err != nil { t.Fatalf("decode: %v", err) }
    if th.HighBugRate != 0.25 { t.Fatalf("body = %s", w.Body.String()) }
}

func TestPutThresholds(t *testing.T) {
    svc := &fakeService{thresholds: domain.DefaultThresholds()}
    r := testRouter(svc, config.Config{})
    w := httptest.NewRecorder()
    req := httptest.NewRequest("PUT", "/admin/thresholds", strings.NewReader(`{"high_bug_rate":0.4}`))
    req.Header.Set("Content-Type", "application/json")
    r.ServeHTTP(w, req)
    if w.Code != http.StatusOK { t.Fatalf("status = %d body = %s", w.Code, w.Body.String()) }
    var th domain.Thresholds
    if err := json.Unmarshal(w.Body.Bytes(), &th); err != nil { t.Fatalf("decode: %v", err) }
    if th.HighBugRate != 0.4 { t.Fatalf("patch not applied: %s", w.Body.String()) }
}

func TestPutThresholds_RejectsInvalid(t *testing.T) {
    svc := &fakeService{updateErr: errors.New("thresholds: high_bug_rate must be within [0,1], got 3")}
    r := testRouter(svc, config.Config{})
    w := httptest.NewRecorder()
    req := httptest.NewRequest("PUT", "/admin/thresholds", strings.NewReader(`{"high_bug_rate":3}`))
    req.Header.Set("Content-Type", "application/json")
    r.ServeHTTP(w, req)
    if w.Code != http.StatusBadRequest { t.Fatalf("status = %d", w.Code) }

    w = httptest.NewRecorder()
    req = httptest.NewRequest("PUT", "/admin/thresholds", strings.NewReader(`{not json`))
    req.Header.Set("Content-Type", "application/json")
    r.ServeHTTP(w, req)
    if w.Code != http.StatusBadRequest { t.Fatalf("malformed body status = %d", w.Code) }
}

func TestMetricsEndpoints(t *testing.T) {
    r := testRouter(&fakeService{}, config.Config{})
    w := httptest.NewRecorder()
    r.ServeHTTP(w, httptest.NewRequest("GET", "/metrics/assignees", nil))
    if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Dana") { t.Fatalf("assignees: %d %s", w.Code, w.Body.String()) }
    w = httptest.NewRecorder()
    r.ServeHTTP(w, httptest.NewRequest("GET", "/metrics/functions", nil))
    if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Backend") { t.Fatalf("functions: %d %s", w.Code, w.Body.String()) }
}

func TestTelegramWebhook_SecretRequired(t *testing.T) {
    cfg := config.Config{TelegramWebhookSecret: "s3cr3t"}
    r := testRouter(&fakeService{}, cfg)

    w := httptest.NewRecorder()
    req := httptest.NewRequest("POST", "/telegram/webhook", strings.NewReader(`{}`))
    r.ServeHTTP(w, req)
    if w.Code != http.StatusForbidden { t.Fatalf("missing secret status = %d", w.Code) }

    w = httptest.NewRecorder()
    req = httptest.NewRequest("POST", "/telegram/webhook", strings.NewReader(`{}`))
    req.Header.Set("X-Telegram-Bot-Api-Secret-Token", "s3cr3t")
    r.ServeHTTP(w, req)
    if w.Code != http.StatusOK { t.Fatalf("header secret status = %d", w.Code) }

    w = httptest.NewRecorder()
    req = httptest.NewRequest("POST", "/telegram/webhook/s3cr3t", strings.NewReader(`{}`))
    r.ServeHTTP(w, req)
    if w.Code != http.StatusOK { t.Fatalf("path secret status = %d", w.Code) }
}

func TestTelegramWebhook_ReportCommand(t *testing.T) {
    svc := &fakeService{reportCh: make(chan int64, 1)}
    cfg := config.Config{TelegramWebhookSecret: "s3cr3t", TelegramChatIDs: []int64{42}}
    r := testRouter(svc, cfg)

    body := `{"message":{"chat":{"id":42},"text":"/report"}}`
    w := httptest.NewRecorder()
    req := httptest.NewRequest("POST", "/telegram/webhook", strings.NewReader(body))
    req.Header.Set("X-Telegram-Bot-Api-Secret-Token", "s3cr3t")
    req.Header.Set("Content-Type", "application/json")
    r.ServeHTTP(w, req)
    if w.Code != http.StatusOK { t.Fatalf("status = %d", w.Code) }
    if got := <-svc.reportCh; got != 42 { t.Fatalf("report sent to chat %d", got) }

    // unknown chat is ignored
    body = `{"message":{"chat":{"id":7},"text":"/report"}}`
    w = httptest.NewRecorder()
    req = httptest.NewRequest("POST", "/telegram/webhook", strings.NewReader(body))
    req.Header.Set("X-Telegram-Bot-Api-Secret-Token", "s3cr3t")
    req.Header.Set("Content-Type", "application/json")
    r.ServeHTTP(w, req)
    if w.Code != http.StatusOK { t.Fatalf("status = %d", w.Code) }
    select {
    case got := <-svc.reportCh:
        t.Fatalf("unexpected report for chat %d", got)
    default:
    }
}
