/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
    "context"
    "io"
    "net/http"

    "github.com/gin-gonic/gin"
    "github.com/rs/zerolog"
    "github.com/teamlens/teamlens/internal/config"
    "github.com/teamlens/teamlens/internal/domain"
    "github.com/teamlens/teamlens/internal/ingest"
)

type service interface {
    IngestCSV(ctx context.Context, r io.Reader) (ingest.Stats, error)
    BuildReport(ctx context.Context) ([]domain.AssigneeMetrics, []domain.FunctionMetrics, error)
    RunWeeklyReport(ctx context.Context) error
    RunOnDemandReport(ctx context.Context, chatID int64) error
    SendHelp(ctx context.Context, chatID int64) error
    ListTickets(ctx context.Context) ([]domain.Ticket, error)
    GetThresholds(ctx context.Context) (domain.Thresholds, error)
    UpdateThresholds(ctx context.Context, patch domain.ThresholdsPatch) (domain.Thresholds, error)
    GetLastRun(ctx context.Context) (any, error)
}

type Handlers struct {
    cfg config.Config
    log zerolog.Logger
    svc service
}

func NewHandlers(cfg config.Config, log zerolog.Logger, svc any) *Handlers {
    return &Handlers{cfg: cfg, log: log, svc: svc.(service)}
}

func (h *Handlers) Healthz(c *gin.Context) {
    c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Ingest accepts either a multipart form with a "file" part or a raw CSV body.
func (h *Handlers) Ingest(c *gin.Context) {
    c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.IngestMaxBytes)
    var r io.Reader = c.Request.Body
    if f, _, err := c.Request.FormFile("file"); err == nil {
        defer f.Close()
        r = f
    }
    stats, err := h.svc.IngestCSV(c.Request.Context(), r)
    if err != nil {
        c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "stats": stats})
        return
    }
    c.JSON(http.StatusOK, gin.H{"stats": stats})
}

func (h *Handlers) Tickets(c *gin.Context) {
    ts, err := h.svc.ListTickets(c.Request.Context())
    if err != nil {
        c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
        return
    }
    c.JSON(http.StatusOK, ts)
}

func (h *Handlers) AssigneeMetrics(c *gin.Context) {
    assignees, _, err := h.svc.BuildReport(c.Request.Context())
    if err != nil {
        c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
        return
    }
    c.JSON(http.StatusOK, assignees)
}

func (h *Handlers) FunctionMetrics(c *gin.Context) {
    _, functions, err := h.svc.BuildReport(c.Request.Context())
    if err != nil {
        c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
        return
    }
    c.JSON(http.StatusOK, functions)
}

func (h *Handlers) GetThresholds(c *gin.Context) {
    th, err := h.svc.GetThresholds(c.Request.Context())
    if err != nil {
        c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
        return
    }
    c.JSON(http.StatusOK, th)
}

// PutThresholds validates at the configuration boundary; invalid numbers
// never reach the aggregation pass.
func (h *Handlers) PutThresholds(c *gin.Context) {
    var patch domain.ThresholdsPatch
    if err := c.ShouldBindJSON(&patch); err != nil {
        c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
        return
    }
    th, err := h.svc.UpdateThresholds(c.Request.Context(), patch)
    if err != nil {
        c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
        return
    }
    c.JSON(http.StatusOK, th)
}

func (h *Handlers) LastRun(c *gin.Context) {
    lr, err := h.svc.GetLastRun(c.Request.Context())
    if err != nil {
        c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
        return
    }
    c.JSON(http.StatusOK, lr)
}

func (h *Handlers) RunNow(c *gin.Context) {
    // Run in background detached from the HTTP request to avoid context cancellation
    go func(){ _ = h.svc.RunWeeklyReport(context.Background()) }()
    c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

func (h *Handlers) TelegramWebhook(c *gin.Context) {
    headerSecret := c.GetHeader("X-Telegram-Bot-Api-Secret-Token")
    pathSecret := c.Param("secret")
    // Accept either header secret (preferred) or path secret
    if headerSecret != h.cfg.TelegramWebhookSecret && pathSecret != h.cfg.TelegramWebhookSecret {
        c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
        return
    }
    h.log.Info().Str("ip", c.ClientIP()).Str("ua", c.GetHeader("User-Agent")).Msg("telegram webhook received")

    var upd struct {
        Message *struct {
            Chat struct { ID int64 `json:"id"` } `json:"chat"`
            Text string `json:"text"`
        } `json:"message"`
    }
    if err := c.ShouldBindJSON(&upd); err == nil && upd.Message != nil {
        chatID := upd.Message.Chat.ID
        text := upd.Message.Text
        // accept only configured chats if provided
        allowed := len(h.cfg.TelegramChatIDs) == 0
        if !allowed {
            for _, id := range h.cfg.TelegramChatIDs { if id == chatID { allowed = true; break } }
        }
        if allowed {
            switch text {
            case "/report":
                go func(){ _ = h.svc.RunOnDemandReport(context.Background(), chatID) }()
            case "/start", "/help":
                go func(){ _ = h.svc.SendHelp(context.Background(), chatID) }()
            }
        }
    }

    c.JSON(http.StatusOK, gin.H{"ok": true})
}
